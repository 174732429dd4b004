// Package domain holds the durable entities referenced by the core
// (spec.md §3). Every field the core writes is covered by an invariant
// enforced exclusively through internal/cri — nothing in this package
// performs its own persistence.
package domain

// DepositStatus is the lifecycle state of a Deposit. Transitions are
// constrained to the partial order None -> Submitted -> {Accepted,
// Rejected, Failed}; Accepted, Rejected, and Failed are terminal.
type DepositStatus string

const (
	DepositNone      DepositStatus = "none"
	DepositSubmitted DepositStatus = "submitted"
	DepositAccepted  DepositStatus = "accepted"
	DepositRejected  DepositStatus = "rejected"
	DepositFailed    DepositStatus = "failed"
)

// IsTerminal reports whether s is one of the statuses a Deposit never
// transitions away from.
func (s DepositStatus) IsTerminal() bool {
	switch s {
	case DepositAccepted, DepositRejected, DepositFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next respects the
// partial order None -> Submitted -> {Accepted, Rejected, Failed}.
func (s DepositStatus) CanTransitionTo(next DepositStatus) bool {
	switch s {
	case DepositNone:
		return next == DepositSubmitted
	case DepositSubmitted:
		return next == DepositAccepted || next == DepositRejected || next == DepositFailed
	case DepositFailed:
		// retry resets a failed deposit back to none (internal/cri's
		// retry-path modification), which is not itself a status
		// *advance*; it is handled as a distinct reset operation rather
		// than via CanTransitionTo.
		return false
	default:
		return false
	}
}

// CopyStatus is the lifecycle state of a RepositoryCopy landing record.
type CopyStatus string

const (
	CopyInProgress CopyStatus = "in-progress"
	CopyComplete   CopyStatus = "complete"
	CopyStalled    CopyStatus = "stalled"
	CopyRejected   CopyStatus = "rejected"
)

// SubmissionSource distinguishes a user-authored submission from one
// created by an external agent (e.g. a batch import).
type SubmissionSource string

const (
	SourceUser     SubmissionSource = "user"
	SourceExternal SubmissionSource = "external"
)

// FileRole classifies a custodial file within a submission.
type FileRole string

const (
	FileManuscript FileRole = "manuscript"
	FileSupplement FileRole = "supplement"
	FileFigure     FileRole = "figure"
	FileTable      FileRole = "table"
)

// PersonRole classifies how a person relates to a submission. The same
// human may appear under more than one role; PersonRole itself does not
// dedupe, see model.Person for the aggregation invariant.
type PersonRole string

const (
	RoleSubmitter PersonRole = "submitter"
	RolePI        PersonRole = "pi"
	RoleCoPI      PersonRole = "copi"
	RoleAuthor    PersonRole = "author"
)

// TransportProtocol names the wire protocol a Repository's transport
// configuration uses.
type TransportProtocol string

const (
	ProtocolFTP        TransportProtocol = "ftp"
	ProtocolSWORDv2    TransportProtocol = "SWORDv2"
	ProtocolFilesystem TransportProtocol = "filesystem"
)
