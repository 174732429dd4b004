package domain

// Deposit is a single (Submission, target-Repository) work unit. At most
// one non-failed Deposit may exist per (Submission, Repository) pair
// (spec.md §3 invariant ii); this is enforced by internal/cri's
// precondition on transition into DepositSubmitted, never by a unique
// index the core owns.
type Deposit struct {
	ID             string
	SubmissionID   string
	RepositoryID   string
	Status         DepositStatus
	StatusProbeURI string
	RepositoryCopyID string
	ErrorKind        string
	ErrorMessage     string
}

// HasStatusProbe reports whether the deposit carries a probe URI, one of
// the two routes (alongside an attached RepositoryCopy) by which a Deposit
// is allowed to be in DepositSubmitted (spec.md §3 invariant iii).
func (d Deposit) HasStatusProbe() bool {
	return d.StatusProbeURI != ""
}

// RepositoryCopy is the landing record in the target repository, carrying
// an access URL and external identifier once the target has ingested the
// package.
type RepositoryCopy struct {
	ID           string
	SubmissionID string
	RepositoryID string
	AccessURL    string
	ExternalID   string
	CopyStatus   CopyStatus
}

// Repository is a target repository this engine can deposit into.
type Repository struct {
	ID   string
	Key  string
	Name string
}

// File is a custodial file referenced by a Submission.
type File struct {
	ID             string
	SubmissionID   string
	Name           string
	Role           FileRole
	Description    string
	ContentLocator string
}
