package domain

import "time"

// Submission is the user's completed intent to deposit a work into one or
// more target repositories. All fields here are durable, persisted by the
// source-of-truth repository and only ever mutated through internal/cri.
type Submission struct {
	ID             string
	UserSubmitted  bool
	Source         SubmissionSource
	SubmittedAt    time.Time
	PublicationRef string
	SubmitterRef   string
	AuthorRefs     []string
	GrantRefs      []string
	RepositoryRefs []string
	FileRefs       []string
	// MetadataBlob is the opaque, submission-system-defined JSON document
	// internal/modelbuilder extracts bibliographic fields from. The core
	// never interprets it beyond the extraction rules in spec.md §4.2.
	MetadataBlob string
	// AggregatedStatus is "complete" once every Deposit on the submission
	// has reached a terminal status (spec.md §3 invariant iv). It is
	// maintained by internal/cri's post-condition checks, never written
	// directly by a task.
	AggregatedStatus string
	// RequiresOperatorAttention is set when an `internal` error kind
	// (spec.md §4.9/§7) is raised against this submission or one of its
	// deposits.
	RequiresOperatorAttention bool
}

// Grant references funding information attached to a Submission, along
// with the principal and co-principal investigators it names.
type Grant struct {
	ID        string
	PIRef     string
	CoPIRefs  []string
}

// Publication is the bibliographic parent of a Submission.
type Publication struct {
	ID          string
	JournalRef  string
	Title       string
	DOI         string
	VolumeIssue string
}

// Journal is the bibliographic parent of a Publication.
type Journal struct {
	ID          string
	Title       string
	PublisherID string
	ISSNs       []ISSN
	NLMTAID     string
}

// ISSN pairs an ISSN with its publication-type qualifier (print, online, ...).
type ISSN struct {
	Value string
	Type  string
}

// Publisher is the bibliographic grandparent of a Publication.
type Publisher struct {
	ID   string
	Name string
}

// User is a human referenced by a Submission (submitter, PI, co-PI, or
// author).
type User struct {
	ID    string
	Name  string
	Email string
}
