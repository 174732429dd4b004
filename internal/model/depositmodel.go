// Package model holds the in-memory-only entities owned exclusively by a
// single Deposit Task: DepositModel, PackageStream, and Resource. None of
// these are persisted; they are built, consumed, and discarded within one
// task's lifetime (spec.md §3 "Lifecycle").
package model

import (
	"time"

	"github.com/depositcore/engine/internal/domain"
)

// Person is a human referenced by a DepositModel under one or more roles.
// The same human may legitimately appear twice under different roles
// (spec.md §4.2) — PersonKey identifies the underlying user so a caller can
// tell repeats of the same human apart from distinct people, without the
// builder silently collapsing them.
type Person struct {
	PersonKey string
	Name      string
	Email     string
	Role      domain.PersonRole
}

// ModelFile is a custodial file as seen by the assembler: role-classified,
// with its content locator preserved opaquely (never dereferenced by C2).
type ModelFile struct {
	Name           string
	Role           domain.FileRole
	Description    string
	ContentLocator string
}

// DepositModel is the flattened view C2 builds from a Submission and its
// transitively resolved neighbors (Publication, Journal, Publisher, Grants,
// Users, Submitter, Files). It is the sole input to the Streaming
// Assembler.
type DepositModel struct {
	SubmissionID string

	Title        string
	Abstract     string
	JournalTitle string
	Volume       string
	Issue        string
	ISSNs        []domain.ISSN
	DOI          string
	NLMTAID      string
	EmbargoLift  *time.Time

	Persons []Person
	Files   []ModelFile

	// RawMetadata is the submission-meta blob, preserved verbatim so
	// downstream transports (in particular SWORDv2's collection-hint
	// routing) can inspect fields the builder itself doesn't model.
	RawMetadata string
}

// PersonsByRole returns every Person carrying the given role, preserving
// DepositModel.Persons order.
func (m DepositModel) PersonsByRole(role domain.PersonRole) []Person {
	var out []Person

	for _, p := range m.Persons {
		if p.Role == role {
			out = append(out, p)
		}
	}

	return out
}

// FilesByRole returns every ModelFile carrying the given role, preserving
// DepositModel.Files order.
func (m DepositModel) FilesByRole(role domain.FileRole) []ModelFile {
	var out []ModelFile

	for _, f := range m.Files {
		if f.Role == role {
			out = append(out, f)
		}
	}

	return out
}
