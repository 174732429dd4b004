// Package modelbuilder implements the Submission Model Builder (spec.md
// C2): it resolves a Submission's transitive graph (Publication,
// Journal, Publisher, Grants, Users, Files) and flattens it into a
// model.DepositModel, the sole input to internal/assembler.
package modelbuilder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/model"
	"github.com/depositcore/engine/internal/platform/errs"
	"github.com/depositcore/engine/internal/repoclient"
)

// submissionMeta is the known shape of Submission.MetadataBlob. Fields
// this engine does not recognize are preserved only in the verbatim
// RawMetadata carried on the built DepositModel, never dropped.
type submissionMeta struct {
	Title           string `json:"title"`
	Abstract        string `json:"abstract"`
	EmbargoLiftDate string `json:"embargo-lift-date"`
}

// Builder resolves a Submission into a model.DepositModel.
type Builder struct {
	Repo repoclient.Client
}

// Build implements spec.md §4.2's extraction rules. Any unresolvable
// required entity, malformed DOI, or unparseable embargo date produces an
// errs.ValidationError wrapping the underlying cause; the caller (C7)
// treats this as terminal for the task rather than retryable.
func (b *Builder) Build(ctx context.Context, sub domain.Submission) (model.DepositModel, error) {
	var meta submissionMeta

	if sub.MetadataBlob != "" {
		if err := json.Unmarshal([]byte(sub.MetadataBlob), &meta); err != nil {
			return model.DepositModel{}, errs.ValidationError{
				EntityType: "submission",
				Message:    fmt.Sprintf("%s: metadata blob is not valid JSON", sub.ID),
				Err:        err,
			}
		}
	}

	dm := model.DepositModel{
		SubmissionID: sub.ID,
		Title:        meta.Title,
		Abstract:     meta.Abstract,
		RawMetadata:  sub.MetadataBlob,
	}

	if sub.PublicationRef != "" {
		if err := b.resolvePublication(ctx, sub, &dm); err != nil {
			return model.DepositModel{}, err
		}
	}

	if meta.EmbargoLiftDate != "" {
		t, err := time.Parse("2006-01-02", meta.EmbargoLiftDate)
		if err != nil {
			return model.DepositModel{}, errs.ValidationError{
				EntityType: "submission",
				Message:    fmt.Sprintf("%s: embargo-lift-date %q is not parseable as YYYY-MM-DD", sub.ID, meta.EmbargoLiftDate),
				Err:        err,
			}
		}

		dm.EmbargoLift = &t
	}

	persons, err := b.resolvePersons(ctx, sub)
	if err != nil {
		return model.DepositModel{}, err
	}

	if len(persons.byRole(domain.RoleSubmitter)) == 0 {
		return model.DepositModel{}, errs.ValidationError{
			EntityType: "submission",
			Message:    fmt.Sprintf("%s: has no resolvable submitter", sub.ID),
		}
	}

	dm.Persons = persons

	files, err := b.resolveFiles(ctx, sub)
	if err != nil {
		return model.DepositModel{}, err
	}

	dm.Files = files

	return dm, nil
}

func (b *Builder) resolvePublication(ctx context.Context, sub domain.Submission, dm *model.DepositModel) error {
	pub, err := b.Repo.GetPublication(ctx, sub.PublicationRef)
	if err != nil {
		return errs.ValidationError{
			EntityType: "submission",
			Message:    fmt.Sprintf("%s: publication %s unresolvable", sub.ID, sub.PublicationRef),
			Err:        err,
		}
	}

	dm.DOI = strings.TrimSpace(pub.DOI)
	if dm.DOI != "" && (!strings.HasPrefix(dm.DOI, "10.") || !strings.Contains(dm.DOI, "/")) {
		return errs.ValidationError{
			EntityType: "submission",
			Message:    fmt.Sprintf("%s: publication %s DOI %q is malformed", sub.ID, sub.PublicationRef, dm.DOI),
		}
	}

	dm.Volume, dm.Issue = splitVolumeIssue(pub.VolumeIssue)

	if pub.JournalRef == "" {
		return nil
	}

	journal, err := b.Repo.GetJournal(ctx, pub.JournalRef)
	if err != nil {
		return errs.ValidationError{
			EntityType: "submission",
			Message:    fmt.Sprintf("%s: journal %s unresolvable", sub.ID, pub.JournalRef),
			Err:        err,
		}
	}

	if journal.PublisherID != "" {
		if _, err := b.Repo.GetPublisher(ctx, journal.PublisherID); err != nil {
			return errs.ValidationError{
				EntityType: "submission",
				Message:    fmt.Sprintf("%s: publisher %s unresolvable", sub.ID, journal.PublisherID),
				Err:        err,
			}
		}
	}

	dm.JournalTitle = journal.Title
	dm.NLMTAID = journal.NLMTAID
	dm.ISSNs = journal.ISSNs

	return nil
}

// splitVolumeIssue parses a "volume(issue)" composite field, tolerating
// an empty or volume-only value.
func splitVolumeIssue(raw string) (volume, issue string) {
	raw = strings.TrimSpace(raw)

	open := strings.Index(raw, "(")
	if open < 0 {
		return raw, ""
	}

	close := strings.Index(raw, ")")
	if close < open {
		return raw, ""
	}

	return strings.TrimSpace(raw[:open]), strings.TrimSpace(raw[open+1 : close])
}

type personSet []model.Person

func (p personSet) byRole(role domain.PersonRole) []model.Person {
	var out []model.Person

	for _, person := range p {
		if person.Role == role {
			out = append(out, person)
		}
	}

	return out
}

// resolvePersons aggregates the submitter, every author, and every
// grant's PI/co-PIs, preserving duplicates across roles (spec.md §4.2:
// "the same human may legitimately appear twice under different
// roles").
func (b *Builder) resolvePersons(ctx context.Context, sub domain.Submission) (personSet, error) {
	var out personSet

	if sub.SubmitterRef != "" {
		p, err := b.resolveUser(ctx, sub.SubmitterRef, domain.RoleSubmitter)
		if err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	for _, ref := range sub.AuthorRefs {
		p, err := b.resolveUser(ctx, ref, domain.RoleAuthor)
		if err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	for _, grantRef := range sub.GrantRefs {
		grant, err := b.Repo.GetGrant(ctx, grantRef)
		if err != nil {
			return nil, errs.ValidationError{
				EntityType: "submission",
				Message:    fmt.Sprintf("%s: grant %s unresolvable", sub.ID, grantRef),
				Err:        err,
			}
		}

		if grant.PIRef != "" {
			p, err := b.resolveUser(ctx, grant.PIRef, domain.RolePI)
			if err != nil {
				return nil, err
			}

			out = append(out, p)
		}

		for _, coPIRef := range grant.CoPIRefs {
			p, err := b.resolveUser(ctx, coPIRef, domain.RoleCoPI)
			if err != nil {
				return nil, err
			}

			out = append(out, p)
		}
	}

	return out, nil
}

func (b *Builder) resolveUser(ctx context.Context, ref string, role domain.PersonRole) (model.Person, error) {
	u, err := b.Repo.GetUser(ctx, ref)
	if err != nil {
		return model.Person{}, errs.ValidationError{
			EntityType: "submission",
			Message:    fmt.Sprintf("user %s (role %s) unresolvable", ref, role),
			Err:        err,
		}
	}

	return model.Person{PersonKey: u.ID, Name: u.Name, Email: u.Email, Role: role}, nil
}

func (b *Builder) resolveFiles(ctx context.Context, sub domain.Submission) ([]model.ModelFile, error) {
	out := make([]model.ModelFile, 0, len(sub.FileRefs))

	for _, ref := range sub.FileRefs {
		f, err := b.Repo.GetFile(ctx, ref)
		if err != nil {
			return nil, errs.ValidationError{
				EntityType: "submission",
				Message:    fmt.Sprintf("%s: file %s unresolvable", sub.ID, ref),
				Err:        err,
			}
		}

		out = append(out, model.ModelFile{
			Name:           f.Name,
			Role:           f.Role,
			Description:    f.Description,
			ContentLocator: f.ContentLocator,
		})
	}

	return out, nil
}
