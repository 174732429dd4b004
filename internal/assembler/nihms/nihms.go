// Package nihms implements the NIHMS-native package profile: a
// gzip-compressed tar archive containing a tab-separated manifest.txt, a
// bulk_meta.xml metadata document, and the custodial files, in that
// fixed order (spec.md §6).
package nihms

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/depositcore/engine/internal/assembler"
	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/model"
)

// Profile assembles the NIHMS-native package format.
type Profile struct {
	Opener assembler.ContentOpener
}

// New returns a Profile reading custodial file bytes through opener.
func New(opener assembler.ContentOpener) *Profile {
	return &Profile{Opener: opener}
}

func (p *Profile) Assemble(dm model.DepositModel, opts assembler.Options) (*model.PackageStream, error) {
	if err := validateLabels(dm); err != nil {
		return nil, err
	}

	ps := model.NewPackageStream(nil)
	ps.Name = dm.SubmissionID + ".tar.gz"
	ps.SpecURI = "nihms-native"
	ps.MIME = "application/gzip"
	ps.Size = -1
	ps.Archive = model.ArchiveTar
	ps.Compression = model.CompressionGzip
	ps.SubmissionMeta = dm.RawMetadata

	ps.SetOpener(func() (io.ReadCloser, error) {
		return p.open(dm, opts, ps)
	})

	return ps, nil
}

// validateLabels enforces spec.md §6's NIHMS requirement that figure and
// table entries carry a non-empty, within-type-unique label (their
// Description field, by convention).
func validateLabels(dm model.DepositModel) error {
	seen := map[domain.FileRole]map[string]bool{
		domain.FileFigure: {},
		domain.FileTable:  {},
	}

	for _, f := range dm.Files {
		labels, tracked := seen[f.Role]
		if !tracked {
			continue
		}

		if f.Description == "" {
			return fmt.Errorf("nihms: %s %q has no label", f.Role, f.Name)
		}

		if labels[f.Description] {
			return fmt.Errorf("nihms: duplicate %s label %q", f.Role, f.Description)
		}

		labels[f.Description] = true
	}

	return nil
}

type pipeReadCloser struct {
	*io.PipeReader
	done chan struct{}
}

func (p *pipeReadCloser) Close() error {
	err := p.PipeReader.Close()
	<-p.done
	return err
}

func (p *Profile) open(dm model.DepositModel, opts assembler.Options, ps *model.PackageStream) (io.ReadCloser, error) {
	pr, pw := io.Pipe()

	rc := &pipeReadCloser{PipeReader: pr, done: make(chan struct{})}

	go func() {
		defer close(rc.done)

		resources, checksums, err := p.write(dm, opts, pw)
		ps.Resources = resources
		ps.Checksums = checksums
		pw.CloseWithError(err)
	}()

	return rc, nil
}

// write streams the archive, tee-ing every compressed byte leaving dst
// through a package-level hasher so ps.Checksums (spec.md §4.4.2's
// Content-MD5 source) is populated from the same opts.Algorithms as each
// entry.
func (p *Profile) write(dm model.DepositModel, opts assembler.Options, dst io.Writer) ([]model.Resource, map[model.ChecksumAlgorithm]string, error) {
	packageHasher := assembler.NewEntryHasher(dm.SubmissionID, opts.Algorithms)
	gw := gzip.NewWriter(assembler.TeeWriter(dst, packageHasher))
	tw := tar.NewWriter(gw)

	var resources []model.Resource
	seen := make(map[string]bool)

	manifest := buildManifest(dm)

	manifestResource, err := writeBytes(tw, "manifest.txt", []byte(manifest), opts.Algorithms)
	if err != nil {
		return resources, nil, err
	}

	resources = append(resources, manifestResource)
	seen["manifest.txt"] = true

	metaXML, err := buildBulkMeta(dm)
	if err != nil {
		return resources, nil, fmt.Errorf("nihms: building bulk_meta.xml: %w", err)
	}

	metaResource, err := writeBytes(tw, "bulk_meta.xml", metaXML, opts.Algorithms)
	if err != nil {
		return resources, nil, err
	}

	resources = append(resources, metaResource)
	seen["bulk_meta.xml"] = true

	for _, f := range dm.Files {
		name := assembler.RemediateName(f.Name, seen)

		rc, err := p.Opener.Open(context.Background(), f.ContentLocator)
		if err != nil {
			return resources, nil, fmt.Errorf("nihms: opening %s: %w", f.Name, err)
		}

		r, err := writeStream(tw, name, rc, opts.Algorithms)
		closeErr := rc.Close()

		if err != nil {
			return resources, nil, err
		}

		if closeErr != nil {
			return resources, nil, fmt.Errorf("nihms: closing source for %s: %w", name, closeErr)
		}

		resources = append(resources, r)
	}

	if err := tw.Close(); err != nil {
		return resources, nil, fmt.Errorf("nihms: closing tar writer: %w", err)
	}

	if err := gw.Close(); err != nil {
		return resources, nil, fmt.Errorf("nihms: closing gzip writer: %w", err)
	}

	return resources, packageHasher.Finish().Checksums, nil
}

// buildManifest renders a tab-separated manifest line per file, in the
// order custodial files appear in the model, preceded by the two
// metadata-document entries.
func buildManifest(dm model.DepositModel) string {
	var buf bytes.Buffer

	buf.WriteString("manifest.txt\tmetadata\t\n")
	buf.WriteString("bulk_meta.xml\tmetadata\t\n")

	for _, f := range dm.Files {
		fmt.Fprintf(&buf, "%s\t%s\t%s\n", f.Name, f.Role, f.Description)
	}

	return buf.String()
}

type bulkMetaXML struct {
	XMLName  xml.Name `xml:"nihms-submission"`
	Title    string   `xml:"title"`
	DOI      string   `xml:"doi,omitempty"`
	Journal  string   `xml:"journal-title,omitempty"`
	NLMTAID  string   `xml:"nlm-ta-id,omitempty"`
	Volume   string   `xml:"volume,omitempty"`
	Issue    string   `xml:"issue,omitempty"`
	Embargo  string   `xml:"embargo-lift-date,omitempty"`
	Authors  []string `xml:"authors>author"`
}

func buildBulkMeta(dm model.DepositModel) ([]byte, error) {
	meta := bulkMetaXML{
		Title:   dm.Title,
		DOI:     dm.DOI,
		Journal: dm.JournalTitle,
		NLMTAID: dm.NLMTAID,
		Volume:  dm.Volume,
		Issue:   dm.Issue,
	}

	if dm.EmbargoLift != nil {
		meta.Embargo = dm.EmbargoLift.Format(time.DateOnly)
	}

	for _, person := range dm.PersonsByRole(domain.RoleAuthor) {
		meta.Authors = append(meta.Authors, person.Name)
	}

	out, err := xml.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), out...), nil
}

func writeBytes(tw *tar.Writer, name string, body []byte, algorithms []model.ChecksumAlgorithm) (model.Resource, error) {
	hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(body))}

	if err := tw.WriteHeader(hdr); err != nil {
		return model.Resource{}, fmt.Errorf("nihms: writing header for %s: %w", name, err)
	}

	hasher := assembler.NewEntryHasher(name, algorithms)

	if _, err := assembler.TeeWriter(tw, hasher).Write(body); err != nil {
		return model.Resource{}, fmt.Errorf("nihms: writing %s: %w", name, err)
	}

	return hasher.Finish(), nil
}

// writeStream buffers src fully before writing: tar requires each
// header's Size field set before its body, so an entry's length must be
// known up front. The outer package itself still streams to dst one
// entry at a time rather than holding the whole archive in memory.
func writeStream(tw *tar.Writer, name string, src io.Reader, algorithms []model.ChecksumAlgorithm) (model.Resource, error) {
	buf, err := io.ReadAll(src)
	if err != nil {
		return model.Resource{}, fmt.Errorf("nihms: reading %s: %w", name, err)
	}

	hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(buf))}

	if err := tw.WriteHeader(hdr); err != nil {
		return model.Resource{}, fmt.Errorf("nihms: writing header for %s: %w", name, err)
	}

	hasher := assembler.NewEntryHasher(name, algorithms)

	if _, err := assembler.TeeWriter(tw, hasher).Write(buf); err != nil {
		return model.Resource{}, fmt.Errorf("nihms: writing %s: %w", name, err)
	}

	return hasher.Finish(), nil
}
