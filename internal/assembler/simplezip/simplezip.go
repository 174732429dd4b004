// Package simplezip implements the SimpleZip package profile: a flat zip
// archive of custodial files at the archive root, with no manifest or
// metadata document (spec.md §6's simplest wire format).
package simplezip

import (
	"archive/zip"
	"context"
	"fmt"
	"io"

	"github.com/depositcore/engine/internal/assembler"
	"github.com/depositcore/engine/internal/model"
)

// Profile assembles the SimpleZip package format.
type Profile struct {
	Opener assembler.ContentOpener
}

// New returns a Profile reading custodial file bytes through opener.
func New(opener assembler.ContentOpener) *Profile {
	return &Profile{Opener: opener}
}

func (p *Profile) Assemble(dm model.DepositModel, opts assembler.Options) (*model.PackageStream, error) {
	ps := model.NewPackageStream(nil)
	ps.Name = dm.SubmissionID + ".zip"
	ps.SpecURI = "simple-zip"
	ps.MIME = "application/zip"
	ps.Size = -1
	ps.Archive = model.ArchiveZip
	ps.Compression = model.CompressionZip
	ps.SubmissionMeta = dm.RawMetadata

	ps.SetOpener(func() (io.ReadCloser, error) {
		return p.open(dm, opts, ps)
	})

	return ps, nil
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

// write streams the archive, tee-ing every byte leaving dst through a
// package-level hasher so ps.Checksums (spec.md §4.4.2's Content-MD5
// source) is populated from the same opts.Algorithms as each entry.
func (p *Profile) write(dm model.DepositModel, opts assembler.Options, dst io.Writer) ([]model.Resource, map[model.ChecksumAlgorithm]string, error) {
	packageHasher := assembler.NewEntryHasher(dm.SubmissionID, opts.Algorithms)
	zw := zip.NewWriter(assembler.TeeWriter(dst, packageHasher))

	seen := make(map[string]bool)
	resources := make([]model.Resource, 0, len(dm.Files))

	for _, f := range dm.Files {
		name := assembler.RemediateName(f.Name, seen)

		entry, err := zw.Create(name)
		if err != nil {
			return resources, nil, fmt.Errorf("simplezip: creating entry %s: %w", name, err)
		}

		rc, err := p.Opener.Open(context.Background(), f.ContentLocator)
		if err != nil {
			return resources, nil, fmt.Errorf("simplezip: opening %s: %w", f.Name, err)
		}

		hasher := assembler.NewEntryHasher(name, opts.Algorithms)

		_, copyErr := io.Copy(assembler.TeeWriter(entry, hasher), rc)
		closeErr := rc.Close()

		if copyErr != nil {
			return resources, nil, fmt.Errorf("simplezip: writing %s: %w", name, copyErr)
		}

		if closeErr != nil {
			return resources, nil, fmt.Errorf("simplezip: closing source for %s: %w", name, closeErr)
		}

		resources = append(resources, hasher.Finish())
	}

	if err := zw.Close(); err != nil {
		return resources, nil, fmt.Errorf("simplezip: closing archive: %w", err)
	}

	return resources, packageHasher.Finish().Checksums, nil
}
