// Package dspace implements the DSpace-METS package profile: a zip
// archive containing a mets.xml descriptor (with a single fileSec /
// fileGrp USE="CONTENT" wiring every custodial file via FLocat) and a
// data/ directory holding the files themselves (spec.md §6).
package dspace

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/depositcore/engine/internal/assembler"
	"github.com/depositcore/engine/internal/model"
)

const (
	metsNamespace  = "http://www.loc.gov/METS/"
	xlinkNamespace = "http://www.w3.org/1999/xlink"
)

// Profile assembles the DSpace-METS package format.
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
	ps.SpecURI = "dspace-mets"
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

// write emits spec.md §4.3's ordering guarantee: mets.xml first, then the
// custodial files in model order. The METS fileSec only needs each file's
// name and role, none of which require opening its content, so the
// archive names and file IDs are assigned up front (deterministically, by
// index) before anything is read or written. Every byte leaving dst is
// tee'd through a package-level hasher so ps.Checksums (spec.md §4.4.2's
// Content-MD5 source) is populated from the same opts.Algorithms as each
// entry.
func (p *Profile) write(dm model.DepositModel, opts assembler.Options, dst io.Writer) ([]model.Resource, map[model.ChecksumAlgorithm]string, error) {
	packageHasher := assembler.NewEntryHasher(dm.SubmissionID, opts.Algorithms)
	zw := zip.NewWriter(assembler.TeeWriter(dst, packageHasher))

	seen := make(map[string]bool)
	resources := make([]model.Resource, 0, len(dm.Files)+1)

	seen["data/"] = true

	archiveNames := make([]string, len(dm.Files))
	fileEntries := make([]metsFile, len(dm.Files))

	for i, f := range dm.Files {
		archiveNames[i] = "data/" + assembler.RemediateName(f.Name, seen)
		fileEntries[i] = metsFile{
			ID:       "file-" + fmt.Sprint(i+1),
			MIMEType: "application/octet-stream",
			FLocat:   metsFLocat{Type: "simple", Href: archiveNames[i]},
		}
	}

	metsXML, err := buildMETS(dm, fileEntries)
	if err != nil {
		return resources, nil, fmt.Errorf("dspace: building mets.xml: %w", err)
	}

	metsEntry, err := zw.Create("mets.xml")
	if err != nil {
		return resources, nil, fmt.Errorf("dspace: creating mets.xml entry: %w", err)
	}

	metsHasher := assembler.NewEntryHasher("mets.xml", opts.Algorithms)

	if _, err := assembler.TeeWriter(metsEntry, metsHasher).Write(metsXML); err != nil {
		return resources, nil, fmt.Errorf("dspace: writing mets.xml: %w", err)
	}

	resources = append(resources, metsHasher.Finish())

	for i, f := range dm.Files {
		archiveName := archiveNames[i]

		entry, err := zw.Create(archiveName)
		if err != nil {
			return resources, nil, fmt.Errorf("dspace: creating entry %s: %w", archiveName, err)
		}

		rc, err := p.Opener.Open(context.Background(), f.ContentLocator)
		if err != nil {
			return resources, nil, fmt.Errorf("dspace: opening %s: %w", f.Name, err)
		}

		hasher := assembler.NewEntryHasher(archiveName, opts.Algorithms)

		_, copyErr := io.Copy(assembler.TeeWriter(entry, hasher), rc)
		closeErr := rc.Close()

		if copyErr != nil {
			return resources, nil, fmt.Errorf("dspace: writing %s: %w", archiveName, copyErr)
		}

		if closeErr != nil {
			return resources, nil, fmt.Errorf("dspace: closing source for %s: %w", archiveName, closeErr)
		}

		resources = append(resources, hasher.Finish())
	}

	if err := zw.Close(); err != nil {
		return resources, nil, fmt.Errorf("dspace: closing archive: %w", err)
	}

	return resources, packageHasher.Finish().Checksums, nil
}

type metsFLocat struct {
	XMLName xml.Name `xml:"FLocat"`
	Type    string   `xml:"LOCTYPE,attr"`
	Href    string   `xml:"xlink:href,attr"`
}

type metsFile struct {
	XMLName  xml.Name   `xml:"file"`
	ID       string     `xml:"ID,attr"`
	MIMEType string     `xml:"MIMETYPE,attr"`
	FLocat   metsFLocat `xml:"FLocat"`
}

type metsFileGrp struct {
	XMLName xml.Name   `xml:"fileGrp"`
	Use     string     `xml:"USE,attr"`
	Files   []metsFile `xml:"file"`
}

type metsFileSec struct {
	XMLName xml.Name    `xml:"fileSec"`
	FileGrp metsFileGrp `xml:"fileGrp"`
}

type metsDocument struct {
	XMLName xml.Name `xml:"mets"`
	Xmlns   string   `xml:"xmlns,attr"`
	XLinkNS string   `xml:"xmlns:xlink,attr"`
	Label   string   `xml:"LABEL,attr"`
	FileSec metsFileSec `xml:"fileSec"`
}

func buildMETS(dm model.DepositModel, files []metsFile) ([]byte, error) {
	doc := metsDocument{
		Xmlns:   metsNamespace,
		XLinkNS: xlinkNamespace,
		Label:   dm.Title,
		FileSec: metsFileSec{
			FileGrp: metsFileGrp{Use: "CONTENT", Files: files},
		},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	return append([]byte(xml.Header), out...), nil
}
