package model

import "io"

// ChecksumAlgorithm names a digest algorithm the assembler can compute
// while tee-ing an entry's bytes during writing.
type ChecksumAlgorithm string

const (
	ChecksumMD5    ChecksumAlgorithm = "MD5"
	ChecksumSHA256 ChecksumAlgorithm = "SHA-256"
	ChecksumSHA512 ChecksumAlgorithm = "SHA-512"
)

// ArchiveFormat is the outer container format of a PackageStream.
type ArchiveFormat string

const (
	ArchiveNone ArchiveFormat = "none"
	ArchiveTar  ArchiveFormat = "tar"
	ArchiveZip  ArchiveFormat = "zip"
)

// Compression is the compression applied inside or around the archive.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZip  Compression = "zip"
)

// Resource describes one logical entry written into a package: its name,
// final byte length, and the checksums computed for it. Checksums are
// populated only once the entry has been fully written (spec.md §4.3).
type Resource struct {
	Name      string
	Length    int64
	Checksums map[ChecksumAlgorithm]string
}

// PackageStream is a lazy, single-read, forward-only byte source with
// attached metadata, as produced by internal/assembler and consumed by
// internal/transport. Calling Open more than once is a programming error;
// the stream is single-read by construction.
type PackageStream struct {
	Name        string
	SpecURI     string
	MIME        string
	// Size is the total package size if known in advance, or -1 when the
	// assembler cannot predict it (always true for compressed streams).
	Size        int64
	Archive     ArchiveFormat
	Compression Compression
	Checksums   map[ChecksumAlgorithm]string
	// SubmissionMeta is the raw submission-meta blob carried through from
	// DepositModel.RawMetadata, preserved for transports that need to
	// inspect it directly (SWORDv2 collection-hint routing).
	SubmissionMeta string

	// Resources is populated as the producer finishes each entry; it is
	// only safe to read after the reader has been fully drained (EOF or
	// error), matching the teacher's "finalize after close" discipline
	// for per-entry metadata.
	Resources []Resource

	open func() (io.ReadCloser, error)
}

// NewPackageStream wraps an open func supplied by an assembler
// implementation. open must return a reader whose Close also waits for the
// producer goroutine (if any) to finish, so Resources and Checksums are
// set once Close returns; the producer's terminal error surfaces on Read,
// not on Close. open may be nil and supplied
// later via SetOpener, for profiles that need the *PackageStream itself
// (to record Resources into) before the opener closure can be built.
func NewPackageStream(open func() (io.ReadCloser, error)) *PackageStream {
	return &PackageStream{open: open}
}

// SetOpener assigns the open func after construction. See NewPackageStream.
func (p *PackageStream) SetOpener(open func() (io.ReadCloser, error)) {
	p.open = open
}

// Open returns the forward-only byte reader for this stream. It must be
// called at most once.
func (p *PackageStream) Open() (io.ReadCloser, error) {
	return p.open()
}
