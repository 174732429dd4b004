package simplezip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depositcore/engine/internal/assembler"
	"github.com/depositcore/engine/internal/assembler/assemblertest"
	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/model"
)

func TestAssemble_ProducesFlatZip(t *testing.T) {
	opener := assemblertest.MemoryOpener{
		"loc://a": "manuscript bytes",
		"loc://b": "supplement bytes",
	}

	profile := New(opener)

	dm := model.DepositModel{
		SubmissionID: "sub1",
		Files: []model.ModelFile{
			{Name: "manuscript.pdf", Role: domain.FileManuscript, ContentLocator: "loc://a"},
			{Name: "supplement.pdf", Role: domain.FileSupplement, ContentLocator: "loc://b"},
		},
	}

	ps, err := profile.Assemble(dm, assembler.Options{Algorithms: []model.ChecksumAlgorithm{model.ChecksumMD5}})
	require.NoError(t, err)

	rc, err := ps.Open()
	require.NoError(t, err)

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	require.Len(t, zr.File, 2)
	assert.Equal(t, "manuscript.pdf", zr.File[0].Name)
	assert.Equal(t, "supplement.pdf", zr.File[1].Name)

	require.Len(t, ps.Resources, 2)
	assert.NotEmpty(t, ps.Resources[0].Checksums[model.ChecksumMD5])
}

func TestAssemble_RemediatesDuplicateNames(t *testing.T) {
	opener := assemblertest.MemoryOpener{"loc://a": "one", "loc://b": "two"}

	profile := New(opener)

	dm := model.DepositModel{
		SubmissionID: "sub2",
		Files: []model.ModelFile{
			{Name: "file.pdf", ContentLocator: "loc://a"},
			{Name: "file.pdf", ContentLocator: "loc://b"},
		},
	}

	ps, err := profile.Assemble(dm, assembler.Options{})
	require.NoError(t, err)

	rc, err := ps.Open()
	require.NoError(t, err)

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	require.Len(t, zr.File, 2)
	assert.Equal(t, "file.pdf", zr.File[0].Name)
	assert.Equal(t, "REMEDIATED-file.pdf", zr.File[1].Name)
}
