package dspace

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depositcore/engine/internal/assembler"
	"github.com/depositcore/engine/internal/assembler/assemblertest"
	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/model"
)

func TestAssemble_WritesDataDirAndSingleFileGrp(t *testing.T) {
	opener := assemblertest.MemoryOpener{"loc://a": "manuscript bytes"}

	profile := New(opener)

	dm := model.DepositModel{
		SubmissionID: "sub1",
		Title:        "A Study",
		Files: []model.ModelFile{
			{Name: "manuscript.pdf", Role: domain.FileManuscript, ContentLocator: "loc://a"},
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

	var names []string
	var metsBytes []byte

	for _, f := range zr.File {
		names = append(names, f.Name)

		if f.Name == "mets.xml" {
			rc, err := f.Open()
			require.NoError(t, err)

			metsBytes, err = io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
		}
	}

	assert.Contains(t, names, "data/manuscript.pdf")
	assert.Contains(t, names, "mets.xml")

	var doc metsDocument
	require.NoError(t, xml.Unmarshal(metsBytes, &doc))
	assert.Equal(t, "CONTENT", doc.FileSec.FileGrp.Use)
	require.Len(t, doc.FileSec.FileGrp.Files, 1)
	assert.Equal(t, "data/manuscript.pdf", doc.FileSec.FileGrp.Files[0].FLocat.Href)

	require.Len(t, ps.Resources, 2)
}
