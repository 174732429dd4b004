package nihms

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depositcore/engine/internal/assembler"
	"github.com/depositcore/engine/internal/assembler/assemblertest"
	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/model"
)

func TestAssemble_OrdersManifestMetaThenFiles(t *testing.T) {
	opener := assemblertest.MemoryOpener{"loc://a": "manuscript bytes"}

	profile := New(opener)

	dm := model.DepositModel{
		SubmissionID: "sub1",
		Title:        "A Study",
		Files: []model.ModelFile{
			{Name: "manuscript.pdf", Role: domain.FileManuscript, ContentLocator: "loc://a"},
		},
	}

	ps, err := profile.Assemble(dm, assembler.Options{Algorithms: []model.ChecksumAlgorithm{model.ChecksumSHA256}})
	require.NoError(t, err)

	rc, err := ps.Open()
	require.NoError(t, err)

	gr, err := gzip.NewReader(rc)
	require.NoError(t, err)

	tr := tar.NewReader(gr)

	var names []string

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		names = append(names, hdr.Name)
	}

	require.NoError(t, rc.Close())

	require.Equal(t, []string{"manifest.txt", "bulk_meta.xml", "manuscript.pdf"}, names)
	require.Len(t, ps.Resources, 3)
}

func TestAssemble_RejectsUnlabeledFigure(t *testing.T) {
	profile := New(assemblertest.MemoryOpener{"loc://a": "x"})

	dm := model.DepositModel{
		SubmissionID: "sub2",
		Files: []model.ModelFile{
			{Name: "fig1.png", Role: domain.FileFigure, ContentLocator: "loc://a"},
		},
	}

	_, err := profile.Assemble(dm, assembler.Options{})
	assert.Error(t, err)
}

func TestAssemble_RejectsDuplicateFigureLabels(t *testing.T) {
	profile := New(assemblertest.MemoryOpener{"loc://a": "x", "loc://b": "y"})

	dm := model.DepositModel{
		SubmissionID: "sub3",
		Files: []model.ModelFile{
			{Name: "fig1.png", Role: domain.FileFigure, Description: "Figure 1", ContentLocator: "loc://a"},
			{Name: "fig2.png", Role: domain.FileFigure, Description: "Figure 1", ContentLocator: "loc://b"},
		},
	}

	_, err := profile.Assemble(dm, assembler.Options{})
	assert.Error(t, err)
}

func TestManifest_IsTabSeparated(t *testing.T) {
	dm := model.DepositModel{
		Files: []model.ModelFile{
			{Name: "manuscript.pdf", Role: domain.FileManuscript, Description: ""},
		},
	}

	manifest := buildManifest(dm)
	lines := strings.Split(strings.TrimRight(manifest, "\n"), "\n")

	require.Len(t, lines, 3)
	assert.True(t, strings.Contains(lines[2], "\t"))
}
