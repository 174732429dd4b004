package modelbuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/repoclient/fake"
)

func seedFullSubmission(t *testing.T, repo *fake.Client) domain.Submission {
	t.Helper()

	require.NoError(t, repo.SeedUser(domain.User{ID: "u-sub", Name: "Sam Submitter", Email: "sam@example.org"}))
	require.NoError(t, repo.SeedUser(domain.User{ID: "u-author", Name: "Al Author", Email: "al@example.org"}))
	require.NoError(t, repo.SeedUser(domain.User{ID: "u-pi", Name: "Pat PI", Email: "pat@example.org"}))

	require.NoError(t, repo.SeedGrant(domain.Grant{ID: "g1", PIRef: "u-pi"}))

	require.NoError(t, repo.SeedPublisher(domain.Publisher{ID: "pub1", Name: "Example Press"}))
	require.NoError(t, repo.SeedJournal(domain.Journal{
		ID:          "j1",
		Title:       "Journal of Examples",
		PublisherID: "pub1",
		ISSNs:       []domain.ISSN{{Value: "1234-5678", Type: "print"}},
		NLMTAID:     "J Exmpl",
	}))
	require.NoError(t, repo.SeedPublication(domain.Publication{
		ID:          "p1",
		JournalRef:  "j1",
		Title:       "A Study of Examples",
		DOI:         " 10.1000/example ",
		VolumeIssue: "12(3)",
	}))

	require.NoError(t, repo.SeedFile(domain.File{
		ID: "f1", Name: "manuscript.pdf", Role: domain.FileManuscript, ContentLocator: "blob://f1",
	}))

	sub := domain.Submission{
		ID:             "sub1",
		UserSubmitted:  true,
		Source:         domain.SourceUser,
		PublicationRef: "p1",
		SubmitterRef:   "u-sub",
		AuthorRefs:     []string{"u-author"},
		GrantRefs:      []string{"g1"},
		FileRefs:       []string{"f1"},
		MetadataBlob:   `{"title":"A Study of Examples","abstract":"An abstract.","embargo-lift-date":"2027-01-15"}`,
	}

	require.NoError(t, repo.SeedSubmission(sub))

	return sub
}

func TestBuild_FullGraph(t *testing.T) {
	repo, err := fake.New(t.TempDir())
	require.NoError(t, err)

	sub := seedFullSubmission(t, repo)

	b := &Builder{Repo: repo}
	dm, err := b.Build(context.Background(), sub)
	require.NoError(t, err)

	assert.Equal(t, "A Study of Examples", dm.Title)
	assert.Equal(t, "An abstract.", dm.Abstract)
	assert.Equal(t, "Journal of Examples", dm.JournalTitle)
	assert.Equal(t, "12", dm.Volume)
	assert.Equal(t, "3", dm.Issue)
	assert.Equal(t, "10.1000/example", dm.DOI)
	assert.Equal(t, "J Exmpl", dm.NLMTAID)
	require.NotNil(t, dm.EmbargoLift)
	assert.Equal(t, 2027, dm.EmbargoLift.Year())

	require.Len(t, dm.PersonsByRole(domain.RoleSubmitter), 1)
	require.Len(t, dm.PersonsByRole(domain.RoleAuthor), 1)
	require.Len(t, dm.PersonsByRole(domain.RolePI), 1)

	require.Len(t, dm.Files, 1)
	assert.Equal(t, domain.FileManuscript, dm.Files[0].Role)
}

func TestBuild_MissingSubmitterIsTerminal(t *testing.T) {
	repo, err := fake.New(t.TempDir())
	require.NoError(t, err)

	sub := domain.Submission{ID: "sub2", UserSubmitted: true, Source: domain.SourceUser}
	require.NoError(t, repo.SeedSubmission(sub))

	b := &Builder{Repo: repo}
	_, err = b.Build(context.Background(), sub)
	assert.Error(t, err)
}

func TestBuild_MalformedMetadataBlobIsTerminal(t *testing.T) {
	repo, err := fake.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, repo.SeedUser(domain.User{ID: "u-sub", Name: "Sam"}))

	sub := domain.Submission{
		ID: "sub3", UserSubmitted: true, Source: domain.SourceUser,
		SubmitterRef: "u-sub", MetadataBlob: "{not json",
	}
	require.NoError(t, repo.SeedSubmission(sub))

	b := &Builder{Repo: repo}
	_, err = b.Build(context.Background(), sub)
	assert.Error(t, err)
}

func TestBuild_UnparseableEmbargoDateIsTerminal(t *testing.T) {
	repo, err := fake.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, repo.SeedUser(domain.User{ID: "u-sub", Name: "Sam"}))

	sub := domain.Submission{
		ID: "sub4", UserSubmitted: true, Source: domain.SourceUser,
		SubmitterRef: "u-sub", MetadataBlob: `{"embargo-lift-date":"not-a-date"}`,
	}
	require.NoError(t, repo.SeedSubmission(sub))

	b := &Builder{Repo: repo}
	_, err = b.Build(context.Background(), sub)
	assert.Error(t, err)
}

func TestBuild_UnresolvableFileIsTerminal(t *testing.T) {
	repo, err := fake.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, repo.SeedUser(domain.User{ID: "u-sub", Name: "Sam"}))

	sub := domain.Submission{
		ID: "sub5", UserSubmitted: true, Source: domain.SourceUser,
		SubmitterRef: "u-sub", FileRefs: []string{"missing-file"},
	}
	require.NoError(t, repo.SeedSubmission(sub))

	b := &Builder{Repo: repo}
	_, err = b.Build(context.Background(), sub)
	assert.Error(t, err)
}
