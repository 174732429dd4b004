package contentopener

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_FileScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manuscript.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf bytes"), 0o644))

	o := &Opener{}

	rc, err := o.Open(context.Background(), "file://"+path)
	require.NoError(t, err)

	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(body))
}

func TestOpen_BarePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figure.png")
	require.NoError(t, os.WriteFile(path, []byte("png bytes"), 0o644))

	o := &Opener{}

	rc, err := o.Open(context.Background(), path)
	require.NoError(t, err)

	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(body))
}

func TestOpen_HTTPScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Correlation-ID"))
		_, _ = w.Write([]byte("remote bytes"))
	}))
	defer srv.Close()

	o := &Opener{}

	rc, err := o.Open(context.Background(), srv.URL+"/files/1")
	require.NoError(t, err)

	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "remote bytes", string(body))
}

func TestOpen_HTTPNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	o := &Opener{}

	_, err := o.Open(context.Background(), srv.URL+"/files/missing")
	assert.Error(t, err)
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	o := &Opener{}

	_, err := o.Open(context.Background(), "s3://bucket/key")
	assert.Error(t, err)
}
