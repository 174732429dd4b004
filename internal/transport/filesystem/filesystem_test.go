package filesystem

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depositcore/engine/internal/config"
	"github.com/depositcore/engine/internal/model"
	"github.com/depositcore/engine/internal/transport"
)

func TestSend_WritesFileToDirectory(t *testing.T) {
	dir := t.TempDir()

	a := Adapter{}
	sess, err := a.Open(context.Background(), config.TransportConfig{
		Filesystem: &config.FilesystemSettings{Directory: dir},
	})
	require.NoError(t, err)

	ps := model.NewPackageStream(func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("package bytes")), nil
	})
	ps.Name = "package.tar.gz"

	resp, err := sess.Send(context.Background(), ps, transport.Hints{})
	require.NoError(t, err)
	assert.True(t, resp.Accepted)

	body, err := os.ReadFile(filepath.Join(dir, "package.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, "package bytes", string(body))

	require.NoError(t, sess.Close())
}

func TestSend_TaintsSessionOnFailure(t *testing.T) {
	a := Adapter{}
	sess, err := a.Open(context.Background(), config.TransportConfig{
		Filesystem: &config.FilesystemSettings{Directory: t.TempDir()},
	})
	require.NoError(t, err)

	ps := model.NewPackageStream(func() (io.ReadCloser, error) {
		return nil, assert.AnError
	})
	ps.Name = "fails.tar.gz"

	_, err = sess.Send(context.Background(), ps, transport.Hints{})
	assert.Error(t, err)

	err = sess.Close()
	assert.ErrorIs(t, err, transport.ErrSessionTainted)
}
