// Package filesystem implements a transport.Adapter that writes a
// package stream to a local directory. It exists for local runs and
// tests (spec.md §C's supplemented fake-infrastructure feature),
// standing in for a real network transport without changing C7's
// contract.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/depositcore/engine/internal/config"
	"github.com/depositcore/engine/internal/model"
	"github.com/depositcore/engine/internal/transport"
)

// Adapter opens filesystem Sessions.
type Adapter struct{}

func (Adapter) Open(_ context.Context, cfg config.TransportConfig) (transport.Session, error) {
	if cfg.Filesystem == nil {
		return nil, fmt.Errorf("filesystem: transport config missing filesystem settings")
	}

	if err := os.MkdirAll(cfg.Filesystem.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("filesystem: creating %s: %w", cfg.Filesystem.Directory, err)
	}

	return &session{directory: cfg.Filesystem.Directory}, nil
}

type session struct {
	directory string
	tainted   bool
}

func (s *session) Send(_ context.Context, stream *model.PackageStream, _ transport.Hints) (transport.Response, error) {
	if s.tainted {
		return transport.Response{}, transport.ErrSessionTainted
	}

	path := filepath.Join(s.directory, stream.Name)

	f, err := os.Create(path)
	if err != nil {
		s.tainted = true
		return transport.Response{}, fmt.Errorf("filesystem: creating %s: %w", path, err)
	}

	rc, err := stream.Open()
	if err != nil {
		_ = f.Close()
		s.tainted = true
		return transport.Response{}, fmt.Errorf("filesystem: opening package stream: %w", err)
	}

	_, copyErr := io.Copy(f, rc)
	closeReadErr := rc.Close()
	closeWriteErr := f.Close()

	if copyErr != nil || closeReadErr != nil || closeWriteErr != nil {
		s.tainted = true
		return transport.Response{}, fmt.Errorf("filesystem: writing %s: copy=%v read-close=%v write-close=%v", path, copyErr, closeReadErr, closeWriteErr)
	}

	return transport.Response{Accepted: true, AccessURL: "file://" + path}, nil
}

func (s *session) Close() error {
	if s.tainted {
		return transport.ErrSessionTainted
	}

	return nil
}
