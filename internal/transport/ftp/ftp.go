// Package ftp implements the FTP transport.Adapter (spec.md §4.4):
// connect-with-backoff, login, idempotent nested directory creation,
// streamed STOR, and the hard session-taint-on-failure contract (spec.md
// §9) via github.com/jlaffaye/ftp.
package ftp

import (
	"context"
	"fmt"
	"strings"
	"time"

	goftp "github.com/jlaffaye/ftp"

	"github.com/depositcore/engine/internal/config"
	"github.com/depositcore/engine/internal/model"
	"github.com/depositcore/engine/internal/platform/errs"
	"github.com/depositcore/engine/internal/transport"
)

// initialBackoff, backoffFactor and connectDeadline form spec.md §4.4's
// connect-retry schedule: an initial
// 2000ms delay, multiplied by 1.5 on each attempt, bounded by an overall
// 30s deadline.
const (
	initialBackoff = 2000 * time.Millisecond
	backoffFactor  = 1.5
	connectDeadline = 30 * time.Second
)

// Adapter opens FTP Sessions.
type Adapter struct{}

func (Adapter) Open(ctx context.Context, cfg config.TransportConfig) (transport.Session, error) {
	if cfg.FTP == nil {
		return nil, fmt.Errorf("ftp: transport config missing ftp settings")
	}

	if err := validateFTPSettings(*cfg.FTP); err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", cfg.ServerFQDN, cfg.ServerPort)

	conn, err := dialWithBackoff(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("ftp: connecting to %s: %w", addr, err)
	}

	realm := cfg.PrimaryAuthRealm()

	if err := conn.Login(realm.Username, realm.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("ftp: login to %s: %w", addr, err)
	}

	if cfg.FTP.DataType == "ascii" {
		if err := conn.Type(goftp.TransferTypeASCII); err != nil {
			_ = conn.Quit()
			return nil, fmt.Errorf("ftp: setting ASCII transfer type: %w", err)
		}
	} else if err := conn.Type(goftp.TransferTypeBinary); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("ftp: setting binary transfer type: %w", err)
	}

	// Validate the control channel is still responsive after login and the
	// TYPE exchange, and let the client cache whatever system-type/feature
	// probing it does internally on first round-trip, before any directory
	// or STOR command depends on that state (spec.md §4.4's session-open
	// contract).
	if err := conn.NoOp(); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("ftp: validating control channel: %w", err)
	}

	if _, err := conn.CurrentDir(); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("ftp: warming system type: %w", err)
	}

	return &session{conn: conn, baseDirTemplate: cfg.FTP.BaseDirectory}, nil
}

// validateFTPSettings fails fast on FTP settings this session cannot
// honor: github.com/jlaffaye/ftp is a passive-only client (it always
// issues EPSV/PASV for data connections, with no active-mode fallback)
// and exposes no MODE command, so "use-pasv: false" or a non-stream
// transfer-mode can only ever be silently ignored rather than applied.
// Rejecting them here turns a convincing-looking no-op into an explicit
// configuration error instead.
func validateFTPSettings(settings config.FTPSettings) error {
	if !settings.UsePassive {
		return errs.ConfigurationError{Key: "ftp.use-pasv", Message: "active (non-passive) FTP transfers are not supported; set use-pasv: true"}
	}

	if settings.TransferMode != "" && settings.TransferMode != "stream" {
		return errs.ConfigurationError{Key: "ftp.transfer-mode", Message: fmt.Sprintf("transfer mode %q is not supported; only stream is", settings.TransferMode)}
	}

	return nil
}

// dialWithBackoff retries Dial with the connect-backoff schedule until
// connectDeadline elapses.
func dialWithBackoff(ctx context.Context, addr string) (*goftp.ServerConn, error) {
	deadline := time.Now().Add(connectDeadline)
	delay := initialBackoff

	var lastErr error

	for attempt := 0; ; attempt++ {
		conn, err := goftp.Dial(addr, goftp.DialWithContext(ctx), goftp.DialWithTimeout(10*time.Second))
		if err == nil {
			return conn, nil
		}

		lastErr = err

		if time.Now().Add(delay).After(deadline) {
			return nil, fmt.Errorf("ftp: exhausted connect retries: %w", lastErr)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * backoffFactor)
	}
}

type session struct {
	conn            *goftp.ServerConn
	baseDirTemplate string
	tainted         bool
}

func (s *session) Send(ctx context.Context, stream *model.PackageStream, hints transport.Hints) (transport.Response, error) {
	if s.tainted {
		return transport.Response{}, transport.ErrSessionTainted
	}

	startDir, err := s.conn.CurrentDir()
	if err != nil {
		s.tainted = true
		return transport.Response{}, fmt.Errorf("ftp: reading current directory: %w", err)
	}

	defer func() {
		// Best-effort cwd restore on every exit path; failure here does
		// not itself taint an otherwise-successful send.
		_ = s.conn.ChangeDir(startDir)
	}()

	targetDir := expandDateToken(s.baseDirTemplate, hints.Now)

	if err := s.ensureDir(targetDir); err != nil {
		s.tainted = true
		return transport.Response{}, fmt.Errorf("ftp: ensuring directory %s: %w", targetDir, err)
	}

	if err := s.conn.ChangeDir(targetDir); err != nil {
		s.tainted = true
		return transport.Response{}, fmt.Errorf("ftp: entering directory %s: %w", targetDir, err)
	}

	rc, err := stream.Open()
	if err != nil {
		s.tainted = true
		return transport.Response{}, fmt.Errorf("ftp: opening package stream: %w", err)
	}

	defer rc.Close()

	if err := s.conn.Stor(stream.Name, rc); err != nil {
		s.tainted = true

		if abortErr := s.abort(); abortErr != nil {
			return transport.Response{}, fmt.Errorf("ftp: STOR %s failed (%v); ABORT also failed: %w", stream.Name, err, abortErr)
		}

		return transport.Response{}, fmt.Errorf("ftp: STOR %s: %w", stream.Name, err)
	}

	return transport.Response{Accepted: true}, nil
}

// ensureDir creates every path segment of dir that does not already
// exist, idempotently: MakeDir on an already-existing directory is
// tolerated (spec.md §4.4's "idempotent nested mkdir").
func (s *session) ensureDir(dir string) error {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return nil
	}

	startDir, err := s.conn.CurrentDir()
	if err != nil {
		return err
	}

	defer func() { _ = s.conn.ChangeDir(startDir) }()

	for _, segment := range strings.Split(dir, "/") {
		if segment == "" {
			continue
		}

		if err := s.conn.ChangeDir(segment); err == nil {
			continue
		}

		if err := s.conn.MakeDir(segment); err != nil {
			return fmt.Errorf("creating segment %q: %w", segment, err)
		}

		if err := s.conn.ChangeDir(segment); err != nil {
			return fmt.Errorf("entering newly created segment %q: %w", segment, err)
		}
	}

	return nil
}

// abort best-effort cleans up the control connection after a failed
// STOR (spec.md §4.4). jlaffaye/ftp does not expose a raw ABORT verb; a
// NoOp round-trip confirms the control channel is still responsive
// before the session is discarded, since a half-open STOR otherwise
// leaves TYPE/PASV state the next session should not inherit.
func (s *session) abort() error {
	return s.conn.NoOp()
}

// expandDateToken substitutes a single "%s" token in template with now
// formatted as an ISO-8601 UTC date, the only substitution spec.md
// §4.4's base-directory hint supports.
func expandDateToken(template string, now time.Time) string {
	if !strings.Contains(template, "%s") {
		return template
	}

	return strings.Replace(template, "%s", now.UTC().Format("2006-01-02"), 1)
}

func (s *session) Close() error {
	defer func() { s.conn = nil }()

	if s.conn == nil {
		return nil
	}

	err := s.conn.Quit()

	if s.tainted {
		return transport.ErrSessionTainted
	}

	return err
}
