// Package config implements the Configuration Registry (spec.md C10): a
// typed, keyed map of per-target-repository settings, loaded once at
// startup and treated as immutable for the lifetime of the process (the
// only shared mutable-free state crossing task boundaries per spec.md §5).
package config

import (
	"fmt"

	"github.com/depositcore/engine/internal/domain"
)

// AuthMech discriminates the supported authentication realm shapes. Only
// "basic" is understood today; an unknown mech fails the config load
// loudly rather than being silently ignored (spec.md §9's redesign flag
// replacing discriminator-field polymorphism with a decoded, validated
// union).
type AuthMech string

const (
	AuthMechBasic AuthMech = "basic"
)

// AuthRealm is one configured credential set for a transport.
type AuthRealm struct {
	Mech     AuthMech `yaml:"mech" validate:"required,oneof=basic"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
}

// FTPSettings holds the FTP-protocol-specific hints from spec.md §4.4.
type FTPSettings struct {
	TransferMode   string `yaml:"transfer-mode" validate:"omitempty,oneof=stream block compressed"`
	DataType       string `yaml:"data-type" validate:"omitempty,oneof=ascii binary"`
	UsePassive     bool   `yaml:"use-pasv"`
	BaseDirectory  string `yaml:"base-directory"`
}

// CollectionHint pairs a SWORDv2 collection tag with its deposit URL, in
// declared order. spec.md §9 fixes "first configured hint wins" when a
// submission's tags match more than one configured hint.
type CollectionHint struct {
	Tag string `yaml:"tag" validate:"required"`
	URL string `yaml:"url" validate:"required"`
}

// SWORDv2Settings holds the SWORDv2-protocol-specific hints from spec.md
// §4.4.2.
type SWORDv2Settings struct {
	ServiceDocURL       string            `yaml:"service-doc-url" validate:"required"`
	DefaultCollectionURL string           `yaml:"default-collection-url" validate:"required"`
	OnBehalfOf          string            `yaml:"on-behalf-of"`
	CollectionHints     []CollectionHint  `yaml:"collection-hints"`
}

// FilesystemSettings holds the filesystem-adapter destination directory.
type FilesystemSettings struct {
	Directory string `yaml:"directory" validate:"required"`
}

// TransportConfig is the per-repository transport section of spec.md §6.
type TransportConfig struct {
	Protocol       domain.TransportProtocol `yaml:"protocol" validate:"required,oneof=ftp SWORDv2 filesystem"`
	AuthRealms     []AuthRealm              `yaml:"auth-realms" validate:"dive"`
	ServerFQDN     string                   `yaml:"server-fqdn"`
	ServerPort     int                      `yaml:"server-port"`
	FTP            *FTPSettings             `yaml:"ftp"`
	SWORDv2        *SWORDv2Settings         `yaml:"swordv2"`
	Filesystem     *FilesystemSettings      `yaml:"filesystem"`
}

// PrimaryAuthRealm returns the first configured basic-auth realm, or a
// zero value if none is configured (transport.authmode = none).
func (t TransportConfig) PrimaryAuthRealm() AuthRealm {
	for _, r := range t.AuthRealms {
		if r.Mech == AuthMechBasic {
			return r
		}
	}

	return AuthRealm{}
}

// AssemblerOptions is the per-repository assembler section of spec.md §4.3
// and §6.
type AssemblerOptions struct {
	Spec       string   `yaml:"spec" validate:"required"`
	Archive    string   `yaml:"archive" validate:"required,oneof=tar zip none"`
	Compression string  `yaml:"compression" validate:"required,oneof=gzip zip none"`
	Algorithms []string `yaml:"algorithms" validate:"dive,oneof=MD5 SHA-256 SHA-512"`
	// SpecOptions carries per-spec metadata options (spec.md §4.3's
	// "per-spec metadata options"), opaque to the Configuration Registry
	// itself and interpreted by the named assembler implementation.
	SpecOptions map[string]string `yaml:"options"`
}

// StatusMapping maps a probe's source-specific term identifier to a
// canonical domain.DepositStatus. Keys are matched case-insensitively on
// the mapping's right-hand side per spec.md §4.5; "*" is the wildcard
// default. spec.md §9 fixes "exact beats wildcard" when both match.
type StatusMapping map[string]string

// Resolve maps term to a canonical status, or ("", false) if neither an
// exact nor a wildcard entry applies ("status unknown; try again later").
func (m StatusMapping) Resolve(term string) (domain.DepositStatus, bool) {
	for k, v := range m {
		if equalFold(k, term) {
			return domain.DepositStatus(normalizeStatus(v)), true
		}
	}

	if v, ok := m["*"]; ok {
		return domain.DepositStatus(normalizeStatus(v)), true
	}

	return "", false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}

		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}

		if ca != cb {
			return false
		}
	}

	return true
}

func normalizeStatus(v string) string {
	out := make([]byte, len(v))

	for i := 0; i < len(v); i++ {
		c := v[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}

		out[i] = c
	}

	return string(out)
}

// RepositoryConfig is the complete, typed configuration for one target
// repository (spec.md §6): transport settings, assembler options, and
// status mapping.
type RepositoryConfig struct {
	RepositoryID  string            `yaml:"repository-id" validate:"required"`
	Transport     TransportConfig   `yaml:"transport-config" validate:"required"`
	Assembler     AssemblerOptions  `yaml:"assembler" validate:"required"`
	StatusMapping StatusMapping     `yaml:"status-mapping"`
	// FollowStatusRedirects enables spec.md §4.5's "when enabled by
	// configuration" HEAD-then-redirect-follow-once probe semantics; when
	// false the Status Resolver fetches the status-probe URI directly via
	// GET.
	FollowStatusRedirects bool `yaml:"follow-status-redirects"`
}

// Validate reports a ConfigurationError-shaped message if rc is
// structurally inconsistent beyond what struct tags can express.
func (rc RepositoryConfig) Validate() error {
	switch rc.Transport.Protocol {
	case domain.ProtocolFTP:
		if rc.Transport.FTP == nil {
			return fmt.Errorf("repository %q: protocol ftp requires an ftp settings block", rc.RepositoryID)
		}
	case domain.ProtocolSWORDv2:
		if rc.Transport.SWORDv2 == nil {
			return fmt.Errorf("repository %q: protocol SWORDv2 requires a swordv2 settings block", rc.RepositoryID)
		}
	case domain.ProtocolFilesystem:
		if rc.Transport.Filesystem == nil {
			return fmt.Errorf("repository %q: protocol filesystem requires a filesystem settings block", rc.RepositoryID)
		}
	}

	return nil
}
