package config

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Settings is the process-wide configuration section, independent of any
// one target repository: worker pool sizing, the refresh sweep cadence,
// shutdown budget, and the AMQP connection string consumed by
// internal/mq (spec.md §5 "Concurrency & Resources").
type Settings struct {
	AMQPConnectionString string        `yaml:"amqp-connection-string" validate:"required"`
	AMQPQueueName        string        `yaml:"amqp-queue-name" validate:"required"`
	SelfAgentName        string        `yaml:"self-agent-name" validate:"required"`
	WorkerPoolSize       int           `yaml:"worker-pool-size" validate:"gte=0"`
	RefreshInterval      time.Duration `yaml:"refresh-interval" validate:"required"`
	ShutdownDeadline     time.Duration `yaml:"shutdown-deadline"`
}

// EffectiveWorkerPoolSize returns WorkerPoolSize, falling back to
// runtime.NumCPU() when unset (spec.md §5's "bounded, default equal to
// logical core count").
func (s Settings) EffectiveWorkerPoolSize() int {
	if s.WorkerPoolSize > 0 {
		return s.WorkerPoolSize
	}

	return runtime.NumCPU()
}

// EffectiveShutdownDeadline returns ShutdownDeadline, falling back to 10s.
func (s Settings) EffectiveShutdownDeadline() time.Duration {
	if s.ShutdownDeadline > 0 {
		return s.ShutdownDeadline
	}

	return 10 * time.Second
}

// file is the on-disk shape of the config file (spec.md §6): process-wide
// settings plus a list of per-repository configurations.
type file struct {
	Settings     Settings            `yaml:"settings" validate:"required"`
	Repositories []RepositoryConfig  `yaml:"repositories" validate:"required,dive"`
}

// Registry is the loaded, validated Configuration Registry (C10): an
// immutable, keyed lookup of RepositoryConfig by repository ID, plus the
// process-wide Settings. It is built once at startup by Load and handed
// to every downstream component by reference; nothing in this package
// mutates a Registry after construction.
type Registry struct {
	Settings     Settings
	repositories map[string]RepositoryConfig
}

// Get returns the configuration for repositoryID, or (zero, false) if no
// such repository is registered.
func (r *Registry) Get(repositoryID string) (RepositoryConfig, bool) {
	rc, ok := r.repositories[repositoryID]
	return rc, ok
}

// All returns every configured RepositoryConfig, in no particular order.
func (r *Registry) All() []RepositoryConfig {
	out := make([]RepositoryConfig, 0, len(r.repositories))

	for _, rc := range r.repositories {
		out = append(out, rc)
	}

	return out
}

var validate = validator.New()

// Load reads, decodes, and validates the configuration file at path,
// failing fast (spec.md §C "startup fail-fast validation") on any
// structural or semantic problem rather than deferring the failure to
// first use: an unknown transport.protocol, a missing protocol-specific
// settings block, a duplicate repository-id, or a validator tag
// violation all abort the load.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var f file

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("config: %s failed validation: %w", path, err)
	}

	repos := make(map[string]RepositoryConfig, len(f.Repositories))

	for _, rc := range f.Repositories {
		if err := rc.Validate(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}

		if _, dup := repos[rc.RepositoryID]; dup {
			return nil, fmt.Errorf("config: duplicate repository-id %q", rc.RepositoryID)
		}

		repos[rc.RepositoryID] = rc
	}

	return &Registry{Settings: f.Settings, repositories: repos}, nil
}
