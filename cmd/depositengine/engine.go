// Command depositengine is the composition root and CLI entry point for
// the deposit dispatch engine (spec.md §7's "CLI surface"). It wires the
// Configuration Registry, the assembler and transport registries, the
// (fake, filesystem-backed) source-of-truth repository client, and the
// Dispatcher/Refresher pair behind internal/platform/app.Launcher,
// mirroring the teacher's bootstrap.InitConsumer()/ConsumerService.Run
// composition shape.
package main

import (
	"fmt"

	"github.com/depositcore/engine/internal/assembler"
	"github.com/depositcore/engine/internal/assembler/dspace"
	"github.com/depositcore/engine/internal/assembler/nihms"
	"github.com/depositcore/engine/internal/assembler/simplezip"
	"github.com/depositcore/engine/internal/config"
	"github.com/depositcore/engine/internal/contentopener"
	"github.com/depositcore/engine/internal/deposittask"
	"github.com/depositcore/engine/internal/domain"
	"github.com/depositcore/engine/internal/modelbuilder"
	"github.com/depositcore/engine/internal/platform/logx"
	"github.com/depositcore/engine/internal/repoclient"
	"github.com/depositcore/engine/internal/repoclient/fake"
	"github.com/depositcore/engine/internal/statusresolver"
	"github.com/depositcore/engine/internal/transport"
	"github.com/depositcore/engine/internal/transport/filesystem"
	"github.com/depositcore/engine/internal/transport/ftp"
	"github.com/depositcore/engine/internal/transport/swordv2"
)

// globalFlags are the persistent flags every subcommand reads from.
type globalFlags struct {
	configPath string
	storeDir   string
	envName    string
	logLevel   string
}

// engine bundles every long-lived, composition-root-built dependency a
// subcommand needs. listen additionally wires a dispatch.Dispatcher and
// dispatch.Refresher on top of this.
type engine struct {
	Logger   logx.Logger
	Registry *config.Registry
	Repo     repoclient.Client
	Task     *deposittask.Task
	Resolver *statusresolver.Resolver
}

// buildEngine loads configuration and wires every registry-backed
// component common to all three subcommands.
func buildEngine(f globalFlags) (*engine, error) {
	logger := logx.NewZap(f.envName, f.logLevel)

	reg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	repo, err := fake.New(f.storeDir)
	if err != nil {
		return nil, fmt.Errorf("opening repository store: %w", err)
	}

	opener := &contentopener.Opener{}

	asmRegistry := assembler.NewRegistry()
	asmRegistry.Register("nihms", nihms.New(opener))
	asmRegistry.Register("dspace", dspace.New(opener))
	asmRegistry.Register("simplezip", simplezip.New(opener))

	transportRegistry := transport.NewRegistry()
	transportRegistry.Register(string(domain.ProtocolFTP), ftp.Adapter{})
	transportRegistry.Register(string(domain.ProtocolSWORDv2), &swordv2.Adapter{})
	transportRegistry.Register(string(domain.ProtocolFilesystem), filesystem.Adapter{})

	if err := validateWiring(reg, asmRegistry, transportRegistry); err != nil {
		return nil, err
	}

	task := &deposittask.Task{
		Repo:              repo,
		Registry:          reg,
		ModelBuilder:      &modelbuilder.Builder{Repo: repo},
		AssemblerRegistry: asmRegistry,
		TransportRegistry: transportRegistry,
		Logger:            logger,
	}

	return &engine{
		Logger:   logger,
		Registry: reg,
		Repo:     repo,
		Task:     task,
		Resolver: &statusresolver.Resolver{},
	}, nil
}

// validateWiring fails fast if a configured repository names an
// assembler spec or transport protocol with no registered
// implementation (spec.md §6's "startup fail-fast validation" —
// internal/config only validates a RepositoryConfig's own shape; this
// is the composition root's half, since only it knows what's actually
// registered).
func validateWiring(reg *config.Registry, asmRegistry *assembler.Registry, transportRegistry *transport.Registry) error {
	for _, rc := range reg.All() {
		if _, ok := asmRegistry.Lookup(rc.Assembler.Spec); !ok {
			return fmt.Errorf("repository %q: no assembler registered for spec %q", rc.RepositoryID, rc.Assembler.Spec)
		}

		if _, ok := transportRegistry.Lookup(string(rc.Transport.Protocol)); !ok {
			return fmt.Errorf("repository %q: no transport adapter registered for protocol %q", rc.RepositoryID, rc.Transport.Protocol)
		}
	}

	return nil
}
