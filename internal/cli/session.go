package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/config"
	"github.com/roach88/aepbridge/internal/journal"
	"github.com/roach88/aepbridge/internal/simulator"
)

// SessionOptions are the flags shared by commands that build a bridge.
// Empty values fall back to the AEPBRIDGE_* environment.
type SessionOptions struct {
	Fixture     string
	Database    string
	PackageName string
}

func (o *SessionOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Fixture, "fixture", "", "simulator fixture (.cue, .yaml or .json)")
	cmd.Flags().StringVar(&o.Database, "db", "", "journal every call to this SQLite database")
	cmd.Flags().StringVar(&o.PackageName, "package", "", "app package name for messaging surfaces")
}

// session is a bridge wired to a simulator and, optionally, a journal.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	sim     *simulator.Simulator
	bridge  *bridge.Bridge
	journal *journal.Journal
}

func openSession(root *RootOptions, opts SessionOptions, errOut io.Writer) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Fixture != "" {
		cfg.Fixture = opts.Fixture
	}
	if opts.Database != "" {
		cfg.Journal = opts.Database
	}
	if opts.PackageName != "" {
		cfg.PackageName = opts.PackageName
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}

	level := cfg.SlogLevel()
	if root.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	var fixture *simulator.Fixture
	if cfg.Fixture != "" {
		fixture, err = simulator.LoadFixture(cfg.Fixture)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load fixture", err)
		}
	}
	sim, err := simulator.New(fixture,
		simulator.WithLogger(logger),
		simulator.WithPackageName(cfg.PackageName),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create simulator", err)
	}

	s := &session{cfg: cfg, logger: logger, sim: sim}
	bopts := []bridge.Option{bridge.WithLogger(logger)}
	if cfg.Journal != "" {
		s.journal, err = journal.Open(cfg.Journal)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		bopts = append(bopts, bridge.WithRecorder(s.journal.Recorder()))
	}

	s.bridge = bridge.New(bopts...)
	if err := s.bridge.Register(sim.Modules(s.bridge.Env())...); err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "failed to register modules", err)
	}
	logger.Debug("session open", "modules", len(s.bridge.Modules()), "journal", cfg.Journal)
	return s, nil
}

// Close releases parked calls before closing the journal they record to.
func (s *session) Close() {
	s.bridge.Close()
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn("failed to close journal", "error", err)
		}
	}
}
