package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/aepbridge/internal/simulator"
)

// FixtureSummary describes a valid fixture.
type FixtureSummary struct {
	Path     string `json:"path"`
	Valid    bool   `json:"valid"`
	POIs     int    `json:"pois"`
	Failures int    `json:"failures"`
	Versions int    `json:"versions"`
}

// NewFixtureCommand creates the fixture command group.
func NewFixtureCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Work with simulator fixtures",
	}
	cmd.AddCommand(newFixtureValidateCommand(rootOpts))
	return cmd
}

func newFixtureValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a fixture loads into the simulator",
		Long: `Parse a .cue, .yaml or .json fixture and seed a simulator from it.

Nested objects (propositions, points of interest, identity maps) are
decoded the same way the bridge decodes them, so a fixture that validates
here will not fail at call time.

Examples:
  aepbridge fixture validate ./app.cue
  aepbridge fixture validate ./app.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFixtureValidate(rootOpts, args[0], cmd)
		},
	}
}

func runFixtureValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("fixture not found: %s", path))
	}

	fixture, err := simulator.LoadFixture(path)
	if err != nil {
		return formatter.Fail(ErrCodeFixture, "invalid fixture", err, nil)
	}
	formatter.VerboseLog("Parsed %s", path)

	if _, err := simulator.New(fixture, simulator.WithLogger(slog.New(slog.DiscardHandler))); err != nil {
		return formatter.Fail(ErrCodeFixture, "invalid fixture", err, nil)
	}

	summary := FixtureSummary{
		Path:     path,
		Valid:    true,
		POIs:     len(fixture.POIs),
		Failures: len(fixture.Failures),
		Versions: len(fixture.Versions),
	}
	if opts.Format == "json" {
		return formatter.Success(summary)
	}
	return formatter.Success(fmt.Sprintf("✓ %s is valid (%d POIs, %d failures, %d versions)",
		path, summary.POIs, summary.Failures, summary.Versions))
}
