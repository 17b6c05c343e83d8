package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/dyn"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	SessionOptions
	Args string
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <Module.method>",
		Short: "Call one bridge method against the simulator",
		Long: `Call one bridge method against the simulated SDK and print its result.

Arguments are a JSON array in boundary order. Failures print the encoded
error and exit with status 1.

Examples:
  aepbridge call AEPCore.getPrivacyStatus
  aepbridge call AEPCore.trackAction --args '["login",{"plan":"pro"}]'
  aepbridge call AEPIdentity.getExperienceCloudId --fixture ./app.cue --db ./calls.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "[]", "call arguments as a JSON array")
	opts.addFlags(cmd)

	return cmd
}

func runCall(ctx context.Context, opts *CallOptions, op string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, _, ok := bridge.SplitOp(op); !ok {
		return WrapExitError(ExitCommandError, "invalid operation", fmt.Errorf("%q is not Module.method", op))
	}
	args, err := parseArgs(opts.Args)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --args", err)
	}

	s, err := openSession(opts.RootOptions, opts.SessionOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	formatter.VerboseLog("calling %s with %d args", op, len(args))
	result, err := s.bridge.CallOp(ctx, op, args)
	if err != nil {
		var ce *call.Error
		if !errors.As(err, &ce) {
			ce = call.Classify(op, err)
		}
		return formatter.Fail(ErrCodeCallFailed, op+" failed", ce, ce.Encode())
	}
	if result == nil {
		result = dyn.Null{}
	}
	return formatter.Success(result)
}

// parseArgs reads a JSON array of boundary arguments.
func parseArgs(raw string) (dyn.List, error) {
	v, err := dyn.UnmarshalValue([]byte(raw))
	if err != nil {
		return nil, err
	}
	list, ok := v.(dyn.List)
	if !ok {
		return nil, fmt.Errorf("expected a JSON array, got %s", dyn.KindName(v))
	}
	return list, nil
}
