package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// NewVersionsCommand creates the versions command.
func NewVersionsCommand(rootOpts *RootOptions) *cobra.Command {
	var sess SessionOptions

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Print the extension version of every module",
		Long: `Ask every module for its extension version and print them by module name.

Examples:
  aepbridge versions
  aepbridge versions --fixture ./app.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			s, err := openSession(rootOpts, sess, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
			defer cancel()

			versions, err := s.bridge.ExtensionVersions(ctx)
			if err != nil {
				return formatter.Fail(ErrCodeVersions, "failed to read versions", err, nil)
			}
			if rootOpts.Format == "json" {
				return formatter.Success(versions)
			}

			names := make([]string, 0, len(versions))
			for name := range versions {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", name, versions[name])
			}
			return nil
		},
	}
	sess.addFlags(cmd)
	return cmd
}
