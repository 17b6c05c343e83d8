package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMethodsCommand creates the methods command.
func NewMethodsCommand(rootOpts *RootOptions) *cobra.Command {
	var sess SessionOptions

	cmd := &cobra.Command{
		Use:   "methods",
		Short: "List every registered Module.method",
		Long: `List every method the bridge exposes, sorted.

Examples:
  aepbridge methods
  aepbridge methods --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, sess, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			methods := s.bridge.Methods()
			if rootOpts.Format == "json" {
				formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Success(methods)
			}
			for _, m := range methods {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
	sess.addFlags(cmd)
	return cmd
}
