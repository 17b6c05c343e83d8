package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/aepbridge/internal/transport"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	SessionOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the bridge over HTTP and WebSocket",
		Long: `Serve the bridge over HTTP until interrupted.

Routes:
  GET  /methods                  sorted Module.method list
  GET  /versions                 extension version per module
  POST /call/{module}/{method}   JSON array of arguments in, result out
  GET  /events                   WebSocket stream of emitted events
  POST /messages/{id}/present    trigger an in-app message

Examples:
  aepbridge serve --addr 127.0.0.1:8080
  aepbridge serve --fixture ./app.cue --db ./calls.db --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from AEPBRIDGE_LISTEN_ADDR)")
	opts.addFlags(cmd)

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, opts.SessionOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()
	slog.SetDefault(s.logger)

	addr := s.cfg.ListenAddr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := transport.New(s.bridge,
		transport.WithLogger(s.logger),
		transport.WithPresenter(s.sim),
	)
	ready := func(a net.Addr) {
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", a)
		fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	}
	if err := srv.ListenAndServe(ctx, addr, ready); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
