package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lingoflow/internal/config"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
	"github.com/felixgeelhaar/lingoflow/internal/sandbox"
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Run a local fake of the lingoflow backend",
	Long: `Sandbox serves the account, plan, subscription and payment endpoints from
memory so the wizards can be tried without a real backend. Point api.base_url
and payment.base_url at the sandbox address.

Payment postal codes 00000 decline and 99999 require extra authentication.

Examples:
  lingoflow sandbox
  lingoflow sandbox --addr 127.0.0.1:9000 --otp 123456`,
	Args: cobra.NoArgs,
	RunE: runSandbox,
}

var (
	sandboxAddr string
	sandboxOTP  string
)

func init() {
	rootCmd.AddCommand(sandboxCmd)

	sandboxCmd.Flags().StringVar(&sandboxAddr, "addr", ":8787", "listen address")
	sandboxCmd.Flags().StringVar(&sandboxOTP, "otp", "", "always issue this one-time code instead of a random one")
}

func runSandbox(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewLoader().Load(cfgFile)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	var opts []sandbox.Option
	if sandboxOTP != "" {
		code := sandboxOTP
		opts = append(opts, sandbox.WithOTPGenerator(func() string { return code }))
	}

	ln, err := net.Listen("tcp", sandboxAddr)
	if err != nil {
		return config.NewUserError(config.ErrCodeValidationFailed, "cannot listen on "+sandboxAddr).
			WithSuggestion("Pick a free port with --addr").
			WithUnderlying(err)
	}
	return serveSandbox(cmd.Context(), ln, sandbox.New(opts...), logger)
}

// serveSandbox serves h on ln until ctx is done.
func serveSandbox(ctx context.Context, ln net.Listener, h http.Handler, logger ports.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ports.ContextWithLogger(context.Background(), logger)
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info(ctx, "sandbox listening", ports.F("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("sandbox server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop sandbox: %w", err)
	}
	logger.Info(context.Background(), "sandbox stopped")
	return nil
}
