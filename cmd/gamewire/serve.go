package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/gamewire/internal/config"
	"github.com/vango-dev/gamewire/internal/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		tcpAddr    string
		tlsAddr    string
		wsAddr     string
		adminAddr  string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mock Pitaya server",
		Long: `Run a mock Pitaya server for client library tests.

Requests are answered with {"isCompressed": ..., "route": ...}.
The route connector.geterror answers with an error response.

Configuration is read from --config, or ~/.gamewire/gamewire.json
when it exists. Flags override the file.

Examples:
  gamewire serve
  gamewire serve --tcp 127.0.0.1:4300 --ws "" --log-level debug
  gamewire serve --config ./gamewire.json --log-format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("tcp") {
				cfg.TCP = tcpAddr
			}
			if flags.Changed("tls") {
				cfg.TLS = tlsAddr
			}
			if flags.Changed("ws") {
				cfg.WS = wsAddr
			}
			if flags.Changed("admin") {
				cfg.Admin = adminAddr
			}

			logger, err := newLogger(cmd.ErrOrStderr(), logLevel, logFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			srv, err := server.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.gamewire/gamewire.json)")
	cmd.Flags().StringVar(&tcpAddr, "tcp", "", "TCP listen address, empty disables")
	cmd.Flags().StringVar(&tlsAddr, "tls", "", "TLS listen address, empty disables")
	cmd.Flags().StringVar(&wsAddr, "ws", "", "WebSocket listen address, empty disables")
	cmd.Flags().StringVar(&adminAddr, "admin", "", "Admin listen address, empty disables")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "Log format: text, json")

	return cmd
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q", format)
	}
}
