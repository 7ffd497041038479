package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/gamewire/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gamewire",
		Short: "Pitaya wire protocol toolkit",
		Long: `gamewire speaks the Pitaya/Pomelo game protocol.

It runs a mock server for client library tests and decodes or
encodes packets by hand:

  • TCP, TLS and WebSocket transports
  • Handshake, heartbeat and kick handling
  • Route dictionary compression
  • zlib/gzip message bodies`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		decodeCmd(),
		encodeCmd(),
		configCmd(),
		versionCmd(),
	)

	return rootCmd
}
