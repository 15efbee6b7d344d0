package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghalamif/AegisSDN/internal/adapters/observability"
)

type rootOptions struct {
	logLevel    string
	logEncoding string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "aegis-sdn",
		Short: "AegisSDN controller CLI",
		Long: `AegisSDN runs an SDN controller decision pipeline: learning switch,
rate limiting, ARP and replay guards, telemetry admission and a signed,
hash-chained audit ledger.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "CLI log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logEncoding, "log-format", "console", "CLI log encoding (console, json)")

	cmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newVerifyCmd(opts),
		newKeygenCmd(opts),
		newStatsCmd(opts),
		newDashboardCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger() *zap.Logger {
	logger, err := observability.NewLogger(o.logLevel, o.logEncoding)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
