package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghalamif/AegisSDN/pkg/aegissdn"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the controller using the provided config",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := root.logger()
			defer log.Sync()

			flow, err := aegissdn.Conf(cfgPath)
			if err != nil {
				log.Error("load config", zap.String("path", cfgPath), zap.Error(err))
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("starting controller",
				zap.String("config", cfgPath),
				zap.String("mode", flow.Config().Controller.Mode),
				zap.String("source", flow.Config().Source.Kind),
			)
			if err := flow.Run(ctx); err != nil && err != context.Canceled {
				log.Error("controller exited", zap.Error(err))
				return err
			}
			log.Info("controller stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "./data/config.yaml", "Path to controller configuration file")
	return cmd
}
