package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghalamif/AegisSDN/pkg/aegissdn"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a config file without starting the controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := aegissdn.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config %s looks good (mode=%s, source=%s, workers=%d)\n",
				cfgPath, cfg.Controller.Mode, cfg.Source.Kind, cfg.Policy.Workers)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "./data/config.yaml", "Path to configuration file to validate")
	return cmd
}
