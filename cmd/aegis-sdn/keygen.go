package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghalamif/AegisSDN/internal/ledger"
)

func newKeygenCmd(root *rootOptions) *cobra.Command {
	var keyPath, pubPath string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a P-256 ledger signing key and its public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := ledger.GenerateKey()
			if err != nil {
				return err
			}
			if err := ledger.WritePrivateKey(keyPath, key); err != nil {
				return err
			}
			if err := ledger.WritePublicKey(pubPath, &key.PublicKey); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote signing key %s and public key %s\n", keyPath, pubPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyPath, "out", "./data/ledger_key.pem", "Private key output path (never overwritten)")
	cmd.Flags().StringVar(&pubPath, "pub", "./data/ledger_pub.pem", "Public key output path")
	return cmd
}
