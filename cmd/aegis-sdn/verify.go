package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghalamif/AegisSDN/internal/adapters/snapshot"
	"github.com/ghalamif/AegisSDN/internal/errors"
	"github.com/ghalamif/AegisSDN/internal/ledger"
)

func newVerifyCmd(root *rootOptions) *cobra.Command {
	var chainPath, pubPath string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a ledger snapshot offline against a public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := root.logger()
			defer log.Sync()

			pub, err := ledger.LoadPublicKey(pubPath)
			if err != nil {
				return err
			}
			chain, err := snapshot.ReadChain(chainPath)
			if err != nil {
				return err
			}
			if err := ledger.VerifyChain(chain, pub); err != nil {
				log.Error("ledger verification failed",
					zap.String("chain", chainPath),
					zap.Any("details", errors.GetAttributes(err)),
					zap.Error(err),
				)
				return err
			}
			tail := chain[len(chain)-1]
			fmt.Fprintf(cmd.OutOrStdout(), "ledger %s is valid: %s blocks, tail %s at %s\n",
				chainPath, humanize.Comma(int64(len(chain))), tail.Hash, tail.Timestamp)
			return nil
		},
	}
	cmd.Flags().StringVar(&chainPath, "chain", "/tmp/blockchain.json", "Ledger snapshot to verify")
	cmd.Flags().StringVar(&pubPath, "pubkey", "./data/ledger_pub.pem", "P-256 public key PEM")
	return cmd
}
