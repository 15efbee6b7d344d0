package main

import (
	"context"
	"crypto/ecdsa"
	stderrors "errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghalamif/AegisSDN/internal/adapters/dashboard"
	"github.com/ghalamif/AegisSDN/internal/adapters/observability"
	"github.com/ghalamif/AegisSDN/internal/ledger"
)

func newDashboardCmd(root *rootOptions) *cobra.Command {
	var chainPath, trafficPath, pubPath, addr string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the read-only dashboard API from the controller's snapshot files",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := root.logger()
			defer log.Sync()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			obs := observability.NewPromObs(log, reg)

			var pub *ecdsa.PublicKey
			if pubPath != "" {
				var err error
				if pub, err = ledger.LoadPublicKey(pubPath); err != nil {
					return err
				}
			}

			view := dashboard.NewFileView(chainPath, trafficPath, obs)
			if err := view.Watch(); err != nil {
				return err
			}
			defer view.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           dashboard.NewRouter(dashboard.NewAPI(view, view, pub), reg),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Info("dashboard listening",
				zap.String("addr", addr),
				zap.String("chain", chainPath),
				zap.String("traffic", trafficPath),
			)
			if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&chainPath, "chain", "/tmp/blockchain.json", "Ledger snapshot written by the controller")
	cmd.Flags().StringVar(&trafficPath, "traffic", "/tmp/latest_packets.json", "Traffic log written in monitor mode")
	cmd.Flags().StringVar(&pubPath, "pubkey", "", "P-256 public key PEM enabling /api/verify")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}
