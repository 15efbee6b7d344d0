package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ports"
)

var statsMetrics = []string{
	ports.MetricFrames,
	ports.MetricLedgerBlocks,
	ports.MetricQueueLength,
	ports.MetricQueueDropped,
	ports.MetricJournalSize,
	ports.MetricMirrorBlocks,
	ports.MetricMirrorFailures,
	ports.MetricSwitchCommandErrors,
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	var (
		addr     string
		interval time.Duration
		watch    bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Poll the controller's metrics and ledger endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := root.logger()
			defer log.Sync()

			client := &http.Client{Timeout: 5 * time.Second}
			base := strings.TrimRight(addr, "/")
			if !watch {
				return printSnapshot(cmd.OutOrStdout(), client, base)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Streaming stats from %s (Ctrl+C to stop)\n", base)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := printSnapshot(cmd.OutOrStdout(), client, base); err != nil {
						log.Warn("stats poll failed", zap.String("addr", base), zap.Error(err))
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:9100", "Controller metrics and dashboard address")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Refresh interval with --watch")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep polling until interrupted")
	return cmd
}

func printSnapshot(w io.Writer, client *http.Client, base string) error {
	values, err := scrapeMetrics(client, base+"/metrics", statsMetrics)
	if err != nil {
		return err
	}
	tail, blocks, err := fetchTail(client, base+"/api/chain")
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "[%s] frames=%s blocks=%s journal=%s queue=%s dropped=%s mirrored=%s mirror_failures=%s switch_errors=%s\n",
		time.Now().Format(time.RFC3339),
		humanize.Comma(int64(values[ports.MetricFrames])),
		humanize.Comma(int64(blocks)),
		humanize.Bytes(uint64(values[ports.MetricJournalSize])),
		humanize.Comma(int64(values[ports.MetricQueueLength])),
		humanize.Comma(int64(values[ports.MetricQueueDropped])),
		humanize.Comma(int64(values[ports.MetricMirrorBlocks])),
		humanize.Comma(int64(values[ports.MetricMirrorFailures])),
		humanize.Comma(int64(values[ports.MetricSwitchCommandErrors])),
	)
	if tail != nil {
		if ts, err := time.ParseInLocation(domain.TimestampLayout, tail.Timestamp, time.Local); err == nil {
			fmt.Fprintf(w, "  tail block %d %s (%s)\n", tail.Index, tail.Hash, humanize.Time(ts))
		}
	}
	return nil
}

// scrapeMetrics reads unlabelled sample values for names from a text
// exposition endpoint.
func scrapeMetrics(client *http.Client, url string, names []string) (map[string]float64, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", url, resp.Status)
	}

	values := make(map[string]float64, len(names))
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, name := range names {
			if strings.HasPrefix(line, name+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, name+" %g", &value); err == nil {
					values[name] = value
				}
			}
		}
	}
	return values, scanner.Err()
}

func fetchTail(client *http.Client, url string) (*domain.Block, int, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("%s: unexpected status %s", url, resp.Status)
	}
	var chain []*domain.Block
	if err := json.NewDecoder(resp.Body).Decode(&chain); err != nil {
		return nil, 0, err
	}
	if len(chain) == 0 {
		return nil, 0, nil
	}
	return chain[len(chain)-1], len(chain), nil
}
