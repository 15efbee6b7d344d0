package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/AegisSDN/pkg/aegissdn"
)

func main() {
	flow, err := aegissdn.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(batch []aegissdn.Block) error {
		for _, b := range batch {
			if b.Index == 0 {
				continue
			}
			var rec aegissdn.Record
			if err := json.Unmarshal([]byte(b.Data), &rec); err != nil {
				return err
			}
			fmt.Printf("block=%d %s %s -> %s:%d size=%dB hash=%s\n",
				b.Index, rec.Protocol, rec.SrcIP, rec.DstIP, rec.DstPort, rec.PacketSizeBytes, b.Hash[:12])
		}
		return nil
	}

	if err := flow.Run(ctx, aegissdn.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
