package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/AegisSDN"
)

func main() {
	flow, err := aegissdn.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, batches, closeBatches := aegissdn.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("audit", batches)

	if err := flow.Run(ctx, aegissdn.StreamOutSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []aegissdn.Block) {
	for batch := range batches {
		first, last := batch[0].Index, batch[len(batch)-1].Index
		fmt.Printf("[%s] %d blocks (%d..%d) at %s\n", name, len(batch), first, last, time.Now().Format(time.RFC3339))
	}
}
