package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	equinesync "github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System"
)

func main() {
	flow, err := equinesync.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := flow.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("monitor runtime exited: %v", err)
	}
}
