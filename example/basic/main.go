package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/civitasgov/pulseguard"
)

func main() {
	cfg := pulseguard.DefaultConfig()

	rt, err := pulseguard.NewAgentRuntime(cfg)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("agent runtime exited: %v", err)
	}
}
