package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/civitasgov/pulseguard"
)

func main() {
	cfg := pulseguard.DefaultConfig()

	sink, results, closeResults := pulseguard.NewChannelResultSink("fanout", 32)
	defer closeResults()

	rt, err := pulseguard.NewAgentRuntime(cfg, pulseguard.WithResultSink(sink))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go fanoutWorker("results", results)
	go submitDemoEvents(rt)

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, results <-chan pulseguard.AnalysisResult) {
	for res := range results {
		fmt.Printf("[%s] request %s scored %.2f (%s) in %s\n",
			name, res.RequestID, res.Score, res.Severity, res.ResponseTime)
	}
}

func submitDemoEvents(rt *pulseguard.AgentRuntime) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		_, err := rt.SubmitEvent(pulseguard.ThreatFeatures{
			Origin:           "198.51.100.23",
			OriginReputation: 0.5,
			RequestRate:      300,
		}, pulseguard.PriorityNormal)
		if err != nil {
			fmt.Printf("submit failed: %v\n", err)
		}
	}
}
