// Command snapshot fetches the facility catalog and the document link sheet
// once, reconciles them, and writes the result as JSON.
//
// Usage:
//
//	go run ./cmd/snapshot --status stale --entity SONORA
//	go run ./cmd/snapshot --summary --macro NOROESTE --now 2024-02-15
//	go run ./cmd/snapshot --stats --entity OAXACA --out stats.json
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
