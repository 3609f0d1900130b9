// Command validate audits the facility catalog and the document link sheet for
// data problems that hide facilities or leave documents unclassified: blank and
// duplicate identifiers, link rows that match no facility, and document dates
// that are missing or cannot be parsed.
//
// Usage:
//
//	go run ./cmd/validate
//	go run ./cmd/validate --catalog-file catalog.json --links-file links.csv --now 2024-02-15
//	go run ./cmd/validate --json > audit.json
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errValidationFailed) {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		}
		os.Exit(1)
	}
}
