// Command explorer is a read-only Solana account and transaction explorer.
//
// Usage examples:
//
//	explorer account EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
//	explorer mint So11111111111111111111111111111111111111112 -u devnet
//	explorer tx <signature> --format json --save
//	explorer accounts <address> <address> ...
//
// Exit codes: 0 on success, 2 for invalid input, 1 for everything else.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmagro/sol-explorer/internal/env"
	"github.com/dmagro/sol-explorer/internal/explorer"
)

func main() {
	env.Load(".env")

	// Ctrl+C cancels the root context; in-flight RPC calls are abandoned.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}

// reportError prints err with its category and returns the exit code.
func reportError(w io.Writer, err error) int {
	category := explorer.Category(err)
	fmt.Fprintf(w, "Error [%s]: %v\n", category, err)
	if category == explorer.CategoryInvalidInput {
		return 2
	}
	return 1
}
