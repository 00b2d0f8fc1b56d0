package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bgricker/suitegate/internal/exitcodes"
	"github.com/bgricker/suitegate/internal/orchestrator"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "suitegate: %v\n", err)
	}
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps a command error onto the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case errors.Is(err, orchestrator.ErrIncomplete), errors.Is(err, context.Canceled):
		return exitcodes.Interrupted
	case orchestrator.IsFailureError(err):
		return exitcodes.TestFailure
	default:
		return exitcodes.RuntimeErr
	}
}
