package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rawvec/cmd/vecctl/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "vecctl:", err)
		os.Exit(1)
	}
}
