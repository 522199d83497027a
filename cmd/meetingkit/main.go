package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

import (
	"github.com/nanjiek/meetingkit/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "meetingkit:", err)
		stop()
		os.Exit(1)
	}
}
