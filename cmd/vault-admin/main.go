package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/smartcontractkit/vault-admin/engine/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewCommand(cli.Config{}).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
