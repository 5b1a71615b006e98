// Command artypectl scores quiz submissions from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/artype/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, os.Stdout, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}
