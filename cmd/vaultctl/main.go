package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/client/cli"
	"github.com/dmitrijs2005/securecloud/internal/client/config"
)

// cleanupGrace is how long a cancelled transfer gets to remove its partial
// output after an interrupt.
const cleanupGrace = 2 * time.Second

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Run(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// the REPL may be blocked reading stdin
		select {
		case <-done:
		case <-time.After(cleanupGrace):
		}
		os.Exit(130)
	}

}
