package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"hrqc/internal/cli"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Ctrl-C stops dispatching new files; finished results are still stored
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return cli.Execute(ctx)
}
