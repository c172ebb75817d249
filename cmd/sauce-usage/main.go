package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vnmchuo/sauce-usage/config"
)

func main() {
	if err := run(); err != nil {
		log.WithError(err).Error("sauce-usage failed")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd(cfg, os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
}
