package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/datarhei/settings/app/api"
	"github.com/datarhei/settings/log"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	logger := log.New("Settings").WithOutput(log.NewConsoleWriter(os.Stderr, log.Lwarn, true))

	app, err := api.New(os.Stderr)
	if err != nil {
		logger.Error().WithError(err).Log("Failed to create new API")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer func() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				proc.Signal(os.Interrupt)
			}
		}()

		if err := app.Start(ctx); err != nil {
			logger.Error().WithError(err).Log("Failed to start API")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the app
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	cancel()

	// Stop the app, pending changes are stored
	app.Destroy()
}
