package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/peto/internal/app"
	"github.com/ternarybob/peto/internal/models"
)

// runSwarm executes a swarm pass, serving live status alongside it when
// the server is enabled. With a schedule enabled the process instead
// stays up and lets the cron scheduler fire the passes.
func runSwarm() {
	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	if application.Server != nil {
		startServer(application)
	}

	if config.Schedule.Enabled {
		runScheduled(application)
		return
	}

	// One-shot mode: a single pass under a signal-cancellable context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := application.RunSwarm(ctx)
	if err != nil {
		shutdownServer(application)
		logger.Fatal().Err(err).Msg("Swarm run failed")
	}

	printSummary(report)
	shutdownServer(application)
}

// runScheduled blocks while the scheduler fires swarm passes, until an
// interrupt arrives.
func runScheduled(application *app.App) {
	logger.Info().
		Str("cron", config.Schedule.Cron).
		Bool("heal_runs", config.Schedule.HealRun).
		Msg("Unattended mode - waiting on schedule, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received")
	shutdownServer(application)
}

// startServer launches the status server in a goroutine.
func startServer(application *app.App) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Status server goroutine panicked")
			}
		}()

		if err := application.Server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Status server failed to start")
		}
	}()

	// Give the listener a moment to come up
	time.Sleep(100 * time.Millisecond)
}

func shutdownServer(application *app.App) {
	if application.Server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := application.Server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Status server shutdown failed")
	}
}

// printSummary writes the run result table to stdout, separate from the
// log stream.
func printSummary(report *models.RunReport) {
	fmt.Printf("\nAttempt %d: %d complete, %d blocked, %d incomplete (%d targets)\n",
		report.Attempt,
		report.Summary.Complete,
		report.Summary.Blocked,
		report.Summary.Incomplete,
		report.Summary.Total)
	for _, result := range report.Results {
		fmt.Printf("  %-10s  %-28s  %s\n", result.Status, result.Company, result.Detail)
	}
}
