package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/peto/internal/app"
)

// runHeal executes the self-heal step over the configured attempt's log
// and prints the resulting run state as JSON. Never launches a browser.
func runHeal() {
	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := application.RunHeal(ctx, config.Swarm.Attempt)
	if err != nil {
		logger.Fatal().Err(err).Int("attempt", config.Swarm.Attempt).Msg("Self-heal step failed")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to render run state")
	}
	fmt.Println(string(data))
}
