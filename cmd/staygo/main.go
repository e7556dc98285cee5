package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/kirinyoku/staygo/docs"
	"github.com/kirinyoku/staygo/internal/app"
	"github.com/kirinyoku/staygo/internal/config"
	"github.com/kirinyoku/staygo/internal/logging"
)

// @title StayGo API
// @version 1.0
// @description Inventory and booking service for dated, capacity-limited resources.
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create application")
		return
	}

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("application finished with error")
	}
}
