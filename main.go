// main.go
package main

import (
	"context"
	"log"

	"travel-booking/cmd"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/gateway"
	"travel-booking/internal/usecase"
	"travel-booking/internal/wire"
	"travel-booking/internal/worker"
	"travel-booking/pkg/database"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// External collaborators. The sandbox implementations stand in until the
	// real gateway and provider adapters are configured per environment.
	collab := sandboxCollaborators()

	// Wire all dependencies
	app := wire.Wiring(repos, collab, config, logger)

	// Background worker: reconciliation, schedule sync, expiry, abandonment
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.New(repos, app.Service, config, logger).Start(ctx)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}

func sandboxCollaborators() usecase.Collaborators {
	providers := gateway.NewProviderRegistry()
	for _, id := range []string{"flights", "hotels", "cars", "experiences"} {
		providers.Register(id, &gateway.ProviderAdapterMock{})
	}

	return usecase.Collaborators{
		Catalog:   &gateway.CatalogMock{},
		Payment:   &gateway.PaymentGatewayMock{},
		Providers: providers,
		Notifier:  &gateway.NotificationSenderMock{},
	}
}
