package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mixdispatch/api/internal/di"
	"github.com/mixdispatch/api/internal/handlers"
	"github.com/mixdispatch/api/internal/platform/config"
	pfirestore "github.com/mixdispatch/api/internal/platform/firestore"
	"github.com/mixdispatch/api/internal/platform/jobs"
	"github.com/mixdispatch/api/internal/platform/observability"
	"github.com/mixdispatch/api/internal/platform/secrets"
	platformstorage "github.com/mixdispatch/api/internal/platform/storage"
	"github.com/mixdispatch/api/internal/repositories"
	firestoreRepo "github.com/mixdispatch/api/internal/repositories/firestore"
	"github.com/mixdispatch/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	if cfg.PubSub.EmulatorHost != "" {
		// The Pub/Sub client only honours the emulator through this variable.
		if err := os.Setenv("PUBSUB_EMULATOR_HOST", cfg.PubSub.EmulatorHost); err != nil {
			logger.Fatal("failed to configure pubsub emulator", zap.Error(err))
		}
	}
	pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		logger.Fatal("failed to initialise pubsub client", zap.Error(err))
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}()

	eventsTopic := pubsubClient.Topic(cfg.PubSub.EventsTopic)
	defer eventsTopic.Stop()
	eventPublisher, err := jobs.NewPubSubOrderEventPublisher(eventsTopic)
	if err != nil {
		logger.Fatal("failed to initialise order event publisher", zap.Error(err))
	}

	healthChecks := []repositories.DependencyCheck{
		{
			Name:    "pubsub",
			Timeout: 2 * time.Second,
			Check: func(ctx context.Context) error {
				ok, err := eventsTopic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s does not exist", cfg.PubSub.EventsTopic)
				}
				return nil
			},
		},
	}

	var exportWriter services.ExportObjectWriter
	if cfg.Features.EnableExports && cfg.Storage.ExportsBucket != "" {
		storageClient, err := cloudstorage.NewClient(ctx)
		if err != nil {
			logger.Fatal("failed to initialise storage client", zap.Error(err))
		}
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		}()

		writer, err := platformstorage.NewWriter(storageClient, cfg.Storage.ExportsBucket)
		if err != nil {
			logger.Fatal("failed to initialise export writer", zap.Error(err))
		}
		exportWriter = writer
		healthChecks = append(healthChecks, repositories.DependencyCheck{
			Name:    "storage",
			Timeout: 2 * time.Second,
			Check:   writer.Check,
		})
	}

	registry, err := firestoreRepo.NewRegistry(firestoreProvider, firestoreRepo.WithHealthChecks(healthChecks...))
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, di.ContainerDeps{
		Config:       cfg,
		Registry:     registry,
		Events:       eventPublisher,
		ExportWriter: exportWriter,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("failed to build services", zap.Error(err))
	}

	// Prime the settings snapshot so the first request does not pay the read.
	if _, err := container.Services.Settings.Reload(ctx); err != nil {
		logger.Warn("settings preload failed", zap.Error(err))
	}

	projectID := cfg.Firestore.ProjectID
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthSystemService(container.Services.System),
	)

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(container.Services.Orders).Routes),
		handlers.WithPricingRoutes(handlers.NewPricingHandlers(container.Services.Pricing, container.Services.Settings, cfg.Dispatch.Locale).Routes),
		handlers.WithTransportRoutes(handlers.NewTransportHandlers(container.Services.Transport).Routes),
		handlers.WithCatalogRoutes(handlers.NewCatalogHandlers(container.Services.Catalog).Routes),
		handlers.WithCustomerRoutes(handlers.NewCustomerHandlers(container.Services.Customers).Routes),
		handlers.WithFleetRoutes(handlers.NewFleetHandlers(container.Services.Fleet).Routes),
		handlers.WithSettingsRoutes(handlers.NewSettingsHandlers(container.Services.Settings).Routes),
	}
	if container.Services.PumpOrders != nil {
		opts = append(opts, handlers.WithPumpOrderRoutes(handlers.NewPumpOrderHandlers(container.Services.PumpOrders).Routes))
	}
	if container.Services.Exports != nil {
		opts = append(opts, handlers.WithExportRoutes(handlers.NewExportHandlers(container.Services.Exports).Routes))
	}

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("mixdispatch api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := container.Close(closeCtx); err != nil {
		logger.Warn("container close error", zap.Error(err))
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		return strings.TrimSpace(env[key])
	}

	envLabel := strings.ToLower(lookup("API_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIRESTORE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	credentialsFile := lookup("API_GOOGLE_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

func requiredSecretNames(env map[string]string) []string {
	var required []string
	if env == nil {
		return required
	}
	token := strings.TrimSpace(env["API_MANAGER_NOTIFY_TOKEN"])
	if strings.HasPrefix(token, "sm://") || strings.HasPrefix(token, "secret://") {
		required = append(required, "Manager.NotifyToken")
	}
	return required
}
