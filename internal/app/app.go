package app

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"

	"github.com/sm8ta/webike_rental_microservice/internal/adapter/handler/http"
	"github.com/sm8ta/webike_rental_microservice/internal/adapter/logger"
	"github.com/sm8ta/webike_rental_microservice/internal/adapter/memory"
	"github.com/sm8ta/webike_rental_microservice/internal/adapter/mongo"
	"github.com/sm8ta/webike_rental_microservice/internal/adapter/postgres"
	"github.com/sm8ta/webike_rental_microservice/internal/adapter/prometheus"
	"github.com/sm8ta/webike_rental_microservice/internal/config"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"
	"github.com/sm8ta/webike_rental_microservice/internal/core/services"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator/v10"
)

type App struct {
	Config     *config.Container
	Logger     ports.LoggerPort
	Store      ports.EntityStore
	HTTPRouter *http.Router

	server  *nethttp.Server
	closers []func(context.Context) error
}

func New(ctx context.Context, cfg *config.Container) (*App, error) {
	// Set logger
	loggerAdapter := logger.NewLoggerAdapter(cfg.App.Env, cfg.Log.Level)
	loggerAdapter.Info("Starting the application", map[string]interface{}{
		"app":   cfg.App.Name,
		"env":   cfg.App.Env,
		"store": cfg.Store.Driver,
	})

	a := &App{
		Config: cfg,
		Logger: loggerAdapter,
	}

	// Connect store
	store, err := a.openStore(ctx)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.Store = store

	// Validate
	validate := validator.New()

	// Observability
	metrics := prometheus.NewPrometheusAdapter()

	// Services
	relations := services.NewRelationService(store, loggerAdapter, metrics)
	bikeService := services.NewBikeService(store, relations, loggerAdapter, validate)
	componentService := services.NewComponentService(store, relations, loggerAdapter, validate)
	userService := services.NewUserService(store, relations, loggerAdapter)

	// Token verification against the provider's JWKS
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.Auth.JWKSURL})
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to load JWKS: %w", err)
	}
	tokenService := http.NewJWTTokenService(jwks.Keyfunc, cfg.Auth.Audience, cfg.Auth.Issuer, loggerAdapter)

	// HTTP Handlers
	bikeHandler := http.NewBikeHandler(bikeService, loggerAdapter, metrics, cfg.HTTP.PublicURL)
	componentHandler := http.NewComponentHandler(componentService, loggerAdapter, metrics, cfg.HTTP.PublicURL)
	userHandler := http.NewUserHandler(userService, loggerAdapter, metrics, cfg.HTTP.PublicURL)

	// Init HTTP router
	router, err := http.NewRouter(
		cfg.HTTP,
		tokenService,
		userService,
		loggerAdapter,
		bikeHandler,
		componentHandler,
		userHandler,
	)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}
	a.HTTPRouter = router
	a.server = &nethttp.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.HTTP.URL, cfg.HTTP.Port),
		Handler: router.Engine(),
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (ports.EntityStore, error) {
	cfg := a.Config
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })

		if err := postgres.Migrate(db, cfg.DB.MigrationsDir); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return postgres.NewDocumentRepository(db), nil

	case config.DriverMongo:
		client, err := mongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		a.closers = append(a.closers, client.Disconnect)

		repo, err := mongo.NewDocumentRepository(client, cfg.Mongo.Database, cfg.Mongo.NodeID)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		return repo, nil

	default:
		a.Logger.Warn("Using in-memory store, data is lost on restart", nil)
		return memory.NewStore(), nil
	}
}

// Runs all services
func (a *App) Run() error {
	a.Logger.Info("Starting HTTP server", map[string]interface{}{
		"addr": a.server.Addr,
	})

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		a.Logger.Error("HTTP server error", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// Stops all services
func (a *App) Stop(ctx context.Context) error {
	a.Logger.Info("Shutting down gracefully...", nil)

	if err := a.server.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
	}

	a.close(ctx)

	a.Logger.Info("Application stopped successfully", nil)
	_ = a.Logger.Sync()
	return nil
}

func (a *App) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.Logger.Error("Store close error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	a.closers = nil
}
