// Package app wires the application together: configuration, logging,
// tracing, database, genkit, the renderer sandbox, and the service
// facade the CLI talks to. Dependencies are constructed explicitly and
// passed down; there is no ambient global state.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/atelier/db"
	"github.com/koopa0/atelier/internal/chat"
	"github.com/koopa0/atelier/internal/config"
	"github.com/koopa0/atelier/internal/observability"
	"github.com/koopa0/atelier/internal/render"
	"github.com/koopa0/atelier/internal/render/bridge"
	"github.com/koopa0/atelier/internal/session"
)

// Origin restricts the render bridge to envelopes from this process.
const Origin = "atelier://local"

// App is the application container. Close releases everything New
// acquired, in reverse order.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Genkit  *genkit.Genkit
	Pool    *pgxpool.Pool
	Service *Service

	cancel       context.CancelFunc
	sandboxDone  chan struct{}
	otelShutdown func(context.Context) error
}

// New builds the full application. The passed context bounds startup
// work; background components (the sandbox loop, trace export) run on
// an internal lifecycle context until Close.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	lifecycle, cancel := context.WithCancel(context.Background())

	a := &App{
		Config:      cfg,
		Logger:      logger,
		cancel:      cancel,
		sandboxDone: make(chan struct{}),
	}

	if cfg.OTLP.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.OTLP.Endpoint,
			Environment: cfg.OTLP.Environment,
			ServiceName: cfg.OTLP.ServiceName,
		}, logger)
		if err != nil {
			return nil, a.failStartup(fmt.Errorf("setting up tracing: %w", err))
		}
		a.otelShutdown = shutdown
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, a.failStartup(fmt.Errorf("running migrations: %w", err))
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, a.failStartup(fmt.Errorf("creating connection pool: %w", err))
	}
	a.Pool = pool
	if err := pool.Ping(ctx); err != nil {
		return nil, a.failStartup(fmt.Errorf("pinging database: %w", err))
	}

	a.Genkit = initGenkit(ctx, cfg, logger)

	gen, err := chat.NewGenerator(chat.GeneratorConfig{
		Genkit:      a.Genkit,
		Logger:      logger.With("component", "generator"),
		ModelName:   cfg.FullModelName(),
		Temperature: float64(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, a.failStartup(fmt.Errorf("creating generator: %w", err))
	}

	store := session.NewWithPool(pool, logger.With("component", "session"))

	doc := render.NewDocument()
	renderer := render.NewRenderer("canvas", doc, logger.With("component", "render")).
		WithTimeout(cfg.RenderTimeout())
	host, sandbox := bridge.New(Origin, renderer, logger.With("component", "bridge"))

	a.Service = NewService(ServiceConfig{
		Owner:     cfg.Owner,
		Store:     store,
		Generator: gen,
		Host:      host,
		Document:  doc,
		Logger:    logger.With("component", "service"),
	})
	sandbox.OnOutcome(a.Service.recordOutcome)

	go func() {
		defer close(a.sandboxDone)
		sandbox.Run(lifecycle)
	}()

	return a, nil
}

// initGenkit initializes genkit with the configured provider plugin.
// Ollama needs explicit model registration; the hosted providers
// discover models by name.
func initGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) *genkit.Genkit {
	switch cfg.Provider {
	case config.ProviderOllama:
		plugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(plugin))
		plugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		logger.Info("genkit initialized", "provider", cfg.Provider, "model", cfg.ModelName, "host", cfg.OllamaHost)
		return g

	case config.ProviderOpenAI:
		g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		logger.Info("genkit initialized", "provider", cfg.Provider, "model", cfg.ModelName)
		return g

	default:
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		logger.Info("genkit initialized", "provider", cfg.Provider, "model", cfg.ModelName)
		return g
	}
}

// failStartup releases whatever New acquired before the failure,
// flushing the tracer provider so startup spans are not lost, and
// returns err for the caller to propagate.
func (a *App) failStartup(err error) error {
	if a.Pool != nil {
		a.Pool.Close()
		a.Pool = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutErr := a.otelShutdown(ctx); shutErr != nil {
			a.Logger.Warn("shutting down tracer provider", "error", shutErr)
		}
	}
	a.cancel()
	return err
}

// Close shuts down background work and releases resources.
func (a *App) Close() error {
	a.Logger.Info("shutting down")
	a.cancel()

	select {
	case <-a.sandboxDone:
	case <-time.After(5 * time.Second):
		a.Logger.Warn("sandbox loop did not stop in time")
	}

	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
	}
	return nil
}
