package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/formbricks/embedding-gateway/internal/api/handlers"
	"github.com/formbricks/embedding-gateway/internal/api/middleware"
	"github.com/formbricks/embedding-gateway/internal/config"
	"github.com/formbricks/embedding-gateway/internal/observability"
	"github.com/formbricks/embedding-gateway/internal/openai"
	"github.com/formbricks/embedding-gateway/internal/repository"
	"github.com/formbricks/embedding-gateway/internal/service"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	server         *http.Server
	meterProvider  observability.MeterProviderShutdown
	tracerProvider *sdktrace.TracerProvider
}

// setupMetrics creates the meter provider, /metrics handler and gateway metrics when enabled.
func setupMetrics(ctx context.Context, cfg *config.Config) (observability.MeterProviderShutdown, http.Handler, observability.GatewayMetrics, error) {
	if !cfg.MetricsEnabled {
		slog.Warn("metrics not enabled (METRICS_ENABLED=false)")

		return nil, nil, nil, nil
	}

	provider, handler, metrics, err := observability.NewMeterProvider(ctx, observability.MeterProviderConfig{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create meter provider: %w", err)
	}

	if mp, ok := provider.(metric.MeterProvider); ok {
		otel.SetMeterProvider(mp)
	}

	return provider, handler, metrics, nil
}

// NewApp builds and wires all components. It does not start the HTTP server;
// call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (*App, error) {
	meterProvider, metricsHandler, metrics, err := setupMetrics(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tracerProvider, err := observability.NewTracerProvider(ctx, cfg.OtelTracesExporter)
	if err != nil {
		if meterProvider != nil {
			if err2 := meterProvider.Shutdown(context.Background()); err2 != nil {
				slog.Error("shutdown meter provider after tracer provider error", "error", err2)
			}
		}

		return nil, fmt.Errorf("create tracer provider: %w", err)
	}

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	} else {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unsupported)")
	}

	requestLogsRepo := repository.NewRequestLogsRepository(db)
	errorLogsRepo := repository.NewErrorLogsRepository(db)

	embeddingClient := openai.NewClient(cfg.OpenAIBaseURL, openai.WithTimeout(cfg.OpenAITimeout))
	slog.Info("Embedding provider configured", "base_url", embeddingClient.BaseURL())

	embeddingService := service.NewEmbeddingService(embeddingClient, requestLogsRepo, errorLogsRepo, metrics)
	logsService := service.NewLogsService(requestLogsRepo, errorLogsRepo)

	server := newHTTPServer(
		cfg,
		handlers.NewHealthHandler(db),
		handlers.NewEmbeddingsHandler(embeddingService),
		handlers.NewLogsHandler(logsService),
		metricsHandler,
		metrics,
	)

	return &App{
		cfg:            cfg,
		db:             db,
		server:         server,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
	}, nil
}

// newHTTPServer builds the HTTP server and muxes.
// /health, /metrics and /v1/embeddings are public (the embeddings caller authenticates against the provider);
// /v1/logs/ requires the admin API key.
// Handler chain: RequestID -> Metrics -> otelhttp(Logging(MaxBody(mux))).
func newHTTPServer(
	cfg *config.Config,
	health *handlers.HealthHandler,
	embeddings *handlers.EmbeddingsHandler,
	logs *handlers.LogsHandler,
	metricsHandler http.Handler,
	metrics observability.GatewayMetrics,
) *http.Server {
	admin := http.NewServeMux()
	admin.HandleFunc("GET /v1/logs/requests", logs.ListRequests)
	admin.HandleFunc("GET /v1/logs/errors", logs.ListErrors)
	admin.HandleFunc("GET /v1/logs/errors/{id}", logs.GetError)
	admin.HandleFunc("DELETE /v1/logs/errors", logs.DeleteErrors)
	admin.HandleFunc("GET /v1/logs/stats", logs.Stats)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Check)
	mux.HandleFunc("GET /health/ready", health.Ready)
	mux.HandleFunc("POST /v1/embeddings", embeddings.Create)
	mux.Handle("/v1/logs/", middleware.Auth(cfg.APIKey)(admin))

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	var bodyTooLarge middleware.RequestBodyTooLargeRecorder
	if metrics != nil {
		bodyTooLarge = metrics
	}

	otelOpts := []otelhttp.Option{
		// Skip tracing for probes and scrapes to reduce noise.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/health/ready" && r.URL.Path != "/metrics"
		}),
	}

	// Logging runs inside otelhttp so access logs carry trace_id/span_id.
	var handler http.Handler = middleware.MaxBody(cfg.MaxRequestBodyBytes, bodyTooLarge)(mux)
	handler = middleware.Logging(slog.Default())(handler)
	handler = otelhttp.NewHandler(handler, "embedding-gateway", otelOpts...)
	handler = middleware.Metrics(metrics)(handler)
	handler = middleware.RequestID(handler)

	const (
		readTimeout = 15 * time.Second
		idleTimeout = 60 * time.Second
	)

	return &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: readTimeout,
		// The provider call is bounded by OPENAI_TIMEOUT; leave room to write the logs and the response.
		WriteTimeout: cfg.OpenAITimeout + readTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server, then blocks until ctx is cancelled (e.g. signal) or the server fails.
// Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr <- fmt.Errorf("server: %w", err)
		}
	}()

	select {
	case err := <-runErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter observability.MeterProviderShutdown) error {
	var first error

	if tracer != nil {
		if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
			first = err
		}
	}

	if meter != nil {
		if err := meter.Shutdown(ctx); err != nil {
			if first == nil {
				first = fmt.Errorf("meter provider shutdown: %w", err)
			} else {
				slog.Error("shutdown meter provider", "error", err)
			}
		}
	}

	return first
}

// Shutdown stops the server, waiting for in-flight embedding calls (and their log writes), then
// flushes observability. Call after Run returns.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
