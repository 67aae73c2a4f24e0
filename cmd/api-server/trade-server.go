package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrotrade/db"
	"agrotrade/db/migrations"
	"agrotrade/internal/ai"
	"agrotrade/internal/config"
	"agrotrade/internal/directory"
	"agrotrade/internal/handlers"
	"agrotrade/internal/logger"
	"agrotrade/internal/matching"
	"agrotrade/internal/metrics"
	"agrotrade/internal/pipeline"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// backend - хранилище, общее для конвейера, справочника и сидирования
type backend interface {
	pipeline.StorageInterface
	directory.Source
	directory.Seeder
	Ping(ctx context.Context) error
}

func main() {
	root := &cobra.Command{
		Use:           "trade-server",
		Short:         "Agricultural RFQ matching and order fulfillment API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
	root.RunE = serve.RunE
	root.AddCommand(serve, newMigrateCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "trade-server",
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	store, closeStore, err := openBackend(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("storage ping: %w", err)
	}

	if cfg.SupplierSeedFile != "" {
		suppliers, err := directory.LoadFile(cfg.SupplierSeedFile)
		if err != nil {
			return err
		}
		if err := directory.Seed(ctx, store, suppliers); err != nil {
			return err
		}
		log.Info("suppliers seeded", zap.Int("count", len(suppliers)), zap.String("file", cfg.SupplierSeedFile))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, cfg.MetricsPrefix)

	explainer := ai.NewExplainer(ai.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel))
	scorer := matching.NewScorer(explainer,
		matching.WithExplainTimeout(cfg.ExplainTimeout),
		matching.WithLogger(log.Named("matching")),
		matching.WithMetrics(m),
	)
	pl := pipeline.New(store,
		pipeline.WithAdmins(cfg.AdminActorIDs...),
		pipeline.WithLogger(log.Named("pipeline")),
		pipeline.WithMetrics(m),
	)
	h := handlers.NewHandler(pl, directory.New(store), scorer)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	r.Route("/api", h.Routes)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("addr", cfg.ServerAddress), zap.String("storage", cfg.StorageDriver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openBackend(cfg *config.Config, log *zap.Logger) (backend, func(), error) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return db.NewMemoryStorage(), func() {}, nil
	}

	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot connect to DB: %w", err)
	}
	if err := migrations.Run(dbConn.DB); err != nil {
		dbConn.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return db.NewStorage(dbConn), func() { dbConn.Close() }, nil
}
