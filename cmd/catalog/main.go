package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"MiniCatalog/internal/auth"
	"MiniCatalog/internal/catalog"
	"MiniCatalog/internal/config"
	"MiniCatalog/pkg/kit"
)

func main() {
	configPath := flag.String("config", os.Getenv("CATALOG_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	log := kit.NewLogger(cfg.Service, cfg.Logging.Level)
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, closeStore, err := openStore(cfg.Store, log)
	if err != nil {
		log.Fatal("open store failed", zap.Error(err), zap.String("driver", cfg.Store.Driver))
	}
	defer closeStore()

	s := &catalog.Server{
		Store: catalog.WithMetrics(store, reg),
		Log:   log,
	}
	if cfg.Admin.WritesEnabled {
		s.Auth = &auth.Server{
			Log:      log,
			Admin:    auth.NewAdmin(cfg.Admin.Username, cfg.Admin.PasswordHash),
			JWT:      auth.NewTokenMaker(cfg.Admin.JWTSecret),
			TokenTTL: cfg.Admin.GetTokenTTL(),

			TrustForwardedFor: cfg.HTTP.TrustForwardedFor,
		}
		log.Info("write endpoints enabled", zap.String("admin", cfg.Admin.Username))
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        cfg.Service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
	})

	timeouts := kit.ServerTimeouts{
		ReadHeader: cfg.HTTP.GetReadHeaderTimeout(),
		Shutdown:   cfg.HTTP.GetShutdownTimeout(),
	}
	if err := kit.RunHTTPServer(":"+cfg.HTTP.Port, h, log, timeouts); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStore(cfg config.StoreConfig, log *zap.Logger) (catalog.Store, func(), error) {
	noop := func() {}

	switch cfg.Driver {
	case config.DriverMemory:
		s, err := catalog.NewMemStore(catalog.DemoProducts()...)
		return s, noop, err

	case config.DriverPostgres:
		db, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, noop, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s := catalog.NewPostgresStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return s, func() { _ = db.Close() }, nil

	default:
		log.Info("using catalog file", zap.String("path", cfg.Path))
		return catalog.NewFileStore(cfg.Path, log), noop, nil
	}
}
