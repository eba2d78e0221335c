package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/assetlife/server/internal/assetlife/lifecycle"
	"github.com/assetlife/server/internal/assetlife/service"
	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/store/memory"
	"github.com/assetlife/server/internal/assetlife/store/sqlstore"
	"github.com/assetlife/server/internal/config"
	"github.com/assetlife/server/internal/db"
	"github.com/assetlife/server/internal/grpcapi"
	"github.com/assetlife/server/internal/httpapi"
)

// backendStore is satisfied by both the SQL and the in-memory stores.
type backendStore interface {
	store.AssetStore
	store.EventLog
	store.Transactor
	store.MaintenanceStore
	store.DisposalStore
	store.AllocationStore
	store.ProcurementStore
}

type backend struct {
	store backendStore
	ready func(ctx context.Context) error
	close func()
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg, a.log)
		},
	}
}

func openDB(ctx context.Context, cfg config.Config) (*db.Handle, error) {
	dialect := db.SQLite
	if cfg.DBDriver == config.DriverPostgres {
		dialect = db.Postgres
	}
	return db.Open(ctx, db.Config{
		Dialect: dialect,
		Path:    cfg.DBPath,
		URL:     cfg.DatabaseURL,
		Env:     cfg.Env,
	})
}

func openBackend(ctx context.Context, cfg config.Config, log zerolog.Logger) (*backend, error) {
	if cfg.DBDriver == config.DriverMemory {
		if cfg.SeedDev {
			log.Warn().Msg("seed-dev ignored for the memory driver")
		}
		return &backend{store: memory.New(), close: func() {}}, nil
	}

	h, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	workers := 1
	if h.Dialect == db.Postgres {
		workers = cfg.WriteWorkers
	}
	writer := db.NewWorkerPool(h.DB, workers)

	if cfg.SeedDev {
		if err := db.SeedDev(ctx, h, db.SeedDevOptions{Location: "HQ Warehouse"}); err != nil {
			writer.Close()
			_ = h.Close()
			return nil, fmt.Errorf("seed dev: %w", err)
		}
		log.Info().Msg("dev seed applied")
	}

	log.Info().
		Str("driver", string(h.Dialect)).
		Int("write_workers", workers).
		Msg("database ready")

	return &backend{
		store: sqlstore.New(h, writer),
		ready: h.DB.PingContext,
		close: func() {
			writer.Close()
			_ = h.Close()
		},
	}, nil
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	rules, err := lifecycle.LoadRulesFile(cfg.RulesFile)
	if err != nil {
		return err
	}
	validator := lifecycle.NewValidator(rules)

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	engine := lifecycle.NewEngine(lifecycle.Deps{
		Assets:       b.store,
		Events:       b.store,
		Transactor:   b.store,
		Tickets:      b.store,
		Disposals:    b.store,
		Allocations:  b.store,
		Procurements: b.store,
		Validator:    validator,
		Logger:       log,
	})

	if cfg.WatchRules {
		w := lifecycle.NewRulesWatcher(cfg.RulesFile, validator, log)
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	httpSrv := httpapi.NewServer(httpapi.Dependencies{
		Logger:             log,
		Addr:               cfg.HTTPAddr,
		ActorHeader:        cfg.ActorHeader,
		Engine:             engine,
		AssetService:       service.NewAssetService(b.store),
		MaintenanceService: service.NewMaintenanceService(b.store),
		DisposalService:    service.NewDisposalService(b.store, b.store),
		AllocationService:  service.NewAllocationService(b.store, b.store),
		ProcurementService: service.NewProcurementService(b.store, b.store),
		Ready:              b.ready,
	})

	var grpcSrv *grpcapi.Server
	if cfg.GRPCAddr != "" {
		grpcSrv = grpcapi.NewServer(grpcapi.Dependencies{
			Logger: log,
			Addr:   cfg.GRPCAddr,
			Ready:  b.ready,
		})
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.Env).Msg("http listening")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	if grpcSrv != nil {
		go func() {
			if err := grpcSrv.Start(); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("listener failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if grpcSrv != nil {
		if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("grpc shutdown")
		}
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	return runErr
}
