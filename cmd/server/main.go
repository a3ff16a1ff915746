package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/liftmeet-backend/internal/auth"
	"github.com/DoyleJ11/liftmeet-backend/internal/config"
	"github.com/DoyleJ11/liftmeet-backend/internal/httpapi"
	"github.com/DoyleJ11/liftmeet-backend/internal/hub"
	"github.com/DoyleJ11/liftmeet-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := newLogger(cfg.LogDev)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStore(cfg config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, sessions are kept in memory only")
		return store.NewMemoryStore(), nil
	}
	db, err := store.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db); err != nil {
		return nil, err
	}
	return store.NewGormStore(db), nil
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	writer := store.NewWriter(st, log)

	guard := auth.NewOverrideGuard(cfg.OverridePINHash)
	if !guard.Enabled() {
		log.Warn("OVERRIDE_PIN_HASH not set, jury overrides are disabled")
	}

	// The hub outlives ctx so sessions stop only after HTTP has drained.
	h := hub.NewHub(context.Background(), hub.Options{
		Logger:       log,
		Store:        st,
		Sink:         writer,
		TickInterval: cfg.TimerTick,
	})

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, httpapi.Options{
		Logger:       log,
		Guard:        guard,
		ClientBuffer: cfg.ClientBuffer,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}

	writerCtx, stopWriter := context.WithCancel(context.Background())
	defer stopWriter()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writer.Run(writerCtx)
	})
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if herr := h.Shutdown(shutdownCtx); herr != nil {
			log.Warn("hub shutdown", zap.Error(herr))
		}
		// sessions are stopped, so the final flush sees every committed state
		stopWriter()
		return err
	})
	return g.Wait()
}
