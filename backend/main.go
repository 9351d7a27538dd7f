package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"possync/m/internal/api"
	"possync/m/internal/auth"
	"possync/m/internal/campaign"
	"possync/m/internal/config"
	"possync/m/internal/connector"
	"possync/m/internal/database"
	"possync/m/internal/localstore"
	"possync/m/internal/logger"
	"possync/m/internal/migrations"
	"possync/m/internal/remote"
	"possync/m/internal/seed"
	"possync/m/internal/service"
	"possync/m/internal/stats"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	zlog, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return err
	}
	store := localstore.New(db, log)

	session := auth.NewManager(auth.NewClient(cfg.BackendURL, cfg.BackendAPIKey), db, cfg.PowerSyncURL, log)
	if err := session.Init(ctx); err != nil {
		return err
	}

	var rmt remote.Remote
	if cfg.RemoteDatabaseDSN != "" {
		pg, err := database.ConnectRemote(cfg.RemoteDatabaseDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		rmt = remote.NewPostgres(pg)
		log.Info("uploading through postgres")
	} else {
		rmt = remote.NewRESTClient(cfg.BackendURL, cfg.BackendAPIKey)
		log.Info("uploading through rest api", zap.String("url", cfg.BackendURL))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sync := connector.New(store, rmt, session, log, connector.Options{
		DeferAlertAfter: cfg.SyncDeferAlertAfter,
		Interval:        cfg.SyncInterval,
		Registerer:      reg,
	})
	store.OnChange(sync.Trigger)
	session.OnSessionStarted(func(auth.Session) { sync.Trigger() })

	svc := service.New(store, log)
	if cfg.CatalogCSV != "" {
		n, err := seed.LoadCatalog(ctx, svc, cfg.CatalogCSV, log)
		if err != nil {
			log.Warn("catalog import failed", zap.String("path", cfg.CatalogCSV), zap.Error(err))
		} else {
			log.Info("catalog imported", zap.Int("products", n))
		}
	}

	handler := api.New(api.Deps{
		Services:  svc,
		Stats:     stats.New(store, time.Now),
		Campaigns: campaign.NewService(campaign.NewHTTPSender(cfg.NotifyURL), svc.Customers, log),
		Session:   session,
		Verifier:  auth.NewVerifier(cfg.Secret),
		Sync:      sync,
		Registry:  reg,
		Log:       log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sync.Run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("POS server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	<-done
	return nil
}
