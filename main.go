package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/billingflow/internal/config"
	"github.com/nikolayk812/billingflow/internal/email"
	"github.com/nikolayk812/billingflow/internal/payment"
	"github.com/nikolayk812/billingflow/internal/repository"
	"github.com/nikolayk812/billingflow/internal/scheduler"
	"github.com/nikolayk812/billingflow/internal/service"
	"github.com/nikolayk812/billingflow/internal/sink"
	"github.com/nikolayk812/billingflow/internal/transport"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		log.WithError(err).Fatal("run migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("connect to database")
	}
	defer pool.Close()

	renderer, err := email.NewRenderer(cfg.PayPageURL)
	if err != nil {
		log.WithError(err).Fatal("load email templates")
	}

	var emailOpts []email.Option
	if cfg.EmailNoop {
		emailOpts = append(emailOpts, email.WithNoop())
	}

	sender, err := email.NewDispatcher(cfg.PostmarkServerToken, cfg.EmailFrom, renderer, emailOpts...)
	if err != nil {
		log.WithError(err).Fatal("create email dispatcher")
	}

	gateway := payment.NewClient(cfg.MollieAPIKey, cfg.PaymentRedirectURL, cfg.PaymentWebhookURL)
	if !gateway.Configured() {
		log.Warn("payment gateway not configured, payment creation will fail")
	}

	sched := scheduler.New(cfg.Offsets())

	svc, err := service.New(pool, gateway, sender, sched)
	if err != nil {
		log.WithError(err).Fatal("create billing service")
	}

	eventRepo, err := repository.NewEvent(pool)
	if err != nil {
		log.WithError(err).Fatal("create event repository")
	}

	storeSink, err := sink.NewStoreSink(eventRepo)
	if err != nil {
		log.WithError(err).Fatal("create store sink")
	}

	events, err := sink.Choose(sink.NewRemoteSink(cfg.AnalyticsEndpoint, cfg.AnalyticsAPIKey), storeSink)
	if err != nil {
		log.WithError(err).Fatal("choose analytics sink")
	}

	handler, err := transport.NewHandler(svc, events)
	if err != nil {
		log.WithError(err).Fatal("create handler")
	}

	runner, err := scheduler.NewRunner(svc, cfg.SchedulerInterval)
	if err != nil {
		log.WithError(err).Fatal("create reminder runner")
	}
	go runner.Run(ctx)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("server shutdown")
		}
	}()

	log.WithField("addr", cfg.HTTPAddr).Info("listening")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server stopped")
	}
}

func runMigrations(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("iofs.New: %w", err)
	}

	// the migrate pgx/v5 driver registers itself under the pgx5 scheme
	url := strings.Replace(databaseURL, "postgres://", "pgx5://", 1)

	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("migrate.NewWithSourceInstance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("m.Up: %w", err)
	}

	srcErr, dbErr := m.Close()
	if srcErr != nil {
		return fmt.Errorf("m.Close source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("m.Close database: %w", dbErr)
	}

	return nil
}
