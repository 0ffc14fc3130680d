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

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"kardex/backend/internal/branch"
	"kardex/backend/internal/cache"
	"kardex/backend/internal/config"
	"kardex/backend/internal/domain"
	"kardex/backend/internal/httpapi"
	"kardex/backend/internal/service"
	"kardex/backend/internal/store"
	"kardex/backend/internal/store/memory"
	mysqlstore "kardex/backend/internal/store/mysql"
	pgstore "kardex/backend/internal/store/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("failed to read .env")
	}

	cfg := config.Load()
	log := logrus.StandardLogger()
	if err := configureLogger(log, cfg); err != nil {
		log.Fatalf("invalid logging configuration: %v", err)
	}
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}

	dir, err := loadDirectory(cfg)
	if err != nil {
		log.Fatalf("branch directory: %v", err)
	}
	log.WithField("branches", dir.IDs()).Info("branch directory loaded")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 3)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, dir, log)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded(dir)
		log.Info("repository: in-memory (seeded demo ledgers)")
	}

	var ledger store.LedgerReader = repo
	if cfg.LedgerMySQLDSN != "" {
		my, err := mysqlstore.New(ctx, cfg.LedgerMySQLDSN, dir, log)
		if err != nil {
			log.Fatalf("mysql ledger unavailable: %v", err)
		}
		ledger = my
		closers = append(closers, my.Close)
		log.Info("ledger: mysql")
	}

	if err := applySeedPeriod(ctx, repo, cfg); err != nil {
		log.Fatalf("PERIOD_FROM/PERIOD_TO: %v", err)
	}

	var reports cache.ReportCache = cache.NewMemoryReportCache()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unavailable, archiving reports in memory")
		} else {
			reports = redisCache
			closers = append(closers, redisCache.Close)
			log.Info("report archive: redis")
		}
	} else {
		log.Info("report archive: memory")
	}

	svc := service.New(ledger, repo, dir, reports, service.Options{
		ReportTTL:   cfg.ReportTTL(),
		ReadTimeout: cfg.LedgerReadTimeout(),
		Logger:      log,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, log)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.LedgerReadTimeout() + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infof("transfer reconciliation listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.WithError(err).Error("close error")
		}
	}

	log.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}

func configureLogger(log *logrus.Logger, cfg config.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", cfg.LogFormat)
	}
	return nil
}

func loadDirectory(cfg config.Config) (*branch.Directory, error) {
	if cfg.BranchesFile == "" {
		return branch.Default(), nil
	}
	return branch.Load(cfg.BranchesFile)
}

// applySeedPeriod installs PERIOD_FROM/PERIOD_TO as the active reporting
// period when both are set.
func applySeedPeriod(ctx context.Context, periods store.PeriodStore, cfg config.Config) error {
	rng, err := service.ParseDateRange(cfg.PeriodFrom, cfg.PeriodTo)
	if err != nil {
		return err
	}
	if rng == nil {
		return nil
	}
	return periods.SetReportingPeriod(ctx, domain.ReportingPeriod{
		From:      rng.From,
		To:        rng.To,
		UpdatedBy: "config",
		UpdatedAt: time.Now().UTC(),
	})
}
