package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stellarsignals/internal/config"
	cronrunner "stellarsignals/internal/cron"
	"stellarsignals/internal/db"
	"stellarsignals/internal/handler"
	"stellarsignals/internal/logger"
	"stellarsignals/internal/payout"
	"stellarsignals/internal/provider"
	gormrepository "stellarsignals/internal/repository/gorm"
	"stellarsignals/internal/revshare"
	"stellarsignals/internal/tier"
)

func main() {
	cfgPath := os.Getenv("SS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SS_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	directoryHTTP := &http.Client{Timeout: cfg.Directory.Timeout}
	directory := provider.NewClient(directoryHTTP, cfg.Directory.BaseURL)

	catalog := &tier.Catalog{Repo: store, Logger: logger}
	if cfg.RevShare.SeedTiers {
		if err := catalog.SeedDefaults(context.Background()); err != nil {
			logger.Fatal("seed tier catalog failed", zap.Error(err))
		}
	} else if err := catalog.RefreshCache(context.Background()); err != nil {
		logger.Fatal("load tier catalog failed", zap.Error(err))
	}

	ledger := &payout.Ledger{Repo: store, Logger: logger}
	evaluator := &tier.Evaluator{
		Repo:    store,
		Catalog: catalog,
		Ledger:  ledger,
		Metrics: directory,
		Wallets: directory,
		Logger:  logger,
	}
	calculator := &revshare.Calculator{
		Repo:      store,
		Catalog:   catalog,
		Evaluator: evaluator,
		Ledger:    ledger,
		Metrics:   directory,
		Wallets:   directory,
		Logger:    logger,
	}
	orchestrator := &revshare.Orchestrator{
		Repo:    store,
		Calc:    calculator,
		Catalog: catalog,
		Ledger:  ledger,
		Wallets: directory,
		Logger:  logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	tierHandler := &handler.TierHandler{Catalog: catalog, Logger: logger}
	tierHandler.Register(engine)
	evalHandler := &handler.EvaluationHandler{Evaluator: evaluator}
	evalHandler.Register(engine)
	payoutHandler := &handler.PayoutHandler{Repo: store, Ledger: ledger, PendingPageSize: cfg.RevShare.PendingPageSize}
	payoutHandler.Register(engine)
	revshareHandler := &handler.RevShareHandler{Calc: calculator, Batch: orchestrator}
	revshareHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)

		_, err = cronRunner.Add(cfg.Cron.RetentionRound, func(ctx context.Context) {
			year, month := revshare.PreviousPeriod(time.Now())
			result, err := orchestrator.RunRetentionBonusRound(ctx, year, month)
			if err != nil {
				logger.Warn("cron retention round failed", zap.Error(err))
				return
			}
			logger.Info("cron retention round ok",
				zap.Int("success", result.SuccessCount),
				zap.Int("failed", result.FailureCount),
			)
		})
		if err != nil {
			logger.Warn("cron register retention round failed", zap.Error(err))
		}

		_, err = cronRunner.Add(cfg.Cron.EvaluationSweep, func(ctx context.Context) {
			results, err := evaluator.EvaluateAll(ctx)
			if err != nil {
				logger.Warn("cron evaluation sweep failed", zap.Error(err))
				return
			}
			logger.Info("cron evaluation sweep ok", zap.Int("evaluated", len(results)))
		})
		if err != nil {
			logger.Warn("cron register evaluation sweep failed", zap.Error(err))
		}

		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
