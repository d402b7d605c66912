package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/crime-eda-backend-go/internal/api"
	"github.com/jengzang/crime-eda-backend-go/internal/config"
	"github.com/jengzang/crime-eda-backend-go/internal/database"
	"github.com/jengzang/crime-eda-backend-go/internal/handler"
	"github.com/jengzang/crime-eda-backend-go/internal/ingest"
	"github.com/jengzang/crime-eda-backend-go/internal/logging"
	"github.com/jengzang/crime-eda-backend-go/internal/memo"
	"github.com/jengzang/crime-eda-backend-go/internal/metrics"
	"github.com/jengzang/crime-eda-backend-go/internal/middleware"
	"github.com/jengzang/crime-eda-backend-go/internal/repository"
	"github.com/jengzang/crime-eda-backend-go/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create logger:", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", logging.Err(err))
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(db, logger); err != nil {
		return err
	}

	incidents, err := ingest.NewIncidentSource(cfg.IncidentsFormat, cfg.IncidentsPath)
	if err != nil {
		return err
	}
	areas := &ingest.CSVAreaSource{Path: cfg.AreasPath, Schema: cfg.PolygonSchema()}

	met := metrics.New()
	cache := memo.New(cfg.CacheTTL, met)
	defer cache.Stop()
	datasets := service.NewDatasetService(incidents, areas, repository.NewSnapshotRepository(db), cache, met, logger)
	datasets.KeepSnapshots(cfg.SnapshotKeep)
	aggregates := service.NewAggregateService(datasets, cache)

	// 首次加载失败时服务仍然启动, 可通过 refresh 接口重试
	if _, err := datasets.Refresh(ctx); err != nil {
		logger.Warn("initial dataset load failed", logging.Err(err))
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer limiter.Stop()

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(cfg, api.Handlers{
		Dataset:   handler.NewDatasetHandler(datasets, aggregates),
		Aggregate: handler.NewAggregateHandler(aggregates),
	}, limiter, met, logger)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		// 启动服务器
		logger.Info("server starting", logging.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
