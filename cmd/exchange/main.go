package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/quickfixgo/quickfix"
	qfxfile "github.com/quickfixgo/quickfix/store/file"
	"go.uber.org/zap"

	"github.com/fixsim/exchange/internal/config"
	"github.com/fixsim/exchange/internal/exchange"
	"github.com/fixsim/exchange/internal/feed"
	"github.com/fixsim/exchange/internal/fixgw"
	"github.com/fixsim/exchange/internal/journal"
	"github.com/fixsim/exchange/internal/logging"
	"github.com/fixsim/exchange/internal/marketdata"
	"github.com/fixsim/exchange/internal/observability"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig("exchange")

	// Initialize logger
	logger, err := logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting exchange service",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("fix_settings", cfg.FIXSettingsPath),
		zap.String("instruments", cfg.InstrumentsPath),
		zap.String("data_dir", cfg.DataDir),
		zap.Bool("feed_enabled", cfg.FeedEnabled),
		zap.Bool("require_price", cfg.RequirePrice),
	)

	// Create data directory
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Fatal("failed to create data directory", zap.Error(err))
	}

	// Open execution journal
	dbPath := filepath.Join(cfg.DataDir, "fills.db")
	jrnl, err := journal.Open(dbPath)
	if err != nil {
		logger.Fatal("failed to open execution journal", zap.Error(err))
	}
	defer jrnl.Close()

	logger.Info("execution journal opened", zap.String("path", dbPath))

	// Load instrument reference data
	md := marketdata.NewManager(logger)
	if err := md.LoadFile(cfg.InstrumentsPath); err != nil {
		logger.Warn("failed to load instrument reference data, starting empty",
			zap.String("path", cfg.InstrumentsPath),
			zap.Error(err))
	}

	// Create health checker
	healthChecker := observability.NewHealthChecker(logger)

	// Create protocol gateway
	gw := fixgw.NewGateway(logger)
	gw.OnSessionChange = func(sessionID quickfix.SessionID, loggedOn bool) {
		healthChecker.SessionChanged(loggedOn)
	}

	// Create matching service
	books := exchange.NewRegistry(logger)
	svc := exchange.NewService(books, gw, cfg.RequirePrice, logger)
	svc.AddFillObserver(&marketDataObserver{md: md})
	svc.AddFillObserver(&journalObserver{journal: jrnl, logger: logger})

	// Create Kafka producer for the trade feed
	if cfg.FeedEnabled {
		brokers := strings.Split(cfg.KafkaBrokers, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		producer, err := feed.NewProducer(brokers, logger)
		if err != nil {
			logger.Fatal("failed to create kafka producer", zap.Error(err))
		}
		defer producer.Close()

		svc.AddFillObserver(&feedObserver{producer: producer, logger: logger})
	}

	// Start matching service
	svcCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svcErrCh := make(chan error, 1)
	go func() {
		if err := svc.Run(svcCtx, gw.NewOrderSingle().Subscribe(1024)); err != nil {
			svcErrCh <- err
		}
	}()

	// Cancel and replace handling is not part of matching; acknowledge the
	// traffic in the logs so a misconfigured client is visible.
	go drainUnsupported(svcCtx, logger, "order_cancel_request", gw.OrderCancelRequest().Subscribe(64))
	go drainUnsupported(svcCtx, logger, "order_cancel_replace_request", gw.OrderCancelReplaceRequest().Subscribe(64))

	// Start periodic book snapshot logging
	go svc.SnapshotLoop(svcCtx, cfg.SnapshotInterval)

	// Start FIX acceptor
	settingsFile, err := os.Open(cfg.FIXSettingsPath)
	if err != nil {
		logger.Fatal("failed to open FIX settings", zap.Error(err))
	}
	settings, err := quickfix.ParseSettings(settingsFile)
	settingsFile.Close()
	if err != nil {
		logger.Fatal("failed to parse FIX settings", zap.Error(err))
	}

	logFactory, err := quickfix.NewFileLogFactory(settings)
	if err != nil {
		logger.Fatal("failed to create FIX log factory", zap.Error(err))
	}

	acceptor, err := quickfix.NewAcceptor(gw, qfxfile.NewStoreFactory(settings), settings, logFactory)
	if err != nil {
		logger.Fatal("failed to create FIX acceptor", zap.Error(err))
	}
	if err := acceptor.Start(); err != nil {
		logger.Fatal("failed to start FIX acceptor", zap.Error(err))
	}

	logger.Info("FIX acceptor started")

	// Start HTTP health server
	httpErrCh := make(chan error, 1)
	go func() {
		if err := healthChecker.StartHTTPServer(cfg.HTTPAddr()); err != nil && err != http.ErrServerClosed {
			httpErrCh <- err
		}
	}()

	// Wait for shutdown signal or component failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-svcErrCh:
		logger.Error("matching service failed", zap.Error(err))
	case err := <-httpErrCh:
		logger.Error("HTTP server failed", zap.Error(err))
	}

	// Graceful shutdown
	logger.Info("shutting down")

	acceptor.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := healthChecker.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown health checker", zap.Error(err))
	}

	logger.Info("shutdown complete",
		zap.Int("books", books.Len()),
		zap.Int64("dropped_events", gw.NewOrderSingle().Dropped()),
		zap.Int64("dropped_fills", svc.DroppedFills()))
}

func drainUnsupported(ctx context.Context, logger *zap.Logger, kind string, ch <-chan fixgw.SessionMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			logger.Warn("unsupported request ignored",
				zap.String("kind", kind),
				zap.String("session", ev.Session.String()))
		}
	}
}
