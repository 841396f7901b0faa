// cmd/concierge/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dining-concierge/internal/alerts"
	"dining-concierge/internal/catalog"
	"dining-concierge/internal/common/config"
	"dining-concierge/internal/common/database"
	"dining-concierge/internal/common/logger"
	"dining-concierge/internal/common/observability"
	"dining-concierge/internal/dialog"
	"dining-concierge/internal/email"
	"dining-concierge/internal/fulfillment"
	"dining-concierge/internal/nlu"
	"dining-concierge/internal/queue"
	"dining-concierge/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting dining concierge...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("dining-concierge")
	defer obs.Shutdown()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Request queue with optional dead-letter alerting ---
	requestQueue := queue.NewRedisQueue(redis.Client, cfg.Queue, log)
	if cfg.Alerts.Enabled {
		notifier, err := alerts.NewSNSNotifier(ctx, cfg.Alerts.AWSRegion, cfg.Alerts.TopicARN, log)
		if err != nil {
			zapLog.Fatal("dlq alert notifier failed", zap.Error(err))
		}
		requestQueue = requestQueue.WithNotifier(notifier)
	}

	// --- Catalog, email, fulfillment pipeline ---
	search := catalog.NewSearch(esClient.Client, cfg.Database.Elasticsearch.Index, log)
	store := catalog.NewStore(pg.DB, log)

	var sender email.Sender
	if cfg.Email.Enabled {
		sesSender, err := email.NewSESSender(ctx, cfg.Email.AWSRegion, cfg.Email.FromEmail, log)
		if err != nil {
			zapLog.Fatal("ses sender failed", zap.Error(err))
		}
		sender = sesSender
	} else {
		sender = email.NewLogSender(log)
	}

	worker := fulfillment.NewWorker(requestQueue, search, store, sender,
		cfg.Fulfillment, cfg.Queue.BatchSize, log, obs)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx, cfg.Queue.PollEvery())
	}()

	// --- Dialog engine and chat API ---
	oracle := nlu.NewClient(&cfg.NLU, log)
	engine := dialog.NewEngine(requestQueue, log)
	chatAPI := server.New(engine, oracle, cfg.HTTP, log, obs)

	go func() {
		if err := chatAPI.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("chat API server failed", zap.Error(err))
		}
	}()

	// --- Metrics & pprof Server ---
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/debug/pprof/", http.DefaultServeMux)
		zapLog.Info("Metrics server listening on " + cfg.HTTP.MetricsAddress)
		if err := http.ListenAndServe(cfg.HTTP.MetricsAddress, mux); err != nil {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := chatAPI.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("chat API shutdown failed", zap.Error(err))
	}

	shutdownDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
	case <-shutdownCtx.Done():
		zapLog.Warn("shutdown timed out waiting for in-flight work")
	}

	zapLog.Info("Dining concierge stopped gracefully")
}
