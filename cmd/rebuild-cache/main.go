package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
	"github.com/tempakyousuke/learn-irish/internal/notification"
	"github.com/tempakyousuke/learn-irish/internal/platform/aws"
	"github.com/tempakyousuke/learn-irish/internal/platform/cache"
	"github.com/tempakyousuke/learn-irish/internal/platform/config"
	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
	"github.com/tempakyousuke/learn-irish/internal/platform/resilience"
	"github.com/tempakyousuke/learn-irish/internal/tunes"
	"github.com/tempakyousuke/learn-irish/internal/user"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	trigger := flag.String("trigger", "manual", "what initiated this rebuild, recorded in the published summary")
	cleanupUser := flag.String("cleanup-user", "", "reconcile this user's tune records against the rebuilt list")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Println("Loading configuration...")
	cfg := config.MustLoad(*configPath)

	logger := observability.NewLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	metrics, err := observability.NewMetrics("rebuild-cache", cfg.Observability.Metrics.Enabled)
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}
	if cfg.Observability.Metrics.Enabled {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Observability.Metrics.Port)
			logger.Info("metrics server listening", "addr", addr)
			if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
				logger.LogError(ctx, "metrics server failed", err)
			}
		}()
	}

	local, closeStore, err := newLocalStore(cfg)
	if err != nil {
		logger.LogError(ctx, "failed to create local cache store", err)
		log.Fatalf("Failed to create local cache store: %v", err)
	}
	defer closeStore()

	remote, err := docstore.NewDynamo(ctx, docstore.DynamoConfig{
		Table:    cfg.Docstore.Table,
		Region:   cfg.Docstore.Region,
		Endpoint: cfg.Docstore.Endpoint,
	})
	if err != nil {
		logger.LogError(ctx, "failed to create document store", err)
		log.Fatalf("Failed to create document store: %v", err)
	}

	repo := tunes.NewTuneRepository(tunes.TuneRepositoryConfig{
		Remote:  remote,
		Local:   local,
		TTL:     cfg.Cache.TTL,
		Logger:  logger,
		Metrics: metrics,
	})

	publisher := newPublisher(ctx, cfg, logger)

	logger.Info("starting list view rebuild", "trigger", *trigger)
	start := time.Now()

	retryCfg := resilience.DefaultRetryConfig()
	doc, err := resilience.RetryWithResult(ctx, retryCfg, isRetryable, func(ctx context.Context) (*tunes.ListViewDocument, error) {
		return repo.RebuildListView(ctx)
	})
	if err != nil {
		logger.LogError(ctx, "list view rebuild failed", err)
		log.Fatalf("Rebuild failed: %v", err)
	}

	summary := notification.RebuildSummary{
		TuneCount:   doc.TotalCount,
		Version:     doc.Version,
		LastUpdated: doc.LastUpdated,
		Duration:    time.Since(start),
		Trigger:     *trigger,
	}
	if err := publisher.PublishRebuild(ctx, summary); err != nil {
		// The rebuild itself succeeded; a lost announcement is not
		// worth a non-zero exit.
		logger.LogWarn(ctx, "failed to publish rebuild summary", "error", err)
	}

	if *cleanupUser != "" {
		session := user.NewSession()
		session.SignIn(*cleanupUser)
		cleaner := tunes.NewCleanupCoordinator(
			user.NewService(remote, logger),
			session.Current,
			user.NewTuneLog(remote, logger).CleanupEntries,
			logger,
			metrics,
		)
		cleaner.Run(ctx, doc)
	}

	// The rebuild already refreshed the tunes collection; pre-warm the
	// remaining collections so web processes sharing the cache store
	// start from a hot tier. Best-effort.
	warmer := cache.NewWarmer(logger, cache.DefaultWarmupConfig())
	warmer.RegisterProvider(tunes.NewSetRepository(remote, local, cfg.Cache.TTL, logger, metrics))
	warmer.RegisterProvider(tunes.NewTuneSetRepository(remote, local, cfg.Cache.TTL, logger, metrics))
	if results := warmer.Warmup(ctx); results.HasErrors() {
		logger.LogWarn(ctx, "cache warmup finished with errors", "errors", results.Errors)
	}

	logger.Info("rebuild complete",
		"tunes", doc.TotalCount,
		"duration", time.Since(start),
	)
}

// isRetryable limits rebuild retries to transient store failures.
// Permission or validation errors will not improve on a second try.
func isRetryable(err error) bool {
	switch docstore.CodeOf(err) {
	case docstore.Unavailable, docstore.Unknown:
		return true
	default:
		return false
	}
}

func newLocalStore(cfg *config.Config) (cache.LocalStore, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		store, err := cache.NewRedisStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "sqlite":
		store, err := cache.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return cache.NewMemoryStore(), func() {}, nil
	}
}

func newPublisher(ctx context.Context, cfg *config.Config, logger *observability.Logger) notification.RebuildPublisher {
	if cfg.AWS.SNSTopicARN == "" {
		return notification.NewNoOpPublisher(logger)
	}

	awsCfg, err := aws.LoadAWSConfig(ctx, aws.Config{Region: cfg.Docstore.Region})
	if err != nil {
		logger.LogWarn(ctx, "failed to load AWS config, rebuild summaries will only be logged", "error", err)
		return notification.NewNoOpPublisher(logger)
	}

	snsClient := aws.NewSNSClient(aws.SNSClientConfig{
		AWSConfig: awsCfg,
		Logger:    logger,
	})
	publisher, err := notification.NewPublisher(notification.PublisherConfig{
		SNSClient: snsClient,
		TopicARN:  cfg.AWS.SNSTopicARN,
		Logger:    logger,
	})
	if err != nil {
		logger.LogWarn(ctx, "failed to create SNS publisher, rebuild summaries will only be logged", "error", err)
		return notification.NewNoOpPublisher(logger)
	}
	return publisher
}
