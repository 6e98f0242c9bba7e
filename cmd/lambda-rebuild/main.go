// Scheduled Lambda that rebuilds the tune list-view document. Wired to
// an EventBridge schedule so the materialized cache never drifts more
// than one period behind catalogue edits.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
	"github.com/tempakyousuke/learn-irish/internal/notification"
	"github.com/tempakyousuke/learn-irish/internal/platform/aws"
	"github.com/tempakyousuke/learn-irish/internal/platform/cache"
	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
	"github.com/tempakyousuke/learn-irish/internal/tunes"
)

var (
	repo      *tunes.TuneRepository
	publisher notification.RebuildPublisher
	logger    *observability.Logger
)

func init() {
	ctx := context.Background()

	logger = observability.NewLogger(env("LOG_LEVEL", "info"), "json")

	region := env("AWS_REGION", "ap-northeast-1")
	table := env("DOCSTORE_TABLE", "learn-irish")

	remote, err := docstore.NewDynamo(ctx, docstore.DynamoConfig{
		Table:    table,
		Region:   region,
		Endpoint: os.Getenv("DOCSTORE_ENDPOINT"),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to create document store: %v", err))
	}

	// Lambda invocations are short-lived, so the persistent tier is a
	// plain in-memory store; the rebuild writes through to DynamoDB
	// anyway.
	repo = tunes.NewTuneRepository(tunes.TuneRepositoryConfig{
		Remote: remote,
		Local:  cache.NewMemoryStore(),
		TTL:    24 * time.Hour,
		Logger: logger,
	})

	publisher = notification.NewNoOpPublisher(logger)
	if topicARN := os.Getenv("SNS_TOPIC_ARN"); topicARN != "" {
		awsCfg, err := aws.LoadAWSConfig(ctx, aws.Config{Region: region})
		if err != nil {
			panic(fmt.Sprintf("failed to load AWS config: %v", err))
		}
		snsClient := aws.NewSNSClient(aws.SNSClientConfig{
			AWSConfig: awsCfg,
			Logger:    logger,
		})
		p, err := notification.NewPublisher(notification.PublisherConfig{
			SNSClient: snsClient,
			TopicARN:  topicARN,
			Logger:    logger,
		})
		if err != nil {
			panic(fmt.Sprintf("failed to create publisher: %v", err))
		}
		publisher = p
	}

	logger.Info("rebuild lambda initialized", "table", table, "region", region)
}

// RebuildResponse is returned to the scheduler invocation.
type RebuildResponse struct {
	TuneCount   int    `json:"tuneCount"`
	Version     int    `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	DurationMS  int64  `json:"durationMs"`
}

func Handler(ctx context.Context) (RebuildResponse, error) {
	start := time.Now()

	doc, err := repo.RebuildListView(ctx)
	if err != nil {
		logger.LogError(ctx, "scheduled rebuild failed", err)
		return RebuildResponse{}, err
	}

	summary := notification.RebuildSummary{
		TuneCount:   doc.TotalCount,
		Version:     doc.Version,
		LastUpdated: doc.LastUpdated,
		Duration:    time.Since(start),
		Trigger:     "schedule",
	}
	if err := publisher.PublishRebuild(ctx, summary); err != nil {
		logger.LogWarn(ctx, "failed to publish rebuild summary", "error", err)
	}

	return RebuildResponse{
		TuneCount:   doc.TotalCount,
		Version:     doc.Version,
		LastUpdated: doc.LastUpdated.Format(time.RFC3339),
		DurationMS:  time.Since(start).Milliseconds(),
	}, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	lambda.Start(Handler)
}
