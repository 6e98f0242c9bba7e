// Package notification announces cache rebuilds so downstream
// consumers (ops alerts, CDN purge hooks) can react.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/tempakyousuke/learn-irish/internal/platform/aws"
	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

// RebuildSummary describes one completed list-view rebuild.
type RebuildSummary struct {
	TuneCount   int           `json:"tuneCount"`
	Version     int           `json:"version"`
	LastUpdated time.Time     `json:"lastUpdated"`
	Duration    time.Duration `json:"durationMs"`
	Trigger     string        `json:"trigger"`
}

// RebuildPublisher is implemented by anything that can announce a
// rebuild.
type RebuildPublisher interface {
	PublishRebuild(ctx context.Context, summary RebuildSummary) error
}

// Publisher publishes rebuild summaries to SNS.
type Publisher struct {
	snsClient *aws.SNSClient
	topicARN  string
	logger    *observability.Logger
}

// PublisherConfig holds publisher configuration
type PublisherConfig struct {
	SNSClient *aws.SNSClient
	TopicARN  string
	Logger    *observability.Logger
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if cfg.SNSClient == nil {
		return nil, fmt.Errorf("SNS client is required")
	}
	if cfg.TopicARN == "" {
		return nil, fmt.Errorf("SNS topic ARN is required")
	}
	return &Publisher{
		snsClient: cfg.SNSClient,
		topicARN:  cfg.TopicARN,
		logger:    cfg.Logger,
	}, nil
}

// PublishRebuild announces a completed rebuild. Message attributes
// carry the trigger and tune count so subscribers can filter without
// parsing the body.
func (p *Publisher) PublishRebuild(ctx context.Context, summary RebuildSummary) error {
	attributes := map[string]string{
		"trigger":   summary.Trigger,
		"tuneCount": fmt.Sprintf("%d", summary.TuneCount),
	}

	if err := p.snsClient.Publish(ctx, p.topicARN, summary, attributes); err != nil {
		return fmt.Errorf("failed to publish rebuild summary: %w", err)
	}

	if p.logger != nil {
		p.logger.Info("rebuild summary published",
			"topic_arn", p.topicARN,
			"tunes", summary.TuneCount,
			"trigger", summary.Trigger,
		)
	}
	return nil
}
