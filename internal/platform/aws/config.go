package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Config selects the region; everything else comes from the SDK defaults.
type Config struct {
	Region string
}

// LoadAWSConfig resolves SDK configuration through the default credential
// chain, so the rebuild job and the Lambda pick up whatever the
// environment provides (env vars, shared profile, execution role).
func LoadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
}
