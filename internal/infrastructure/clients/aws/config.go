package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/location"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/observatorio/rentpredict/backend/pkg/config"
)

// Clients bundles the AWS service clients used by the API
type Clients struct {
	Lambda   *lambda.Client
	Location *location.Client
	S3       *s3.Client
	Region   string

	config aws.Config
}

// LoadConfig resolves the shared SDK configuration. Static keys win over the
// default credential chain; Endpoint points every client at a local emulator.
func LoadConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return awsCfg, nil
}

// NewClients builds the Lambda, Location and S3 clients from one config
func NewClients(ctx context.Context, cfg config.AWSConfig) (*Clients, error) {
	awsCfg, err := LoadConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Clients{
		Lambda:   lambda.NewFromConfig(awsCfg),
		Location: location.NewFromConfig(awsCfg),
		S3: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			// emulators serve buckets by path
			o.UsePathStyle = cfg.Endpoint != ""
		}),
		Region: awsCfg.Region,
		config: awsCfg,
	}, nil
}

// UserPool builds a user pool client. The pool may live in another region
// than the rest of the stack.
func (c *Clients) UserPool(region string) *cognitoidentityprovider.Client {
	return cognitoidentityprovider.NewFromConfig(c.config, func(o *cognitoidentityprovider.Options) {
		if region != "" {
			o.Region = region
		}
	})
}
