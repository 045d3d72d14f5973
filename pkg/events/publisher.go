package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// Config contains configuration for the event publisher.
type Config struct {
	// TopicARN is the SNS topic every message is published to.
	TopicARN string

	// SNS connection settings
	Endpoint  string // custom endpoint for LocalStack or other SNS-compatible services
	Region    string // AWS region, e.g. "eu-west-2"
	AccessKey string // access key ID; empty uses the default credential chain
	SecretKey string // secret access key

	// Performance tuning
	RequestTimeoutSeconds int // request timeout (default: 30)
	MaxRetries            int // publish retries on transient failure (default: 3)

	// TLS settings
	InsecureSkipVerify bool // skip SSL certificate verification (testing only)
}

// Validate validates the event publisher configuration.
func (c *Config) Validate() error {
	if c.TopicARN == "" {
		return fmt.Errorf("topic ARN is required")
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	return nil
}

// SetDefaults sets default values for optional configuration fields.
func (c *Config) SetDefaults() {
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = 30
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// snsAPI is the slice of the SNS client the publisher uses.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher sends document events to the configured SNS topic.
type Publisher struct {
	client snsAPI
	cfg    *Config
	logger hclog.Logger
}

// NewPublisher creates an event publisher from configuration.
func NewPublisher(cfg *Config, logger hclog.Logger) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event publisher configuration: %w", err)
	}
	cfg.SetDefaults()

	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	awsCfg, err := createAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newPublisher(client, cfg, logger), nil
}

func newPublisher(client snsAPI, cfg *Config, logger hclog.Logger) *Publisher {
	return &Publisher{
		client: client,
		cfg:    cfg,
		logger: logger.Named("event-publisher"),
	}
}

// createAWSConfig creates AWS SDK configuration from publisher config.
func createAWSConfig(cfg *Config) (aws.Config, error) {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify,
			},
		},
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
	}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	return config.LoadDefaultConfig(context.Background(), opts...)
}

// PublishLifecycleEvent announces a lifecycle transition for a document.
// Enrich events additionally carry the trigger_enrichment attribute that
// the enrichment pipeline filters on.
func (p *Publisher) PublishLifecycleEvent(ctx context.Context, u uri.DocumentURI, status LifecycleStatus) error {
	body, err := json.Marshal(LifecycleEvent{URIReference: string(u), Status: status})
	if err != nil {
		return fmt.Errorf("failed to marshal lifecycle event: %w", err)
	}

	attributes := map[string]types.MessageAttributeValue{
		"update_type": {
			DataType:    aws.String("String"),
			StringValue: aws.String(string(status)),
		},
		"uri_reference": {
			DataType:    aws.String("String"),
			StringValue: aws.String(string(u)),
		},
	}
	if status == StatusEnrich {
		attributes["trigger_enrichment"] = types.MessageAttributeValue{
			DataType:    aws.String("Number"),
			StringValue: aws.String("1"),
		}
	}

	if err := p.publish(ctx, string(body), attributes); err != nil {
		return fmt.Errorf("failed to publish %s event for %s: %w", status, u, err)
	}
	p.logger.Info("published lifecycle event", "uri", u, "status", status)
	return nil
}

// PublishParseRequest asks the parser to re-parse a document's source
// DOCX.
func (p *Publisher) PublishParseRequest(ctx context.Context, req ParseRequest) error {
	body, err := req.MarshalMessage()
	if err != nil {
		return fmt.Errorf("failed to marshal parse request: %w", err)
	}

	if err := p.publish(ctx, string(body), nil); err != nil {
		return fmt.Errorf("failed to publish parse request for %s: %w", req.URI, err)
	}
	p.logger.Info("published parse request", "uri", req.URI, "document_type", req.DocumentType)
	return nil
}

// publish sends one message, retrying transient failures with
// exponential backoff.
func (p *Publisher) publish(ctx context.Context, body string, attributes map[string]types.MessageAttributeValue) error {
	input := &sns.PublishInput{
		TopicArn:          aws.String(p.cfg.TopicARN),
		Message:           aws.String(body),
		MessageAttributes: attributes,
	}

	operation := func() error {
		_, err := p.client.Publish(ctx, input)
		if err != nil {
			p.logger.Warn("publish attempt failed", "error", err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(p.cfg.MaxRetries)),
		ctx,
	)
	return backoff.Retry(operation, policy)
}
