package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hashicorp/go-hclog"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// s3API is the slice of the S3 client the asset store uses.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// AssetStore manages a document's binary assets across the private and
// public buckets.
type AssetStore struct {
	client s3API
	cfg    *Config
	logger hclog.Logger
}

// NewAssetStore creates an asset store from configuration.
func NewAssetStore(cfg *Config, logger hclog.Logger) (*AssetStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid asset storage configuration: %w", err)
	}
	cfg.SetDefaults()

	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	awsCfg, err := createAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Force path-style addressing for MinIO
			o.UsePathStyle = true
		}
	})

	return newAssetStore(client, cfg, logger), nil
}

func newAssetStore(client s3API, cfg *Config, logger hclog.Logger) *AssetStore {
	return &AssetStore{
		client: client,
		cfg:    cfg,
		logger: logger.Named("asset-store"),
	}
}

// createAWSConfig creates AWS SDK configuration from storage config.
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

// Prefix is the bucket prefix under which every asset of the document
// lives.
func Prefix(u uri.DocumentURI) string {
	return string(u) + "/"
}

// DocxKey is the canonical key of the source DOCX: the URI with slashes
// replaced by underscores, under the document's prefix.
func DocxKey(u uri.DocumentURI) string {
	return assetKey(u, "docx")
}

// PdfKey is the canonical key of the rendered PDF.
func PdfKey(u uri.DocumentURI) string {
	return assetKey(u, "pdf")
}

func assetKey(u uri.DocumentURI, extension string) string {
	return fmt.Sprintf("%s/%s.%s", u, strings.ReplaceAll(string(u), "/", "_"), extension)
}

// unpublishable reports keys that never reach the public bucket.
func unpublishable(key string) bool {
	return strings.HasSuffix(key, "parser.log") || strings.HasSuffix(key, ".tar.gz")
}

// listKeys returns every key under prefix in the given bucket.
func (a *AssetStore) listKeys(ctx context.Context, bucket string, prefix string) ([]string, error) {
	var keys []string
	var continuation *string
	for {
		out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}
	return keys, nil
}

// PublishAssets copies every private asset of the document to the
// public bucket with a public-read ACL, excluding parser logs and
// tarballs.
func (a *AssetStore) PublishAssets(ctx context.Context, u uri.DocumentURI) error {
	keys, err := a.listKeys(ctx, a.cfg.PrivateBucket, Prefix(u))
	if err != nil {
		return err
	}
	for _, key := range keys {
		if unpublishable(key) {
			continue
		}
		_, err := a.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(a.cfg.PublicBucket),
			Key:        aws.String(key),
			CopySource: aws.String(a.cfg.PrivateBucket + "/" + key),
			ACL:        types.ObjectCannedACLPublicRead,
		})
		if err != nil {
			return fmt.Errorf("failed to publish asset %s: %w", key, err)
		}
	}
	a.logger.Info("published assets", "uri", u, "count", len(keys))
	return nil
}

// UnpublishAssets deletes every public asset of the document.
func (a *AssetStore) UnpublishAssets(ctx context.Context, u uri.DocumentURI) error {
	return a.deleteAll(ctx, a.cfg.PublicBucket, u)
}

// DeletePrivateAssets deletes every private asset of the document.
// Called when the document itself is deleted.
func (a *AssetStore) DeletePrivateAssets(ctx context.Context, u uri.DocumentURI) error {
	return a.deleteAll(ctx, a.cfg.PrivateBucket, u)
}

func (a *AssetStore) deleteAll(ctx context.Context, bucket string, u uri.DocumentURI) error {
	keys, err := a.listKeys(ctx, bucket, Prefix(u))
	if err != nil {
		return err
	}
	for _, key := range keys {
		_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete asset %s: %w", key, err)
		}
	}
	a.logger.Info("deleted assets", "bucket", bucket, "uri", u, "count", len(keys))
	return nil
}

// CopyAssets copies the document's private assets to a new URI,
// renaming the DOCX and PDF to the new URI pattern and leaving other
// filenames intact.
func (a *AssetStore) CopyAssets(ctx context.Context, from, to uri.DocumentURI) error {
	keys, err := a.listKeys(ctx, a.cfg.PrivateBucket, Prefix(from))
	if err != nil {
		return err
	}
	for _, key := range keys {
		var target string
		switch key {
		case DocxKey(from):
			target = DocxKey(to)
		case PdfKey(from):
			target = PdfKey(to)
		default:
			target = string(to) + "/" + strings.TrimPrefix(key, Prefix(from))
		}
		_, err := a.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(a.cfg.PrivateBucket),
			Key:        aws.String(target),
			CopySource: aws.String(a.cfg.PrivateBucket + "/" + key),
		})
		if err != nil {
			return fmt.Errorf("failed to copy asset %s to %s: %w", key, target, err)
		}
	}
	return nil
}

// HasSourceDocx reports whether the document's source DOCX exists in
// the private bucket.
func (a *AssetStore) HasSourceDocx(ctx context.Context, u uri.DocumentURI) bool {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.cfg.PrivateBucket),
		Key:    aws.String(DocxKey(u)),
	})
	return err == nil
}

// PrivateBucket exposes the configured private bucket name, used when
// composing parse-request events.
func (a *AssetStore) PrivateBucket() string {
	return a.cfg.PrivateBucket
}
