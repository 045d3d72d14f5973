// Package storage moves a document's binary assets (source DOCX,
// rendered PDF, images) between the private and public S3 buckets.
package storage

import (
	"fmt"
)

// Config contains configuration for the asset store.
type Config struct {
	// S3 connection settings
	Endpoint  string // custom endpoint for MinIO or other S3-compatible services
	Region    string // AWS region, e.g. "eu-west-2"
	AccessKey string // access key ID; empty uses the default credential chain
	SecretKey string // secret access key

	// Buckets
	PrivateBucket string // unpublished assets, editor-only
	PublicBucket  string // assets served to the public

	// Performance tuning
	RequestTimeoutSeconds int // request timeout (default: 30)

	// TLS settings
	InsecureSkipVerify bool // skip SSL certificate verification (testing only)
}

// Validate validates the asset store configuration.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.PrivateBucket == "" {
		return fmt.Errorf("private bucket is required")
	}
	if c.PublicBucket == "" {
		return fmt.Errorf("public bucket is required")
	}
	if c.PrivateBucket == c.PublicBucket {
		return fmt.Errorf("private and public buckets must differ")
	}
	return nil
}

// SetDefaults sets default values for optional configuration fields.
func (c *Config) SetDefaults() {
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = 30
	}
}
