// Package marklogic is the typed facade over the remote document
// store. It translates named server-side scripts into HTTP calls,
// decodes multipart responses, maps failures onto a typed error
// hierarchy, and implements the checkout protocol the store uses to
// serialise edit sessions.
package marklogic

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config holds connection settings for the store's REST interface.
type Config struct {
	// Host is the store endpoint, e.g. "https://marklogic.example.com:8011".
	Host string

	// Username and Password authenticate by HTTP Basic over every call.
	Username string
	Password string

	// TimeoutSeconds bounds each request (default: 30).
	TimeoutSeconds int

	// MaxIdleConns sizes the pooled connection transport (default: 10).
	MaxIdleConns int
}

// Validate checks the required connection fields.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.Password, validation.Required),
		validation.Field(&c.TimeoutSeconds, validation.Min(0)),
	)
}

// SetDefaults fills optional fields.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 30
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
}
