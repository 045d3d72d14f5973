// Package identifiers implements the pluggable identifier subsystem:
// schemas that define what an identifier value may look like, a
// registry mapping namespaces to schemas, per-document identifier
// collections with score-based preference, and resolution of public
// slugs back to document URIs.
package identifiers

import (
	"context"
	"fmt"
	"sync"
)

// Schema is the class-level specification of one identifier namespace.
// Implementations must be stateless: slug compilation is a pure
// function of the value.
type Schema interface {
	// Name is the human-readable schema name, e.g. "Neutral Citation Number".
	Name() string

	// Namespace is the unique short code, e.g. "ukncn".
	Namespace() string

	// HumanReadable reports whether values are meaningful to people.
	HumanReadable() bool

	// BaseScoreMultiplier weights this namespace when choosing a
	// document's preferred identifier.
	BaseScoreMultiplier() float64

	// AllowEditing reports whether editors may set values by hand.
	// Schemas that mint their own values return false.
	AllowEditing() bool

	// RequireGloballyUnique reports whether a value may resolve to at
	// most one document across the whole store.
	RequireGloballyUnique() bool

	// SingleNonDeprecated reports whether a document may carry at most
	// one non-deprecated identifier in this namespace.
	SingleNonDeprecated() bool

	// DocumentTypes is the allow-list of document type tags this schema
	// applies to. Nil means any type.
	DocumentTypes() []string

	// ValidateValue checks value against the schema, returning a
	// *ValidationError on rejection.
	ValidateValue(value string) error

	// CompileURLSlug derives the public URL slug for value. It is
	// deterministic and depends on nothing but the value.
	CompileURLSlug(value string) (string, error)
}

// SequenceSource allocates monotonically increasing numbers from a
// named store-side counter.
type SequenceSource interface {
	NextSequenceNumber(ctx context.Context, name string) (int64, error)
}

// Minter is implemented by schemas that generate fresh unique values.
// Only schemas with AllowEditing() == false mint.
type Minter interface {
	Mint(ctx context.Context, seq SequenceSource) (string, error)
}

// Resolver resolves an identifier value within a namespace to the
// documents currently carrying it.
type Resolver interface {
	ResolveFromValue(ctx context.Context, namespace, value string) ([]Resolution, error)
}

// Registry maps namespaces to schemas for unpacking stored identifier
// trees. Unknown namespaces are skipped with a warning, never fatal.
type Registry struct {
	byNamespace map[string]Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byNamespace: make(map[string]Schema)}
}

// Register adds a schema. Registering a namespace twice is an error.
func (r *Registry) Register(s Schema) error {
	ns := s.Namespace()
	if _, exists := r.byNamespace[ns]; exists {
		return fmt.Errorf("namespace %s is already registered", ns)
	}
	r.byNamespace[ns] = s
	return nil
}

// Lookup returns the schema registered for namespace.
func (r *Registry) Lookup(namespace string) (Schema, bool) {
	s, ok := r.byNamespace[namespace]
	return s, ok
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the registry of all built-in schemas:
// neutral citations, press-summary citations and FCL identifiers.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, s := range []Schema{
			NewNeutralCitationSchema(),
			NewPressSummaryNCNSchema(),
			NewFCLIDSchema(),
		} {
			if err := defaultRegistry.Register(s); err != nil {
				panic(err)
			}
		}
	})
	return defaultRegistry
}
