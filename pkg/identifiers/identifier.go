package identifiers

import (
	"fmt"

	"github.com/google/uuid"
)

// Identifier is one element of a document's identifier set.
type Identifier struct {
	// UUID is stable and unique within the owning document.
	UUID string

	// Value is the canonical form defined by the schema.
	Value string

	// Deprecated identifiers are retained for lookup but never
	// preferred or displayed.
	Deprecated bool

	// Schema is the namespace specification this identifier follows.
	Schema Schema
}

// Option configures a new Identifier.
type Option func(*Identifier)

// WithUUID sets an explicit UUID instead of minting a fresh one. Used
// when unpacking stored identifiers.
func WithUUID(id string) Option {
	return func(i *Identifier) { i.UUID = id }
}

// AsDeprecated marks the identifier deprecated from construction.
func AsDeprecated() Option {
	return func(i *Identifier) { i.Deprecated = true }
}

// New validates value against schema and constructs an identifier,
// minting a fresh UUID unless one is supplied.
func New(schema Schema, value string, opts ...Option) (*Identifier, error) {
	if err := schema.ValidateValue(value); err != nil {
		return nil, err
	}
	i := &Identifier{
		Value:  value,
		Schema: schema,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.UUID == "" {
		i.UUID = uuid.New().String()
	}
	return i, nil
}

// MustNew is New that panics on error, for fixtures and constants.
func MustNew(schema Schema, value string, opts ...Option) *Identifier {
	i, err := New(schema, value, opts...)
	if err != nil {
		panic(fmt.Sprintf("invalid identifier: %v", err))
	}
	return i
}

// URLSlug derives the public URL slug from the value. Pure: the same
// value always yields the same slug.
func (i *Identifier) URLSlug() (string, error) {
	return i.Schema.CompileURLSlug(i.Value)
}

// Score ranks this identifier when picking a document's preferred one.
func (i *Identifier) Score() float64 {
	return i.Schema.BaseScoreMultiplier()
}

// SameAs compares by value and schema identity, not by UUID.
func (i *Identifier) SameAs(other *Identifier) bool {
	if other == nil {
		return false
	}
	return i.Value == other.Value && i.Schema.Namespace() == other.Schema.Namespace()
}

func (i *Identifier) String() string {
	return fmt.Sprintf("%s:%s", i.Schema.Namespace(), i.Value)
}
