package identifiers

import (
	"context"
	"fmt"
	"strings"
)

// NamespaceFCLID is the namespace of opaque Find Case Law identifiers.
const NamespaceFCLID = "fclid"

// fclidAlphabet is the bijective encoding alphabet for FCL identifiers:
// no vowels (so no words can appear) and none of the glyphs that are
// ambiguous in print (0/o, 1/l/i).
const fclidAlphabet = "23456789bcdfghjkmnpqrstvwxz"

// fclidMinLength is the minimum identifier length; minted values are
// left-padded to it.
const fclidMinLength = 8

// fclidSequenceName is the store-side counter FCL identifiers are
// allocated from.
const fclidSequenceName = "fclid"

// FCLIDSchema is the fclid identifier schema. Values are opaque short
// codes minted from a monotonic store-side sequence; editors cannot set
// them by hand.
type FCLIDSchema struct{}

// NewFCLIDSchema returns the fclid schema.
func NewFCLIDSchema() *FCLIDSchema { return &FCLIDSchema{} }

func (s *FCLIDSchema) Name() string                 { return "Find Case Law Identifier" }
func (s *FCLIDSchema) Namespace() string            { return NamespaceFCLID }
func (s *FCLIDSchema) HumanReadable() bool          { return false }
func (s *FCLIDSchema) BaseScoreMultiplier() float64 { return 0.6 }
func (s *FCLIDSchema) AllowEditing() bool           { return false }
func (s *FCLIDSchema) RequireGloballyUnique() bool  { return true }
func (s *FCLIDSchema) SingleNonDeprecated() bool    { return true }
func (s *FCLIDSchema) DocumentTypes() []string      { return nil }

func (s *FCLIDSchema) ValidateValue(value string) error {
	if len(value) < fclidMinLength {
		return &ValidationError{
			Namespace: s.Namespace(),
			Value:     value,
			Kind:      ErrKindPattern,
			Reason:    fmt.Sprintf("must be at least %d characters", fclidMinLength),
		}
	}
	for _, r := range value {
		if !strings.ContainsRune(fclidAlphabet, r) {
			return &ValidationError{
				Namespace: s.Namespace(),
				Value:     value,
				Kind:      ErrKindPattern,
				Reason:    fmt.Sprintf("character %q is outside the fclid alphabet", r),
			}
		}
	}
	return nil
}

// CompileURLSlug returns "tna.<value>".
func (s *FCLIDSchema) CompileURLSlug(value string) (string, error) {
	if err := s.ValidateValue(value); err != nil {
		return "", err
	}
	return "tna." + value, nil
}

// Mint allocates the next sequence number from the store and encodes it.
func (s *FCLIDSchema) Mint(ctx context.Context, seq SequenceSource) (string, error) {
	n, err := seq.NextSequenceNumber(ctx, fclidSequenceName)
	if err != nil {
		return "", fmt.Errorf("failed to advance fclid sequence: %w", err)
	}
	return EncodeFCLID(n), nil
}

// EncodeFCLID encodes a sequence number into the fclid alphabet,
// left-padded to the minimum length. Encoding is bijective: distinct
// numbers always yield distinct values.
func EncodeFCLID(n int64) string {
	if n < 0 {
		n = 0
	}
	base := int64(len(fclidAlphabet))
	var b strings.Builder
	for n > 0 {
		b.WriteByte(fclidAlphabet[n%base])
		n /= base
	}
	encoded := reverse(b.String())
	for len(encoded) < fclidMinLength {
		encoded = string(fclidAlphabet[0]) + encoded
	}
	return encoded
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
