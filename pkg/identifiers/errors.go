package identifiers

import "fmt"

// ValidationError reports a value rejected by its schema. Kind
// distinguishes a value that does not match the schema's pattern from
// one that cannot be routed to a URL slug.
type ValidationError struct {
	Namespace string
	Value     string
	Kind      ValidationErrorKind
	Reason    string
}

// ValidationErrorKind classifies schema rejections.
type ValidationErrorKind string

const (
	// ErrKindPattern marks a value that does not match the schema pattern.
	ErrKindPattern ValidationErrorKind = "pattern"
	// ErrKindRouting marks a value that matches the pattern but cannot
	// be converted to a URL slug.
	ErrKindRouting ValidationErrorKind = "routing"
)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("identifier value %q is not valid in namespace %s: %s", e.Value, e.Namespace, e.Reason)
}

// UUIDMismatchError reports a collection whose key does not equal the
// UUID of the entry stored under it. This is caller misuse, not an
// editorial validation failure.
type UUIDMismatchError struct {
	Key  string
	UUID string
}

func (e *UUIDMismatchError) Error() string {
	return fmt.Sprintf("identifier stored under key %s has uuid %s", e.Key, e.UUID)
}

// InvalidXMLRepresentationError reports a packed identifiers tree that
// cannot be unpacked.
type InvalidXMLRepresentationError struct {
	Reason string
}

func (e *InvalidXMLRepresentationError) Error() string {
	return fmt.Sprintf("invalid identifier XML representation: %s", e.Reason)
}
