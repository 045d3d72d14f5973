// Package uri defines the two URI forms a case-law document is known by:
// the public DocumentURI callers see, and the MarkLogicURI the store sees.
// Converting between them is the only sanctioned way to cross that
// boundary.
package uri

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DocumentURI is the public identifier of a document, e.g. "ewca/civ/2023/123".
// It never carries a leading or trailing slash and never contains a dot.
type DocumentURI string

// MarkLogicURI is the store-side address of a document's XML,
// e.g. "/ewca/civ/2023/123.xml". It always has a leading slash and a
// ".xml" suffix.
type MarkLogicURI string

// InvalidURIError reports a string that does not satisfy the invariants
// of the URI form it was offered to.
type InvalidURIError struct {
	Value string
	Form  string
	Rule  string
}

func (e *InvalidURIError) Error() string {
	return fmt.Sprintf("%q is not a valid %s: %s", e.Value, e.Form, e.Rule)
}

// NewDocumentURI validates s as a public document URI.
func NewDocumentURI(s string) (DocumentURI, error) {
	switch {
	case s == "":
		return "", &InvalidURIError{Value: s, Form: "document URI", Rule: "must not be empty"}
	case strings.HasPrefix(s, "/"):
		return "", &InvalidURIError{Value: s, Form: "document URI", Rule: "must not begin with a slash"}
	case strings.HasSuffix(s, "/"):
		return "", &InvalidURIError{Value: s, Form: "document URI", Rule: "must not end with a slash"}
	case strings.Contains(s, "."):
		return "", &InvalidURIError{Value: s, Form: "document URI", Rule: "must not contain a dot"}
	}
	return DocumentURI(s), nil
}

// MustParseDocumentURI is NewDocumentURI that panics on error. Useful for
// test fixtures and constants known to be valid.
func MustParseDocumentURI(s string) DocumentURI {
	u, err := NewDocumentURI(s)
	if err != nil {
		panic(fmt.Sprintf("invalid document URI: %v", err))
	}
	return u
}

// NewMarkLogicURI validates s as a store-side document URI.
func NewMarkLogicURI(s string) (MarkLogicURI, error) {
	switch {
	case !strings.HasPrefix(s, "/"):
		return "", &InvalidURIError{Value: s, Form: "MarkLogic document URI", Rule: "must begin with a slash"}
	case !strings.HasSuffix(s, ".xml"):
		return "", &InvalidURIError{Value: s, Form: "MarkLogic document URI", Rule: "must end with .xml"}
	}
	return MarkLogicURI(s), nil
}

// MustParseMarkLogicURI is NewMarkLogicURI that panics on error.
func MustParseMarkLogicURI(s string) MarkLogicURI {
	u, err := NewMarkLogicURI(s)
	if err != nil {
		panic(fmt.Sprintf("invalid MarkLogic URI: %v", err))
	}
	return u
}

// AsMarkLogicURI converts a public URI to its store-side form.
// The conversion is total: every valid DocumentURI has exactly one
// MarkLogicURI.
func (u DocumentURI) AsMarkLogicURI() MarkLogicURI {
	return MarkLogicURI("/" + string(u) + ".xml")
}

func (u DocumentURI) String() string { return string(u) }

// IsVersion reports whether the URI addresses a stored version of a
// document rather than the document itself.
func (u DocumentURI) IsVersion() bool {
	return strings.Contains(string(u), "_xml_versions/")
}

// MarshalJSON serialises the URI as a plain string.
func (u DocumentURI) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(u))
}

// UnmarshalJSON parses and validates a URI from a JSON string.
func (u *DocumentURI) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("document URI must be a string: %w", err)
	}
	parsed, err := NewDocumentURI(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// AsDocumentURI converts a store-side URI back to its public form.
func (u MarkLogicURI) AsDocumentURI() DocumentURI {
	s := strings.TrimPrefix(string(u), "/")
	s = strings.TrimSuffix(s, ".xml")
	return DocumentURI(s)
}

func (u MarkLogicURI) String() string { return string(u) }
