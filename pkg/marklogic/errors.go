package marklogic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/beevik/etree"
)

// StoreError is the base of the typed error hierarchy. Every error the
// client raises carries the operation, the HTTP status and whatever
// message code the server reported.
type StoreError struct {
	Operation   string
	StatusCode  int
	MessageCode string
	Message     string
}

func (e *StoreError) Error() string {
	parts := []string{fmt.Sprintf("%s failed with status %d", e.Operation, e.StatusCode)}
	if e.MessageCode != "" {
		parts = append(parts, e.MessageCode)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, ": ")
}

// The concrete error kinds. Each embeds StoreError so callers can match
// with errors.As on either the specific type or the base.
type (
	// BadRequestError is a malformed request (400).
	BadRequestError struct{ StoreError }
	// UnauthorizedError is a failed authentication (401).
	UnauthorizedError struct{ StoreError }
	// NotPermittedError is an authorization refusal (403).
	NotPermittedError struct{ StoreError }
	// ResourceNotFoundError is a missing document or resource (404).
	ResourceNotFoundError struct{ StoreError }
	// ResourceUnmanagedError is a document outside DLS management, so it
	// has no versions or checkout state (404).
	ResourceUnmanagedError struct{ StoreError }
	// ResourceLockedError is a document locked by another holder (409).
	ResourceLockedError struct{ StoreError }
	// ResourceNotCheckedOutError is a write that required a prior
	// checkout (409).
	ResourceNotCheckedOutError struct{ StoreError }
	// CheckoutConflictError is a checkout attempt against a document
	// already checked out elsewhere (409).
	CheckoutConflictError struct{ StoreError }
	// ValidationFailedError is a document the store rejected (422).
	ValidationFailedError struct{ StoreError }
	// InvalidContentHashError is a content hash the store rejected (422).
	InvalidContentHashError struct{ StoreError }
	// GatewayTimeoutError is an upstream timeout (504).
	GatewayTimeoutError struct{ StoreError }
	// CommunicationError is any other failure talking to the store.
	CommunicationError struct{ StoreError }
)

// classifyResponse maps a non-2xx response to the typed hierarchy.
func classifyResponse(operation string, statusCode int, body []byte) error {
	base := StoreError{
		Operation:   operation,
		StatusCode:  statusCode,
		MessageCode: messageCodeFromBody(body),
		Message:     renderBody(body),
	}

	// The message code can be more specific than the status.
	switch base.MessageCode {
	case "XDMP-DOCNOTFOUND":
		return &ResourceNotFoundError{base}
	case "DLS-UNMANAGED":
		return &ResourceUnmanagedError{base}
	}

	switch statusCode {
	case http.StatusBadRequest:
		return &BadRequestError{base}
	case http.StatusUnauthorized:
		return &UnauthorizedError{base}
	case http.StatusForbidden:
		return &NotPermittedError{base}
	case http.StatusNotFound:
		return &ResourceNotFoundError{base}
	case http.StatusConflict:
		return classifyConflict(base, body)
	case http.StatusUnprocessableEntity:
		if strings.Contains(strings.ToLower(string(body)), "hash") {
			return &InvalidContentHashError{base}
		}
		return &ValidationFailedError{base}
	case http.StatusGatewayTimeout:
		return &GatewayTimeoutError{base}
	default:
		return &CommunicationError{base}
	}
}

// classifyConflict disambiguates the three 409 conditions by inspecting
// the body.
func classifyConflict(base StoreError, body []byte) error {
	text := strings.ToUpper(string(body))
	switch {
	case strings.Contains(text, "DLS-NOTCHECKEDOUT") || strings.Contains(text, "NOT CHECKED OUT"):
		return &ResourceNotCheckedOutError{base}
	case strings.Contains(text, "DLS-CHECKOUTCONFLICT") || strings.Contains(text, "CHECKED OUT BY"):
		return &CheckoutConflictError{base}
	default:
		return &ResourceLockedError{base}
	}
}

// messageCodeFromBody extracts error-response/message-code from an XML
// error body, if there is one.
func messageCodeFromBody(body []byte) string {
	if !bytes.Contains(body, []byte("<")) {
		return ""
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return ""
	}
	root := doc.Root()
	if root == nil {
		return ""
	}
	if el := findElement(root, "message-code"); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

func findElement(el *etree.Element, tag string) *etree.Element {
	if el.Tag == tag {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// renderBody makes a response body fit for an error message: JSON is
// indented, anything else is passed through trimmed.
func renderBody(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	if json.Valid(trimmed) {
		var indented bytes.Buffer
		if err := json.Indent(&indented, trimmed, "", "  "); err == nil {
			return indented.String()
		}
	}
	return string(trimmed)
}
