// Package events publishes document notifications to the SNS-compatible
// event bus: lifecycle events consumed by downstream caches and the
// enrichment pipeline, and structured parse requests consumed by the
// parser.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LifecycleStatus is the lifecycle transition a message announces.
type LifecycleStatus string

const (
	StatusPublish   LifecycleStatus = "publish"
	StatusUnpublish LifecycleStatus = "unpublish"
	StatusEnrich    LifecycleStatus = "enrich"
)

// parseRequestMessageType identifies RequestCourtDocumentParse messages
// to consumers.
const parseRequestMessageType = "uk.gov.nationalarchives.da.messages.request.courtdocument.parse.RequestCourtDocumentParse"

// parseRequestFunction is the fixed function label on parse requests.
const parseRequestFunction = "fcl-judgment-parse-request"

// originator marks every parse request as coming from Find Case Law.
const originator = "FCL"

// LifecycleEvent is the JSON body of a lifecycle message.
type LifecycleEvent struct {
	URIReference string          `json:"uri_reference"`
	Status       LifecycleStatus `json:"status"`
}

// ParseRequest carries everything the parser needs to re-parse a
// document's source DOCX.
type ParseRequest struct {
	// DocumentType is the parser's noun for the document kind,
	// e.g. "judgment" or "pressSummary".
	DocumentType string

	// Best-known metadata, forwarded to the parser. Empty values are
	// serialised as null, never "".
	Name  string
	Cite  string
	Court string
	Date  string
	URI   string

	// S3Bucket and S3Key locate the source DOCX.
	S3Bucket string
	S3Key    string

	// Reference is the transfer consignment reference.
	Reference string

	// Timestamp stamps the message; the zero value means now.
	Timestamp time.Time
}

// parse request wire layout

type parseRequestProperties struct {
	MessageType       string  `json:"messageType"`
	Function          string  `json:"function"`
	Producer          string  `json:"producer"`
	Timestamp         string  `json:"timestamp"`
	ExecutionID       string  `json:"executionId"`
	ParentExecutionID *string `json:"parentExecutionId"`
}

type parseRequestMetadata struct {
	Name  *string `json:"name"`
	Cite  *string `json:"cite"`
	Court *string `json:"court"`
	Date  *string `json:"date"`
	URI   *string `json:"uri"`
}

type parserInstructions struct {
	DocumentType string               `json:"documentType"`
	Metadata     parseRequestMetadata `json:"metadata"`
}

type parseRequestParameters struct {
	S3Bucket           string             `json:"s3Bucket"`
	S3Key              string             `json:"s3Key"`
	Reference          *string            `json:"reference"`
	Originator         string             `json:"originator"`
	ParserInstructions parserInstructions `json:"parserInstructions"`
}

type parseRequestMessage struct {
	Properties parseRequestProperties `json:"properties"`
	Parameters parseRequestParameters `json:"parameters"`
}

// MarshalMessage renders the canonical RequestCourtDocumentParse JSON.
func (r ParseRequest) MarshalMessage() ([]byte, error) {
	timestamp := r.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	msg := parseRequestMessage{
		Properties: parseRequestProperties{
			MessageType: parseRequestMessageType,
			Function:    parseRequestFunction,
			Producer:    originator,
			Timestamp:   timestamp.UTC().Format(time.RFC3339),
			ExecutionID: uuid.New().String(),
		},
		Parameters: parseRequestParameters{
			S3Bucket:   r.S3Bucket,
			S3Key:      r.S3Key,
			Reference:  nullable(r.Reference),
			Originator: originator,
			ParserInstructions: parserInstructions{
				DocumentType: r.DocumentType,
				Metadata: parseRequestMetadata{
					Name:  nullable(r.Name),
					Cite:  nullable(r.Cite),
					Court: nullable(r.Court),
					Date:  nullable(r.Date),
					URI:   nullable(r.URI),
				},
			},
		},
	}
	return json.Marshal(msg)
}

// nullable maps "" to JSON null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
