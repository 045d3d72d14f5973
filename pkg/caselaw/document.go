package caselaw

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/identifiers"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/marklogic"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// Document type tags, matching the store's managed-document collections.
const (
	TypeJudgment     = "judgment"
	TypePressSummary = "press-summary"
	TypeParserLog    = "parser-log"
)

// Store-side scalar property names.
const (
	propSourceName           = "source-name"
	propSourceEmail          = "source-email"
	propConsignmentReference = "transfer-consignment-reference"
	propEditorHold           = "editor-hold"
	propAssignedTo           = "assigned-to"
	propPublished            = "published"
	propLastSentToParser     = "last_sent_to_parser"
	propLastSentToEnrichment = "last_sent_to_enrichment"
)

// enrichmentCooldown is how recently a document must have been enriched
// for a further enrichment request to be suppressed.
const enrichmentCooldown = 20 * time.Minute

// Status is the derived editorial state of a document.
type Status string

const (
	StatusNew        Status = "New"
	StatusInProgress Status = "In progress"
	StatusOnHold     Status = "On hold"
	StatusPublished  Status = "Published"
)

// versionNumberPattern extracts N from ..._xml_versions/N-... URIs.
var versionNumberPattern = regexp.MustCompile(`_xml_versions/(\d+)-`)

// Document is an in-memory projection of a stored document: body XML,
// identifier collection, store-side properties and derived validity.
// Mutating verbs write through to the collaborators; a caller holding a
// Document across a write should discard it and re-fetch.
type Document struct {
	uri     uri.DocumentURI
	docType string
	svc     *Services
	body    *Body
	ids     *identifiers.Collection
	logger  hclog.Logger
}

// DocumentOption tunes document construction.
type DocumentOption func(*marklogic.GetDocumentOptions)

// WithSearchQuery asks the store to highlight matches in the body.
func WithSearchQuery(query string) DocumentOption {
	return func(o *marklogic.GetDocumentOptions) { o.SearchQuery = query }
}

// WithShowUnpublished requests unpublished content; downgraded by the
// store client when the session user lacks the privilege.
func WithShowUnpublished() DocumentOption {
	return func(o *marklogic.GetDocumentOptions) { o.ShowUnpublished = true }
}

// NewDocument loads the document at u: verifies existence, fetches the
// body, and unpacks the identifier collection.
func NewDocument(ctx context.Context, svc *Services, u uri.DocumentURI, opts ...DocumentOption) (*Document, error) {
	svc.setDefaults()

	exists, err := svc.Store.DocumentExists(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("cannot check existence of %s: %w", u, err)
	}
	if !exists {
		return nil, &DocumentNotFoundError{URI: u}
	}

	var getOpts marklogic.GetDocumentOptions
	for _, opt := range opts {
		opt(&getOpts)
	}
	raw, err := svc.Store.GetDocumentXML(ctx, u, getOpts)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch body of %s: %w", u, err)
	}

	logger := svc.Logger.Named("document").With("uri", u)
	body, err := NewBody(raw, logger)
	if err != nil {
		return nil, fmt.Errorf("body of %s: %w", u, err)
	}

	ids, err := loadIdentifiers(ctx, svc, u, logger)
	if err != nil {
		return nil, err
	}

	return &Document{
		uri:     u,
		docType: deriveDocumentType(body),
		svc:     svc,
		body:    body,
		ids:     ids,
		logger:  logger,
	}, nil
}

func loadIdentifiers(ctx context.Context, svc *Services, u uri.DocumentURI, logger hclog.Logger) (*identifiers.Collection, error) {
	packed, err := svc.Store.GetIdentifiersXML(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch identifiers of %s: %w", u, err)
	}
	if len(packed) == 0 {
		return identifiers.NewCollection(), nil
	}
	ids, err := identifiers.UnpackXML(packed, svc.Registry, logger)
	if err != nil {
		return nil, fmt.Errorf("identifiers of %s: %w", u, err)
	}
	return ids, nil
}

// deriveDocumentType inspects the body: a parse-failure record is a
// parser log; otherwise the Akoma Ntoso main element decides.
func deriveDocumentType(body *Body) string {
	if body.FailedToParse() {
		return TypeParserLog
	}
	if nodes, err := body.Accessor().XPathNodes("//akn:doc[@name='pressSummary']", bodyNamespaces); err == nil && len(nodes) > 0 {
		return TypePressSummary
	}
	return TypeJudgment
}

// URI returns the document's public URI.
func (d *Document) URI() uri.DocumentURI { return d.uri }

// Type returns the document type tag.
func (d *Document) Type() string { return d.docType }

// Body returns the typed XML view.
func (d *Document) Body() *Body { return d.body }

// Identifiers returns the document's identifier collection. Mutations
// are local until SaveIdentifiers persists them.
func (d *Document) Identifiers() *identifiers.Collection { return d.ids }

// property accessors

// IsPublished reports the published property.
func (d *Document) IsPublished(ctx context.Context) (bool, error) {
	return d.svc.Store.GetBoolean(ctx, d.uri, propPublished, false)
}

// IsHeld reports the editor-hold property.
func (d *Document) IsHeld(ctx context.Context) (bool, error) {
	return d.svc.Store.GetBoolean(ctx, d.uri, propEditorHold, false)
}

// AssignedTo returns the assigned editor, or "" when unassigned.
func (d *Document) AssignedTo(ctx context.Context) (string, error) {
	return d.svc.Store.GetProperty(ctx, d.uri, propAssignedTo)
}

// SourceName returns the submitter's name.
func (d *Document) SourceName(ctx context.Context) (string, error) {
	return d.svc.Store.GetProperty(ctx, d.uri, propSourceName)
}

// SourceEmail returns the submitter's email address.
func (d *Document) SourceEmail(ctx context.Context) (string, error) {
	return d.svc.Store.GetProperty(ctx, d.uri, propSourceEmail)
}

// ConsignmentReference returns the transfer consignment reference.
func (d *Document) ConsignmentReference(ctx context.Context) (string, error) {
	return d.svc.Store.GetProperty(ctx, d.uri, propConsignmentReference)
}

// derived predicates

// IsFailure reports whether the body is a parse-failure record.
func (d *Document) IsFailure() bool { return d.body.FailedToParse() }

// IsParked reports whether the document sits in a parked holding URI.
func (d *Document) IsParked() bool {
	for _, segment := range strings.Split(string(d.uri), "/") {
		if segment == "parked" {
			return true
		}
	}
	return false
}

// HasName reports whether the body carries a document name.
func (d *Document) HasName() bool { return d.body.Name() != "" }

// HasValidCourt reports whether the body's court (and jurisdiction) is
// in the court catalogue.
func (d *Document) HasValidCourt() bool {
	return courtCatalogue().IsValidCourtCode(d.body.CourtAndJurisdictionIdentifierString())
}

// ValidationFailureMessages runs the validation checks registered for
// the document's type and returns every failure message, empty when the
// document is publishable.
func (d *Document) ValidationFailureMessages(ctx context.Context) ([]string, error) {
	var messages []string
	for _, check := range checksFor(d.docType) {
		ok, err := check.passes(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("validation check %q failed on %s: %w", check.name, d.uri, err)
		}
		if !ok {
			messages = append(messages, check.failureMessage)
		}
	}
	return messages, nil
}

// IsPublishable reports whether every validation check passes.
func (d *Document) IsPublishable(ctx context.Context) (bool, error) {
	messages, err := d.ValidationFailureMessages(ctx)
	if err != nil {
		return false, err
	}
	return len(messages) == 0, nil
}

// SafeToDelete reports whether the document may be deleted: published
// documents may not.
func (d *Document) SafeToDelete(ctx context.Context) (bool, error) {
	published, err := d.IsPublished(ctx)
	if err != nil {
		return false, err
	}
	return !published, nil
}

// EnrichedRecently reports whether the latest enrichment stamp is
// within the cooldown window.
func (d *Document) EnrichedRecently() bool {
	enriched := d.body.EnrichmentDatetime()
	if enriched == nil {
		return false
	}
	return d.svc.Clock().UTC().Sub(*enriched) < enrichmentCooldown
}

// CanEnrich reports whether an enrichment request would be emitted: the
// stored body validates against the schema (checked server-side) and
// was not enriched recently.
func (d *Document) CanEnrich(ctx context.Context) (bool, error) {
	valid, err := d.svc.Store.ValidatesAgainstSchema(ctx, d.uri)
	if err != nil {
		return false, fmt.Errorf("cannot check schema validity of %s: %w", d.uri, err)
	}
	return valid && !d.EnrichedRecently(), nil
}

// Status derives the editorial state from the stored properties.
func (d *Document) Status(ctx context.Context) (Status, error) {
	published, err := d.IsPublished(ctx)
	if err != nil {
		return "", err
	}
	if published {
		return StatusPublished, nil
	}
	held, err := d.IsHeld(ctx)
	if err != nil {
		return "", err
	}
	if held {
		return StatusOnHold, nil
	}
	assigned, err := d.AssignedTo(ctx)
	if err != nil {
		return "", err
	}
	if assigned != "" {
		return StatusInProgress, nil
	}
	return StatusNew, nil
}

// versions

// IsVersion reports whether this document is itself a stored version.
func (d *Document) IsVersion() bool { return d.uri.IsVersion() }

// VersionNumber extracts the version number from a version document's
// URI. Only legal on versions.
func (d *Document) VersionNumber() (int, error) {
	if !d.IsVersion() {
		return 0, &OnlySupportedOnVersionError{URI: d.uri, Operation: "version number"}
	}
	m := versionNumberPattern.FindStringSubmatch(string(d.uri))
	if m == nil {
		return 0, fmt.Errorf("version URI %s has no version number", d.uri)
	}
	return strconv.Atoi(m[1])
}

// Versions lists the document's stored versions in descending version
// order; the first entry is current. Versions cannot themselves
// enumerate versions.
func (d *Document) Versions(ctx context.Context) ([]marklogic.Version, error) {
	if d.IsVersion() {
		return nil, &NotSupportedOnVersionError{URI: d.uri, Operation: "listing versions"}
	}
	return d.svc.Store.ListVersions(ctx, d.uri)
}

// VersionsAsDocuments materialises each stored version as a Document.
func (d *Document) VersionsAsDocuments(ctx context.Context) ([]*Document, error) {
	versions, err := d.Versions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Document, 0, len(versions))
	for _, v := range versions {
		doc, err := NewDocument(ctx, d.svc, v.URI)
		if err != nil {
			return nil, fmt.Errorf("cannot load version %d of %s: %w", v.Number, d.uri, err)
		}
		out = append(out, doc)
	}
	return out, nil
}

// checkout protocol

// Checkout obtains an exclusive editing lease, annotated with the
// editor's message.
func (d *Document) Checkout(ctx context.Context, message string, expiry marklogic.CheckoutExpiry) error {
	return d.svc.Store.Checkout(ctx, d.uri, message, expiry)
}

// Checkin releases the caller's own lease.
func (d *Document) Checkin(ctx context.Context) error {
	return d.svc.Store.Checkin(ctx, d.uri)
}

// BreakCheckout forcibly releases any outstanding lease.
func (d *Document) BreakCheckout(ctx context.Context) error {
	return d.svc.Store.BreakCheckout(ctx, d.uri)
}

// CheckoutStatus returns the current lease's annotation, or "" when the
// document is not checked out.
func (d *Document) CheckoutStatus(ctx context.Context) (string, error) {
	return d.svc.Store.CheckoutStatus(ctx, d.uri)
}
