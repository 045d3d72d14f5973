package caselaw

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/events"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/identifiers"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/marklogic"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/storage"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// publicURLBase is the root of the public service; document bodies
// carry self-references under it.
const publicURLBase = "https://caselaw.nationalarchives.gov.uk"

// Publish makes the document public: copies its assets to the public
// bucket, flips the published property, announces the change, and asks
// for enrichment. Fails with CannotPublishUnpublishableDocumentError
// when any validation check fails, before any write happens.
func (d *Document) Publish(ctx context.Context) error {
	messages, err := d.ValidationFailureMessages(ctx)
	if err != nil {
		return err
	}
	if len(messages) > 0 {
		return &CannotPublishUnpublishableDocumentError{URI: d.uri, Messages: messages}
	}

	if err := d.svc.Assets.PublishAssets(ctx, d.uri); err != nil {
		return fmt.Errorf("cannot publish assets of %s: %w", d.uri, err)
	}
	if err := d.svc.Store.SetBoolean(ctx, d.uri, propPublished, true); err != nil {
		return fmt.Errorf("cannot mark %s as published: %w", d.uri, err)
	}
	if err := d.svc.Events.PublishLifecycleEvent(ctx, d.uri, events.StatusPublish); err != nil {
		return fmt.Errorf("cannot announce publication of %s: %w", d.uri, err)
	}
	d.logger.Info("published document")

	_, err = d.Enrich(ctx)
	return err
}

// Unpublish withdraws the document: breaks any outstanding checkout,
// removes public assets, clears the published property and announces
// the change.
func (d *Document) Unpublish(ctx context.Context) error {
	if err := d.BreakCheckout(ctx); err != nil {
		return fmt.Errorf("cannot break checkout of %s: %w", d.uri, err)
	}
	if err := d.svc.Assets.UnpublishAssets(ctx, d.uri); err != nil {
		return fmt.Errorf("cannot unpublish assets of %s: %w", d.uri, err)
	}
	if err := d.svc.Store.SetBoolean(ctx, d.uri, propPublished, false); err != nil {
		return fmt.Errorf("cannot mark %s as unpublished: %w", d.uri, err)
	}
	if err := d.svc.Events.PublishLifecycleEvent(ctx, d.uri, events.StatusUnpublish); err != nil {
		return fmt.Errorf("cannot announce unpublication of %s: %w", d.uri, err)
	}
	d.logger.Info("unpublished document")
	return nil
}

// Hold places the document on editorial hold.
func (d *Document) Hold(ctx context.Context) error {
	return d.svc.Store.SetProperty(ctx, d.uri, propEditorHold, "true")
}

// Unhold releases the editorial hold.
func (d *Document) Unhold(ctx context.Context) error {
	return d.svc.Store.SetProperty(ctx, d.uri, propEditorHold, "false")
}

// Assign records the editor working on the document.
func (d *Document) Assign(ctx context.Context, editor string) error {
	return d.svc.Store.SetProperty(ctx, d.uri, propAssignedTo, editor)
}

// Unassign clears the assigned editor.
func (d *Document) Unassign(ctx context.Context) error {
	return d.svc.Store.SetProperty(ctx, d.uri, propAssignedTo, "")
}

// Delete removes the document and its private assets. Published
// documents fail with DocumentNotSafeForDeletionError.
func (d *Document) Delete(ctx context.Context) error {
	safe, err := d.SafeToDelete(ctx)
	if err != nil {
		return err
	}
	if !safe {
		return &DocumentNotSafeForDeletionError{URI: d.uri}
	}
	if err := d.svc.Store.DeleteDocument(ctx, d.uri); err != nil {
		return fmt.Errorf("cannot delete %s: %w", d.uri, err)
	}
	if err := d.svc.Assets.DeletePrivateAssets(ctx, d.uri); err != nil {
		return fmt.Errorf("cannot delete assets of %s: %w", d.uri, err)
	}
	d.logger.Info("deleted document")
	return nil
}

// Enrich asks the enrichment pipeline to process the document, unless
// the body fails schema validation or was enriched within the cooldown
// window. Returns whether the request was emitted.
func (d *Document) Enrich(ctx context.Context) (bool, error) {
	ok, err := d.CanEnrich(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		d.logger.Debug("skipping enrichment", "enriched_recently", d.EnrichedRecently())
		return false, nil
	}
	if err := d.ForceEnrich(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ForceEnrich stamps the enrichment request time and emits the enrich
// event regardless of the cooldown guard.
func (d *Document) ForceEnrich(ctx context.Context) error {
	now := d.svc.Clock().UTC().Format(time.RFC3339)
	if err := d.svc.Store.SetProperty(ctx, d.uri, propLastSentToEnrichment, now); err != nil {
		return fmt.Errorf("cannot stamp enrichment request on %s: %w", d.uri, err)
	}
	if err := d.svc.Events.PublishLifecycleEvent(ctx, d.uri, events.StatusEnrich); err != nil {
		return fmt.Errorf("cannot request enrichment of %s: %w", d.uri, err)
	}
	return nil
}

// Reparse stamps the parse request time unconditionally and, when the
// source DOCX still exists in the private bucket, asks the parser to
// re-parse it. Returns whether the request was emitted.
func (d *Document) Reparse(ctx context.Context) (bool, error) {
	now := d.svc.Clock().UTC().Format(time.RFC3339)
	if err := d.svc.Store.SetProperty(ctx, d.uri, propLastSentToParser, now); err != nil {
		return false, fmt.Errorf("cannot stamp parse request on %s: %w", d.uri, err)
	}

	if !d.svc.Assets.HasSourceDocx(ctx, d.uri) {
		d.logger.Info("not requesting reparse: no source DOCX")
		return false, nil
	}

	reference, err := d.ConsignmentReference(ctx)
	if err != nil {
		return false, err
	}

	req := events.ParseRequest{
		DocumentType: parserNoun(d.docType),
		Name:         d.body.Name(),
		Cite:         d.preferredCitationValue(),
		Court:        d.body.CourtAndJurisdictionIdentifierString(),
		Date:         d.body.DocumentDateAsString(),
		URI:          string(d.uri),
		S3Bucket:     d.svc.Assets.PrivateBucket(),
		S3Key:        storage.DocxKey(d.uri),
		Reference:    reference,
		Timestamp:    d.svc.Clock().UTC(),
	}
	if err := d.svc.Events.PublishParseRequest(ctx, req); err != nil {
		return false, err
	}
	return true, nil
}

// parserNoun maps a document type tag to the parser's vocabulary.
func parserNoun(docType string) string {
	if docType == TypePressSummary {
		return "pressSummary"
	}
	return "judgment"
}

// preferredCitationValue is the best human identifier to hand to the
// parser: the preferred neutral citation, falling back to the body cite.
func (d *Document) preferredCitationValue() string {
	if preferred := d.ids.Preferred(identifiers.NamespaceNeutralCitation); preferred != nil {
		return preferred.Value
	}
	return d.body.Cite()
}

// SaveIdentifiers validates the local identifier collection and, when
// it passes, persists it to the store. Routine validation failures come
// back as (false, messages, nil) without persisting.
func (d *Document) SaveIdentifiers(ctx context.Context) (bool, []string, error) {
	ok, messages, err := d.ids.Validate(ctx, identifiers.ValidationContext{
		DocumentURI:  d.uri,
		DocumentType: d.docType,
		Resolver:     d.svc.Store,
	})
	if err != nil || !ok {
		return ok, messages, err
	}
	packed, err := d.ids.PackXML()
	if err != nil {
		return false, nil, err
	}
	if err := d.svc.Store.SetIdentifiersXML(ctx, d.uri, packed); err != nil {
		return false, nil, fmt.Errorf("cannot save identifiers of %s: %w", d.uri, err)
	}
	return true, nil, nil
}

// movableProperties is the property set carried over when a document
// changes URI.
var movableProperties = []string{
	propSourceName,
	propSourceEmail,
	propConsignmentReference,
	propEditorHold,
	propAssignedTo,
	propPublished,
	propLastSentToParser,
	propLastSentToEnrichment,
}

// Move relocates the document to the URI derived from a new neutral
// citation. Fails with MoveJudgmentError when the target is occupied;
// nothing is written before that check.
func (d *Document) Move(ctx context.Context, newCitation string) (uri.DocumentURI, error) {
	target, err := d.uriFromCitation(newCitation)
	if err != nil {
		return "", err
	}
	exists, err := d.svc.Store.DocumentExists(ctx, target)
	if err != nil {
		return "", err
	}
	if exists {
		return "", &MoveJudgmentError{From: d.uri, To: target}
	}
	annotation := fmt.Sprintf("moved from %s", d.uri)
	if err := d.relocate(ctx, target, annotation); err != nil {
		return "", err
	}
	return target, nil
}

// Overwrite replaces the existing document at the URI derived from the
// citation with this document's content. Fails with
// OverwriteJudgmentError when no document exists there.
func (d *Document) Overwrite(ctx context.Context, newCitation string) (uri.DocumentURI, error) {
	target, err := d.uriFromCitation(newCitation)
	if err != nil {
		return "", err
	}
	exists, err := d.svc.Store.DocumentExists(ctx, target)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", &OverwriteJudgmentError{From: d.uri, To: target}
	}
	annotation := fmt.Sprintf("overwritten from %s", d.uri)
	if err := d.relocate(ctx, target, annotation); err != nil {
		return "", err
	}
	return target, nil
}

// uriFromCitation routes a citation through the NCN schema to its URL
// slug, which doubles as the document URI.
func (d *Document) uriFromCitation(citation string) (uri.DocumentURI, error) {
	schema, ok := d.svc.Registry.Lookup(identifiers.NamespaceNeutralCitation)
	if !ok {
		return "", fmt.Errorf("no neutral citation schema registered")
	}
	slug, err := schema.CompileURLSlug(citation)
	if err != nil {
		return "", &NeutralCitationToURIError{Citation: citation, Err: err}
	}
	target, err := uri.NewDocumentURI(slug)
	if err != nil {
		return "", &NeutralCitationToURIError{Citation: citation, Err: err}
	}
	return target, nil
}

// relocate copies the document, its properties, its identifiers and its
// assets to the target URI, rewrites body self-references, and deletes
// the original.
func (d *Document) relocate(ctx context.Context, target uri.DocumentURI, annotation string) error {
	if err := d.svc.Store.CopyDocument(ctx, d.uri, target); err != nil {
		return fmt.Errorf("cannot copy %s to %s: %w", d.uri, target, err)
	}

	for _, name := range movableProperties {
		value, err := d.svc.Store.GetProperty(ctx, d.uri, name)
		if err != nil {
			return err
		}
		if value == "" {
			continue
		}
		if err := d.svc.Store.SetProperty(ctx, target, name, value); err != nil {
			return err
		}
	}

	packed, err := d.svc.Store.GetIdentifiersXML(ctx, d.uri)
	if err != nil {
		return err
	}
	if len(packed) > 0 {
		if err := d.svc.Store.SetIdentifiersXML(ctx, target, packed); err != nil {
			return err
		}
	}

	if err := d.svc.Assets.CopyAssets(ctx, d.uri, target); err != nil {
		return fmt.Errorf("cannot copy assets of %s to %s: %w", d.uri, target, err)
	}

	fixed := rewriteSelfReferences(d.body.Bytes(), d.uri, target)
	if err := d.svc.Store.Checkout(ctx, target, annotation, marklogic.CheckoutExpiry{}); err != nil {
		return fmt.Errorf("cannot check out %s: %w", target, err)
	}
	if err := d.svc.Store.UpdateDocument(ctx, target, fixed, annotation); err != nil {
		return fmt.Errorf("cannot rewrite body of %s: %w", target, err)
	}
	if err := d.svc.Store.Checkin(ctx, target); err != nil {
		return fmt.Errorf("cannot check in %s: %w", target, err)
	}

	if err := d.svc.Store.DeleteDocument(ctx, d.uri); err != nil {
		return fmt.Errorf("cannot delete %s after relocation: %w", d.uri, err)
	}
	d.logger.Info("relocated document", "target", target)
	return nil
}

// rewriteSelfReferences replaces the three canonical self-reference
// forms a body may carry: the /id/ URL, the plain public URL, and the
// bare attribute-quoted URI.
func rewriteSelfReferences(body []byte, from, to uri.DocumentURI) []byte {
	replacements := [][2]string{
		{publicURLBase + "/id/" + string(from), publicURLBase + "/id/" + string(to)},
		{publicURLBase + "/" + string(from), publicURLBase + "/" + string(to)},
		{`"` + string(from) + `"`, `"` + string(to) + `"`},
	}
	out := body
	for _, r := range replacements {
		out = bytes.ReplaceAll(out, []byte(r[0]), []byte(r[1]))
	}
	return out
}
