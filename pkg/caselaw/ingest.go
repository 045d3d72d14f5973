package caselaw

import (
	"context"
	"fmt"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/identifiers"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// InsertDocument writes parser-emitted XML into the store under a
// submission annotation and returns the loaded Document. Ingest
// pipelines call this once per consignment; a Find Case Law identifier
// is minted for the new document.
func InsertDocument(ctx context.Context, svc *Services, u uri.DocumentURI, body []byte, annotation VersionAnnotation) (*Document, error) {
	svc.setDefaults()

	if annotation.Type == "" {
		annotation.Type = VersionSubmission
	}
	serialised, err := annotation.AsJSON()
	if err != nil {
		return nil, err
	}
	if err := svc.Store.InsertDocument(ctx, u, body, serialised); err != nil {
		return nil, fmt.Errorf("cannot insert document at %s: %w", u, err)
	}

	doc, err := NewDocument(ctx, svc, u)
	if err != nil {
		return nil, err
	}
	if err := mintFCLID(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// mintFCLID allocates a Find Case Law identifier for a document that
// has none and persists the collection.
func mintFCLID(ctx context.Context, d *Document) error {
	if len(d.Identifiers().OfType(identifiers.NamespaceFCLID)) > 0 {
		return nil
	}
	schema, ok := d.svc.Registry.Lookup(identifiers.NamespaceFCLID)
	if !ok {
		return fmt.Errorf("no fclid schema registered")
	}
	minter, ok := schema.(identifiers.Minter)
	if !ok {
		return fmt.Errorf("fclid schema cannot mint")
	}
	value, err := minter.Mint(ctx, d.svc.Store)
	if err != nil {
		return fmt.Errorf("cannot mint identifier for %s: %w", d.uri, err)
	}
	id, err := identifiers.New(schema, value)
	if err != nil {
		return err
	}
	d.Identifiers().Add(id)

	packed, err := d.Identifiers().PackXML()
	if err != nil {
		return err
	}
	if err := d.svc.Store.SetIdentifiersXML(ctx, d.uri, packed); err != nil {
		return fmt.Errorf("cannot save minted identifier for %s: %w", d.uri, err)
	}
	return nil
}
