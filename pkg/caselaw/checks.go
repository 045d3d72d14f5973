package caselaw

import (
	"context"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/courts"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/identifiers"
)

func courtCatalogue() *courts.Catalogue { return courts.Default() }

// validationCheck is one publishability rule. Checks that only read
// cached body state ignore the context.
type validationCheck struct {
	name           string
	failureMessage string
	passes         func(ctx context.Context, d *Document) (bool, error)
}

// baseChecks apply to every document type.
var baseChecks = []validationCheck{
	{
		name:           "not_failure",
		failureMessage: "This document failed to parse",
		passes: func(_ context.Context, d *Document) (bool, error) {
			return !d.IsFailure(), nil
		},
	},
	{
		name:           "not_parked",
		failureMessage: "This document is currently parked at a temporary URI",
		passes: func(_ context.Context, d *Document) (bool, error) {
			return !d.IsParked(), nil
		},
	},
	{
		name:           "not_held",
		failureMessage: "This document is currently on hold",
		passes: func(ctx context.Context, d *Document) (bool, error) {
			held, err := d.IsHeld(ctx)
			return !held, err
		},
	},
	{
		name:           "has_name",
		failureMessage: "This document has no name",
		passes: func(_ context.Context, d *Document) (bool, error) {
			return d.HasName(), nil
		},
	},
	{
		name:           "has_valid_court",
		failureMessage: "The court for this document is not valid",
		passes: func(_ context.Context, d *Document) (bool, error) {
			return d.HasValidCourt(), nil
		},
	},
}

var judgmentChecks = append(append([]validationCheck{}, baseChecks...),
	validationCheck{
		name:           "has_ncn",
		failureMessage: "This judgment has no neutral citation number",
		passes: func(_ context.Context, d *Document) (bool, error) {
			return d.body.Cite() != "", nil
		},
	},
	validationCheck{
		name:           "has_valid_ncn",
		failureMessage: "The neutral citation number of this judgment is not valid",
		passes: func(_ context.Context, d *Document) (bool, error) {
			return validNCN(d.svc, d.body.Cite()), nil
		},
	},
)

var pressSummaryChecks = append(append([]validationCheck{}, baseChecks...),
	validationCheck{
		name:           "has_ncn",
		failureMessage: "This press summary has no neutral citation number",
		passes: func(_ context.Context, d *Document) (bool, error) {
			return d.body.NeutralCitationText() != "", nil
		},
	},
	validationCheck{
		name:           "has_valid_ncn",
		failureMessage: "The neutral citation number of this press summary is not valid",
		passes: func(_ context.Context, d *Document) (bool, error) {
			return validNCN(d.svc, d.body.NeutralCitationText()), nil
		},
	},
)

// checksFor returns the validation battery for a document type.
// A parser log only carries the base checks; its parse-failure body
// already fails the first one, so it is never publishable.
func checksFor(docType string) []validationCheck {
	switch docType {
	case TypeJudgment:
		return judgmentChecks
	case TypePressSummary:
		return pressSummaryChecks
	default:
		return baseChecks
	}
}

// validNCN reports whether the citation routes to a URL slug.
func validNCN(svc *Services, citation string) bool {
	if citation == "" {
		return false
	}
	schema, ok := svc.Registry.Lookup(identifiers.NamespaceNeutralCitation)
	if !ok {
		return false
	}
	_, err := schema.CompileURLSlug(citation)
	return err == nil
}
