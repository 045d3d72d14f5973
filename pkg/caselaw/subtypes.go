package caselaw

import (
	"context"
	"fmt"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/identifiers"
)

// Judgment is a document whose body is an Akoma Ntoso judgment.
type Judgment struct {
	*Document
}

// AsJudgment casts the document, failing with WrongDocumentTypeError on
// any other type.
func AsJudgment(d *Document) (*Judgment, error) {
	if d.Type() != TypeJudgment {
		return nil, &WrongDocumentTypeError{URI: d.URI(), Want: TypeJudgment, Actual: d.Type()}
	}
	return &Judgment{Document: d}, nil
}

// NeutralCitation returns the judgment's citation: the preferred ukncn
// identifier, falling back to the proprietary metadata cite.
func (j *Judgment) NeutralCitation() string {
	return j.preferredCitationValue()
}

// HasNCN reports whether the proprietary metadata carries a citation.
func (j *Judgment) HasNCN() bool { return j.body.Cite() != "" }

// HasValidNCN reports whether that citation routes to a URL slug.
func (j *Judgment) HasValidNCN() bool { return validNCN(j.svc, j.body.Cite()) }

// LinkedPressSummaries finds the press summaries that cite this
// judgment, derived by identifier resolution rather than stored links.
func (j *Judgment) LinkedPressSummaries(ctx context.Context) ([]*PressSummary, error) {
	ncn := j.NeutralCitation()
	if ncn == "" {
		return nil, nil
	}
	resolutions, err := j.svc.Store.ResolveFromValue(ctx, identifiers.NamespacePressSummaryNCN, ncn)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve press summaries of %s: %w", j.uri, err)
	}

	summaries := make([]*PressSummary, 0, len(resolutions))
	for _, r := range resolutions {
		doc, err := NewDocument(ctx, j.svc, r.DocumentURI)
		if err != nil {
			return nil, err
		}
		summary, err := AsPressSummary(doc)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// PressSummary is a short companion document for a judgment.
type PressSummary struct {
	*Document
}

// AsPressSummary casts the document, failing with WrongDocumentTypeError
// on any other type.
func AsPressSummary(d *Document) (*PressSummary, error) {
	if d.Type() != TypePressSummary {
		return nil, &WrongDocumentTypeError{URI: d.URI(), Want: TypePressSummary, Actual: d.Type()}
	}
	return &PressSummary{Document: d}, nil
}

// NeutralCitation returns the citation of the parent judgment, taken
// from the summary's body text.
func (p *PressSummary) NeutralCitation() string {
	return p.body.NeutralCitationText()
}

// ParentJudgment resolves the summary's citation to its judgment,
// preferring a published one. A summary whose citation resolves to
// nothing has no parent and returns nil.
func (p *PressSummary) ParentJudgment(ctx context.Context) (*Judgment, error) {
	ncn := p.NeutralCitation()
	if ncn == "" {
		return nil, nil
	}
	resolutions, err := p.svc.Store.ResolveFromValue(ctx, identifiers.NamespaceNeutralCitation, ncn)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve parent judgment of %s: %w", p.uri, err)
	}
	if len(resolutions) == 0 {
		return nil, nil
	}
	chosen := resolutions[0]
	if published := identifiers.Published(resolutions); len(published) > 0 {
		chosen = published[0]
	}
	doc, err := NewDocument(ctx, p.svc, chosen.DocumentURI)
	if err != nil {
		return nil, err
	}
	return AsJudgment(doc)
}

// ParserLog is the record of a parse failure; its body root is <error>
// and it can never be published.
type ParserLog struct {
	*Document
}

// AsParserLog casts the document, failing with WrongDocumentTypeError on
// any other type.
func AsParserLog(d *Document) (*ParserLog, error) {
	if d.Type() != TypeParserLog {
		return nil, &WrongDocumentTypeError{URI: d.URI(), Want: TypeParserLog, Actual: d.Type()}
	}
	return &ParserLog{Document: d}, nil
}
