package caselaw

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hashicorp/go-hclog"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/xmltools"
)

// Manifestation date names embedded in the FRBR metadata.
const (
	ManifestationTransform = "transform"
	ManifestationEnriched  = "tna-enriched"
)

// bodyNamespaces is the namespace map for every XPath the body runs.
var bodyNamespaces = map[string]string{
	"akn": xmltools.NamespaceAkomaNtoso,
	"uk":  xmltools.NamespaceUK,
}

// Body is an immutable typed view over a document's parsed XML.
// Accessors are evaluated on first use and cached; the same bytes
// always yield the same values.
type Body struct {
	accessor *xmltools.Accessor
	raw      []byte
	logger   hclog.Logger

	name         *string
	court        *string
	jurisdiction *string
	dateString   *string
	cite         *string
	citationText *string
}

// NewBody parses raw once, failing with xmltools.NonXMLDocumentError on
// malformed input.
func NewBody(raw []byte, logger hclog.Logger) (*Body, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	accessor, err := xmltools.NewAccessor(raw)
	if err != nil {
		return nil, err
	}
	return &Body{accessor: accessor, raw: raw, logger: logger}, nil
}

// Bytes returns the body exactly as fetched from the store.
func (b *Body) Bytes() []byte { return b.raw }

// Accessor exposes the underlying XML view for ad-hoc queries and
// transforms.
func (b *Body) Accessor() *xmltools.Accessor { return b.accessor }

// FailedToParse reports whether the body is a parser failure record
// rather than a document.
func (b *Body) FailedToParse() bool {
	return b.accessor.RootTagName() == "error"
}

func (b *Body) cachedString(cache **string, expr string) string {
	if *cache == nil {
		value, err := b.accessor.XPathString(expr, bodyNamespaces, "")
		if err != nil {
			b.logger.Warn("xpath query failed", "expr", expr, "error", err)
			value = ""
		}
		*cache = &value
	}
	return **cache
}

// Name returns the document's FRBR work name, e.g. "A v B".
func (b *Body) Name() string {
	return b.cachedString(&b.name, "//akn:FRBRWork/akn:FRBRname/@value")
}

// Court returns the court code from the proprietary metadata.
func (b *Body) Court() string {
	return b.cachedString(&b.court, "//uk:court")
}

// Jurisdiction returns the jurisdiction from the proprietary metadata,
// or "" when the court has no separate jurisdictions.
func (b *Body) Jurisdiction() string {
	return b.cachedString(&b.jurisdiction, "//uk:jurisdiction")
}

// Cite returns the neutral citation from the proprietary metadata.
func (b *Body) Cite() string {
	return b.cachedString(&b.cite, "//uk:cite")
}

// NeutralCitationText returns the citation quoted in the document text,
// which press summaries carry in place of proprietary metadata.
func (b *Body) NeutralCitationText() string {
	return b.cachedString(&b.citationText, "//akn:neutralCitation")
}

// CourtAndJurisdictionIdentifierString returns "court" when the
// jurisdiction is empty, else "court/jurisdiction".
func (b *Body) CourtAndJurisdictionIdentifierString() string {
	court := b.Court()
	if jurisdiction := b.Jurisdiction(); jurisdiction != "" {
		return court + "/" + jurisdiction
	}
	return court
}

// DocumentDateAsString returns the FRBR work date verbatim.
func (b *Body) DocumentDateAsString() string {
	return b.cachedString(&b.dateString, "//akn:FRBRWork/akn:FRBRdate/@date")
}

// DocumentDateAsDate parses the work date. Unparsable dates return nil
// with a warning rather than an error: stored documents carry dates in
// several historical formats.
func (b *Body) DocumentDateAsDate() *time.Time {
	raw := b.DocumentDateAsString()
	if raw == "" {
		return nil
	}
	parsed, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		b.logger.Warn("document date is unparsable", "date", raw, "error", err)
		return nil
	}
	return &parsed
}

// ManifestationDatetimes returns every FRBRManifestation date with the
// given name ("" for all), normalised to UTC. Naive timestamps are
// interpreted in loc (nil means UTC).
func (b *Body) ManifestationDatetimes(name string, loc *time.Location) ([]time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	expr := "//akn:FRBRManifestation/akn:FRBRdate/@date"
	if name != "" {
		expr = fmt.Sprintf("//akn:FRBRManifestation/akn:FRBRdate[@name=%q]/@date", name)
	}
	values, err := b.accessor.XPathStrings(expr, bodyNamespaces)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(values))
	for _, value := range values {
		parsed, err := dateparse.ParseIn(value, loc)
		if err != nil {
			b.logger.Warn("manifestation date is unparsable", "date", value, "error", err)
			continue
		}
		out = append(out, parsed.UTC())
	}
	return out, nil
}

// LatestManifestationDatetime returns the most recent manifestation
// date with the given name ("" for all), or nil when there is none.
func (b *Body) LatestManifestationDatetime(name string, loc *time.Location) *time.Time {
	datetimes, err := b.ManifestationDatetimes(name, loc)
	if err != nil || len(datetimes) == 0 {
		return nil
	}
	latest := datetimes[0]
	for _, dt := range datetimes[1:] {
		if dt.After(latest) {
			latest = dt
		}
	}
	return &latest
}

// LatestManifestationType reports which of the transform and enrichment
// stamps is most recent, or "" when the body carries neither.
func (b *Body) LatestManifestationType() string {
	transform := b.LatestManifestationDatetime(ManifestationTransform, nil)
	enriched := b.LatestManifestationDatetime(ManifestationEnriched, nil)
	switch {
	case transform == nil && enriched == nil:
		return ""
	case enriched == nil:
		return ManifestationTransform
	case transform == nil:
		return ManifestationEnriched
	case transform.After(*enriched):
		return ManifestationTransform
	default:
		return ManifestationEnriched
	}
}

// EnrichmentDatetime returns the most recent enrichment stamp, or nil
// when the document has never been enriched.
func (b *Body) EnrichmentDatetime() *time.Time {
	return b.LatestManifestationDatetime(ManifestationEnriched, nil)
}

// TransformationDatetime returns the most recent transform stamp, or
// nil when absent.
func (b *Body) TransformationDatetime() *time.Time {
	return b.LatestManifestationDatetime(ManifestationTransform, nil)
}
