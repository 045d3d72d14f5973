package identifiers

import (
	"fmt"
	"regexp"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/courts"
)

// NamespaceNeutralCitation is the namespace of judgment neutral
// citation numbers, e.g. "[2023] UKSC 1".
const NamespaceNeutralCitation = "ukncn"

// NamespacePressSummaryNCN is the namespace linking a press summary to
// the neutral citation of its parent judgment.
const NamespacePressSummaryNCN = "uksummaryofncn"

// neutralCitationPattern matches "[YEAR] COURT [DIV]? NUMBER (JUR)?".
var neutralCitationPattern = regexp.MustCompile(
	`^\[(\d{4})\] ([A-Z][A-Za-z]+)(?: ([A-Z][A-Za-z0-9]*))? (\d+)(?: \(([A-Za-z0-9]+)\))?$`)

// Citation is a parsed neutral citation number.
type Citation struct {
	Year         string
	Court        string
	Division     string
	Number       string
	Jurisdiction string
}

// ParseNeutralCitation splits a neutral citation into its components,
// failing with a pattern-kind ValidationError when the shape is wrong.
func ParseNeutralCitation(value string) (*Citation, error) {
	m := neutralCitationPattern.FindStringSubmatch(value)
	if m == nil {
		return nil, &ValidationError{
			Namespace: NamespaceNeutralCitation,
			Value:     value,
			Kind:      ErrKindPattern,
			Reason:    "does not match the neutral citation pattern [YEAR] COURT NUMBER",
		}
	}
	return &Citation{
		Year:         m[1],
		Court:        m[2],
		Division:     m[3],
		Number:       m[4],
		Jurisdiction: m[5],
	}, nil
}

// NeutralCitationSchema is the ukncn identifier schema. Values must
// match the citation pattern and must route to a URL slug through the
// court catalogue; the two failure modes are distinct.
type NeutralCitationSchema struct {
	catalogue *courts.Catalogue
}

// NewNeutralCitationSchema builds the schema over the embedded court
// catalogue.
func NewNeutralCitationSchema() *NeutralCitationSchema {
	return &NeutralCitationSchema{catalogue: courts.Default()}
}

func (s *NeutralCitationSchema) Name() string                { return "Neutral Citation Number" }
func (s *NeutralCitationSchema) Namespace() string           { return NamespaceNeutralCitation }
func (s *NeutralCitationSchema) HumanReadable() bool         { return true }
func (s *NeutralCitationSchema) BaseScoreMultiplier() float64 { return 1.5 }
func (s *NeutralCitationSchema) AllowEditing() bool          { return true }
func (s *NeutralCitationSchema) RequireGloballyUnique() bool { return true }
func (s *NeutralCitationSchema) SingleNonDeprecated() bool   { return true }
func (s *NeutralCitationSchema) DocumentTypes() []string     { return []string{"judgment"} }

// ValidateValue checks the pattern and then the court routing, so that
// "[2245] NCC 1701" fails with the routing error, not the pattern one.
func (s *NeutralCitationSchema) ValidateValue(value string) error {
	citation, err := ParseNeutralCitation(value)
	if err != nil {
		return err
	}
	if _, err := s.catalogue.PathFor(citation.Court, citation.Division, citation.Jurisdiction); err != nil {
		return &ValidationError{
			Namespace: s.Namespace(),
			Value:     value,
			Kind:      ErrKindRouting,
			Reason:    fmt.Sprintf("cannot be converted to a URL slug: %v", err),
		}
	}
	return nil
}

// CompileURLSlug routes the citation through the court catalogue:
// "[2022] EWHC 1 (Comm)" becomes "ewhc/comm/2022/1".
func (s *NeutralCitationSchema) CompileURLSlug(value string) (string, error) {
	citation, err := ParseNeutralCitation(value)
	if err != nil {
		return "", err
	}
	path, err := s.catalogue.PathFor(citation.Court, citation.Division, citation.Jurisdiction)
	if err != nil {
		return "", &ValidationError{
			Namespace: s.Namespace(),
			Value:     value,
			Kind:      ErrKindRouting,
			Reason:    fmt.Sprintf("cannot be converted to a URL slug: %v", err),
		}
	}
	return fmt.Sprintf("%s/%s/%s", path, citation.Year, citation.Number), nil
}

// PressSummaryNCNSchema is the uksummaryofncn schema: the value is the
// neutral citation of the parent judgment and the slug appends
// "/press-summary".
type PressSummaryNCNSchema struct {
	ncn *NeutralCitationSchema
}

// NewPressSummaryNCNSchema builds the schema over the embedded court
// catalogue.
func NewPressSummaryNCNSchema() *PressSummaryNCNSchema {
	return &PressSummaryNCNSchema{ncn: NewNeutralCitationSchema()}
}

func (s *PressSummaryNCNSchema) Name() string                 { return "Press Summary of Neutral Citation Number" }
func (s *PressSummaryNCNSchema) Namespace() string            { return NamespacePressSummaryNCN }
func (s *PressSummaryNCNSchema) HumanReadable() bool          { return true }
func (s *PressSummaryNCNSchema) BaseScoreMultiplier() float64 { return 0.8 }
func (s *PressSummaryNCNSchema) AllowEditing() bool           { return true }
func (s *PressSummaryNCNSchema) RequireGloballyUnique() bool  { return true }
func (s *PressSummaryNCNSchema) SingleNonDeprecated() bool    { return true }
func (s *PressSummaryNCNSchema) DocumentTypes() []string      { return []string{"press-summary"} }

func (s *PressSummaryNCNSchema) ValidateValue(value string) error {
	if err := s.ncn.ValidateValue(value); err != nil {
		if verr, ok := err.(*ValidationError); ok {
			verr.Namespace = s.Namespace()
		}
		return err
	}
	return nil
}

func (s *PressSummaryNCNSchema) CompileURLSlug(value string) (string, error) {
	slug, err := s.ncn.CompileURLSlug(value)
	if err != nil {
		return "", err
	}
	return slug + "/press-summary", nil
}
