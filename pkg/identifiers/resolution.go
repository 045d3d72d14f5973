package identifiers

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// Resolution links a public identifier to the document carrying it.
// Rows come back from the store's resolution query as JSON strings,
// each a flat map of dotted keys.
type Resolution struct {
	IdentifierUUID    string
	DocumentURI       uri.DocumentURI
	IdentifierSlug    string
	IdentifierValue   string
	Namespace         string
	IdentifierType    string
	DocumentPublished bool
}

// rawResolution mirrors the dotted-key row layout.
type rawResolution struct {
	IdentifierUUID    string `mapstructure:"identifier.uuid"`
	DocumentURI       string `mapstructure:"document.uri"`
	IdentifierSlug    string `mapstructure:"identifier.slug"`
	IdentifierValue   string `mapstructure:"identifier.value"`
	Namespace         string `mapstructure:"identifier.namespace"`
	IdentifierType    string `mapstructure:"identifier.type"`
	DocumentPublished bool   `mapstructure:"document.published"`
}

// DecodeResolution decodes one store-returned row.
func DecodeResolution(row []byte) (Resolution, error) {
	var fields map[string]any
	if err := json.Unmarshal(row, &fields); err != nil {
		return Resolution{}, fmt.Errorf("resolution row is not valid JSON: %w", err)
	}

	var raw rawResolution
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Resolution{}, err
	}
	if err := decoder.Decode(fields); err != nil {
		return Resolution{}, fmt.Errorf("cannot decode resolution row: %w", err)
	}

	return Resolution{
		IdentifierUUID:    raw.IdentifierUUID,
		DocumentURI:       documentURIFromRow(raw.DocumentURI),
		IdentifierSlug:    raw.IdentifierSlug,
		IdentifierValue:   raw.IdentifierValue,
		Namespace:         raw.Namespace,
		IdentifierType:    raw.IdentifierType,
		DocumentPublished: raw.DocumentPublished,
	}, nil
}

// DecodeResolutions decodes every row, in order.
func DecodeResolutions(rows [][]byte) ([]Resolution, error) {
	out := make([]Resolution, 0, len(rows))
	for _, row := range rows {
		r, err := DecodeResolution(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Published filters resolutions to those of published documents. A slug
// with no published resolution is a not-found condition; there is no
// network fallback.
func Published(resolutions []Resolution) []Resolution {
	out := make([]Resolution, 0, len(resolutions))
	for _, r := range resolutions {
		if r.DocumentPublished {
			out = append(out, r)
		}
	}
	return out
}

// documentURIFromRow accepts either the store-side or the public URI
// form and returns the public one.
func documentURIFromRow(s string) uri.DocumentURI {
	if ml, err := uri.NewMarkLogicURI(s); err == nil {
		return ml.AsDocumentURI()
	}
	return uri.DocumentURI(s)
}
