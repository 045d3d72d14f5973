package caselaw

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionAnnotationAsJSON(t *testing.T) {
	t.Run("requires a calling function", func(t *testing.T) {
		_, err := VersionAnnotation{Type: VersionEdit, CallingAgent: "an-editor"}.AsJSON()
		assert.ErrorContains(t, err, "no calling function")
	})

	t.Run("requires a calling agent", func(t *testing.T) {
		_, err := VersionAnnotation{Type: VersionEdit, CallingFunction: "edit-judgment"}.AsJSON()
		assert.ErrorContains(t, err, "no calling agent")
	})

	t.Run("serialises to canonical JSON", func(t *testing.T) {
		raw, err := VersionAnnotation{
			Type:            VersionEnrichment,
			Message:         "enriched",
			Automated:       true,
			CallingFunction: "enrichment-pipeline",
			CallingAgent:    "enrichment",
		}.AsJSON()
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
		assert.Equal(t, "enrichment", decoded["type"])
		assert.Equal(t, true, decoded["automated"])
		_, hasPayload := decoded["payload"]
		assert.False(t, hasPayload, "empty payload is omitted")
	})
}

func TestParseVersionAnnotation(t *testing.T) {
	t.Run("structured annotation round-trips", func(t *testing.T) {
		raw, err := VersionAnnotation{
			Type:            VersionSubmission,
			Message:         "first submission",
			CallingFunction: "ingest",
			CallingAgent:    "tdr-pipeline",
		}.AsJSON()
		require.NoError(t, err)

		parsed := ParseVersionAnnotation(raw)
		assert.Equal(t, VersionSubmission, parsed.Type)
		assert.Equal(t, "first submission", parsed.Message)
	})

	t.Run("legacy plain-text annotation becomes the message", func(t *testing.T) {
		parsed := ParseVersionAnnotation("edited by hand in 2021")
		assert.Equal(t, VersionType(""), parsed.Type)
		assert.Equal(t, "edited by hand in 2021", parsed.Message)
	})
}
