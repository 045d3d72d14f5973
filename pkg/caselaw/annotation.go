package caselaw

import (
	"encoding/json"
	"fmt"
)

// VersionType classifies why a version was written.
type VersionType string

const (
	VersionSubmission VersionType = "submission"
	VersionEnrichment VersionType = "enrichment"
	VersionEdit       VersionType = "edit"
	VersionMerge      VersionType = "merge"
)

// VersionAnnotation is the structured provenance recorded against every
// versioned write.
type VersionAnnotation struct {
	Type            VersionType    `json:"type"`
	Message         string         `json:"message"`
	Automated       bool           `json:"automated"`
	CallingFunction string         `json:"calling_function"`
	CallingAgent    string         `json:"calling_agent"`
	Payload         map[string]any `json:"payload,omitempty"`
}

// AsJSON serialises the annotation to its canonical form. The calling
// function and agent must be set first: an annotation that cannot name
// its author is not admissible provenance.
func (a VersionAnnotation) AsJSON() (string, error) {
	if a.CallingFunction == "" {
		return "", fmt.Errorf("version annotation has no calling function")
	}
	if a.CallingAgent == "" {
		return "", fmt.Errorf("version annotation has no calling agent")
	}
	out, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("cannot serialise version annotation: %w", err)
	}
	return string(out), nil
}

// ParseVersionAnnotation reads a stored annotation. Annotations written
// before provenance was structured are plain strings; these come back
// with the raw text as the message.
func ParseVersionAnnotation(raw string) VersionAnnotation {
	var a VersionAnnotation
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return VersionAnnotation{Message: raw}
	}
	return a
}
