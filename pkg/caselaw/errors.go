package caselaw

import (
	"fmt"
	"strings"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// DocumentNotFoundError reports that no document exists at the URI.
type DocumentNotFoundError struct {
	URI uri.DocumentURI
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("document %s does not exist", e.URI)
}

// CannotPublishUnpublishableDocumentError reports a publish attempt on a
// document that fails one or more validation checks.
type CannotPublishUnpublishableDocumentError struct {
	URI      uri.DocumentURI
	Messages []string
}

func (e *CannotPublishUnpublishableDocumentError) Error() string {
	return fmt.Sprintf("document %s is not publishable: %s", e.URI, strings.Join(e.Messages, "; "))
}

// DocumentNotSafeForDeletionError reports a delete attempt on a
// published document.
type DocumentNotSafeForDeletionError struct {
	URI uri.DocumentURI
}

func (e *DocumentNotSafeForDeletionError) Error() string {
	return fmt.Sprintf("document %s is published and cannot be deleted", e.URI)
}

// NotSupportedOnVersionError reports an operation that is only legal on
// a current document, invoked on a stored version.
type NotSupportedOnVersionError struct {
	URI       uri.DocumentURI
	Operation string
}

func (e *NotSupportedOnVersionError) Error() string {
	return fmt.Sprintf("%s is not supported on version document %s", e.Operation, e.URI)
}

// OnlySupportedOnVersionError reports an operation that is only legal on
// a stored version, invoked on a current document.
type OnlySupportedOnVersionError struct {
	URI       uri.DocumentURI
	Operation string
}

func (e *OnlySupportedOnVersionError) Error() string {
	return fmt.Sprintf("%s is only supported on version documents, and %s is not one", e.Operation, e.URI)
}

// MergeSourceIsUnsafeError reports that the source document failed the
// merge eligibility checks.
type MergeSourceIsUnsafeError struct {
	URI      uri.DocumentURI
	Messages []string
}

func (e *MergeSourceIsUnsafeError) Error() string {
	return fmt.Sprintf("document %s is not a safe merge source: %s", e.URI, strings.Join(e.Messages, "; "))
}

// MergeTargetIsUnsafeError reports that the target document failed the
// merge compatibility checks.
type MergeTargetIsUnsafeError struct {
	URI      uri.DocumentURI
	Messages []string
}

func (e *MergeTargetIsUnsafeError) Error() string {
	return fmt.Sprintf("document %s is not a safe merge target: %s", e.URI, strings.Join(e.Messages, "; "))
}

// NeutralCitationToURIError reports a citation that cannot be converted
// to a document URI.
type NeutralCitationToURIError struct {
	Citation string
	Err      error
}

func (e *NeutralCitationToURIError) Error() string {
	return fmt.Sprintf("cannot derive a document URI from citation %q: %v", e.Citation, e.Err)
}

func (e *NeutralCitationToURIError) Unwrap() error { return e.Err }

// MoveJudgmentError reports a move whose target URI is already occupied.
type MoveJudgmentError struct {
	From uri.DocumentURI
	To   uri.DocumentURI
}

func (e *MoveJudgmentError) Error() string {
	return fmt.Sprintf("cannot move %s to %s: a document already exists there", e.From, e.To)
}

// OverwriteJudgmentError reports an overwrite whose target does not
// exist; overwriting requires an existing document to replace.
type OverwriteJudgmentError struct {
	From uri.DocumentURI
	To   uri.DocumentURI
}

func (e *OverwriteJudgmentError) Error() string {
	return fmt.Sprintf("cannot overwrite %s from %s: no document exists there", e.To, e.From)
}

// WrongDocumentTypeError reports a subtype cast on a document of a
// different type.
type WrongDocumentTypeError struct {
	URI    uri.DocumentURI
	Want   string
	Actual string
}

func (e *WrongDocumentTypeError) Error() string {
	return fmt.Sprintf("document %s is a %s, not a %s", e.URI, e.Actual, e.Want)
}
