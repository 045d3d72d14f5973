package caselaw

import (
	"context"
	"fmt"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/marklogic"
)

// mergeCallingFunction names the merge entry point in annotations.
const mergeCallingFunction = "merge-documents"

// MergeOptions identifies who asked for a merge.
type MergeOptions struct {
	// CallingAgent names the editor or system performing the merge.
	CallingAgent string

	// Automated marks merges run without a human in the loop.
	Automated bool
}

// MergeManager folds one document into another: a freshly re-ingested
// document (the source) replaces the body of the document editors have
// been working on (the target), then disappears.
type MergeManager struct {
	svc *Services
}

// NewMergeManager wires a merge manager over the shared services.
func NewMergeManager(svc *Services) *MergeManager {
	svc.setDefaults()
	return &MergeManager{svc: svc}
}

// Merge runs the source and target safety batteries in order, then
// performs the merge. Nothing is written until both batteries pass.
func (m *MergeManager) Merge(ctx context.Context, source, target *Document, opts MergeOptions) error {
	sourceVersions, err := m.checkSource(ctx, source)
	if err != nil {
		return err
	}
	if err := m.checkTarget(ctx, source, target); err != nil {
		return err
	}

	annotation, err := m.rewriteAnnotation(ctx, source, sourceVersions, opts)
	if err != nil {
		return err
	}

	if err := target.Checkout(ctx, annotation, marklogic.CheckoutExpiry{}); err != nil {
		return fmt.Errorf("cannot check out merge target %s: %w", target.URI(), err)
	}
	if err := m.svc.Store.UpdateDocument(ctx, target.URI(), source.Body().Bytes(), annotation); err != nil {
		return fmt.Errorf("cannot write merged body to %s: %w", target.URI(), err)
	}
	if err := target.Checkin(ctx); err != nil {
		return fmt.Errorf("cannot check in merge target %s: %w", target.URI(), err)
	}

	if err := m.svc.Store.DeleteDocument(ctx, source.URI()); err != nil {
		return fmt.Errorf("cannot delete merge source %s: %w", source.URI(), err)
	}
	if err := m.svc.Assets.CopyAssets(ctx, source.URI(), target.URI()); err != nil {
		return fmt.Errorf("cannot copy merge source assets from %s to %s: %w", source.URI(), target.URI(), err)
	}

	m.svc.Logger.Info("merged documents", "source", source.URI(), "target", target.URI())
	return nil
}

// checkSource runs the source eligibility battery and returns the
// source's version list for the later annotation rewrite.
func (m *MergeManager) checkSource(ctx context.Context, source *Document) ([]marklogic.Version, error) {
	var messages []string
	var versions []marklogic.Version

	if source.IsVersion() {
		messages = append(messages, "the source document is itself a version")
	} else {
		var err error
		versions, err = source.Versions(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot list versions of merge source %s: %w", source.URI(), err)
		}
		if len(versions) != 1 {
			messages = append(messages, "the source document has more than one version")
		}
	}

	published, err := source.IsPublished(ctx)
	if err != nil {
		return nil, err
	}
	if published {
		messages = append(messages, "the source document has been published")
	}

	safe, err := source.SafeToDelete(ctx)
	if err != nil {
		return nil, err
	}
	if !safe {
		messages = append(messages, "the source document is not safe to delete")
	}

	if len(messages) > 0 {
		return nil, &MergeSourceIsUnsafeError{URI: source.URI(), Messages: messages}
	}
	return versions, nil
}

// checkTarget runs the target compatibility battery.
func (m *MergeManager) checkTarget(ctx context.Context, source, target *Document) error {
	var messages []string

	if source.URI() == target.URI() {
		messages = append(messages, "the source and target are the same document")
	}
	if target.IsVersion() {
		messages = append(messages, "the target document is itself a version")
	}
	if source.Type() != target.Type() {
		messages = append(messages, fmt.Sprintf(
			"the source is a %s but the target is a %s", source.Type(), target.Type()))
	}

	sourceLatest := source.Body().LatestManifestationDatetime("", nil)
	targetLatest := target.Body().LatestManifestationDatetime("", nil)
	switch {
	case sourceLatest == nil:
		messages = append(messages, "the source document has no manifestation date")
	case targetLatest != nil && !sourceLatest.After(*targetLatest):
		messages = append(messages, "the source document is not newer than the target document")
	}

	if len(messages) > 0 {
		return &MergeTargetIsUnsafeError{URI: target.URI(), Messages: messages}
	}
	return nil
}

// rewriteAnnotation turns the source's latest version annotation into
// the target-side merge annotation: type merge, the source's payload
// plus the source URI, authored by the merge entry point.
func (m *MergeManager) rewriteAnnotation(ctx context.Context, source *Document, versions []marklogic.Version, opts MergeOptions) (string, error) {
	var sourceAnnotation VersionAnnotation
	if len(versions) > 0 {
		raw, err := m.svc.Store.GetVersionAnnotation(ctx, versions[0].URI)
		if err != nil {
			return "", fmt.Errorf("cannot read annotation of %s: %w", versions[0].URI, err)
		}
		sourceAnnotation = ParseVersionAnnotation(raw)
	}

	payload := make(map[string]any, len(sourceAnnotation.Payload)+1)
	for k, v := range sourceAnnotation.Payload {
		payload[k] = v
	}
	payload["merge_source"] = string(source.URI())

	merged := VersionAnnotation{
		Type:            VersionMerge,
		Message:         sourceAnnotation.Message,
		Automated:       opts.Automated,
		CallingFunction: mergeCallingFunction,
		CallingAgent:    opts.CallingAgent,
		Payload:         payload,
	}
	return merged.AsJSON()
}
