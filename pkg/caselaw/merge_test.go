package caselaw

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/marklogic"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// mergePair seeds a fresh source (one version, newer manifestation) and
// an older target.
func mergePair(store *fakeStore) (source, target uri.DocumentURI) {
	source = uri.MustParseDocumentURI("parked/a1b2c3d4")
	target = uri.MustParseDocumentURI("uksc/2023/1")

	sourceMeta := manifestationDates(map[string]string{ManifestationTransform: "2023-05-01T10:00:00"})
	targetMeta := manifestationDates(map[string]string{ManifestationTransform: "2023-01-01T10:00:00"})
	seedJudgment(store, source, judgmentXML("A v B", "UKSC", "[2023] UKSC 1", "2023-02-03", sourceMeta), "")
	seedJudgment(store, target, judgmentXML("A v B", "UKSC", "[2023] UKSC 1", "2023-02-03", targetMeta), "")
	return source, target
}

func TestMergeRejectsSourceWithMultipleVersions(t *testing.T) {
	store := newFakeStore()
	assets := &fakeAssets{}
	svc := testServices(store, assets, &fakePublisher{})

	sourceURI, targetURI := mergePair(store)
	store.versions[sourceURI] = []marklogic.Version{
		{URI: versionURI(sourceURI, 2), Number: 2},
		{URI: versionURI(sourceURI, 1), Number: 1},
	}
	store.mutations = nil

	source := loadDocument(t, svc, sourceURI)
	target := loadDocument(t, svc, targetURI)

	err := NewMergeManager(svc).Merge(context.Background(), source, target, MergeOptions{CallingAgent: "an-editor"})

	var unsafe *MergeSourceIsUnsafeError
	require.ErrorAs(t, err, &unsafe)
	assert.Contains(t, unsafe.Error(), "more than one version")

	assert.Empty(t, store.mutations, "no writes when the source is unsafe")
	assert.Empty(t, assets.copies)
}

func TestMergeRejectsPublishedSource(t *testing.T) {
	store := newFakeStore()
	svc := testServices(store, &fakeAssets{}, &fakePublisher{})

	sourceURI, targetURI := mergePair(store)
	store.properties[sourceURI] = map[string]string{propPublished: "true"}

	source := loadDocument(t, svc, sourceURI)
	target := loadDocument(t, svc, targetURI)

	err := NewMergeManager(svc).Merge(context.Background(), source, target, MergeOptions{CallingAgent: "an-editor"})

	var unsafe *MergeSourceIsUnsafeError
	require.ErrorAs(t, err, &unsafe)
	assert.Contains(t, unsafe.Error(), "has been published")
	assert.Contains(t, unsafe.Error(), "not safe to delete")
}

func TestMergeTargetBattery(t *testing.T) {
	t.Run("same document", func(t *testing.T) {
		store := newFakeStore()
		svc := testServices(store, &fakeAssets{}, &fakePublisher{})
		sourceURI, _ := mergePair(store)
		source := loadDocument(t, svc, sourceURI)

		err := NewMergeManager(svc).Merge(context.Background(), source, source, MergeOptions{CallingAgent: "an-editor"})

		var unsafe *MergeTargetIsUnsafeError
		require.ErrorAs(t, err, &unsafe)
		assert.Contains(t, unsafe.Error(), "same document")
	})

	t.Run("differing document types", func(t *testing.T) {
		store := newFakeStore()
		svc := testServices(store, &fakeAssets{}, &fakePublisher{})
		sourceURI, targetURI := mergePair(store)
		store.documents[targetURI] = pressSummaryXML("Press Summary of A v B", "UKSC", "[2023] UKSC 1")

		source := loadDocument(t, svc, sourceURI)
		target := loadDocument(t, svc, targetURI)

		err := NewMergeManager(svc).Merge(context.Background(), source, target, MergeOptions{CallingAgent: "an-editor"})

		var unsafe *MergeTargetIsUnsafeError
		require.ErrorAs(t, err, &unsafe)
		assert.Contains(t, unsafe.Error(), "the source is a judgment but the target is a press-summary")
	})

	t.Run("source older than target", func(t *testing.T) {
		store := newFakeStore()
		svc := testServices(store, &fakeAssets{}, &fakePublisher{})
		sourceURI, targetURI := mergePair(store)

		older := manifestationDates(map[string]string{ManifestationTransform: "2022-01-01T10:00:00"})
		store.documents[sourceURI] = judgmentXML("A v B", "UKSC", "[2023] UKSC 1", "2023-02-03", older)

		source := loadDocument(t, svc, sourceURI)
		target := loadDocument(t, svc, targetURI)

		err := NewMergeManager(svc).Merge(context.Background(), source, target, MergeOptions{CallingAgent: "an-editor"})

		var unsafe *MergeTargetIsUnsafeError
		require.ErrorAs(t, err, &unsafe)
		assert.Contains(t, unsafe.Error(), "not newer than the target")
	})
}

func TestMergeEffect(t *testing.T) {
	store := newFakeStore()
	assets := &fakeAssets{}
	svc := testServices(store, assets, &fakePublisher{})

	sourceURI, targetURI := mergePair(store)

	sourceAnnotation, err := VersionAnnotation{
		Type:            VersionSubmission,
		Message:         "resubmitted by TDR",
		CallingFunction: "ingest",
		CallingAgent:    "tdr-pipeline",
		Payload:         map[string]any{"consignment": "TDR-2023-ABC"},
	}.AsJSON()
	require.NoError(t, err)
	store.annotations[versionURI(sourceURI, 1)] = sourceAnnotation

	source := loadDocument(t, svc, sourceURI)
	target := loadDocument(t, svc, targetURI)
	sourceBody := string(source.Body().Bytes())

	require.NoError(t, NewMergeManager(svc).Merge(context.Background(), source, target, MergeOptions{
		CallingAgent: "an-editor",
		Automated:    false,
	}))

	assert.Equal(t, sourceBody, string(store.documents[targetURI]), "target body replaced by the source's")

	_, sourceExists := store.documents[sourceURI]
	assert.False(t, sourceExists, "source document deleted")
	assert.Equal(t, [][2]uri.DocumentURI{{sourceURI, targetURI}}, assets.copies)

	var annotation VersionAnnotation
	raw := store.annotations[versionURI(targetURI, 2)]
	require.NoError(t, json.Unmarshal([]byte(raw), &annotation))
	assert.Equal(t, VersionMerge, annotation.Type)
	assert.Equal(t, "resubmitted by TDR", annotation.Message)
	assert.Equal(t, "an-editor", annotation.CallingAgent)
	assert.Equal(t, mergeCallingFunction, annotation.CallingFunction)
	assert.False(t, annotation.Automated)
	assert.Equal(t, "parked/a1b2c3d4", annotation.Payload["merge_source"])
	assert.Equal(t, "TDR-2023-ABC", annotation.Payload["consignment"])

	assert.Empty(t, store.checkouts, "the merge lease is released")
}
