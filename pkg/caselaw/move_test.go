package caselaw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

func TestMoveToExistingURI(t *testing.T) {
	store := newFakeStore()
	assets := &fakeAssets{}
	svc := testServices(store, assets, &fakePublisher{})

	fromURI := uri.MustParseDocumentURI("test/2023/123")
	targetURI := uri.MustParseDocumentURI("eat/2023/1")
	seedJudgment(store, fromURI, judgmentXML("A v B", "EAT", "[2023] EAT 1", "2023-02-03", ""), "")
	seedJudgment(store, targetURI, judgmentXML("C v D", "EAT", "[2023] EAT 1", "2023-01-01", ""), "")
	store.mutations = nil

	doc := loadDocument(t, svc, fromURI)
	_, err := doc.Move(context.Background(), "[2023] EAT 1")

	var moveErr *MoveJudgmentError
	require.ErrorAs(t, err, &moveErr)
	assert.Equal(t, targetURI, moveErr.To)

	assert.Empty(t, store.mutations, "no writes when the target is occupied")
	assert.Empty(t, assets.copies)
	_, exists := store.documents[fromURI]
	assert.True(t, exists)
}

func TestMoveRelocatesDocument(t *testing.T) {
	store := newFakeStore()
	assets := &fakeAssets{}
	svc := testServices(store, assets, &fakePublisher{})

	fromURI := uri.MustParseDocumentURI("test/2023/123")
	targetURI := uri.MustParseDocumentURI("eat/2023/1")
	body := []byte(`<akomaNtoso xmlns="http://docs.oasis-open.org/legaldocml/ns/akn/3.0" xmlns:uk="https://caselaw.nationalarchives.gov.uk/akn">
  <judgment name="judgment"><meta><identification><FRBRWork>
    <FRBRthis value="https://caselaw.nationalarchives.gov.uk/id/test/2023/123"/>
    <FRBRuri value="https://caselaw.nationalarchives.gov.uk/test/2023/123"/>
    <FRBRname value="A v B"/>
  </FRBRWork></identification><proprietary><uk:court>EAT</uk:court><uk:cite>[2023] EAT 1</uk:cite></proprietary></meta></judgment>
</akomaNtoso>`)
	seedJudgment(store, fromURI, body, "")
	store.properties[fromURI] = map[string]string{
		propSourceName:           "A Submitter",
		propConsignmentReference: "TDR-2023-ABC",
	}

	doc := loadDocument(t, svc, fromURI)
	moved, err := doc.Move(context.Background(), "[2023] EAT 1")
	require.NoError(t, err)
	assert.Equal(t, targetURI, moved)

	_, oldExists := store.documents[fromURI]
	assert.False(t, oldExists, "the original document is deleted")

	newBody := string(store.documents[targetURI])
	assert.Contains(t, newBody, "https://caselaw.nationalarchives.gov.uk/id/eat/2023/1")
	assert.Contains(t, newBody, "https://caselaw.nationalarchives.gov.uk/eat/2023/1")
	assert.NotContains(t, newBody, "test/2023/123")

	assert.Equal(t, "A Submitter", store.properties[targetURI][propSourceName])
	assert.Equal(t, "TDR-2023-ABC", store.properties[targetURI][propConsignmentReference])
	assert.Equal(t, [][2]uri.DocumentURI{{fromURI, targetURI}}, assets.copies)
	assert.Empty(t, store.checkouts, "the rewrite lease is released")
}

func TestMoveWithInvalidCitation(t *testing.T) {
	store := newFakeStore()
	svc := testServices(store, &fakeAssets{}, &fakePublisher{})

	fromURI := uri.MustParseDocumentURI("test/2023/123")
	seedJudgment(store, fromURI, judgmentXML("A v B", "UKSC", "[2023] UKSC 1", "2023-02-03", ""), "")

	doc := loadDocument(t, svc, fromURI)
	_, err := doc.Move(context.Background(), "[2245] NCC 1701")

	var citationErr *NeutralCitationToURIError
	require.ErrorAs(t, err, &citationErr)
	assert.Equal(t, "[2245] NCC 1701", citationErr.Citation)
}

func TestOverwrite(t *testing.T) {
	t.Run("requires an existing target", func(t *testing.T) {
		store := newFakeStore()
		svc := testServices(store, &fakeAssets{}, &fakePublisher{})

		fromURI := uri.MustParseDocumentURI("test/2023/123")
		seedJudgment(store, fromURI, judgmentXML("A v B", "EAT", "[2023] EAT 1", "2023-02-03", ""), "")

		doc := loadDocument(t, svc, fromURI)
		_, err := doc.Overwrite(context.Background(), "[2023] EAT 1")

		var overwriteErr *OverwriteJudgmentError
		require.ErrorAs(t, err, &overwriteErr)
	})

	t.Run("replaces the target and annotates the provenance", func(t *testing.T) {
		store := newFakeStore()
		svc := testServices(store, &fakeAssets{}, &fakePublisher{})

		fromURI := uri.MustParseDocumentURI("test/2023/123")
		targetURI := uri.MustParseDocumentURI("eat/2023/1")
		seedJudgment(store, fromURI, judgmentXML("A v B", "EAT", "[2023] EAT 1", "2023-02-03", ""), "")
		seedJudgment(store, targetURI, judgmentXML("C v D", "EAT", "[2023] EAT 1", "2023-01-01", ""), "")

		doc := loadDocument(t, svc, fromURI)
		moved, err := doc.Overwrite(context.Background(), "[2023] EAT 1")
		require.NoError(t, err)
		assert.Equal(t, targetURI, moved)

		_, oldExists := store.documents[fromURI]
		assert.False(t, oldExists)

		annotation := store.annotations[versionURI(targetURI, 2)]
		assert.Contains(t, annotation, "overwritten from test/2023/123")
	})
}
