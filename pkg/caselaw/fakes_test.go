package caselaw

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/events"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/identifiers"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/marklogic"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// fakeStore is an in-memory StoreClient that records every mutation.
type fakeStore struct {
	documents     map[uri.DocumentURI][]byte
	properties    map[uri.DocumentURI]map[string]string
	identifierXML map[uri.DocumentURI][]byte
	versions      map[uri.DocumentURI][]marklogic.Version
	annotations   map[uri.DocumentURI]string
	resolutions   map[string][]identifiers.Resolution
	checkouts     map[uri.DocumentURI]string
	schemaInvalid map[uri.DocumentURI]bool
	sequence      int64

	mutations []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		documents:     make(map[uri.DocumentURI][]byte),
		properties:    make(map[uri.DocumentURI]map[string]string),
		identifierXML: make(map[uri.DocumentURI][]byte),
		versions:      make(map[uri.DocumentURI][]marklogic.Version),
		annotations:   make(map[uri.DocumentURI]string),
		resolutions:   make(map[string][]identifiers.Resolution),
		checkouts:     make(map[uri.DocumentURI]string),
		schemaInvalid: make(map[uri.DocumentURI]bool),
	}
}

func (f *fakeStore) mutated(op string) { f.mutations = append(f.mutations, op) }

func (f *fakeStore) DocumentExists(_ context.Context, u uri.DocumentURI) (bool, error) {
	_, ok := f.documents[u]
	return ok, nil
}

func (f *fakeStore) GetDocumentXML(_ context.Context, u uri.DocumentURI, _ marklogic.GetDocumentOptions) ([]byte, error) {
	return f.documents[u], nil
}

func (f *fakeStore) InsertDocument(_ context.Context, u uri.DocumentURI, body []byte, annotation string) error {
	f.mutated("insert " + string(u))
	f.documents[u] = body
	f.versions[u] = []marklogic.Version{{URI: versionURI(u, 1), Number: 1}}
	f.annotations[versionURI(u, 1)] = annotation
	return nil
}

func (f *fakeStore) UpdateDocument(_ context.Context, u uri.DocumentURI, body []byte, annotation string) error {
	if _, held := f.checkouts[u]; !held {
		return &marklogic.ResourceNotCheckedOutError{}
	}
	f.mutated("update " + string(u))
	f.documents[u] = body
	next := len(f.versions[u]) + 1
	f.versions[u] = append([]marklogic.Version{{URI: versionURI(u, next), Number: next}}, f.versions[u]...)
	f.annotations[versionURI(u, next)] = annotation
	return nil
}

func (f *fakeStore) CopyDocument(_ context.Context, from, to uri.DocumentURI) error {
	f.mutated(fmt.Sprintf("copy %s to %s", from, to))
	f.documents[to] = f.documents[from]
	f.versions[to] = f.versions[from]
	return nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, u uri.DocumentURI) error {
	f.mutated("delete " + string(u))
	delete(f.documents, u)
	return nil
}

func (f *fakeStore) ValidatesAgainstSchema(_ context.Context, u uri.DocumentURI) (bool, error) {
	return !f.schemaInvalid[u], nil
}

func (f *fakeStore) GetProperty(_ context.Context, u uri.DocumentURI, name string) (string, error) {
	return f.properties[u][name], nil
}

func (f *fakeStore) SetProperty(_ context.Context, u uri.DocumentURI, name, value string) error {
	f.mutated(fmt.Sprintf("set %s on %s", name, u))
	if f.properties[u] == nil {
		f.properties[u] = make(map[string]string)
	}
	f.properties[u][name] = value
	return nil
}

func (f *fakeStore) GetBoolean(ctx context.Context, u uri.DocumentURI, name string, fallback bool) (bool, error) {
	value, _ := f.GetProperty(ctx, u, name)
	if value == "" {
		return fallback, nil
	}
	return value == "true", nil
}

func (f *fakeStore) SetBoolean(ctx context.Context, u uri.DocumentURI, name string, value bool) error {
	return f.SetProperty(ctx, u, name, fmt.Sprintf("%t", value))
}

func (f *fakeStore) GetIdentifiersXML(_ context.Context, u uri.DocumentURI) ([]byte, error) {
	return f.identifierXML[u], nil
}

func (f *fakeStore) SetIdentifiersXML(_ context.Context, u uri.DocumentURI, packed []byte) error {
	f.mutated("set identifiers on " + string(u))
	f.identifierXML[u] = packed
	return nil
}

func (f *fakeStore) ListVersions(_ context.Context, u uri.DocumentURI) ([]marklogic.Version, error) {
	return f.versions[u], nil
}

func (f *fakeStore) GetVersionAnnotation(_ context.Context, versionURI uri.DocumentURI) (string, error) {
	return f.annotations[versionURI], nil
}

func (f *fakeStore) Checkout(_ context.Context, u uri.DocumentURI, annotation string, _ marklogic.CheckoutExpiry) error {
	f.checkouts[u] = annotation
	return nil
}

func (f *fakeStore) Checkin(_ context.Context, u uri.DocumentURI) error {
	delete(f.checkouts, u)
	return nil
}

func (f *fakeStore) BreakCheckout(_ context.Context, u uri.DocumentURI) error {
	delete(f.checkouts, u)
	return nil
}

func (f *fakeStore) CheckoutStatus(_ context.Context, u uri.DocumentURI) (string, error) {
	return f.checkouts[u], nil
}

func (f *fakeStore) NextSequenceNumber(_ context.Context, _ string) (int64, error) {
	f.sequence++
	return f.sequence, nil
}

func (f *fakeStore) ResolveFromSlug(_ context.Context, slug string) ([]identifiers.Resolution, error) {
	return f.resolutions["slug|"+slug], nil
}

func (f *fakeStore) ResolveFromValue(_ context.Context, namespace, value string) ([]identifiers.Resolution, error) {
	return f.resolutions[namespace+"|"+value], nil
}

func versionURI(u uri.DocumentURI, n int) uri.DocumentURI {
	return uri.DocumentURI(fmt.Sprintf("%s_xml_versions/%d-123", u, n))
}

// fakeAssets records asset operations.
type fakeAssets struct {
	hasDocx        bool
	published      []uri.DocumentURI
	unpublished    []uri.DocumentURI
	deletedPrivate []uri.DocumentURI
	copies         [][2]uri.DocumentURI
}

func (f *fakeAssets) PublishAssets(_ context.Context, u uri.DocumentURI) error {
	f.published = append(f.published, u)
	return nil
}

func (f *fakeAssets) UnpublishAssets(_ context.Context, u uri.DocumentURI) error {
	f.unpublished = append(f.unpublished, u)
	return nil
}

func (f *fakeAssets) DeletePrivateAssets(_ context.Context, u uri.DocumentURI) error {
	f.deletedPrivate = append(f.deletedPrivate, u)
	return nil
}

func (f *fakeAssets) CopyAssets(_ context.Context, from, to uri.DocumentURI) error {
	f.copies = append(f.copies, [2]uri.DocumentURI{from, to})
	return nil
}

func (f *fakeAssets) HasSourceDocx(_ context.Context, _ uri.DocumentURI) bool {
	return f.hasDocx
}

func (f *fakeAssets) PrivateBucket() string { return "private" }

// fakePublisher records emitted events.
type lifecycleCall struct {
	URI    uri.DocumentURI
	Status events.LifecycleStatus
}

type fakePublisher struct {
	lifecycle     []lifecycleCall
	parseRequests []events.ParseRequest
}

func (f *fakePublisher) PublishLifecycleEvent(_ context.Context, u uri.DocumentURI, status events.LifecycleStatus) error {
	f.lifecycle = append(f.lifecycle, lifecycleCall{URI: u, Status: status})
	return nil
}

func (f *fakePublisher) PublishParseRequest(_ context.Context, req events.ParseRequest) error {
	f.parseRequests = append(f.parseRequests, req)
	return nil
}

// testClock is a fixed instant all tests share.
var testClock = time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

func testServices(store *fakeStore, assets *fakeAssets, publisher *fakePublisher) *Services {
	svc := &Services{
		Store:  store,
		Assets: assets,
		Events: publisher,
		Clock:  func() time.Time { return testClock },
		Logger: hclog.NewNullLogger(),
	}
	svc.setDefaults()
	return svc
}

// judgmentXML builds a minimal Akoma Ntoso judgment body. extraMeta is
// inserted inside the identification block.
func judgmentXML(name, court, cite, date, extraMeta string) []byte {
	return []byte(fmt.Sprintf(`<akomaNtoso xmlns="http://docs.oasis-open.org/legaldocml/ns/akn/3.0" xmlns:uk="https://caselaw.nationalarchives.gov.uk/akn">
  <judgment name="judgment">
    <meta>
      <identification>
        <FRBRWork>
          <FRBRname value=%q/>
          <FRBRdate date=%q name="judgment"/>
        </FRBRWork>
        %s
      </identification>
      <proprietary>
        <uk:court>%s</uk:court>
        <uk:cite>%s</uk:cite>
      </proprietary>
    </meta>
    <judgmentBody/>
  </judgment>
</akomaNtoso>`, name, date, extraMeta, court, cite))
}

func manifestationDates(dates map[string]string) string {
	out := "<FRBRManifestation>"
	for name, date := range dates {
		out += fmt.Sprintf(`<FRBRdate date=%q name=%q/>`, date, name)
	}
	return out + "</FRBRManifestation>"
}

func pressSummaryXML(name, court, citation string) []byte {
	return []byte(fmt.Sprintf(`<akomaNtoso xmlns="http://docs.oasis-open.org/legaldocml/ns/akn/3.0" xmlns:uk="https://caselaw.nationalarchives.gov.uk/akn">
  <doc name="pressSummary">
    <meta>
      <identification>
        <FRBRWork>
          <FRBRname value=%q/>
          <FRBRdate date="2023-02-03" name="pressSummary"/>
        </FRBRWork>
      </identification>
      <proprietary>
        <uk:court>%s</uk:court>
      </proprietary>
    </meta>
    <preface><p><neutralCitation>%s</neutralCitation></p></preface>
  </doc>
</akomaNtoso>`, name, court, citation))
}

var parserErrorXML = []byte(`<error><message>could not parse DOCX</message></error>`)

func resolutionsFor(u uri.DocumentURI) []identifiers.Resolution {
	return []identifiers.Resolution{{DocumentURI: u}}
}

func publishedResolutionsFor(u uri.DocumentURI) []identifiers.Resolution {
	return []identifiers.Resolution{{DocumentURI: u, DocumentPublished: true}}
}

// seedJudgment stores a publishable judgment and returns the store
// contents ready to load.
func seedJudgment(store *fakeStore, u uri.DocumentURI, body []byte, cite string) {
	store.documents[u] = body
	store.versions[u] = []marklogic.Version{{URI: versionURI(u, 1), Number: 1}}
	if cite != "" {
		c := identifiers.NewCollection()
		c.Add(identifiers.MustNew(identifiers.NewNeutralCitationSchema(), cite))
		packed, err := c.PackXML()
		if err != nil {
			panic(err)
		}
		store.identifierXML[u] = packed
	}
}
