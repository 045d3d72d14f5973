// Package caselaw is the core of the Find Case Law client library: the
// Document model and its lifecycle verbs, document subtypes with their
// validation rules, version discipline, and the merge manager. It talks
// to the document store, the asset buckets and the event bus through
// narrow interfaces satisfied by the facade packages.
package caselaw

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/events"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/identifiers"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/marklogic"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/storage"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// StoreClient is the document-store surface the core depends on,
// satisfied by marklogic.Client.
type StoreClient interface {
	DocumentExists(ctx context.Context, u uri.DocumentURI) (bool, error)
	GetDocumentXML(ctx context.Context, u uri.DocumentURI, opts marklogic.GetDocumentOptions) ([]byte, error)
	InsertDocument(ctx context.Context, u uri.DocumentURI, body []byte, annotation string) error
	UpdateDocument(ctx context.Context, u uri.DocumentURI, body []byte, annotation string) error
	CopyDocument(ctx context.Context, from, to uri.DocumentURI) error
	DeleteDocument(ctx context.Context, u uri.DocumentURI) error
	ValidatesAgainstSchema(ctx context.Context, u uri.DocumentURI) (bool, error)

	GetProperty(ctx context.Context, u uri.DocumentURI, name string) (string, error)
	SetProperty(ctx context.Context, u uri.DocumentURI, name, value string) error
	GetBoolean(ctx context.Context, u uri.DocumentURI, name string, fallback bool) (bool, error)
	SetBoolean(ctx context.Context, u uri.DocumentURI, name string, value bool) error
	GetIdentifiersXML(ctx context.Context, u uri.DocumentURI) ([]byte, error)
	SetIdentifiersXML(ctx context.Context, u uri.DocumentURI, packed []byte) error

	ListVersions(ctx context.Context, u uri.DocumentURI) ([]marklogic.Version, error)
	GetVersionAnnotation(ctx context.Context, versionURI uri.DocumentURI) (string, error)

	Checkout(ctx context.Context, u uri.DocumentURI, annotation string, expiry marklogic.CheckoutExpiry) error
	Checkin(ctx context.Context, u uri.DocumentURI) error
	BreakCheckout(ctx context.Context, u uri.DocumentURI) error
	CheckoutStatus(ctx context.Context, u uri.DocumentURI) (string, error)

	NextSequenceNumber(ctx context.Context, name string) (int64, error)
	ResolveFromSlug(ctx context.Context, slug string) ([]identifiers.Resolution, error)
	ResolveFromValue(ctx context.Context, namespace, value string) ([]identifiers.Resolution, error)
}

// AssetStore is the object-storage surface the core depends on,
// satisfied by storage.AssetStore.
type AssetStore interface {
	PublishAssets(ctx context.Context, u uri.DocumentURI) error
	UnpublishAssets(ctx context.Context, u uri.DocumentURI) error
	DeletePrivateAssets(ctx context.Context, u uri.DocumentURI) error
	CopyAssets(ctx context.Context, from, to uri.DocumentURI) error
	HasSourceDocx(ctx context.Context, u uri.DocumentURI) bool
	PrivateBucket() string
}

// EventPublisher is the event-bus surface the core depends on,
// satisfied by events.Publisher.
type EventPublisher interface {
	PublishLifecycleEvent(ctx context.Context, u uri.DocumentURI, status events.LifecycleStatus) error
	PublishParseRequest(ctx context.Context, req events.ParseRequest) error
}

// Services bundles the collaborators a Document needs. Construct one
// explicitly, or from the environment with NewServicesFromEnv.
type Services struct {
	Store  StoreClient
	Assets AssetStore
	Events EventPublisher

	// Registry maps identifier namespaces to schemas; nil uses the
	// built-in registry.
	Registry *identifiers.Registry

	// Clock supplies the current time; nil uses time.Now. Tests inject
	// a fixed clock.
	Clock func() time.Time

	Logger hclog.Logger
}

func (s *Services) setDefaults() {
	if s.Registry == nil {
		s.Registry = identifiers.DefaultRegistry()
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}
	if s.Logger == nil {
		s.Logger = hclog.NewNullLogger()
	}
}

// NewServicesFromEnv assembles the three facades from environment
// variables:
//
//	MARKLOGIC_HOST, MARKLOGIC_USER, MARKLOGIC_PASSWORD
//	AWS_REGION, S3_ENDPOINT (optional),
//	PRIVATE_ASSET_BUCKET, PUBLIC_ASSET_BUCKET
//	SNS_TOPIC_ARN, SNS_ENDPOINT (optional)
//
// AWS credentials come from the default chain unless AWS_ACCESS_KEY_ID
// and AWS_SECRET_ACCESS_KEY are set.
func NewServicesFromEnv(logger hclog.Logger) (*Services, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	store, err := marklogic.NewClient(marklogic.Config{
		Host:     os.Getenv("MARKLOGIC_HOST"),
		Username: os.Getenv("MARKLOGIC_USER"),
		Password: os.Getenv("MARKLOGIC_PASSWORD"),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("cannot build store client: %w", err)
	}

	assets, err := storage.NewAssetStore(&storage.Config{
		Endpoint:      os.Getenv("S3_ENDPOINT"),
		Region:        os.Getenv("AWS_REGION"),
		AccessKey:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey:     os.Getenv("AWS_SECRET_ACCESS_KEY"),
		PrivateBucket: os.Getenv("PRIVATE_ASSET_BUCKET"),
		PublicBucket:  os.Getenv("PUBLIC_ASSET_BUCKET"),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("cannot build asset store: %w", err)
	}

	publisher, err := events.NewPublisher(&events.Config{
		TopicARN:  os.Getenv("SNS_TOPIC_ARN"),
		Endpoint:  os.Getenv("SNS_ENDPOINT"),
		Region:    os.Getenv("AWS_REGION"),
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("cannot build event publisher: %w", err)
	}

	svc := &Services{
		Store:  store,
		Assets: assets,
		Events: publisher,
		Logger: logger,
	}
	svc.setDefaults()
	return svc, nil
}
