package events

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// fakeSNS records publish calls, optionally failing the first n.
type fakeSNS struct {
	inputs   []*sns.PublishInput
	failures int
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("throttled")
	}
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func testPublisher(fake *fakeSNS) *Publisher {
	return newPublisher(fake, &Config{
		TopicARN:   "arn:aws:sns:eu-west-2:1234:caselaw-events",
		Region:     "eu-west-2",
		MaxRetries: 3,
	}, hclog.NewNullLogger())
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{Region: "eu-west-2"}
	assert.ErrorContains(t, cfg.Validate(), "topic ARN is required")

	cfg = &Config{TopicARN: "arn:aws:sns:eu-west-2:1234:topic"}
	assert.ErrorContains(t, cfg.Validate(), "region is required")
}

func TestPublishLifecycleEvent(t *testing.T) {
	t.Run("publish event", func(t *testing.T) {
		fake := &fakeSNS{}
		err := testPublisher(fake).PublishLifecycleEvent(context.Background(), uri.MustParseDocumentURI("uksc/2023/1"), StatusPublish)
		require.NoError(t, err)
		require.Len(t, fake.inputs, 1)

		input := fake.inputs[0]
		assert.Equal(t, "arn:aws:sns:eu-west-2:1234:caselaw-events", aws.ToString(input.TopicArn))

		var event LifecycleEvent
		require.NoError(t, json.Unmarshal([]byte(aws.ToString(input.Message)), &event))
		assert.Equal(t, "uksc/2023/1", event.URIReference)
		assert.Equal(t, StatusPublish, event.Status)

		assert.Equal(t, "publish", aws.ToString(input.MessageAttributes["update_type"].StringValue))
		assert.Equal(t, "uksc/2023/1", aws.ToString(input.MessageAttributes["uri_reference"].StringValue))
		assert.NotContains(t, input.MessageAttributes, "trigger_enrichment")
	})

	t.Run("enrich event carries trigger_enrichment", func(t *testing.T) {
		fake := &fakeSNS{}
		err := testPublisher(fake).PublishLifecycleEvent(context.Background(), uri.MustParseDocumentURI("uksc/2023/1"), StatusEnrich)
		require.NoError(t, err)

		attr, ok := fake.inputs[0].MessageAttributes["trigger_enrichment"]
		require.True(t, ok)
		assert.Equal(t, "Number", aws.ToString(attr.DataType))
		assert.Equal(t, "1", aws.ToString(attr.StringValue))
	})
}

func TestPublishRetriesTransientFailures(t *testing.T) {
	fake := &fakeSNS{failures: 2}
	err := testPublisher(fake).PublishLifecycleEvent(context.Background(), uri.MustParseDocumentURI("uksc/2023/1"), StatusUnpublish)
	require.NoError(t, err)
	assert.Len(t, fake.inputs, 3, "two failed attempts plus the success")
}

func TestPublishGivesUpAfterMaxRetries(t *testing.T) {
	fake := &fakeSNS{failures: 10}
	err := testPublisher(fake).PublishLifecycleEvent(context.Background(), uri.MustParseDocumentURI("uksc/2023/1"), StatusPublish)
	require.Error(t, err)
	assert.Len(t, fake.inputs, 4, "initial attempt plus MaxRetries")
}

func TestPublishParseRequest(t *testing.T) {
	fake := &fakeSNS{}
	req := ParseRequest{
		DocumentType: "judgment",
		Name:         "A v B",
		Cite:         "[2023] UKSC 1",
		Court:        "UKSC",
		Date:         "2023-02-03",
		URI:          "uksc/2023/1",
		S3Bucket:     "private",
		S3Key:        "uksc/2023/1/uksc_2023_1.docx",
		Reference:    "TDR-2023-ABC",
		Timestamp:    time.Date(2023, 2, 3, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, testPublisher(fake).PublishParseRequest(context.Background(), req))
	require.Len(t, fake.inputs, 1)

	var msg map[string]any
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(fake.inputs[0].Message)), &msg))

	properties := msg["properties"].(map[string]any)
	assert.Equal(t, "uk.gov.nationalarchives.da.messages.request.courtdocument.parse.RequestCourtDocumentParse", properties["messageType"])
	assert.Equal(t, "fcl-judgment-parse-request", properties["function"])
	assert.Equal(t, "FCL", properties["producer"])
	assert.Equal(t, "2023-02-03T12:00:00Z", properties["timestamp"])
	assert.NotEmpty(t, properties["executionId"])
	assert.Nil(t, properties["parentExecutionId"])

	parameters := msg["parameters"].(map[string]any)
	assert.Equal(t, "private", parameters["s3Bucket"])
	assert.Equal(t, "uksc/2023/1/uksc_2023_1.docx", parameters["s3Key"])
	assert.Equal(t, "TDR-2023-ABC", parameters["reference"])
	assert.Equal(t, "FCL", parameters["originator"])

	instructions := parameters["parserInstructions"].(map[string]any)
	assert.Equal(t, "judgment", instructions["documentType"])
	metadata := instructions["metadata"].(map[string]any)
	assert.Equal(t, "A v B", metadata["name"])
	assert.Equal(t, "[2023] UKSC 1", metadata["cite"])
	assert.Equal(t, "uksc/2023/1", metadata["uri"])
}

func TestParseRequestNullsEmptyMetadata(t *testing.T) {
	req := ParseRequest{
		DocumentType: "judgment",
		URI:          "failures/tdr-2023-abc",
		S3Bucket:     "private",
		S3Key:        "failures/tdr-2023-abc/failures_tdr-2023-abc.docx",
		Timestamp:    time.Date(2023, 2, 3, 12, 0, 0, 0, time.UTC),
	}
	body, err := req.MarshalMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(body, &msg))
	metadata := msg["parameters"].(map[string]any)["parserInstructions"].(map[string]any)["metadata"].(map[string]any)

	for _, field := range []string{"name", "cite", "court", "date"} {
		value, present := metadata[field]
		assert.True(t, present, "%s must be serialised", field)
		assert.Nil(t, value, "%s must be null, not empty", field)
	}
	assert.Equal(t, "failures/tdr-2023-abc", metadata["uri"])
	assert.Nil(t, msg["parameters"].(map[string]any)["reference"])
}
