package marklogic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// privilegeShowUnpublished is the execute privilege that gates access
// to unpublished documents.
const privilegeShowUnpublished = "https://caselaw.nationalarchives.gov.uk/custom/privileges/can-view-unpublished-documents"

// Client talks to the store over a persistent connection-pooled
// session authenticated by HTTP Basic.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     hclog.Logger

	// now supplies the current time for lease expiry computation; tests
	// pin it to a fixed instant.
	now func() time.Time
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, logger hclog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid MarkLogic configuration: %w", err)
	}
	cfg.SetDefaults()

	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	httpClient := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConns,
		},
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.Named("marklogic"),
		now:        time.Now,
	}, nil
}

// Response is a decoded multipart store response. The first part is the
// canonical payload; the rest are opaque to the client.
type Response struct {
	Parts [][]byte
}

// First returns the canonical payload part, or nil when the response
// was empty.
func (r *Response) First() []byte {
	if len(r.Parts) == 0 {
		return nil
	}
	return r.Parts[0]
}

// FirstString returns the canonical payload as a string.
func (r *Response) FirstString() string {
	return strings.TrimSpace(string(r.First()))
}

// Eval runs an ad-hoc XQuery on the store.
func (c *Client) Eval(ctx context.Context, xquery string, vars map[string]any) (*Response, error) {
	return c.post(ctx, "eval", "eval", url.Values{"xquery": {xquery}}, vars)
}

// Invoke runs a named server-side script, e.g. "get_judgment.xqy".
func (c *Client) Invoke(ctx context.Context, module string, vars map[string]any) (*Response, error) {
	return c.post(ctx, fmt.Sprintf("invoke %s", module), "invoke", url.Values{"module": {"/" + module}}, vars)
}

func (c *Client) post(ctx context.Context, operation, endpoint string, form url.Values, vars map[string]any) (*Response, error) {
	if vars == nil {
		vars = map[string]any{}
	}
	encodedVars, err := json.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("cannot encode vars for %s: %w", operation, err)
	}
	form.Set("vars", string(encodedVars))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(c.cfg.Host, "/")+"/LATEST/"+endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("cannot build request for %s: %w", operation, err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "multipart/mixed")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &CommunicationError{StoreError{
			Operation: operation,
			Message:   err.Error(),
		}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CommunicationError{StoreError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    err.Error(),
		}}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyResponse(operation, resp.StatusCode, body)
	}

	return decodeMultipart(operation, resp.Header.Get("Content-Type"), body)
}

// decodeMultipart splits a multipart/mixed body into parts. Responses
// that are not multipart (including empty 200s) become a single part.
func decodeMultipart(operation, contentType string, body []byte) (*Response, error) {
	if len(body) == 0 {
		return &Response{}, nil
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return &Response{Parts: [][]byte{body}}, nil
	}
	reader := multipart.NewReader(strings.NewReader(string(body)), params["boundary"])
	var parts [][]byte
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &CommunicationError{StoreError{
				Operation: operation,
				Message:   fmt.Sprintf("cannot decode multipart response: %v", err),
			}}
		}
		content, err := io.ReadAll(part)
		if err != nil {
			return nil, &CommunicationError{StoreError{
				Operation: operation,
				Message:   fmt.Sprintf("cannot read multipart part: %v", err),
			}}
		}
		parts = append(parts, content)
	}
	return &Response{Parts: parts}, nil
}

// UserHasPrivilege reports whether the session user holds the named
// privilege.
func (c *Client) UserHasPrivilege(ctx context.Context, privilege, action string) (bool, error) {
	resp, err := c.Eval(ctx, "xdmp:has-privilege($privilege, $action)", map[string]any{
		"privilege": privilege,
		"action":    action,
	})
	if err != nil {
		return false, err
	}
	return resp.FirstString() == "true", nil
}

// VerifyShowUnpublished downgrades a show-unpublished request from a
// caller that lacks the capability. The downgrade is silent apart from
// a warning log; the capability is never elevated.
func (c *Client) VerifyShowUnpublished(ctx context.Context, showUnpublished bool) bool {
	if !showUnpublished {
		return false
	}
	allowed, err := c.UserHasPrivilege(ctx, privilegeShowUnpublished, "execute")
	if err != nil {
		c.logger.Warn("could not verify show-unpublished privilege; downgrading", "error", err)
		return false
	}
	if !allowed {
		c.logger.Warn("user requested unpublished documents without the privilege; downgrading")
	}
	return allowed
}

// CalculateSecondsUntilMidnight supports "checkout until midnight":
// the expiry is computed against the client's local clock.
func CalculateSecondsUntilMidnight(now time.Time) int {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return int(midnight.Sub(now).Seconds())
}
