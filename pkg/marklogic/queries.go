package marklogic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/identifiers"
	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// identifiersPropertyName is the store-side property node holding a
// document's packed identifier tree.
const identifiersPropertyName = "identifiers"

// DocumentExists reports whether a document is stored at u.
func (c *Client) DocumentExists(ctx context.Context, u uri.DocumentURI) (bool, error) {
	resp, err := c.Invoke(ctx, "document_exists.xqy", map[string]any{
		"uri": string(u.AsMarkLogicURI()),
	})
	if err != nil {
		return false, err
	}
	return resp.FirstString() == "true", nil
}

// GetDocumentOptions tunes a body fetch.
type GetDocumentOptions struct {
	// ShowUnpublished requests unpublished content. Downgraded with a
	// warning when the session user lacks the privilege.
	ShowUnpublished bool

	// SearchQuery, when set, asks the store to highlight matches in the
	// returned body.
	SearchQuery string
}

// GetDocumentXML fetches a document's body XML. When a search query is
// supplied and the store times out, the fetch is retried once without
// the query; that is the client's single built-in recovery path.
func (c *Client) GetDocumentXML(ctx context.Context, u uri.DocumentURI, opts GetDocumentOptions) ([]byte, error) {
	showUnpublished := c.VerifyShowUnpublished(ctx, opts.ShowUnpublished)

	body, err := c.getDocumentXML(ctx, u, showUnpublished, opts.SearchQuery)
	if err != nil && opts.SearchQuery != "" {
		var timeout *GatewayTimeoutError
		if errors.As(err, &timeout) {
			c.logger.Warn("document fetch with search query timed out; retrying without query",
				"uri", u, "query", opts.SearchQuery)
			return c.getDocumentXML(ctx, u, showUnpublished, "")
		}
	}
	return body, err
}

func (c *Client) getDocumentXML(ctx context.Context, u uri.DocumentURI, showUnpublished bool, searchQuery string) ([]byte, error) {
	vars := map[string]any{
		"uri":              string(u.AsMarkLogicURI()),
		"show_unpublished": showUnpublished,
	}
	if searchQuery != "" {
		vars["query"] = searchQuery
	}
	resp, err := c.Invoke(ctx, "get_judgment.xqy", vars)
	if err != nil {
		return nil, err
	}
	return resp.First(), nil
}

// InsertDocument writes new body XML at u with a version annotation.
func (c *Client) InsertDocument(ctx context.Context, u uri.DocumentURI, body []byte, annotation string) error {
	_, err := c.Invoke(ctx, "insert_document.xqy", map[string]any{
		"uri":        string(u.AsMarkLogicURI()),
		"judgment":   string(body),
		"annotation": annotation,
	})
	return err
}

// UpdateDocument replaces the body XML at u under an existing checkout.
// Fails with ResourceNotCheckedOutError when no checkout is held.
func (c *Client) UpdateDocument(ctx context.Context, u uri.DocumentURI, body []byte, annotation string) error {
	_, err := c.Invoke(ctx, "update_locked_judgment.xqy", map[string]any{
		"uri":        string(u.AsMarkLogicURI()),
		"judgment":   string(body),
		"annotation": annotation,
	})
	return err
}

// CopyDocument copies the body XML and version history from one URI to
// another. Properties are not carried over.
func (c *Client) CopyDocument(ctx context.Context, from, to uri.DocumentURI) error {
	_, err := c.Invoke(ctx, "copy_document.xqy", map[string]any{
		"old_uri": string(from.AsMarkLogicURI()),
		"new_uri": string(to.AsMarkLogicURI()),
	})
	return err
}

// DeleteDocument removes the document from the store.
func (c *Client) DeleteDocument(ctx context.Context, u uri.DocumentURI) error {
	_, err := c.Invoke(ctx, "delete_judgment.xqy", map[string]any{
		"uri": string(u.AsMarkLogicURI()),
	})
	return err
}

// ValidatesAgainstSchema reports whether the stored body validates
// against the judgment schema. Validation runs server-side; the client
// only relays the verdict.
func (c *Client) ValidatesAgainstSchema(ctx context.Context, u uri.DocumentURI) (bool, error) {
	resp, err := c.Invoke(ctx, "validate_document.xqy", map[string]any{
		"uri": string(u.AsMarkLogicURI()),
	})
	if err != nil {
		return false, err
	}
	return resp.FirstString() == "true", nil
}

// GetProperty reads a scalar property, returning "" when unset.
func (c *Client) GetProperty(ctx context.Context, u uri.DocumentURI, name string) (string, error) {
	resp, err := c.Invoke(ctx, "get_property.xqy", map[string]any{
		"uri":  string(u.AsMarkLogicURI()),
		"name": name,
	})
	if err != nil {
		return "", err
	}
	return resp.FirstString(), nil
}

// SetProperty writes a scalar property.
func (c *Client) SetProperty(ctx context.Context, u uri.DocumentURI, name, value string) error {
	_, err := c.Invoke(ctx, "set_property.xqy", map[string]any{
		"uri":   string(u.AsMarkLogicURI()),
		"name":  name,
		"value": value,
	})
	return err
}

// GetBoolean reads a property as a boolean, defaulting when unset.
func (c *Client) GetBoolean(ctx context.Context, u uri.DocumentURI, name string, fallback bool) (bool, error) {
	value, err := c.GetProperty(ctx, u, name)
	if err != nil {
		return fallback, err
	}
	if value == "" {
		return fallback, nil
	}
	return value == "true", nil
}

// SetBoolean writes a property as "true"/"false".
func (c *Client) SetBoolean(ctx context.Context, u uri.DocumentURI, name string, value bool) error {
	return c.SetProperty(ctx, u, name, strconv.FormatBool(value))
}

// GetIdentifiersXML reads the packed identifiers property node, or nil
// when the document has none yet.
func (c *Client) GetIdentifiersXML(ctx context.Context, u uri.DocumentURI) ([]byte, error) {
	resp, err := c.Invoke(ctx, "get_property_as_node.xqy", map[string]any{
		"uri":  string(u.AsMarkLogicURI()),
		"name": identifiersPropertyName,
	})
	if err != nil {
		return nil, err
	}
	return resp.First(), nil
}

// SetIdentifiersXML persists the packed identifiers property node.
func (c *Client) SetIdentifiersXML(ctx context.Context, u uri.DocumentURI, packed []byte) error {
	_, err := c.Invoke(ctx, "set_property_as_node.xqy", map[string]any{
		"uri":   string(u.AsMarkLogicURI()),
		"name":  identifiersPropertyName,
		"value": string(packed),
	})
	return err
}

// Version is one entry of a document's version history.
type Version struct {
	URI    uri.DocumentURI `json:"uri"`
	Number int             `json:"version"`
}

// ListVersions returns the document's versions in descending version
// order; the first entry is current.
func (c *Client) ListVersions(ctx context.Context, u uri.DocumentURI) ([]Version, error) {
	resp, err := c.Invoke(ctx, "list_judgment_versions.xqy", map[string]any{
		"uri": string(u.AsMarkLogicURI()),
	})
	if err != nil {
		return nil, err
	}

	versions := make([]Version, 0, len(resp.Parts))
	for _, part := range resp.Parts {
		var row struct {
			URI     string `json:"uri"`
			Version int    `json:"version"`
		}
		if err := json.Unmarshal(part, &row); err != nil {
			return nil, fmt.Errorf("cannot decode version row for %s: %w", u, err)
		}
		versionURI := uri.DocumentURI(row.URI)
		if ml, mlErr := uri.NewMarkLogicURI(row.URI); mlErr == nil {
			versionURI = ml.AsDocumentURI()
		}
		versions = append(versions, Version{URI: versionURI, Number: row.Version})
	}
	sort.SliceStable(versions, func(a, b int) bool {
		return versions[a].Number > versions[b].Number
	})
	return versions, nil
}

// GetVersionAnnotation reads the annotation recorded against a stored
// version.
func (c *Client) GetVersionAnnotation(ctx context.Context, versionURI uri.DocumentURI) (string, error) {
	resp, err := c.Invoke(ctx, "get_version_annotation.xqy", map[string]any{
		"uri": string(versionURI.AsMarkLogicURI()),
	})
	if err != nil {
		return "", err
	}
	return resp.FirstString(), nil
}

// NextSequenceNumber advances and returns the named store-side counter.
// Satisfies identifiers.SequenceSource for minting.
func (c *Client) NextSequenceNumber(ctx context.Context, name string) (int64, error) {
	resp, err := c.Invoke(ctx, "advance_sequence_number.xqy", map[string]any{
		"name": name,
	})
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(resp.FirstString(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sequence %s returned a non-numeric value %q: %w", name, resp.FirstString(), err)
	}
	return n, nil
}

// ResolveFromSlug resolves a candidate public slug to the documents
// carrying it.
func (c *Client) ResolveFromSlug(ctx context.Context, slug string) ([]identifiers.Resolution, error) {
	return c.resolve(ctx, "resolve_from_identifier_slug.xqy", map[string]any{"slug": slug})
}

// ResolveFromValue resolves an identifier value within a namespace.
// Satisfies identifiers.Resolver for global-uniqueness validation.
func (c *Client) ResolveFromValue(ctx context.Context, namespace, value string) ([]identifiers.Resolution, error) {
	return c.resolve(ctx, "resolve_from_identifier_value.xqy", map[string]any{
		"namespace": namespace,
		"value":     value,
	})
}

func (c *Client) resolve(ctx context.Context, module string, vars map[string]any) ([]identifiers.Resolution, error) {
	resp, err := c.Invoke(ctx, module, vars)
	if err != nil {
		return nil, err
	}
	rows := make([][]byte, 0, len(resp.Parts))
	for _, part := range resp.Parts {
		if len(part) > 0 {
			rows = append(rows, part)
		}
	}
	return identifiers.DecodeResolutions(rows)
}
