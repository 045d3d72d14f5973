package marklogic

import (
	"context"
	"time"

	"github.com/nationalarchives/ds-caselaw-api-client/pkg/uri"
)

// CheckoutExpiry describes how long a checkout lease lasts.
type CheckoutExpiry struct {
	// Seconds is an absolute lease length. Zero with UntilMidnight
	// unset means the store's default lease.
	Seconds int

	// UntilMidnight computes the lease from the client's local clock so
	// the lease lapses at local midnight.
	UntilMidnight bool
}

func (e CheckoutExpiry) seconds(now time.Time) int {
	if e.UntilMidnight {
		return CalculateSecondsUntilMidnight(now)
	}
	return e.Seconds
}

// Checkout obtains an exclusive editing lease on the document. Fails
// with CheckoutConflictError when another holder exists.
func (c *Client) Checkout(ctx context.Context, u uri.DocumentURI, annotation string, expiry CheckoutExpiry) error {
	vars := map[string]any{
		"uri":        string(u.AsMarkLogicURI()),
		"annotation": annotation,
	}
	if seconds := expiry.seconds(c.now()); seconds > 0 {
		vars["timeout"] = seconds
	}
	_, err := c.Invoke(ctx, "checkout_judgment.xqy", vars)
	return err
}

// Checkin releases the caller's own lease. Fails with
// ResourceNotCheckedOutError when none is held.
func (c *Client) Checkin(ctx context.Context, u uri.DocumentURI) error {
	_, err := c.Invoke(ctx, "checkin_judgment.xqy", map[string]any{
		"uri": string(u.AsMarkLogicURI()),
	})
	return err
}

// BreakCheckout forcibly releases any outstanding lease, whoever holds
// it. Used before unpublishing.
func (c *Client) BreakCheckout(ctx context.Context, u uri.DocumentURI) error {
	_, err := c.Invoke(ctx, "break_judgment_checkout.xqy", map[string]any{
		"uri": string(u.AsMarkLogicURI()),
	})
	return err
}

// CheckoutStatus returns the annotation message of the current lease,
// or "" when the document is not checked out.
func (c *Client) CheckoutStatus(ctx context.Context, u uri.DocumentURI) (string, error) {
	resp, err := c.Invoke(ctx, "get_judgment_checkout_status.xqy", map[string]any{
		"uri": string(u.AsMarkLogicURI()),
	})
	if err != nil {
		return "", err
	}
	return resp.FirstString(), nil
}
