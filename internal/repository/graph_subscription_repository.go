package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/raywall/mail-subscription-renewal/internal/client"
	"github.com/raywall/mail-subscription-renewal/pkg/types"
)

// SubscriptionRepository wraps the Microsoft Graph /subscriptions endpoints.
type SubscriptionRepository struct {
	Client *client.GraphClient
}

// ListSubscriptions returns every subscription owned by the application,
// following @odata.nextLink until the last page.
func (r *SubscriptionRepository) ListSubscriptions(ctx context.Context) ([]types.Subscription, error) {
	var all []types.Subscription

	next := "/subscriptions"
	for next != "" {
		var page types.SubscriptionPage
		if err := r.Client.DoJSON(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, fmt.Errorf("ListSubscriptions failed: %w", err)
		}
		all = append(all, page.Value...)
		next = page.NextLink
	}
	return all, nil
}

// UpdateExpiration extends the subscription and returns its updated state.
func (r *SubscriptionRepository) UpdateExpiration(ctx context.Context, id string, expiration time.Time) (*types.Subscription, error) {
	body := map[string]string{
		"expirationDateTime": expiration.UTC().Format(time.RFC3339),
	}

	var out types.Subscription
	path := "/subscriptions/" + url.PathEscape(id)
	if err := r.Client.DoJSON(ctx, http.MethodPatch, path, body, &out); err != nil {
		return nil, fmt.Errorf("UpdateExpiration %s failed: %w", id, err)
	}
	return &out, nil
}
