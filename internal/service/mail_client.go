package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/raywall/mail-subscription-renewal/internal/client"
	"github.com/raywall/mail-subscription-renewal/internal/repository"
	"github.com/raywall/mail-subscription-renewal/pkg/types"
)

// DefaultLifetime is the longest expiration Graph accepts for Outlook message subscriptions.
const DefaultLifetime = 4230 * time.Minute

type mailOptions struct {
	lifetime     time.Duration
	graphOptions []client.GraphOption
}

// Option customises NewMailClient.
type Option func(*mailOptions)

// WithLifetime sets how far past "now" renewed subscriptions will expire.
func WithLifetime(d time.Duration) Option {
	return func(o *mailOptions) {
		if d > 0 {
			o.lifetime = d
		}
	}
}

// WithGraphOptions forwards options to the underlying Graph client.
func WithGraphOptions(opts ...client.GraphOption) Option {
	return func(o *mailOptions) {
		o.graphOptions = append(o.graphOptions, opts...)
	}
}

// MailClient renews Microsoft Graph mail subscriptions for an inbox.
type MailClient struct {
	SubscriptionRepo *repository.SubscriptionRepository
	Lifetime         time.Duration

	now func() time.Time
}

// NewMailClient builds a MailClient authenticated as the given app registration.
func NewMailClient(ctx context.Context, clientID, clientSecret, tenantID string, opts ...Option) (*MailClient, error) {
	o := mailOptions{lifetime: DefaultLifetime}
	for _, opt := range opts {
		opt(&o)
	}

	gc, err := client.NewGraph(ctx, clientID, clientSecret, tenantID, o.graphOptions...)
	if err != nil {
		return nil, err
	}

	return &MailClient{
		SubscriptionRepo: &repository.SubscriptionRepository{Client: gc},
		Lifetime:         o.lifetime,
		now:              time.Now,
	}, nil
}

// RenewSubscriptions extends every subscription watching the inbox.
// The first failing Graph call aborts the run; nothing is retried.
func (m *MailClient) RenewSubscriptions(ctx context.Context, inbox string) (*types.RenewalResult, error) {
	if strings.TrimSpace(inbox) == "" {
		return nil, errors.New("renew subscriptions: inbox is required")
	}

	subs, err := m.SubscriptionRepo.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	expiration := now.Add(m.Lifetime)

	result := &types.RenewalResult{
		Inbox:         inbox,
		RenewedAt:     now,
		Subscriptions: []types.RenewedSubscription{},
	}
	for _, sub := range subs {
		if !resourceTargetsInbox(sub.Resource, inbox) {
			continue
		}

		updated, err := m.SubscriptionRepo.UpdateExpiration(ctx, sub.ID, expiration)
		if err != nil {
			return nil, err
		}

		renewed := types.RenewedSubscription{
			ID:                 sub.ID,
			Resource:           sub.Resource,
			ChangeType:         sub.ChangeType,
			PreviousExpiration: sub.ExpirationDateTime,
			ExpirationDateTime: expiration,
		}
		if !updated.ExpirationDateTime.IsZero() {
			renewed.ExpirationDateTime = updated.ExpirationDateTime
		}
		result.Subscriptions = append(result.Subscriptions, renewed)
	}

	return result, nil
}

// resourceTargetsInbox matches "users/{inbox}/..." and "users('{inbox}')/...",
// with or without a leading slash, ignoring case.
func resourceTargetsInbox(resource, inbox string) bool {
	r := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(resource), "/"))
	mailbox := strings.ToLower(strings.TrimSpace(inbox))

	for _, prefix := range []string{
		"users/" + mailbox + "/",
		"users('" + mailbox + "')/",
	} {
		if strings.HasPrefix(r, prefix) {
			return true
		}
	}
	return false
}
