package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raywall/mail-subscription-renewal/internal/client"
)

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

// fakeGraph serves a token endpoint and a minimal /subscriptions API.
type fakeGraph struct {
	mu        sync.Mutex
	subs      []map[string]string
	patches   map[string]string
	patchHits int
	failPatch bool
	srv       *httptest.Server
}

func newFakeGraph(t *testing.T, subs ...map[string]string) *fakeGraph {
	t.Helper()
	f := &fakeGraph{subs: subs, patches: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1.0/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"value": f.subs})
	})
	mux.HandleFunc("/v1.0/subscriptions/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.patchHits++

		if f.failPatch {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"code":"ServiceUnavailable","message":"try later"}}`))
			return
		}

		id := strings.TrimPrefix(r.URL.Path, "/v1.0/subscriptions/")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.patches[id] = body["expirationDateTime"]
		fmt.Fprintf(w, `{"id":%q,"expirationDateTime":%q}`, id, body["expirationDateTime"])
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGraph) mailClient(t *testing.T, opts ...Option) *MailClient {
	t.Helper()
	opts = append(opts, WithGraphOptions(
		client.WithBaseURL(f.srv.URL+"/v1.0"),
		client.WithTokenURL(f.srv.URL+"/token"),
	))
	m, err := NewMailClient(context.Background(), "client-id", "client-secret", "tenant-id", opts...)
	require.NoError(t, err)
	m.now = func() time.Time { return fixedNow }
	return m
}

func sub(id, resource string) map[string]string {
	return map[string]string{
		"id":                 id,
		"resource":           resource,
		"changeType":         "created",
		"expirationDateTime": "2026-10-19T12:00:00Z",
	}
}

func TestRenewSubscriptionsOnlyTouchesInbox(t *testing.T) {
	graph := newFakeGraph(t,
		sub("a", "users/ops@example.com/mailFolders('Inbox')/messages"),
		sub("b", "/Users/OPS@example.com/messages"),
		sub("c", "users('ops@example.com')/messages"),
		sub("d", "users/other@example.com/messages"),
		sub("e", "users/ops@example.com.evil/messages"),
	)

	result, err := graph.mailClient(t).RenewSubscriptions(context.Background(), "ops@example.com")
	require.NoError(t, err)

	want := fixedNow.Add(DefaultLifetime).Format(time.RFC3339)
	assert.Equal(t, map[string]string{"a": want, "b": want, "c": want}, graph.patches)

	assert.Equal(t, "ops@example.com", result.Inbox)
	assert.Equal(t, fixedNow, result.RenewedAt)
	require.Equal(t, 3, result.Count())
	assert.Equal(t, "a", result.Subscriptions[0].ID)
	assert.Equal(t, "created", result.Subscriptions[0].ChangeType)
	assert.Equal(t, time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC), result.Subscriptions[0].PreviousExpiration.UTC())
	assert.True(t, fixedNow.Add(DefaultLifetime).Equal(result.Subscriptions[0].ExpirationDateTime))
}

func TestRenewSubscriptionsCustomLifetime(t *testing.T) {
	graph := newFakeGraph(t, sub("a", "users/ops@example.com/messages"))

	_, err := graph.mailClient(t, WithLifetime(2*time.Hour)).RenewSubscriptions(context.Background(), "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19T11:00:00Z", graph.patches["a"])
}

func TestRenewSubscriptionsNoneMatching(t *testing.T) {
	graph := newFakeGraph(t, sub("d", "users/other@example.com/messages"))

	result, err := graph.mailClient(t).RenewSubscriptions(context.Background(), "ops@example.com")
	require.NoError(t, err)
	assert.Zero(t, result.Count())
	assert.NotNil(t, result.Subscriptions)
	assert.Zero(t, graph.patchHits)
}

func TestRenewSubscriptionsDoesNotRetry(t *testing.T) {
	graph := newFakeGraph(t,
		sub("a", "users/ops@example.com/messages"),
		sub("b", "users/ops@example.com/events"),
	)
	graph.failPatch = true

	result, err := graph.mailClient(t).RenewSubscriptions(context.Background(), "ops@example.com")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, client.IsAPIErrorCode(err, "ServiceUnavailable"))
	assert.Equal(t, 1, graph.patchHits)
}

func TestRenewSubscriptionsRequiresInbox(t *testing.T) {
	graph := newFakeGraph(t)

	_, err := graph.mailClient(t).RenewSubscriptions(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inbox is required")
}

func TestNewMailClientRequiresCredentials(t *testing.T) {
	m, err := NewMailClient(context.Background(), "client-id", "", "tenant-id")
	require.Error(t, err)
	assert.Nil(t, m)
}

func TestResourceTargetsInbox(t *testing.T) {
	assert.True(t, resourceTargetsInbox("users/a@b.com/messages", "a@b.com"))
	assert.True(t, resourceTargetsInbox(" /USERS/A@B.COM/messages", "a@b.com"))
	assert.False(t, resourceTargetsInbox("users/a@b.com", "a@b.com"))
	assert.False(t, resourceTargetsInbox("groups/a@b.com/conversations", "a@b.com"))
	assert.False(t, resourceTargetsInbox("users/xa@b.com/messages", "a@b.com"))
}
