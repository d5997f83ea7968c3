package types

import "time"

// Subscription DTO mirrors a Microsoft Graph change-notification subscription.
type Subscription struct {
	ID                 string    `json:"id"`
	Resource           string    `json:"resource"`
	ChangeType         string    `json:"changeType"`
	NotificationURL    string    `json:"notificationUrl"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
	ClientState        string    `json:"clientState,omitempty"`
}

// SubscriptionPage is one page of GET /subscriptions.
type SubscriptionPage struct {
	Value    []Subscription `json:"value"`
	NextLink string         `json:"@odata.nextLink,omitempty"`
}
