package types

import "time"

// RenewedSubscription DTO stores a subscription's state after renewal.
type RenewedSubscription struct {
	ID                 string    `json:"id"`
	Resource           string    `json:"resource"`
	ChangeType         string    `json:"change_type"`
	PreviousExpiration time.Time `json:"previous_expiration"`
	ExpirationDateTime time.Time `json:"expiration_date_time"`
}

// RenewalResult is what a renewal run reports back for one inbox.
type RenewalResult struct {
	Inbox         string                `json:"inbox"`
	RenewedAt     time.Time             `json:"renewed_at"`
	Subscriptions []RenewedSubscription `json:"subscriptions"`
}

// Count returns the number of renewed subscriptions.
func (r *RenewalResult) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Subscriptions)
}
