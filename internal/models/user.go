package models

import "time"

// User is the authenticated caller as this service sees it: an id plus the
// contact details the channel senders need. Either contact field may be empty.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PushSubscription is a browser-registered Web Push endpoint. Only rows with
// IsActive are send candidates; the push sender flips IsActive off when the
// provider reports the endpoint gone (404/410).
type PushSubscription struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	Endpoint       string     `json:"endpoint"`
	ExpirationTime *time.Time `json:"expiration_time,omitempty"`
	P256dh         string     `json:"p256dh"`
	Auth           string     `json:"auth"`
	IsActive       bool       `json:"is_active"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
}
