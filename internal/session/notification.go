package session

import "time"

// NotificationKind classifies user-visible failure reports. Every error in
// the cart path surfaces as one of these; nothing is silently swallowed
// except the documented mutation no-ops.
type NotificationKind string

const (
	// NotePersistenceError means a write round trip failed; the last known
	// good snapshot is still in place and the action must be re-triggered.
	NotePersistenceError NotificationKind = "persistence_error"
	// NoteSubscriptionError means the feed transport failed; the store
	// retains its last known snapshot.
	NoteSubscriptionError NotificationKind = "subscription_error"
)

// Notification is a user-visible failure report consumed by the view layer.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	Time    time.Time        `json:"time"`
}
