// Package store persists users, payment orders and webhook events behind
// a small interface with Postgres, SQLite and in-memory adapters.
package store

import (
	"errors"
	"time"
)

// ErrExists is returned when a unique constraint (user email, webhook
// event id) is violated.
var ErrExists = errors.New("store: already exists")

// ErrNotFound is returned when a lookup by key finds nothing.
var ErrNotFound = errors.New("store: not found")

// User is a stored account. Password hashing happens at the handler
// layer; the store only ever sees the bcrypt hash.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Order is a payment order awaiting capture by the provider.
type Order struct {
	ID          string
	UserID      string
	Reference   string
	AmountCents int64
	Currency    string
	Status      string
	CreatedAt   time.Time
	PaidAt      *time.Time
}

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
)

// WebhookEvent records a verified inbound provider event, keyed by the
// provider's event id so redelivery is idempotent.
type WebhookEvent struct {
	ID         string
	Type       string
	OrderRef   string
	Payload    []byte
	ReceivedAt time.Time
}

// Store is the persistence interface shared by webd and apid.
type Store interface {
	// User operations
	CreateUser(email, passwordHash, role string) (*User, error)
	GetUserByEmail(email string) (*User, error)
	GetUserByID(id string) (*User, error)
	ListUsers() ([]*User, error)
	// Order operations
	CreateOrder(userID string, amountCents int64, currency string) (*Order, error)
	GetOrderByReference(ref string) (*Order, error)
	ListOrdersForUser(userID string) ([]*Order, error)
	MarkOrderPaid(ref string, paidAt time.Time) error
	// Webhook operations
	RecordWebhookEvent(id, eventType, orderRef string, payload []byte) error
	// Lifecycle
	Ping() bool
	Close() error
}
