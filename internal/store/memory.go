package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for tests and local development.
type MemStore struct {
	mu     sync.RWMutex
	users  map[string]*User  // keyed by email
	orders map[string]*Order // keyed by reference
	events map[string]*WebhookEvent
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:  map[string]*User{},
		orders: map[string]*Order{},
		events: map[string]*WebhookEvent{},
	}
}

func (m *MemStore) CreateUser(email, passwordHash, role string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return nil, ErrExists
	}
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[email] = u
	return u, nil
}

func (m *MemStore) GetUserByEmail(email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *MemStore) GetUserByID(id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemStore) ListUsers() ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemStore) CreateOrder(userID string, amountCents int64, currency string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := &Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Reference:   "ord_" + uuid.NewString(),
		AmountCents: amountCents,
		Currency:    currency,
		Status:      OrderStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	m.orders[o.Reference] = o
	return o, nil
}

func (m *MemStore) GetOrderByReference(ref string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[ref]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (m *MemStore) ListOrdersForUser(userID string) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Order
	for _, o := range m.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemStore) MarkOrderPaid(ref string, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[ref]
	if !ok {
		return ErrNotFound
	}
	o.Status = OrderStatusPaid
	o.PaidAt = &paidAt
	return nil
}

func (m *MemStore) RecordWebhookEvent(id, eventType, orderRef string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; ok {
		return ErrExists
	}
	m.events[id] = &WebhookEvent{
		ID:         id,
		Type:       eventType,
		OrderRef:   orderRef,
		Payload:    append([]byte(nil), payload...),
		ReceivedAt: time.Now().UTC(),
	}
	return nil
}

func (m *MemStore) Ping() bool   { return true }
func (m *MemStore) Close() error { return nil }
