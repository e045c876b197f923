package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemStoreUsers(t *testing.T) {
	m := NewMemStore()

	u, err := m.CreateUser("a@example.com", "hash", "user")
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)

	_, err = m.CreateUser("a@example.com", "hash2", "user")
	require.ErrorIs(t, err, ErrExists)

	got, err := m.GetUserByEmail("a@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	byID, err := m.GetUserByID(u.ID)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", byID.Email)

	missing, err := m.GetUserByEmail("nobody@example.com")
	require.NoError(t, err)
	require.Nil(t, missing)

	users, err := m.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestMemStoreOrders(t *testing.T) {
	m := NewMemStore()
	u, err := m.CreateUser("a@example.com", "hash", "user")
	require.NoError(t, err)

	o, err := m.CreateOrder(u.ID, 1500, "EUR")
	require.NoError(t, err)
	require.Equal(t, OrderStatusPending, o.Status)
	require.NotEmpty(t, o.Reference)

	got, err := m.GetOrderByReference(o.Reference)
	require.NoError(t, err)
	require.Equal(t, o.ID, got.ID)

	paidAt := time.Now().UTC()
	require.NoError(t, m.MarkOrderPaid(o.Reference, paidAt))
	got, err = m.GetOrderByReference(o.Reference)
	require.NoError(t, err)
	require.Equal(t, OrderStatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)

	require.ErrorIs(t, m.MarkOrderPaid("ord_missing", paidAt), ErrNotFound)

	orders, err := m.ListOrdersForUser(u.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestMemStoreWebhookEventsIdempotent(t *testing.T) {
	m := NewMemStore()

	require.NoError(t, m.RecordWebhookEvent("evt_1", "payment.captured", "ord_1", []byte(`{}`)))
	require.ErrorIs(t, m.RecordWebhookEvent("evt_1", "payment.captured", "ord_1", []byte(`{}`)), ErrExists)
	require.NoError(t, m.RecordWebhookEvent("evt_2", "payment.failed", "", []byte(`{}`)))
}
