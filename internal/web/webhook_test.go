package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/perimeter/internal/store"
	"github.com/example/perimeter/internal/webhook"
)

func postWebhook(t *testing.T, h http.Handler, body []byte, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(webhook.SignatureHeader, sig)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestWebhookCapturesPayment(t *testing.T) {
	app, st := testApp(t)
	r := app.Router()

	u, err := st.CreateUser("buyer@example.com", "hash", "user")
	require.NoError(t, err)
	order, err := st.CreateOrder(u.ID, 5000, "EUR")
	require.NoError(t, err)

	body := []byte(fmt.Sprintf(`{"id":"evt_1","event":"payment.captured","order_ref":"%s"}`, order.Reference))
	sig := webhook.Sign(body, []byte("test-webhook-secret"))

	rr := postWebhook(t, r, body, sig)
	require.Equal(t, http.StatusOK, rr.Code)

	got, err := st.GetOrderByReference(order.Reference)
	require.NoError(t, err)
	require.Equal(t, store.OrderStatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)
}

func TestWebhookRejectsBadSignatureBeforeParsing(t *testing.T) {
	app, st := testApp(t)
	r := app.Router()

	u, err := st.CreateUser("buyer@example.com", "hash", "user")
	require.NoError(t, err)
	order, err := st.CreateOrder(u.ID, 5000, "EUR")
	require.NoError(t, err)

	body := []byte(fmt.Sprintf(`{"id":"evt_1","event":"payment.captured","order_ref":"%s"}`, order.Reference))
	sig := webhook.Sign(body, []byte("test-webhook-secret"))

	// One appended character breaks the signature over the raw bytes.
	rr := postWebhook(t, r, append(body, 'x'), sig)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// Missing and garbage signatures are also rejected.
	require.Equal(t, http.StatusUnauthorized, postWebhook(t, r, body, "").Code)
	require.Equal(t, http.StatusUnauthorized, postWebhook(t, r, body, "deadbeef").Code)

	// Nothing was processed: the order is still pending.
	got, err := st.GetOrderByReference(order.Reference)
	require.NoError(t, err)
	require.Equal(t, store.OrderStatusPending, got.Status)
}

func TestWebhookMalformedPayloadAfterValidSignature(t *testing.T) {
	app, _ := testApp(t)
	r := app.Router()

	body := []byte(`this is not json`)
	sig := webhook.Sign(body, []byte("test-webhook-secret"))
	rr := postWebhook(t, r, body, sig)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	app, _ := testApp(t)
	r := app.Router()

	body := []byte(`{"id":"evt_dup","event":"payment.failed","order_ref":""}`)
	sig := webhook.Sign(body, []byte("test-webhook-secret"))

	require.Equal(t, http.StatusOK, postWebhook(t, r, body, sig).Code)

	rr := postWebhook(t, r, body, sig)
	require.Equal(t, http.StatusOK, rr.Code)
	var out struct {
		Data map[string]bool `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.True(t, out.Data["duplicate"])
}

func TestWebhookUnknownOrderIsAcknowledged(t *testing.T) {
	app, _ := testApp(t)
	r := app.Router()

	body := []byte(`{"id":"evt_2","event":"payment.captured","order_ref":"ord_unknown"}`)
	sig := webhook.Sign(body, []byte("test-webhook-secret"))
	require.Equal(t, http.StatusOK, postWebhook(t, r, body, sig).Code)
}
