package web

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/example/perimeter/internal/httpx"
	"github.com/example/perimeter/internal/store"
	"github.com/example/perimeter/internal/webhook"
)

const maxWebhookBody = 1 << 20

type paymentEvent struct {
	ID       string `json:"id"`
	Event    string `json:"event"`
	OrderRef string `json:"order_ref"`
}

const eventPaymentCaptured = "payment.captured"

// HandlePaymentWebhook takes signed events from the payment provider.
// The signature covers the exact bytes on the wire, so the body is read
// raw and verified before any JSON decoding happens.
func (a *App) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Event payload too large")
		return
	}

	sig := r.Header.Get(webhook.SignatureHeader)
	if !webhook.Verify(body, sig, []byte(a.cfg.WebhookSecret)) {
		log.Printf("SECURITY webhook signature mismatch from %s", r.RemoteAddr)
		httpx.WriteError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature mismatch")
		return
	}

	var ev paymentEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.ID == "" || ev.Event == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", "Malformed event payload")
		return
	}

	st, err := a.store(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage is not available")
		return
	}

	if err := st.RecordWebhookEvent(ev.ID, ev.Event, ev.OrderRef, body); err != nil {
		if err == store.ErrExists {
			// Provider redelivery: acknowledge without reprocessing.
			httpx.WriteSuccess(w, http.StatusOK, map[string]bool{"duplicate": true})
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record event")
		return
	}

	if ev.Event == eventPaymentCaptured && ev.OrderRef != "" {
		if err := st.MarkOrderPaid(ev.OrderRef, time.Now().UTC()); err != nil {
			if err == store.ErrNotFound {
				log.Printf("webhook %s references unknown order %s", ev.ID, ev.OrderRef)
			} else {
				httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update order")
				return
			}
		}
	}

	httpx.WriteSuccess(w, http.StatusOK, map[string]bool{"received": true})
}
