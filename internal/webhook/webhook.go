// Package webhook verifies inbound payment-provider events. The scheme is
// a keyed hash over the raw body: authenticity only, no identity claims
// and no expiry.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the provider's hex-encoded HMAC of the body.
const SignatureHeader = "X-Payment-Signature"

// Sign computes the hex HMAC-SHA256 of rawBody. Used by tests and by
// outbound tooling that replays events.
func Sign(rawBody, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether providedSignature matches the HMAC of rawBody.
// rawBody must be the exact byte sequence received on the wire, before
// any JSON decoding: parsing and re-serializing changes key order and
// whitespace and breaks the signature. Comparison is constant-time.
func Verify(rawBody []byte, providedSignature string, secret []byte) bool {
	if len(secret) == 0 {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimSpace(providedSignature))
	if err != nil || len(provided) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), provided)
}
