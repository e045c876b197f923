package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

var secret = []byte("webhook-test-secret")

func TestVerifyMatchingSignature(t *testing.T) {
	body := []byte(`{"id":"evt_1","event":"payment.captured","order_ref":"ord_9"}`)
	sig := Sign(body, secret)
	require.True(t, Verify(body, sig, secret))
}

func TestVerifySingleByteMutation(t *testing.T) {
	body := []byte(`{"id":"evt_1","event":"payment.captured","order_ref":"ord_9"}`)
	sig := Sign(body, secret)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		require.False(t, Verify(mutated, sig, secret), "mutation at byte %d", i)
	}
}

func TestVerifyAppendedCharacter(t *testing.T) {
	body := []byte(`{"event":"payment.captured","amount":1000}`)
	sig := Sign(body, secret)
	require.True(t, Verify(body, sig, secret))
	require.False(t, Verify(append(body, ' '), sig, secret))
}

func TestVerifyRejectsReserializedJSON(t *testing.T) {
	// The wire bytes have a deliberate key order and spacing. Decoding
	// and re-encoding produces semantically equal JSON whose bytes
	// differ, and that must fail: the signature covers bytes, not
	// structure.
	wire := []byte(`{"order_ref": "ord_9", "event": "payment.captured", "id": "evt_1"}`)
	sig := Sign(wire, secret)
	require.True(t, Verify(wire, sig, secret))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(wire, &decoded))
	reserialized, err := json.Marshal(decoded)
	require.NoError(t, err)
	require.NotEqual(t, wire, reserialized)
	require.False(t, Verify(reserialized, sig, secret))
}

func TestVerifyWrongSecret(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	sig := Sign(body, secret)
	require.False(t, Verify(body, sig, []byte("another-secret")))
}

func TestVerifyBadInputs(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	require.False(t, Verify(body, "", secret))
	require.False(t, Verify(body, "not-hex", secret))
	require.False(t, Verify(body, "deadbeef", secret))
	require.False(t, Verify(body, Sign(body, secret), nil))
}
