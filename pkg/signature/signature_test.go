package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify_RoundTrip(t *testing.T) {
	body := []byte(`{"file":{"key":"abc"}}`)
	sig := Sign("sk_test_key", body)

	assert.True(t, Verify("sk_test_key", body, sig))
	assert.True(t, Verify("sk_test_key", body, Prefix+sig))
	assert.True(t, Verify("sk_test_key", body, "  "+sig+"  "), "surrounding whitespace is tolerated")
}

func TestVerify_TamperedBody(t *testing.T) {
	body := []byte(`{"file":{"key":"abc"}}`)
	sig := Sign("sk_test_key", body)

	for i := range body {
		tampered := make([]byte, len(body))
		copy(tampered, body)
		tampered[i] ^= 0x01
		assert.False(t, Verify("sk_test_key", tampered, sig), "flipped byte %d must fail", i)
	}
}

func TestVerify_WrongKey(t *testing.T) {
	body := []byte("payload")
	sig := Sign("sk_test_key", body)
	assert.False(t, Verify("sk_other_key", body, sig))
}

func TestVerify_MalformedHex(t *testing.T) {
	body := []byte("payload")
	assert.False(t, Verify("sk_test_key", body, "not-hex-at-all"))
	assert.False(t, Verify("sk_test_key", body, "abc")) // odd length
	assert.False(t, Verify("sk_test_key", body, ""))
}
