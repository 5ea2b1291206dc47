// Package signature implements the HMAC-SHA256 scheme used by UploadThing
// webhook callbacks: hex-encoded HMAC over the exact raw request body,
// optionally prefixed with "hmac-sha256=".
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Prefix is the optional scheme prefix carried by the signature header
const Prefix = "hmac-sha256="

// Sign computes the hex-encoded HMAC-SHA256 of body under key
func Sign(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a supplied signature against the raw body.
// The comparison is constant-time over the decoded bytes; malformed hex
// fails verification rather than erroring, so bad signatures and bad
// encodings are indistinguishable to the sender.
func Verify(key string, body []byte, supplied string) bool {
	expected := Sign(key, body)

	actual := strings.TrimSpace(supplied)
	actual = strings.TrimPrefix(actual, Prefix)

	expectedBytes, err := hex.DecodeString(expected)
	if err != nil {
		return false
	}
	actualBytes, err := hex.DecodeString(actual)
	if err != nil {
		return false
	}

	return hmac.Equal(expectedBytes, actualBytes)
}
