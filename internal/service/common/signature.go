package common

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateHMACSignature returns the lowercase hex HMAC-SHA256 of payload.
func GenerateHMACSignature(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSignature reports whether signature is the HMAC of payload under
// secret. An empty secret or signature never verifies.
func VerifyHMACSignature(payload, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := GenerateHMACSignature(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
