package flutterwave

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks the verif-hash header against an HMAC-SHA256 of
// the exact raw request body. It must be given the bytes as received off
// the wire: hashing re-serialized JSON breaks on whitespace and key order.
// Fails closed on a missing header, missing secret or malformed hex, and
// reveals nothing about which check failed.
func VerifySignature(rawBody []byte, signatureHeader, secret string) bool {
	if signatureHeader == "" || secret == "" {
		return false
	}
	got, err := hex.DecodeString(signatureHeader)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hmac.Equal(got, mac.Sum(nil))
}
