package flutterwave

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature_Valid(t *testing.T) {
	body := []byte(`{"event":"charge.completed","data":{"tx_ref":"starktol_1000_1"}}`)
	secret := "whsec-test"
	if !VerifySignature(body, sign(body, secret), secret) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifySignature_SingleByteFlipInvalidates(t *testing.T) {
	body := []byte(`{"event":"charge.completed","data":{"tx_ref":"starktol_1000_1","amount":500}}`)
	secret := "whsec-test"
	sig := sign(body, secret)
	for i := range body {
		tampered := make([]byte, len(body))
		copy(tampered, body)
		tampered[i] ^= 0x01
		if VerifySignature(tampered, sig, secret) {
			t.Fatalf("signature still verified after flipping byte %d", i)
		}
	}
}

func TestVerifySignature_FailsClosed(t *testing.T) {
	body := []byte(`{}`)
	secret := "whsec-test"
	cases := []struct {
		name   string
		header string
		secret string
	}{
		{"missing header", "", secret},
		{"missing secret", sign(body, secret), ""},
		{"non-hex header", "not-hex-at-all!!", secret},
		{"truncated header", sign(body, secret)[:10], secret},
		{"wrong secret", sign(body, "other"), secret},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if VerifySignature(body, tc.header, tc.secret) {
				t.Fatal("expected verification to fail")
			}
		})
	}
}

func TestVerifySignature_RawBytesNotReserialized(t *testing.T) {
	// Same JSON value, different whitespace: signatures must differ.
	a := []byte(`{"event":"charge.completed"}`)
	b := []byte(`{ "event": "charge.completed" }`)
	secret := "whsec-test"
	if VerifySignature(b, sign(a, secret), secret) {
		t.Fatal("signature over different raw bytes must not verify")
	}
}
