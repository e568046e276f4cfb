package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(t *testing.T, canonical []byte, secret string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestCanonicalJSONSortsKeysAndStripsSandboxID(t *testing.T) {
	raw := []byte(`{"b": 1, "a": {"z": true, "sandbox_id": "sb_1", "y": null}, "sandbox_id": "sb_1"}`)

	canonical, err := CanonicalJSON(raw)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}

	want := `{"a":{"y":null,"z":true},"b":1}`
	if string(canonical) != want {
		t.Fatalf("canonical form mismatch:\n got %s\nwant %s", canonical, want)
	}
}

func TestCanonicalJSONPreservesNumberLiterals(t *testing.T) {
	raw := []byte(`{"expected_amount": 1000.00, "count": 3}`)

	canonical, err := CanonicalJSON(raw)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}

	want := `{"count":3,"expected_amount":1000.00}`
	if string(canonical) != want {
		t.Fatalf("canonical form mismatch:\n got %s\nwant %s", canonical, want)
	}
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	secret := "whsec_test"
	raw := []byte(`{"payment_id": "pay_1", "reference": "INV-1", "sandbox_id": "sb_42"}`)

	canonical, err := CanonicalJSON(raw)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}

	if !Verify(raw, sign(t, canonical, secret), secret) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifySignatureIgnoresSandboxID(t *testing.T) {
	secret := "whsec_test"
	signed := []byte(`{"payment_id":"pay_1","reference":"INV-1"}`)
	delivered := []byte(`{"payment_id": "pay_1", "sandbox_id": "sb_other", "reference": "INV-1"}`)

	canonical, err := CanonicalJSON(signed)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}

	if !Verify(delivered, sign(t, canonical, secret), secret) {
		t.Fatal("sandbox_id must not affect the signature")
	}
}

func TestVerifyFailsClosed(t *testing.T) {
	secret := "whsec_test"
	raw := []byte(`{"payment_id": "pay_1"}`)
	canonical, _ := CanonicalJSON(raw)
	valid := sign(t, canonical, secret)

	cases := map[string]struct {
		body   []byte
		header string
		secret string
	}{
		"missing header":    {raw, "", secret},
		"missing prefix":    {raw, valid[len("sha256="):], secret},
		"wrong secret":      {raw, valid, "other"},
		"tampered body":     {[]byte(`{"payment_id": "pay_2"}`), valid, secret},
		"malformed payload": {[]byte(`{"payment_id":`), valid, secret},
		"empty secret":      {raw, valid, ""},
	}

	for name, tc := range cases {
		if Verify(tc.body, tc.header, tc.secret) {
			t.Fatalf("%s: expected verification failure", name)
		}
	}
}
