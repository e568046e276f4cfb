package webhooks

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

const signaturePrefix = "sha256="

// excludedField is stripped from the canonical form at every nesting
// level before the HMAC is computed. The provider injects it after
// signing.
const excludedField = "sandbox_id"

// Verify checks the X-Webhook-Signature header against the HMAC-SHA256 of
// the canonicalized payload. It fails closed: any parse error, missing
// header, or malformed prefix reports not-verified, and callers must not
// tell the sender why.
func Verify(rawBody []byte, headerSignature, secret string) bool {
	if secret == "" || headerSignature == "" {
		return false
	}
	canonical, err := CanonicalJSON(rawBody)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	expected := signaturePrefix + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(headerSignature))
}

// CanonicalJSON re-renders a JSON document with object keys sorted
// lexicographically at every nesting level, compact separators, and the
// sandbox_id field removed wherever it appears. Number literals are kept
// byte-for-byte as sent ("400.00" stays "400.00").
func CanonicalJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON document")
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			if k == excludedField {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, v[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case json.Number:
		buf.WriteString(v.String())
		return nil
	default:
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode scalar: %w", err)
		}
		// json.Encoder appends a newline; compact form has none.
		buf.Truncate(buf.Len() - 1)
		return nil
	}
}
