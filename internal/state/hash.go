package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint returns the hex SHA-256 digest of the compact serialization of
// raw. By default object keys keep the order the CMS sent them in; with
// canonical set they are sorted recursively so that key reordering alone is
// not reported as a change.
func Fingerprint(raw []byte, canonical bool) (string, error) {
	var buf bytes.Buffer
	if canonical {
		b, err := canonicalJSON(raw)
		if err != nil {
			return "", err
		}
		buf.Write(b)
	} else if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("compact JSON: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// canonicalJSON re-encodes raw with sorted object keys. Numbers are kept
// verbatim.
func canonicalJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode JSON: %w", err)
	}
	return bytes.TrimRight(out.Bytes(), "\n"), nil
}
