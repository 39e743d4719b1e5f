package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainResolution = "studydesigner/resolution/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// marshalStable encodes v as compact JSON without HTML escaping.
// Struct fields encode in declaration order and map keys are sorted, so the
// output is stable for identical input.
func marshalStable(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder adds a trailing newline, remove it
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Fingerprint computes a content hash of v under the given domain.
// Identical values always produce identical fingerprints.
func Fingerprint(domain string, v any) (string, error) {
	data, err := marshalStable(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(domain, data), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be encodable.
func MustFingerprint(domain string, v any) string {
	fp, err := Fingerprint(domain, v)
	if err != nil {
		panic(err)
	}
	return fp
}
