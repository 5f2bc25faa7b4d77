package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprinter derives duplicate-detection keys from national identifiers.
// The derivation is a keyed one-way hash: the raw identifier is never stored
// and cannot be recovered from the fingerprint.
type Fingerprinter struct {
	key []byte
}

func NewFingerprinter(key string) *Fingerprinter {
	return &Fingerprinter{key: []byte(key)}
}

// Derive returns the fingerprint for a national id scoped to a service kind.
// The same id may hold one active application per kind.
func (f *Fingerprinter) Derive(nationalID, kind string) string {
	mac := hmac.New(sha256.New, f.key)
	mac.Write([]byte(strings.TrimSpace(nationalID)))
	mac.Write([]byte("#"))
	mac.Write([]byte(kind))
	return hex.EncodeToString(mac.Sum(nil))
}

// MaskPhone hides all but the last five digits of a phone number.
func MaskPhone(phone string) string {
	if len(phone) <= 5 {
		return phone
	}
	return strings.Repeat("*", len(phone)-5) + phone[len(phone)-5:]
}
