package models

import "time"

// OTPRecord is the live one-time-passcode state for a phone number.
// At most one record exists per phone; a fresh send overwrites it.
type OTPRecord struct {
	Phone     string    `json:"phone"`
	CodeHash  string    `json:"code_hash"`
	Attempts  int       `json:"attempts"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
