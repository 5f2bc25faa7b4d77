package models

// SessionToken is the verified-identity token handed out after a successful
// OTP verification. It is opaque to the kiosk and scoped to one phone number.
type SessionToken struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}
