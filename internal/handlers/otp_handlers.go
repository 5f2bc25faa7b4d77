package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sevasetu/sevasetu/internal/models"
	"github.com/sevasetu/sevasetu/internal/service"
)

type OTPHandlers struct {
	otpService *service.OTPService
	logger     *logrus.Logger
}

func NewOTPHandlers(otpService *service.OTPService, logger *logrus.Logger) *OTPHandlers {
	return &OTPHandlers{
		otpService: otpService,
		logger:     logger,
	}
}

type SendOTPRequest struct {
	Phone string `json:"phone"`
}

type SendOTPResponse struct {
	Message          string `json:"message"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type VerifyOTPResponse struct {
	Verified bool                `json:"verified"`
	Session  models.SessionToken `json:"session"`
}

func (h *OTPHandlers) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	phone, ok := normalizePhone(req.Phone)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "INVALID_PHONE", "Invalid phone number format")
		return
	}

	expiresIn, err := h.otpService.Send(r.Context(), phone)
	if err != nil {
		h.logger.WithError(err).Error("Failed to send OTP")
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SendOTPResponse{
		Message:          "Verification code sent",
		ExpiresInSeconds: expiresIn,
	})
}

func (h *OTPHandlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	phone, ok := normalizePhone(req.Phone)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "INVALID_PHONE", "Invalid phone number format")
		return
	}

	code := strings.TrimSpace(req.Code)
	if len(code) != 6 {
		respondWithError(w, http.StatusBadRequest, "INVALID_CODE", "The code must be 6 digits")
		return
	}

	session, err := h.otpService.Verify(r.Context(), phone, code)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, VerifyOTPResponse{
		Verified: true,
		Session:  *session,
	})
}

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{5,14}$`)

// normalizePhone trims and validates a phone number, returning it without the
// leading plus so the same citizen always keys the same OTP record.
func normalizePhone(phone string) (string, bool) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return "", false
	}
	return strings.TrimPrefix(phone, "+"), true
}
