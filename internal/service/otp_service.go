package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/sevasetu/sevasetu/internal/config"
	"github.com/sevasetu/sevasetu/internal/domain"
	"github.com/sevasetu/sevasetu/internal/metrics"
	"github.com/sevasetu/sevasetu/internal/models"
	"github.com/sevasetu/sevasetu/internal/sms"
)

// OTPService issues and validates short-lived verification codes bound to a
// phone number. A successful verification consumes the code and mints a
// session token scoped to that phone.
type OTPService struct {
	store   OTPStore
	sender  sms.Sender
	tokens  *TokenService
	cfg     *config.OTPConfig
	metrics *metrics.Metrics
	logger  *logrus.Logger
	now     func() time.Time
}

func NewOTPService(
	store OTPStore,
	sender sms.Sender,
	tokens *TokenService,
	cfg *config.OTPConfig,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *OTPService {
	return &OTPService{
		store:   store,
		sender:  sender,
		tokens:  tokens,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Send generates a fresh code for phone, overwriting any prior unconsumed
// code, and delivers exactly one message. It returns the validity window in
// seconds.
func (s *OTPService) Send(ctx context.Context, phone string) (int, error) {
	code, err := s.generateCode()
	if err != nil {
		return 0, fmt.Errorf("failed to generate code: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash code: %w", err)
	}

	issuedAt := s.now()
	record := models.OTPRecord{
		Phone:     phone,
		CodeHash:  string(hashed),
		Attempts:  0,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(s.cfg.Expiry),
	}

	if err := s.store.Put(ctx, record); err != nil {
		s.logger.WithError(err).Error("Failed to store OTP record")
		return 0, err
	}

	text := fmt.Sprintf(
		"Your Seva Setu verification code is %s. It is valid for %d minutes.",
		code, int(s.cfg.Expiry.Minutes()),
	)
	if err := s.sender.Send(ctx, phone, text); err != nil {
		s.logger.WithError(err).Error("Failed to deliver OTP message")
		return 0, fmt.Errorf("failed to deliver code: %w", err)
	}

	s.metrics.OTPIssued.Inc()
	s.logger.WithField("phone", phone).Info("OTP issued")

	return int(s.cfg.Expiry.Seconds()), nil
}

// Verify checks code against the live record for phone. The record is
// consumed on success and invalidated on expiry or attempt-cap breach; a
// mismatch leaves it live with the attempt counter bumped.
//
// The attempt counter is reserved atomically before the code is compared, so
// concurrent calls cannot share a stale count and slip extra comparisons past
// the cap.
func (s *OTPService) Verify(ctx context.Context, phone, code string) (*models.SessionToken, error) {
	record, err := s.store.Get(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.OTPFailed.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}

	if s.now().After(record.ExpiresAt) {
		if err := s.store.Delete(ctx, phone); err != nil {
			s.logger.WithError(err).Warn("Failed to purge expired OTP record")
		}
		s.metrics.OTPFailed.WithLabelValues("expired").Inc()
		return nil, domain.ErrExpired
	}

	attempts, err := s.store.IncrementAttempts(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Raced with a concurrent success or expiry purge.
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if attempts > s.cfg.MaxAttempts {
		if err := s.store.Delete(ctx, phone); err != nil {
			s.logger.WithError(err).Warn("Failed to purge capped OTP record")
		}
		s.metrics.OTPFailed.WithLabelValues("too_many_attempts").Inc()
		return nil, domain.ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
		remaining := s.cfg.MaxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		s.metrics.OTPFailed.WithLabelValues("mismatch").Inc()
		s.logger.WithFields(logrus.Fields{
			"phone":    phone,
			"attempts": attempts,
		}).Warn("OTP mismatch")
		return nil, &domain.MismatchError{AttemptsRemaining: remaining}
	}

	// Single use: the record is gone before the token is handed out.
	if err := s.store.Delete(ctx, phone); err != nil {
		return nil, err
	}

	token, err := s.tokens.IssueCitizenToken(phone)
	if err != nil {
		return nil, err
	}

	s.metrics.OTPVerified.Inc()
	s.logger.WithField("phone", phone).Info("OTP verified")

	return token, nil
}

// generateCode draws a uniform 6-digit code from [100000, 999999].
func (s *OTPService) generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
