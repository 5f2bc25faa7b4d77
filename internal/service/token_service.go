package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sevasetu/sevasetu/internal/config"
	"github.com/sevasetu/sevasetu/internal/models"
)

const (
	RoleCitizen = "citizen"
	RoleOfficer = "officer"
)

// TokenService signs and verifies the session tokens that gate kiosk and
// back-office calls. A citizen token proves a completed OTP verification for
// one phone number; an officer token carries an authenticated actor identity.
type TokenService struct {
	secretKey     []byte
	sessionExpiry time.Duration
	logger        *logrus.Logger
}

func NewTokenService(cfg *config.JWTConfig, logger *logrus.Logger) (*TokenService, error) {
	secretKey := []byte(cfg.SecretKey)
	if len(secretKey) < 32 {
		return nil, fmt.Errorf("secret key must be at least 32 bytes")
	}

	return &TokenService{
		secretKey:     secretKey,
		sessionExpiry: cfg.SessionExpiry,
		logger:        logger,
	}, nil
}

type Claims struct {
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
	Actor string `json:"actor,omitempty"`
	jwt.RegisteredClaims
}

// IssueCitizenToken mints the verified-identity token returned after a
// successful OTP verification, scoped to the verified phone number.
func (s *TokenService) IssueCitizenToken(phone string) (*models.SessionToken, error) {
	now := time.Now()
	claims := &Claims{
		Phone: phone,
		Role:  RoleCitizen,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionExpiry)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign session token")
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &models.SessionToken{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresIn: int64(s.sessionExpiry.Seconds()),
	}, nil
}

// IssueOfficerToken mints a back-office token carrying the officer's actor id.
func (s *TokenService) IssueOfficerToken(actorID string) (*models.SessionToken, error) {
	now := time.Now()
	claims := &Claims{
		Role:  RoleOfficer,
		Actor: actorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionExpiry)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign officer token")
		return nil, fmt.Errorf("failed to sign officer token: %w", err)
	}

	return &models.SessionToken{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresIn: int64(s.sessionExpiry.Seconds()),
	}, nil
}

func (s *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// GenerateSecretKey returns a fresh 256-bit key for JWT_SECRET_KEY.
func GenerateSecretKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(key), nil
}
