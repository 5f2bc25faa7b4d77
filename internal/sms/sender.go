package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Sender delivers a free-text message to a phone number. Implementations must
// return an error when delivery could not be handed off.
type Sender interface {
	Send(ctx context.Context, destination, text string) error
}

// DevSender logs outbound messages instead of delivering them. Used in local
// development where no gateway is configured.
type DevSender struct {
	logger *logrus.Logger
}

func NewDevSender(logger *logrus.Logger) *DevSender {
	return &DevSender{logger: logger}
}

func (s *DevSender) Send(_ context.Context, destination, text string) error {
	s.logger.WithFields(logrus.Fields{
		"destination": destination,
		"text":        text,
	}).Info("SMS delivery skipped (dev sender)")
	return nil
}

// GatewaySender posts messages to an HTTP SMS gateway.
type GatewaySender struct {
	url    string
	apiKey string
	client *http.Client
	logger *logrus.Logger
}

func NewGatewaySender(url, apiKey string, logger *logrus.Logger) *GatewaySender {
	return &GatewaySender{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type gatewayRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func (s *GatewaySender) Send(ctx context.Context, destination, text string) error {
	body, err := json.Marshal(gatewayRequest{To: destination, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal SMS payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("SMS gateway request failed")
		return fmt.Errorf("failed to reach SMS gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.WithField("status", resp.StatusCode).Error("SMS gateway rejected message")
		return fmt.Errorf("SMS gateway returned status %d", resp.StatusCode)
	}

	return nil
}
