package service

import (
	"context"
	"errors"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevasetu/sevasetu/internal/config"
	"github.com/sevasetu/sevasetu/internal/domain"
	"github.com/sevasetu/sevasetu/internal/metrics"
	"github.com/sevasetu/sevasetu/internal/repository"
)

var codePattern = regexp.MustCompile(`\d{6}`)

type recordingSender struct {
	destinations []string
	texts        []string
	fail         bool
}

func (s *recordingSender) Send(_ context.Context, destination, text string) error {
	if s.fail {
		return io.ErrClosedPipe
	}
	s.destinations = append(s.destinations, destination)
	s.texts = append(s.texts, text)
	return nil
}

func (s *recordingSender) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, s.texts)
	code := codePattern.FindString(s.texts[len(s.texts)-1])
	require.Len(t, code, 6)
	return code
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestOTPService(t *testing.T) (*OTPService, *recordingSender) {
	t.Helper()

	tokens, err := NewTokenService(&config.JWTConfig{
		SecretKey:     "0123456789abcdef0123456789abcdef",
		SessionExpiry: 30 * time.Minute,
	}, testLogger())
	require.NoError(t, err)

	sender := &recordingSender{}
	svc := NewOTPService(
		repository.NewMemoryOTPStore(),
		sender,
		tokens,
		&config.OTPConfig{Length: 6, Expiry: 10 * time.Minute, MaxAttempts: 5},
		metrics.New(prometheus.NewRegistry()),
		testLogger(),
	)
	return svc, sender
}

func TestOTPSendDeliversOneMessage(t *testing.T) {
	svc, sender := newTestOTPService(t)
	ctx := context.Background()

	expiresIn, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)

	assert.Equal(t, 600, expiresIn)
	assert.Equal(t, []string{"9876543210"}, sender.destinations)
	assert.Regexp(t, `\d{6}`, sender.texts[0])
}

func TestOTPVerifyMismatchThenSuccess(t *testing.T) {
	svc, sender := newTestOTPService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)
	code := sender.lastCode(t)

	wrong := "111111"
	if wrong == code {
		wrong = "222222"
	}

	_, err = svc.Verify(ctx, "9876543210", wrong)
	var mismatch *domain.MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.AttemptsRemaining)

	session, err := svc.Verify(ctx, "9876543210", code)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "Bearer", session.TokenType)
}

func TestOTPVerifyIsSingleUse(t *testing.T) {
	svc, sender := newTestOTPService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)
	code := sender.lastCode(t)

	_, err = svc.Verify(ctx, "9876543210", code)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "9876543210", code)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOTPVerifyAttemptCap(t *testing.T) {
	svc, sender := newTestOTPService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)
	code := sender.lastCode(t)

	wrong := "111111"
	if wrong == code {
		wrong = "222222"
	}

	for i := 0; i < 5; i++ {
		_, err = svc.Verify(ctx, "9876543210", wrong)
		var mismatch *domain.MismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, 4-i, mismatch.AttemptsRemaining)
	}

	// Sixth call fails terminally even with the correct code.
	_, err = svc.Verify(ctx, "9876543210", code)
	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)

	// The record is invalidated; only a fresh send recovers.
	_, err = svc.Verify(ctx, "9876543210", code)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Send(ctx, "9876543210")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, "9876543210", sender.lastCode(t))
	assert.NoError(t, err)
}

func TestOTPVerifyConcurrentCallsRespectAttemptCap(t *testing.T) {
	svc, sender := newTestOTPService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)
	code := sender.lastCode(t)

	wrong := "111111"
	if wrong == code {
		wrong = "222222"
	}

	const callers = 30
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Verify(ctx, "9876543210", wrong)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	mismatches := 0
	for err := range results {
		var mismatch *domain.MismatchError
		switch {
		case errors.As(err, &mismatch):
			mismatches++
		case errors.Is(err, domain.ErrTooManyAttempts):
		case errors.Is(err, domain.ErrNotFound):
			// Arrived after the capped record was purged.
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Each call reserves its attempt before comparing, so no degree of
	// concurrency buys more than MaxAttempts comparisons.
	assert.Equal(t, 5, mismatches)
}

func TestOTPVerifyExpired(t *testing.T) {
	svc, sender := newTestOTPService(t)
	ctx := context.Background()

	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }

	_, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)
	code := sender.lastCode(t)

	svc.now = func() time.Time { return issuedAt.Add(601 * time.Second) }

	_, err = svc.Verify(ctx, "9876543210", code)
	assert.ErrorIs(t, err, domain.ErrExpired)

	// The expired record was purged.
	_, err = svc.Verify(ctx, "9876543210", code)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOTPSendOverwritesPriorCode(t *testing.T) {
	svc, sender := newTestOTPService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "9876543210")
	require.NoError(t, err)
	first := sender.lastCode(t)

	_, err = svc.Send(ctx, "9876543210")
	require.NoError(t, err)
	second := sender.lastCode(t)

	if first != second {
		_, err = svc.Verify(ctx, "9876543210", first)
		var mismatch *domain.MismatchError
		require.ErrorAs(t, err, &mismatch)
	}

	_, err = svc.Verify(ctx, "9876543210", second)
	assert.NoError(t, err)
}

func TestOTPSendFailsWhenDeliveryFails(t *testing.T) {
	svc, sender := newTestOTPService(t)
	sender.fail = true

	_, err := svc.Send(context.Background(), "9876543210")
	assert.Error(t, err)
}
