package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sevasetu/sevasetu/internal/domain"
	"github.com/sevasetu/sevasetu/internal/models"
)

const incrementRetries = 5

// RedisOTPStore keeps OTP records in Redis with a TTL matching the code's
// validity window, so expired records are purged without a background sweep.
type RedisOTPStore struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisOTPStore(client *redis.Client, logger *logrus.Logger) *RedisOTPStore {
	return &RedisOTPStore{
		client: client,
		logger: logger,
	}
}

func otpKey(phone string) string {
	return fmt.Sprintf("otp:%s", phone)
}

// Put stores the record, overwriting any prior record for the phone.
func (s *RedisOTPStore) Put(ctx context.Context, record models.OTPRecord) error {
	dataJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal OTP record: %w", err)
	}

	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("OTP record already expired")
	}

	if err := s.client.Set(ctx, otpKey(record.Phone), dataJSON, ttl).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to store OTP in Redis")
		return domain.NewStoreError("put otp", err)
	}

	return nil
}

func (s *RedisOTPStore) Get(ctx context.Context, phone string) (*models.OTPRecord, error) {
	dataJSON, err := s.client.Get(ctx, otpKey(phone)).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to get OTP from Redis")
		return nil, domain.NewStoreError("get otp", err)
	}

	var record models.OTPRecord
	if err := json.Unmarshal([]byte(dataJSON), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal OTP record: %w", err)
	}

	return &record, nil
}

func (s *RedisOTPStore) Delete(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, otpKey(phone)).Err(); err != nil {
		return domain.NewStoreError("delete otp", err)
	}
	return nil
}

// IncrementAttempts bumps the attempt counter under a WATCH transaction so
// concurrent verify calls cannot lose an increment and slip past the cap.
func (s *RedisOTPStore) IncrementAttempts(ctx context.Context, phone string) (int, error) {
	key := otpKey(phone)
	var attempts int

	txn := func(tx *redis.Tx) error {
		dataJSON, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		var record models.OTPRecord
		if err := json.Unmarshal([]byte(dataJSON), &record); err != nil {
			return fmt.Errorf("failed to unmarshal OTP record: %w", err)
		}

		record.Attempts++
		attempts = record.Attempts

		updatedJSON, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal OTP record: %w", err)
		}

		ttl := time.Until(record.ExpiresAt)
		if ttl <= 0 {
			return domain.ErrNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updatedJSON, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < incrementRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return attempts, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, domain.ErrNotFound) {
			return 0, domain.ErrNotFound
		}
		s.logger.WithError(err).Error("Failed to increment OTP attempts")
		return 0, domain.NewStoreError("increment otp attempts", err)
	}

	return 0, domain.NewStoreError("increment otp attempts", redis.TxFailedErr)
}
