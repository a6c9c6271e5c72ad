package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Operation performs one attempt; attempt is 0 for the first call.
type Operation func(attempt int) error

// Retryable decides whether a failed attempt may be repeated.
type Retryable func(err error) bool

const DefaultMaxRetries = 3

// Try runs op, retrying duplicate key failures up to DefaultMaxRetries times.
func Try(ctx context.Context, op Operation) error {
	return WithRetries(ctx, op, DefaultMaxRetries, IsDuplicateKey)
}

// WithRetries runs op once plus up to maxRetries retries while retryable(err)
// holds, with a short linear backoff. It stops early when ctx is done.
func WithRetries(ctx context.Context, op Operation, maxRetries int, retryable Retryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = op(attempt); err == nil {
			return nil
		}
		if attempt == maxRetries || !retryable(err) {
			return err
		}
		zap.S().Debugf("Retryable error on attempt %d: %v", attempt+1, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(50*(attempt+1)) * time.Millisecond):
		}
	}
	return err
}

// IsDuplicateKey checks if an error from MongoDB is a duplicate key error (code 11000),
// including inside write and bulk write exceptions.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
