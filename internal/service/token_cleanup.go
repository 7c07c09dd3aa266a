// Package service holds the background jobs and outbound integrations used by
// the auth core
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiredTokenDeleter removes single-use tokens that can't be redeemed anymore
type ExpiredTokenDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// TokenCleanup periodically purges expired single-use tokens until ctx is
// done. The returned channel is closed once the job has stopped.
func TokenCleanup(ctx context.Context, t time.Duration, tokens ExpiredTokenDeleter) <-chan struct{} {
	ticker := time.NewTicker(t)
	stopped := make(chan struct{})

	zap.L().Debug("Token cleanup attached", zap.Duration("tick_every", t))

	go func() {
		defer close(stopped)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				zap.L().Debug("Token cleanup stopped")
				return
			case <-ticker.C:
				n, err := tokens.DeleteExpired(ctx)
				if err != nil {
					zap.L().Error("Failed to cleanup expired tokens", zap.Error(err))
					continue
				}

				if n > 0 {
					zap.L().Debug("Cleaned up expired tokens", zap.Int64("count", n))
				}
			}
		}
	}()

	return stopped
}
