package access

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries = 3
	maxRetryElapsed   = 5 * time.Second
)

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = maxRetryElapsed
	return b
}

// retry runs fn with bounded exponential backoff. Errors matching one of
// final are answers, not failures, and are returned at once.
func retry[T any](ctx context.Context, s *Service, op string, fn func() (T, error), final ...error) (T, error) {
	b := backoff.WithContext(backoff.WithMaxRetries(s.backOff(), s.maxRetries), ctx)
	return backoff.RetryNotifyWithData(func() (T, error) {
		res, err := fn()
		for _, target := range final {
			if errors.Is(err, target) {
				return res, backoff.Permanent(err)
			}
		}
		return res, err
	}, b, func(err error, next time.Duration) {
		s.l.WithFields(log.Fields{"op": op, "retry_in": next}).WithError(err).Warn("store call failed")
	})
}

func (s *Service) unavailable(l *log.Entry, op string, err error) error {
	l.WithField("op", op).WithError(err).Error(ErrDependencyUnavailable)
	return ErrDependencyUnavailable
}
