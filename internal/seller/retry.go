package seller

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourneighborhoodchef/sellbot/internal/client"
	"github.com/yourneighborhoodchef/sellbot/internal/ratelimit"
)

// LogFailure logs err at warning level for transient transport failures and
// at error level otherwise.
func LogFailure(log *logrus.Entry, err error, msg string) {
	if client.IsTransient(err) {
		log.WithError(err).Warn(msg)
		return
	}
	log.WithError(err).Error(msg)
}

// retry runs fn up to attempts times, sleeping delay before every attempt.
func retry(ctx context.Context, log *logrus.Entry, step string, attempts int, delay time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ratelimit.Sleep(ctx, delay); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg := step + " failed"
		if attempt < attempts {
			msg += ", retrying"
		}
		LogFailure(log.WithField("step", step), lastErr, msg)
		log.Debugf("retrying %s (%d/%d)", step, attempt, attempts)
	}

	log.WithField("step", step).Error("maximum attempts reached")
	return fmt.Errorf("%w: %s: %w", ErrBootstrap, step, lastErr)
}
