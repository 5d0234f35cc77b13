package provider

import (
	"context"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
)

// RetryPolicy bounds how often a failed provider call is repeated.
// MaxRetries counts additional attempts after the first one.
type RetryPolicy struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy is the retry behavior used when a provider does not set
// its own policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = def.BaseBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	return p
}

// Retry runs fn until it succeeds, fails permanently or the retry budget is
// exhausted. The backoff doubles on every retry starting at BaseBackoff and
// is capped at MaxBackoff. Permanent failures and context cancellation stop
// the loop immediately.
func Retry(ctx context.Context, policy RetryPolicy, logger log.Logger, fn func(ctx context.Context) error) error {
	policy = policy.normalized()

	var err error
	backoff := policy.BaseBackoff
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Warningf("Provider call failed, retrying in %s (attempt %d/%d): %v", backoff, attempt, policy.MaxRetries, err)
			select {
			case <-ctx.Done():
				return err
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > policy.MaxBackoff {
				backoff = policy.MaxBackoff
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}

	return err
}
