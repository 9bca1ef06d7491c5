package pubmed

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/variantlab/pubcounter/internal/metrics"
)

// Sentinel marks a key whose count could not be obtained after exhausting
// every retry.
const Sentinel = -1

// Transport-level faults (connection resets, garbled bodies) restart the
// whole attempt loop under exponential backoff, separately from the
// service's own throttle and error signaling.
const (
	outerAttempts    = 5
	outerBackoffBase = time.Second
)

// RetryPolicy bounds the per-key attempt loop. It is built once per run and
// shared read-only by every resolve.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Resolver turns one lookup key into a count or the failure sentinel.
type Resolver interface {
	Resolve(ctx context.Context, key string, policy RetryPolicy) int
}

// Engine drives the per-key retry state machine over a Querier.
type Engine struct {
	querier Querier
	logger  *zap.Logger
	metrics *metrics.Collector

	sleep       func(time.Duration)
	backoffBase time.Duration
}

func NewEngine(querier Querier, logger *zap.Logger, metrics *metrics.Collector) *Engine {
	return &Engine{
		querier:     querier,
		logger:      logger,
		metrics:     metrics,
		sleep:       time.Sleep,
		backoffBase: outerBackoffBase,
	}
}

// Resolve queries the service for key until it succeeds, the policy's attempt
// budget runs out, or the transport keeps failing. It is a total function:
// every failure mode ends in the sentinel, never an error, so one bad key can
// never abort a file-wide run.
func (e *Engine) Resolve(ctx context.Context, key string, policy RetryPolicy) int {
	var count int

	backoff := retry.WithMaxRetries(outerAttempts-1, retry.NewExponential(e.backoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		n, err := e.attemptLoop(ctx, key, policy)
		if err != nil {
			e.logger.Warn("Transport failure, backing off",
				zap.String("key", key),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		count = n
		return nil
	})
	if err != nil {
		e.metrics.RecordKeyFailed()
		e.logger.Error("Failed to query key after repeated transport failures",
			zap.String("key", key),
			zap.Int("attempts", outerAttempts),
			zap.Error(err))
		return Sentinel
	}
	return count
}

// attemptLoop runs the per-key state machine: each attempt either succeeds,
// consumes retry budget on a service-reported fault, or aborts with a
// transport error for the outer backoff layer to handle.
func (e *Engine) attemptLoop(ctx context.Context, key string, policy RetryPolicy) (int, error) {
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		count, err := e.querier.Count(ctx, key)
		if err == nil {
			e.metrics.RecordQuery("ok")
			return count, nil
		}

		var fault *ServiceFault
		if !errors.As(err, &fault) {
			e.metrics.RecordQuery("transport")
			return 0, err
		}

		e.metrics.RecordQuery(fault.Kind.String())
		switch fault.Kind {
		case FaultThrottled:
			e.logger.Warn("PubMed rate limit hit",
				zap.String("key", key),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", policy.MaxAttempts),
				zap.Error(fault))
			if attempt < policy.MaxAttempts {
				e.logger.Info("Pausing before retry", zap.Duration("delay", policy.Delay))
			}
		case FaultServer:
			e.logger.Warn("PubMed server error",
				zap.String("key", key),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", policy.MaxAttempts),
				zap.Error(fault))
		default:
			e.logger.Error("PubMed query failed",
				zap.String("key", key),
				zap.Int("attempt", attempt),
				zap.Error(fault))
		}

		// Pause between every failed attempt, whatever the fault class, so
		// retries never hammer the service.
		if attempt < policy.MaxAttempts {
			e.metrics.RecordRetryPause()
			e.sleep(policy.Delay)
		}
	}

	e.metrics.RecordKeyFailed()
	e.logger.Error("Failed to resolve key after exhausting retries",
		zap.String("key", key),
		zap.Int("attempts", policy.MaxAttempts))
	return Sentinel, nil
}
