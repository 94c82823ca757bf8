package gateway

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"
)

type BreakerConfig struct {
	Name string
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "payment-gateway",
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// Breaker decorates a Gateway with a circuit breaker. Card declines and other
// shopper-side failures do not count against the processor.
type Breaker struct {
	next   Gateway
	cb     *gobreaker.CircuitBreaker[*Intent]
	logger *log.Logger
}

func NewBreaker(next Gateway, cfg BreakerConfig, logger *log.Logger) *Breaker {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	b := &Breaker{next: next, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker[*Intent](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("gateway breaker: name=%s state %s -> %s", name, from, to)
		},
		IsSuccessful: countsAsHealthy,
	})
	return b
}

func (b *Breaker) CreateIntent(ctx context.Context, in CreateIntentInput) (*Intent, error) {
	return b.execute(func() (*Intent, error) { return b.next.CreateIntent(ctx, in) })
}

func (b *Breaker) Retrieve(ctx context.Context, id string) (*Intent, error) {
	return b.execute(func() (*Intent, error) { return b.next.Retrieve(ctx, id) })
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) execute(call func() (*Intent, error)) (*Intent, error) {
	intent, err := b.cb.Execute(call)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &PaymentError{
			Code:    CodeUnavailable,
			Message: "the payment provider is temporarily unavailable, please try again shortly",
			Action:  ActionRetry,
			Err:     err,
		}
	}
	return intent, err
}

func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code != CodeUnavailable
	}
	// caller cancellation says nothing about the processor
	return errors.Is(err, context.Canceled)
}
