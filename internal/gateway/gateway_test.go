package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func TestRecoveryAction(t *testing.T) {
	cases := []struct {
		code, decline string
		want          Action
	}{
		{"card_declined", "insufficient_funds", ActionChangePaymentMethod},
		{"card_declined", "do_not_honor", ActionContactBank},
		{"card_declined", "try_again_later", ActionRetry},
		{"card_declined", "", ActionChangePaymentMethod},
		{"processing_error", "", ActionRetry},
		{CodeUnavailable, "", ActionRetry},
		{"something_new", "", ActionContactSupport},
		{"", "", ActionChangePaymentMethod},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RecoveryAction(tc.code, tc.decline), "code=%s decline=%s", tc.code, tc.decline)
	}
}

func TestDeclinedKeepsProcessorMessage(t *testing.T) {
	err := Declined(&Intent{ID: "pi_1", Status: domain.IntentFailed, FailureCode: "card_declined", DeclineCode: "insufficient_funds", FailureMessage: "Your card has insufficient funds."})
	assert.Equal(t, "Your card has insufficient funds.", err.Message)
	assert.Equal(t, ActionChangePaymentMethod, err.Action)
	assert.Equal(t, domain.ClassGateway, domain.Classify(err))
	assert.False(t, err.Retryable())
}

func TestDeclinedUnconfirmedIsRetryable(t *testing.T) {
	err := Declined(&Intent{ID: "pi_1", Status: domain.IntentRequiresConfirmation})
	assert.Equal(t, ActionRetry, err.Action)
	assert.True(t, err.Retryable())
	assert.Contains(t, err.Message, "requires_confirmation")
}

type stripeStub struct {
	lastIdempotencyKey atomic.Value
	status             string
	declined           bool
}

func (s *stripeStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/payment_intents", func(w http.ResponseWriter, r *http.Request) {
		s.lastIdempotencyKey.Store(r.Header.Get("Idempotency-Key"))
		if s.declined {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPaymentRequired)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{
				"type":         "card_error",
				"code":         "card_declined",
				"decline_code": "insufficient_funds",
				"message":      "Your card has insufficient funds.",
			}})
			return
		}
		_ = r.ParseForm()
		writeIntent(w, "pi_123", "requires_payment_method", r.PostForm.Get("amount"), r.PostForm.Get("currency"), nil)
	})
	mux.HandleFunc("/v1/payment_intents/pi_123", func(w http.ResponseWriter, r *http.Request) {
		var lastErr map[string]any
		if s.status == "requires_payment_method" {
			lastErr = map[string]any{"type": "card_error", "code": "card_declined", "decline_code": "do_not_honor", "message": "Your card was declined."}
		}
		writeIntent(w, "pi_123", s.status, "4200", "usd", lastErr)
	})
	return mux
}

func writeIntent(w http.ResponseWriter, id, status, amount, currency string, lastErr map[string]any) {
	body := map[string]any{
		"id":            id,
		"object":        "payment_intent",
		"client_secret": id + "_secret_abc",
		"status":        status,
		"amount":        json.Number(amount),
		"currency":      currency,
	}
	if lastErr != nil {
		body["last_payment_error"] = lastErr
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func newTestStripe(t *testing.T, stub *stripeStub) *Stripe {
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	return NewStripe(StripeConfig{SecretKey: "sk_test_123", APIURL: srv.URL, Timeout: 5 * time.Second}, nil)
}

func TestStripe_CreateIntent(t *testing.T) {
	stub := &stripeStub{}
	gw := newTestStripe(t, stub)

	intent, err := gw.CreateIntent(context.Background(), CreateIntentInput{
		Amount:         4200,
		Currency:       "USD",
		IdempotencyKey: "checkout:cart-1:attempt:1",
		Metadata:       map[string]string{"cart_id": "cart-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret_abc", intent.ClientSecret)
	assert.Equal(t, int64(4200), intent.Amount)
	assert.Equal(t, "USD", intent.Currency)
	assert.Equal(t, domain.IntentRequiresConfirmation, intent.Status)
	assert.Equal(t, "checkout:cart-1:attempt:1", stub.lastIdempotencyKey.Load())
}

func TestStripe_CreateIntentCardError(t *testing.T) {
	gw := newTestStripe(t, &stripeStub{declined: true})

	_, err := gw.CreateIntent(context.Background(), CreateIntentInput{Amount: 100, Currency: "USD", IdempotencyKey: "k"})
	var pe *PaymentError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "card_declined", pe.Code)
	assert.Equal(t, "insufficient_funds", pe.DeclineCode)
	assert.Equal(t, "Your card has insufficient funds.", pe.Message)
	assert.Equal(t, ActionChangePaymentMethod, pe.Action)
}

func TestStripe_RetrieveMapsStatus(t *testing.T) {
	cases := map[string]domain.IntentStatus{
		"succeeded":               domain.IntentSucceeded,
		"canceled":                domain.IntentFailed,
		"requires_payment_method": domain.IntentFailed,
		"requires_action":         domain.IntentRequiresConfirmation,
		"processing":              domain.IntentRequiresConfirmation,
	}
	for status, want := range cases {
		t.Run(status, func(t *testing.T) {
			gw := newTestStripe(t, &stripeStub{status: status})
			intent, err := gw.Retrieve(context.Background(), "pi_123")
			require.NoError(t, err)
			assert.Equal(t, "pi_123", intent.ID)
			assert.Equal(t, want, intent.Status)
			if status == "requires_payment_method" {
				assert.Equal(t, "do_not_honor", intent.DeclineCode)
				assert.Equal(t, "Your card was declined.", intent.FailureMessage)
			}
		})
	}
}

type scriptedGateway struct {
	calls atomic.Int32
	err   error
}

func (g *scriptedGateway) CreateIntent(context.Context, CreateIntentInput) (*Intent, error) {
	g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	return &Intent{ID: "pi_ok", Status: domain.IntentRequiresConfirmation}, nil
}

func (g *scriptedGateway) Retrieve(_ context.Context, id string) (*Intent, error) {
	g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	return &Intent{ID: id, Status: domain.IntentSucceeded}, nil
}

func TestBreaker_OpensOnProcessorOutage(t *testing.T) {
	next := &scriptedGateway{err: &PaymentError{Code: CodeUnavailable, Action: ActionRetry, Message: "down"}}
	cfg := DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 3
	b := NewBreaker(next, cfg, nil)

	for i := 0; i < 3; i++ {
		_, err := b.Retrieve(context.Background(), "pi_1")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Retrieve(context.Background(), "pi_1")
	var pe *PaymentError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.Retryable())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), next.calls.Load())
}

func TestBreaker_IgnoresDeclines(t *testing.T) {
	next := &scriptedGateway{err: &PaymentError{Code: "card_declined", Action: ActionChangePaymentMethod}}
	cfg := DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 2
	b := NewBreaker(next, cfg, nil)

	for i := 0; i < 5; i++ {
		_, err := b.CreateIntent(context.Background(), CreateIntentInput{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, int32(5), next.calls.Load())
}

func TestBreaker_PassesThrough(t *testing.T) {
	b := NewBreaker(&scriptedGateway{}, DefaultBreakerConfig(), nil)
	intent, err := b.Retrieve(context.Background(), "pi_9")
	require.NoError(t, err)
	assert.Equal(t, "pi_9", intent.ID)
}
