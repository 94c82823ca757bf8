package gateway

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"storefront/internal/domain"
)

type StripeConfig struct {
	SecretKey string
	// APIURL overrides the API base URL, e.g. for a local mock.
	APIURL  string
	Timeout time.Duration
}

// Stripe implements Gateway with Stripe PaymentIntents.
type Stripe struct {
	api    *client.API
	logger *log.Logger
}

func NewStripe(cfg StripeConfig, logger *log.Logger) *Stripe {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(2),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &Stripe{api: api, logger: logger}
}

func (s *Stripe) CreateIntent(ctx context.Context, in CreateIntentInput) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.Amount),
		Currency: stripe.String(strings.ToLower(in.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if in.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(in.CustomerEmail)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	params.SetIdempotencyKey(in.IdempotencyKey)

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		s.logger.Printf("stripe: create intent key=%s err=%v", in.IdempotencyKey, err)
		return nil, toPaymentError(err)
	}
	s.logger.Printf("stripe: created intent id=%s key=%s status=%s", pi.ID, in.IdempotencyKey, pi.Status)
	return fromStripe(pi), nil
}

func (s *Stripe) Retrieve(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		s.logger.Printf("stripe: retrieve intent id=%s err=%v", id, err)
		return nil, toPaymentError(err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	out := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
	}
	if pe := pi.LastPaymentError; pe != nil {
		out.FailureCode = string(pe.Code)
		out.DeclineCode = string(pe.DeclineCode)
		out.FailureMessage = pe.Msg
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		out.Status = domain.IntentSucceeded
	case stripe.PaymentIntentStatusCanceled:
		out.Status = domain.IntentFailed
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if pi.LastPaymentError != nil {
			out.Status = domain.IntentFailed
		} else {
			out.Status = domain.IntentRequiresConfirmation
		}
	default:
		out.Status = domain.IntentRequiresConfirmation
	}
	return out
}

func toPaymentError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		code := string(se.Code)
		if se.Type == stripe.ErrorTypeAPI || se.HTTPStatusCode >= http.StatusInternalServerError {
			code = CodeUnavailable
		}
		return &PaymentError{
			Status:      domain.IntentFailed,
			Code:        code,
			DeclineCode: string(se.DeclineCode),
			Message:     se.Msg,
			Action:      RecoveryAction(code, string(se.DeclineCode)),
			Err:         err,
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &PaymentError{
		Code:    CodeUnavailable,
		Message: "the payment provider could not be reached, please try again",
		Action:  ActionRetry,
		Err:     err,
	}
}
