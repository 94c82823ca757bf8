// Package gateway is the boundary to the third-party payment processor. The
// core never keeps processor state of its own; it only reflects what Retrieve
// reports.
package gateway

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

type CreateIntentInput struct {
	Amount         int64
	Currency       string
	IdempotencyKey string
	CustomerEmail  string
	Metadata       map[string]string
}

type Intent struct {
	ID             string
	ClientSecret   string
	Status         domain.IntentStatus
	Amount         int64
	Currency       string
	FailureCode    string
	DeclineCode    string
	FailureMessage string
}

type Gateway interface {
	CreateIntent(ctx context.Context, in CreateIntentInput) (*Intent, error)
	Retrieve(ctx context.Context, id string) (*Intent, error)
}

// PaymentError carries the processor's own message and the action the shopper
// should take next.
type PaymentError struct {
	Status      domain.IntentStatus
	Code        string
	DeclineCode string
	Message     string
	Action      Action
	Err         error
}

func (e *PaymentError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payment failed: %s", e.Message)
	}
	return fmt.Sprintf("payment failed (%s): %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error { return e.Err }

func (e *PaymentError) ErrorClass() domain.Class { return domain.ClassGateway }

// Retryable reports whether the same payment method may succeed on a later try.
func (e *PaymentError) Retryable() bool { return e.Action == ActionRetry }

// Declined builds the error for an intent that reached a non-succeeded status.
func Declined(in *Intent) *PaymentError {
	msg := in.FailureMessage
	if msg == "" {
		msg = fmt.Sprintf("payment was not completed (status %s)", in.Status)
	}
	action := RecoveryAction(in.FailureCode, in.DeclineCode)
	if in.Status == domain.IntentRequiresConfirmation && in.FailureCode == "" && in.DeclineCode == "" {
		// not confirmed yet; the same method can still be confirmed
		action = ActionRetry
	}
	return &PaymentError{
		Status:      in.Status,
		Code:        in.FailureCode,
		DeclineCode: in.DeclineCode,
		Message:     msg,
		Action:      action,
	}
}
