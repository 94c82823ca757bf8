package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was hit.
	ErrAlreadyExists = errors.New("already exists")

	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidOwner       = errors.New("cart owner requires exactly one of customer id or session id")
	ErrProductUnavailable = errors.New("product is not available for purchase")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrCurrencyMismatch   = errors.New("currency does not match cart currency")
	ErrCartEmpty          = errors.New("cart is empty, nothing to checkout")
	ErrUnsupportedAmount  = errors.New("amount is finer than the currency minor unit")

	// ErrDuplicateActiveCart means more than one active cart exists for the same owner.
	ErrDuplicateActiveCart = errors.New("more than one active cart for owner")
	// ErrConcurrentModification is returned when an optimistic version check fails.
	ErrConcurrentModification = errors.New("cart was modified concurrently")
	// ErrCartAlreadyConverted is returned when a cart already went through checkout.
	ErrCartAlreadyConverted = errors.New("this cart was already checked out")
	// ErrCartNotActive is returned when a cart left active for a status other
	// than converted while a checkout for it was in flight.
	ErrCartNotActive = errors.New("cart is no longer active")
	ErrTotalMismatch = errors.New("order total does not match the payment amount")
	// ErrForeignIntent is returned for payment intents this service did not create.
	ErrForeignIntent     = errors.New("payment intent was not created by this checkout")
	ErrIllegalTransition = errors.New("illegal transition of checkout state")
)

// ValidationError reports a caller mistake detected before any external call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IntegrityError marks a violated data invariant. It is never auto-corrected.
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation in %s: %v", e.Op, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Class is the coarse error taxonomy used at the API boundary.
type Class string

const (
	ClassValidation   Class = "validation"
	ClassAvailability Class = "availability"
	ClassGateway      Class = "gateway"
	ClassConflict     Class = "conflict"
	ClassNotFound     Class = "not_found"
	ClassIntegrity    Class = "integrity"
	ClassInternal     Class = "internal"
)

// classifier lets other packages (gateway) plug their own error types into Classify.
type classifier interface {
	ErrorClass() Class
}

// Classify maps err onto the error taxonomy.
func Classify(err error) Class {
	if err == nil {
		return ""
	}
	var c classifier
	if errors.As(err, &c) {
		return c.ErrorClass()
	}
	var integrity *IntegrityError
	if errors.As(err, &integrity) {
		return ClassIntegrity
	}
	var validation *ValidationError
	switch {
	case errors.As(err, &validation),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidOwner),
		errors.Is(err, ErrCurrencyMismatch),
		errors.Is(err, ErrCartEmpty),
		errors.Is(err, ErrUnsupportedAmount):
		return ClassValidation
	case errors.Is(err, ErrProductUnavailable), errors.Is(err, ErrInsufficientStock):
		return ClassAvailability
	case errors.Is(err, ErrCartAlreadyConverted), errors.Is(err, ErrConcurrentModification):
		return ClassConflict
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForeignIntent):
		return ClassNotFound
	case errors.Is(err, ErrDuplicateActiveCart), errors.Is(err, ErrTotalMismatch):
		return ClassIntegrity
	}
	return ClassInternal
}
