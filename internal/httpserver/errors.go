package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/gateway"
)

const genericMessage = "something went wrong, please try again"

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// writeError maps err onto a status code and the public error envelope.
// Integrity and internal failures are logged and never shown verbatim.
func (h *handlers) writeError(c *gin.Context, op string, err error) {
	status, body := h.errorBody(op, err)
	c.AbortWithStatusJSON(status, body)
}

func (h *handlers) errorBody(op string, err error) (int, errorResponse) {
	if errors.Is(err, context.DeadlineExceeded) {
		h.logger.Printf("WARN http: %s timed out err=%v", op, err)
		return http.StatusGatewayTimeout, errorResponse{
			Error:   "timeout",
			Message: "the request took too long, retry with the same payment",
		}
	}

	switch domain.Classify(err) {
	case domain.ClassValidation:
		return http.StatusBadRequest, errorResponse{Error: "validation_error", Message: err.Error()}
	case domain.ClassAvailability:
		return http.StatusConflict, errorResponse{Error: "unavailable", Message: err.Error()}
	case domain.ClassConflict:
		code := "conflict"
		if errors.Is(err, domain.ErrCartAlreadyConverted) {
			code = "cart_already_converted"
		}
		return http.StatusConflict, errorResponse{Error: code, Message: err.Error()}
	case domain.ClassNotFound:
		return http.StatusNotFound, errorResponse{Error: "not_found", Message: err.Error()}
	case domain.ClassGateway:
		var perr *gateway.PaymentError
		if errors.As(err, &perr) {
			return http.StatusPaymentRequired, errorResponse{
				Error:   "payment_failed",
				Message: perr.Message,
				Action:  string(perr.Action),
			}
		}
		return http.StatusPaymentRequired, errorResponse{Error: "payment_failed", Message: err.Error()}
	case domain.ClassIntegrity:
		h.logger.Printf("ERROR http: %s integrity violation err=%v", op, err)
	default:
		h.logger.Printf("ERROR http: %s failed err=%v", op, err)
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: genericMessage}
}

func (h *handlers) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error:   "validation_error",
		Message: "malformed request body: " + err.Error(),
	})
}
