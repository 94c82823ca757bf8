package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service/checkout"
	custsvc "storefront/internal/service/customer"
)

type beginRequest struct {
	CustomerID      string               `json:"customerId"`
	SessionID       string               `json:"sessionId"`
	Contact         custsvc.ContactInput `json:"contact"`
	ShippingName    string               `json:"shippingName"`
	ShippingAddress domain.Address       `json:"shippingAddress"`
	BillingAddress  domain.Address       `json:"billingAddress"`
	ShippingMethod  string               `json:"shippingMethod"`
}

func (h *handlers) beginCheckout(c *gin.Context) {
	var req beginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.deps.Checkout.Begin(c.Request.Context(), checkout.BeginInput{
		Owner:           domain.Owner{CustomerID: req.CustomerID, SessionID: req.SessionID},
		Contact:         req.Contact,
		ShippingName:    req.ShippingName,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		ShippingMethod:  req.ShippingMethod,
	})
	if err != nil {
		h.writeError(c, "begin checkout", err)
		return
	}
	status := http.StatusCreated
	if res.Reused {
		status = http.StatusOK
	}
	c.JSON(status, toIntentResponse(res))
}

func (h *handlers) retryCheckout(c *gin.Context) {
	res, err := h.deps.Checkout.Resume(c.Request.Context(), c.Param("intentId"))
	if err != nil {
		h.writeError(c, "retry checkout", err)
		return
	}
	c.JSON(http.StatusCreated, toOrderSummary(res))
}

type orderRequest struct {
	CustomerID      string         `json:"customerId"`
	PaymentIntentID string         `json:"paymentIntentId" binding:"required"`
	ShippingAddress domain.Address `json:"shippingAddress"`
	BillingAddress  domain.Address `json:"billingAddress"`
	ShippingMethod  string         `json:"shippingMethod"`
}

func (h *handlers) createOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.deps.Checkout.Complete(c.Request.Context(), checkout.CompleteInput{
		CustomerID:      req.CustomerID,
		PaymentIntentID: req.PaymentIntentID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		ShippingMethod:  req.ShippingMethod,
	})
	if err != nil {
		h.writeError(c, "create order", err)
		return
	}
	c.JSON(http.StatusCreated, toOrderSummary(res))
}

// getOrder returns the order snapshot; ?expand=customer inlines the customer.
func (h *handlers) getOrder(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := h.deps.Orders.GetByNumber(ctx, c.Param("orderNumber"))
	if err != nil {
		h.writeError(c, "get order", err)
		return
	}
	if c.Query("expand") == "customer" && h.deps.Customers != nil {
		ref, err := order.Customer.Resolve(ctx, h.deps.Customers.Get)
		if err != nil {
			h.writeError(c, "expand customer", err)
			return
		}
		order.Customer = ref
	}
	c.JSON(http.StatusOK, order)
}
