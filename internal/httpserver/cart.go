package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
)

type lineRequest struct {
	CustomerID string  `json:"customerId"`
	SessionID  string  `json:"sessionId"`
	ProductID  string  `json:"productId"`
	VariantID  *string `json:"variantId"`
	Quantity   int     `json:"quantity"`
	Currency   string  `json:"currency"`
}

func (r lineRequest) owner() domain.Owner {
	return domain.Owner{CustomerID: r.CustomerID, SessionID: r.SessionID}
}

func ownerFromQuery(c *gin.Context) domain.Owner {
	return domain.Owner{CustomerID: c.Query("customerId"), SessionID: c.Query("sessionId")}
}

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.deps.Carts.Get(c.Request.Context(), ownerFromQuery(c))
	if err != nil {
		h.writeError(c, "get cart", err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *handlers) addItem(c *gin.Context) {
	var req lineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cart, err := h.deps.Carts.AddItem(c.Request.Context(), cartsvc.AddItemInput{
		Owner:     req.owner(),
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
		Currency:  req.Currency,
	})
	if err != nil {
		h.writeError(c, "add item", err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *handlers) updateItem(c *gin.Context) {
	var req lineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cart, err := h.deps.Carts.UpdateQuantity(c.Request.Context(), req.owner(), req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		h.writeError(c, "update item", err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *handlers) removeItem(c *gin.Context) {
	var req lineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cart, err := h.deps.Carts.RemoveItem(c.Request.Context(), req.owner(), req.ProductID, req.VariantID)
	if err != nil {
		h.writeError(c, "remove item", err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *handlers) clearCart(c *gin.Context) {
	cart, err := h.deps.Carts.Clear(c.Request.Context(), ownerFromQuery(c))
	if err != nil {
		h.writeError(c, "clear cart", err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

type mergeRequest struct {
	SessionID  string `json:"sessionId" binding:"required"`
	CustomerID string `json:"customerId" binding:"required"`
}

func (h *handlers) mergeCart(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cart, err := h.deps.Carts.MergeGuest(c.Request.Context(), req.SessionID, req.CustomerID)
	if err != nil {
		h.writeError(c, "merge cart", err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}
