package httpserver

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	"storefront/internal/service/checkout"
)

type CartService interface {
	Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	AddItem(ctx context.Context, in cartsvc.AddItemInput) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, owner domain.Owner, productID string, variantID *string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, owner domain.Owner, productID string, variantID *string) (*domain.Cart, error)
	Clear(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	MergeGuest(ctx context.Context, sessionID, customerID string) (*domain.Cart, error)
}

type CheckoutService interface {
	Begin(ctx context.Context, in checkout.BeginInput) (*checkout.BeginResult, error)
	Complete(ctx context.Context, in checkout.CompleteInput) (*checkout.Result, error)
	Resume(ctx context.Context, intentID string) (*checkout.Result, error)
}

type OrderReader interface {
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
}

type CustomerReader interface {
	Get(ctx context.Context, id string) (*domain.Customer, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Carts     CartService
	Checkout  CheckoutService
	Orders    OrderReader
	Customers CustomerReader
	// AllowedOrigins lists storefront origins for CORS; empty or "*" allows any.
	AllowedOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db Pinger, deps Deps) *gin.Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}

	cart := router.Group("/cart")
	cart.GET("", h.getCart)
	cart.DELETE("", h.clearCart)
	cart.POST("/items", h.addItem)
	cart.PUT("/items", h.updateItem)
	cart.DELETE("/items", h.removeItem)
	cart.POST("/merge", h.mergeCart)

	router.POST("/checkout/intents", h.beginCheckout)
	router.POST("/checkout/intents/:intentId/retry", h.retryCheckout)
	router.POST("/orders", h.createOrder)
	router.GET("/orders/:orderNumber", h.getOrder)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

type handlers struct {
	deps   Deps
	logger *log.Logger
}
