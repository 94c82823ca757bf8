package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/gateway"
	"storefront/internal/httpserver"
	"storefront/internal/migrate"
	"storefront/internal/notification"
	"storefront/internal/pricing"
	cartrepo "storefront/internal/repository/cart"
	custrepo "storefront/internal/repository/customer"
	orderrepo "storefront/internal/repository/order"
	paymentrepo "storefront/internal/repository/payment"
	productrepo "storefront/internal/repository/product"
	"storefront/internal/seed"
	cartsvc "storefront/internal/service/cart"
	"storefront/internal/service/checkout"
	custsvc "storefront/internal/service/customer"
	"storefront/internal/tracing"
)

type stores struct {
	pool      *pgxpool.Pool
	carts     cartrepo.Repository
	products  productrepo.Repository
	customers custrepo.Repository
	orders    orderrepo.Repository
	payments  paymentrepo.Repository
}

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open store backend=%s: %v", cfg.StoreBackend, err)
	}
	if st.pool != nil {
		defer st.pool.Close()
	}

	tp, err := tracing.Setup(ctx, tracing.Config{
		ServiceName:  "storefront-api",
		Exporter:     cfg.TraceExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatalf("tracing: %v", err)
	}

	cartCache := openCache(cfg, logger)

	var pay gateway.Gateway = gateway.NewStripe(gateway.StripeConfig{
		SecretKey: cfg.StripeSecretKey,
		APIURL:    cfg.StripeAPIURL,
		Timeout:   cfg.GatewayTimeout,
	}, logger)
	if cfg.StripeSecretKey == "" {
		logger.Printf("WARN gateway: STRIPE_SECRET_KEY is not set, checkout calls will fail")
	}
	pay = gateway.NewBreaker(pay, gateway.DefaultBreakerConfig(), logger)

	sender, closeSender := openSender(cfg, logger)
	defer closeSender()
	queue := notification.New(sender, notification.Options{
		Interval:    cfg.NotifyInterval,
		Workers:     cfg.NotifyWorkers,
		MaxAttempts: cfg.NotifyMaxAttempts,
		BaseDelay:   cfg.NotifyBaseDelay,
		Logger:      logger,
	})
	queue.Start(ctx)

	carts := cartsvc.New(st.carts, st.products, cartCache, cartsvc.Config{
		TTL:             cfg.CartTTL,
		DefaultCurrency: cfg.DefaultCurrency,
	}, logger).WithPayments(st.payments)
	customers := custsvc.New(st.customers, logger)
	orchestrator := checkout.New(checkout.Deps{
		Carts:     carts,
		Customers: customers,
		Orders:    st.orders,
		Payments:  st.payments,
		Gateway:   pay,
		Pricing: pricing.Percentage{
			ShippingRate:     cfg.ShippingRate,
			TaxRate:          cfg.TaxRate,
			FreeShippingOver: cfg.FreeShippingOver,
		},
		Notifier: queue,
		Stock:    st.products,
		Tracing:  tp,
	}, checkout.Config{
		Timeout:           cfg.CheckoutTimeout,
		LowStockThreshold: cfg.LowStockThreshold,
	}, logger)

	go sweepCarts(ctx, carts, cfg.CartSweep, logger)

	// a nil *pgxpool.Pool must not become a non-nil Pinger
	var ready httpserver.Pinger
	if st.pool != nil {
		ready = st.pool
	}
	srv := httpserver.New(cfg.HTTPAddr, logger, ready, httpserver.Deps{
		Carts:          carts,
		Checkout:       orchestrator,
		Orders:         st.orders,
		Customers:      customers,
		AllowedOrigins: cfg.CORSOrigins,
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s store=%s", cfg.HTTPAddr, cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}

	cancel()
	queue.Stop()
	if n := queue.Len(); n > 0 {
		logger.Printf("WARN notification: %d tasks still pending at shutdown", n)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Printf("WARN tracing: shutdown: %v", err)
	}
}

func openStores(ctx context.Context, cfg config.Config, logger *log.Logger) (stores, error) {
	switch cfg.StoreBackend {
	case "memory":
		products := productrepo.NewMemory()
		if _, err := seed.Apply(ctx, products); err != nil {
			return stores{}, err
		}
		logger.Printf("using in-memory store with demo catalog")
		return stores{
			carts:     cartrepo.NewMemory(),
			products:  products,
			customers: custrepo.NewMemory(),
			orders:    orderrepo.NewMemory(),
			payments:  paymentrepo.NewMemory(),
		}, nil
	case "postgres", "":
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			return stores{}, err
		}
		if err := migrate.Apply(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}
		return stores{
			pool:      pool,
			carts:     cartrepo.NewPostgres(pool, logger),
			products:  productrepo.NewPostgres(pool, logger),
			customers: custrepo.NewPostgres(pool, logger),
			orders:    orderrepo.NewPostgres(pool, logger),
			payments:  paymentrepo.NewPostgres(pool, logger),
		}, nil
	default:
		return stores{}, errors.New("unknown STORE_BACKEND, expected memory or postgres")
	}
}

func openCache(cfg config.Config, logger *log.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.Nop{}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	logger.Printf("cart cache: redis addr=%s", cfg.RedisAddr)
	return cache.NewRedisCache(client)
}

func openSender(cfg config.Config, logger *log.Logger) (notification.Sender, func()) {
	renderer := notification.Renderer{AdminEmail: cfg.AdminEmail}
	switch cfg.NotifyTransport {
	case "smtp":
		logger.Printf("notification: smtp addr=%s from=%s", cfg.SMTPAddr, cfg.MailFrom)
		return notification.NewSMTPSender(notification.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}, renderer), func() {}
	case "kafka":
		writer := notification.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...)
		logger.Printf("notification: kafka topic=%s brokers=%v", cfg.KafkaTopic, cfg.KafkaBrokers)
		return notification.NewKafkaSender(writer), func() { closeQuietly(writer, logger) }
	default:
		return notification.LogSender{Renderer: renderer, Logger: logger}, func() {}
	}
}

func closeQuietly(c io.Closer, logger *log.Logger) {
	if err := c.Close(); err != nil {
		logger.Printf("WARN close: %v", err)
	}
}

// sweepCarts expires carts past their TTL until ctx is done.
func sweepCarts(ctx context.Context, carts *cartsvc.Service, every time.Duration, logger *log.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := carts.ExpireStale(ctx)
			if err != nil {
				logger.Printf("ERROR cart sweep: %v", err)
				continue
			}
			if n > 0 {
				logger.Printf("cart sweep: expired=%d", n)
			}
		}
	}
}
