// Package checkout drives a checkout attempt from a cart to a paid order.
//
// Begin resolves the customer and opens a payment intent. Complete (or
// Resume, for a retry) confirms the intent with the gateway, freezes the cart
// and writes the order. Writing the order is the commit point: nothing after
// it can undo the purchase, and failures past it are only logged.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/domain"
	"storefront/internal/gateway"
	"storefront/internal/notification"
	"storefront/internal/pricing"
	orderrepo "storefront/internal/repository/order"
	paymentrepo "storefront/internal/repository/payment"
	custsvc "storefront/internal/service/customer"
)

const (
	defaultShippingMethod = "standard"
	tracerName            = "storefront/checkout"
)

// Carts is the cart store as checkout sees it. Reads go to the store, never to
// a cache.
type Carts interface {
	Active(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	ByID(ctx context.Context, cartID string) (*domain.Cart, error)
	Checkout(ctx context.Context, cartID string) (*domain.Cart, error)
	Reopen(ctx context.Context, cartID string) error
	ClearConverted(ctx context.Context, cartID string) error
}

type Customers interface {
	Resolve(ctx context.Context, in custsvc.ContactInput) (*domain.Customer, error)
	Get(ctx context.Context, id string) (*domain.Customer, error)
	RememberAddresses(ctx context.Context, customerID string, shipping, billing domain.Address) error
	RecordOrder(ctx context.Context, o *domain.Order) error
}

type Notifier interface {
	Enqueue(typ notification.Type, payload any, priority notification.Priority) (string, error)
}

type Stock interface {
	DecrementStock(ctx context.Context, productID, variantID string, qty int) (int, error)
}

// Deps are the collaborators of the orchestrator. Stock may be nil. Tracing
// defaults to the global tracer provider.
type Deps struct {
	Carts     Carts
	Customers Customers
	Orders    orderrepo.Repository
	Payments  paymentrepo.Repository
	Gateway   gateway.Gateway
	Pricing   pricing.Strategy
	Notifier  Notifier
	Stock     Stock
	Tracing   trace.TracerProvider
}

type Config struct {
	// Timeout bounds a whole Complete or Resume call.
	Timeout time.Duration
	// StepTimeout bounds each step within a call.
	StepTimeout time.Duration
	// LowStockThreshold triggers an admin notification when tracked stock
	// drops below it after an order. Zero disables the check.
	LowStockThreshold int
}

type Orchestrator struct {
	deps   Deps
	cfg    Config
	logger *log.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func New(deps Deps, cfg Config, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if deps.Pricing == nil {
		deps.Pricing = pricing.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.StepTimeout <= 0 || cfg.StepTimeout > cfg.Timeout {
		cfg.StepTimeout = cfg.Timeout
	}
	if deps.Tracing == nil {
		deps.Tracing = otel.GetTracerProvider()
	}
	return &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		tracer: deps.Tracing.Tracer(tracerName),
		now:    time.Now,
	}
}

type BeginInput struct {
	Owner           domain.Owner
	Contact         custsvc.ContactInput
	ShippingName    string
	ShippingAddress domain.Address
	BillingAddress  domain.Address
	ShippingMethod  string
}

type BeginResult struct {
	IntentID     string          `json:"intentId"`
	ClientSecret string          `json:"clientSecret"`
	Amount       int64           `json:"amount"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	CustomerID   string          `json:"customerId"`
	CartID       string          `json:"cartId"`
	Attempt      int             `json:"attempt"`
	Reused       bool            `json:"reused"`
	Steps        []Step          `json:"steps"`
}

// Begin runs the first two steps: it resolves the customer by email and opens
// a payment intent for the server-side total of the owner's cart. Input is
// validated before anything external is touched. An open intent for the same
// cart, customer, amount and details is returned again instead of opening a
// second one.
func (o *Orchestrator) Begin(ctx context.Context, in BeginInput) (*BeginResult, error) {
	details, err := in.validate()
	if err != nil {
		return nil, err
	}
	cart, err := o.deps.Carts.Active(ctx, in.Owner)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrCartEmpty
	}

	quote, err := o.deps.Pricing.Quote(ctx, pricing.QuoteInput{
		Subtotal:        cart.Subtotal,
		Currency:        cart.Currency,
		ShippingMethod:  details.ShippingMethod,
		ShippingAddress: details.ShippingAddress,
	})
	if err != nil {
		return nil, err
	}
	amount := domain.ToMinorUnits(quote.Total(cart.Subtotal), cart.Currency)
	if amount <= 0 {
		return nil, domain.Invalid("amount", "order total must be positive")
	}

	r := newRun(StateStarted)
	attrs := []attribute.KeyValue{attribute.String("cart.id", cart.ID), attribute.String("cart.owner", in.Owner.Key())}

	var customer *domain.Customer
	err = o.step(ctx, attrs, StateCustomerResolved, func(ctx context.Context) error {
		contact := in.Contact
		if strings.TrimSpace(contact.FirstName) == "" && strings.TrimSpace(contact.LastName) == "" {
			contact.FirstName, contact.LastName = splitName(firstNonEmpty(in.ShippingName, details.ShippingAddress.Name))
		}
		if strings.TrimSpace(contact.Phone) == "" {
			contact.Phone = details.ShippingAddress.Phone
		}
		var err error
		customer, err = o.deps.Customers.Resolve(ctx, contact)
		return err
	})
	if err != nil {
		r.abort(err)
		return nil, err
	}
	if err := r.advance(StateCustomerResolved, nil); err != nil {
		return nil, err
	}

	var (
		intent *domain.PaymentIntent
		reused bool
	)
	attrs = append(attrs, attribute.String("customer.id", customer.ID), attribute.Int64("payment.amount", amount))
	err = o.step(ctx, attrs, StatePaymentIntentCreated, func(ctx context.Context) error {
		var err error
		intent, reused, err = o.openIntent(ctx, cart, customer, amount, details)
		return err
	})
	if err != nil {
		r.abort(err)
		o.logger.Printf("checkout: create intent cart_id=%s err=%v", cart.ID, err)
		return nil, err
	}
	if err := r.advance(StatePaymentIntentCreated, nil); err != nil {
		return nil, err
	}

	return &BeginResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Total:        domain.FromMinorUnits(intent.Amount, intent.Currency),
		Currency:     intent.Currency,
		CustomerID:   customer.ID,
		CartID:       cart.ID,
		Attempt:      intent.Attempt,
		Reused:       reused,
		Steps:        r.steps,
	}, nil
}

func (o *Orchestrator) openIntent(ctx context.Context, cart *domain.Cart, customer *domain.Customer, amount int64, details domain.CheckoutDetails) (*domain.PaymentIntent, bool, error) {
	prior, err := o.deps.Payments.ListByCart(ctx, cart.ID)
	if err != nil {
		return nil, false, fmt.Errorf("checkout: list intents cart_id=%s: %w", cart.ID, err)
	}
	if n := len(prior); n > 0 {
		last := prior[n-1]
		if last.Open() && last.Amount == amount && last.Currency == cart.Currency &&
			last.CustomerID == customer.ID && last.Details == details {
			return last, true, nil
		}
	}

	attempt := len(prior) + 1
	key := domain.IdempotencyKey(cart.ID, attempt)
	created, err := o.deps.Gateway.CreateIntent(ctx, gateway.CreateIntentInput{
		Amount:         amount,
		Currency:       cart.Currency,
		IdempotencyKey: key,
		CustomerEmail:  customer.Email,
		Metadata: map[string]string{
			"cart_id":     cart.ID,
			"customer_id": customer.ID,
			"attempt":     strconv.Itoa(attempt),
		},
	})
	if err != nil {
		return nil, false, err
	}

	now := o.now().UTC()
	intent := &domain.PaymentIntent{
		ID:             created.ID,
		ClientSecret:   created.ClientSecret,
		Status:         created.Status,
		Amount:         amount,
		Currency:       cart.Currency,
		CartID:         cart.ID,
		CustomerID:     customer.ID,
		Attempt:        attempt,
		IdempotencyKey: key,
		Details:        details,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := o.deps.Payments.Create(ctx, intent); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// the gateway replayed an intent stored by an earlier attempt
			stored, gerr := o.deps.Payments.Get(ctx, created.ID)
			if gerr == nil {
				return stored, true, nil
			}
		}
		return nil, false, fmt.Errorf("checkout: store intent id=%s: %w", created.ID, err)
	}
	return intent, false, nil
}

type CompleteInput struct {
	CustomerID      string
	PaymentIntentID string
	ShippingAddress domain.Address
	BillingAddress  domain.Address
	ShippingMethod  string
}

type Result struct {
	State State         `json:"state"`
	Order *domain.Order `json:"order,omitempty"`
	Steps []Step        `json:"steps"`
}

// Complete turns a paid intent into an order. Addresses and shipping method
// default to the ones given at Begin. Changed details must price to the amount
// already authorized, otherwise Complete fails validation before the payment
// step.
func (o *Orchestrator) Complete(ctx context.Context, in CompleteInput) (*Result, error) {
	if strings.TrimSpace(in.PaymentIntentID) == "" {
		return nil, domain.Invalid("paymentIntentId", "is required")
	}
	intent, err := o.loadIntent(ctx, in.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if in.CustomerID != "" && in.CustomerID != intent.CustomerID {
		return nil, domain.Invalid("customerId", "does not match the payment intent")
	}

	details := intent.Details
	if in.ShippingAddress.Line1 != "" {
		if err := in.ShippingAddress.Validate("shippingAddress"); err != nil {
			return nil, err
		}
		details.ShippingAddress = in.ShippingAddress
	}
	if in.BillingAddress.Line1 != "" {
		if err := in.BillingAddress.Validate("billingAddress"); err != nil {
			return nil, err
		}
		details.BillingAddress = in.BillingAddress
	}
	if m := strings.TrimSpace(in.ShippingMethod); m != "" {
		details.ShippingMethod = m
	}
	if details != intent.Details {
		if err := o.requote(ctx, intent, details); err != nil {
			return nil, err
		}
	}
	return o.finish(ctx, intent, details)
}

// requote prices the intent's cart with details and rejects them when the
// total differs from the authorized amount.
func (o *Orchestrator) requote(ctx context.Context, intent *domain.PaymentIntent, details domain.CheckoutDetails) error {
	cart, err := o.deps.Carts.ByID(ctx, intent.CartID)
	if err != nil {
		return err
	}
	quote, err := o.deps.Pricing.Quote(ctx, pricing.QuoteInput{
		Subtotal:        cart.Subtotal,
		Currency:        cart.Currency,
		ShippingMethod:  details.ShippingMethod,
		ShippingAddress: details.ShippingAddress,
	})
	if err != nil {
		return err
	}
	if amount := domain.ToMinorUnits(quote.Total(cart.Subtotal), cart.Currency); amount != intent.Amount {
		o.logger.Printf("checkout: details change total intent=%s amount=%d requoted=%d", intent.ID, intent.Amount, amount)
		field := "shippingAddress"
		if details.ShippingMethod != intent.Details.ShippingMethod {
			field = "shippingMethod"
		}
		return domain.Invalid(field, "changes the total of an authorized payment, start checkout again")
	}
	return nil
}

// Resume retries confirmation for an intent created earlier by Begin. It
// starts at the payment check and reuses the customer and details stored
// with the intent.
func (o *Orchestrator) Resume(ctx context.Context, intentID string) (*Result, error) {
	intent, err := o.loadIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	return o.finish(ctx, intent, intent.Details)
}

func (o *Orchestrator) loadIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	intent, err := o.deps.Payments.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: id=%s", domain.ErrForeignIntent, id)
	}
	if err != nil {
		return nil, fmt.Errorf("checkout: load intent id=%s: %w", id, err)
	}
	return intent, nil
}

// finish runs steps three to six for a stored intent.
func (o *Orchestrator) finish(ctx context.Context, intent *domain.PaymentIntent, details domain.CheckoutDetails) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	r := newRun(StatePaymentIntentCreated)
	result := func(order *domain.Order) *Result {
		return &Result{State: r.state, Order: order, Steps: r.steps}
	}
	fail := func(err error) (*Result, error) {
		r.abort(err)
		return result(nil), err
	}
	attrs := []attribute.KeyValue{
		attribute.String("payment.intent_id", intent.ID),
		attribute.String("cart.id", intent.CartID),
		attribute.String("customer.id", intent.CustomerID),
	}

	// Step 3: only a succeeded intent with the id we stored may go on.
	err := o.step(ctx, attrs, StatePaymentConfirmed, func(ctx context.Context) error {
		return o.confirm(ctx, intent)
	})
	if err != nil {
		return fail(err)
	}
	if err := r.advance(StatePaymentConfirmed, nil); err != nil {
		return fail(err)
	}

	// Step 4: commit point.
	var order *domain.Order
	err = o.step(ctx, attrs, StateOrderCreated, func(ctx context.Context) error {
		var err error
		order, err = o.createOrder(ctx, intent, details)
		return err
	})
	if err != nil {
		return fail(err)
	}
	if err := r.advance(StateOrderCreated, nil); err != nil {
		return fail(err)
	}
	o.logger.Printf("checkout: order created order=%s cart_id=%s intent=%s total=%s", order.OrderNumber, order.CartID, intent.ID, domain.FormatMoney(order.Total, order.Currency))

	// Past the commit point nothing fails the checkout. Step 5: clear cart.
	err = o.step(ctx, attrs, StateCartCleared, func(ctx context.Context) error {
		return o.deps.Carts.ClearConverted(ctx, order.CartID)
	})
	if err != nil {
		o.logger.Printf("WARN checkout: clear cart cart_id=%s order=%s err=%v", order.CartID, order.OrderNumber, err)
	}
	_ = r.advance(StateCartCleared, err)

	// Step 6: notifications.
	err = o.step(ctx, attrs, StateNotificationEnqueued, func(ctx context.Context) error {
		return o.notify(ctx, order)
	})
	if err != nil {
		o.logger.Printf("WARN checkout: enqueue notifications order=%s err=%v", order.OrderNumber, err)
	}
	_ = r.advance(StateNotificationEnqueued, err)

	o.afterCommit(ctx, order)
	_ = r.advance(StateComplete, nil)
	return result(order), nil
}

func (o *Orchestrator) confirm(ctx context.Context, intent *domain.PaymentIntent) error {
	got, err := o.deps.Gateway.Retrieve(ctx, intent.ID)
	if err != nil {
		return err
	}
	if got.ID != intent.ID {
		o.logger.Printf("ERROR checkout: gateway returned intent=%s for stored intent=%s", got.ID, intent.ID)
		return &domain.IntegrityError{Op: "confirm payment", Err: fmt.Errorf("%w: gateway returned %s for %s", domain.ErrForeignIntent, got.ID, intent.ID)}
	}
	if got.Status != intent.Status {
		if err := o.deps.Payments.UpdateStatus(ctx, intent.ID, got.Status, got.FailureMessage); err != nil {
			o.logger.Printf("checkout: update intent status id=%s status=%s err=%v", intent.ID, got.Status, err)
		}
		intent.Status = got.Status
	}
	if got.Status != domain.IntentSucceeded {
		return gateway.Declined(got)
	}
	return nil
}

// createOrder freezes the cart and writes the order for it. Any failure before
// the order is stored puts the cart back to active.
func (o *Orchestrator) createOrder(ctx context.Context, intent *domain.PaymentIntent, details domain.CheckoutDetails) (*domain.Order, error) {
	cart, err := o.deps.Carts.Checkout(ctx, intent.CartID)
	if err != nil {
		var integrity *domain.IntegrityError
		if errors.As(err, &integrity) {
			o.logger.Printf("ERROR checkout: paid intent=%s amount=%d %s has no order, cart_id=%s err=%v",
				intent.ID, intent.Amount, intent.Currency, intent.CartID, err)
		}
		return nil, err
	}

	order, err := o.buildOrder(ctx, cart, intent, details)
	if err == nil {
		err = o.deps.Orders.Create(ctx, order)
		if errors.Is(err, domain.ErrAlreadyExists) {
			// an order for this intent exists, so the cart stays converted
			return nil, fmt.Errorf("%w: order for intent %s exists", domain.ErrCartAlreadyConverted, intent.ID)
		}
	}
	if err != nil {
		o.compensate(cart.ID, err)
		return nil, err
	}
	return order, nil
}

func (o *Orchestrator) buildOrder(ctx context.Context, cart *domain.Cart, intent *domain.PaymentIntent, details domain.CheckoutDetails) (*domain.Order, error) {
	if cart.IsEmpty() {
		return nil, domain.ErrCartEmpty
	}
	quote, err := o.deps.Pricing.Quote(ctx, pricing.QuoteInput{
		Subtotal:        cart.Subtotal,
		Currency:        cart.Currency,
		ShippingMethod:  details.ShippingMethod,
		ShippingAddress: details.ShippingAddress,
	})
	if err != nil {
		return nil, err
	}
	order := &domain.Order{
		Customer:         domain.Reference[domain.Customer](intent.CustomerID),
		CartID:           cart.ID,
		Items:            domain.OrderItemsFromCart(cart.Items),
		Currency:         cart.Currency,
		ShippingCost:     quote.Shipping,
		TaxAmount:        quote.Tax,
		Status:           domain.OrderConfirmed,
		PaymentStatus:    domain.PaymentPaid,
		PaymentReference: intent.ID,
		ShippingAddress:  details.ShippingAddress,
		BillingAddress:   details.BillingAddress,
		ShippingMethod:   details.ShippingMethod,
		CreatedAt:        o.now().UTC(),
	}
	order.Recalculate()
	if err := order.VerifyTotals(); err != nil {
		return nil, err
	}
	if order.Currency != intent.Currency || domain.ToMinorUnits(order.Total, order.Currency) != intent.Amount {
		o.logger.Printf("ERROR checkout: total mismatch cart_id=%s intent=%s order_total=%s %s intent_amount=%d %s",
			cart.ID, intent.ID, domain.FormatMoney(order.Total, order.Currency), order.Currency, intent.Amount, intent.Currency)
		return nil, &domain.IntegrityError{
			Op:  "create order",
			Err: fmt.Errorf("%w: order=%s intent=%s", domain.ErrTotalMismatch, domain.FormatMoney(order.Total, order.Currency), domain.FormatMoney(domain.FromMinorUnits(intent.Amount, intent.Currency), intent.Currency)),
		}
	}
	return order, nil
}

// compensate reopens a cart frozen by a checkout that wrote no order. It runs
// on a fresh context so a timed-out checkout still releases the cart.
func (o *Orchestrator) compensate(cartID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.StepTimeout)
	defer cancel()
	if err := o.deps.Carts.Reopen(ctx, cartID); err != nil {
		o.logger.Printf("ERROR checkout: reopen cart_id=%s after %v err=%v", cartID, cause, err)
		return
	}
	o.logger.Printf("checkout: reopened cart_id=%s after %v", cartID, cause)
}

func (o *Orchestrator) notify(ctx context.Context, order *domain.Order) error {
	if o.deps.Notifier == nil {
		return nil
	}
	ref, err := order.Customer.Resolve(ctx, o.deps.Customers.Get)
	if err != nil {
		return fmt.Errorf("load customer %s: %w", order.Customer.ID(), err)
	}
	order.Customer = ref
	customer, _ := ref.Value()

	items := make([]notification.LineSummary, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, notification.LineSummary{Title: it.Title, Quantity: it.Quantity, LineTotal: it.TotalPrice})
	}
	var errs []error
	if _, err := o.deps.Notifier.Enqueue(notification.TypeOrderConfirmation, notification.OrderConfirmation{
		OrderNumber:   order.OrderNumber,
		CustomerEmail: customer.Email,
		CustomerName:  customer.FullName(),
		Items:         items,
		Total:         order.Total,
		Currency:      order.Currency,
	}, notification.PriorityHigh); err != nil {
		errs = append(errs, fmt.Errorf("order confirmation: %w", err))
	}
	if _, err := o.deps.Notifier.Enqueue(notification.TypeAdminNotification, notification.AdminNotification{
		Subject: fmt.Sprintf("New order %s", order.OrderNumber),
		Message: fmt.Sprintf("Order %s from %s: %d items, total %s %s.", order.OrderNumber, customer.Email, len(order.Items), domain.FormatMoney(order.Total, order.Currency), order.Currency),
	}, notification.PriorityLow); err != nil {
		errs = append(errs, fmt.Errorf("admin notification: %w", err))
	}
	return errors.Join(errs...)
}

// afterCommit updates customer stats, saved addresses and stock. Each write is
// independent and only logged on failure.
func (o *Orchestrator) afterCommit(ctx context.Context, order *domain.Order) {
	customerID := order.Customer.ID()
	if err := o.deps.Customers.RecordOrder(ctx, order); err != nil {
		o.logger.Printf("WARN checkout: record order stats order=%s err=%v", order.OrderNumber, err)
	}
	if err := o.deps.Customers.RememberAddresses(ctx, customerID, order.ShippingAddress, order.BillingAddress); err != nil {
		o.logger.Printf("WARN checkout: save addresses customer=%s err=%v", customerID, err)
	}
	if o.deps.Stock == nil {
		return
	}
	for _, it := range order.Items {
		variant := domain.NormalizeVariant(it.VariantID)
		left, err := o.deps.Stock.DecrementStock(ctx, it.ProductID, variant, it.Quantity)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			o.logger.Printf("WARN checkout: decrement stock product=%s variant=%s err=%v", it.ProductID, variant, err)
			continue
		}
		if o.cfg.LowStockThreshold > 0 && left < o.cfg.LowStockThreshold && o.deps.Notifier != nil {
			_, err := o.deps.Notifier.Enqueue(notification.TypeAdminNotification, notification.AdminNotification{
				Subject: fmt.Sprintf("Low stock: %s", it.Title),
				Message: fmt.Sprintf("%s (sku %s) has %d left after order %s.", it.Title, it.SKU, left, order.OrderNumber),
			}, notification.PriorityNormal)
			if err != nil {
				o.logger.Printf("WARN checkout: enqueue low stock product=%s err=%v", it.ProductID, err)
			}
		}
	}
}

// step runs fn under its own span and timeout.
func (o *Orchestrator) step(ctx context.Context, attrs []attribute.KeyValue, state State, fn func(ctx context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "checkout."+string(state), trace.WithAttributes(attrs...))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, o.cfg.StepTimeout)
	defer cancel()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (in BeginInput) validate() (domain.CheckoutDetails, error) {
	if err := in.Owner.Validate(); err != nil {
		return domain.CheckoutDetails{}, err
	}
	if err := in.Contact.Validate(); err != nil {
		return domain.CheckoutDetails{}, err
	}
	shipping := in.ShippingAddress
	if strings.TrimSpace(shipping.Name) == "" {
		shipping.Name = strings.TrimSpace(in.ShippingName)
	}
	if err := shipping.Validate("shippingAddress"); err != nil {
		return domain.CheckoutDetails{}, err
	}
	billing := in.BillingAddress
	if billing == (domain.Address{}) {
		billing = shipping
	} else if err := billing.Validate("billingAddress"); err != nil {
		return domain.CheckoutDetails{}, err
	}
	method := strings.TrimSpace(in.ShippingMethod)
	if method == "" {
		method = defaultShippingMethod
	}
	return domain.CheckoutDetails{ShippingAddress: shipping, BillingAddress: billing, ShippingMethod: method}, nil
}

func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	first, last, _ := strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
