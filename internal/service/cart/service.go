// Package cart keeps cart documents consistent: every write recomputes derived
// totals, goes through the owner's single active cart and is version checked.
package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"storefront/internal/cache"
	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
)

// maxSaveAttempts bounds reload-and-reapply rounds on version conflicts.
const maxSaveAttempts = 3

type productReader interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// intentLister reports the payment intents opened for a cart.
type intentLister interface {
	ListByCart(ctx context.Context, cartID string) ([]*domain.PaymentIntent, error)
}

type Config struct {
	TTL             time.Duration
	DefaultCurrency string
}

type Service struct {
	carts    cartrepo.Repository
	products productReader
	cache    cache.Cache
	cfg      Config
	logger   *log.Logger
	payments intentLister
	now      func() time.Time
	reads    singleflight.Group
}

func New(carts cartrepo.Repository, products productReader, c cache.Cache, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if c == nil {
		c = cache.Nop{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 72 * time.Hour
	}
	if strings.TrimSpace(cfg.DefaultCurrency) == "" {
		cfg.DefaultCurrency = "USD"
	}
	return &Service{
		carts:    carts,
		products: products,
		cache:    c,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// WithPayments makes ExpireStale keep carts that have a payment intent which
// has not failed.
func (s *Service) WithPayments(p intentLister) *Service {
	s.payments = p
	return s
}

type AddItemInput struct {
	Owner     domain.Owner
	ProductID string
	VariantID *string
	Quantity  int
	// Currency is optional. When set it must match the cart currency.
	Currency string
}

// AddItem adds quantity of a product (or variant) to the owner's active cart,
// creating the cart when needed. A new line captures the catalog price now;
// an existing line keeps the price captured on its first add.
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (*domain.Cart, error) {
	if err := in.Owner.Validate(); err != nil {
		return nil, err
	}
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidQuantity)
	}
	if strings.TrimSpace(in.ProductID) == "" {
		return nil, domain.Invalid("productId", "is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))

	line, err := s.resolveLine(ctx, in.ProductID, in.VariantID)
	if err != nil {
		return nil, err
	}
	if currency != "" && line.currency != "" && currency != line.currency {
		return nil, fmt.Errorf("%w: product is priced in %s", domain.ErrCurrencyMismatch, line.currency)
	}

	return s.mutate(ctx, in.Owner, firstNonEmpty(currency, line.currency), func(c *domain.Cart) (bool, error) {
		if currency != "" && currency != c.Currency {
			return false, fmt.Errorf("%w: cart is in %s", domain.ErrCurrencyMismatch, c.Currency)
		}
		if line.currency != "" && line.currency != c.Currency {
			return false, fmt.Errorf("%w: cart is in %s", domain.ErrCurrencyMismatch, c.Currency)
		}
		resulting := in.Quantity
		if idx, ok := c.Find(line.item.Key()); ok {
			resulting += c.Items[idx].Quantity
		}
		if err := line.checkStock(resulting); err != nil {
			return false, err
		}
		item := line.item
		item.Quantity = in.Quantity
		item.AddedAt = s.now().UTC()
		return true, c.Add(item)
	})
}

// UpdateQuantity sets the quantity of an existing line. Zero removes the line;
// negative quantities are rejected.
func (s *Service) UpdateQuantity(ctx context.Context, owner domain.Owner, productID string, variantID *string, quantity int) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", domain.ErrInvalidQuantity)
	}
	key := domain.NewItemKey(productID, variantID)

	var (
		line    *resolvedLine
		lineErr error
	)
	if quantity > 0 {
		line, lineErr = s.resolveLine(ctx, productID, variantID)
	}

	return s.mutate(ctx, owner, "", func(c *domain.Cart) (bool, error) {
		idx, ok := c.Find(key)
		if !ok {
			if quantity == 0 {
				return false, nil
			}
			return false, fmt.Errorf("%w: product %s is not in the cart", domain.ErrNotFound, key.ProductID)
		}
		if quantity > c.Items[idx].Quantity {
			if lineErr != nil {
				return false, lineErr
			}
			if err := line.checkStock(quantity); err != nil {
				return false, err
			}
		}
		if _, err := c.SetQuantity(key, quantity); err != nil {
			return false, err
		}
		abandonIfEmpty(c)
		return true, nil
	})
}

// RemoveItem deletes a line. Removing a line that is not there succeeds and
// leaves the cart unchanged.
func (s *Service) RemoveItem(ctx context.Context, owner domain.Owner, productID string, variantID *string) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	key := domain.NewItemKey(productID, variantID)
	return s.mutate(ctx, owner, "", func(c *domain.Cart) (bool, error) {
		if !c.Remove(key) {
			return false, nil
		}
		abandonIfEmpty(c)
		return true, nil
	})
}

// Clear empties the owner's cart. The emptied cart is abandoned, so the next
// add starts a fresh one.
func (s *Service) Clear(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, owner, "", func(c *domain.Cart) (bool, error) {
		if c.IsEmpty() {
			return false, nil
		}
		c.Empty()
		c.Status = domain.CartAbandoned
		return true, nil
	})
}

// Get returns the owner's active cart, read through the cache. An owner
// without a cart gets an empty, unsaved active cart.
func (s *Service) Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	cached, err := s.cache.Get(ctx, owner)
	if err == nil && cached != nil {
		return cached, nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Printf("cart: cache get owner=%s err=%v", owner.Key(), err)
	}

	v, err, _ := s.reads.Do(owner.Key(), func() (any, error) {
		gen, genErr := s.cache.Generation(ctx, owner)
		if genErr != nil {
			s.logger.Printf("cart: cache generation owner=%s err=%v", owner.Key(), genErr)
		}
		c, created, err := s.activeCart(ctx, owner, "")
		if err != nil {
			return nil, err
		}
		if !created && genErr == nil {
			if err := s.cache.Set(ctx, c, gen); err != nil {
				s.logger.Printf("cart: cache set owner=%s err=%v", owner.Key(), err)
			}
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart).Clone(), nil
}

// Active reads the owner's active cart from the store, never from the cache.
// Checkout prices from it. An owner without a cart gets an empty, unsaved one.
func (s *Service) Active(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	c, _, err := s.activeCart(ctx, owner, "")
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ByID reads a cart from the store in any status.
func (s *Service) ByID(ctx context.Context, cartID string) (*domain.Cart, error) {
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("cart: load cart_id=%s: %w", cartID, err)
	}
	return c, nil
}

// MergeGuest moves a guest session cart to a customer who just signed in.
// Without a customer cart the guest cart is reassigned. Otherwise guest lines
// are merged by item key and the guest cart is abandoned.
func (s *Service) MergeGuest(ctx context.Context, sessionID, customerID string) (*domain.Cart, error) {
	guestOwner := domain.SessionOwner(sessionID)
	customerOwner := domain.CustomerOwner(customerID)
	if err := guestOwner.Validate(); err != nil {
		return nil, err
	}
	if err := customerOwner.Validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		guest, created, err := s.activeCart(ctx, guestOwner, "")
		if err != nil {
			return nil, err
		}
		if created || guest.IsEmpty() {
			return s.Get(ctx, customerOwner)
		}
		target, created, err := s.activeCart(ctx, customerOwner, guest.Currency)
		if err != nil {
			return nil, err
		}

		if created {
			guest.Owner = customerOwner
			guest.Touch(s.now().UTC(), s.cfg.TTL)
			err = s.carts.Save(ctx, guest)
			if errors.Is(err, domain.ErrConcurrentModification) || errors.Is(err, domain.ErrAlreadyExists) {
				lastErr = err
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("cart: reassign cart_id=%s: %w", guest.ID, err)
			}
			s.invalidate(ctx, guestOwner)
			s.invalidate(ctx, customerOwner)
			return guest, nil
		}

		if target.Currency != guest.Currency {
			return nil, fmt.Errorf("%w: guest cart is in %s, customer cart in %s", domain.ErrCurrencyMismatch, guest.Currency, target.Currency)
		}
		ok, err := s.carts.SetStatus(ctx, guest.ID, domain.CartActive, domain.CartAbandoned)
		if err != nil {
			return nil, fmt.Errorf("cart: abandon guest cart_id=%s: %w", guest.ID, err)
		}
		if !ok {
			lastErr = domain.ErrConcurrentModification
			continue
		}
		s.invalidate(ctx, guestOwner)

		merged, err := s.mutate(ctx, customerOwner, guest.Currency, func(c *domain.Cart) (bool, error) {
			for _, item := range guest.Items {
				if err := c.Add(item); err != nil {
					return false, err
				}
			}
			return true, nil
		})
		if err != nil {
			if _, rerr := s.carts.SetStatus(ctx, guest.ID, domain.CartAbandoned, domain.CartActive); rerr != nil {
				s.logger.Printf("cart: reopen guest cart_id=%s after failed merge err=%v", guest.ID, rerr)
			}
			return nil, err
		}
		return merged, nil
	}
	return nil, fmt.Errorf("cart: merge guest session=%s after %d attempts: %w", sessionID, maxSaveAttempts, lastErr)
}

// ExpireStale abandons active carts past their expiry and evicts them from
// the cache. A cart with a payment in flight is left alone, and a cart written
// since it was listed is skipped by the version check.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	stale, err := s.carts.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("cart: expire stale: %w", err)
	}

	var n int64
	for _, c := range stale {
		held, err := s.paymentPending(ctx, c.ID)
		if err != nil {
			return n, err
		}
		if held {
			s.logger.Printf("cart: sweep kept cart_id=%s owner=%s payment pending", c.ID, c.Owner.Key())
			continue
		}
		c.Status = domain.CartAbandoned
		c.UpdatedAt = now
		err = s.carts.Save(ctx, c)
		if errors.Is(err, domain.ErrConcurrentModification) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("cart: expire cart_id=%s: %w", c.ID, err)
		}
		s.invalidate(ctx, c.Owner)
		n++
	}
	return n, nil
}

// paymentPending reports whether the cart has an intent that was not declined.
func (s *Service) paymentPending(ctx context.Context, cartID string) (bool, error) {
	if s.payments == nil {
		return false, nil
	}
	intents, err := s.payments.ListByCart(ctx, cartID)
	if err != nil {
		return false, fmt.Errorf("cart: list intents cart_id=%s: %w", cartID, err)
	}
	for _, in := range intents {
		if in.Status != domain.IntentFailed {
			return true, nil
		}
	}
	return false, nil
}

// Checkout freezes an active cart by moving it to converted and returns the
// frozen state. Only one caller can win the transition; the others get
// ErrCartAlreadyConverted. A cart that left active any other way yields an
// IntegrityError wrapping ErrCartNotActive.
func (s *Service) Checkout(ctx context.Context, cartID string) (*domain.Cart, error) {
	ok, err := s.carts.SetStatus(ctx, cartID, domain.CartActive, domain.CartConverted)
	if err != nil {
		return nil, fmt.Errorf("cart: convert cart_id=%s: %w", cartID, err)
	}
	if !ok {
		c, err := s.carts.GetByID(ctx, cartID)
		if err != nil {
			return nil, fmt.Errorf("cart: reload cart_id=%s: %w", cartID, err)
		}
		if c.Status == domain.CartConverted {
			return nil, fmt.Errorf("%w: cart_id=%s", domain.ErrCartAlreadyConverted, cartID)
		}
		s.logger.Printf("ERROR cart: checkout of cart_id=%s owner=%s found status=%s", cartID, c.Owner.Key(), c.Status)
		return nil, &domain.IntegrityError{
			Op:  "checkout",
			Err: fmt.Errorf("%w: cart_id=%s status=%s", domain.ErrCartNotActive, cartID, c.Status),
		}
	}
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("cart: reload converted cart_id=%s: %w", cartID, err)
	}
	s.invalidate(ctx, c.Owner)
	return c, nil
}

// Reopen undoes Checkout when no order could be written for the cart.
func (s *Service) Reopen(ctx context.Context, cartID string) error {
	ok, err := s.carts.SetStatus(ctx, cartID, domain.CartConverted, domain.CartActive)
	if err != nil {
		return fmt.Errorf("cart: reopen cart_id=%s: %w", cartID, err)
	}
	if !ok {
		return fmt.Errorf("cart: reopen cart_id=%s: %w", cartID, domain.ErrConcurrentModification)
	}
	return nil
}

// ClearConverted empties the items of a converted cart after its order exists.
func (s *Service) ClearConverted(ctx context.Context, cartID string) error {
	var lastErr error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		c, err := s.carts.GetByID(ctx, cartID)
		if err != nil {
			return fmt.Errorf("cart: load cart_id=%s: %w", cartID, err)
		}
		if c.Status != domain.CartConverted {
			return fmt.Errorf("cart: clear cart_id=%s status=%s: %w", cartID, c.Status, domain.ErrConcurrentModification)
		}
		if c.IsEmpty() {
			return nil
		}
		c.Empty()
		c.UpdatedAt = s.now().UTC()
		err = s.carts.Save(ctx, c)
		if errors.Is(err, domain.ErrConcurrentModification) {
			lastErr = err
			continue
		}
		if err != nil {
			return fmt.Errorf("cart: clear cart_id=%s: %w", cartID, err)
		}
		s.invalidate(ctx, c.Owner)
		return nil
	}
	return fmt.Errorf("cart: clear cart_id=%s after %d attempts: %w", cartID, maxSaveAttempts, lastErr)
}

// mutate loads (or starts) the owner's active cart, applies fn and saves the
// result with a version check, reloading and reapplying on conflicts. When fn
// reports no change nothing is written.
func (s *Service) mutate(ctx context.Context, owner domain.Owner, currency string, fn func(c *domain.Cart) (bool, error)) (*domain.Cart, error) {
	var lastErr error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		c, created, err := s.activeCart(ctx, owner, currency)
		if err != nil {
			return nil, err
		}
		changed, err := fn(c)
		if err != nil {
			return nil, err
		}
		if !changed {
			return c, nil
		}
		c.Touch(s.now().UTC(), s.cfg.TTL)

		if created {
			err = s.carts.Create(ctx, c)
			if errors.Is(err, domain.ErrAlreadyExists) {
				// another request created the owner's cart first
				err = domain.ErrConcurrentModification
			}
		} else {
			err = s.carts.Save(ctx, c)
		}
		if errors.Is(err, domain.ErrConcurrentModification) {
			s.logger.Printf("cart: version conflict owner=%s cart_id=%s attempt=%d", owner.Key(), c.ID, attempt+1)
			lastErr = err
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cart: save owner=%s cart_id=%s: %w", owner.Key(), c.ID, err)
		}
		s.invalidate(ctx, owner)
		return c, nil
	}
	return nil, fmt.Errorf("cart: save owner=%s after %d attempts: %w", owner.Key(), maxSaveAttempts, lastErr)
}

// activeCart returns the owner's single active cart, or a new unsaved one.
// Several active carts for one owner is an integrity failure.
func (s *Service) activeCart(ctx context.Context, owner domain.Owner, currency string) (*domain.Cart, bool, error) {
	carts, err := s.carts.FindActive(ctx, owner)
	if err != nil {
		return nil, false, fmt.Errorf("cart: find active owner=%s: %w", owner.Key(), err)
	}
	switch len(carts) {
	case 0:
		return domain.NewCart(uuid.NewString(), owner, firstNonEmpty(currency, s.cfg.DefaultCurrency), s.now().UTC(), s.cfg.TTL), true, nil
	case 1:
		return carts[0], false, nil
	}
	ids := make([]string, 0, len(carts))
	for _, c := range carts {
		ids = append(ids, c.ID)
	}
	s.logger.Printf("ERROR cart: duplicate active carts owner=%s cart_ids=%s", owner.Key(), strings.Join(ids, ","))
	return nil, false, &domain.IntegrityError{
		Op:  "find active cart",
		Err: fmt.Errorf("%w: owner=%s count=%d", domain.ErrDuplicateActiveCart, owner.Key(), len(carts)),
	}
}

func (s *Service) invalidate(ctx context.Context, owner domain.Owner) {
	if err := s.cache.Delete(ctx, owner); err != nil {
		s.logger.Printf("cart: cache invalidate owner=%s err=%v", owner.Key(), err)
	}
}

// resolvedLine is the catalog state a cart line is priced and checked against.
type resolvedLine struct {
	item     domain.CartItem
	currency string
	stock    int
	enforce  bool
}

func (l *resolvedLine) checkStock(quantity int) error {
	if l.enforce && quantity > l.stock {
		return fmt.Errorf("%w: requested=%d available=%d", domain.ErrInsufficientStock, quantity, l.stock)
	}
	return nil
}

func (s *Service) resolveLine(ctx context.Context, productID string, variantID *string) (*resolvedLine, error) {
	productID = strings.TrimSpace(productID)
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %s not found", domain.ErrProductUnavailable, productID)
		}
		return nil, fmt.Errorf("cart: load product id=%s: %w", productID, err)
	}
	if !p.Orderable() {
		return nil, fmt.Errorf("%w: product %s is %s", domain.ErrProductUnavailable, productID, p.Status)
	}

	line := &resolvedLine{
		item: domain.CartItem{
			ProductID: p.ID,
			Title:     p.Title,
			SKU:       p.SKU,
			UnitPrice: domain.RoundMoney(p.Price, p.Currency),
		},
		currency: strings.ToUpper(strings.TrimSpace(p.Currency)),
		stock:    p.Stock,
		enforce:  p.EnforcesStock(),
	}
	if v := domain.NormalizeVariant(variantID); v != "" {
		variant, ok := p.Variant(v)
		if !ok {
			return nil, fmt.Errorf("%w: variant %s not found", domain.ErrProductUnavailable, v)
		}
		if !variant.Orderable() {
			return nil, fmt.Errorf("%w: variant %s is %s", domain.ErrProductUnavailable, v, variant.Status)
		}
		line.item.VariantID = &v
		if variant.Title != "" {
			line.item.Title = p.Title + " - " + variant.Title
		}
		if variant.SKU != "" {
			line.item.SKU = variant.SKU
		}
		if variant.Price != nil {
			line.item.UnitPrice = domain.RoundMoney(*variant.Price, p.Currency)
		}
		line.stock = variant.Stock
	}
	return line, nil
}

func abandonIfEmpty(c *domain.Cart) {
	if c.IsEmpty() {
		c.Status = domain.CartAbandoned
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
