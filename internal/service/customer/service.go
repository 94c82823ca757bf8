package customer

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/domain"
	custrepo "storefront/internal/repository/customer"
)

// Service resolves shoppers to customer records and keeps their saved addresses.
type Service struct {
	repo   custrepo.Repository
	logger *log.Logger
}

func New(repo custrepo.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, logger: logger}
}

// ContactInput is the contact block of a checkout form.
type ContactInput struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Validate checks the contact before anything is stored.
func (in ContactInput) Validate() error {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return domain.Invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.Invalid("email", "is not a valid email address")
	}
	return nil
}

// Resolve finds the customer for the contact email or creates one. Calling it
// again with the same email returns the same record.
func (s *Service) Resolve(ctx context.Context, in ContactInput) (*domain.Customer, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, created, err := s.repo.FindOrCreate(ctx, domain.Customer{
		Email:     domain.NormalizeEmail(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		Addresses: []domain.Address{},
	})
	if err != nil {
		return nil, fmt.Errorf("customer: resolve email=%s: %w", domain.NormalizeEmail(in.Email), err)
	}
	if created {
		s.logger.Printf("customer: created id=%s", c.ID)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Customer, error) {
	return s.repo.GetByID(ctx, id)
}

// RememberAddresses stores the addresses used for an order as the customer's
// defaults. An address already on file at the same location is reused.
func (s *Service) RememberAddresses(ctx context.Context, customerID string, shipping, billing domain.Address) error {
	c, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		return fmt.Errorf("customer: load id=%s: %w", customerID, err)
	}
	addresses := MergeDefault(c.Addresses, domain.AddressShipping, shipping)
	addresses = MergeDefault(addresses, domain.AddressBilling, billing)
	if err := s.repo.SaveAddresses(ctx, customerID, addresses); err != nil {
		return fmt.Errorf("customer: save addresses id=%s: %w", customerID, err)
	}
	return nil
}

// RecordOrder adds an order total to the customer's lifetime stats.
func (s *Service) RecordOrder(ctx context.Context, o *domain.Order) error {
	if err := s.repo.RecordOrder(ctx, o.Customer.ID(), o.Total); err != nil {
		return fmt.Errorf("customer: record order=%s customer=%s: %w", o.OrderNumber, o.Customer.ID(), err)
	}
	return nil
}

// MergeDefault makes addr the default for tag. A saved address with the same
// tag and location is promoted instead of duplicated; the previous default for
// the tag loses the flag. Addresses of other tags are untouched.
func MergeDefault(saved []domain.Address, tag domain.AddressTag, addr domain.Address) []domain.Address {
	out := make([]domain.Address, 0, len(saved)+1)
	found := false
	for _, a := range saved {
		if a.Tag == tag {
			a.Default = false
			if !found && a.SameLocation(addr) {
				a.Default = true
				found = true
			}
		}
		out = append(out, a)
	}
	if !found {
		addr.ID = uuid.NewString()
		addr.Tag = tag
		addr.Default = true
		out = append(out, addr)
	}
	return out
}
