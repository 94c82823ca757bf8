package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type AddressTag string

const (
	AddressShipping AddressTag = "shipping"
	AddressBilling  AddressTag = "billing"
)

// Address stores address fields returned to clients.
type Address struct {
	ID         string     `json:"id,omitempty"`
	Tag        AddressTag `json:"tag,omitempty"`
	Default    bool       `json:"default,omitempty"`
	Name       string     `json:"name"`
	Line1      string     `json:"line1"`
	Line2      string     `json:"line2,omitempty"`
	City       string     `json:"city"`
	Region     string     `json:"region,omitempty"`
	PostalCode string     `json:"postalCode"`
	Country    string     `json:"country"`
	Phone      string     `json:"phone,omitempty"`
}

// Validate checks the fields required to ship or bill.
func (a Address) Validate(field string) error {
	required := []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"line1", a.Line1},
		{"city", a.City},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return Invalid(field+"."+r.name, "is required")
		}
	}
	return nil
}

// SameLocation compares the postal parts of two addresses, ignoring ids and tags.
func (a Address) SameLocation(b Address) bool {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(a.Name) == norm(b.Name) &&
		norm(a.Line1) == norm(b.Line1) &&
		norm(a.Line2) == norm(b.Line2) &&
		norm(a.City) == norm(b.City) &&
		norm(a.PostalCode) == norm(b.PostalCode) &&
		norm(a.Country) == norm(b.Country)
}

// Customer is identified by email; one record per email.
type Customer struct {
	ID         string          `json:"id"`
	Email      string          `json:"email"`
	FirstName  string          `json:"firstName,omitempty"`
	LastName   string          `json:"lastName,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	Addresses  []Address       `json:"addresses"`
	OrderCount int             `json:"orderCount"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// DefaultAddress returns the default address for tag.
func (c Customer) DefaultAddress(tag AddressTag) (Address, bool) {
	for _, a := range c.Addresses {
		if a.Tag == tag && a.Default {
			return a, true
		}
	}
	return Address{}, false
}
