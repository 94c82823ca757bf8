package domain

import "strings"

const (
	OwnerCustomer = "customer"
	OwnerSession  = "session"
)

// Owner identifies who a cart belongs to: an authenticated customer or a guest session.
type Owner struct {
	CustomerID string `json:"customerId,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
}

func CustomerOwner(id string) Owner { return Owner{CustomerID: id} }

func SessionOwner(id string) Owner { return Owner{SessionID: id} }

// Validate enforces that exactly one identity is set.
func (o Owner) Validate() error {
	hasCustomer := strings.TrimSpace(o.CustomerID) != ""
	hasSession := strings.TrimSpace(o.SessionID) != ""
	if hasCustomer == hasSession {
		return ErrInvalidOwner
	}
	return nil
}

func (o Owner) Kind() string {
	if strings.TrimSpace(o.CustomerID) != "" {
		return OwnerCustomer
	}
	return OwnerSession
}

func (o Owner) ID() string {
	if o.Kind() == OwnerCustomer {
		return strings.TrimSpace(o.CustomerID)
	}
	return strings.TrimSpace(o.SessionID)
}

// Key is a stable string used for cache keys and logging.
func (o Owner) Key() string {
	return o.Kind() + ":" + o.ID()
}
