// Package customers defines the customer directory: customer records, worker
// assignments and the consent flag, plus the Postgres and in-memory stores backing it.
package customers

import "context"

// Channel is one way to reach a customer (sms, whatsapp, email...).
type Channel struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// Link is an external reference shown next to the customer.
type Link struct {
	Type        string `json:"type" yaml:"type"`
	Value       string `json:"value" yaml:"value"`
	DisplayName string `json:"display_name" yaml:"display_name"`
}

// Details holds free-form customer details. Consent and RecordID are read by the
// consent filter; RecordID addresses the directory row for consent writes.
type Details struct {
	Title    string `json:"title,omitempty" yaml:"title"`
	Content  string `json:"content,omitempty" yaml:"content"`
	Consent  bool   `json:"consent" yaml:"consent"`
	RecordID string `json:"record_id,omitempty" yaml:"record_id"`
}

// Customer is a directory record.
type Customer struct {
	CustomerID  string    `json:"customer_id" yaml:"customer_id"`
	DisplayName string    `json:"display_name" yaml:"display_name"`
	Avatar      string    `json:"avatar,omitempty" yaml:"avatar"`
	Channels    []Channel `json:"channels" yaml:"channels"`
	Links       []Link    `json:"links" yaml:"links"`
	Details     Details   `json:"details" yaml:"details"`
	PhoneNumber string    `json:"-" yaml:"phone_number"`
	Worker      string    `json:"-" yaml:"worker"`
}

// HasAddress reports whether the customer is reachable at address, either as the
// primary phone number or as one of its channel values.
func (c Customer) HasAddress(address string) bool {
	if address == "" {
		return false
	}
	if c.PhoneNumber == address {
		return true
	}
	for _, ch := range c.Channels {
		if ch.Value == address {
			return true
		}
	}
	return false
}

// Directory is the customer directory consumed by the webhook core.
type Directory interface {
	// GetByID returns ErrNotFound when no customer carries the id.
	GetByID(ctx context.Context, customerID string) (Customer, error)
	// GetByNumber returns ErrNotFound when no customer is reachable at address.
	GetByNumber(ctx context.Context, address string) (Customer, error)
	// List returns the page of customers assigned to worker that follows anchor,
	// the customer id closing the previous page ("" or "0" for the first page).
	// A non-positive pageSize returns every assigned customer.
	List(ctx context.Context, worker string, pageSize int, anchor string) ([]Customer, error)
	// FindWorkerForCustomer returns "" when the address has no assigned worker.
	FindWorkerForCustomer(ctx context.Context, address string) (string, error)
	// Workers returns the full worker roster used for random routing.
	Workers(ctx context.Context) ([]string, error)
	UpdateConsent(ctx context.Context, recordID string, consent bool) error
}

func isFirstPage(anchor string) bool {
	return anchor == "" || anchor == "0"
}
