// Package gateway isolates every interaction with the payment provider.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrGateway wraps any provider or transport failure. The wrapped message is
// the provider's own explanation when one was returned.
var ErrGateway = errors.New("payment gateway error")

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", ErrGateway.Error(), e.Message)
}

func (e *ProviderError) Unwrap() error {
	return ErrGateway
}

// IsPermanent reports whether the provider rejected the request itself, so
// repeating it cannot succeed. Rate limiting and timeouts are retryable.
func IsPermanent(err error) bool {
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		return false
	}
	switch providerErr.Status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return providerErr.Status >= 400 && providerErr.Status < 500
}

const (
	StatusApproved   = "approved"
	StatusPending    = "pending"
	StatusInProcess  = "in_process"
	StatusRejected   = "rejected"
	StatusRefunded   = "refunded"
	StatusCharged    = "charged_back"
	StatusCancelled  = "cancelled"
	NotificationType = "payment"
)

type Payer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Document  string
}

type PurchaseIntent struct {
	Title             string
	Description       string
	Price             float64
	Currency          string
	Quantity          int
	Payer             Payer
	ExternalReference string
}

type Preference struct {
	ID                 string
	CheckoutURL        string
	SandboxCheckoutURL string
}

type Payment struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	Amount            float64
	PayerEmail        string
	PaymentMethodID   string
}

// PaymentEvent is the normalized view of a payment notification.
type PaymentEvent struct {
	PaymentID         string
	Status            string
	ExternalReference string
	Amount            float64
	PayerEmail        string
}

func (p *Payment) Event() *PaymentEvent {
	return &PaymentEvent{
		PaymentID:         p.ID,
		Status:            p.Status,
		ExternalReference: p.ExternalReference,
		Amount:            p.Amount,
		PayerEmail:        p.PayerEmail,
	}
}

type Gateway interface {
	CreatePreference(ctx context.Context, intent PurchaseIntent) (*Preference, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
}

// ResourceID accepts both string and numeric JSON identifiers.
type ResourceID string

func (id *ResourceID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ResourceID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ResourceID(n.String())
	return nil
}

// Notification is the webhook body posted by the provider.
type Notification struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID ResourceID `json:"id"`
	} `json:"data"`
}

func (n *Notification) IsPayment() bool {
	return n.Type == NotificationType || (n.Type == "" && n.Topic == NotificationType)
}

func (n *Notification) PaymentID() string {
	return strings.TrimSpace(string(n.Data.ID))
}

// NormalizeWebhook resolves a payment notification into its current payment
// state. Notifications of any other type yield nil without error.
func NormalizeWebhook(ctx context.Context, gw Gateway, n *Notification) (*PaymentEvent, error) {
	if n == nil || !n.IsPayment() {
		return nil, nil
	}

	paymentID := n.PaymentID()
	if paymentID == "" {
		return nil, nil
	}

	payment, err := gw.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return payment.Event(), nil
}
