package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vibast-solutions/ms-go-course/config"

	"github.com/sirupsen/logrus"
)

const maxErrorBodySize = 64 << 10

type MercadoPagoClient struct {
	cfg        config.PaymentConfig
	httpClient *http.Client
}

type MercadoPagoOption func(*MercadoPagoClient)

// WithHTTPClient replaces the default client; its timeout is used as is.
func WithHTTPClient(client *http.Client) MercadoPagoOption {
	return func(c *MercadoPagoClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewMercadoPagoClient(cfg config.PaymentConfig, opts ...MercadoPagoOption) *MercadoPagoClient {
	c := &MercadoPagoClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type preferenceItem struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	CurrencyID  string  `json:"currency_id"`
}

type preferencePayer struct {
	Name           string                    `json:"name,omitempty"`
	Surname        string                    `json:"surname,omitempty"`
	Email          string                    `json:"email,omitempty"`
	Phone          *preferencePhone          `json:"phone,omitempty"`
	Identification *preferenceIdentification `json:"identification,omitempty"`
}

type preferencePhone struct {
	Number string `json:"number"`
}

type preferenceIdentification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type preferenceBackURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type preferenceRequest struct {
	Items               []preferenceItem   `json:"items"`
	Payer               preferencePayer    `json:"payer"`
	BackURLs            preferenceBackURLs `json:"back_urls"`
	ExternalReference   string             `json:"external_reference"`
	NotificationURL     string             `json:"notification_url,omitempty"`
	StatementDescriptor string             `json:"statement_descriptor,omitempty"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type paymentResponse struct {
	ID                ResourceID `json:"id"`
	Status            string     `json:"status"`
	StatusDetail      string     `json:"status_detail"`
	ExternalReference string     `json:"external_reference"`
	TransactionAmount float64    `json:"transaction_amount"`
	PaymentMethodID   string     `json:"payment_method_id"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *MercadoPagoClient) CreatePreference(ctx context.Context, intent PurchaseIntent) (*Preference, error) {
	quantity := intent.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	body := preferenceRequest{
		Items: []preferenceItem{{
			Title:       intent.Title,
			Description: intent.Description,
			Quantity:    quantity,
			UnitPrice:   intent.Price,
			CurrencyID:  intent.Currency,
		}},
		Payer: preferencePayer{
			Name:    intent.Payer.FirstName,
			Surname: intent.Payer.LastName,
			Email:   intent.Payer.Email,
		},
		BackURLs: preferenceBackURLs{
			Success: c.cfg.SuccessURL,
			Failure: c.cfg.FailureURL,
			Pending: c.cfg.PendingURL,
		},
		ExternalReference:   intent.ExternalReference,
		NotificationURL:     c.cfg.NotificationURL,
		StatementDescriptor: c.cfg.StatementDescriptor,
	}
	if intent.Payer.Phone != "" {
		body.Payer.Phone = &preferencePhone{Number: intent.Payer.Phone}
	}
	if intent.Payer.Document != "" {
		body.Payer.Identification = &preferenceIdentification{Type: "DNI", Number: intent.Payer.Document}
	}

	var resp preferenceResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, &resp); err != nil {
		return nil, err
	}

	return &Preference{
		ID:                 resp.ID,
		CheckoutURL:        resp.InitPoint,
		SandboxCheckoutURL: resp.SandboxInitPoint,
	}, nil
}

func (c *MercadoPagoClient) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required", ErrGateway)
	}

	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, &resp); err != nil {
		return nil, err
	}

	id := string(resp.ID)
	if id == "" {
		id = paymentID
	}

	return &Payment{
		ID:                id,
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		Amount:            resp.TransactionAmount,
		PayerEmail:        resp.Payer.Email,
		PaymentMethodID:   resp.PaymentMethodID,
	}, nil
}

func (c *MercadoPagoClient) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrGateway, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Warn("Payment provider request failed")
		return fmt.Errorf("%w: %s", ErrGateway, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := providerMessage(resp)
		logrus.WithFields(logrus.Fields{
			"path":    path,
			"status":  resp.StatusCode,
			"message": message,
		}).Warn("Payment provider returned an error")
		return &ProviderError{Status: resp.StatusCode, Message: message}
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid provider response: %s", ErrGateway, err.Error())
	}
	return nil
}

func providerMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err == nil {
		var body errorResponse
		if jsonErr := json.Unmarshal(raw, &body); jsonErr == nil {
			if body.Message != "" {
				return body.Message
			}
			if body.Error != "" {
				return body.Error
			}
		}
	}
	return fmt.Sprintf("unexpected status %d", resp.StatusCode)
}

// IsGatewayError reports whether err originated from the payment provider.
func IsGatewayError(err error) bool {
	return errors.Is(err, ErrGateway)
}
