package types

import (
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-course/app/gateway"

	"github.com/labstack/echo/v4"
)

// CreatePreferenceRequest holds optional payer details. Price and title are
// always taken from server configuration.
type CreatePreferenceRequest struct {
	Phone    string `json:"phone"`
	Document string `json:"document"`
}

func NewCreatePreferenceRequestFromContext(ctx echo.Context) (*CreatePreferenceRequest, error) {
	var body CreatePreferenceRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *CreatePreferenceRequest) Validate() error {
	if len(r.Phone) > 32 || len(r.Document) > 32 {
		return errors.New("phone and document must be at most 32 characters")
	}

	return nil
}

type CreatePreferenceResponse struct {
	PreferenceID      string `json:"preference_id"`
	InitPoint         string `json:"init_point"`
	SandboxInitPoint  string `json:"sandbox_init_point"`
	ExternalReference string `json:"external_reference"`
}

type PaymentConfigResponse struct {
	PublicKey string  `json:"public_key"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
}

type PaymentStatusResponse struct {
	PaymentID         string  `json:"payment_id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	ExternalReference string  `json:"external_reference"`
	Amount            float64 `json:"amount"`
	PaymentMethod     string  `json:"payment_method"`
	AccessGranted     bool    `json:"access_granted"`
}

type WebhookResponse struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome,omitempty"`
}

// NewNotificationFromContext binds a provider notification. The provider
// also delivers the type and id as query parameters, which fill any gap left
// by the body.
func NewNotificationFromContext(ctx echo.Context) (*gateway.Notification, error) {
	var body gateway.Notification
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	if body.Type == "" && body.Topic == "" {
		body.Type = strings.TrimSpace(ctx.QueryParam("type"))
		body.Topic = strings.TrimSpace(ctx.QueryParam("topic"))
	}
	if body.PaymentID() == "" {
		id := ctx.QueryParam("data.id")
		if id == "" {
			id = ctx.QueryParam("id")
		}
		body.Data.ID = gateway.ResourceID(strings.TrimSpace(id))
	}

	return &body, nil
}
