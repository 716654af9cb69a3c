package service

import (
	"context"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-course/app/entity"
	"github.com/vibast-solutions/ms-go-course/app/gateway"
	"github.com/vibast-solutions/ms-go-course/app/types"
	"github.com/vibast-solutions/ms-go-course/config"

	"github.com/sirupsen/logrus"
)

var (
	ErrAlreadyHasAccess = errors.New("user already has access to the course")
	ErrPaymentForbidden = errors.New("payment does not belong to the current user")
)

type paymentLedger interface {
	FindByPaymentID(ctx context.Context, paymentID string) (*entity.Payment, error)
}

type PaymentService interface {
	Config() *types.PaymentConfigResponse
	CreatePreference(ctx context.Context, user *entity.User, req *types.CreatePreferenceRequest) (*types.CreatePreferenceResponse, error)
	PaymentStatus(ctx context.Context, user *entity.User, paymentID string) (*types.PaymentStatusResponse, error)
	HandleWebhook(ctx context.Context, notification *gateway.Notification) (Outcome, error)
}

type PaymentServiceOption func(*paymentService)

type paymentService struct {
	gw     gateway.Gateway
	engine ReconciliationEngine
	ledger paymentLedger
	cfg    *config.Config
	now    func() time.Time
}

func NewPaymentService(
	gw gateway.Gateway,
	engine ReconciliationEngine,
	ledger paymentLedger,
	cfg *config.Config,
	opts ...PaymentServiceOption,
) PaymentService {
	svc := &paymentService{
		gw:     gw,
		engine: engine,
		ledger: ledger,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithPaymentClock(now func() time.Time) PaymentServiceOption {
	return func(s *paymentService) {
		if now != nil {
			s.now = now
		}
	}
}

func (s *paymentService) Config() *types.PaymentConfigResponse {
	return &types.PaymentConfigResponse{
		PublicKey: s.cfg.Payment.PublicKey,
		Title:     s.cfg.Course.Title,
		Price:     s.cfg.Course.Price,
		Currency:  s.cfg.Course.Currency,
	}
}

func (s *paymentService) CreatePreference(ctx context.Context, user *entity.User, req *types.CreatePreferenceRequest) (*types.CreatePreferenceResponse, error) {
	if user.HasCourseAccess() {
		return nil, ErrAlreadyHasAccess
	}

	ref := NewPurchaseReference(user.ID, s.now())
	pref, err := s.gw.CreatePreference(ctx, gateway.PurchaseIntent{
		Title:       s.cfg.Course.Title,
		Description: s.cfg.Course.Description,
		Price:       s.cfg.Course.Price,
		Currency:    s.cfg.Course.Currency,
		Quantity:    1,
		Payer: gateway.Payer{
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
			Phone:     req.Phone,
			Document:  req.Document,
		},
		ExternalReference: ref.String(),
	})
	if err != nil {
		return nil, err
	}

	return &types.CreatePreferenceResponse{
		PreferenceID:      pref.ID,
		InitPoint:         pref.CheckoutURL,
		SandboxInitPoint:  pref.SandboxCheckoutURL,
		ExternalReference: ref.String(),
	}, nil
}

// PaymentStatus reports the provider state of a payment to its owner or to an
// admin.
func (s *paymentService) PaymentStatus(ctx context.Context, user *entity.User, paymentID string) (*types.PaymentStatusResponse, error) {
	payment, err := s.gw.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if !user.IsAdmin() {
		ref, refErr := ParsePurchaseReference(payment.ExternalReference)
		if refErr != nil || ref.UserID != user.ID {
			return nil, ErrPaymentForbidden
		}
	}

	applied, err := s.ledger.FindByPaymentID(ctx, payment.ID)
	if err != nil {
		return nil, err
	}

	return &types.PaymentStatusResponse{
		PaymentID:         payment.ID,
		Status:            payment.Status,
		StatusDetail:      payment.StatusDetail,
		ExternalReference: payment.ExternalReference,
		Amount:            payment.Amount,
		PaymentMethod:     payment.PaymentMethodID,
		AccessGranted:     applied != nil,
	}, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, notification *gateway.Notification) (Outcome, error) {
	if notification == nil {
		return OutcomeIgnored, nil
	}

	event, err := gateway.NormalizeWebhook(ctx, s.gw, notification)
	if err != nil {
		if gateway.IsPermanent(err) {
			logrus.WithError(err).WithField("payment_id", notification.PaymentID()).
				Warn("Provider rejected the notified payment, not retrying")
			return OutcomeUnknownPayment, nil
		}
		return "", err
	}
	if event == nil {
		logrus.WithFields(logrus.Fields{
			"type":  notification.Type,
			"topic": notification.Topic,
		}).Debug("Notification ignored")
		return OutcomeIgnored, nil
	}

	return s.engine.Apply(ctx, event)
}
