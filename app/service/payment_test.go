package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-course/app/entity"
	"github.com/vibast-solutions/ms-go-course/app/gateway"
	"github.com/vibast-solutions/ms-go-course/app/service"
	"github.com/vibast-solutions/ms-go-course/app/types"
)

type fakeGateway struct {
	intents  []gateway.PurchaseIntent
	payments map[string]*gateway.Payment
	fetched  []string
	err      error
}

func (g *fakeGateway) CreatePreference(_ context.Context, intent gateway.PurchaseIntent) (*gateway.Preference, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.intents = append(g.intents, intent)
	return &gateway.Preference{
		ID:                 "pref-1",
		CheckoutURL:        "https://checkout.example/pref-1",
		SandboxCheckoutURL: "https://sandbox.example/pref-1",
	}, nil
}

func (g *fakeGateway) FetchPayment(_ context.Context, paymentID string) (*gateway.Payment, error) {
	g.fetched = append(g.fetched, paymentID)
	if g.err != nil {
		return nil, g.err
	}
	payment, ok := g.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("%w: payment not found", gateway.ErrGateway)
	}
	return payment, nil
}

type fakeEngine struct {
	events  []*gateway.PaymentEvent
	outcome service.Outcome
	err     error
}

func (e *fakeEngine) Apply(_ context.Context, event *gateway.PaymentEvent) (service.Outcome, error) {
	e.events = append(e.events, event)
	return e.outcome, e.err
}

type fakeLedger map[string]*entity.Payment

func (l fakeLedger) FindByPaymentID(_ context.Context, paymentID string) (*entity.Payment, error) {
	return l[paymentID], nil
}

func newPaymentService(gw *fakeGateway, engine *fakeEngine, ledger fakeLedger) service.PaymentService {
	return service.NewPaymentService(gw, engine, ledger, testConfig(),
		service.WithPaymentClock(func() time.Time { return fixedNow }))
}

func TestPaymentService_Config(t *testing.T) {
	cfg := testConfig()
	cfg.Payment.PublicKey = "APP_USR-public"
	svc := service.NewPaymentService(&fakeGateway{}, &fakeEngine{}, fakeLedger{}, cfg)

	res := svc.Config()
	if res.PublicKey != "APP_USR-public" || res.Price != 10000 || res.Currency != "ARS" || res.Title != "Course" {
		t.Fatalf("unexpected config: %+v", res)
	}
}

func TestPaymentService_CreatePreference(t *testing.T) {
	gw := &fakeGateway{}
	svc := newPaymentService(gw, &fakeEngine{}, fakeLedger{})

	user := newUser(7, "buyer@example.com")
	res, err := svc.CreatePreference(context.Background(), user, &types.CreatePreferenceRequest{Phone: "1155550000", Document: "30111222"})
	if err != nil {
		t.Fatalf("create preference failed: %v", err)
	}
	if res.PreferenceID != "pref-1" || res.InitPoint == "" || res.SandboxInitPoint == "" {
		t.Fatalf("unexpected response: %+v", res)
	}

	wantRef := fmt.Sprintf("user_7_course_purchase_%d", fixedNow.UnixMilli())
	if res.ExternalReference != wantRef {
		t.Fatalf("expected reference %s, got %s", wantRef, res.ExternalReference)
	}

	if len(gw.intents) != 1 {
		t.Fatalf("expected one intent, got %d", len(gw.intents))
	}
	intent := gw.intents[0]
	if intent.Price != 10000 || intent.Quantity != 1 || intent.Currency != "ARS" || intent.ExternalReference != wantRef {
		t.Fatalf("unexpected intent: %+v", intent)
	}
	if intent.Payer.Email != "buyer@example.com" || intent.Payer.Phone != "1155550000" || intent.Payer.Document != "30111222" {
		t.Fatalf("unexpected payer: %+v", intent.Payer)
	}
}

func TestPaymentService_CreatePreferenceRejectsExistingAccess(t *testing.T) {
	gw := &fakeGateway{}
	svc := newPaymentService(gw, &fakeEngine{}, fakeLedger{})

	user := newUser(7, "buyer@example.com")
	user.HasAccess = true

	if _, err := svc.CreatePreference(context.Background(), user, &types.CreatePreferenceRequest{}); !errors.Is(err, service.ErrAlreadyHasAccess) {
		t.Fatalf("expected ErrAlreadyHasAccess, got %v", err)
	}
	if len(gw.intents) != 0 {
		t.Fatalf("expected no provider call")
	}
}

func TestPaymentService_CreatePreferenceGatewayError(t *testing.T) {
	gw := &fakeGateway{err: fmt.Errorf("%w: invalid access token", gateway.ErrGateway)}
	svc := newPaymentService(gw, &fakeEngine{}, fakeLedger{})

	_, err := svc.CreatePreference(context.Background(), newUser(7, "buyer@example.com"), &types.CreatePreferenceRequest{})
	if !errors.Is(err, gateway.ErrGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestPaymentService_PaymentStatus(t *testing.T) {
	gw := &fakeGateway{payments: map[string]*gateway.Payment{
		"P1": {ID: "P1", Status: gateway.StatusApproved, StatusDetail: "accredited", ExternalReference: "user_7_course_purchase_9999", Amount: 10000, PaymentMethodID: "visa"},
		"P2": {ID: "P2", Status: gateway.StatusPending, ExternalReference: "user_8_course_purchase_9999"},
		"P3": {ID: "P3", Status: gateway.StatusApproved, ExternalReference: "legacy"},
	}}
	ledger := fakeLedger{"P1": {PaymentID: "P1", UserID: 7}}
	svc := newPaymentService(gw, &fakeEngine{}, ledger)

	owner := newUser(7, "buyer@example.com")
	res, err := svc.PaymentStatus(context.Background(), owner, "P1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if res.Status != gateway.StatusApproved || !res.AccessGranted || res.PaymentMethod != "visa" {
		t.Fatalf("unexpected status: %+v", res)
	}

	if _, err = svc.PaymentStatus(context.Background(), owner, "P2"); !errors.Is(err, service.ErrPaymentForbidden) {
		t.Fatalf("expected ErrPaymentForbidden for another user's payment, got %v", err)
	}
	if _, err = svc.PaymentStatus(context.Background(), owner, "P3"); !errors.Is(err, service.ErrPaymentForbidden) {
		t.Fatalf("expected ErrPaymentForbidden for unparseable reference, got %v", err)
	}

	admin := newUser(1, "admin@example.com")
	admin.Role = entity.RoleAdmin
	res, err = svc.PaymentStatus(context.Background(), admin, "P2")
	if err != nil {
		t.Fatalf("admin status failed: %v", err)
	}
	if res.AccessGranted {
		t.Fatalf("expected pending payment to report no access granted")
	}

	if _, err = svc.PaymentStatus(context.Background(), owner, "missing"); !errors.Is(err, gateway.ErrGateway) {
		t.Fatalf("expected gateway error for unknown payment, got %v", err)
	}
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	gw := &fakeGateway{payments: map[string]*gateway.Payment{
		"123": {ID: "123", Status: gateway.StatusApproved, ExternalReference: "user_7_course_purchase_9999", Amount: 10000},
	}}
	engine := &fakeEngine{outcome: service.OutcomeApplied}
	svc := newPaymentService(gw, engine, fakeLedger{})

	notification := &gateway.Notification{Type: "payment"}
	notification.Data.ID = "123"

	outcome, err := svc.HandleWebhook(context.Background(), notification)
	if err != nil {
		t.Fatalf("webhook failed: %v", err)
	}
	if outcome != service.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}
	if len(engine.events) != 1 || engine.events[0].PaymentID != "123" || engine.events[0].ExternalReference != "user_7_course_purchase_9999" {
		t.Fatalf("unexpected events: %+v", engine.events)
	}
}

func TestPaymentService_HandleWebhookIgnoresOtherTopics(t *testing.T) {
	gw := &fakeGateway{}
	engine := &fakeEngine{outcome: service.OutcomeApplied}
	svc := newPaymentService(gw, engine, fakeLedger{})

	merchantOrder := &gateway.Notification{Type: "merchant_order"}
	merchantOrder.Data.ID = "55"

	for _, n := range []*gateway.Notification{nil, merchantOrder, {Type: "payment"}} {
		outcome, err := svc.HandleWebhook(context.Background(), n)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outcome != service.OutcomeIgnored {
			t.Fatalf("expected ignored, got %s", outcome)
		}
	}
	if len(gw.fetched) != 0 || len(engine.events) != 0 {
		t.Fatalf("expected no provider or engine calls")
	}
}

func TestPaymentService_HandleWebhookFetchFailure(t *testing.T) {
	gw := &fakeGateway{err: fmt.Errorf("%w: unexpected status 500", gateway.ErrGateway)}
	engine := &fakeEngine{}
	svc := newPaymentService(gw, engine, fakeLedger{})

	notification := &gateway.Notification{Topic: "payment"}
	notification.Data.ID = "123"

	if _, err := svc.HandleWebhook(context.Background(), notification); !errors.Is(err, gateway.ErrGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if len(engine.events) != 0 {
		t.Fatalf("expected engine not to run")
	}
}

func TestPaymentService_HandleWebhookUnknownPayment(t *testing.T) {
	gw := &fakeGateway{err: &gateway.ProviderError{Status: 404, Message: "Payment not found"}}
	engine := &fakeEngine{}
	svc := newPaymentService(gw, engine, fakeLedger{})

	notification := &gateway.Notification{Type: "payment"}
	notification.Data.ID = "123456"

	outcome, err := svc.HandleWebhook(context.Background(), notification)
	if err != nil {
		t.Fatalf("expected provider rejection to be absorbed, got %v", err)
	}
	if outcome != service.OutcomeUnknownPayment {
		t.Fatalf("expected unknown_payment, got %s", outcome)
	}
	if len(engine.events) != 0 {
		t.Fatalf("expected engine not to run")
	}
}
