package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-course/app/entity"
	"github.com/vibast-solutions/ms-go-course/app/gateway"
	"github.com/vibast-solutions/ms-go-course/app/repository"

	"github.com/sirupsen/logrus"
)

type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeIgnored          Outcome = "ignored"
	OutcomeInvalidReference Outcome = "invalid_reference"
	OutcomeUserNotFound     Outcome = "user_not_found"
	OutcomeUnknownPayment   Outcome = "unknown_payment"
)

// ReconciliationEngine turns approved payments into course access. Applying
// the same payment any number of times grants access once and records one
// ledger row.
type ReconciliationEngine interface {
	Apply(ctx context.Context, event *gateway.PaymentEvent) (Outcome, error)
}

type ReconciliationOption func(*reconciliationEngine)

type reconciliationEngine struct {
	db  *sql.DB
	now func() time.Time
}

func NewReconciliationEngine(db *sql.DB, opts ...ReconciliationOption) ReconciliationEngine {
	engine := &reconciliationEngine{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

func WithReconciliationClock(now func() time.Time) ReconciliationOption {
	return func(e *reconciliationEngine) {
		if now != nil {
			e.now = now
		}
	}
}

func (e *reconciliationEngine) Apply(ctx context.Context, event *gateway.PaymentEvent) (Outcome, error) {
	if event == nil {
		return OutcomeIgnored, nil
	}

	log := logrus.WithFields(logrus.Fields{
		"payment_id":         event.PaymentID,
		"status":             event.Status,
		"external_reference": event.ExternalReference,
	})

	if event.Status != gateway.StatusApproved {
		if event.Status == gateway.StatusRefunded || event.Status == gateway.StatusCharged {
			log.Warn("Refunded payment received, access is not revoked")
		} else {
			log.Info("Payment not approved, nothing to apply")
		}
		return OutcomeIgnored, nil
	}

	ref, err := ParsePurchaseReference(event.ExternalReference)
	if err != nil {
		log.WithError(err).Warn("Approved payment has an invalid purchase reference")
		return OutcomeInvalidReference, nil
	}
	log = log.WithField("user_id", ref.UserID)

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	txUserRepo := repository.NewUserRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	user, err := txUserRepo.FindByIDForUpdate(ctx, ref.UserID)
	if err != nil {
		return "", err
	}
	if user == nil {
		log.Warn("Approved payment references an unknown user")
		return OutcomeUserNotFound, nil
	}

	recorded, err := txPaymentRepo.Record(ctx, &entity.Payment{
		PaymentID: event.PaymentID,
		UserID:    user.ID,
		Amount:    event.Amount,
		Status:    event.Status,
		AppliedAt: e.now(),
	})
	if err != nil {
		return "", err
	}
	if !recorded {
		log.Info("Payment already applied")
		return OutcomeDuplicate, nil
	}

	if !user.HasAccess {
		if err = txUserRepo.SetHasAccess(ctx, user.ID, true); err != nil {
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}

	if !user.Active {
		log.Warn("Access granted to a deactivated account")
	}
	log.Info("Course access granted")
	return OutcomeApplied, nil
}
