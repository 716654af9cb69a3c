package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/vibast-solutions/ms-go-course/app/dto"
	"github.com/vibast-solutions/ms-go-course/app/gateway"
	"github.com/vibast-solutions/ms-go-course/app/middleware"
	"github.com/vibast-solutions/ms-go-course/app/service"
	"github.com/vibast-solutions/ms-go-course/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type PaymentController struct {
	paymentService service.PaymentService
}

func NewPaymentController(paymentService service.PaymentService) *PaymentController {
	return &PaymentController{paymentService: paymentService}
}

func (c *PaymentController) Config(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.paymentService.Config())
}

func (c *PaymentController) CreatePreference(ctx echo.Context) error {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	req, err := types.NewCreatePreferenceRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind create preference request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	res, err := c.paymentService.CreatePreference(ctx.Request().Context(), user, req)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyHasAccess) {
			logrus.WithField("user_id", user.ID).Warn("Create preference rejected: already has access")
			return ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
		}
		if errors.Is(err, gateway.ErrGateway) {
			logrus.WithError(err).WithField("user_id", user.ID).Error("Create preference failed at provider")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).WithField("user_id", user.ID).Error("Create preference failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithFields(logrus.Fields{
		"user_id":            user.ID,
		"preference_id":      res.PreferenceID,
		"external_reference": res.ExternalReference,
	}).Info("Payment preference created")
	return ctx.JSON(http.StatusOK, res)
}

func (c *PaymentController) Status(ctx echo.Context) error {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	paymentID := strings.TrimSpace(ctx.Param("id"))
	if paymentID == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "payment id is required"})
	}

	res, err := c.paymentService.PaymentStatus(ctx.Request().Context(), user, paymentID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentForbidden) {
			logrus.WithFields(logrus.Fields{
				"user_id":    user.ID,
				"payment_id": paymentID,
			}).Warn("Payment status denied")
			return ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Error: err.Error()})
		}
		if errors.Is(err, gateway.ErrGateway) {
			logrus.WithError(err).WithField("payment_id", paymentID).Warn("Payment status failed at provider")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).WithField("payment_id", paymentID).Error("Payment status failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, res)
}

// Webhook answers 200 with the reconciliation outcome, or 500 when the
// notification could not be processed and should be redelivered. Unreadable
// bodies and payments the provider rejects are answered 200 since a
// redelivery cannot change them.
func (c *PaymentController) Webhook(ctx echo.Context) error {
	notification, err := types.NewNotificationFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Unreadable payment notification ignored")
		return ctx.JSON(http.StatusOK, &types.WebhookResponse{Status: "ok", Outcome: string(service.OutcomeIgnored)})
	}

	log := logrus.WithFields(logrus.Fields{
		"type":       notification.Type,
		"topic":      notification.Topic,
		"payment_id": notification.PaymentID(),
	})
	log.Info("Payment notification received")

	outcome, err := c.paymentService.HandleWebhook(ctx.Request().Context(), notification)
	if err != nil {
		log.WithError(err).Error("Payment notification failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	log.WithField("outcome", outcome).Info("Payment notification processed")
	return ctx.JSON(http.StatusOK, &types.WebhookResponse{Status: "ok", Outcome: string(outcome)})
}
