package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/vibast-solutions/ms-go-course/app/dto"
	"github.com/vibast-solutions/ms-go-course/app/entity"
	"github.com/vibast-solutions/ms-go-course/app/middleware"
	"github.com/vibast-solutions/ms-go-course/app/service"
	"github.com/vibast-solutions/ms-go-course/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type AdminController struct {
	adminService service.AdminService
}

func NewAdminController(adminService service.AdminService) *AdminController {
	return &AdminController{adminService: adminService}
}

func (c *AdminController) ListUsers(ctx echo.Context) error {
	users, err := c.adminService.ListUsers(ctx.Request().Context())
	if err != nil {
		logrus.WithError(err).Error("List users failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, &types.ListUsersResponse{
		Users: types.NewUserViews(users),
		Total: len(users),
	})
}

func (c *AdminController) ActivateUser(ctx echo.Context) error {
	return c.changeUser(ctx, "activate", "user activated", func(reqCtx context.Context, _ *entity.User, userID uint64) (*entity.User, error) {
		return c.adminService.ActivateUser(reqCtx, userID)
	})
}

func (c *AdminController) DeactivateUser(ctx echo.Context) error {
	return c.changeUser(ctx, "deactivate", "user deactivated", c.adminService.DeactivateUser)
}

func (c *AdminController) GrantAccess(ctx echo.Context) error {
	return c.changeUser(ctx, "grant_access", "course access granted", func(reqCtx context.Context, _ *entity.User, userID uint64) (*entity.User, error) {
		return c.adminService.GrantAccess(reqCtx, userID)
	})
}

func (c *AdminController) RevokeAccess(ctx echo.Context) error {
	return c.changeUser(ctx, "revoke_access", "course access revoked", func(reqCtx context.Context, _ *entity.User, userID uint64) (*entity.User, error) {
		return c.adminService.RevokeAccess(reqCtx, userID)
	})
}

type userChange func(ctx context.Context, actor *entity.User, userID uint64) (*entity.User, error)

func (c *AdminController) changeUser(ctx echo.Context, action, message string, change userChange) error {
	req, err := types.NewUserIDRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind admin request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("action", action).Debug("Admin request validation failed")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	actor, _ := middleware.CurrentUser(ctx)
	log := logrus.WithFields(logrus.Fields{
		"action":         action,
		"target_user_id": req.UserID,
	})
	if actor != nil {
		log = log.WithField("admin_id", actor.ID)
	}

	user, err := change(ctx.Request().Context(), actor, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			log.Warn("Admin action failed: user not found")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		case errors.Is(err, service.ErrCannotRevokeAdmin), errors.Is(err, service.ErrCannotDeactivateSelf):
			log.Warn("Admin action rejected")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		log.WithError(err).Error("Admin action failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	log.Info("Admin action applied")
	return ctx.JSON(http.StatusOK, &types.AdminUserResponse{
		Message: message,
		User:    types.NewUserView(user),
	})
}
