package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vibast-solutions/ms-go-course/app/dto"
	"github.com/vibast-solutions/ms-go-course/app/entity"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyUser   = "user"
)

type tokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (*entity.User, error)
}

type AuthMiddleware struct {
	tokens tokenVerifier
}

func NewAuthMiddleware(tokens tokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth resolves the bearer token to an active user and stores it on
// the request context.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			logrus.Debug("Missing authorization header")
			return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing authorization header"})
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logrus.Debug("Invalid authorization header format")
			return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid authorization header format"})
		}

		user, err := m.tokens.Verify(c.Request().Context(), parts[1])
		if err != nil {
			logrus.Debug("Invalid or expired access token")
			return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid or expired token"})
		}

		c.Set(ContextKeyUserID, user.ID)
		c.Set(ContextKeyUser, user)

		return next(c)
	}
}

// RequireAdmin must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
		}
		if !user.IsAdmin() {
			logrus.WithField("user_id", user.ID).Warn("Admin route denied")
			return c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "admin access required"})
		}

		return next(c)
	}
}

// RequireCourseAccess must run after RequireAuth.
func (m *AuthMiddleware) RequireCourseAccess(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
		}
		if !user.HasCourseAccess() {
			logrus.WithField("user_id", user.ID).Debug("Course route denied")
			return c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "you do not have access to the course"})
		}

		return next(c)
	}
}

func CurrentUser(c echo.Context) (*entity.User, bool) {
	user, ok := c.Get(ContextKeyUser).(*entity.User)
	return user, ok && user != nil
}
