package types

import (
	"errors"

	"github.com/labstack/echo/v4"
)

type UserIDRequest struct {
	UserID uint64 `json:"user_id"`
}

func NewUserIDRequestFromContext(ctx echo.Context) (*UserIDRequest, error) {
	var body UserIDRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *UserIDRequest) Validate() error {
	if r.UserID == 0 {
		return errors.New("user_id is required")
	}

	return nil
}

type ListUsersResponse struct {
	Users []*UserView `json:"users"`
	Total int         `json:"total"`
}

type AdminUserResponse struct {
	Message string    `json:"message"`
	User    *UserView `json:"user"`
}

// CreateAdminRequest is filled from CLI flags.
type CreateAdminRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (r *CreateAdminRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return errors.New("email and password are required")
	}

	return nil
}
