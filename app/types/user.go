package types

import (
	"time"

	"github.com/vibast-solutions/ms-go-course/app/entity"
)

// UserView is the public representation of a user. Secrets and tokens are
// never part of it.
type UserView struct {
	ID             uint64     `json:"id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Role           string     `json:"role"`
	Active         bool       `json:"active"`
	HasAccess      bool       `json:"has_access"`
	EmailConfirmed bool       `json:"email_confirmed"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func NewUserView(user *entity.User) *UserView {
	if user == nil {
		return nil
	}

	view := &UserView{
		ID:             user.ID,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Role:           user.Role,
		Active:         user.Active,
		HasAccess:      user.HasAccess,
		EmailConfirmed: user.EmailConfirmed,
		CreatedAt:      user.CreatedAt,
	}
	if user.LastLogin.Valid {
		lastLogin := user.LastLogin.Time
		view.LastLogin = &lastLogin
	}
	return view
}

func NewUserViews(users []*entity.User) []*UserView {
	views := make([]*UserView, 0, len(users))
	for _, user := range users {
		views = append(views, NewUserView(user))
	}
	return views
}
