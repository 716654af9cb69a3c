package entity

import (
	"database/sql"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                     uint64
	Email                  string
	CanonicalEmail         string
	PasswordHash           string
	FirstName              string
	LastName               string
	Role                   string
	Active                 bool
	HasAccess              bool
	EmailConfirmed         bool
	EmailConfirmationToken sql.NullString
	PasswordResetToken     sql.NullString
	PasswordResetExpires   sql.NullTime
	LastLogin              sql.NullTime
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasCourseAccess requires both the entitlement flag and an active account.
// Admins are entitled through their role.
func (u *User) HasCourseAccess() bool {
	if !u.Active {
		return false
	}
	return u.HasAccess || u.IsAdmin()
}

// LiveResetToken reports whether the reset token is still usable at now.
func (u *User) LiveResetToken(now time.Time) bool {
	return u.PasswordResetToken.Valid && u.PasswordResetExpires.Valid && now.Before(u.PasswordResetExpires.Time)
}
