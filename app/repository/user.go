package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-course/app/entity"
)

const userColumns = `id, email, canonical_email, password_hash, first_name, last_name, role, active, has_access,
		       email_confirmed, email_confirmation_token, password_reset_token, password_reset_expires,
		       last_login, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (email, canonical_email, password_hash, first_name, last_name, role, active, has_access,
		                   email_confirmed, email_confirmation_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.CanonicalEmail,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Active,
		user.HasAccess,
		user.EmailConfirmed,
		user.EmailConfirmationToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicate
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint64(id)
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users WHERE id = ?`
	return r.findOne(ctx, query, id)
}

// FindByIDForUpdate locks the user row until the surrounding transaction ends.
func (r *UserRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users WHERE id = ? FOR UPDATE`
	return r.findOne(ctx, query, id)
}

func (r *UserRepository) FindByCanonicalEmail(ctx context.Context, canonicalEmail string) (*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users WHERE canonical_email = ?`
	return r.findOne(ctx, query, canonicalEmail)
}

func (r *UserRepository) FindByConfirmationToken(ctx context.Context, token string) (*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users WHERE email_confirmation_token = ?`
	return r.findOne(ctx, query, token)
}

func (r *UserRepository) FindByResetToken(ctx context.Context, token string) (*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users WHERE password_reset_token = ?`
	return r.findOne(ctx, query, token)
}

func (r *UserRepository) FindFirstByRole(ctx context.Context, role string) (*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users WHERE role = ? ORDER BY id LIMIT 1`
	return r.findOne(ctx, query, role)
}

func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*entity.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			email = ?,
			canonical_email = ?,
			password_hash = ?,
			first_name = ?,
			last_name = ?,
			role = ?,
			active = ?,
			has_access = ?,
			email_confirmed = ?,
			email_confirmation_token = ?,
			password_reset_token = ?,
			password_reset_expires = ?,
			updated_at = ?
		WHERE id = ?
	`
	user.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.CanonicalEmail,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Active,
		user.HasAccess,
		user.EmailConfirmed,
		user.EmailConfirmationToken,
		user.PasswordResetToken,
		user.PasswordResetExpires,
		user.UpdatedAt,
		user.ID,
	)
	return err
}

func (r *UserRepository) SetHasAccess(ctx context.Context, userID uint64, hasAccess bool) error {
	query := `UPDATE users SET has_access = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, hasAccess, time.Now(), userID)
	return err
}

func (r *UserRepository) SetActive(ctx context.Context, userID uint64, active bool) error {
	query := `UPDATE users SET active = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, active, time.Now(), userID)
	return err
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID uint64, lastLogin time.Time) error {
	query := `UPDATE users SET last_login = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, lastLogin, userID)
	return err
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*entity.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func scanUser(row rowScanner) (*entity.User, error) {
	user := &entity.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.CanonicalEmail,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Active,
		&user.HasAccess,
		&user.EmailConfirmed,
		&user.EmailConfirmationToken,
		&user.PasswordResetToken,
		&user.PasswordResetExpires,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
