package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-course/app/entity"
	"github.com/vibast-solutions/ms-go-course/app/repository"
	"github.com/vibast-solutions/ms-go-course/app/types"
	"github.com/vibast-solutions/ms-go-course/config"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrCannotRevokeAdmin    = errors.New("cannot revoke access from an admin")
	ErrCannotDeactivateSelf = errors.New("cannot deactivate your own account")
	ErrAdminExists          = errors.New("an admin account already exists")
)

type adminUserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	FindByCanonicalEmail(ctx context.Context, canonicalEmail string) (*entity.User, error)
	FindFirstByRole(ctx context.Context, role string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	SetHasAccess(ctx context.Context, userID uint64, hasAccess bool) error
	SetActive(ctx context.Context, userID uint64, active bool) error
}

type AdminService interface {
	ListUsers(ctx context.Context) ([]*entity.User, error)
	ActivateUser(ctx context.Context, userID uint64) (*entity.User, error)
	DeactivateUser(ctx context.Context, actor *entity.User, userID uint64) (*entity.User, error)
	GrantAccess(ctx context.Context, userID uint64) (*entity.User, error)
	RevokeAccess(ctx context.Context, userID uint64) (*entity.User, error)
	CreateAdmin(ctx context.Context, req *types.CreateAdminRequest) (*entity.User, error)
}

type adminService struct {
	userRepo adminUserRepository
	cfg      *config.Config
}

func NewAdminService(userRepo adminUserRepository, cfg *config.Config) AdminService {
	return &adminService{userRepo: userRepo, cfg: cfg}
}

func (s *adminService) ListUsers(ctx context.Context) ([]*entity.User, error) {
	return s.userRepo.List(ctx)
}

func (s *adminService) ActivateUser(ctx context.Context, userID uint64) (*entity.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err = s.userRepo.SetActive(ctx, user.ID, true); err != nil {
		return nil, err
	}
	user.Active = true
	return user, nil
}

func (s *adminService) DeactivateUser(ctx context.Context, actor *entity.User, userID uint64) (*entity.User, error) {
	if actor != nil && actor.ID == userID {
		return nil, ErrCannotDeactivateSelf
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err = s.userRepo.SetActive(ctx, user.ID, false); err != nil {
		return nil, err
	}
	user.Active = false
	return user, nil
}

func (s *adminService) GrantAccess(ctx context.Context, userID uint64) (*entity.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err = s.userRepo.SetHasAccess(ctx, user.ID, true); err != nil {
		return nil, err
	}
	user.HasAccess = true
	return user, nil
}

func (s *adminService) RevokeAccess(ctx context.Context, userID uint64) (*entity.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return nil, ErrCannotRevokeAdmin
	}

	if err = s.userRepo.SetHasAccess(ctx, user.ID, false); err != nil {
		return nil, err
	}
	user.HasAccess = false
	return user, nil
}

// CreateAdmin bootstraps the first administrator. It refuses once any admin
// exists.
func (s *adminService) CreateAdmin(ctx context.Context, req *types.CreateAdminRequest) (*entity.User, error) {
	existingAdmin, err := s.userRepo.FindFirstByRole(ctx, entity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if existingAdmin != nil {
		return nil, ErrAdminExists
	}

	email := strings.TrimSpace(req.Email)
	canonicalEmail := CanonicalizeEmail(email)
	existing, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	if err = s.cfg.Password.Policy.Validate(req.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &entity.User{
		Email:                  email,
		CanonicalEmail:         canonicalEmail,
		PasswordHash:           string(hashedPassword),
		FirstName:              req.FirstName,
		LastName:               req.LastName,
		Role:                   entity.RoleAdmin,
		Active:                 true,
		HasAccess:              true,
		EmailConfirmed:         true,
		EmailConfirmationToken: sql.NullString{Valid: false},
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err = s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

func (s *adminService) findUser(ctx context.Context, userID uint64) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
