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

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists              = errors.New("user already exists")
	ErrUserNotFound            = errors.New("user not found")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrAccountNotConfirmed     = errors.New("account not confirmed")
	ErrInvalidToken            = errors.New("invalid token")
	ErrTokenExpired            = errors.New("token has expired")
	ErrAccountAlreadyConfirmed = errors.New("account is already confirmed")
	ErrWeakPassword            = errors.New("password does not meet policy requirements")
	ErrEmailDelivery           = errors.New("failed to send email")
)

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByCanonicalEmail(ctx context.Context, canonicalEmail string) (*entity.User, error)
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	FindByConfirmationToken(ctx context.Context, token string) (*entity.User, error)
	FindByResetToken(ctx context.Context, token string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	UpdateLastLogin(ctx context.Context, userID uint64, lastLogin time.Time) error
}

type accountMailer interface {
	SendConfirmation(ctx context.Context, user *entity.User, token string) error
	SendPasswordReset(ctx context.Context, user *entity.User, token string, ttl time.Duration) error
}

type tokenIssuer interface {
	Issue(user *entity.User) (string, error)
	TTL() time.Duration
}

type UserAuthService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*types.RegisterResponse, error)
	Login(ctx context.Context, req *types.LoginRequest) (*types.LoginResponse, error)
	ConfirmEmail(ctx context.Context, req *types.ConfirmEmailRequest) (*entity.User, error)
	ResendConfirmation(ctx context.Context, req *types.EmailRequest) error
	RequestPasswordReset(ctx context.Context, req *types.EmailRequest) error
	ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) error
}

type AsyncRunner func(task func())

type UserAuthServiceOption func(*userAuthService)

type userAuthService struct {
	userRepo    userRepository
	tokens      tokenIssuer
	mailer      accountMailer
	cfg         *config.Config
	asyncRunner AsyncRunner
	now         func() time.Time
}

func NewUserAuthService(
	userRepo userRepository,
	tokens tokenIssuer,
	mailer accountMailer,
	cfg *config.Config,
	opts ...UserAuthServiceOption,
) UserAuthService {
	svc := &userAuthService{
		userRepo: userRepo,
		tokens:   tokens,
		mailer:   mailer,
		cfg:      cfg,
		asyncRunner: func(task func()) {
			go task()
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithAsyncRunner(runner AsyncRunner) UserAuthServiceOption {
	return func(s *userAuthService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

func WithClock(now func() time.Time) UserAuthServiceOption {
	return func(s *userAuthService) {
		if now != nil {
			s.now = now
		}
	}
}

func (s *userAuthService) Register(ctx context.Context, req *types.RegisterRequest) (*types.RegisterResponse, error) {
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

	confirmToken := uuid.New().String()
	now := s.now()

	user := &entity.User{
		Email:                  email,
		CanonicalEmail:         canonicalEmail,
		PasswordHash:           string(hashedPassword),
		FirstName:              strings.TrimSpace(req.FirstName),
		LastName:               strings.TrimSpace(req.LastName),
		Role:                   entity.RoleUser,
		Active:                 true,
		HasAccess:              false,
		EmailConfirmed:         false,
		EmailConfirmationToken: sql.NullString{String: confirmToken, Valid: true},
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err = s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	resp := &types.RegisterResponse{
		Message:   "registration successful, check your email to confirm your account",
		EmailSent: true,
		User:      types.NewUserView(user),
	}

	if err = s.mailer.SendConfirmation(ctx, user, confirmToken); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to send confirmation email")
		resp.Message = "registration successful, but the confirmation email could not be sent"
		resp.EmailSent = false
	}

	return resp, nil
}

func (s *userAuthService) Login(ctx context.Context, req *types.LoginRequest) (*types.LoginResponse, error) {
	canonicalEmail := CanonicalizeEmail(req.Email)
	user, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if s.cfg.Auth.RequireConfirmedEmail && !user.EmailConfirmed {
		return nil, ErrAccountNotConfirmed
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	loginAt := s.now()
	s.asyncRunner(func() {
		updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if updateErr := s.userRepo.UpdateLastLogin(updateCtx, user.ID, loginAt); updateErr != nil {
			logrus.WithError(updateErr).WithField("user_id", user.ID).Error("failed to update last_login")
		}
	})

	return &types.LoginResponse{
		Message:   "login successful",
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		User:      types.NewUserView(user),
	}, nil
}

func (s *userAuthService) ConfirmEmail(ctx context.Context, req *types.ConfirmEmailRequest) (*entity.User, error) {
	user, err := s.userRepo.FindByConfirmationToken(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	user.EmailConfirmed = true
	user.EmailConfirmationToken = sql.NullString{Valid: false}

	if err = s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userAuthService) ResendConfirmation(ctx context.Context, req *types.EmailRequest) error {
	user, err := s.userRepo.FindByCanonicalEmail(ctx, CanonicalizeEmail(req.Email))
	if err != nil {
		return err
	}
	if user == nil || !user.Active {
		return ErrUserNotFound
	}
	if user.EmailConfirmed {
		return ErrAccountAlreadyConfirmed
	}

	confirmToken := uuid.New().String()
	user.EmailConfirmationToken = sql.NullString{String: confirmToken, Valid: true}
	if err = s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if err = s.mailer.SendConfirmation(ctx, user, confirmToken); err != nil {
		return fmt.Errorf("%w: %s", ErrEmailDelivery, err.Error())
	}
	return nil
}

// RequestPasswordReset never reveals whether the address belongs to an
// account; only storage failures are returned.
func (s *userAuthService) RequestPasswordReset(ctx context.Context, req *types.EmailRequest) error {
	user, err := s.userRepo.FindByCanonicalEmail(ctx, CanonicalizeEmail(req.Email))
	if err != nil {
		return err
	}
	if user == nil || !user.Active {
		logrus.Debug("Password reset requested for unknown or inactive account")
		return nil
	}

	ttl := s.cfg.Tokens.ResetTTL
	resetToken := uuid.New().String()
	user.PasswordResetToken = sql.NullString{String: resetToken, Valid: true}
	user.PasswordResetExpires = sql.NullTime{Time: s.now().Add(ttl), Valid: true}

	if err = s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if err = s.mailer.SendPasswordReset(ctx, user, resetToken, ttl); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to send password reset email")
	}
	return nil
}

func (s *userAuthService) ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) error {
	user, err := s.userRepo.FindByResetToken(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidToken
	}

	if !user.LiveResetToken(s.now()) {
		return ErrTokenExpired
	}

	if err = s.cfg.Password.Policy.Validate(req.Password); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashedPassword)
	user.PasswordResetToken = sql.NullString{Valid: false}
	user.PasswordResetExpires = sql.NullTime{Valid: false}

	return s.userRepo.Update(ctx, user)
}
