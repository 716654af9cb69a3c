package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-course/app/entity"
	"github.com/vibast-solutions/ms-go-course/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var ErrUnauthenticated = errors.New("invalid or expired token")

type Claims struct {
	UserID uint64 `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type userFinder interface {
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
}

type TokenService interface {
	Issue(user *entity.User) (string, error)
	// Verify resolves a bearer token to a live, active user. Every failure is
	// reported as ErrUnauthenticated.
	Verify(ctx context.Context, tokenString string) (*entity.User, error)
	TTL() time.Duration
}

type TokenServiceOption func(*tokenService)

type tokenService struct {
	secret []byte
	ttl    time.Duration
	users  userFinder
	now    func() time.Time
}

func NewTokenService(cfg config.JWTConfig, users userFinder, opts ...TokenServiceOption) TokenService {
	svc := &tokenService{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		users:  users,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(s *tokenService) {
		if now != nil {
			s.now = now
		}
	}
}

func (s *tokenService) TTL() time.Duration {
	return s.ttl
}

func (s *tokenService) Issue(user *entity.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.Email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *tokenService) Verify(ctx context.Context, tokenString string) (*entity.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		logrus.WithError(err).Debug("Token rejected")
		return nil, ErrUnauthenticated
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrUnauthenticated
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", claims.UserID).Error("Token user lookup failed")
		return nil, ErrUnauthenticated
	}
	if user == nil || !user.Active {
		return nil, ErrUnauthenticated
	}

	return user, nil
}
