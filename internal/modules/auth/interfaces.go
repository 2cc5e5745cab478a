package auth

import (
	"context"
	"time"

	"devicelab/internal/domain"
	pkgjwt "devicelab/internal/pkg/jwt"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

type TokenService interface {
	GenerateToken(userID int64, role string) (token string, jti string, err error)
	ValidateToken(tokenStr string) (*pkgjwt.Claims, error)
}
