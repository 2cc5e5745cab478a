package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"devicelab/internal/domain"
	"devicelab/internal/pkg/apperr"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userModel struct {
	ID           int64      `gorm:"column:id;primaryKey"`
	Username     string     `gorm:"column:username;uniqueIndex;size:64"`
	PasswordHash string     `gorm:"column:password_hash"`
	RealName     string     `gorm:"column:real_name"`
	Email        *string    `gorm:"column:email"`
	Role         string     `gorm:"column:role;size:16"`
	Active       bool       `gorm:"column:active"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func toDomainUser(m userModel) *domain.User {
	var email string
	if m.Email != nil {
		email = *m.Email
	}
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		RealName:     m.RealName,
		Email:        email,
		Role:         domain.Role(m.Role),
		Active:       m.Active,
		LastLoginAt:  m.LastLoginAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	var email *string
	if u.Email != "" {
		v := u.Email
		email = &v
	}
	return userModel{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		RealName:     u.RealName,
		Email:        email,
		Role:         string(u.Role),
		Active:       u.Active,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return apperr.Persistencef(tx.Error, "insert user")
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("user %d not found", id)
	}
	if tx.Error != nil {
		return nil, apperr.Persistencef(tx.Error, "load user %d", id)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).Where("username = ?", username).First(&m)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("user %q not found", username)
	}
	if tx.Error != nil {
		return nil, apperr.Persistencef(tx.Error, "load user %q", username)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	tx := r.db.WithContext(ctx).Save(&m)
	if tx.Error != nil {
		return apperr.Persistencef(tx.Error, "update user %d", u.ID)
	}
	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	tx := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).
		Updates(map[string]any{"last_login_at": at, "updated_at": at})
	if tx.Error != nil {
		return apperr.Persistencef(tx.Error, "update last login for user %d", id)
	}
	return nil
}
