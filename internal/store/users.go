package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lottery_system/internal/domain"

	"gorm.io/gorm"
)

// Users is the gorm backed UserStore.
type Users struct {
	db *gorm.DB
}

// NewUsers returns a UserStore over db.
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (s *Users) Create(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	return found(&u, err)
}

func (s *Users) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	return found(&u, err)
}

func (s *Users) RecordLogin(ctx context.Context, u *domain.User, at time.Time) error {
	last := u.CurrentLoggedIn
	err := s.db.WithContext(ctx).Model(u).Updates(map[string]any{
		"last_logged_in":    last,
		"current_logged_in": at,
	}).Error
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	u.LastLoggedIn = last
	u.CurrentLoggedIn = &at
	return nil
}

func (s *Users) List(ctx context.Context, role domain.Role, offset, limit int) ([]domain.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&domain.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	var users []domain.User
	if err := query.Order("id").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func found[T any](v *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
