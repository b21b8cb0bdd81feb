// Package store persists users and draws through gorm.
package store

import (
	"context"
	"errors"
	"time"

	"lottery_system/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateEmail is returned when a user with the same email exists.
	ErrDuplicateEmail = errors.New("store: email already registered")
)

// UserStore reads and writes accounts.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	// RecordLogin moves the current login timestamp to last and stamps at as current.
	RecordLogin(ctx context.Context, u *domain.User, at time.Time) error
	List(ctx context.Context, role domain.Role, offset, limit int) ([]domain.User, int64, error)
}

// DrawStore reads and writes lottery draws.
type DrawStore interface {
	Create(ctx context.Context, d *domain.Draw) error
	ListByUser(ctx context.Context, userID uint, played bool) ([]domain.Draw, error)
	// DeletePlayed removes the user's played draws and nothing else.
	DeletePlayed(ctx context.Context, userID uint) (int64, error)
	CurrentWinning(ctx context.Context) (*domain.Draw, error)
	// LastRound is the highest round any winning draw was created for.
	LastRound(ctx context.Context) (int, error)
	// ReplaceWinning drops any unplayed winning draw and stores d in its place.
	ReplaceWinning(ctx context.Context, d *domain.Draw) error
	ListUnplayedEntries(ctx context.Context) ([]domain.Draw, error)
	// Settle persists the outcome of a round in one transaction.
	Settle(ctx context.Context, winning *domain.Draw, entries []domain.Draw) error
}

var (
	_ UserStore = (*Users)(nil)
	_ DrawStore = (*Draws)(nil)
)
