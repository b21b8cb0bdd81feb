// Package storetest provides in-memory stores for handler and service tests.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"lottery_system/internal/domain"
	"lottery_system/internal/store"
)

// Users is an in-memory store.UserStore.
type Users struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]domain.User
}

// NewUsers returns an empty Users.
func NewUsers() *Users {
	return &Users{rows: make(map[uint]domain.User)}
}

func (s *Users) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, row := range s.rows {
		if row.Email == u.Email {
			return store.ErrDuplicateEmail
		}
	}
	s.nextID++
	u.ID = s.nextID
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.CreatedAt = time.Now()
	s.rows[u.ID] = *u
	return nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, row := range s.rows {
		if row.Email == email {
			u := row
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Users) FindByID(_ context.Context, id uint) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &row, nil
}

func (s *Users) RecordLogin(_ context.Context, u *domain.User, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	row.LastLoggedIn = row.CurrentLoggedIn
	row.CurrentLoggedIn = &at
	s.rows[u.ID] = row
	u.LastLoggedIn, u.CurrentLoggedIn = row.LastLoggedIn, row.CurrentLoggedIn
	return nil
}

func (s *Users) List(_ context.Context, role domain.Role, offset, limit int) ([]domain.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []domain.User
	for _, row := range s.rows {
		if role == "" || row.Role == role {
			all = append(all, row)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// Count returns the number of stored users.
func (s *Users) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Draws is an in-memory store.DrawStore.
type Draws struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]domain.Draw
}

// NewDraws returns an empty Draws.
func NewDraws() *Draws {
	return &Draws{rows: make(map[uint]domain.Draw)}
}

func (s *Draws) Create(_ context.Context, d *domain.Draw) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(d)
	return nil
}

func (s *Draws) insert(d *domain.Draw) {
	s.nextID++
	d.ID = s.nextID
	d.CreatedAt = time.Now()
	row := *d
	row.Plain = ""
	s.rows[d.ID] = row
}

func (s *Draws) ListByUser(_ context.Context, userID uint, played bool) ([]domain.Draw, error) {
	return s.filter(func(d domain.Draw) bool {
		return d.UserID == userID && d.Played == played && !d.Master
	}), nil
}

func (s *Draws) DeletePlayed(_ context.Context, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, d := range s.rows {
		if d.UserID == userID && d.Played {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *Draws) CurrentWinning(_ context.Context) (*domain.Draw, error) {
	winners := s.filter(func(d domain.Draw) bool { return d.Master && !d.Played })
	if len(winners) == 0 {
		return nil, store.ErrNotFound
	}
	w := winners[len(winners)-1]
	return &w, nil
}

func (s *Draws) LastRound(_ context.Context) (int, error) {
	round := 0
	for _, d := range s.filter(func(d domain.Draw) bool { return d.Master }) {
		if d.Round > round {
			round = d.Round
		}
	}
	return round, nil
}

func (s *Draws) ReplaceWinning(_ context.Context, d *domain.Draw) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.rows {
		if row.Master && !row.Played {
			delete(s.rows, id)
		}
	}
	d.Master = true
	s.insert(d)
	return nil
}

func (s *Draws) ListUnplayedEntries(_ context.Context) ([]domain.Draw, error) {
	return s.filter(func(d domain.Draw) bool { return !d.Played && !d.Master }), nil
}

func (s *Draws) Settle(_ context.Context, winning *domain.Draw, entries []domain.Draw) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		row, ok := s.rows[e.ID]
		if !ok {
			return store.ErrNotFound
		}
		row.Played, row.Win, row.Round = true, e.Win, winning.Round
		s.rows[e.ID] = row
	}
	row, ok := s.rows[winning.ID]
	if !ok {
		return store.ErrNotFound
	}
	row.Played = true
	s.rows[winning.ID] = row
	return nil
}

// All returns every stored draw ordered by id.
func (s *Draws) All() []domain.Draw {
	return s.filter(func(domain.Draw) bool { return true })
}

func (s *Draws) filter(keep func(domain.Draw) bool) []domain.Draw {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Draw
	for _, d := range s.rows {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var (
	_ store.UserStore = (*Users)(nil)
	_ store.DrawStore = (*Draws)(nil)
)
