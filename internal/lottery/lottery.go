// Package lottery implements draw submission, listing and round settlement
package lottery

import (
	"context"     // Request scoped context
	"crypto/rand" // Unpredictable winning numbers
	"errors"      // Sentinel errors
	"fmt"         // Error wrapping
	"math/big"    // Bounded random integers
	"slices"      // Sorting numbers
	"strconv"     // Number formatting
	"strings"     // Draw string handling

	"lottery_system/internal/domain"    // Domain models
	"lottery_system/internal/drawcrypt" // Draw encryption
	"lottery_system/internal/metrics"   // Draw and round counters
	"lottery_system/internal/store"     // Persistence
)

var (
	ErrNoWinningDraw = errors.New("lottery: no winning draw for the current round") // No unplayed winning draw exists
	ErrNoEntries     = errors.New("lottery: no user entries")                       // Nothing to settle
)

// Service owns the draw lifecycle. Numbers are only ever stored sealed
type Service struct {
	draws  store.DrawStore       // Draw persistence
	cipher *drawcrypt.Cipher     // Seals and opens numbers
	pick   func() ([]int, error) // Winning number source
}

// NewService returns a Service storing draws in draws sealed with cipher
func NewService(draws store.DrawStore, cipher *drawcrypt.Cipher) *Service {
	return &Service{draws: draws, cipher: cipher, pick: randomNumbers}
}

// Round is the outcome of a settled lottery round
type Round struct {
	Number  int           // Round number
	Numbers string        // Winning numbers
	Entries int           // Draws played in the round
	Winners []domain.Draw // Draws that matched
}

// FormatNumbers joins numbers with single spaces
func FormatNumbers(numbers []int) string {
	parts := make([]string, len(numbers)) // One string per number
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ") // No trailing space
}

// Submit seals and stores a player's draw
func (s *Service) Submit(ctx context.Context, userID uint, numbers []int) (*domain.Draw, error) {
	plain := FormatNumbers(numbers) // Stored form of the numbers
	sealed, err := s.cipher.Seal(plain)
	if err != nil {
		return nil, fmt.Errorf("seal draw: %w", err)
	}
	d := &domain.Draw{UserID: userID, Numbers: sealed} // New unplayed draw
	if err := s.draws.Create(ctx, d); err != nil {
		return nil, err
	}
	d.Plain = plain       // Hand the caller the readable numbers
	metrics.ObserveDraw() // Count the submission
	return d, nil
}

// Playable returns the user's draws that have not been played, decrypted
func (s *Service) Playable(ctx context.Context, userID uint) ([]domain.Draw, error) {
	return s.list(ctx, userID, false)
}

// Results returns the user's played draws, decrypted
func (s *Service) Results(ctx context.Context, userID uint) ([]domain.Draw, error) {
	return s.list(ctx, userID, true)
}

// list loads the user's draws filtered by played and opens them
func (s *Service) list(ctx context.Context, userID uint, played bool) ([]domain.Draw, error) {
	draws, err := s.draws.ListByUser(ctx, userID, played)
	if err != nil {
		return nil, err
	}
	if err := s.open(draws); err != nil {
		return nil, err
	}
	return draws, nil
}

// ClearPlayed deletes the user's played draws
func (s *Service) ClearPlayed(ctx context.Context, userID uint) (int64, error) {
	return s.draws.DeletePlayed(ctx, userID)
}

// GenerateWinningDraw picks fresh winning numbers. An unplayed winning draw is
// replaced and keeps its round; otherwise a new round is opened
func (s *Service) GenerateWinningDraw(ctx context.Context, adminID uint) (*domain.Draw, error) {
	round, err := s.nextRound(ctx)
	if err != nil {
		return nil, err
	}
	numbers, err := s.pick() // Random distinct numbers
	if err != nil {
		return nil, fmt.Errorf("pick numbers: %w", err)
	}
	plain := FormatNumbers(numbers)
	sealed, err := s.cipher.Seal(plain)
	if err != nil {
		return nil, fmt.Errorf("seal winning draw: %w", err)
	}
	d := &domain.Draw{UserID: adminID, Numbers: sealed, Round: round, Master: true} // Winning draw of the round
	if err := s.draws.ReplaceWinning(ctx, d); err != nil {
		return nil, err
	}
	d.Plain = plain
	return d, nil
}

// nextRound is the round of the open winning draw, or one past the last round
func (s *Service) nextRound(ctx context.Context) (int, error) {
	cur, err := s.draws.CurrentWinning(ctx)
	if err == nil {
		return cur.Round, nil // Replacing keeps the round
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}
	last, err := s.draws.LastRound(ctx)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// WinningDraw returns the current unplayed winning draw, decrypted
func (s *Service) WinningDraw(ctx context.Context) (*domain.Draw, error) {
	d, err := s.draws.CurrentWinning(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoWinningDraw
	}
	if err != nil {
		return nil, err
	}
	if d.Plain, err = s.cipher.Open(d.Numbers); err != nil {
		return nil, fmt.Errorf("open winning draw %d: %w", d.ID, err)
	}
	return d, nil
}

// RunRound settles every unplayed entry against the current winning draw.
// An entry wins when it holds the same six numbers in any order
func (s *Service) RunRound(ctx context.Context) (*Round, error) {
	winning, err := s.WinningDraw(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.draws.ListUnplayedEntries(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	if err := s.open(entries); err != nil {
		return nil, err
	}

	target := canonical(winning.Plain) // Order-insensitive winning numbers
	round := &Round{Number: winning.Round, Numbers: winning.Plain, Entries: len(entries)}
	for i := range entries {
		e := &entries[i]
		e.Played = true                      // Every entry takes part
		e.Round = winning.Round              // Record the round
		e.Win = canonical(e.Plain) == target // Same six numbers
		if e.Win {
			round.Winners = append(round.Winners, *e)
		}
	}
	if err := s.draws.Settle(ctx, winning, entries); err != nil {
		return nil, err
	}
	metrics.ObserveRound(len(round.Winners)) // Count the round and its winners
	return round, nil
}

// open decrypts draws in place
func (s *Service) open(draws []domain.Draw) error {
	for i := range draws {
		plain, err := s.cipher.Open(draws[i].Numbers)
		if err != nil {
			return fmt.Errorf("open draw %d: %w", draws[i].ID, err)
		}
		draws[i].Plain = plain
	}
	return nil
}

// canonical sorts the numbers of a draw string so order does not matter
func canonical(plain string) string {
	fields := strings.Fields(plain)
	nums := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return plain // Not a number list, compare as is
		}
		nums = append(nums, n)
	}
	slices.Sort(nums)
	return FormatNumbers(nums)
}

// randomNumbers picks a sorted draw of distinct numbers in the allowed range
func randomNumbers() ([]int, error) {
	span := big.NewInt(domain.DrawMaxNumber - domain.DrawMinNumber + 1) // Size of the range
	seen := make(map[int]bool, domain.DrawSize)
	out := make([]int, 0, domain.DrawSize)
	for len(out) < domain.DrawSize {
		n, err := rand.Int(rand.Reader, span)
		if err != nil {
			return nil, err
		}
		v := int(n.Int64()) + domain.DrawMinNumber
		if seen[v] {
			continue // Draw again on a repeat
		}
		seen[v] = true
		out = append(out, v)
	}
	slices.Sort(out)
	return out, nil
}
