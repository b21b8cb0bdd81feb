package store

import (
	"context"
	"fmt"

	"lottery_system/internal/domain"

	"gorm.io/gorm"
)

// Draws is the gorm backed DrawStore.
type Draws struct {
	db *gorm.DB
}

// NewDraws returns a DrawStore over db.
func NewDraws(db *gorm.DB) *Draws {
	return &Draws{db: db}
}

func (s *Draws) Create(ctx context.Context, d *domain.Draw) error {
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("create draw: %w", err)
	}
	return nil
}

func (s *Draws) ListByUser(ctx context.Context, userID uint, played bool) ([]domain.Draw, error) {
	var draws []domain.Draw
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND played = ? AND master = ?", userID, played, false).
		Order("id").
		Find(&draws).Error
	if err != nil {
		return nil, fmt.Errorf("list draws: %w", err)
	}
	return draws, nil
}

func (s *Draws) DeletePlayed(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND played = ?", userID, true).
		Delete(&domain.Draw{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete played draws: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Draws) CurrentWinning(ctx context.Context) (*domain.Draw, error) {
	var d domain.Draw
	err := s.db.WithContext(ctx).
		Where("master = ? AND played = ?", true, false).
		Order("id desc").
		First(&d).Error
	return found(&d, err)
}

func (s *Draws) LastRound(ctx context.Context) (int, error) {
	var round int
	err := s.db.WithContext(ctx).Model(&domain.Draw{}).
		Where("master = ?", true).
		Select("COALESCE(MAX(round), 0)").
		Scan(&round).Error
	if err != nil {
		return 0, fmt.Errorf("last round: %w", err)
	}
	return round, nil
}

func (s *Draws) ReplaceWinning(ctx context.Context, d *domain.Draw) error {
	d.Master = true
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("master = ? AND played = ?", true, false).Delete(&domain.Draw{}).Error; err != nil {
			return fmt.Errorf("drop winning draw: %w", err)
		}
		if err := tx.Create(d).Error; err != nil {
			return fmt.Errorf("create winning draw: %w", err)
		}
		return nil
	})
}

func (s *Draws) ListUnplayedEntries(ctx context.Context) ([]domain.Draw, error) {
	var draws []domain.Draw
	err := s.db.WithContext(ctx).
		Where("played = ? AND master = ?", false, false).
		Order("id").
		Find(&draws).Error
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return draws, nil
}

func (s *Draws) Settle(ctx context.Context, winning *domain.Draw, entries []domain.Draw) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			err := tx.Model(&domain.Draw{}).Where("id = ?", e.ID).Updates(map[string]any{
				"played": true,
				"win":    e.Win,
				"round":  winning.Round,
			}).Error
			if err != nil {
				return fmt.Errorf("settle draw %d: %w", e.ID, err)
			}
		}
		err := tx.Model(&domain.Draw{}).Where("id = ?", winning.ID).Update("played", true).Error
		if err != nil {
			return fmt.Errorf("close winning draw: %w", err)
		}
		return nil
	})
}
