package domain

import "time"

const (
	DrawMinNumber = 1  // Smallest number a draw may hold
	DrawMaxNumber = 60 // Largest number a draw may hold
	DrawSize      = 6  // Numbers in every draw
)

// Draw Model
type Draw struct {
	ID        uint      `gorm:"primaryKey"`                   // Primary key
	UserID    uint      `gorm:"not null;index"`               // Foreign key to the owning User
	Numbers   []byte    `gorm:"type:varbinary(255);not null"` // Sealed six-number string
	Played    bool      `gorm:"not null;default:false;index"` // Settled in a round
	Win       bool      `gorm:"not null;default:false"`       // Matched the winning draw
	Round     int       `gorm:"not null;default:0"`           // Lottery round it was settled in
	Master    bool      `gorm:"not null;default:false;index"` // Winning draw created by an admin
	CreatedAt time.Time // Submission time

	Plain string `gorm:"-"` // Decrypted numbers, never persisted
}
