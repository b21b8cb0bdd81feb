package domain

import "time" // Login timestamps

// User Model
type User struct {
	ID              uint       `gorm:"primaryKey"`                                     // Primary key (shown as account number)
	Email           string     `gorm:"size:255;uniqueIndex;not null"`                  // Unique login email
	FirstName       string     `gorm:"size:100;not null"`                              // First name
	LastName        string     `gorm:"size:100;not null"`                              // Last name
	Phone           string     `gorm:"size:20;not null"`                               // Phone in NNNN-NNN-NNNN form
	Password        string     `gorm:"not null"`                                       // Bcrypt hash
	PinKey          string     `gorm:"size:32;not null"`                               // Base32 TOTP seed
	Role            Role       `gorm:"type:varchar(16);not null;default:user"`         // Role: user or admin
	LastLoggedIn    *time.Time                                                        // Previous successful login
	CurrentLoggedIn *time.Time                                                        // Most recent successful login
	CreatedAt       time.Time                                                         // Registration time
	Draws           []Draw     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"` // Owned draws
}

// FullName joins first and last name for display
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
