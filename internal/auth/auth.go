// Package auth holds the credential checks used by the login flow.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// MaxLoginAttempts is the number of failures after which the login page
// reports that attempts are exhausted. It does not block further attempts.
const MaxLoginAttempts = 3

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyCode checks a six digit time based code against the user's seed,
// allowing one 30 second step of clock skew.
func VerifyCode(seed, code string) bool {
	return VerifyCodeAt(seed, code, time.Now())
}

// VerifyCodeAt is VerifyCode at a fixed instant.
func VerifyCodeAt(seed, code string, at time.Time) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), seed, at, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// AttemptMessage is the notice shown after the n-th failed login of a session.
func AttemptMessage(n int) string {
	switch remaining := MaxLoginAttempts - n; {
	case remaining <= 0:
		return "Number of incorrect logins exceeded"
	case remaining == 1:
		return "Please check your login details and try again. 1 login attempt remaining"
	default:
		return fmt.Sprintf("Please check your login details and try again. %d login attempts remaining", remaining)
	}
}
