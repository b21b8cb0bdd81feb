// Package forms defines the HTML forms accepted by the application and the
// validation rules they are bound with
package forms

import (
	"errors"  // Sentinel checks
	"fmt"     // Message formatting
	"regexp"  // Format patterns
	"strings" // Character checks
	"unicode" // Digit and word character classes

	"lottery_system/internal/domain" // Draw number range

	"github.com/gin-gonic/gin/binding"       // Gin's validator instance
	"github.com/go-playground/validator/v10" // Validation engine
)

const ExcludedNameChars = "*?!'^+%&/()=}][{$#@<>" // May not appear in first or last names

var (
	phonePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{3}-[0-9]{4}$`) // NNNN-NNN-NNNN, whole input
	seedPattern  = regexp.MustCompile(`^[A-Za-z2-7]+$`)               // Base32 alphabet
)

// RegisterForm is the account sign-up form
type RegisterForm struct {
	Email           string `form:"email" binding:"required,max=254,email"`            // Login email
	FirstName       string `form:"firstname" binding:"required,namechars"`            // First name
	LastName        string `form:"lastname" binding:"required,namechars"`             // Last name
	Phone           string `form:"phone" binding:"required,phone"`                    // Phone number
	Password        string `form:"password" binding:"required,min=6,max=12,password"` // Password
	ConfirmPassword string `form:"confirm_password" binding:"required,eqfield=Password"`
	PinKey          string `form:"pin_key" binding:"required,len=32,totpseed"` // TOTP seed
}

// LoginForm is the password plus one-time code form
type LoginForm struct {
	Email    string `form:"email" binding:"required,max=254,email"` // Login email
	Password string `form:"password" binding:"required"`            // Password
	Pin      string `form:"pin" binding:"required,numeric,len=6"`   // One-time code
}

// DrawForm carries the six numbers of a lottery entry. Range and uniqueness are
// checked together by a struct rule
type DrawForm struct {
	No1 int `form:"no1"`
	No2 int `form:"no2"`
	No3 int `form:"no3"`
	No4 int `form:"no4"`
	No5 int `form:"no5"`
	No6 int `form:"no6"`
}

// Numbers returns the six numbers in field order
func (f *DrawForm) Numbers() []int {
	return []int{f.No1, f.No2, f.No3, f.No4, f.No5, f.No6}
}

// Register installs the custom rules into gin's validator
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("forms: gin validator is not go-playground/validator")
	}
	rules := map[string]validator.Func{
		"namechars": func(fl validator.FieldLevel) bool { return ValidName(fl.Field().String()) },
		"phone":     func(fl validator.FieldLevel) bool { return ValidPhone(fl.Field().String()) },
		"password":  func(fl validator.FieldLevel) bool { return ComplexPassword(fl.Field().String()) },
		"totpseed":  func(fl validator.FieldLevel) bool { return seedPattern.MatchString(fl.Field().String()) },
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("forms: register %s: %w", tag, err)
		}
	}
	v.RegisterStructValidation(drawNumbers, DrawForm{}) // Range and uniqueness of the six numbers
	return nil
}

// drawNumbers reports numbers outside the draw range and repeated numbers
func drawNumbers(sl validator.StructLevel) {
	f := sl.Current().Interface().(DrawForm)
	seen := make(map[int]bool, domain.DrawSize)
	repeated := false
	for i, n := range f.Numbers() {
		field := fmt.Sprintf("No%d", i+1) // Field the number came from
		if n < domain.DrawMinNumber || n > domain.DrawMaxNumber {
			sl.ReportError(n, field, field, "range", "")
			continue
		}
		if seen[n] && !repeated {
			sl.ReportError(n, field, field, "distinct", "")
			repeated = true // One notice is enough
		}
		seen[n] = true
	}
}

// ValidName reports whether s avoids every excluded character
func ValidName(s string) bool {
	return !strings.ContainsAny(s, ExcludedNameChars)
}

// ValidPhone reports whether s has the NNNN-NNN-NNNN shape
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// ComplexPassword reports whether s holds a digit, an upper case letter A-Z, a
// lower case letter a-z and a character that is not a word character
func ComplexPassword(s string) bool {
	var digit, upper, lower, special bool
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case 'A' <= r && r <= 'Z':
			upper = true
		case 'a' <= r && r <= 'z':
			lower = true
		case unicode.IsLetter(r), unicode.IsNumber(r), r == '_':
			// Other letters are word characters but count as neither case
		default:
			special = true
		}
	}
	return digit && upper && lower && special
}

// IsValidation reports whether err came from the validator rather than from
// decoding the request
func IsValidation(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}

// Messages turns a binding error into the notices shown above a form
func Messages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"Invalid form submission."} // Not a validation failure
	}
	var out []string
	seen := make(map[string]bool) // Same notice only once
	for _, fe := range verrs {
		msg := message(fe)
		if !seen[msg] {
			seen[msg] = true
			out = append(out, msg)
		}
	}
	return out
}

var labels = map[string]string{
	"Email":           "Email",
	"FirstName":       "First name",
	"LastName":        "Last name",
	"Phone":           "Phone",
	"Password":        "Password",
	"ConfirmPassword": "Password confirmation",
	"PinKey":          "PIN key",
	"Pin":             "2FA code",
}

// message is the notice for one failed rule
func message(fe validator.FieldError) string {
	label, ok := labels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "Please enter a valid email address."
	case "namechars":
		s, _ := fe.Value().(string)
		if i := strings.IndexAny(s, ExcludedNameChars); i >= 0 {
			return fmt.Sprintf("Character %c is not allowed.", s[i])
		}
	case "phone":
		return "The phone must be in the format XXXX-XXX-XXXX"
	case "password":
		return "Password must contain at least 1 digit, an uppercase and a lowercase letter, and a special character."
	case "eqfield":
		return "Both password fields must match"
	case "min", "max":
		if fe.Field() == "Email" {
			return "Email must be at most 254 characters long."
		}
		return "The password must be between 6 and 12 characters long"
	case "range":
		return fmt.Sprintf("Numbers must be between %d and %d.", domain.DrawMinNumber, domain.DrawMaxNumber)
	case "len":
		if fe.Field() == "Pin" {
			return "The 2FA code must be 6 digits long"
		}
		return "The PIN key must be 32 characters long"
	case "totpseed":
		return "The PIN key may only contain the letters A-Z and digits 2-7"
	case "numeric":
		return label + " must be numeric."
	case "distinct":
		return "Each number can only be chosen once."
	}
	return label + " is invalid."
}
