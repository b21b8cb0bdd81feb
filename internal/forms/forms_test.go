package forms

import (
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegisterForm() RegisterForm {
	return RegisterForm{
		Email:           "ada@example.com",
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Phone:           "0191-123-4567",
		Password:        "Passw0rd!",
		ConfirmPassword: "Passw0rd!",
		PinKey:          "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP",
	}
}

func validate(t *testing.T, obj any) []string {
	t.Helper()
	require.NoError(t, Register())
	err := binding.Validator.ValidateStruct(obj)
	if err == nil {
		return nil
	}
	return Messages(err)
}

func TestRegisterFormValid(t *testing.T) {
	f := validRegisterForm()
	assert.Empty(t, validate(t, &f))
}

func TestRegisterFormRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterForm)
		want   string
	}{
		{"bad email", func(f *RegisterForm) { f.Email = "not-an-email" }, "Please enter a valid email address."},
		{"excluded char in first name", func(f *RegisterForm) { f.FirstName = "Ad@" }, "Character @ is not allowed."},
		{"excluded char in last name", func(f *RegisterForm) { f.LastName = "Love<lace" }, "Character < is not allowed."},
		{"phone without dashes", func(f *RegisterForm) { f.Phone = "01911234567" }, "The phone must be in the format XXXX-XXX-XXXX"},
		{"phone with trailing text", func(f *RegisterForm) { f.Phone = "0191-123-4567x" }, "The phone must be in the format XXXX-XXX-XXXX"},
		{"confirmation mismatch", func(f *RegisterForm) { f.ConfirmPassword = "Passw0rd?" }, "Both password fields must match"},
		{"short pin key", func(f *RegisterForm) { f.PinKey = "JBSWY3DP" }, "The PIN key must be 32 characters long"},
		{"pin key outside base32", func(f *RegisterForm) { f.PinKey = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PX1" }, "The PIN key may only contain the letters A-Z and digits 2-7"},
		{"missing first name", func(f *RegisterForm) { f.FirstName = "" }, "First name is required."},
		{"overlong email", func(f *RegisterForm) { f.Email = strings.Repeat("a", 70000) + "@example.com" }, "Email must be at most 254 characters long."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validRegisterForm()
			tt.mutate(&f)
			assert.Contains(t, validate(t, &f), tt.want)
		})
	}
}

func TestPasswordRules(t *testing.T) {
	const lengthMsg = "The password must be between 6 and 12 characters long"
	const complexityMsg = "Password must contain at least 1 digit, an uppercase and a lowercase letter, and a special character."
	tests := []struct {
		password string
		want     string
	}{
		{"Pa0!", lengthMsg},
		{"Passw0rd!Passw0rd!", lengthMsg},
		{"password0!", complexityMsg},
		{"PASSWORD0!", complexityMsg},
		{"Password!!", complexityMsg},
		{"Password00", complexityMsg},
		{"Pass_word0", complexityMsg},
		{"Éabc1!", complexityMsg},
		{"ABCé1!", complexityMsg},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			f := validRegisterForm()
			f.Password, f.ConfirmPassword = tt.password, tt.password
			assert.Contains(t, validate(t, &f), tt.want)
		})
	}

	for _, ok := range []string{"Aa1!aa", "Passw0rd!", "Abcdefgh1 23"} {
		f := validRegisterForm()
		f.Password, f.ConfirmPassword = ok, ok
		assert.Empty(t, validate(t, &f), ok)
	}
}

func TestLoginForm(t *testing.T) {
	ok := LoginForm{Email: "ada@example.com", Password: "x", Pin: "123456"}
	assert.Empty(t, validate(t, &ok))

	bad := LoginForm{Email: "ada@example.com", Password: "x", Pin: "12ab56"}
	assert.Contains(t, validate(t, &bad), "2FA code must be numeric.")

	short := LoginForm{Email: "ada@example.com", Password: "x", Pin: "12345"}
	assert.Contains(t, validate(t, &short), "The 2FA code must be 6 digits long")

	long := LoginForm{Email: strings.Repeat("a", 70000) + "@example.com", Password: "x", Pin: "123456"}
	assert.Contains(t, validate(t, &long), "Email must be at most 254 characters long.")
}

func TestDrawForm(t *testing.T) {
	ok := DrawForm{1, 2, 3, 4, 5, 60}
	assert.Empty(t, validate(t, &ok))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 60}, ok.Numbers())

	outOfRange := DrawForm{0, 2, 3, 4, 5, 61}
	assert.Equal(t, []string{"Numbers must be between 1 and 60."}, validate(t, &outOfRange))

	repeated := DrawForm{7, 7, 3, 4, 5, 7}
	assert.Equal(t, []string{"Each number can only be chosen once."}, validate(t, &repeated))

	both := DrawForm{0, 9, 9, 4, 5, 6}
	assert.ElementsMatch(t, []string{"Numbers must be between 1 and 60.", "Each number can only be chosen once."}, validate(t, &both))
}

func TestMessagesForNonValidationError(t *testing.T) {
	assert.Equal(t, []string{"Invalid form submission."}, Messages(assert.AnError))
	assert.False(t, IsValidation(assert.AnError))

	require.NoError(t, Register())
	f := DrawForm{}
	assert.True(t, IsValidation(binding.Validator.ValidateStruct(&f)))
}
