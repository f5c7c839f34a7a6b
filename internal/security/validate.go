package security

import (
	"regexp"  // Login and password character rules
	"strings" // Whitespace checks
	"unicode" // Whitespace classification

	"github.com/go-playground/validator/v10" // Tag-driven validation
)

var (
	loginPattern         = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{3,32}$`) // Alphanumeric start, then 3-32 of [A-Za-z0-9_-]
	passwordAlnumPattern = regexp.MustCompile(`[a-zA-Zа-яА-ЯёЁ0-9]`)              // At least one Latin/Cyrillic letter or digit

	validate = newValidator() // Shared validator, safe for concurrent use once built
)

const (
	loginRules    = "required,kudo_login"                 // Login tag chain
	passwordRules = "required,min=5,max=64,kudo_password" // Password tag chain, lengths counted in characters
)

// newValidator builds the validator with the login and password rules registered
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for empty tags or nil funcs
	if err := v.RegisterValidation("kudo_login", func(fl validator.FieldLevel) bool {
		return loginPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("kudo_password", func(fl validator.FieldLevel) bool {
		password := fl.Field().String()
		return strings.IndexFunc(password, unicode.IsSpace) < 0 && passwordAlnumPattern.MatchString(password)
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateLogin reports whether login is acceptable for a new or renamed account
func ValidateLogin(login string) bool {
	if strings.TrimSpace(login) == "" {
		return false // Empty or whitespace-only
	}
	return validate.Var(login, loginRules) == nil
}

// ValidatePassword reports whether password satisfies the security rules
func ValidatePassword(password string) bool {
	if strings.TrimSpace(password) == "" {
		return false // Empty or whitespace-only
	}
	return validate.Var(password, passwordRules) == nil
}
