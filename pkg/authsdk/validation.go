package authsdk

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	requiredReason = "required"

	PasswordMinLength = 8
	PasswordMaxLength = 128
	NameMinLength     = 2
	NameMaxLength     = 50
	EmailMaxLength    = 254
)

// Validate checks the registration fields.
// Returns a map of field names to error messages, or nil if all fields are valid.
func (r RegisterRequest) Validate() map[string]string {
	errs := make(map[string]string)

	validateEmail(errs, "email", r.Email)
	validatePassword(errs, "password", r.Password)
	validateName(errs, "firstName", r.FirstName)
	validateName(errs, "lastName", r.LastName)

	return nilIfEmpty(errs)
}

// Validate checks that both credentials are present. Format rules are not
// applied to logins so a legacy password still works.
func (r LoginRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Email) == "" {
		errs["email"] = requiredReason
	}
	if r.Password == "" {
		errs["password"] = requiredReason
	}
	return nilIfEmpty(errs)
}

func (r RefreshRequest) Validate() map[string]string {
	if strings.TrimSpace(r.RefreshToken) == "" {
		return map[string]string{"refreshToken": requiredReason}
	}
	return nil
}

func (r ForgotPasswordRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateEmail(errs, "email", r.Email)
	return nilIfEmpty(errs)
}

func (r ResetPasswordRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Token) == "" {
		errs["token"] = requiredReason
	}
	validatePassword(errs, "newPassword", r.NewPassword)
	return nilIfEmpty(errs)
}

// NormalizeEmail trims surrounding whitespace. Case is kept: emails are
// unique exactly as stored.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func validateEmail(errs map[string]string, field, email string) {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		errs[field] = requiredReason
	case len(email) > EmailMaxLength:
		errs[field] = fmt.Sprintf("too long (max %d)", EmailMaxLength)
	default:
		addr, err := mail.ParseAddress(email)
		// ParseAddress accepts "Name <a@b>"; only a bare address is allowed.
		if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
			errs[field] = "must be a valid email address"
		}
	}
}

func validatePassword(errs map[string]string, field, pw string) {
	n := utf8.RuneCountInString(pw)
	switch {
	case pw == "":
		errs[field] = requiredReason
		return
	case n < PasswordMinLength:
		errs[field] = fmt.Sprintf("too short (min %d)", PasswordMinLength)
		return
	case n > PasswordMaxLength:
		errs[field] = fmt.Sprintf("too long (max %d)", PasswordMaxLength)
		return
	}

	var upper, lower, digit bool
	for _, c := range pw {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		errs[field] = "must contain at least one uppercase, one lowercase and one digit"
	}
}

func validateName(errs map[string]string, field, name string) {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	switch {
	case n == 0:
		errs[field] = requiredReason
	case n < NameMinLength || n > NameMaxLength:
		errs[field] = fmt.Sprintf("must be %d-%d characters", NameMinLength, NameMaxLength)
	}
}

func nilIfEmpty(errs map[string]string) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
