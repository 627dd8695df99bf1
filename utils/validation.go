package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether s looks like an email address. The
// check is intentionally shallow: one '@' separating non-empty halves
// and a '.' somewhere in the domain part.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// PasswordRequirements is the record of the four independent password
// checks. A zero value (all false) is what an empty password yields.
type PasswordRequirements struct {
	Length    bool `json:"length"`    // 8 to 16 characters
	Uppercase bool `json:"uppercase"` // at least one upper-case letter
	Number    bool `json:"number"`    // at least one digit
	Symbol    bool `json:"symbol"`    // at least one non-alphanumeric character
}

// All reports whether every requirement is met.
func (r PasswordRequirements) All() bool {
	return r.Length && r.Uppercase && r.Number && r.Symbol
}

// CheckPasswordRequirements evaluates each requirement independently.
func CheckPasswordRequirements(password string) PasswordRequirements {
	var r PasswordRequirements
	if password == "" {
		return r
	}
	n := len([]rune(password))
	r.Length = n >= 8 && n <= 16
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			r.Uppercase = true
		case unicode.IsDigit(c):
			r.Number = true
		case !unicode.IsLetter(c) && !unicode.IsDigit(c):
			r.Symbol = true
		}
	}
	return r
}

// PasswordCheck is the outcome of ValidatePassword.
type PasswordCheck struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message"`
}

// ValidatePassword applies the four requirements in fixed order
// (length, uppercase, number, symbol) and reports the first failure
// as a human-readable message.
func ValidatePassword(password string) PasswordCheck {
	r := CheckPasswordRequirements(password)
	switch {
	case !r.Length:
		return PasswordCheck{Message: "password must be 8-16 characters long"}
	case !r.Uppercase:
		return PasswordCheck{Message: "password must contain an uppercase letter"}
	case !r.Number:
		return PasswordCheck{Message: "password must contain a number"}
	case !r.Symbol:
		return PasswordCheck{Message: "password must contain a symbol"}
	}
	return PasswordCheck{IsValid: true, Message: "password meets all requirements"}
}

// profanityBlockList is matched by case-insensitive substring search.
// Substring matching is a deliberate, documented trade-off: it yields
// false positives on innocent words that merely contain a listed term
// (the classic "Scunthorpe problem"). Accepted behavior, not a bug.
var profanityBlockList = []string{
	"fuck",
	"shit",
	"bitch",
	"bastard",
	"asshole",
	"dick",
	"cunt",
	"whore",
	"slut",
}

// HasProfanity reports whether text contains any block-listed term as
// a case-insensitive substring.
func HasProfanity(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range profanityBlockList {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// restrictedTerms may not be claimed as names or as the local part of
// an email address. Includes school-name fragments so accounts cannot
// impersonate the institution.
var restrictedTerms = []string{
	"admin",
	"administrator",
	"root",
	"principal",
	"headmaster",
	"moderator",
	"webmaster",
	"support",
	"greenhill",
	"greenhillschool",
}

// normalizeCandidate strips whitespace, dots, hyphens and underscores
// and lower-cases the result, so "Ad.min_1" normalizes to "admin1".
func normalizeCandidate(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch {
		case unicode.IsSpace(c), c == '.', c == '-', c == '_':
			continue
		default:
			b.WriteRune(unicode.ToLower(c))
		}
	}
	return b.String()
}

// RestrictedTermMatch returns the restricted term the candidate
// collides with. A candidate collides when its normalized form equals
// a term or equals a term followed only by digits ("admin1").
func RestrictedTermMatch(candidate string) (string, bool) {
	norm := normalizeCandidate(candidate)
	if norm == "" {
		return "", false
	}
	for _, term := range restrictedTerms {
		if norm == term {
			return term, true
		}
		if strings.HasPrefix(norm, term) && allDigits(norm[len(term):]) {
			return term, true
		}
	}
	return "", false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// FieldError names the first registration field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateRegistrationNames checks first/middle/last name and the
// local part of the email (in that order) against the restricted-term
// list, returning the first failure. middleName may be empty.
func ValidateRegistrationNames(firstName, middleName, lastName, email string) *FieldError {
	names := []struct {
		field string
		value string
	}{
		{"first_name", firstName},
		{"middle_name", middleName},
		{"last_name", lastName},
	}
	for _, n := range names {
		if n.value == "" {
			continue
		}
		if term, ok := RestrictedTermMatch(n.value); ok {
			return &FieldError{Field: n.field, Message: fmt.Sprintf("name may not contain the restricted term %q", term)}
		}
	}
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	if term, ok := RestrictedTermMatch(local); ok {
		return &FieldError{Field: "email", Message: fmt.Sprintf("email may not use the restricted term %q", term)}
	}
	return nil
}
