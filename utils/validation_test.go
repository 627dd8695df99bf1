package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"parent@example.com",
		"first.last@school.edu",
		"a@b.co",
		"weird+tag@sub.domain.org",
	}
	for _, e := range valid {
		assert.True(t, IsValidEmail(e), "expected %q to be valid", e)
	}

	invalid := []string{
		"",
		"plainaddress",
		"no@dot",
		"two@@signs.com",
		"spaces in@address.com",
		"@missing-local.com",
		"missing-domain@",
	}
	for _, e := range invalid {
		assert.False(t, IsValidEmail(e), "expected %q to be invalid", e)
	}
}

func TestCheckPasswordRequirements(t *testing.T) {
	t.Run("empty password fails everything", func(t *testing.T) {
		r := CheckPasswordRequirements("")
		assert.False(t, r.Length)
		assert.False(t, r.Uppercase)
		assert.False(t, r.Number)
		assert.False(t, r.Symbol)
		assert.False(t, r.All())
	})

	t.Run("requirements are independent", func(t *testing.T) {
		r := CheckPasswordRequirements("abcdefgh")
		assert.True(t, r.Length)
		assert.False(t, r.Uppercase)
		assert.False(t, r.Number)
		assert.False(t, r.Symbol)

		r = CheckPasswordRequirements("A1!")
		assert.False(t, r.Length)
		assert.True(t, r.Uppercase)
		assert.True(t, r.Number)
		assert.True(t, r.Symbol)
	})

	t.Run("length bounds are 8 and 16 runes", func(t *testing.T) {
		assert.False(t, CheckPasswordRequirements("Aa1!567").Length)               // 7
		assert.True(t, CheckPasswordRequirements("Aa1!5678").Length)               // 8
		assert.True(t, CheckPasswordRequirements("Aa1!5678........."[:16]).Length) // 16
		assert.False(t, CheckPasswordRequirements("Aa1!5678.........").Length)     // 17
	})

	t.Run("all requirements met", func(t *testing.T) {
		r := CheckPasswordRequirements("Password1!")
		assert.True(t, r.All())
	})
}

func TestValidatePasswordReportsFirstFailureInFixedOrder(t *testing.T) {
	cases := []struct {
		password string
		valid    bool
		message  string
	}{
		// Length is always reported first, even when everything else fails too.
		{"a", false, "password must be 8-16 characters long"},
		{"", false, "password must be 8-16 characters long"},
		// Correct length, missing uppercase.
		{"password1!", false, "password must contain an uppercase letter"},
		// Uppercase present, missing number.
		{"Password!!", false, "password must contain a number"},
		// Number present, missing symbol.
		{"Password11", false, "password must contain a symbol"},
		{"Password1!", true, "password meets all requirements"},
	}

	for _, tc := range cases {
		check := ValidatePassword(tc.password)
		assert.Equal(t, tc.valid, check.IsValid, "password %q", tc.password)
		assert.Equal(t, tc.message, check.Message, "password %q", tc.password)
	}
}

func TestHasProfanity(t *testing.T) {
	assert.True(t, HasProfanity("what the fuck"))
	assert.True(t, HasProfanity("ShIt happens"))
	// Substring matching is deliberate, so embedded terms match too.
	assert.True(t, HasProfanity("scrapdickens"))
	assert.False(t, HasProfanity("a perfectly polite sentence"))
	assert.False(t, HasProfanity(""))
}

func TestRestrictedTermMatch(t *testing.T) {
	t.Run("exact and normalized matches", func(t *testing.T) {
		for _, candidate := range []string{
			"admin",
			"ADMIN",
			"Ad.min",
			"ad-min",
			"ad_min",
			"a d m i n",
			"principal",
			"greenhill",
		} {
			_, ok := RestrictedTermMatch(candidate)
			assert.True(t, ok, "expected %q to be restricted", candidate)
		}
	})

	t.Run("digit suffixes still match", func(t *testing.T) {
		term, ok := RestrictedTermMatch("admin1")
		assert.True(t, ok)
		assert.Equal(t, "admin", term)

		_, ok = RestrictedTermMatch("Moderator2024")
		assert.True(t, ok)
	})

	t.Run("non-digit suffixes do not match", func(t *testing.T) {
		for _, candidate := range []string{
			"administrate", // admin + letters
			"rooted",
			"supportive",
			"",
			"alice",
		} {
			_, ok := RestrictedTermMatch(candidate)
			assert.False(t, ok, "expected %q to be allowed", candidate)
		}
	})
}

func TestValidateRegistrationNames(t *testing.T) {
	t.Run("clean registration passes", func(t *testing.T) {
		assert.Nil(t, ValidateRegistrationNames("Alice", "", "Smith", "alice.smith@example.com"))
	})

	t.Run("fields are checked in order, first failure wins", func(t *testing.T) {
		fieldErr := ValidateRegistrationNames("admin", "root", "Smith", "moderator@example.com")
		assert.NotNil(t, fieldErr)
		assert.Equal(t, "first_name", fieldErr.Field)

		fieldErr = ValidateRegistrationNames("Alice", "root", "Smith", "moderator@example.com")
		assert.NotNil(t, fieldErr)
		assert.Equal(t, "middle_name", fieldErr.Field)

		fieldErr = ValidateRegistrationNames("Alice", "", "Admin1", "moderator@example.com")
		assert.NotNil(t, fieldErr)
		assert.Equal(t, "last_name", fieldErr.Field)
	})

	t.Run("email local part is checked", func(t *testing.T) {
		fieldErr := ValidateRegistrationNames("Alice", "", "Smith", "principal@example.com")
		assert.NotNil(t, fieldErr)
		assert.Equal(t, "email", fieldErr.Field)

		// The domain part is not restricted.
		assert.Nil(t, ValidateRegistrationNames("Alice", "", "Smith", "alice@admin-hosting.com"))
	})

	t.Run("empty middle name is skipped", func(t *testing.T) {
		assert.Nil(t, ValidateRegistrationNames("Alice", "", "Smith", "alice@example.com"))
	})
}
