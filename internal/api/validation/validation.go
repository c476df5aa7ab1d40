package validation

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	MaxUsernameLength = 30
	MinPasswordLength = 6
)

var (
	// EmailRegex validates email format
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)

	// UUIDRegex validates UUID format
	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// Petfinder animal ids are decimal; organization ids are short
	// alphanumeric codes such as "NJ333".
	animalIDRegex       = regexp.MustCompile(`^[0-9]{1,19}$`)
	organizationIDRegex = regexp.MustCompile(`^[A-Za-z0-9]{1,32}$`)

	stateRegex = regexp.MustCompile(`^[A-Z]{2}$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidUsername allows 1 to 30 letters, digits, underscores, dots and dashes.
func IsValidUsername(username string) bool {
	if len(username) == 0 || len(username) > MaxUsernameLength {
		return false
	}
	return usernameRegex.MatchString(username)
}

// IsValidUUID checks if the string is a valid UUID format
func IsValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

func IsValidAnimalID(id string) bool {
	return animalIDRegex.MatchString(id)
}

func IsValidOrganizationID(id string) bool {
	return organizationIDRegex.MatchString(id)
}

// IsValidState accepts a two-letter upper-case state code.
func IsValidState(state string) bool {
	return stateRegex.MatchString(state)
}

// IsValidPassword checks the minimum password length.
func IsValidPassword(password string) (bool, string) {
	if len(password) < MinPasswordLength {
		return false, "Password must be at least 6 characters"
	}
	if len(password) > 72 {
		return false, "Password must be at most 72 characters"
	}
	return true, ""
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Remove control characters except newlines and tabs
	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// TruncateString truncates a string to maxLen runes
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
