package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	mobileRegex = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	codeRegex   = regexp.MustCompile(`^[0-9]{6}$`)
)

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(strings.ToLower(email))
	return emailRegex.MatchString(email)
}

// ValidateMobile accepts 10 to 15 digits with an optional leading plus.
// Spaces, dashes and parentheses are ignored.
func ValidateMobile(mobile string) bool {
	return mobileRegex.MatchString(NormalizeMobile(mobile))
}

// NormalizeMobile strips formatting characters from a phone number.
func NormalizeMobile(mobile string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(mobile))
}

// ValidateFullName checks the name is between 2 and 100 characters
func ValidateFullName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= 2 && n <= 100
}

// ValidateCode checks a one-time code is exactly six digits
func ValidateCode(code string) bool {
	return codeRegex.MatchString(strings.TrimSpace(code))
}

// SanitizeString removes potentially harmful characters
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
