package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("jane.doe@example.com"))
	assert.True(t, ValidateEmail("  Jane@Example.COM "))
	assert.False(t, ValidateEmail("jane@"))
	assert.False(t, ValidateEmail("not-an-email"))
}

func TestValidateMobile(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"+491701234567", true},
		{"0170 123-4567", true},
		{"(555) 123 4567", true},
		{"12345", false},
		{"+49170abc4567", false},
		{"1234567890123456", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateMobile(tt.in), tt.in)
	}
}

func TestNormalizeMobile(t *testing.T) {
	assert.Equal(t, "+15551234567", NormalizeMobile(" +1 (555) 123-4567 "))
}

func TestValidateFullName(t *testing.T) {
	assert.True(t, ValidateFullName("Jo"))
	assert.False(t, ValidateFullName(" J "))
	assert.True(t, ValidateFullName("Zoë Müller"))
}

func TestValidateCode(t *testing.T) {
	assert.True(t, ValidateCode("012345"))
	assert.False(t, ValidateCode("12345"))
	assert.False(t, ValidateCode("12a456"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  a\x00bc "))
}
