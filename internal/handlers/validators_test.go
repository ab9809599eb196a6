package handlers

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

func TestOTPCodeBindingTag(t *testing.T) {
	registerValidators()

	type form struct {
		Code string `binding:"required,otpcode"`
	}
	tests := []struct {
		code  string
		valid bool
	}{
		{"123456", true},
		{"12345", false},
		{"12a456", false},
		{"1234567", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&form{Code: tt.code})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
