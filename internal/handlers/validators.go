package handlers

import (
	"fmt"

	"github.com/burnoutcheck/backend/pkg/validation"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// registerValidators adds the funnel's binding tags to gin's validator.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	err := v.RegisterValidation("otpcode", func(fl validator.FieldLevel) bool {
		return validation.ValidateCode(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("register otpcode validator: %v", err))
	}
}
