package handlers

import (
	"reflect"
	"strings"

	"leadcrm/internal/apperr"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates the echo validator for request bodies
func NewValidator() *CustomValidator {
	v := validator.New()
	// report fields by their json names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		if fields, ok := err.(validator.ValidationErrors); ok && len(fields) > 0 {
			return apperr.Validation(fieldMessage(fields[0]))
		}
		return apperr.Validation(err.Error())
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return "Invalid " + fe.Field()
	}
}
