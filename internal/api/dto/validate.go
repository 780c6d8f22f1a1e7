package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/reparafacil/repair-service/pkg/util/errorutil"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Validator returns the shared validator; field names follow json tags.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("notblank", validators.NotBlank)
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks a request payload and returns a VALIDATION_FAILED error
// whose details map each offending field to a message.
func Validate(payload any) error {
	err := Validator().Struct(payload)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = prettyError(fieldErr)
	}
	return errorutil.NewValidationError("validation failed", details)
}

func prettyError(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must have at least %s characters", e.Param())
		}
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must have at most %s characters", e.Param())
		}
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	default:
		return e.Error()
	}
}
