package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
)

// NewValidator returns a validator that reports fields by their form names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	return v
}

// validateForm runs struct validation and converts failures into a field-error validation error.
func validateForm(v *validator.Validate, form interface{}, message string) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return appErrors.WithFields(message, fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		length := 0
		if s, ok := fe.Value().(string); ok {
			length = utf8.RuneCountInString(s)
		}
		return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).", fe.Param(), length)
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "oneof":
		return fmt.Sprintf("Select one of: %s.", fe.Param())
	default:
		return "Enter a valid value."
	}
}
