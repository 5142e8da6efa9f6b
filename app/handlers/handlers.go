// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newValidator builds a validator that reports fields by their JSON names so
// validation errors line up with the request payload
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	default:
		return err.Field() + " is invalid"
	}
}

// validationFieldErrors flattens validator errors into a field to message map
func validationFieldErrors(err error) map[string]string {
	fieldErrs := make(map[string]string)
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fieldErrs["request"] = "Invalid request"
		return fieldErrs
	}
	for _, fieldErr := range validationErrs {
		if _, exists := fieldErrs[fieldErr.Field()]; !exists {
			fieldErrs[fieldErr.Field()] = getValidationErrorMessage(fieldErr)
		}
	}
	return fieldErrs
}
