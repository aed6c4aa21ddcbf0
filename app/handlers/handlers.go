// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

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
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "uuid":
		return err.Field() + " must be a valid UUID"
	case "e164_phone":
		return "Phone number must be in E.164 format, e.g. +14155550123"
	case "iso3166_1_alpha2":
		return "Country must be a two-letter ISO 3166-1 code"
	case "timezone":
		return err.Field() + " must be a valid IANA timezone name"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// registerPhoneValidation adds the e164_phone rule: a plus sign followed by
// 8 to 15 digits, first digit nonzero.
func registerPhoneValidation(v *validator.Validate) {
	v.RegisterValidation("e164_phone", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if len(value) < 9 || len(value) > 16 {
			return false
		}
		if value[0] != '+' || value[1] == '0' {
			return false
		}
		for _, char := range value[1:] {
			if char < '0' || char > '9' {
				return false
			}
		}
		return true
	})
}
