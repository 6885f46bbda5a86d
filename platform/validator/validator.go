// Package validator wraps go-playground/validator for transport DTOs.
package validator

import (
	"errors"
	"fmt"
	"regexp"

	"marketplace_backend/platform/apperr"

	"github.com/go-playground/validator/v10"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Validator is injected into handlers instead of a package global.
type Validator struct {
	v *validator.Validate
}

// New registers the marketplace rules: "currency" (ISO-4217 style code).
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return currencyPattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates s and converts failures into a Validation error listing
// every offending field.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.BadRequest(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
	}
	return apperr.Validation("invalid request body").WithDetails(fields)
}

func (val *Validator) Var(field any, tag string) error {
	return val.v.Var(field, tag)
}
