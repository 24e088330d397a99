// Package validator wraps go-playground struct-tag validation behind a small
// injectable type so handlers do not depend on the library directly.
package validator

import "github.com/go-playground/validator/v10"

// Validator validates request DTOs against their binding tags.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the standard tag set.
func New() *Validator {
	return &Validator{v: validator.New()}
}

// Struct validates a struct against its validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single value against a tag expression.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}
