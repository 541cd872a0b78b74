package models

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// Validate checks a model against its struct validation tags.
func Validate(v interface{}) error {
	return validate.Struct(v)
}
