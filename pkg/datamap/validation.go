package datamap

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when an integration operation is called with
// missing or invalid input. The store is not modified.
type ValidationError struct {
	Operation string       `json:"operation"`
	Fields    []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return fmt.Sprintf("%s: %s", e.Operation, strings.Join(msgs, "; "))
}

// IsValidationError reports whether err carries a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var inputValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// Report fields by their JSON name so messages match the request body
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return sf.Name
		}
		return name
	})
	return v
}

// validateInput runs struct tag validation and returns the field errors
func validateInput(in any) []FieldError {
	err := inputValidator.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Message: "invalid input"}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		var msg string
		switch fe.ActualTag() {
		case "required", "notblank":
			msg = fmt.Sprintf("%s is required", field)
		case "min":
			msg = fmt.Sprintf("select at least %s %s", fe.Param(), field)
		default:
			msg = fmt.Sprintf("%s is invalid", field)
		}
		out = append(out, FieldError{Field: field, Message: msg})
	}
	return out
}

// checkVocabulary reports elements that are not part of allowed
func checkVocabulary(field string, elements, allowed []string) []FieldError {
	known := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		known[a] = true
	}
	var out []FieldError
	for _, e := range elements {
		if strings.TrimSpace(e) == "" {
			continue // reported by tag validation
		}
		if !known[e] {
			out = append(out, FieldError{
				Field:   field,
				Message: fmt.Sprintf("%q is not a known %s value", e, field),
			})
		}
	}
	return out
}
