package protocol

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Pen limits
const (
	MinPenWidth = 1
	MaxPenWidth = 20
)

var ErrEmptyText = errors.New("annotation text is empty")

// Validator: validation of annotations and pen settings
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Annotation checks bounds only. The text is drawn exactly as given, so
// every participant renders the same characters; only "" is rejected.
func (v *Validator) Annotation(a Annotation) (Annotation, error) {
	if a.Text == "" {
		return Annotation{}, ErrEmptyText
	}

	if err := v.validate.Struct(a); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return Annotation{}, formatValidationErrors(validationErrors)
		}
		return Annotation{}, fmt.Errorf("validation failed: %w", err)
	}
	return a, nil
}

// Pen: color must be a hex color, width within the brush range
func (v *Validator) Pen(color string, width float64) error {
	if err := v.validate.Var(color, "required,hexcolor"); err != nil {
		return fmt.Errorf("validation failed: 'color' is invalid: %q", color)
	}
	if width < MinPenWidth || width > MaxPenWidth {
		return fmt.Errorf("validation failed: 'width' value out of allowed range")
	}
	return nil
}

// formatValidationErrors converts validator errors to a user-friendly error message
func formatValidationErrors(errs validator.ValidationErrors) error {
	return fmt.Errorf("validation failed: %s", formatSingleError(errs[0]))
}

func formatSingleError(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", field)
	case "min", "max":
		return fmt.Sprintf("'%s' value out of allowed range", field)
	default:
		return fmt.Sprintf("'%s' is invalid", field)
	}
}
