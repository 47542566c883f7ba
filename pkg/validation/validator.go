package validation

import (
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/Aidin1998/energydesk/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,31}$`)

// Validator validates client-submitted entities and sanitizes free text
type Validator struct {
	validator *validator.Validate
	sanitizer *bluemonday.Policy
}

// NewValidator creates a validator with decimal support and the desk's custom tags
func NewValidator() *Validator {
	v := validator.New()

	// Validate decimals as floats so numeric tags (gt, min, max) apply.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		return symbolPattern.MatchString(fl.Field().String())
	})

	return &Validator{
		validator: v,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// ValidateStruct validates a struct using struct tags. Failures are returned as an
// errors.Invalid error listing every failing field.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Invalid.Explain("invalid input").Wrap(err)
	}

	fields := make([]errors.FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, errors.FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: message(fe),
		})
	}
	return errors.Invalid.Explain("validation failed").WithFields(fields)
}

// SanitizeInput strips markup from user supplied text. The result is safe to
// render as plain text and to forward to the language model.
func (v *Validator) SanitizeInput(input string) string {
	if input == "" {
		return input
	}
	sanitized := v.sanitizer.Sanitize(input)
	// bluemonday escapes entities; chat content is stored as plain text
	return strings.TrimSpace(html.UnescapeString(sanitized))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "symbol":
		return fmt.Sprintf("%s must be an upper-case symbol", fe.Field())
	case "alphanum":
		return fmt.Sprintf("%s must be alphanumeric", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
