package invoice

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sawi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// newValidator returns a validator that reports json field names and
// compares decimals numerically
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// validationError turns validator output into a domain validation error
// naming the first failing field
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return shared.NewValidationError(err.Error())
	}

	fe := verrs[0]
	field := fe.Field()
	var msg string
	switch fe.Tag() {
	case "required", "required_if":
		msg = fmt.Sprintf("%s is required", field)
	case "gt":
		msg = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gtfield":
		msg = "Due date must be after issue date"
	case "len":
		msg = fmt.Sprintf("%s must be %s characters long", field, fe.Param())
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "alpha":
		msg = fmt.Sprintf("%s must contain letters only", field)
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return shared.NewValidationError(msg)
}
