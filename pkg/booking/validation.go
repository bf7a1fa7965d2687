package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// now is swapped in tests
var now = time.Now

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Dates are compared by calendar day in local time
	_ = v.RegisterValidation("notpast", func(fl validator.FieldLevel) bool {
		d, err := time.ParseInLocation(DateLayout, fl.Field().String(), time.Local)
		if err != nil {
			return false
		}
		y, m, day := now().Date()
		return !d.Before(time.Date(y, m, day, 0, 0, 0, 0, time.Local))
	})

	_ = v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		return TimeOfDay(fl.Field().String()).Valid()
	})

	return v
}

// validateParams runs struct validation and converts failures to *ValidationErrors
func validateParams(params interface{}) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &ValidationErrors{}
	for _, fe := range fieldErrs {
		out.Errors = append(out.Errors, &ValidationError{
			Field:   fe.Namespace()[strings.Index(fe.Namespace(), ".")+1:],
			Message: describe(fe),
			Value:   fe.Value(),
		})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "notpast":
		return "must not be in the past"
	case "timeofday":
		return "must be a time in HH:MM or HH:MM:SS format"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// NormalizeReference trims and upper-cases a booking reference
func NormalizeReference(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}

var cancellationReasons = []CancellationReason{
	{ID: 1, Reason: "Customer Request"},
	{ID: 2, Reason: "Restaurant Closure"},
	{ID: 3, Reason: "Weather"},
	{ID: 4, Reason: "Emergency"},
	{ID: 5, Reason: "No Show"},
}

// CancellationReasons lists the reason ids the API accepts for a cancellation
func CancellationReasons() []CancellationReason {
	out := make([]CancellationReason, len(cancellationReasons))
	copy(out, cancellationReasons)
	return out
}

// LookupCancellationReason returns the reason with the given id
func LookupCancellationReason(id int) (CancellationReason, bool) {
	for _, r := range cancellationReasons {
		if r.ID == id {
			return r, true
		}
	}
	return CancellationReason{}, false
}
