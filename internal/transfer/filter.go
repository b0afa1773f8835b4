package transfer

import (
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Filter narrows the transfer list. All fields are optional; store ids and
// dates travel as strings because they come straight from form inputs.
type Filter struct {
	Status    string `json:"status" validate:"omitempty,oneof=Pending Completed Cancelled"`
	FromStore string `json:"from_store" validate:"omitempty,storeid"`
	ToStore   string `json:"to_store" validate:"omitempty,storeid"`
	FromDate  string `json:"from_date" validate:"omitempty,datefmt,calendar"`
	ToDate    string `json:"to_date" validate:"omitempty,datefmt,calendar"`
}

const dateLayout = "2006-01-02"

var dateFormatRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// normalized trims surrounding whitespace so " " counts as absent.
func (f Filter) normalized() Filter {
	return Filter{
		Status:    strings.TrimSpace(f.Status),
		FromStore: strings.TrimSpace(f.FromStore),
		ToStore:   strings.TrimSpace(f.ToStore),
		FromDate:  strings.TrimSpace(f.FromDate),
		ToDate:    strings.TrimSpace(f.ToDate),
	}
}

// Query appends the filter's non-empty fields to the given query values.
func (f Filter) Query(values url.Values) {
	f = f.normalized()
	if f.Status != "" {
		values.Set("status", f.Status)
	}
	if f.FromStore != "" {
		values.Set("from_store", f.FromStore)
	}
	if f.ToStore != "" {
		values.Set("to_store", f.ToStore)
	}
	if f.FromDate != "" {
		values.Set("from_date", f.FromDate)
	}
	if f.ToDate != "" {
		values.Set("to_date", f.ToDate)
	}
}

// FilterValidator checks a Filter and credential before any network call.
type FilterValidator struct {
	validate *validator.Validate
}

// NewFilterValidator constructs a FilterValidator.
func NewFilterValidator() *FilterValidator {
	v := validator.New()
	// Registration only fails for blank tags or nil funcs.
	_ = v.RegisterValidation("storeid", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		return err == nil && n > 0
	})
	_ = v.RegisterValidation("datefmt", func(fl validator.FieldLevel) bool {
		return dateFormatRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("calendar", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dateLayout, fl.Field().String())
		return err == nil
	})
	return &FilterValidator{validate: v}
}

// Validate returns the complete set of violations for the filter and
// credential. It never stops at the first failure; an empty result means the
// caller may issue the request.
func (fv *FilterValidator) Validate(f Filter, apiKey string) []string {
	var violations []string
	if strings.TrimSpace(apiKey) == "" {
		violations = append(violations, "API key is required")
	}

	f = f.normalized()
	if err := fv.validate.Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				violations = append(violations, violationMessage(fe))
			}
		} else {
			violations = append(violations, err.Error())
		}
	}

	if f.FromDate != "" && f.ToDate != "" {
		from, errFrom := time.Parse(dateLayout, f.FromDate)
		to, errTo := time.Parse(dateLayout, f.ToDate)
		if errFrom == nil && errTo == nil && from.After(to) {
			violations = append(violations, "From Date cannot be later than To Date")
		}
	}
	return violations
}

func violationMessage(fe validator.FieldError) string {
	switch fe.StructField() {
	case "Status":
		return "Status must be one of: Pending, Completed, Cancelled"
	case "FromStore":
		return "From Store ID must be a positive integer"
	case "ToStore":
		return "To Store ID must be a positive integer"
	case "FromDate":
		if fe.Tag() == "datefmt" {
			return "From Date must be in YYYY-MM-DD format"
		}
		return "From Date is not a valid date"
	case "ToDate":
		if fe.Tag() == "datefmt" {
			return "To Date must be in YYYY-MM-DD format"
		}
		return "To Date is not a valid date"
	}
	return fe.Field() + " is invalid"
}
