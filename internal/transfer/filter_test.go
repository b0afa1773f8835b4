package transfer

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateCleanFilter(t *testing.T) {
	fv := NewFilterValidator()
	f := Filter{
		Status:    "Pending",
		FromStore: "3",
		ToStore:   "7",
		FromDate:  "2025-01-01",
		ToDate:    "2025-01-31",
	}
	require.Empty(t, fv.Validate(f, "test_api_key"))
}

func TestValidateEmptyFilterIsClean(t *testing.T) {
	fv := NewFilterValidator()
	require.Empty(t, fv.Validate(Filter{}, "test_api_key"))
}

func TestValidateWhitespaceCountsAsAbsent(t *testing.T) {
	fv := NewFilterValidator()
	f := Filter{Status: "  ", FromStore: " ", FromDate: "  "}
	require.Empty(t, fv.Validate(f, "test_api_key"))
}

func TestValidateAggregatesAllViolations(t *testing.T) {
	fv := NewFilterValidator()
	f := Filter{
		Status:    "Shipped",
		FromStore: "-2",
		ToStore:   "abc",
		FromDate:  "01/02/2025",
		ToDate:    "2025-13-45",
	}
	violations := fv.Validate(f, "   ")
	require.Equal(t, []string{
		"API key is required",
		"Status must be one of: Pending, Completed, Cancelled",
		"From Store ID must be a positive integer",
		"To Store ID must be a positive integer",
		"From Date must be in YYYY-MM-DD format",
		"To Date is not a valid date",
	}, violations)
}

func TestValidateCalendarDates(t *testing.T) {
	fv := NewFilterValidator()

	violations := fv.Validate(Filter{FromDate: "2025-02-30"}, "key")
	require.Equal(t, []string{"From Date is not a valid date"}, violations)

	require.Empty(t, fv.Validate(Filter{FromDate: "2024-02-29"}, "key"))
}

func TestValidateDateOrdering(t *testing.T) {
	fv := NewFilterValidator()

	f := Filter{FromDate: "2025-03-10", ToDate: "2025-03-01"}
	violations := fv.Validate(f, "key")
	require.Equal(t, []string{"From Date cannot be later than To Date"}, violations)

	// Equal dates are allowed.
	f = Filter{FromDate: "2025-03-10", ToDate: "2025-03-10"}
	require.Empty(t, fv.Validate(f, "key"))

	// Ordering is not checked while either date is itself invalid.
	f = Filter{FromDate: "2025-03-10", ToDate: "bogus"}
	violations = fv.Validate(f, "key")
	require.Equal(t, []string{"To Date must be in YYYY-MM-DD format"}, violations)
}

func TestValidateZeroStoreID(t *testing.T) {
	fv := NewFilterValidator()
	violations := fv.Validate(Filter{FromStore: "0"}, "key")
	require.Equal(t, []string{"From Store ID must be a positive integer"}, violations)
}

func TestFilterQuery(t *testing.T) {
	values := url.Values{}
	f := Filter{Status: "Completed", FromStore: " 4 ", ToDate: "2025-06-01"}
	f.Query(values)

	require.Equal(t, "Completed", values.Get("status"))
	require.Equal(t, "4", values.Get("from_store"))
	require.Equal(t, "2025-06-01", values.Get("to_date"))
	require.False(t, values.Has("to_store"))
	require.False(t, values.Has("from_date"))
}
