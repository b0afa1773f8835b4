package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	require.Equal(t, 2, p.Page)
	require.Equal(t, 20, p.PerPage)
	require.Equal(t, 45, p.TotalRecords)
	require.Equal(t, 3, p.TotalPages)

	p = NewPagination(0, 0, 0)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 20, p.PerPage)
	require.Zero(t, p.TotalPages)
}

func TestPaginationSlice(t *testing.T) {
	p := NewPagination(2, 20, 45)
	from, to := p.Slice(45)
	require.Equal(t, 20, from)
	require.Equal(t, 40, to)

	p = NewPagination(3, 20, 45)
	from, to = p.Slice(45)
	require.Equal(t, 40, from)
	require.Equal(t, 45, to)

	// Pages past the end of the list collapse to an empty range.
	p = NewPagination(9, 20, 45)
	from, to = p.Slice(45)
	require.Equal(t, 45, from)
	require.Equal(t, 45, to)
}
