package shared

import "math"

// Pagination contains metadata for paginated listings. For upstream-backed
// lists the server is authoritative; the engine only requests page/per_page.
type Pagination struct {
	Page         int `json:"page"`
	PerPage      int `json:"per_page"`
	TotalRecords int `json:"total_records"`
	TotalPages   int `json:"total_pages"`
}

// NewPagination computes pagination metadata for locally served listings.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, TotalRecords: total, TotalPages: totalPages}
}

// Slice returns the half-open index range [from, to) of the page within a
// list of the given length.
func (p Pagination) Slice(length int) (int, int) {
	from := (p.Page - 1) * p.PerPage
	if from < 0 {
		from = 0
	}
	if from > length {
		from = length
	}
	to := from + p.PerPage
	if to > length {
		to = length
	}
	return from, to
}
