package shared

// Page size bounds for list queries
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter carries the paging, ordering and free-text search common to list
// queries. Repositories whitelist OrderBy before it reaches SQL.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// NewFilter starts at page 1 with DefaultPageSize unless told otherwise.
// PageSize is capped at MaxPageSize.
func NewFilter(page, pageSize int) Filter {
	f := Filter{Page: 1, PageSize: DefaultPageSize, OrderDir: "desc"}
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 {
		f.PageSize = min(pageSize, MaxPageSize)
	}
	return f
}

// Offset returns the row offset of the requested page
func (f Filter) Offset() int {
	if f.Page < 1 || f.PageSize < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
