package persistence

import "strings"

// sortColumns is a whitelist of columns a list endpoint may order by. Client
// input never reaches ORDER BY unless it names one of them exactly.
type sortColumns struct {
	allowed  map[string]bool
	fallback string
}

func newSortColumns(fallback string, columns ...string) sortColumns {
	allowed := map[string]bool{"id": true, "created_at": true, "updated_at": true}
	for _, c := range columns {
		allowed[c] = true
	}
	return sortColumns{allowed: allowed, fallback: fallback}
}

// column returns the requested column or the fallback
func (s sortColumns) column(requested string) string {
	if c := strings.TrimSpace(requested); s.allowed[c] {
		return c
	}
	return s.fallback
}

// direction is ASC only when asked for, DESC otherwise
func direction(requested string) string {
	if strings.EqualFold(strings.TrimSpace(requested), "asc") {
		return "ASC"
	}
	return "DESC"
}

// clause builds the ORDER BY expression with id as tie breaker so pages
// are stable between requests
func (s sortColumns) clause(column, dir string) string {
	c := s.column(column)
	if c == "id" {
		return "id " + direction(dir)
	}
	return c + " " + direction(dir) + ", id ASC"
}

var openDocumentSort = newSortColumns("issue_date",
	"issue_date", "due_date", "ncf", "kind", "status",
	"counterparty_name", "total_amount", "applied_amount",
)
