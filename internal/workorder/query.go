package workorder

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 30
	MaxLimit     = 100
)

// ListParams are the normalized paging, search and ordering inputs of a listing.
type ListParams struct {
	Query  string
	Sort   string
	Desc   bool
	Limit  int
	Offset int
}

// SortSpec maps public sort keys to SQL order expressions.
type SortSpec struct {
	Columns map[string]string
	Default string
}

var OrderSorts = SortSpec{
	Columns: map[string]string{
		"id":         "reports.id",
		"title":      "reports.title",
		"memberName": "users.name",
		"status":     "reports.status",
		"createdAt":  "reports.created_at",
	},
	Default: "createdAt",
}

var ReportSorts = SortSpec{
	Columns: map[string]string{
		"id":         "reports.id",
		"title":      "reports.title",
		"memberName": "users.name",
		"createdAt":  "reports.created_at",
		"closedAt":   "reports.closed_at",
	},
	Default: "closedAt",
}

var TechnicianSorts = SortSpec{
	Columns: map[string]string{
		"id":    "members.id",
		"name":  "users.name",
		"email": "users.email",
	},
	Default: "name",
}

// ParseListParams normalizes query-string values. Out-of-range or malformed
// values fall back to defaults rather than failing the request.
func ParseListParams(values url.Values, spec SortSpec) ListParams {
	p := ListParams{
		Query:  strings.TrimSpace(values.Get("q")),
		Sort:   values.Get("sort"),
		Desc:   values.Get("dir") != "asc",
		Limit:  DefaultLimit,
		Offset: 0,
	}

	if _, ok := spec.Columns[p.Sort]; !ok {
		p.Sort = spec.Default
	}
	if n, err := strconv.Atoi(values.Get("limit")); err == nil && n >= 1 && n <= MaxLimit {
		p.Limit = n
	}
	if n, err := strconv.Atoi(values.Get("offset")); err == nil && n >= 0 {
		p.Offset = n
	}
	return p
}

// OrderBy renders the SQL ORDER BY clause for p, with id as a tiebreaker.
func (p ListParams) OrderBy(spec SortSpec) string {
	col, ok := spec.Columns[p.Sort]
	if !ok {
		col = spec.Columns[spec.Default]
	}
	dir := "asc"
	if p.Desc {
		dir = "desc"
	}
	tiebreak := spec.Columns["id"]
	if tiebreak == "" || tiebreak == col {
		return col + " " + dir
	}
	return col + " " + dir + ", " + tiebreak + " " + dir
}

// likePattern builds a lowercase substring pattern with LIKE metacharacters
// escaped. The query is folded here with full Unicode rules, so only the
// stored side depends on the database's LOWER.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}
