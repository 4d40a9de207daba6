package catalog

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/leonardcser/college-api/internal/apperr"
	"github.com/leonardcser/college-api/internal/docstore"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	DefaultSortBy   = "rank"
)

// numericFields are compared as numbers; text values for them are parsed.
var numericFields = map[string]bool{
	"rank":                 true,
	"fees":                 true,
	"rating":               true,
	"totalFees":            true,
	"nirfRank":             true,
	"establishedYear":      true,
	"medianSalary":         true,
	"highestSalary":        true,
	"placementRating":      true,
	"infrastructureRating": true,
	"reviews":              true,
}

// SortFields lists the fields a list request may sort by.
var SortFields = []string{"rank", "fees", "rating", "name"}

// Filter is one store-level predicate.
type Filter struct {
	Field string
	Op    docstore.Op
	Value any
}

// Sort is an order clause.
type Sort struct {
	Field string
	Dir   docstore.Direction
}

// QueryRequest is a transient description of one catalog search.
type QueryRequest struct {
	Filters  []Filter
	Sort     *Sort
	Page     int
	PageSize int
	// Text, when non-empty, is matched case-insensitively against name, city,
	// type and course names.
	Text string
}

// Page is one slice of a result sequence.
type Page[T any] struct {
	Items      []T `json:"data"`
	Page       int `json:"page"`
	PageSize   int `json:"limit"`
	TotalCount int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ParseListRequest builds a QueryRequest from list/search query parameters:
// page, limit, search (or query), city, state, type, course (or branch),
// minRank, maxRank, minFees, maxFees, sortBy, sortOrder.
// Numeric parameters are checked strictly; an empty value counts as absent.
func ParseListRequest(v url.Values) (QueryRequest, error) {
	req := QueryRequest{Page: DefaultPage, PageSize: DefaultPageSize}
	var err error
	if req.Page, err = intParam(v, "page", DefaultPage); err != nil {
		return QueryRequest{}, err
	}
	if req.PageSize, err = intParam(v, "limit", DefaultPageSize); err != nil {
		return QueryRequest{}, err
	}
	req.Text = firstNonEmpty(v.Get("search"), v.Get("query"))

	for _, field := range []string{"city", "state", "type"} {
		if s := v.Get(field); s != "" {
			req.Filters = append(req.Filters, Filter{Field: field, Op: docstore.OpEqual, Value: s})
		}
	}
	if s := firstNonEmpty(v.Get("course"), v.Get("branch")); s != "" {
		req.Filters = append(req.Filters, Filter{Field: "courses", Op: docstore.OpArrayContains, Value: s})
	}
	ranges := []struct {
		param, field string
		op           docstore.Op
	}{
		{"minRank", "rank", docstore.OpGreaterEqual},
		{"maxRank", "rank", docstore.OpLessEqual},
		{"minFees", "fees", docstore.OpGreaterEqual},
		{"maxFees", "fees", docstore.OpLessEqual},
	}
	for _, r := range ranges {
		if s := v.Get(r.param); s != "" {
			// Left as text; Run parses it so every caller gets the same check.
			req.Filters = append(req.Filters, Filter{Field: r.field, Op: r.op, Value: s})
		}
	}

	sortBy := firstNonEmpty(v.Get("sortBy"), DefaultSortBy)
	if !validSortField(sortBy) {
		return QueryRequest{}, apperr.InvalidArgument("sortBy must be one of %s, got %q", strings.Join(SortFields, ", "), sortBy)
	}
	req.Sort = &Sort{Field: sortBy, Dir: docstore.ParseDirection(v.Get("sortOrder"))}
	return req, nil
}

func validSortField(f string) bool {
	for _, s := range SortFields {
		if s == f {
			return true
		}
	}
	return false
}

func intParam(v url.Values, name string, def int) (int, error) {
	s := strings.TrimSpace(v.Get(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.InvalidArgument("%s must be an integer, got %q", name, s)
	}
	return n, nil
}

// IntParam parses an optional positive integer parameter such as limit.
func IntParam(v url.Values, name string, def int) (int, error) {
	n, err := intParam(v, name, def)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, apperr.InvalidArgument("%s must be positive, got %d", name, n)
	}
	return n, nil
}

// normalizeFilter parses text values on numeric fields.
func normalizeFilter(f Filter) (Filter, error) {
	if f.Field == "" {
		return Filter{}, apperr.InvalidArgument("filter field is empty")
	}
	switch f.Op {
	case docstore.OpEqual, docstore.OpArrayContains:
	default:
		if !f.Op.IsRange() {
			return Filter{}, apperr.InvalidArgument("unsupported operator %q on %s", f.Op, f.Field)
		}
	}
	s, isText := f.Value.(string)
	if !isText || !numericFields[f.Field] {
		return f, nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return Filter{}, apperr.InvalidArgument("%s filter needs a number, got %q", f.Field, s)
	}
	f.Value = n
	return f, nil
}

// parseLooseFloat reads a number stored as text, yielding 0 for anything
// unparsable.
func parseLooseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
