// Package catalog answers college list, search, comparison and statistics
// requests over the docstore.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/leonardcser/college-api/internal/apperr"
	"github.com/leonardcser/college-api/internal/docstore"
)

// Composer turns a QueryRequest into store queries and pages the result.
type Composer struct {
	store docstore.Store
}

// NewComposer creates a Composer over store.
func NewComposer(store docstore.Store) *Composer {
	return &Composer{store: store}
}

// Plan is the store query for a request plus the filters evaluated in
// process after the store returns.
//
// The store only serves inequality filters on a single field, which must also
// lead the order clause. Range filters on the sort field (or, with no sort, on
// the first range field seen) go to the store; range filters on any other
// field, and array-contains filters past the first, are kept as residual
// filters. The result is the logical AND of every filter either way.
type Plan struct {
	Query    *docstore.Query
	Residual []Filter
}

// Plan validates req and builds its store query without executing it.
func (c *Composer) Plan(req QueryRequest) (Plan, error) {
	if req.Page <= 0 {
		return Plan{}, apperr.InvalidArgument("page must be positive, got %d", req.Page)
	}
	if req.PageSize <= 0 {
		return Plan{}, apperr.InvalidArgument("pageSize must be positive, got %d", req.PageSize)
	}
	filters := make([]Filter, 0, len(req.Filters))
	for _, f := range req.Filters {
		nf, err := normalizeFilter(f)
		if err != nil {
			return Plan{}, err
		}
		filters = append(filters, nf)
	}
	if req.Sort != nil && req.Sort.Field == "" {
		return Plan{}, apperr.InvalidArgument("sort field is empty")
	}

	rangeField := ""
	if req.Sort != nil {
		for _, f := range filters {
			if f.Op.IsRange() && f.Field == req.Sort.Field {
				rangeField = f.Field
				break
			}
		}
	} else {
		for _, f := range filters {
			if f.Op.IsRange() {
				rangeField = f.Field
				break
			}
		}
	}

	q := c.store.Query(Collection)
	var residual []Filter
	arrayPushed := false
	for _, f := range filters {
		switch {
		case f.Op.IsRange():
			if f.Field != rangeField {
				residual = append(residual, f)
				continue
			}
			q = q.WhereRange(f.Field, f.Op, f.Value)
		case f.Op == docstore.OpArrayContains:
			if arrayPushed {
				residual = append(residual, f)
				continue
			}
			arrayPushed = true
			q = q.WhereArrayContains(f.Field, f.Value)
		default:
			q = q.WhereEquals(f.Field, f.Value)
		}
	}
	if req.Sort != nil {
		q = q.OrderBy(req.Sort.Field, req.Sort.Dir)
	}
	return Plan{Query: q, Residual: residual}, nil
}

// Run executes req and returns the requested page. TotalCount counts the
// records left after residual and free-text filtering, before slicing.
func (c *Composer) Run(ctx context.Context, req QueryRequest) (Page[College], error) {
	plan, err := c.Plan(req)
	if err != nil {
		return Page[College]{}, err
	}
	docs, err := plan.Query.Execute(ctx)
	if err != nil {
		return Page[College]{}, storeError("query colleges", err)
	}
	if len(plan.Residual) > 0 {
		kept := docs[:0]
		for _, d := range docs {
			if matchesAll(d, plan.Residual) {
				kept = append(kept, d)
			}
		}
		docs = kept
	}
	colleges, err := fromDocuments(docs)
	if err != nil {
		return Page[College]{}, err
	}
	if req.Text != "" {
		colleges = filterText(colleges, req.Text)
	}
	return Paginate(colleges, req.Page, req.PageSize), nil
}

// Paginate slices items to the 1-based page. A page past the end is empty.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	total := len(items)
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}
	if pageSize <= 0 || page <= 0 {
		return p
	}
	// Counted by division so huge page sizes cannot overflow.
	p.TotalPages = total / pageSize
	if total%pageSize != 0 {
		p.TotalPages++
	}
	if page-1 >= p.TotalPages {
		return p
	}
	start := (page - 1) * pageSize
	end := total
	if pageSize < total-start {
		end = start + pageSize
	}
	p.Items = append(p.Items, items[start:end]...)
	return p
}

func matchesAll(d docstore.Document, filters []Filter) bool {
	for _, f := range filters {
		if !(docstore.Filter{Field: f.Field, Op: f.Op, Value: f.Value}).Matches(d) {
			return false
		}
	}
	return true
}

// filterText keeps colleges whose name, city, type or any course contains
// text, ignoring case.
func filterText(colleges []College, text string) []College {
	needle := strings.ToLower(text)
	has := func(s string) bool { return strings.Contains(strings.ToLower(s), needle) }
	out := colleges[:0]
	for _, c := range colleges {
		match := has(c.Name) || has(c.City) || has(c.Type)
		for i := 0; !match && i < len(c.Courses); i++ {
			match = has(c.Courses[i])
		}
		if match {
			out = append(out, c)
		}
	}
	return out
}

// storeError classifies a docstore failure. Rejected queries are the caller's
// fault; anything else means the store is unavailable.
func storeError(op string, err error) error {
	if errors.Is(err, docstore.ErrInvalidQuery) {
		return apperr.New(apperr.KindInvalidArgument, op, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperr.Upstream(op, err)
}
