package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Op is a filter operator.
type Op string

const (
	OpEqual         Op = "=="
	OpNotEqual      Op = "!="
	OpLess          Op = "<"
	OpLessEqual     Op = "<="
	OpGreater       Op = ">"
	OpGreaterEqual  Op = ">="
	OpArrayContains Op = "array-contains"
)

// IsRange reports whether op is an inequality operator.
func (op Op) IsRange() bool {
	switch op {
	case OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ParseDirection maps "desc" (any case) to Desc and everything else to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Desc
	}
	return Asc
}

// Filter is one where clause.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Order is one order-by clause.
type Order struct {
	Field string
	Dir   Direction
}

// Query is a builder over one collection. Builder methods return a new Query;
// the receiver is left unchanged.
type Query struct {
	collection string
	filters    []Filter
	orders     []Order
	limit      int
	err        error
	exec       func(ctx context.Context, q *Query) ([]Document, error)
}

func newQuery(collection string, exec func(ctx context.Context, q *Query) ([]Document, error)) *Query {
	return &Query{collection: collection, exec: exec}
}

func (q *Query) clone() *Query {
	c := *q
	c.filters = append([]Filter(nil), q.filters...)
	c.orders = append([]Order(nil), q.orders...)
	return &c
}

// Filters returns the attached filters in attachment order.
func (q *Query) Filters() []Filter { return append([]Filter(nil), q.filters...) }

// Where attaches a filter with an arbitrary operator.
func (q *Query) Where(field string, op Op, value any) *Query {
	c := q.clone()
	c.filters = append(c.filters, Filter{Field: field, Op: op, Value: normalizeValue(value)})
	return c
}

// WhereEquals attaches an equality filter.
func (q *Query) WhereEquals(field string, value any) *Query {
	return q.Where(field, OpEqual, value)
}

// WhereRange attaches an inequality filter.
func (q *Query) WhereRange(field string, op Op, value any) *Query {
	c := q.Where(field, op, value)
	if !op.IsRange() && c.err == nil {
		c.err = fmt.Errorf("%w: %q is not a range operator", ErrInvalidQuery, op)
	}
	return c
}

// WhereArrayContains attaches an array-membership filter.
func (q *Query) WhereArrayContains(field string, value any) *Query {
	return q.Where(field, OpArrayContains, value)
}

// OrderBy appends an order clause. Documents lacking the field are excluded
// from the result.
func (q *Query) OrderBy(field string, dir Direction) *Query {
	c := q.clone()
	c.orders = append(c.orders, Order{Field: field, Dir: dir})
	return c
}

// Limit caps the number of returned documents. n <= 0 removes the cap.
func (q *Query) Limit(n int) *Query {
	c := q.clone()
	if n < 0 {
		n = 0
	}
	c.limit = n
	return c
}

// Execute runs the query. Without an order clause the result order is
// undefined.
func (q *Query) Execute(ctx context.Context) ([]Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return q.exec(ctx, q)
}

// Validate checks the range-query constraints: every inequality filter targets
// the same field, the first order clause (if any) is on that field, and there
// is at most one array-contains filter.
func (q *Query) Validate() error {
	if q.err != nil {
		return q.err
	}
	rangeField := ""
	arrayFilters := 0
	for _, f := range q.filters {
		switch {
		case f.Op.IsRange():
			if rangeField != "" && rangeField != f.Field {
				return fmt.Errorf("%w: inequality filters on %q and %q", ErrInvalidQuery, rangeField, f.Field)
			}
			rangeField = f.Field
		case f.Op == OpArrayContains:
			arrayFilters++
		case f.Op == OpEqual:
		default:
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, f.Op)
		}
	}
	if arrayFilters > 1 {
		return fmt.Errorf("%w: more than one array-contains filter", ErrInvalidQuery)
	}
	if rangeField != "" && len(q.orders) > 0 && q.orders[0].Field != rangeField {
		return fmt.Errorf("%w: first order-by must be %q when filtering by inequality on it, got %q",
			ErrInvalidQuery, rangeField, q.orders[0].Field)
	}
	return nil
}

// apply filters, orders and limits docs in place. Backends call it after a
// collection scan.
func (q *Query) apply(docs []Document) []Document {
	out := docs[:0]
	for _, d := range docs {
		if q.matches(d) {
			out = append(out, d)
		}
	}
	if len(q.orders) > 0 {
		kept := out[:0]
		for _, d := range out {
			if hasFields(d, q.orders) {
				kept = append(kept, d)
			}
		}
		out = kept
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range q.orders {
				c := compareAny(out[i].Data[o.Field], out[j].Data[o.Field])
				if c == 0 {
					continue
				}
				if o.Dir == Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.limit > 0 && len(out) > q.limit {
		out = out[:q.limit]
	}
	return out
}

func hasFields(d Document, orders []Order) bool {
	for _, o := range orders {
		if v, ok := d.Data[o.Field]; !ok || v == nil {
			return false
		}
	}
	return true
}

func (q *Query) matches(d Document) bool {
	for _, f := range q.filters {
		if !matchFilter(d.Data[f.Field], f) {
			return false
		}
	}
	return true
}

func matchFilter(v any, f Filter) bool {
	if f.Op == OpArrayContains {
		arr, ok := v.([]any)
		if !ok {
			return false
		}
		for _, e := range arr {
			if equalValues(e, f.Value) {
				return true
			}
		}
		return false
	}
	if v == nil {
		return false
	}
	if f.Op == OpEqual {
		return equalValues(v, f.Value)
	}
	if f.Op == OpNotEqual {
		return !equalValues(v, f.Value)
	}
	// Range comparisons only hold between values of the same type.
	if typeRank(v) != typeRank(f.Value) {
		return false
	}
	c := compareAny(v, f.Value)
	switch f.Op {
	case OpLess:
		return c < 0
	case OpLessEqual:
		return c <= 0
	case OpGreater:
		return c > 0
	case OpGreaterEqual:
		return c >= 0
	}
	return false
}

func equalValues(a, b any) bool {
	if typeRank(a) != typeRank(b) {
		return false
	}
	switch a.(type) {
	case float64, string, bool:
		return compareAny(a, b) == 0
	}
	return reflect.DeepEqual(a, b)
}

// typeRank orders values of different types: null < bool < number < string < other.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

func compareAny(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case string:
		return strings.Compare(x, b.(string))
	}
	return 0
}

// normalizeValue maps Go scalar types onto the JSON shapes stored documents use.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case time.Time:
		return Timestamp(x)
	}
	return v
}

// TimestampLayout is a fixed-width UTC layout, so stored timestamps order
// correctly as strings.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// Timestamp formats t for storage.
func Timestamp(t time.Time) string { return t.UTC().Format(TimestampLayout) }

// Matches reports whether d satisfies the filter, using the same semantics
// Execute applies inside the store.
func (f Filter) Matches(d Document) bool {
	f.Value = normalizeValue(f.Value)
	return matchFilter(d.Data[f.Field], f)
}
