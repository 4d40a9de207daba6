package catalog

import (
	"context"
	"math"
	"strings"

	"github.com/leonardcser/college-api/internal/apperr"
	"github.com/leonardcser/college-api/internal/docstore"
)

const (
	MinCompare      = 2
	MaxCompare      = 4
	MaxSuggestions  = 10
	MinSuggestQuery = 2
)

// Service serves the catalog read operations.
type Service struct {
	store    docstore.Store
	composer *Composer
}

func NewService(store docstore.Store) *Service {
	return &Service{store: store, composer: NewComposer(store)}
}

// Search runs a composed list query.
func (s *Service) Search(ctx context.Context, req QueryRequest) (Page[College], error) {
	return s.composer.Run(ctx, req)
}

// Get returns one college or a NotFound error.
func (s *Service) Get(ctx context.Context, id string) (College, error) {
	if id == "" {
		return College{}, apperr.InvalidArgument("college id is empty")
	}
	d, ok, err := s.store.Get(ctx, Collection, id)
	if err != nil {
		return College{}, storeError("get college", err)
	}
	if !ok {
		return College{}, apperr.NotFound("college %q not found", id)
	}
	return FromDocument(d)
}

func (s *Service) all(ctx context.Context) ([]College, error) {
	return s.run(ctx, s.store.Query(Collection))
}

func (s *Service) run(ctx context.Context, q *docstore.Query) ([]College, error) {
	docs, err := q.Execute(ctx)
	if err != nil {
		return nil, storeError("query colleges", err)
	}
	return fromDocuments(docs)
}

// Range is the spread of one numeric field.
type Range struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

// RatingStats summarises college ratings.
type RatingStats struct {
	Average      float64        `json:"average"`
	Distribution map[string]int `json:"distribution"`
}

// Overview is the catalog-wide statistics document.
type Overview struct {
	TotalColleges int            `json:"totalColleges"`
	ByType        map[string]int `json:"byType"`
	ByCity        map[string]int `json:"byCity"`
	ByState       map[string]int `json:"byState"`
	FeeRange      Range          `json:"feeRange"`
	RankRange     Range          `json:"rankRange"`
	RatingStats   RatingStats    `json:"ratingStats"`
}

// Overview computes statistics over every college. With no colleges every
// range and average is 0.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	colleges, err := s.all(ctx)
	if err != nil {
		return Overview{}, err
	}
	return Summarize(colleges), nil
}

// Summarize computes the overview of colleges.
func Summarize(colleges []College) Overview {
	o := Overview{
		TotalColleges: len(colleges),
		ByType:        map[string]int{},
		ByCity:        map[string]int{},
		ByState:       map[string]int{},
		FeeRange:      spread(colleges, func(c College) float64 { return c.Fees }),
		RankRange:     spread(colleges, func(c College) float64 { return c.Rank }),
		RatingStats: RatingStats{
			Average: round1(average(colleges, func(c College) float64 { return c.Rating })),
			Distribution: map[string]int{
				"4.5+": 0, "4.0-4.5": 0, "3.5-4.0": 0, "3.0-3.5": 0, "<3.0": 0,
			},
		},
	}
	for _, c := range colleges {
		o.ByType[orUnknown(c.Type)]++
		o.ByCity[orUnknown(c.City)]++
		o.ByState[orUnknown(c.State)]++
		o.RatingStats.Distribution[ratingBucket(c.Rating)]++
	}
	return o
}

func ratingBucket(r float64) string {
	switch {
	case r >= 4.5:
		return "4.5+"
	case r >= 4.0:
		return "4.0-4.5"
	case r >= 3.5:
		return "3.5-4.0"
	case r >= 3.0:
		return "3.0-3.5"
	default:
		return "<3.0"
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func spread(colleges []College, field func(College) float64) Range {
	if len(colleges) == 0 {
		return Range{}
	}
	r := Range{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, c := range colleges {
		v := field(c)
		r.Min = math.Min(r.Min, v)
		r.Max = math.Max(r.Max, v)
	}
	r.Average = math.Round(average(colleges, field))
	return r
}

func average(colleges []College, field func(College) float64) float64 {
	if len(colleges) == 0 {
		return 0
	}
	var sum float64
	for _, c := range colleges {
		sum += field(c)
	}
	return sum / float64(len(colleges))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// Branches lists distinct course names in first-seen order.
func (s *Service) Branches(ctx context.Context) ([]string, error) {
	colleges, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []string{}
	for _, c := range colleges {
		for _, course := range c.Courses {
			if !seen[course] {
				seen[course] = true
				out = append(out, course)
			}
		}
	}
	return out, nil
}

// Suggestion is one autocomplete hit.
type Suggestion struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	ID    string `json:"id,omitempty"`
}

// Suggestions returns up to MaxSuggestions college, city and course names
// containing query. Queries shorter than MinSuggestQuery yield nothing and
// make no store call.
func (s *Service) Suggestions(ctx context.Context, query string) ([]Suggestion, error) {
	out := []Suggestion{}
	if len([]rune(query)) < MinSuggestQuery {
		return out, nil
	}
	colleges, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	seen := map[string]bool{}
	add := func(kind, value, id string) {
		if value == "" || seen[value] || !strings.Contains(strings.ToLower(value), needle) {
			return
		}
		seen[value] = true
		out = append(out, Suggestion{Type: kind, Value: value, ID: id})
	}
	for _, c := range colleges {
		add("college", c.Name, c.ID)
		add("city", c.City, "")
		for _, course := range c.Courses {
			add("course", course, "")
		}
	}
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out, nil
}

// Trending returns the most recently updated colleges.
func (s *Service) Trending(ctx context.Context, limit int) ([]College, error) {
	if limit <= 0 {
		return nil, apperr.InvalidArgument("limit must be positive, got %d", limit)
	}
	return s.run(ctx, s.store.Query(Collection).OrderBy("lastUpdated", docstore.Desc).Limit(limit))
}

// Metric is one college's value in a comparison column.
type Metric struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Comparison sets two to four colleges side by side.
type Comparison struct {
	Colleges []College `json:"colleges"`
	Summary  struct {
		TotalColleges int     `json:"totalColleges"`
		AverageFees   float64 `json:"averageFees"`
		AverageRank   float64 `json:"averageRank"`
		AverageRating float64 `json:"averageRating"`
		FeeRange      Range   `json:"feeRange"`
		RankRange     Range   `json:"rankRange"`
	} `json:"summary"`
	Columns map[string][]Metric `json:"comparison"`
}

// Compare loads ids, skipping unknown ones. Between MinCompare and MaxCompare
// ids are accepted, and at least MinCompare must resolve.
func (s *Service) Compare(ctx context.Context, ids []string) (Comparison, error) {
	if len(ids) < MinCompare {
		return Comparison{}, apperr.InvalidArgument("at least %d college ids are required", MinCompare)
	}
	if len(ids) > MaxCompare {
		return Comparison{}, apperr.InvalidArgument("at most %d colleges can be compared", MaxCompare)
	}
	var colleges []College
	for _, id := range ids {
		c, err := s.Get(ctx, id)
		if apperr.IsKind(err, apperr.KindNotFound) || apperr.IsKind(err, apperr.KindInvalidArgument) {
			continue
		}
		if err != nil {
			return Comparison{}, err
		}
		colleges = append(colleges, c)
	}
	if len(colleges) < MinCompare {
		return Comparison{}, apperr.InvalidArgument("at least %d valid colleges are required, found %d", MinCompare, len(colleges))
	}

	var cmp Comparison
	cmp.Colleges = colleges
	cmp.Summary.TotalColleges = len(colleges)
	cmp.Summary.FeeRange = spread(colleges, func(c College) float64 { return c.Fees })
	cmp.Summary.RankRange = spread(colleges, func(c College) float64 { return c.Rank })
	cmp.Summary.AverageFees = cmp.Summary.FeeRange.Average
	cmp.Summary.AverageRank = cmp.Summary.RankRange.Average
	cmp.Summary.AverageRating = round1(average(colleges, func(c College) float64 { return c.Rating }))

	column := func(value func(College) any) []Metric {
		out := make([]Metric, len(colleges))
		for i, c := range colleges {
			out[i] = Metric{ID: c.ID, Name: c.Name, Value: value(c)}
		}
		return out
	}
	cmp.Columns = map[string][]Metric{
		"fees":    column(func(c College) any { return c.Fees }),
		"ranks":   column(func(c College) any { return c.Rank }),
		"ratings": column(func(c College) any { return c.Rating }),
		"types":   column(func(c College) any { return c.Type }),
		"cities":  column(func(c College) any { return c.City }),
	}
	return cmp, nil
}

// Recommendations suggests up to limit colleges similar to id: same type by
// rank, then same city by rank, then everything else by rank.
func (s *Service) Recommendations(ctx context.Context, id string, limit int) ([]College, error) {
	if limit <= 0 {
		return nil, apperr.InvalidArgument("limit must be positive, got %d", limit)
	}
	base, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := []College{}
	taken := map[string]bool{id: true}
	fill := func(q *docstore.Query) error {
		if len(out) >= limit {
			return nil
		}
		colleges, err := s.run(ctx, q.OrderBy("rank", docstore.Asc))
		if err != nil {
			return err
		}
		for _, c := range colleges {
			if len(out) >= limit {
				break
			}
			if !taken[c.ID] {
				taken[c.ID] = true
				out = append(out, c)
			}
		}
		return nil
	}
	q := s.store.Query(Collection)
	steps := []*docstore.Query{q.WhereEquals("type", base.Type), q.WhereEquals("city", base.City), q}
	for _, step := range steps {
		if err := fill(step); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Leaderboards groups the top colleges by rank, rating and fees.
type Leaderboards struct {
	TopRanked     []College `json:"topRanked"`
	TopRated      []College `json:"topRated"`
	MostExpensive []College `json:"mostExpensive"`
}

func (s *Service) Leaderboards(ctx context.Context, limit int) (Leaderboards, error) {
	if limit <= 0 {
		return Leaderboards{}, apperr.InvalidArgument("limit must be positive, got %d", limit)
	}
	var lb Leaderboards
	boards := []struct {
		dst   *[]College
		field string
		dir   docstore.Direction
	}{
		{&lb.TopRanked, "rank", docstore.Asc},
		{&lb.TopRated, "rating", docstore.Desc},
		{&lb.MostExpensive, "fees", docstore.Desc},
	}
	for _, b := range boards {
		colleges, err := s.run(ctx, s.store.Query(Collection).OrderBy(b.field, b.dir).Limit(limit))
		if err != nil {
			return Leaderboards{}, err
		}
		*b.dst = colleges
	}
	return lb, nil
}
