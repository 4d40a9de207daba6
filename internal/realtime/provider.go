package realtime

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/leonardcser/college-api/internal/apperr"
	"github.com/leonardcser/college-api/internal/catalog"
	"github.com/leonardcser/college-api/internal/docstore"
)

// Collections read by CatalogProvider.
const (
	RankingsCollection   = "rankings"
	NewsCollection       = "news"
	AdmissionsCollection = "admissions"
)

// Ranking sources.
const (
	SourceNIRF = "nirf"
	SourceQS   = "qs"
)

var sourceLabels = map[string]string{
	SourceNIRF: "NIRF",
	SourceQS:   "QS World University Rankings",
}

// KnownSource reports whether source is a ranking source served by the API.
func KnownSource(source string) bool {
	_, ok := sourceLabels[source]
	return ok
}

// SourceLabel returns the display name of a ranking source.
func SourceLabel(source string) string {
	if l, ok := sourceLabels[source]; ok {
		return l
	}
	return strings.ToUpper(source)
}

const (
	trendingSize = 5
	newsLimit    = 20
)

// CatalogProvider derives realtime data from the docstore: imported ranking
// tables, news and admission documents, and figures stored on each college
// record. Results depend only on stored data and the clock.
type CatalogProvider struct {
	store docstore.Store
	now   func() time.Time
}

func NewCatalogProvider(store docstore.Store) *CatalogProvider {
	return &CatalogProvider{store: store, now: time.Now}
}

func (p *CatalogProvider) stamp() string { return docstore.Timestamp(p.now()) }

// Rankings lists the imported table for source in rank order. A source with
// nothing imported yields an empty table.
func (p *CatalogProvider) Rankings(ctx context.Context, source string) (Rankings, error) {
	docs, err := p.store.Query(RankingsCollection).
		WhereEquals("source", source).
		OrderBy("rank", docstore.Asc).
		Execute(ctx)
	if err != nil {
		return Rankings{}, apperr.Upstream("query rankings", err)
	}
	out := Rankings{Source: SourceLabel(source), LastUpdated: p.stamp(), Rankings: []RankingEntry{}}
	for _, d := range docs {
		var e RankingEntry
		if err := d.Decode(&e); err != nil {
			return Rankings{}, err
		}
		if e.Year > out.Year {
			out.Year = e.Year
		}
		out.Rankings = append(out.Rankings, e)
	}
	return out, nil
}

// AdmissionDeadlines reads admissions/<year> and falls back to the standard
// national exam calendar for the current year.
func (p *CatalogProvider) AdmissionDeadlines(ctx context.Context) (Deadlines, error) {
	year := p.now().Year()
	out := Deadlines{Year: year, LastUpdated: p.stamp()}
	d, ok, err := p.store.Get(ctx, AdmissionsCollection, fmt.Sprint(year))
	if err != nil {
		return Deadlines{}, apperr.Upstream("load admission deadlines", err)
	}
	if ok {
		if err := d.Decode(&out); err != nil {
			return Deadlines{}, err
		}
		out.Year = year
		if out.Deadlines != nil {
			return out, nil
		}
	}
	out.Deadlines = defaultCalendar(year)
	return out, nil
}

func defaultCalendar(year int) map[string]map[string]string {
	day := func(y int, md string) string { return fmt.Sprintf("%d-%s", y, md) }
	return map[string]map[string]string{
		"JEE Main": {
			"Registration Start": day(year-1, "12-01"),
			"Registration End":   day(year, "01-15"),
			"Exam Date":          day(year, "04-15"),
			"Result Date":        day(year, "05-30"),
		},
		"JEE Advanced": {
			"Registration Start": day(year, "05-01"),
			"Registration End":   day(year, "05-15"),
			"Exam Date":          day(year, "06-02"),
			"Result Date":        day(year, "06-15"),
		},
		"GATE": {
			"Registration Start": day(year-1, "08-01"),
			"Registration End":   day(year-1, "09-30"),
			"Exam Date":          day(year, "02-03"),
			"Result Date":        day(year, "03-15"),
		},
		"CAT": {
			"Registration Start": day(year, "08-01"),
			"Registration End":   day(year, "09-20"),
			"Exam Date":          day(year, "11-25"),
			"Result Date":        day(year+1, "01-05"),
		},
	}
}

// college finds the record whose name equals name.
func (p *CatalogProvider) college(ctx context.Context, name string) (docstore.Document, catalog.College, error) {
	if name == "" {
		return docstore.Document{}, catalog.College{}, apperr.InvalidArgument("college name is empty")
	}
	docs, err := p.store.Query(catalog.Collection).WhereEquals("name", name).Limit(1).Execute(ctx)
	if err != nil {
		return docstore.Document{}, catalog.College{}, apperr.Upstream("find college", err)
	}
	if len(docs) == 0 {
		return docstore.Document{}, catalog.College{}, apperr.NotFound("college %q not found", name)
	}
	c, err := catalog.FromDocument(docs[0])
	if err != nil {
		return docstore.Document{}, catalog.College{}, err
	}
	return docs[0], c, nil
}

func (p *CatalogProvider) Placements(ctx context.Context, name string) (Placements, error) {
	d, c, err := p.college(ctx, name)
	if err != nil {
		return Placements{}, err
	}
	pct, _ := d.Float("placementPercentage")
	return Placements{
		Year:                p.now().Year(),
		College:             c.Name,
		PlacementPercentage: pct,
		AveragePackage:      c.MedianSalary,
		HighestPackage:      c.HighestSalary,
		PlacementRating:     c.PlacementRating,
		TopRecruiters:       d.Strings("recruiters"),
		LastUpdated:         p.stamp(),
	}, nil
}

// Fees reports the stored per-course fee table, or the college's annual fee
// for each of its courses when none is stored.
func (p *CatalogProvider) Fees(ctx context.Context, name string) (Fees, error) {
	d, c, err := p.college(ctx, name)
	if err != nil {
		return Fees{}, err
	}
	var stored struct {
		CourseFees map[string]float64 `json:"courseFees"`
	}
	if err := d.Decode(&stored); err != nil {
		return Fees{}, err
	}
	courses := stored.CourseFees
	if len(courses) == 0 {
		courses = make(map[string]float64, len(c.Courses))
		for _, course := range c.Courses {
			courses[course] = c.Fees
		}
	}
	return Fees{
		Year:        p.now().Year(),
		College:     c.Name,
		Courses:     courses,
		TotalFees:   c.TotalFees,
		LastUpdated: p.stamp(),
	}, nil
}

func (p *CatalogProvider) Cutoffs(ctx context.Context, name string) (Cutoffs, error) {
	d, c, err := p.college(ctx, name)
	if err != nil {
		return Cutoffs{}, err
	}
	var stored struct {
		Cutoffs map[string]map[string]float64 `json:"cutoffs"`
	}
	if err := d.Decode(&stored); err != nil {
		return Cutoffs{}, err
	}
	if stored.Cutoffs == nil {
		stored.Cutoffs = map[string]map[string]float64{}
	}
	return Cutoffs{College: c.Name, Trends: stored.Cutoffs, LastUpdated: p.stamp()}, nil
}

// Trending ranks college names by reviews, rating, rating per fee and
// founding year.
func (p *CatalogProvider) Trending(ctx context.Context) (Trending, error) {
	docs, err := p.store.Query(catalog.Collection).Execute(ctx)
	if err != nil {
		return Trending{}, apperr.Upstream("query colleges", err)
	}
	colleges := make([]catalog.College, 0, len(docs))
	for _, d := range docs {
		c, err := catalog.FromDocument(d)
		if err != nil {
			return Trending{}, err
		}
		colleges = append(colleges, c)
	}
	value := func(c catalog.College) float64 {
		if c.Fees <= 0 {
			return 0
		}
		return c.Rating / c.Fees
	}
	return Trending{
		MostReviewed: topNames(colleges, func(a, b catalog.College) bool { return a.Reviews > b.Reviews }),
		TopRated:     topNames(colleges, func(a, b catalog.College) bool { return a.Rating > b.Rating }),
		BestValue:    topNames(colleges, func(a, b catalog.College) bool { return value(a) > value(b) }),
		Newest:       topNames(colleges, func(a, b catalog.College) bool { return a.EstablishedYear > b.EstablishedYear }),
		LastUpdated:  p.stamp(),
	}, nil
}

// topNames sorts a copy of colleges by less, breaking ties by name.
func topNames(colleges []catalog.College, less func(a, b catalog.College) bool) []string {
	sorted := append([]catalog.College(nil), colleges...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if less(sorted[i], sorted[j]) {
			return true
		}
		if less(sorted[j], sorted[i]) {
			return false
		}
		return sorted[i].Name < sorted[j].Name
	})
	n := min(trendingSize, len(sorted))
	out := make([]string, n)
	for i := range out {
		out[i] = sorted[i].Name
	}
	return out
}

// News lists the latest stored news items, newest first.
func (p *CatalogProvider) News(ctx context.Context) (News, error) {
	docs, err := p.store.Query(NewsCollection).OrderBy("date", docstore.Desc).Limit(newsLimit).Execute(ctx)
	if err != nil {
		return News{}, apperr.Upstream("query news", err)
	}
	out := News{News: make([]NewsItem, 0, len(docs)), LastUpdated: p.stamp()}
	for _, d := range docs {
		var n NewsItem
		if err := d.Decode(&n); err != nil {
			return News{}, err
		}
		n.ID = d.ID
		out.News = append(out.News, n)
	}
	return out, nil
}
