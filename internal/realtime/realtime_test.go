package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leonardcser/college-api/internal/apperr"
	"github.com/leonardcser/college-api/internal/cache"
	"github.com/leonardcser/college-api/internal/catalog"
	"github.com/leonardcser/college-api/internal/docstore"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeProvider struct {
	mu        sync.Mutex
	calls     map[string]int
	failNext  error
	placement Placements
}

func (f *fakeProvider) record(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[key]++
	if err := f.failNext; err != nil {
		f.failNext = nil
		return err
	}
	return nil
}

func (f *fakeProvider) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeProvider) Rankings(_ context.Context, source string) (Rankings, error) {
	if err := f.record("rankings-" + source); err != nil {
		return Rankings{}, err
	}
	return Rankings{Source: SourceLabel(source), Rankings: []RankingEntry{{Name: "IIT Bombay", Rank: 3}}}, nil
}

func (f *fakeProvider) AdmissionDeadlines(context.Context) (Deadlines, error) {
	return Deadlines{Year: 2024}, f.record("admission-deadlines")
}

func (f *fakeProvider) Placements(_ context.Context, college string) (Placements, error) {
	if err := f.record("placement-" + college); err != nil {
		return Placements{}, err
	}
	p := f.placement
	p.College = college
	return p, nil
}

func (f *fakeProvider) Fees(_ context.Context, college string) (Fees, error) {
	return Fees{College: college}, f.record("fees-" + college)
}

func (f *fakeProvider) Cutoffs(_ context.Context, college string) (Cutoffs, error) {
	return Cutoffs{College: college}, f.record("cutoff-" + college)
}

func (f *fakeProvider) Trending(context.Context) (Trending, error) {
	return Trending{}, f.record("trending")
}

func (f *fakeProvider) News(context.Context) (News, error) {
	return News{}, f.record("news")
}

func newTestService(p DataProvider) *Service {
	return NewService(p, cache.New(cache.Options{Now: clock}), Options{TTL: time.Hour, Now: clock})
}

func TestServiceCachesFeeds(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{}
	s := newTestService(p)

	for i := 0; i < 3; i++ {
		if _, err := s.Rankings(ctx, SourceNIRF); err != nil {
			t.Fatal(err)
		}
		if _, err := s.College(ctx, "IIT Bombay"); err != nil {
			t.Fatal(err)
		}
	}
	for _, key := range []string{"rankings-nirf", "placement-IIT Bombay", "fees-IIT Bombay", "cutoff-IIT Bombay"} {
		if got := p.count(key); got != 1 {
			t.Errorf("%s fetched %d times", key, got)
		}
	}

	stats := s.CacheStats()
	if stats.Entries != 4 {
		t.Fatalf("stats: %+v", stats)
	}
	s.ClearCache()
	if _, err := s.Rankings(ctx, SourceNIRF); err != nil {
		t.Fatal(err)
	}
	if p.count("rankings-nirf") != 2 {
		t.Fatal("clear did not force a refetch")
	}
}

func TestServiceRejectsUnknownRankingSource(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{}
	s := newTestService(p)
	for _, source := range []string{"times", "", "NIRF", "rankings-nirf"} {
		if _, err := s.Rankings(ctx, source); !apperr.IsKind(err, apperr.KindNotFound) {
			t.Errorf("%q: expected not found, got %v", source, err)
		}
	}
	if n := s.CacheStats().Entries; n != 0 {
		t.Fatalf("unknown sources created %d cache entries", n)
	}
	if len(p.calls) != 0 {
		t.Fatalf("provider called for unknown sources: %v", p.calls)
	}
}

func TestServiceDoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("feed down")
	p := &fakeProvider{failNext: boom}
	s := newTestService(p)

	if _, err := s.News(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected feed error, got %v", err)
	}
	if s.CacheStats().Entries != 0 {
		t.Fatal("failure was cached")
	}
	if _, err := s.News(ctx); err != nil {
		t.Fatal(err)
	}
	if p.count("news") != 2 {
		t.Fatalf("news fetched %d times", p.count("news"))
	}
}

func TestDashboard(t *testing.T) {
	s := newTestService(&fakeProvider{})
	d, err := s.Dashboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Rankings.NIRF.Source != "NIRF" || d.Rankings.QS.Source != "QS World University Rankings" || d.Admissions.Year != 2024 {
		t.Fatalf("got %+v", d)
	}
	if d.LastUpdated != docstore.Timestamp(fixedNow) {
		t.Fatalf("lastUpdated %q", d.LastUpdated)
	}
}

func TestEnrich(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{placement: Placements{AveragePackage: 21}}
	s := newTestService(p)
	c := catalog.College{ID: "iitb", Name: "IIT Bombay", Rank: 1}

	e := s.Enrich(ctx, c)
	if e.Enrichment == nil || e.Enrichment.Rankings[SourceNIRF] != 3 || e.Enrichment.Placements.AveragePackage != 21 {
		t.Fatalf("got %+v", e.Enrichment)
	}
	if e.College.Rank != 1 || e.College.Name != "IIT Bombay" {
		t.Fatalf("college changed: %+v", e.College)
	}

	s.ClearCache()
	p.failNext = errors.New("rankings down")
	failed := s.Enrich(ctx, c)
	if failed.Enrichment != nil || failed.College.ID != "iitb" {
		t.Fatalf("failed enrichment: %+v", failed)
	}
}

func seedProviderStore(t *testing.T) *docstore.Memory {
	t.Helper()
	store := docstore.NewMemory()
	b := store.Batch()
	b.Set(catalog.Collection, "iitb", map[string]any{
		"name": "IIT Bombay", "rating": 4.8, "fees": 200000, "reviews": 900, "establishedYear": 1958,
		"courses": []string{"CS", "ME"}, "medianSalary": 2100000, "recruiters": []string{"Google"},
		"cutoffs": map[string]any{"2023": map[string]any{"CS": 66}},
	})
	b.Set(catalog.Collection, "vjti", map[string]any{
		"name": "VJTI", "rating": 4.1, "fees": 80000, "reviews": 300, "establishedYear": 1887,
		"courses": []string{"ME"}, "courseFees": map[string]any{"ME": 85000},
	})
	b.Set(RankingsCollection, "nirf_2", map[string]any{"source": "nirf", "rank": 2, "name": "VJTI", "year": 2024})
	b.Set(RankingsCollection, "nirf_1", map[string]any{"source": "nirf", "rank": 1, "name": "IIT Bombay", "year": 2024})
	b.Set(RankingsCollection, "qs_1", map[string]any{"source": "qs", "rank": 150, "name": "IIT Bombay", "year": 2023})
	b.Set(NewsCollection, "n1", map[string]any{"title": "Older", "date": "2024-01-01"})
	b.Set(NewsCollection, "n2", map[string]any{"title": "Newer", "date": "2024-02-01"})
	if err := b.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestCatalogProvider(t *testing.T) {
	ctx := context.Background()
	p := NewCatalogProvider(seedProviderStore(t))
	p.now = clock

	r, err := p.Rankings(ctx, SourceNIRF)
	if err != nil {
		t.Fatal(err)
	}
	if r.Source != "NIRF" || r.Year != 2024 || len(r.Rankings) != 2 || r.Rankings[0].Name != "IIT Bombay" {
		t.Fatalf("rankings: %+v", r)
	}
	if empty, err := p.Rankings(ctx, "the"); err != nil || len(empty.Rankings) != 0 {
		t.Fatalf("unknown source: %+v %v", empty, err)
	}

	pl, err := p.Placements(ctx, "IIT Bombay")
	if err != nil || pl.AveragePackage != 2100000 || len(pl.TopRecruiters) != 1 || pl.Year != 2024 {
		t.Fatalf("placements: %+v %v", pl, err)
	}
	if _, err := p.Placements(ctx, "Nowhere"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	fees, err := p.Fees(ctx, "IIT Bombay")
	if err != nil || fees.Courses["CS"] != 200000 {
		t.Fatalf("derived fees: %+v %v", fees, err)
	}
	fees, err = p.Fees(ctx, "VJTI")
	if err != nil || fees.Courses["ME"] != 85000 {
		t.Fatalf("stored fees: %+v %v", fees, err)
	}

	cut, err := p.Cutoffs(ctx, "IIT Bombay")
	if err != nil || cut.Trends["2023"]["CS"] != 66 {
		t.Fatalf("cutoffs: %+v %v", cut, err)
	}

	tr, err := p.Trending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tr.MostReviewed[0] != "IIT Bombay" || tr.BestValue[0] != "VJTI" || tr.Newest[0] != "IIT Bombay" {
		t.Fatalf("trending: %+v", tr)
	}

	news, err := p.News(ctx)
	if err != nil || len(news.News) != 2 || news.News[0].Title != "Newer" || news.News[0].ID != "n2" {
		t.Fatalf("news: %+v %v", news, err)
	}

	dl, err := p.AdmissionDeadlines(ctx)
	if err != nil || dl.Year != 2024 || dl.Deadlines["JEE Main"]["Exam Date"] != "2024-04-15" {
		t.Fatalf("deadlines: %+v %v", dl, err)
	}
}
