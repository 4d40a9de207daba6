package catalog

import (
	"context"
	"testing"

	"github.com/leonardcser/college-api/internal/apperr"
	"github.com/leonardcser/college-api/internal/docstore"
)

func newSeededService(t *testing.T) (*Service, *docstore.Memory) {
	t.Helper()
	store := docstore.NewMemory()
	seedColleges(t, store)
	return NewService(store), store
}

func TestGet(t *testing.T) {
	svc, _ := newSeededService(t)
	c, err := svc.Get(context.Background(), "iitd")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "IIT Delhi" || c.Rating != 4.7 {
		t.Fatalf("got %+v", c)
	}
	if _, err := svc.Get(context.Background(), "missing"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestOverview(t *testing.T) {
	svc, _ := newSeededService(t)
	o, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if o.TotalColleges != 5 || o.ByType["Engineering"] != 3 || o.ByCity["Delhi"] != 2 || o.ByState["Karnataka"] != 1 {
		t.Fatalf("counts: %+v", o)
	}
	if o.FeeRange.Min != 5000 || o.FeeRange.Max != 300000 || o.FeeRange.Average != 164000 {
		t.Fatalf("fee range: %+v", o.FeeRange)
	}
	if o.RankRange.Average != 10 {
		t.Fatalf("rank average: %v", o.RankRange.Average)
	}
	// (4.8+4.7+4.9+4.1+3.2)/5 = 4.34
	if o.RatingStats.Average != 4.3 {
		t.Fatalf("rating average: %v", o.RatingStats.Average)
	}
	d := o.RatingStats.Distribution
	if d["4.5+"] != 3 || d["4.0-4.5"] != 1 || d["3.0-3.5"] != 1 || d["<3.0"] != 0 {
		t.Fatalf("distribution: %v", d)
	}
}

func TestOverviewOfNothingIsZero(t *testing.T) {
	o, err := NewService(docstore.NewMemory()).Overview(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if o.TotalColleges != 0 || o.FeeRange != (Range{}) || o.RankRange != (Range{}) || o.RatingStats.Average != 0 {
		t.Fatalf("got %+v", o)
	}
}

func TestBranchesAreDistinct(t *testing.T) {
	svc, _ := newSeededService(t)
	branches, err := svc.Branches(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, b := range branches {
		if seen[b] {
			t.Fatalf("duplicate branch %q in %v", b, branches)
		}
		seen[b] = true
	}
	if len(branches) != 6 {
		t.Fatalf("got %v", branches)
	}
}

func TestSuggestions(t *testing.T) {
	svc, store := newSeededService(t)
	ctx := context.Background()

	short, err := svc.Suggestions(ctx, "d")
	if err != nil || len(short) != 0 {
		t.Fatalf("short query: %v %v", short, err)
	}
	if store.Executions() != 0 {
		t.Fatal("short query reached the store")
	}

	got, err := svc.Suggestions(ctx, "del")
	if err != nil {
		t.Fatal(err)
	}
	values := map[string]string{}
	for _, s := range got {
		if _, dup := values[s.Value]; dup {
			t.Fatalf("duplicate suggestion %q", s.Value)
		}
		values[s.Value] = s.Type
	}
	if values["IIT Delhi"] != "college" || values["AIIMS Delhi"] != "college" || values["Delhi"] != "city" {
		t.Fatalf("got %+v", got)
	}
}

func TestTrending(t *testing.T) {
	svc, _ := newSeededService(t)
	got, err := svc.Trending(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if ids := collegeIDs(got); !sameIDs(ids, []string{"aiims", "iitb"}) {
		t.Fatalf("got %v", ids)
	}
}

func TestCompare(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	cmp, err := svc.Compare(ctx, []string{"iitb", "missing", "vjti"})
	if err != nil {
		t.Fatal(err)
	}
	if cmp.Summary.TotalColleges != 2 || cmp.Summary.AverageFees != 152500 || cmp.Summary.FeeRange.Min != 85000 {
		t.Fatalf("summary: %+v", cmp.Summary)
	}
	if len(cmp.Columns["ratings"]) != 2 || cmp.Columns["cities"][1].Value != "Mumbai" {
		t.Fatalf("columns: %+v", cmp.Columns)
	}

	bad := [][]string{{"iitb"}, {"a", "b", "c", "d", "e"}, {"iitb", "missing"}}
	for _, ids := range bad {
		if _, err := svc.Compare(ctx, ids); !apperr.IsKind(err, apperr.KindInvalidArgument) {
			t.Errorf("%v: expected InvalidArgument, got %v", ids, err)
		}
	}
}

func TestRecommendations(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	got, err := svc.Recommendations(ctx, "iitb", 3)
	if err != nil {
		t.Fatal(err)
	}
	// Same type first (iitd, vjti), then same city (none left), then by rank.
	if ids := collegeIDs(got); !sameIDs(ids, []string{"iitd", "vjti", "aiims"}) {
		t.Fatalf("got %v", ids)
	}
	if _, err := svc.Recommendations(ctx, "missing", 3); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestLeaderboards(t *testing.T) {
	svc, _ := newSeededService(t)
	lb, err := svc.Leaderboards(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if lb.TopRanked[0].ID != "iitb" || lb.MostExpensive[0].ID != "nlsiu" || len(lb.TopRated) != 1 {
		t.Fatalf("got %+v", lb)
	}
}
