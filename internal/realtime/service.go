package realtime

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leonardcser/college-api/internal/apperr"
	"github.com/leonardcser/college-api/internal/cache"
	"github.com/leonardcser/college-api/internal/catalog"
	"github.com/leonardcser/college-api/internal/docstore"
	"github.com/leonardcser/college-api/internal/logger"
)

// DefaultTTL is how long realtime data is served from the cache.
const DefaultTTL = 30 * time.Minute

// Options configures a Service.
type Options struct {
	// TTL is the freshness window for every feed. Zero means DefaultTTL.
	TTL time.Duration
	// Now stamps aggregates; nil means time.Now.
	Now func() time.Time
}

// Service serves provider data through a shared cache accessor. Failed
// fetches are returned to the caller and never cached.
type Service struct {
	provider DataProvider
	cache    *cache.Accessor
	ttl      time.Duration
	now      func() time.Time
}

func NewService(provider DataProvider, accessor *cache.Accessor, opts Options) *Service {
	s := &Service{provider: provider, cache: accessor, ttl: opts.TTL, now: opts.Now}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Rankings returns the table for source, NotFound for anything but the
// known sources so user input cannot mint cache keys.
func (s *Service) Rankings(ctx context.Context, source string) (Rankings, error) {
	if !KnownSource(source) {
		return Rankings{}, apperr.NotFound("unknown ranking source %q", source)
	}
	return cache.Get(ctx, s.cache, "rankings-"+source, s.ttl, func(ctx context.Context) (Rankings, error) {
		return s.provider.Rankings(ctx, source)
	})
}

func (s *Service) AdmissionDeadlines(ctx context.Context) (Deadlines, error) {
	return cache.Get(ctx, s.cache, "admission-deadlines", s.ttl, s.provider.AdmissionDeadlines)
}

func (s *Service) Placements(ctx context.Context, college string) (Placements, error) {
	return cache.Get(ctx, s.cache, "placement-"+college, s.ttl, func(ctx context.Context) (Placements, error) {
		return s.provider.Placements(ctx, college)
	})
}

func (s *Service) Fees(ctx context.Context, college string) (Fees, error) {
	return cache.Get(ctx, s.cache, "fees-"+college, s.ttl, func(ctx context.Context) (Fees, error) {
		return s.provider.Fees(ctx, college)
	})
}

func (s *Service) Cutoffs(ctx context.Context, college string) (Cutoffs, error) {
	return cache.Get(ctx, s.cache, "cutoff-"+college, s.ttl, func(ctx context.Context) (Cutoffs, error) {
		return s.provider.Cutoffs(ctx, college)
	})
}

func (s *Service) Trending(ctx context.Context) (Trending, error) {
	return cache.Get(ctx, s.cache, "trending", s.ttl, s.provider.Trending)
}

func (s *Service) News(ctx context.Context) (News, error) {
	return cache.Get(ctx, s.cache, "news", s.ttl, s.provider.News)
}

// College fetches the placement, fee and cutoff feeds of one college
// concurrently. Any failure fails the aggregate.
func (s *Service) College(ctx context.Context, name string) (CollegeData, error) {
	out := CollegeData{College: name}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { out.Placements, err = s.Placements(gctx, name); return })
	g.Go(func() (err error) { out.Fees, err = s.Fees(gctx, name); return })
	g.Go(func() (err error) { out.Cutoffs, err = s.Cutoffs(gctx, name); return })
	if err := g.Wait(); err != nil {
		return CollegeData{}, err
	}
	out.LastUpdated = docstore.Timestamp(s.now())
	return out, nil
}

// Dashboard fetches every catalog-wide feed concurrently.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { d.Rankings.NIRF, err = s.Rankings(gctx, SourceNIRF); return })
	g.Go(func() (err error) { d.Rankings.QS, err = s.Rankings(gctx, SourceQS); return })
	g.Go(func() (err error) { d.Admissions, err = s.AdmissionDeadlines(gctx); return })
	g.Go(func() (err error) { d.Trending, err = s.Trending(gctx); return })
	g.Go(func() (err error) { d.News, err = s.News(gctx); return })
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	d.LastUpdated = docstore.Timestamp(s.now())
	return d, nil
}

// Enrich attaches ranking positions and placement figures to c. On failure
// the college is returned with a nil Enrichment.
func (s *Service) Enrich(ctx context.Context, c catalog.College) Enriched {
	e, err := s.enrichment(ctx, c)
	if err != nil {
		logger.Warnf("enrich %s: %v", c.ID, err)
		return Enriched{College: c}
	}
	return Enriched{College: c, Enrichment: e}
}

// EnrichAll enriches every college, preserving order.
func (s *Service) EnrichAll(ctx context.Context, colleges []catalog.College) []Enriched {
	out := make([]Enriched, len(colleges))
	var g errgroup.Group
	g.SetLimit(8)
	for i, c := range colleges {
		g.Go(func() error {
			out[i] = s.Enrich(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) enrichment(ctx context.Context, c catalog.College) (*Enrichment, error) {
	e := &Enrichment{Rankings: map[string]int{}}
	for _, source := range []string{SourceNIRF, SourceQS} {
		r, err := s.Rankings(ctx, source)
		if err != nil {
			return nil, err
		}
		for _, entry := range r.Rankings {
			if entry.Name == c.Name {
				e.Rankings[source] = entry.Rank
				break
			}
		}
	}
	p, err := s.Placements(ctx, c.Name)
	if err != nil {
		return nil, err
	}
	e.Placements = &p
	return e, nil
}

// ClearCache drops every cached feed.
func (s *Service) ClearCache() {
	s.cache.Clear()
	logger.Infof("realtime cache cleared")
}

func (s *Service) CacheStats() cache.Stats { return s.cache.Stats() }
