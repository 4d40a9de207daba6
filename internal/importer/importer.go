// Package importer loads catalog data into the docstore: college records and
// news from JSON, ranking tables from HTML, and the derived statistics
// document.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/leonardcser/college-api/internal/apperr"
	"github.com/leonardcser/college-api/internal/catalog"
	"github.com/leonardcser/college-api/internal/docstore"
	"github.com/leonardcser/college-api/internal/logger"
	"github.com/leonardcser/college-api/internal/realtime"
)

// Statistics document location.
const (
	StatisticsCollection = "statistics"
	StatisticsID         = "overview"
)

type Importer struct {
	store docstore.Store
	now   func() time.Time
}

func New(store docstore.Store) *Importer {
	return &Importer{store: store, now: time.Now}
}

// ImportColleges reads a JSON array of college objects and writes them in one
// batch keyed by their "id" field, stamping lastUpdated. Numeric fields given
// as text are stored as numbers. Every record must carry an id and valid
// numbers; otherwise nothing is written.
func (im *Importer) ImportColleges(ctx context.Context, r io.Reader) (int, error) {
	var records []map[string]any
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, apperr.New(apperr.KindInvalidArgument, "decode colleges", err)
	}
	stamp := docstore.Timestamp(im.now())
	batch := im.store.Batch()
	for i, rec := range records {
		id, _ := rec["id"].(string)
		if id == "" {
			return 0, apperr.InvalidArgument("college %d has no id", i)
		}
		if err := catalog.NormalizeRecord(rec); err != nil {
			return 0, apperr.New(apperr.KindInvalidArgument, fmt.Sprintf("college %d (%s)", i, id), err)
		}
		delete(rec, "id")
		rec["lastUpdated"] = stamp
		batch.Set(catalog.Collection, id, rec)
	}
	if err := batch.Commit(ctx); err != nil {
		return 0, apperr.Upstream("write colleges", err)
	}
	logger.Infof("imported %d colleges", len(records))
	return len(records), nil
}

// ImportNews reads a JSON array of news items keyed by "id".
func (im *Importer) ImportNews(ctx context.Context, r io.Reader) (int, error) {
	var items []realtime.NewsItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return 0, apperr.New(apperr.KindInvalidArgument, "decode news", err)
	}
	batch := im.store.Batch()
	for i, n := range items {
		if n.ID == "" || n.Title == "" {
			return 0, apperr.InvalidArgument("news item %d needs an id and a title", i)
		}
		batch.Set(realtime.NewsCollection, n.ID, map[string]any{
			"title":    n.Title,
			"summary":  n.Summary,
			"date":     n.Date,
			"source":   n.Source,
			"category": n.Category,
		})
	}
	if err := batch.Commit(ctx); err != nil {
		return 0, apperr.Upstream("write news", err)
	}
	logger.Infof("imported %d news items", len(items))
	return len(items), nil
}

// GenerateStatistics summarizes every college into statistics/overview and
// returns the stored summary.
func (im *Importer) GenerateStatistics(ctx context.Context) (catalog.Overview, error) {
	o, err := catalog.NewService(im.store).Overview(ctx)
	if err != nil {
		return catalog.Overview{}, err
	}
	doc, err := toMap(o)
	if err != nil {
		return catalog.Overview{}, err
	}
	doc["lastUpdated"] = docstore.Timestamp(im.now())
	if err := im.store.Set(ctx, StatisticsCollection, StatisticsID, doc); err != nil {
		return catalog.Overview{}, apperr.Upstream("write statistics", err)
	}
	logger.Infof("statistics generated for %d colleges", o.TotalColleges)
	return o, nil
}

func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
