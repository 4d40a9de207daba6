package importer

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/leonardcser/college-api/internal/apperr"
	"github.com/leonardcser/college-api/internal/docstore"
	"github.com/leonardcser/college-api/internal/logger"
	"github.com/leonardcser/college-api/internal/realtime"
)

// RankingRow is one parsed table row.
type RankingRow struct {
	Rank     int
	Name     string
	Score    float64
	Category string
}

// columns holds the cell index of each known header, -1 when absent.
type columns struct {
	rank, name, score, category int
}

// ParseRankingsHTML extracts ranking rows from the first table in r that has
// rank and name cells. Header cells naming rank, name (or institute) and
// score locate the columns, preferring "name" over "institute"; without them
// the first three columns are used. Rows without a positive rank or a name are
// skipped.
func ParseRankingsHTML(r io.Reader) ([]RankingRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript").Remove()

	var rows []RankingRow
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		cols := headerColumns(table)
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := tr.Find("td")
			if cells.Length() == 0 {
				return
			}
			text := func(i int) string {
				if i < 0 || i >= cells.Length() {
					return ""
				}
				return strings.Join(strings.Fields(cells.Eq(i).Text()), " ")
			}
			rank := leadingInt(text(cols.rank))
			name := text(cols.name)
			if rank <= 0 || name == "" {
				return
			}
			score, _ := strconv.ParseFloat(text(cols.score), 64)
			rows = append(rows, RankingRow{Rank: rank, Name: name, Score: score, Category: text(cols.category)})
		})
		return len(rows) == 0
	})
	return rows, nil
}

func headerColumns(table *goquery.Selection) columns {
	cols := columns{rank: 0, name: 1, score: 2, category: -1}
	headers := table.Find("tr").First().Find("th")
	if headers.Length() == 0 {
		return cols
	}
	found := columns{rank: -1, name: -1, score: -1, category: -1}
	institute := -1
	headers.Each(func(i int, th *goquery.Selection) {
		h := strings.ToLower(strings.TrimSpace(th.Text()))
		switch {
		case strings.Contains(h, "rank") && found.rank < 0:
			found.rank = i
		case strings.Contains(h, "name") && found.name < 0:
			found.name = i
		case strings.Contains(h, "score") && found.score < 0:
			found.score = i
		case strings.Contains(h, "categor") && found.category < 0:
			found.category = i
		case strings.HasPrefix(h, "institut") && !strings.HasSuffix(h, "id") && institute < 0:
			institute = i
		}
	})
	if found.name < 0 {
		found.name = institute
	}
	if found.rank < 0 || found.name < 0 {
		return cols
	}
	return found
}

// leadingInt parses the digits at the start of s, ignoring a leading '#'.
// "12" and "#12" give 12, "12=" gives 12, "n/a" gives 0.
func leadingInt(s string) int {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

// ImportRankingsHTML parses an HTML ranking table and stores each row as
// rankings/<source>_<rank>.
func (im *Importer) ImportRankingsHTML(ctx context.Context, r io.Reader, source string, year int) (int, error) {
	if source == "" {
		return 0, apperr.InvalidArgument("ranking source is empty")
	}
	rows, err := ParseRankingsHTML(r)
	if err != nil {
		return 0, apperr.New(apperr.KindInvalidArgument, "parse rankings html", err)
	}
	if len(rows) == 0 {
		return 0, apperr.InvalidArgument("no ranking rows found")
	}
	if year == 0 {
		year = im.now().Year()
	}
	stamp := docstore.Timestamp(im.now())
	batch := im.store.Batch()
	for _, row := range rows {
		data := map[string]any{
			"source":      source,
			"type":        realtime.SourceLabel(source),
			"rank":        row.Rank,
			"name":        row.Name,
			"year":        year,
			"lastUpdated": stamp,
		}
		if row.Score != 0 {
			data["score"] = row.Score
		}
		if row.Category != "" {
			data["category"] = row.Category
		}
		batch.Set(realtime.RankingsCollection, fmt.Sprintf("%s_%d", source, row.Rank), data)
	}
	if err := batch.Commit(ctx); err != nil {
		return 0, apperr.Upstream("write rankings", err)
	}
	logger.Infof("imported %d %s rankings", len(rows), source)
	return len(rows), nil
}
