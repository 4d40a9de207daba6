// Package realtime serves time-sensitive college data (rankings, admission
// calendars, placements, fees, cutoffs, news) through the cache-aside
// accessor.
package realtime

import (
	"context"

	"github.com/leonardcser/college-api/internal/catalog"
)

// DataProvider fetches fresh realtime data. Every call may block on I/O.
type DataProvider interface {
	Rankings(ctx context.Context, source string) (Rankings, error)
	AdmissionDeadlines(ctx context.Context) (Deadlines, error)
	Placements(ctx context.Context, college string) (Placements, error)
	Fees(ctx context.Context, college string) (Fees, error)
	Cutoffs(ctx context.Context, college string) (Cutoffs, error)
	Trending(ctx context.Context) (Trending, error)
	News(ctx context.Context) (News, error)
}

type RankingEntry struct {
	Name     string  `json:"name"`
	Rank     int     `json:"rank"`
	Score    float64 `json:"score,omitempty"`
	Category string  `json:"category,omitempty"`
	Year     int     `json:"year,omitempty"`
}

type Rankings struct {
	Source      string         `json:"source"`
	Year        int            `json:"year,omitempty"`
	LastUpdated string         `json:"lastUpdated"`
	Rankings    []RankingEntry `json:"rankings"`
}

// Deadlines maps exam name to milestone name to date.
type Deadlines struct {
	Year        int                          `json:"year"`
	LastUpdated string                       `json:"lastUpdated"`
	Deadlines   map[string]map[string]string `json:"deadlines"`
}

type Placements struct {
	Year                int      `json:"year"`
	College             string   `json:"college"`
	PlacementPercentage float64  `json:"placementPercentage,omitempty"`
	AveragePackage      float64  `json:"averagePackage"`
	HighestPackage      float64  `json:"highestPackage"`
	PlacementRating     float64  `json:"placementRating,omitempty"`
	TopRecruiters       []string `json:"topRecruiters"`
	LastUpdated         string   `json:"lastUpdated"`
}

// Fees maps course name to its annual fee.
type Fees struct {
	Year        int                `json:"year"`
	College     string             `json:"college"`
	Courses     map[string]float64 `json:"courses"`
	TotalFees   float64            `json:"totalFees,omitempty"`
	LastUpdated string             `json:"lastUpdated"`
}

// Cutoffs maps year to course to closing rank.
type Cutoffs struct {
	College     string                        `json:"college"`
	Trends      map[string]map[string]float64 `json:"trends"`
	LastUpdated string                        `json:"lastUpdated"`
}

type Trending struct {
	MostReviewed []string `json:"mostReviewed"`
	TopRated     []string `json:"topRated"`
	BestValue    []string `json:"bestValue"`
	Newest       []string `json:"newest"`
	LastUpdated  string   `json:"lastUpdated"`
}

type NewsItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Summary  string `json:"summary,omitempty"`
	Date     string `json:"date"`
	Source   string `json:"source,omitempty"`
	Category string `json:"category,omitempty"`
}

type News struct {
	News        []NewsItem `json:"news"`
	LastUpdated string     `json:"lastUpdated"`
}

// CollegeData aggregates the per-college feeds.
type CollegeData struct {
	College     string     `json:"college"`
	Placements  Placements `json:"placements"`
	Fees        Fees       `json:"fees"`
	Cutoffs     Cutoffs    `json:"cutoffs"`
	LastUpdated string     `json:"lastUpdated"`
}

type Dashboard struct {
	Rankings struct {
		NIRF Rankings `json:"nirf"`
		QS   Rankings `json:"qs"`
	} `json:"rankings"`
	Admissions  Deadlines `json:"admissions"`
	Trending    Trending  `json:"trending"`
	News        News      `json:"news"`
	LastUpdated string    `json:"lastUpdated"`
}

// Enrichment is realtime context attached to a catalog record.
type Enrichment struct {
	Rankings   map[string]int `json:"rankings,omitempty"`
	Placements *Placements    `json:"placements,omitempty"`
}

// Enriched pairs a college with its enrichment. The college is never
// modified; a nil Enrichment means enrichment failed or was skipped.
type Enriched struct {
	catalog.College
	Enrichment *Enrichment `json:"realTime,omitempty"`
}
