package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/leonardcser/college-api/internal/apperr"
	"github.com/leonardcser/college-api/internal/docstore"
)

// Collection is the docstore collection holding college records.
const Collection = "colleges"

// College is a catalog record. The catalog filters and sorts it but does not
// own its schema; unknown fields are ignored.
type College struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	City                 string   `json:"city,omitempty"`
	State                string   `json:"state,omitempty"`
	Type                 string   `json:"type,omitempty"`
	Ownership            string   `json:"ownership,omitempty"`
	EstablishedYear      int      `json:"establishedYear,omitempty"`
	Rank                 float64  `json:"rank,omitempty"`
	Rating               float64  `json:"rating,omitempty"`
	Fees                 float64  `json:"fees,omitempty"`
	TotalFees            float64  `json:"totalFees,omitempty"`
	Courses              []string `json:"courses,omitempty"`
	Facilities           []string `json:"facilities,omitempty"`
	MedianSalary         float64  `json:"medianSalary,omitempty"`
	HighestSalary        float64  `json:"highestSalary,omitempty"`
	PlacementRating      float64  `json:"placementRating,omitempty"`
	InfrastructureRating float64  `json:"infrastructureRating,omitempty"`
	Reviews              int      `json:"reviews,omitempty"`
	NIRFRank             int      `json:"nirfRank,omitempty"`
	Website              string   `json:"website,omitempty"`
	Phone                string   `json:"phone,omitempty"`
	Email                string   `json:"email,omitempty"`
	Address              string   `json:"address,omitempty"`
	ImageURL             string   `json:"imageUrl,omitempty"`
	LastUpdated          string   `json:"lastUpdated,omitempty"`
}

// NormalizeRecord rewrites numeric fields given as text into numbers, in
// place. The store compares raw values, so text there would sort and filter
// out of place. Blank text drops the field; other non-numeric text is
// InvalidArgument.
func NormalizeRecord(data map[string]any) error {
	for field := range numericFields {
		s, ok := data[field].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			delete(data, field)
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return apperr.InvalidArgument("%s %q is not a number", field, s)
		}
		data[field] = f
	}
	return nil
}

// FromDocument decodes a college record. Ratings stored as text by older
// writers are accepted; new writes go through NormalizeRecord.
func FromDocument(d docstore.Document) (College, error) {
	var c College
	data := d.Data
	if s, ok := data["rating"].(string); ok {
		data = copyWith(data, "rating", parseLooseFloat(s))
	}
	if err := (docstore.Document{Data: data}).Decode(&c); err != nil {
		return College{}, err
	}
	c.ID = d.ID
	return c, nil
}

func fromDocuments(docs []docstore.Document) ([]College, error) {
	out := make([]College, 0, len(docs))
	for _, d := range docs {
		c, err := FromDocument(d)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func copyWith(data map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	out[key] = value
	return out
}
