// Package favorites keeps each user's saved colleges in the subcollection
// users/<uid>/favorites, keyed by college id.
package favorites

import (
	"context"
	"time"

	"github.com/leonardcser/college-api/internal/apperr"
	"github.com/leonardcser/college-api/internal/catalog"
	"github.com/leonardcser/college-api/internal/docstore"
)

// Favorite is the stored marker document.
type Favorite struct {
	CollegeID   string `json:"collegeId"`
	CollegeName string `json:"collegeName"`
	AddedAt     string `json:"addedAt"`
}

type Service struct {
	store docstore.Store
	now   func() time.Time
}

func New(store docstore.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Collection is the favorites collection of userID.
func Collection(userID string) string {
	return "users/" + userID + "/favorites"
}

// List returns the user's favourite colleges. Favourites whose college no
// longer exists are skipped.
func (s *Service) List(ctx context.Context, userID string) ([]catalog.College, error) {
	if userID == "" {
		return nil, apperr.InvalidArgument("user id is empty")
	}
	favs, err := s.store.Query(Collection(userID)).Execute(ctx)
	if err != nil {
		return nil, apperr.Upstream("list favorites", err)
	}
	out := []catalog.College{}
	for _, f := range favs {
		d, ok, err := s.store.Get(ctx, catalog.Collection, f.ID)
		if err != nil {
			return nil, apperr.Upstream("load favorite college", err)
		}
		if !ok {
			continue
		}
		c, err := catalog.FromDocument(d)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Add marks collegeID as a favourite of userID. The college must exist and
// must not already be a favourite.
func (s *Service) Add(ctx context.Context, userID, collegeID string) (Favorite, error) {
	if userID == "" || collegeID == "" {
		return Favorite{}, apperr.InvalidArgument("user id and college id are required")
	}
	college, ok, err := s.store.Get(ctx, catalog.Collection, collegeID)
	if err != nil {
		return Favorite{}, apperr.Upstream("load college", err)
	}
	if !ok {
		return Favorite{}, apperr.NotFound("college %q not found", collegeID)
	}
	exists, err := s.IsFavorite(ctx, userID, collegeID)
	if err != nil {
		return Favorite{}, err
	}
	if exists {
		return Favorite{}, apperr.Conflict("college %q already in favorites", collegeID)
	}
	fav := Favorite{
		CollegeID:   collegeID,
		CollegeName: college.String("name"),
		AddedAt:     docstore.Timestamp(s.now()),
	}
	err = s.store.Set(ctx, Collection(userID), collegeID, map[string]any{
		"addedAt":     fav.AddedAt,
		"collegeName": fav.CollegeName,
	})
	if err != nil {
		return Favorite{}, apperr.Upstream("save favorite", err)
	}
	return fav, nil
}

// Remove deletes the favourite. Removing an absent favourite succeeds.
func (s *Service) Remove(ctx context.Context, userID, collegeID string) error {
	if userID == "" || collegeID == "" {
		return apperr.InvalidArgument("user id and college id are required")
	}
	if err := s.store.Delete(ctx, Collection(userID), collegeID); err != nil {
		return apperr.Upstream("remove favorite", err)
	}
	return nil
}

func (s *Service) IsFavorite(ctx context.Context, userID, collegeID string) (bool, error) {
	_, ok, err := s.store.Get(ctx, Collection(userID), collegeID)
	if err != nil {
		return false, apperr.Upstream("check favorite", err)
	}
	return ok, nil
}
