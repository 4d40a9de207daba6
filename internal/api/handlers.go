package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leonardcser/college-api/internal/apperr"
	"github.com/leonardcser/college-api/internal/catalog"
)

const (
	defaultTrendingLimit = 10
	defaultRecommend     = 5
)

func (h *handlers) enrich(c *gin.Context, colleges []catalog.College) any {
	if h.Realtime == nil {
		return colleges
	}
	return h.Realtime.EnrichAll(c.Request.Context(), colleges)
}

func (h *handlers) listColleges(c *gin.Context) {
	req, err := catalog.ParseListRequest(c.Request.URL.Query())
	if err != nil {
		fail(c, err)
		return
	}
	page, err := h.Catalog.Search(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	paged(c, h.enrich(c, page.Items), page)
}

func (h *handlers) getCollege(c *gin.Context) {
	college, err := h.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if h.Realtime == nil {
		data(c, college)
		return
	}
	data(c, h.Realtime.Enrich(c.Request.Context(), college))
}

func (h *handlers) overview(c *gin.Context) {
	o, err := h.Catalog.Overview(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	data(c, o)
}

func (h *handlers) trendingColleges(c *gin.Context) {
	limit, err := catalog.IntParam(c.Request.URL.Query(), "limit", defaultTrendingLimit)
	if err != nil {
		fail(c, err)
		return
	}
	colleges, err := h.Catalog.Trending(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	data(c, h.enrich(c, colleges))
}

func (h *handlers) branches(c *gin.Context) {
	b, err := h.Catalog.Branches(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	data(c, b)
}

func (h *handlers) advancedSearch(c *gin.Context) {
	req, err := catalog.ParseListRequest(c.Request.URL.Query())
	if err != nil {
		fail(c, err)
		return
	}
	page, err := h.Catalog.Search(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	paged(c, page.Items, page)
}

func (h *handlers) suggestions(c *gin.Context) {
	s, err := h.Catalog.Suggestions(c.Request.Context(), c.Query("query"))
	if err != nil {
		fail(c, err)
		return
	}
	data(c, s)
}

type compareRequest struct {
	CollegeIDs []string `json:"collegeIds" binding:"required"`
}

func (h *handlers) compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.KindInvalidArgument, "collegeIds is required", err))
		return
	}
	cmp, err := h.Catalog.Compare(c.Request.Context(), req.CollegeIDs)
	if err != nil {
		fail(c, err)
		return
	}
	data(c, cmp)
}

func (h *handlers) recommendations(c *gin.Context) {
	limit, err := catalog.IntParam(c.Request.URL.Query(), "limit", defaultRecommend)
	if err != nil {
		fail(c, err)
		return
	}
	recs, err := h.Catalog.Recommendations(c.Request.Context(), c.Param("collegeId"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	data(c, recs)
}

func (h *handlers) leaderboards(c *gin.Context) {
	limit, err := catalog.IntParam(c.Request.URL.Query(), "limit", defaultTrendingLimit)
	if err != nil {
		fail(c, err)
		return
	}
	lb, err := h.Catalog.Leaderboards(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	data(c, lb)
}

func (h *handlers) listFavorites(c *gin.Context) {
	list, err := h.Favorites.List(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	data(c, list)
}

func (h *handlers) addFavorite(c *gin.Context) {
	if _, err := h.Favorites.Add(c.Request.Context(), c.Param("userId"), c.Param("collegeId")); err != nil {
		fail(c, err)
		return
	}
	message(c, "College added to favorites")
}

func (h *handlers) removeFavorite(c *gin.Context) {
	if err := h.Favorites.Remove(c.Request.Context(), c.Param("userId"), c.Param("collegeId")); err != nil {
		fail(c, err)
		return
	}
	message(c, "College removed from favorites")
}

func (h *handlers) checkFavorite(c *gin.Context) {
	ok, err := h.Favorites.IsFavorite(c.Request.Context(), c.Param("userId"), c.Param("collegeId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isFavorited": ok})
}

func (h *handlers) rankings(c *gin.Context) {
	r, err := h.Realtime.Rankings(c.Request.Context(), c.Param("source"))
	respond(c, r, err)
}

func (h *handlers) deadlines(c *gin.Context) {
	d, err := h.Realtime.AdmissionDeadlines(c.Request.Context())
	respond(c, d, err)
}

func (h *handlers) placements(c *gin.Context) {
	p, err := h.Realtime.Placements(c.Request.Context(), c.Param("collegeName"))
	respond(c, p, err)
}

func (h *handlers) fees(c *gin.Context) {
	f, err := h.Realtime.Fees(c.Request.Context(), c.Param("collegeName"))
	respond(c, f, err)
}

func (h *handlers) cutoffs(c *gin.Context) {
	t, err := h.Realtime.Cutoffs(c.Request.Context(), c.Param("collegeName"))
	respond(c, t, err)
}

func (h *handlers) realtimeTrending(c *gin.Context) {
	t, err := h.Realtime.Trending(c.Request.Context())
	respond(c, t, err)
}

func (h *handlers) news(c *gin.Context) {
	n, err := h.Realtime.News(c.Request.Context())
	respond(c, n, err)
}

func (h *handlers) realtimeCollege(c *gin.Context) {
	d, err := h.Realtime.College(c.Request.Context(), c.Param("collegeName"))
	respond(c, d, err)
}

func (h *handlers) dashboard(c *gin.Context) {
	d, err := h.Realtime.Dashboard(c.Request.Context())
	respond(c, d, err)
}

func (h *handlers) clearCache(c *gin.Context) {
	h.Realtime.ClearCache()
	message(c, "Cache cleared successfully")
}

func (h *handlers) cacheStats(c *gin.Context) {
	data(c, h.Realtime.CacheStats())
}

func respond(c *gin.Context, v any, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	data(c, v)
}
