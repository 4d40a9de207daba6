// Package api exposes the catalog, favorites and realtime services over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leonardcser/college-api/internal/apperr"
	"github.com/leonardcser/college-api/internal/catalog"
	"github.com/leonardcser/college-api/internal/favorites"
	"github.com/leonardcser/college-api/internal/metrics"
	"github.com/leonardcser/college-api/internal/realtime"
)

// Version is reported by GET /.
const Version = "1.0.0"

// Deps are the services behind the routes. Metrics may be nil.
type Deps struct {
	Catalog   *catalog.Service
	Favorites *favorites.Service
	Realtime  *realtime.Service
	Metrics   *metrics.Metrics
}

// Options tunes the middleware stack.
type Options struct {
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
}

type handlers struct {
	Deps
}

// NewRouter builds the gin engine with every route and middleware installed.
func NewRouter(deps Deps, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(deps.Metrics), CORS(opts.CORSOrigins),
		RateLimit(opts.RateLimit, opts.RateBurst, deps.Metrics), Errors())

	h := &handlers{Deps: deps}
	r.GET("/", h.index)
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	colleges := r.Group("/colleges")
	colleges.GET("", h.listColleges)
	colleges.GET("/:id", h.getCollege)
	colleges.GET("/stats/overview", h.overview)
	colleges.GET("/trending/real-time", h.trendingColleges)

	r.GET("/branches", h.branches)

	search := r.Group("/search")
	search.GET("/advanced", h.advancedSearch)
	search.GET("/suggestions", h.suggestions)
	search.GET("/stats", h.overview)

	cmp := r.Group("/comparison")
	cmp.POST("/compare", h.compare)
	cmp.GET("/recommendations/:collegeId", h.recommendations)
	cmp.GET("/trending", h.leaderboards)

	fav := r.Group("/favorites/:userId")
	fav.GET("", h.listFavorites)
	fav.POST("/:collegeId", h.addFavorite)
	fav.DELETE("/:collegeId", h.removeFavorite)
	fav.GET("/check/:collegeId", h.checkFavorite)

	rt := r.Group("/realtime")
	rt.GET("/rankings/:source", h.rankings)
	rt.GET("/admissions/deadlines", h.deadlines)
	rt.GET("/placements/:collegeName", h.placements)
	rt.GET("/fees/:collegeName", h.fees)
	rt.GET("/cutoffs/:collegeName", h.cutoffs)
	rt.GET("/trending", h.realtimeTrending)
	rt.GET("/news", h.news)
	rt.GET("/college/:collegeName", h.realtimeCollege)
	rt.GET("/dashboard", h.dashboard)
	rt.POST("/cache/clear", h.clearCache)
	rt.GET("/cache/stats", h.cacheStats)

	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperr.NotFound("no route for %s %s", c.Request.Method, c.Request.URL.Path))
	})
	return r
}

func (h *handlers) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "College API",
		"version": Version,
		"endpoints": gin.H{
			"colleges":   "/colleges",
			"branches":   "/branches",
			"search":     "/search",
			"comparison": "/comparison",
			"favorites":  "/favorites",
			"realtime":   "/realtime",
			"health":     "/health",
			"metrics":    "/metrics",
		},
	})
}

type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func data(c *gin.Context, v any) {
	c.JSON(http.StatusOK, gin.H{"data": v})
}

func message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func paged[T any](c *gin.Context, items any, p catalog.Page[T]) {
	c.JSON(http.StatusOK, gin.H{
		"data": items,
		"pagination": pagination{
			Page:       p.Page,
			Limit:      p.PageSize,
			Total:      p.TotalCount,
			TotalPages: p.TotalPages,
		},
	})
}

// fail records err for the Errors middleware.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}
