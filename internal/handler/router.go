package handler

import (
	"context"
	"net/http"

	"github.com/yohanna4/song-manager/internal/middleware"
	"github.com/yohanna4/song-manager/pkg/logger"
	"github.com/yohanna4/song-manager/pkg/telemetry"

	"github.com/gin-gonic/gin"
)

// Banner is the body of GET /.
const Banner = "Song-Manager API is running..."

// Song route prefixes. Both serve the same routes.
const (
	LegacyPrefix = "/song"
	APIPrefix    = "/api/v1/songs"
)

// RouterConfig collects everything the HTTP surface needs.
type RouterConfig struct {
	Log            logger.Logger
	ServiceName    string
	AllowedOrigins []string
	// RateLimiter is optional.
	RateLimiter *RateLimit
	// Telemetry enables tracing and the /metrics endpoint when set.
	Telemetry *telemetry.Provider

	Songs  *SongHandler
	Stats  *StatsHandler
	Events *EventsHandler // nil disables /events
	Health func(ctx context.Context) error
}

// RateLimit configures per-client rate limiting.
type RateLimit struct {
	PerSecond float64
	Burst     int
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(cfg.Log),
		middleware.Logging(cfg.Log),
		middleware.CORS(cfg.AllowedOrigins),
	)

	if cfg.Telemetry != nil && cfg.Telemetry.Enabled() {
		metrics, err := middleware.Metrics(cfg.Telemetry)
		if err != nil {
			return nil, err
		}
		r.Use(middleware.Tracing(cfg.ServiceName), metrics)
		r.GET("/metrics", gin.WrapH(cfg.Telemetry.MetricsHandler()))
	}
	if cfg.RateLimiter != nil {
		r.Use(middleware.NewRateLimiter(cfg.RateLimiter.PerSecond, cfg.RateLimiter.Burst).Limit())
	}

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, Banner)
	})
	r.GET("/health", func(c *gin.Context) {
		if cfg.Health != nil {
			if err := cfg.Health(c.Request.Context()); err != nil {
				respondError(c, err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Events != nil {
		r.GET("/events", cfg.Events.Stream)
		r.GET("/events/stats", cfg.Events.Stats)
	}

	guard := middleware.OriginGuard(cfg.AllowedOrigins)
	for _, prefix := range []string{LegacyPrefix, APIPrefix} {
		registerSongRoutes(r.Group(prefix, guard), cfg.Songs, cfg.Stats)
	}
	return r, nil
}

func registerSongRoutes(g *gin.RouterGroup, songs *SongHandler, stats *StatsHandler) {
	g.GET("/stats", stats.GetStats)
	g.GET("/stats/export", stats.ExportStats)

	g.GET("/artists", stats.ListArtists)
	g.GET("/songs-per-artist", stats.ListArtists)
	g.GET("/albums", stats.ListAlbums)
	g.GET("/album", stats.ListAlbums)
	g.GET("/songs-per-album", stats.ListAlbums)
	g.GET("/genres", stats.ListGenres)
	g.GET("/genre", stats.ListGenres)

	g.GET("", songs.List)
	g.POST("", songs.Create)
	g.GET("/:id", songs.Get)
	g.PATCH("/:id", songs.Update)
	g.PUT("/:id", songs.Update)
	g.DELETE("/:id", songs.Delete)
}
