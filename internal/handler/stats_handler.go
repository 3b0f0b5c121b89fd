package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/yohanna4/song-manager/internal/paging"
	"github.com/yohanna4/song-manager/internal/service"

	"github.com/gin-gonic/gin"
)

// StatsHandler serves the statistics snapshot, its export and the group
// views.
type StatsHandler struct {
	statsSvc  *service.StatsService
	exportSvc *service.ExportService
}

// NewStatsHandler creates a statistics handler.
func NewStatsHandler(statsSvc *service.StatsService, exportSvc *service.ExportService) *StatsHandler {
	return &StatsHandler{
		statsSvc:  statsSvc,
		exportSvc: exportSvc,
	}
}

// GetStats handles GET /song/stats
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.statsSvc.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportStats handles GET /song/stats/export and streams an xlsx workbook.
func (h *StatsHandler) ExportStats(c *gin.Context) {
	data, err := h.exportSvc.ExportStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("song_stats_%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, service.XLSXContentType, data)
}

// ListArtists handles GET /song/artists and /song/songs-per-artist
func (h *StatsHandler) ListArtists(c *gin.Context) {
	groupView(c, "totalArtists", h.statsSvc.ListArtists)
}

// ListAlbums handles GET /song/albums, /song/album and /song/songs-per-album
func (h *StatsHandler) ListAlbums(c *gin.Context) {
	groupView(c, "totalAlbums", h.statsSvc.ListAlbums)
}

// ListGenres handles GET /song/genres and /song/genre
func (h *StatsHandler) ListGenres(c *gin.Context) {
	groupView(c, "totalGenres", h.statsSvc.ListGenres)
}

// groupView renders one page of a group view. The body carries total under
// both "total" and the per-entity key older clients read.
func groupView[T any](c *gin.Context, totalKey string, list func(context.Context, paging.Params) (*paging.Page[T], error)) {
	page, err := list(c.Request.Context(), paging.Params{
		Page:      queryInt(c, "page"),
		Limit:     queryInt(c, "limit"),
		SortField: c.Query("sortField"),
		SortOrder: c.Query("sortOrder"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":       page.Page,
		"limit":      page.Limit,
		"total":      page.Total,
		totalKey:     page.Total,
		"totalPages": page.TotalPages,
		"data":       page.Data,
	})
}
