package handler

import (
	"net/http"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/internal/repository"
	"github.com/yohanna4/song-manager/internal/service"
	apperrors "github.com/yohanna4/song-manager/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Pagination is the pagination block of the song listing.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// ListSongsResponse is the song listing body.
type ListSongsResponse struct {
	Data       []*domain.Song `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// DeleteSongResponse confirms a deletion.
type DeleteSongResponse struct {
	Message string `json:"message"`
}

// SongHandler serves song CRUD.
type SongHandler struct {
	songs *service.SongService
}

// NewSongHandler creates a song handler.
func NewSongHandler(songs *service.SongService) *SongHandler {
	return &SongHandler{songs: songs}
}

// List handles GET /song
//
// Query: genre, artist, album (exact match), page, limit, and either
// sort=-field or sortField/sortOrder.
func (h *SongHandler) List(c *gin.Context) {
	page, err := h.songs.List(c.Request.Context(), service.SongQuery{
		Filter: repository.SongFilter{
			Genre:  c.Query("genre"),
			Artist: c.Query("artist"),
			Album:  c.Query("album"),
		},
		Page:      queryInt(c, "page"),
		Limit:     queryInt(c, "limit"),
		Sort:      c.Query("sort"),
		SortField: c.Query("sortField"),
		SortOrder: c.Query("sortOrder"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListSongsResponse{
		Data: page.Data,
		Pagination: Pagination{
			Total:      page.Total,
			Page:       page.Page,
			Limit:      page.Limit,
			TotalPages: page.TotalPages,
		},
	})
}

// Get handles GET /song/:id
func (h *SongHandler) Get(c *gin.Context) {
	song, err := h.songs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, song)
}

// Create handles POST /song
func (h *SongHandler) Create(c *gin.Context) {
	var in domain.SongInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, apperrors.ErrInvalidRequest.WithError(err))
		return
	}

	song, err := h.songs.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, song)
}

// Update handles PATCH and PUT /song/:id. Only fields present in the body
// change.
func (h *SongHandler) Update(c *gin.Context) {
	var patch domain.SongPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, apperrors.ErrInvalidRequest.WithError(err))
		return
	}

	song, err := h.songs.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, song)
}

// Delete handles DELETE /song/:id
func (h *SongHandler) Delete(c *gin.Context) {
	if err := h.songs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeleteSongResponse{Message: "Song deleted successfully"})
}
