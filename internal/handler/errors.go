package handler

import (
	"strconv"

	"github.com/yohanna4/song-manager/internal/middleware"

	"github.com/gin-gonic/gin"
)

// respondError renders err as the API error body. The error is also
// attached to the gin context so the access log records it.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := middleware.ErrorBody(c, err)
	c.JSON(status, body)
}

// queryInt reads an integer query parameter. Missing or malformed values
// read as 0 and are normalised to defaults downstream.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
