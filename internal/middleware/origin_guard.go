package middleware

import (
	"net/http"
	"slices"

	apperrors "github.com/yohanna4/song-manager/pkg/errors"

	"github.com/gin-gonic/gin"
)

// OriginGuard rejects state-changing requests whose Origin header is
// missing or not in allowed. Reads are never checked. An empty allow-list
// permits everything.
func OriginGuard(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(allowed) == 0 || !isWrite(c.Request.Method) {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin == "" || !slices.Contains(allowed, origin) {
			AbortWithError(c, apperrors.ErrOriginForbidden)
			return
		}
		c.Next()
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}
