package middleware

import (
	"fmt"
	"runtime/debug"

	apperrors "github.com/yohanna4/song-manager/pkg/errors"
	"github.com/yohanna4/song-manager/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500 INTERNAL_ERROR response.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(
					logger.String("request_id", GetRequestID(c)),
					logger.String("panic", fmt.Sprintf("%v", r)),
					logger.String("stack", string(debug.Stack())),
				).Error("Panic recovered")

				AbortWithError(c, apperrors.ErrInternal)
			}
		}()

		c.Next()
	}
}
