package middleware

import (
	apperrors "github.com/yohanna4/song-manager/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ErrorBody renders err as the API error body:
//
//	{"error": message, "code": code, "details": ..., "request_id": id}
//
// Uncoded errors are reported as INTERNAL_ERROR without leaking their text.
func ErrorBody(c *gin.Context, err error) (int, gin.H) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.ErrInternal
	}

	body := gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	if id := GetRequestID(c); id != "" {
		body["request_id"] = id
	}
	return appErr.HTTPStatus, body
}

// AbortWithError writes the error body and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	status, body := ErrorBody(c, err)
	c.AbortWithStatusJSON(status, body)
}
