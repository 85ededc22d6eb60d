package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

// ErrorLogger logs the errors handlers attached with c.Error. Client
// errors are logged at debug; everything else at error.
func ErrorLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			event := log.ZL.Error()
			if appErr, ok := apperrors.As(e.Err); ok && appErr.StatusCode() < 500 {
				event = log.ZL.Debug()
			}
			event.
				Err(e.Err).
				Str("request_id", c.GetString(ContextRequestID)).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("Request error")
		}
	}
}
