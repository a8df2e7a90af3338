package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/jhcramos/urbix-api/internal/logger"
)

// Recovery turns a handler panic into a 500 with the standard error body.
// When the handler already started writing, the response is cut short
// instead. The panic is attached to c.Errors so the completion log line
// carries it next to the site.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}

			err := fmt.Errorf("panic: %v", r)
			_ = c.Error(err)

			l := GetLogger(c)
			if l == nil {
				l = log
			}
			fields := map[string]interface{}{
				"method":  c.Request.Method,
				"path":    c.Request.URL.Path,
				"stack":   string(debug.Stack()),
				"written": c.Writer.Written(),
			}
			if site, ok := GetSite(c); ok {
				for k, v := range site.fields() {
					fields[k] = v
				}
			}
			l.Error("Panic recovered", err, fields)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":       "INTERNAL_SERVER_ERROR",
					"message":    "An unexpected error occurred",
					"request_id": GetRequestID(c),
				},
			})
		}()

		c.Next()
	}
}
