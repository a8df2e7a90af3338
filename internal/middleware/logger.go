package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jhcramos/urbix-api/internal/logger"
)

// LoggerKey is the context key for the request-scoped logger.
const LoggerKey = "logger"

// quietPaths are polled by load balancers and scrapers. Successful hits
// are logged at debug level.
var quietPaths = map[string]bool{
	"/health":       true,
	"/health/ready": true,
	"/metrics":      true,
}

// Logger stores a request-scoped logger on the context and writes one
// completion line per request. The line carries the site recorded by
// SetSite so a slow or degraded report can be traced to its parcel.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.WithRequestID(GetRequestID(c))
		c.Set(LoggerKey, reqLog)

		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
			"bytes":       c.Writer.Size(),
			"ip":          c.ClientIP(),
		}
		if route := c.FullPath(); route != "" && route != c.Request.URL.Path {
			fields["route"] = route
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields["query"] = q
		}
		if site, ok := GetSite(c); ok {
			for k, v := range site.fields() {
				fields[k] = v
			}
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= 500:
			var err error
			if last := c.Errors.Last(); last != nil {
				err = last.Err
			}
			reqLog.Error("Request failed", err, fields)
		case status >= 400:
			reqLog.Warn("Request rejected", fields)
		case quietPaths[c.Request.URL.Path]:
			reqLog.Debug("Request completed", fields)
		default:
			reqLog.Info("Request completed", fields)
		}
	}
}

// GetLogger returns the request-scoped logger, or nil outside the middleware.
func GetLogger(c *gin.Context) *logger.Logger {
	if v, ok := c.Get(LoggerKey); ok {
		if l, ok := v.(*logger.Logger); ok {
			return l
		}
	}
	return nil
}
