package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey      = "response_meta"
	responseMetaStartKey = "response_meta_start"
)

// WithResponseMeta stamps the request start time on the context. Handlers for
// aggregate endpoints (enrollment stats, import results) read it back through
// ExtractMeta to report processing time in the envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaStartKey, time.Now())
		c.Next()
	}
}

// ExtractMeta returns the metadata map for the request, computing
// processing_time_ms at read time so it is populated before the handler
// serializes the response. Returns nil when the middleware is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	value, exists := c.Get(responseMetaStartKey)
	if !exists {
		return nil
	}
	start, ok := value.(time.Time)
	if !ok {
		return nil
	}
	meta := ensureMeta(c)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if value, exists := c.Get(responseMetaKey); exists {
		if typed, ok := value.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
