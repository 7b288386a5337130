package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey  = "response_meta"
	requestStartKey  = "request_started"
	processingTimeMS = "processing_time_ms"
)

// WithResponseMeta initialises response metadata storage on the request
// context and remembers when the request started.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetMeta records one metadata entry for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	ensureMeta(c)[key] = value
}

// ExtractMeta returns the metadata recorded so far plus the elapsed
// processing time. It is nil when WithResponseMeta did not run and nothing
// was recorded.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, _ := c.Get(responseMetaKey)
	typed, _ := meta.(map[string]interface{})
	if started, ok := c.Get(requestStartKey); ok {
		if t, ok := started.(time.Time); ok {
			if typed == nil {
				typed = ensureMeta(c)
			}
			typed[processingTimeMS] = time.Since(t).Milliseconds()
		}
	}
	if len(typed) == 0 {
		return nil
	}
	return typed
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
