package authgin

import (
	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/authmodule/trace"
)

// Trace attaches the inbound X-Trace-ID, or a fresh one, to the request
// context and echoes it on the response.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := c.GetHeader(trace.Header); id != "" {
			ctx = trace.WithTraceID(ctx, id)
		}
		ctx, id := trace.Ensure(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(trace.Header, id)
		c.Next()
	}
}
