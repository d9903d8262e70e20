package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKeyRequestID is the Gin context key under which the request ID is
// stored for the duration of one request.
const ContextKeyRequestID = "request_id"

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with a trace ID. A caller-supplied
// X-Request-ID is honored so IDs survive proxies; otherwise a fresh UUID is
// minted. The ID is echoed back in the response header.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
