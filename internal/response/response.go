package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Envelope is the shape of every API response. Data and Error are mutually
// exclusive; Meta is always present.
type Envelope struct {
	Data       interface{} `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Meta        `json:"metadata"`
}

// ErrorBody carries the machine-readable code, a human message, and optional
// per-field validation details.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes page counts from a total row count.
func NewPagination(page, perPage, totalItems int) *Pagination {
	totalPages := 0
	if perPage > 0 {
		totalPages = (totalItems + perPage - 1) / perPage
	}
	return &Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// Meta carries the request ID and response timestamp for tracing.
type Meta struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// Success sends data with the given status code.
func Success(c *gin.Context, statusCode int, data interface{}) {
	write(c, statusCode, Envelope{Data: data}, false)
}

// SuccessWithPagination sends one page of a list plus its page descriptor.
func SuccessWithPagination(c *gin.Context, statusCode int, data interface{}, pagination *Pagination) {
	write(c, statusCode, Envelope{Data: data, Pagination: pagination}, false)
}

// Fail sends an error code with its canonical message.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	write(c, statusCode, Envelope{Error: &ErrorBody{Code: code, Message: GetMessage(code)}}, false)
}

// FailWithFields sends an error code together with per-field validation
// messages, keyed by JSON field name.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	write(c, statusCode, Envelope{Error: &ErrorBody{Code: code, Message: GetMessage(code), Fields: fields}}, false)
}

// AbortFail is Fail for middleware: it also stops the handler chain.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	write(c, statusCode, Envelope{Error: &ErrorBody{Code: code, Message: GetMessage(code)}}, true)
}

func write(c *gin.Context, statusCode int, env Envelope, abort bool) {
	env.Metadata = Meta{
		RequestID: RequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if abort {
		c.AbortWithStatusJSON(statusCode, env)
		return
	}
	c.JSON(statusCode, env)
}

// RequestID returns the request's trace ID, minting one if the middleware
// did not run (tests hit handlers directly).
func RequestID(c *gin.Context) string {
	if id := c.GetString(ContextKeyRequestID); id != "" {
		return id
	}
	return uuid.New().String()
}
