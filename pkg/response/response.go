package response

import (
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-diary-api/internal/models"
	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

// Envelope is the body of every JSON response. Exactly one of Data and Error is set.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON writes data with optional pagination and at most one meta map.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	body := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 {
		body.Meta = meta[0]
	}
	noStore(c)
	c.JSON(status, body)
}

func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
	c.Writer.WriteHeaderNow()
}

// Error renders err as an error envelope. 5xx causes are attached to the context for the access log.
func Error(c *gin.Context, err error) {
	typed := appErrors.FromError(err)
	if typed.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	noStore(c)
	c.JSON(typed.Status, Envelope{Error: typed})
}

// Attachment streams body as a download named filename.
func Attachment(c *gin.Context, filename, contentType string, size int64, body io.Reader) {
	noStore(c)
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	c.DataFromReader(http.StatusOK, size, contentType, body, map[string]string{"Content-Disposition": disposition})
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
