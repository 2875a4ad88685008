package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var staticHeaders = map[string]string{
	"Access-Control-Allow-Headers":  "Authorization, Content-Type, X-Requested-With, X-Request-ID",
	"Access-Control-Allow-Methods":  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	"Access-Control-Expose-Headers": "Content-Disposition, X-Request-ID",
	"Access-Control-Max-Age":        "600",
}

// New grants cross-origin access to the listed origins, or to any origin when the list is
// empty. Report downloads need Content-Disposition exposed to read the file name.
func New(allowedOrigins []string) gin.HandlerFunc {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = normalize(origin); origin != "" {
			origins[origin] = true
		}
	}
	allowAny := len(origins) == 0

	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Add("Vary", "Origin")
		for key, value := range staticHeaders {
			header.Set(key, value)
		}

		switch origin := c.GetHeader("Origin"); {
		case origin != "" && (allowAny || origins[normalize(origin)]):
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
		case origin == "" && allowAny:
			header.Set("Access-Control-Allow-Origin", "*")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
