package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/yukikurage/task-tracker/internal/errors"
)

// multipartSlack covers boundaries and part headers around an uploaded file.
const multipartSlack = 64 << 10

// LimitUploadBody caps the request body of upload routes at maxFileBytes plus multipart framing.
func LimitUploadBody(maxFileBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxFileBytes > 0 {
			if c.Request.ContentLength > maxFileBytes+multipartSlack {
				apierrors.PayloadTooLarge(c, "")
				c.Abort()
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFileBytes+multipartSlack)
		}
		c.Next()
	}
}
