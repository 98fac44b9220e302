package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/talentflow/ats-offer-api/internal/models"
)

// Actor captures the requesting client's IP and user agent onto the request
// context so audit entries can carry non-repudiation metadata.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := models.ActorMetadata{
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		}
		c.Request = c.Request.WithContext(models.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}
