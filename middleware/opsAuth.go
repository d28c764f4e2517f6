package middleware

import (
	"net/http"
	"strings"

	"skywatch/utils"

	"github.com/gin-gonic/gin"
)

// OpsAuthMiddleware guards the operations endpoints. Callers present a
// Bearer JWT minted by utils.GenerateOpsToken; the subject identifies the
// dashboard or on-call tool making the request.
func OpsAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		subject, err := utils.ExtractSubjectFromToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set("opsSubject", subject)
		c.Next()
	}
}
