package middleware

import (
	"net/http"
	"strings"

	"intake-chat/internal/services"
	"intake-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware resolves the caller's identity from a bearer token and
// stores it on the request context for handlers downstream.
func AuthMiddleware(service *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		identity, err := service.ResolveIdentity(c.Request.Context(), services.Credentials{Token: token})
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		ctx := services.WithUserContext(c.Request.Context(), identity.UserID, identity.IsAnonymous)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
