package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/csamarket/pkg/utils"
)

// UserIDHeader lo rellena el gateway de identidad tras autenticar la petición.
const UserIDHeader = "X-User-ID"

const userIDKey = "userID"

// RequireUser corta con 401 las peticiones sin usuario autenticado.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			utils.SendUnauthorized(c, "Authentication required")
			c.Abort()
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID devuelve el usuario fijado por RequireUser.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
