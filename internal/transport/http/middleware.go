package transporthttp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"papertrade/internal/store"
	"papertrade/internal/types"
)

const userKey = "authUser"

// authRequired resolves the bearer token to a user and stores it on the
// context. Token issuance lives outside this service.
func authRequired(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		user, err := st.UserByToken(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) types.User {
	v, _ := c.Get(userKey)
	u, _ := v.(types.User)
	return u
}
