package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"nutriai/internal/diet"
)

const userKey = "auth.user"

// RequireUser rejects requests without a valid session token with 401 and
// otherwise makes the user available through CurrentUser.
func (g *Gateway) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			if cookie, err := c.Cookie(g.cookieName); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		user, err := g.tokens.Verify(tokenString)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Debug().Err(err).Msg("rejected session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}

		SetUser(c, user)
		c.Next()
	}
}

// SetUser attaches user to the request.
func SetUser(c *gin.Context, user *diet.AuthenticatedUser) {
	c.Set(userKey, user)
	ctx := zerolog.Ctx(c.Request.Context()).With().Str("user_id", user.ID).Logger().WithContext(c.Request.Context())
	c.Request = c.Request.WithContext(ctx)
}

// CurrentUser returns the user attached by RequireUser, or nil.
func CurrentUser(c *gin.Context) *diet.AuthenticatedUser {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*diet.AuthenticatedUser)
	return user
}

func bearerToken(header string) string {
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
