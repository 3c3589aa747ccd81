package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/telehealth-api/internal/handler"
	"github.com/jwalitptl/telehealth-api/internal/model"
)

const ContextUser = "user"

// Authenticator resolves a session token to the current user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Identity, error)
}

type AuthMiddleware struct {
	authSvc    Authenticator
	cookieName string
}

func NewAuthMiddleware(authSvc Authenticator, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		authSvc:    authSvc,
		cookieName: cookieName,
	}
}

// Authenticate loads the acting user from the session cookie or a Bearer
// header and stores it under ContextUser.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := m.authSvc.Authenticate(c.Request.Context(), m.token(c))
		if err != nil {
			handler.RespondError(c, err)
			return
		}

		c.Set(ContextUser, identity)
		c.Set("user_id", identity.ID.String())
		c.Next()
	}
}

func (m *AuthMiddleware) token(c *gin.Context) string {
	if cookie, err := c.Cookie(m.cookieName); err == nil && cookie != "" {
		return cookie
	}

	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("not authorized"))
			return
		}

		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("access denied"))
	}
}

// CurrentUser returns the identity set by Authenticate.
func CurrentUser(c *gin.Context) (*model.Identity, bool) {
	v, exists := c.Get(ContextUser)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*model.Identity)
	return identity, ok && identity != nil
}
