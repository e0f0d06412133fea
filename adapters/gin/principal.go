package authgin

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/authmodule/adapters/ginutil"
	"github.com/PaulFidika/authmodule/core"
)

const principalKey = "auth.principal"

// TokenParser turns a bearer token into a principal.
type TokenParser interface {
	Parse(token string) (*core.Principal, error)
}

// Authenticated reads the bearer token and attaches its principal to the
// request. With required set, requests without a valid token get 401;
// otherwise they pass through anonymously.
func Authenticated(tp TokenParser, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearer(c.GetHeader("Authorization"))
		if tok == "" {
			if required {
				ginutil.Unauthorized(c, "missing_token")
				return
			}
			c.Next()
			return
		}
		p, err := tp.Parse(tok)
		if err != nil {
			if required {
				ginutil.Unauthorized(c, "invalid_token")
				return
			}
			c.Next()
			return
		}
		SetPrincipal(c, p)
		c.Next()
	}
}

// RequireAuthority rejects callers lacking authority a. It must run after
// Authenticated.
func RequireAuthority(a string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			ginutil.Unauthorized(c, "unauthenticated")
			return
		}
		if !p.HasAuthority(a) {
			ginutil.Forbidden(c, "forbidden")
			return
		}
		c.Next()
	}
}

// SetPrincipal makes p visible both to gin handlers and to anything reading
// the request context.
func SetPrincipal(c *gin.Context, p *core.Principal) {
	c.Set(principalKey, p)
	c.Request = c.Request.WithContext(core.WithPrincipal(c.Request.Context(), p))
}

// CurrentPrincipal returns the authenticated caller, if any.
func CurrentPrincipal(c *gin.Context) (*core.Principal, bool) {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*core.Principal); ok && p != nil {
			return p, true
		}
	}
	return core.PrincipalFromContext(c.Request.Context())
}

func bearer(h string) string {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
