package authgin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/authmodule/adapters/ginutil"
	"github.com/PaulFidika/authmodule/core"
)

// Authenticator verifies a username and password.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*core.Principal, error)
}

// AuthSuccessHandler runs once a login succeeded.
type AuthSuccessHandler interface {
	OnAuthenticationSuccess(c *gin.Context, p *core.Principal) error
}

// HandleLoginPOST verifies credentials and hands the principal to success.
// Unknown users and wrong passwords both answer 401 invalid_credentials.
// When the success handler writes nothing the response is 204.
func HandleLoginPOST(auth Authenticator, success AuthSuccessHandler, rl ginutil.RateLimiter) gin.HandlerFunc {
	type loginReq struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLLoginIP) {
			ginutil.TooMany(c)
			return
		}
		var req loginReq
		if err := c.ShouldBind(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		username := req.Username
		if strings.TrimSpace(username) == "" || req.Password == "" {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if !ginutil.AllowKeyed(c, rl, ginutil.RLLogin, username) {
			ginutil.TooMany(c)
			return
		}

		p, err := auth.Authenticate(c.Request.Context(), username, req.Password)
		switch {
		case errors.Is(err, core.ErrUserNotFound), errors.Is(err, core.ErrBadCredentials):
			ginutil.Unauthorized(c, "invalid_credentials")
			return
		case errors.Is(err, core.ErrUserDisabled):
			ginutil.Forbidden(c, "user_disabled")
			return
		case err != nil:
			ginutil.ServerErrWithLog(c, "authentication_failed", err)
			return
		}
		ginutil.Reset(c, rl, ginutil.RLLogin, username)

		SetPrincipal(c, p)
		if success != nil {
			if err := success.OnAuthenticationSuccess(c, p); err != nil {
				if !c.Writer.Written() {
					ginutil.ServerErrWithLog(c, "login_completion_failed", err)
				}
				return
			}
		}
		if !c.Writer.Written() {
			c.Status(http.StatusNoContent)
			c.Writer.WriteHeaderNow()
		}
	}
}
