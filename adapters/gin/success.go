package authgin

import (
	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/authmodule/accesslog"
	"github.com/PaulFidika/authmodule/core"
)

// SuccessHandler adapts the access log emitter to gin.
type SuccessHandler struct {
	Emitter *accesslog.Emitter
}

func (h SuccessHandler) OnAuthenticationSuccess(c *gin.Context, p *core.Principal) error {
	if h.Emitter == nil {
		return nil
	}
	return h.Emitter.Handle(c.Request.Context(), accesslog.RequestInfo{
		RemoteAddr: c.ClientIP(),
		Request:    c.Request,
		Writer:     c.Writer,
	}, p)
}
