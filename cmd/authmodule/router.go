package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authgin "github.com/PaulFidika/authmodule/adapters/gin"
	"github.com/PaulFidika/authmodule/adapters/ginutil"
	authhttp "github.com/PaulFidika/authmodule/adapters/http"
	"github.com/PaulFidika/authmodule/core"
	"github.com/PaulFidika/authmodule/oplog"
)

func newRouter(d *deps) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(d.cfg.TrustedProxies); err != nil {
		d.log.WithError(err).Warn("ignoring trusted proxies, using the socket address")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), authgin.Trace())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})))
	r.GET("/.well-known/jwks.json", gin.WrapH(authhttp.JWKSHandler(d.keys)))

	auth := r.Group("/auth")
	auth.POST("/login", authgin.HandleLoginPOST(d.provider, authgin.SuccessHandler{Emitter: d.emitter}, d.limiter))

	me := auth.Group("", authgin.Authenticated(d.issuer, true))
	me.GET("/me", handleMeGET(d))
	if d.history != nil {
		me.GET("/operate-logs", authgin.RequireAuthority(d.cfg.Authority),
			authgin.LogOperation(d.advice, "list-operate-logs", func(c *gin.Context) []any {
				return []any{c.Query("user_id"), c.Query("limit")}
			}),
			handleOperateLogsGET(d))
	}
	return r
}

func handleMeGET(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := authgin.CurrentPrincipal(c)
		info, err := oplog.Run(c.Request.Context(), d.advice, d.advice.Operation("view-profile"), []any{p.Username},
			func(ctx context.Context) (*core.UserInfo, error) {
				return d.users.FindUserInfo(ctx, p.Username)
			})
		if err != nil {
			ginutil.ServerErrWithLog(c, "lookup_failed", err)
			return
		}
		if info == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func handleOperateLogsGET(d *deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := authgin.CurrentPrincipal(c)
		userID := p.ID
		if v := c.Query("user_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				ginutil.BadRequest(c, "invalid_user_id")
				return
			}
			userID = id
		}
		limit, _ := strconv.Atoi(c.Query("limit"))
		logs, err := d.history.Recent(c.Request.Context(), userID, limit)
		if err != nil {
			ginutil.ServerErrWithLog(c, "list_failed", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": logs})
	}
}
