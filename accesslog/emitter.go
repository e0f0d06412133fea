// Package accesslog publishes a sign-in record after every successful
// authentication and then hands over to an optional extension.
package accesslog

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/authmodule/core"
	"github.com/PaulFidika/authmodule/messaging"
	"github.com/PaulFidika/authmodule/oplog"
	"github.com/PaulFidika/authmodule/trace"
)

const taskName = "access_log"

// RequestInfo is the transport view of the sign-in request.
// Writer and Request may be nil outside HTTP.
type RequestInfo struct {
	RemoteAddr string
	Request    *http.Request
	Writer     http.ResponseWriter
}

// Extender runs after the access log has been handed off, e.g. to issue a
// session token.
type Extender interface {
	OnAuthenticationSuccess(ctx context.Context, info RequestInfo, p *core.Principal) error
}

// ExtenderFunc adapts a function to Extender.
type ExtenderFunc func(ctx context.Context, info RequestInfo, p *core.Principal) error

func (f ExtenderFunc) OnAuthenticationSuccess(ctx context.Context, info RequestInfo, p *core.Principal) error {
	return f(ctx, info, p)
}

type Config struct {
	Publisher  messaging.Publisher
	Executor   oplog.Executor
	Extender   Extender // optional
	Exchange   string
	RoutingKey string
	Logger     logrus.FieldLogger
	Now        func() time.Time
}

// Emitter is the post-authentication hook.
type Emitter struct {
	pub        messaging.Publisher
	exec       oplog.Executor
	ext        Extender
	exchange   string
	routingKey string
	log        logrus.FieldLogger
	now        func() time.Time
}

var _ core.AccessLogger = (*Emitter)(nil)

func New(cfg Config) *Emitter {
	e := &Emitter{
		pub:        cfg.Publisher,
		exec:       cfg.Executor,
		ext:        cfg.Extender,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		log:        cfg.Logger,
		now:        cfg.Now,
	}
	if e.pub == nil {
		e.pub = messaging.Nop{}
	}
	if e.exchange == "" {
		e.exchange = messaging.DefaultExchange
	}
	if e.routingKey == "" {
		e.routingKey = messaging.DefaultRoutingKey
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.ext != nil {
		e.log.WithField("extender", fmt.Sprintf("%T", e.ext)).Info("Authentication success extender configured")
	}
	return e
}

// Handle records the sign-in for p and then calls the extender, if any.
// Publishing problems are logged and never returned; only the extender's
// error is.
func (e *Emitter) Handle(ctx context.Context, info RequestInfo, p *core.Principal) error {
	rec := core.AccessLog{
		IPAddress:  ClientIP(info.RemoteAddr),
		AccessTime: e.now(),
	}
	if p != nil {
		rec.UserID = p.ID
		rec.Username = p.Username
	}
	if id, ok := trace.TraceIDFromContext(ctx); ok {
		rec.TraceID = id
	}
	e.log.WithFields(logrus.Fields{"username": rec.Username, "ip": rec.IPAddress}).Info("Logging sign-in info")
	if err := e.LogAccess(ctx, rec); err != nil {
		e.log.WithError(err).Warn("Unable to log sign-in info")
	}

	if e.ext == nil {
		return nil
	}
	return e.ext.OnAuthenticationSuccess(ctx, info, p)
}

// LogAccess publishes rec on the configured exchange. With an executor the
// publish happens in the background and only a rejected submission is
// reported.
func (e *Emitter) LogAccess(ctx context.Context, rec core.AccessLog) error {
	publish := func(ctx context.Context) error {
		return e.pub.SendJSON(ctx, rec, e.exchange, e.routingKey)
	}
	if e.exec == nil {
		if err := publish(ctx); err != nil {
			return fmt.Errorf("%w: %w", core.ErrLoggingFailure, err)
		}
		return nil
	}
	if !e.exec.Submit(ctx, taskName, publish) {
		return fmt.Errorf("%w: access log task rejected", core.ErrLoggingFailure)
	}
	return nil
}

// ClientIP strips the port from a remote address, leaving bare IPs alone.
func ClientIP(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
