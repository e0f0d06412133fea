// Package oplog records operate logs around business operations and hands
// them to a remote sink without holding up the operation.
package oplog

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/authmodule/core"
	"github.com/PaulFidika/authmodule/trace"
)

// EnableKey is the configuration key toggling operate logs.
const EnableKey = "auth-module.enable-operate-log"

const taskName = "operate_log"

// Invocation is the wrapped business operation.
type Invocation func(ctx context.Context) (any, error)

// Config wires an Advice. Sink and Executor are required when Enabled.
type Config struct {
	Enabled  bool
	Sink     core.OperateLogSink
	Executor Executor
	Renderer *ParamRenderer
	Registry *Registry
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

// Advice wraps operations and emits one operate log per invocation.
type Advice struct {
	enabled  bool
	sink     core.OperateLogSink
	exec     Executor
	render   *ParamRenderer
	registry *Registry
	log      logrus.FieldLogger
	now      func() time.Time
}

func New(cfg Config) *Advice {
	a := &Advice{
		enabled:  cfg.Enabled,
		sink:     cfg.Sink,
		exec:     cfg.Executor,
		render:   cfg.Renderer,
		registry: cfg.Registry,
		log:      cfg.Logger,
		now:      cfg.Now,
	}
	if a.render == nil {
		a.render = NewParamRenderer()
	}
	if a.registry == nil {
		a.registry = NewRegistry()
	}
	if a.log == nil {
		a.log = logrus.StandardLogger()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.enabled && (a.sink == nil || a.exec == nil) {
		a.log.Warn("operation log has no sink or executor, disabling it")
		a.enabled = false
	}
	if !a.enabled {
		a.log.Infof("Operation log disabled, configure '%s=true' to turn it on", EnableKey)
	}
	return a
}

// Enabled reports whether operate logs are emitted at all.
func (a *Advice) Enabled() bool { return a != nil && a.enabled }

// Registry returns the operations known to this advice.
func (a *Advice) Registry() *Registry { return a.registry }

// Operation looks up a registered operation. Unknown names yield an
// operation carrying just the name.
func (a *Advice) Operation(name string) Operation {
	if op, ok := a.registry.Lookup(name); ok {
		return op
	}
	return Operation{Name: name}
}

// Wrap submits an operate log for op and then calls fn exactly once,
// returning its result and error untouched. Nothing the logging path does,
// including panicking, reaches the caller.
func (a *Advice) Wrap(ctx context.Context, op Operation, args []any, fn Invocation) (any, error) {
	if a.Enabled() {
		a.logOperation(ctx, op, args)
	}
	return fn(ctx)
}

// Run is Wrap for typed operations.
func Run[T any](ctx context.Context, a *Advice, op Operation, args []any, fn func(ctx context.Context) (T, error)) (T, error) {
	if a.Enabled() {
		a.logOperation(ctx, op, args)
	}
	return fn(ctx)
}

func (a *Advice) logOperation(ctx context.Context, op Operation, args []any) {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithError(fmt.Errorf("%w: panic: %v", core.ErrLoggingFailure, r)).
				WithField("operation", op.Name).Error("Unable to log operation")
		}
	}()
	if op.Disabled {
		return
	}

	rec := a.Record(ctx, op, args)
	sink := a.sink
	if !a.exec.Submit(ctx, taskName, func(ctx context.Context) error {
		return sink.SaveOperateLogInfo(ctx, rec)
	}) {
		a.log.WithField("operation", op.Name).Warn("Unable to save operation log")
	}
}

// Record builds the operate log for an invocation of op with args.
func (a *Advice) Record(ctx context.Context, op Operation, args []any) core.OperateLog {
	rec := core.OperateLog{
		OperateName:  op.Name,
		OperateDesc:  op.Description,
		OperateTime:  a.now(),
		OperateParam: a.render.Render(args),
		Username:     core.AnonymousName,
		UserID:       core.AnonymousID,
	}
	if p, ok := core.PrincipalFromContext(ctx); ok {
		rec.Username = p.Username
		rec.UserID = p.ID
	}
	if id, ok := trace.TraceIDFromContext(ctx); ok {
		rec.TraceID = id
	}
	return rec
}
