package core

import (
	"context"
	"time"
)

// Actor used on operate logs when no principal is attached to the request.
const (
	AnonymousName       = "anonymous"
	AnonymousID   int64 = 0
)

// OperateLog records a single invocation of a business operation.
type OperateLog struct {
	OperateName  string    `json:"operateName"`
	OperateDesc  string    `json:"operateDesc"`
	OperateTime  time.Time `json:"operateTime"`
	OperateParam string    `json:"operateParam"`
	Username     string    `json:"username"`
	UserID       int64     `json:"userId"`
	TraceID      string    `json:"traceId,omitempty"`
}

// AccessLog records a successful sign-in.
type AccessLog struct {
	IPAddress  string    `json:"ipAddress"`
	UserID     int64     `json:"userId"`
	Username   string    `json:"username"`
	AccessTime time.Time `json:"accessTime"`
	TraceID    string    `json:"traceId,omitempty"`
}

// OperateLogSink saves operate logs to a remote service (HTTP, database, job queue).
// Callers treat it as best-effort; a failed save is logged and dropped.
type OperateLogSink interface {
	SaveOperateLogInfo(ctx context.Context, log OperateLog) error
}

// OperateLogSinkFunc adapts a function to OperateLogSink.
type OperateLogSinkFunc func(ctx context.Context, log OperateLog) error

func (f OperateLogSinkFunc) SaveOperateLogInfo(ctx context.Context, log OperateLog) error {
	return f(ctx, log)
}

// AccessLogger records sign-in events to an external sink (e.g., a message bus).
// Implementations should be non-blocking and best-effort.
type AccessLogger interface {
	LogAccess(ctx context.Context, log AccessLog) error
}
