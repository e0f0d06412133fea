package authtest

import (
	"context"
	"errors"
	"sync"

	"github.com/PaulFidika/authmodule/core"
)

// RecordingSink keeps every operate log it is given.
type RecordingSink struct {
	mu   sync.Mutex
	logs []core.OperateLog
}

func (s *RecordingSink) SaveOperateLogInfo(_ context.Context, l core.OperateLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, l)
	return nil
}

// Logs returns a copy of what was saved so far.
func (s *RecordingSink) Logs() []core.OperateLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.OperateLog(nil), s.logs...)
}

// ErrSinkDown is returned by FailingSink by default.
var ErrSinkDown = errors.New("authtest: sink unavailable")

// FailingSink fails every save, or panics when Panic is set.
type FailingSink struct {
	Err   error
	Panic bool

	mu    sync.Mutex
	calls int
}

func (s *FailingSink) SaveOperateLogInfo(context.Context, core.OperateLog) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.Panic {
		panic("authtest: sink exploded")
	}
	if s.Err != nil {
		return s.Err
	}
	return ErrSinkDown
}

func (s *FailingSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Message is one publish seen by RecordingPublisher.
type Message struct {
	Value      any
	Exchange   string
	RoutingKey string
}

// RecordingPublisher keeps every message instead of sending it.
type RecordingPublisher struct {
	Err error

	mu   sync.Mutex
	msgs []Message
}

func (p *RecordingPublisher) SendJSON(_ context.Context, v any, exchange, routingKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, Message{Value: v, Exchange: exchange, RoutingKey: routingKey})
	return p.Err
}

func (p *RecordingPublisher) Close() error { return nil }

func (p *RecordingPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.msgs...)
}

// InlineExecutor runs tasks on the caller's goroutine and ignores their
// errors. Set Reject to simulate a full queue.
type InlineExecutor struct {
	Reject bool
}

func (e InlineExecutor) Submit(ctx context.Context, _ string, fn func(context.Context) error) bool {
	if e.Reject {
		return false
	}
	_ = fn(ctx)
	return true
}
