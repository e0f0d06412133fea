package oplog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulFidika/authmodule/core"
	"github.com/PaulFidika/authmodule/trace"
)

type inlineExecutor struct{ reject bool }

func (e inlineExecutor) Submit(ctx context.Context, _ string, fn Task) bool {
	if e.reject {
		return false
	}
	_ = fn(ctx)
	return true
}

type recordingSink struct {
	mu   sync.Mutex
	logs []core.OperateLog
	err  error
}

func (s *recordingSink) SaveOperateLogInfo(_ context.Context, l core.OperateLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, l)
	return s.err
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newAdvice(sink core.OperateLogSink, exec Executor) *Advice {
	logger, _ := logtest.NewNullLogger()
	return New(Config{
		Enabled:  true,
		Sink:     sink,
		Executor: exec,
		Registry: NewRegistry(Operation{Name: "delete-file", Description: "Delete a stored file"}),
		Logger:   logger,
		Now:      func() time.Time { return fixedNow },
	})
}

func TestWrap_RecordsOperation(t *testing.T) {
	sink := &recordingSink{}
	a := newAdvice(sink, inlineExecutor{})

	ctx := core.WithPrincipal(context.Background(), &core.Principal{ID: 7, Username: "bob"})
	ctx = trace.WithTraceID(ctx, "t-1")

	got, err := a.Wrap(ctx, a.Operation("delete-file"), []any{"/tmp/a", nil, 3}, func(context.Context) (any, error) {
		return "deleted", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "deleted", got)

	require.Len(t, sink.logs, 1)
	assert.Equal(t, core.OperateLog{
		OperateName:  "delete-file",
		OperateDesc:  "Delete a stored file",
		OperateTime:  fixedNow,
		OperateParam: "[/tmp/a,3]",
		Username:     "bob",
		UserID:       7,
		TraceID:      "t-1",
	}, sink.logs[0])
}

func TestWrap_AnonymousActor(t *testing.T) {
	sink := &recordingSink{}
	a := newAdvice(sink, inlineExecutor{})

	_, _ = a.Wrap(context.Background(), Operation{Name: "list"}, nil, func(context.Context) (any, error) { return nil, nil })

	require.Len(t, sink.logs, 1)
	assert.Equal(t, core.AnonymousName, sink.logs[0].Username)
	assert.Equal(t, core.AnonymousID, sink.logs[0].UserID)
	assert.Equal(t, "[]", sink.logs[0].OperateParam)
}

func TestWrap_PropagatesOperationError(t *testing.T) {
	sink := &recordingSink{}
	a := newAdvice(sink, inlineExecutor{})
	boom := errors.New("boom")

	got, err := a.Wrap(context.Background(), Operation{Name: "op"}, nil, func(context.Context) (any, error) {
		return 5, boom
	})
	assert.Same(t, boom, err)
	assert.Equal(t, 5, got)
	assert.Len(t, sink.logs, 1)
}

func TestWrap_SinkFailureIsInvisible(t *testing.T) {
	cases := map[string]core.OperateLogSink{
		"error": &recordingSink{err: errors.New("connection refused")},
		"panic": core.OperateLogSinkFunc(func(context.Context, core.OperateLog) error { panic("sink exploded") }),
	}
	for name, sink := range cases {
		t.Run(name, func(t *testing.T) {
			d := NewDispatcher(DispatcherConfig{Workers: 1})
			defer closeDispatcher(t, d)
			a := newAdvice(sink, d)

			calls := 0
			got, err := a.Wrap(context.Background(), Operation{Name: "op"}, []any{"x"}, func(context.Context) (any, error) {
				calls++
				return "ok", nil
			})
			require.NoError(t, err)
			assert.Equal(t, "ok", got)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestWrap_RejectedSubmissionIsLogged(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	a := New(Config{Enabled: true, Sink: &recordingSink{}, Executor: inlineExecutor{reject: true}, Logger: logger})

	got, err := a.Wrap(context.Background(), Operation{Name: "op"}, nil, func(context.Context) (any, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Unable to save operation log", hook.LastEntry().Message)
}

func TestWrap_DisabledNeverCallsSink(t *testing.T) {
	sink := &recordingSink{}
	logger, hook := logtest.NewNullLogger()
	a := New(Config{Enabled: false, Sink: sink, Executor: inlineExecutor{}, Logger: logger})

	assert.False(t, a.Enabled())
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, EnableKey+"=true")

	got, err := a.Wrap(context.Background(), Operation{Name: "op"}, []any{"x"}, func(context.Context) (any, error) { return "r", nil })
	require.NoError(t, err)
	assert.Equal(t, "r", got)
	assert.Empty(t, sink.logs)
}

func TestWrap_DisabledOperation(t *testing.T) {
	sink := &recordingSink{}
	a := newAdvice(sink, inlineExecutor{})

	_, _ = a.Wrap(context.Background(), Operation{Name: "health", Disabled: true}, nil, func(context.Context) (any, error) { return nil, nil })
	assert.Empty(t, sink.logs)
}

func TestWrap_MissingSinkDisables(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	a := New(Config{Enabled: true, Executor: inlineExecutor{}, Logger: logger})
	assert.False(t, a.Enabled())
}

func TestRun_Typed(t *testing.T) {
	sink := &recordingSink{}
	a := newAdvice(sink, inlineExecutor{})

	n, err := Run(context.Background(), a, Operation{Name: "count"}, []any{"q"}, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Len(t, sink.logs, 1)

	// nil advice just runs the operation
	n, err = Run(context.Background(), nil, Operation{Name: "count"}, nil, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOperation_UnknownName(t *testing.T) {
	a := newAdvice(&recordingSink{}, inlineExecutor{})
	assert.Equal(t, Operation{Name: "nope"}, a.Operation("nope"))
	assert.Equal(t, "Delete a stored file", a.Operation("delete-file").Description)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Operation{Name: "a"}))
	assert.Error(t, r.Register(Operation{Name: "a"}))
	assert.Error(t, r.Register(Operation{}))

	var nilReg *Registry
	_, ok := nilReg.Lookup("a")
	assert.False(t, ok)
}
