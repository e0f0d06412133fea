package oplog

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/authmodule/core"
	"github.com/PaulFidika/authmodule/trace"
)

// Task is a unit of fire-and-forget work.
type Task = func(ctx context.Context) error

// Executor accepts tasks without making the caller wait for them.
// Submit reports whether the task was accepted.
type Executor interface {
	Submit(ctx context.Context, name string, fn Task) bool
}

// DispatcherConfig sizes the worker pool.
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
	Logger      logrus.FieldLogger
	Metrics     *Metrics
}

func (c DispatcherConfig) defaulted() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Submitted uint64
	Dropped   uint64
	Succeeded uint64
	Failed    uint64
	Queued    int
}

type job struct {
	name string
	ctx  context.Context
	fn   Task
}

// Dispatcher runs tasks on a fixed pool of workers fed by a bounded queue.
// Submit never blocks: when the queue is full or the dispatcher is closed the
// task is dropped and logged. Task errors and panics are logged and
// swallowed. Tasks run detached from the submitter's cancellation but keep
// its values (trace id, principal).
type Dispatcher struct {
	cfg   DispatcherConfig
	queue chan job
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	submitted, dropped, succeeded, failed atomic.Uint64
}

var _ Executor = (*Dispatcher)(nil)

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	cfg = cfg.defaulted()
	d := &Dispatcher{cfg: cfg, queue: make(chan job, cfg.QueueSize)}
	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}
	return d
}

// Submit enqueues fn. It returns false when the task was dropped.
func (d *Dispatcher) Submit(ctx context.Context, name string, fn Task) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(name, "dispatcher closed")
		return false
	}
	select {
	case d.queue <- job{name: name, ctx: context.WithoutCancel(ctx), fn: fn}:
		d.submitted.Add(1)
		d.cfg.Metrics.inc(name, resultSubmitted)
		return true
	default:
		d.drop(name, "queue full")
		return false
	}
}

func (d *Dispatcher) drop(name, reason string) {
	d.dropped.Add(1)
	d.cfg.Metrics.inc(name, resultDropped)
	d.cfg.Logger.WithFields(logrus.Fields{"task": name, "reason": reason}).Warn("log task dropped")
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	l := d.cfg.Logger.WithField("task", j.name)
	if id, ok := trace.TraceIDFromContext(j.ctx); ok {
		l = l.WithField("trace_id", id)
	}
	ctx, cancel := context.WithTimeout(j.ctx, d.cfg.TaskTimeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
			}
		}()
		return j.fn(ctx)
	}()
	if err != nil {
		d.failed.Add(1)
		d.cfg.Metrics.inc(j.name, resultFailed)
		l.WithError(fmt.Errorf("%w: %w", core.ErrLoggingFailure, err)).Error("log task failed")
		return
	}
	d.succeeded.Add(1)
	d.cfg.Metrics.inc(j.name, resultSucceeded)
}

// Close stops intake and waits for queued tasks to finish or ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("oplog: dispatcher close: %w", ctx.Err())
	}
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Submitted: d.submitted.Load(),
		Dropped:   d.dropped.Load(),
		Succeeded: d.succeeded.Load(),
		Failed:    d.failed.Load(),
		Queued:    len(d.queue),
	}
}
