// Package jobs hands operate logs to a River queue so a worker pool backed by
// Postgres writes them out.
package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"
	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/authmodule/core"
)

// SaveOperateLogArgs carries one operate log through the queue.
type SaveOperateLogArgs struct {
	Log core.OperateLog `json:"log"`
}

func (SaveOperateLogArgs) Kind() string { return "save_operate_log" }

// InsertOpts limits the job to a single attempt; a failed save is dropped.
func (SaveOperateLogArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 1}
}

// OperateLogWorker saves queued operate logs to a sink.
type OperateLogWorker struct {
	river.WorkerDefaults[SaveOperateLogArgs]
	Sink core.OperateLogSink
	Log  logrus.FieldLogger
}

func (w *OperateLogWorker) Work(ctx context.Context, job *river.Job[SaveOperateLogArgs]) error {
	if err := w.Sink.SaveOperateLogInfo(ctx, job.Args.Log); err != nil {
		if w.Log != nil {
			w.Log.WithError(err).WithFields(logrus.Fields{
				"job_id":    job.ID,
				"operation": job.Args.Log.OperateName,
			}).Warn("operate log job failed")
		}
		return fmt.Errorf("jobs: save operate log: %w", err)
	}
	return nil
}

// Inserter is the part of *river.Client the sink needs.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// QueueSink is an operate-log sink that enqueues instead of writing.
type QueueSink struct {
	ins Inserter
}

var _ core.OperateLogSink = (*QueueSink)(nil)

func NewQueueSink(ins Inserter) *QueueSink { return &QueueSink{ins: ins} }

func (s *QueueSink) SaveOperateLogInfo(ctx context.Context, l core.OperateLog) error {
	if _, err := s.ins.Insert(ctx, SaveOperateLogArgs{Log: l}, nil); err != nil {
		return fmt.Errorf("jobs: enqueue operate log: %w", err)
	}
	return nil
}

// NewClient builds a River client whose workers write operate logs to sink.
func NewClient(pool *pgxpool.Pool, sink core.OperateLogSink, maxWorkers int, log logrus.FieldLogger) (*river.Client[pgx.Tx], error) {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, &OperateLogWorker{Sink: sink, Log: log}); err != nil {
		return nil, fmt.Errorf("jobs: register worker: %w", err)
	}
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: maxWorkers}},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: new river client: %w", err)
	}
	return client, nil
}

// Migrate applies River's own schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	m, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("jobs: river migrator: %w", err)
	}
	if _, err := m.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("jobs: river migrate: %w", err)
	}
	return nil
}
