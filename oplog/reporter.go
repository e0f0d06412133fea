package oplog

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StatsSource is anything reporting dispatcher counters.
type StatsSource interface {
	Stats() Stats
}

// Reporter periodically logs dispatcher counters.
type Reporter struct {
	c   *cron.Cron
	src StatsSource
	log logrus.FieldLogger
}

// NewReporter schedules a stats line every interval. Start must be called to
// begin reporting.
func NewReporter(src StatsSource, every time.Duration, log logrus.FieldLogger) (*Reporter, error) {
	if every <= 0 {
		return nil, fmt.Errorf("oplog: reporter interval must be positive")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Reporter{c: cron.New(), src: src, log: log}
	if _, err := r.c.AddFunc("@every "+every.String(), r.Report); err != nil {
		return nil, fmt.Errorf("oplog: schedule reporter: %w", err)
	}
	return r, nil
}

// Report logs a single snapshot.
func (r *Reporter) Report() {
	s := r.src.Stats()
	r.log.WithFields(logrus.Fields{
		"submitted": s.Submitted,
		"dropped":   s.Dropped,
		"succeeded": s.Succeeded,
		"failed":    s.Failed,
		"queued":    s.Queued,
	}).Info("log dispatcher stats")
}

func (r *Reporter) Start() { r.c.Start() }

// Stop halts scheduling and waits for a running report, bounded by ctx.
func (r *Reporter) Stop(ctx context.Context) {
	done := r.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
