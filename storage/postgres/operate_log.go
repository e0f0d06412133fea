// Package pgstore writes operate logs to Postgres through bun.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/PaulFidika/authmodule/core"
)

// OpenBun wraps a pgx pool in a bun.DB.
func OpenBun(pool *pgxpool.Pool) *bun.DB {
	sqldb := stdlib.OpenDBFromPool(pool)
	return bun.NewDB(sqldb, pgdialect.New())
}

type operateLogRow struct {
	bun.BaseModel `bun:"table:auth.operate_log,alias:ol"`

	ID           int64     `bun:"id,pk,autoincrement"`
	OperateName  string    `bun:"operate_name,notnull"`
	OperateDesc  string    `bun:"operate_desc,notnull"`
	OperateTime  time.Time `bun:"operate_time,notnull"`
	OperateParam string    `bun:"operate_param,notnull"`
	Username     string    `bun:"username,notnull"`
	UserID       int64     `bun:"user_id,notnull"`
	TraceID      string    `bun:"trace_id,notnull"`
}

func rowFrom(l core.OperateLog) *operateLogRow {
	return &operateLogRow{
		OperateName:  l.OperateName,
		OperateDesc:  l.OperateDesc,
		OperateTime:  l.OperateTime,
		OperateParam: l.OperateParam,
		Username:     l.Username,
		UserID:       l.UserID,
		TraceID:      l.TraceID,
	}
}

func (r *operateLogRow) log() core.OperateLog {
	return core.OperateLog{
		OperateName:  r.OperateName,
		OperateDesc:  r.OperateDesc,
		OperateTime:  r.OperateTime,
		OperateParam: r.OperateParam,
		Username:     r.Username,
		UserID:       r.UserID,
		TraceID:      r.TraceID,
	}
}

// OperateLogStore is an operate-log sink backed by the auth.operate_log table.
type OperateLogStore struct {
	db bun.IDB
}

var _ core.OperateLogSink = (*OperateLogStore)(nil)

func NewOperateLogStore(db bun.IDB) *OperateLogStore {
	return &OperateLogStore{db: db}
}

func (s *OperateLogStore) SaveOperateLogInfo(ctx context.Context, l core.OperateLog) error {
	if _, err := s.db.NewInsert().Model(rowFrom(l)).Exec(ctx); err != nil {
		return fmt.Errorf("pgstore: insert operate log: %w", err)
	}
	return nil
}

// Recent page size bounds.
const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

// Recent returns the newest operate logs for userID, newest first. A limit
// outside 1..MaxRecentLimit falls back to DefaultRecentLimit.
func (s *OperateLogStore) Recent(ctx context.Context, userID int64, limit int) ([]core.OperateLog, error) {
	var rows []operateLogRow
	err := s.recentQuery(&rows, userID, limit).Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pgstore: list operate logs: %w", err)
	}
	out := make([]core.OperateLog, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].log())
	}
	return out, nil
}

func (s *OperateLogStore) recentQuery(rows *[]operateLogRow, userID int64, limit int) *bun.SelectQuery {
	if limit <= 0 || limit > MaxRecentLimit {
		limit = DefaultRecentLimit
	}
	return s.db.NewSelect().Model(rows).
		Where("user_id = ?", userID).
		OrderExpr("operate_time DESC").
		Limit(limit)
}
