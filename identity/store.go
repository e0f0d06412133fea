package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PaulFidika/authmodule/core"
)

// UserStore looks users up by username. Absent users yield (nil, nil).
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*core.UserEntity, error)
}

// Store reads credential records from the users table.
type Store struct {
	pg     *pgxpool.Pool
	schema string
}

var _ UserStore = (*Store)(nil)

func NewStore(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "auth"
	}
	return &Store{pg: pg, schema: s}
}

func (s *Store) usersTable() string { return s.schema + ".users" }

// FindByUsername returns the credential record for username, or nil when none exists.
func (s *Store) FindByUsername(ctx context.Context, username string) (*core.UserEntity, error) {
	if s.pg == nil || strings.TrimSpace(username) == "" {
		return nil, nil
	}
	var u core.UserEntity
	err := s.pg.QueryRow(ctx, `SELECT id, username, password, salt, role, is_disabled FROM `+s.usersTable()+` WHERE username=$1 LIMIT 1`, username).
		Scan(&u.ID, &u.Username, &u.Password, &u.Salt, &u.Role, &u.IsDisabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserInfo returns id, username and role for username, or nil when none exists.
func (s *Store) FindUserInfo(ctx context.Context, username string) (*core.UserInfo, error) {
	if s.pg == nil || strings.TrimSpace(username) == "" {
		return nil, nil
	}
	var u core.UserInfo
	err := s.pg.QueryRow(ctx, `SELECT id, username, role FROM `+s.usersTable()+` WHERE username=$1 LIMIT 1`, username).
		Scan(&u.ID, &u.Username, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user and returns its id.
func (s *Store) Create(ctx context.Context, u core.UserEntity) (int64, error) {
	if s.pg == nil {
		return 0, errors.New("identity: no database")
	}
	var id int64
	err := s.pg.QueryRow(ctx, `INSERT INTO `+s.usersTable()+` (username, password, salt, role, is_disabled) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		u.Username, u.Password, u.Salt, u.Role, u.IsDisabled).Scan(&id)
	return id, err
}
