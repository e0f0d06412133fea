package identity

import (
	"context"
	"sync"

	"github.com/PaulFidika/authmodule/core"
)

// MemoryStore is an in-memory UserStore for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]core.UserEntity
}

var _ UserStore = (*MemoryStore)(nil)

func NewMemoryStore(users ...core.UserEntity) *MemoryStore {
	m := &MemoryStore{users: make(map[string]core.UserEntity)}
	for _, u := range users {
		m.Put(u)
	}
	return m
}

// Put stores u, assigning an id when u.ID is zero.
func (m *MemoryStore) Put(u core.UserEntity) core.UserEntity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		m.nextID++
		u.ID = m.nextID
	} else if u.ID > m.nextID {
		m.nextID = u.ID
	}
	m.users[u.Username] = u
	return u
}

func (m *MemoryStore) FindByUsername(_ context.Context, username string) (*core.UserEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MemoryStore) FindUserInfo(ctx context.Context, username string) (*core.UserInfo, error) {
	u, err := m.FindByUsername(ctx, username)
	if err != nil || u == nil {
		return nil, err
	}
	info := u.Info()
	return &info, nil
}
