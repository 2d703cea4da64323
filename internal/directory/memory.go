package directory

import (
	"context"
	"sync"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/google/uuid"
)

// Memory is an in-process Registry for tests and STORAGE_DRIVER=memory.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]model.UserSummary
	emails     map[string]struct{}
	categories map[string]model.CategorySummary
	catNames   map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]model.UserSummary),
		emails:     make(map[string]struct{}),
		categories: make(map[string]model.CategorySummary),
		catNames:   make(map[string]struct{}),
	}
}

// PutUser registers a user under a caller-chosen id.
func (m *Memory) PutUser(u model.UserSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// PutCategory registers a category under a caller-chosen id.
func (m *Memory) PutCategory(c model.CategorySummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
	m.catNames[c.Name] = struct{}{}
}

func (m *Memory) LookupUser(_ context.Context, id string) (model.UserSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return model.UserSummary{}, model.NotFound("user %s was not found", id)
	}
	return u, nil
}

func (m *Memory) LookupCategory(_ context.Context, id string) (model.CategorySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return model.CategorySummary{}, model.NotFound("category %s was not found", id)
	}
	return c, nil
}

func (m *Memory) CreateUser(_ context.Context, name, email string) (model.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.emails[email]; taken {
		return model.UserSummary{}, model.Conflict("email %s is already registered", email)
	}
	u := model.UserSummary{ID: uuid.NewString(), Name: name}
	m.users[u.ID] = u
	m.emails[email] = struct{}{}
	return u, nil
}

func (m *Memory) CreateCategory(_ context.Context, name string) (model.CategorySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.catNames[name]; taken {
		return model.CategorySummary{}, model.Conflict("category %q already exists", name)
	}
	c := model.CategorySummary{ID: uuid.NewString(), Name: name}
	m.categories[c.ID] = c
	m.catNames[name] = struct{}{}
	return c, nil
}
