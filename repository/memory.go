package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	verifyreset "github.com/goliatone/go-verify-reset"
	"github.com/google/uuid"
)

// Memory is an in-process verifyreset.UserRepository. Records are cloned
// on the way in and out.
type Memory struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]*verifyreset.User
	paginated bool
}

var _ verifyreset.UserRepository = (*Memory)(nil)

// NewMemory creates an empty store. paginated selects the Find result
// shape.
func NewMemory(paginated bool) *Memory {
	return &Memory{
		users:     map[uuid.UUID]*verifyreset.User{},
		paginated: paginated,
	}
}

// Insert stores user, assigning an id when missing.
func (m *Memory) Insert(user *verifyreset.User) *verifyreset.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := user.Clone()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt == nil {
		now := time.Now().UTC()
		c.CreatedAt = &now
	}
	m.users[c.ID] = c
	return c.Clone()
}

func (m *Memory) Find(_ context.Context, query verifyreset.Query) (verifyreset.FindResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*verifyreset.User{}
	for _, u := range m.users {
		ok, err := matches(u, query)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, u.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Email < out[j].Email
	})

	if m.paginated {
		return &verifyreset.Page{Data: out, Total: len(out), Limit: len(out)}, nil
	}
	return verifyreset.UserList(out), nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*verifyreset.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, verifyreset.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (m *Memory) Patch(_ context.Context, id uuid.UUID, p verifyreset.Patch) (*verifyreset.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, verifyreset.ErrUserNotFound
	}

	c := u.Clone()
	if err := c.Apply(p); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid user patch").
			WithCode(errors.CodeBadRequest)
	}
	m.users[id] = c
	return c.Clone(), nil
}

func matches(u *verifyreset.User, query verifyreset.Query) (bool, error) {
	for field, want := range query {
		got, ok := u.FieldValue(field)
		if !ok {
			return false, errors.New(fmt.Sprintf("unsupported query field %q", field), errors.CategoryValidation).
				WithCode(errors.CodeBadRequest)
		}
		switch want.(type) {
		case string, bool:
		default:
			return false, errors.New(fmt.Sprintf("unsupported query value %T for %q", want, field), errors.CategoryValidation).
				WithCode(errors.CodeBadRequest)
		}
		if got != want {
			return false, nil
		}
	}
	return true, nil
}
