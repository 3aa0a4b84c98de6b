//go:build unit

package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"training-app/internal/auth"
	"training-app/internal/data"
	"training-app/internal/logger"
)

// memoryDB backs both mock repositories so that section and element rows
// share pending state the way the SQL tables do.
type memoryDB struct {
	mu       sync.Mutex
	nextID   int64
	sections map[int64]*data.Section
	elements map[int64]*data.Element

	// failElementUpdate makes ElementRepository.Update fail.
	failElementUpdate error
	// failSectionDelete makes SectionRepository.Delete fail once.
	failSectionDelete error
	writes            int

	// afterGetAll runs once SectionRepository.GetAll has read its rows.
	afterGetAll func()
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		nextID:   1,
		sections: make(map[int64]*data.Section),
		elements: make(map[int64]*data.Element),
	}
}

type mockSectionRepository struct{ db *memoryDB }
type mockElementRepository struct{ db *memoryDB }

var _ SectionRepository = (*mockSectionRepository)(nil)
var _ ElementRepository = (*mockElementRepository)(nil)

func (m *mockSectionRepository) GetAll(ctx context.Context) ([]*data.Section, error) {
	m.db.mu.Lock()
	out := []*data.Section{}
	for _, s := range m.db.sections {
		if !s.PendingDelete {
			c := *s
			out = append(out, &c)
		}
	}
	hook := m.db.afterGetAll
	m.db.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *mockSectionRepository) GetByID(ctx context.Context, id int64) (*data.Section, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s, ok := m.db.sections[id]
	if !ok || s.PendingDelete {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (m *mockSectionRepository) GetPendingDelete(ctx context.Context) ([]*data.Section, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []*data.Section{}
	for _, s := range m.db.sections {
		if s.PendingDelete {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *mockSectionRepository) Create(ctx context.Context, section *data.Section) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.writes++
	id := m.db.nextID
	m.db.nextID++
	c := *section
	c.ID = id
	m.db.sections[id] = &c
	return id, nil
}

func (m *mockSectionRepository) UpdateTitle(ctx context.Context, id int64, title string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.writes++
	if s, ok := m.db.sections[id]; ok {
		s.Title = title
	}
	return nil
}

func (m *mockSectionRepository) MarkPendingDelete(ctx context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.writes++
	if s, ok := m.db.sections[id]; ok {
		s.PendingDelete = true
	}
	for _, e := range m.db.elements {
		if e.SectionID == id {
			e.PendingDelete = true
		}
	}
	return nil
}

func (m *mockSectionRepository) Delete(ctx context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.failSectionDelete; err != nil {
		m.db.failSectionDelete = nil
		return err
	}
	m.db.writes++
	delete(m.db.sections, id)
	return nil
}

func (m *mockElementRepository) list(sectionID int64, includePending bool) []*data.Element {
	out := []*data.Element{}
	for _, e := range m.db.elements {
		if e.SectionID == sectionID && (includePending || !e.PendingDelete) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockElementRepository) GetBySection(ctx context.Context, sectionID int64) ([]*data.Element, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.list(sectionID, false), nil
}

func (m *mockElementRepository) GetAllBySection(ctx context.Context, sectionID int64) ([]*data.Element, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.list(sectionID, true), nil
}

func (m *mockElementRepository) GetByID(ctx context.Context, id int64) (*data.Element, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	e, ok := m.db.elements[id]
	if !ok || e.PendingDelete {
		return nil, nil
	}
	c := *e
	return &c, nil
}

func (m *mockElementRepository) GetPendingDelete(ctx context.Context) ([]*data.Element, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []*data.Element{}
	for _, e := range m.db.elements {
		s, ok := m.db.sections[e.SectionID]
		if e.PendingDelete && ok && !s.PendingDelete {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *mockElementRepository) Create(ctx context.Context, element *data.Element) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.sections[element.SectionID]; !ok {
		return 0, errors.New("FOREIGN KEY constraint failed")
	}
	m.db.writes++
	id := m.db.nextID
	m.db.nextID++
	c := *element
	c.ID = id
	m.db.elements[id] = &c
	return id, nil
}

func (m *mockElementRepository) Update(ctx context.Context, element *data.Element) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.failElementUpdate != nil {
		return m.db.failElementUpdate
	}
	m.db.writes++
	if e, ok := m.db.elements[element.ID]; ok {
		e.Type = element.Type
		e.Content = element.Content
	}
	return nil
}

func (m *mockElementRepository) MarkPendingDelete(ctx context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.writes++
	if e, ok := m.db.elements[id]; ok {
		e.PendingDelete = true
	}
	return nil
}

func (m *mockElementRepository) Delete(ctx context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.writes++
	delete(m.db.elements, id)
	return nil
}

func (m *mockElementRepository) DeleteBySection(ctx context.Context, sectionID int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.writes++
	for id, e := range m.db.elements {
		if e.SectionID == sectionID {
			delete(m.db.elements, id)
		}
	}
	return nil
}

// mockCache is a map-backed Cache that counts hits.
type mockCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
}

var _ Cache = (*mockCache)(nil)

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]byte)}
}

func (c *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return b, nil
}

func (c *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mockCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

var (
	adminID = auth.Identity{UserID: 1, Username: "root", IsAdmin: true}
	userID  = auth.Identity{UserID: 2, Username: "bob"}
)

// newAuthorizer returns the real casbin-backed authorizer with default policies.
func newAuthorizer(t *testing.T) Authorizer {
	t.Helper()
	e, err := auth.NewEnforcer(nil)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	if err := auth.SeedPolicies(e, logger.Nop()); err != nil {
		t.Fatalf("SeedPolicies() error = %v", err)
	}
	svc, err := auth.NewService(nil, auth.NewTokenIssuer("test", time.Hour), e, bcrypt.MinCost, logger.Nop())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}
