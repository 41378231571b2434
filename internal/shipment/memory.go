package shipment

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and database-less local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]Shipment
	nextID int64
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[int64]Shipment),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID int64, page, perPage int) (Page, error) {
	page, perPage = normalizePage(page, perPage)

	all := m.filter(func(s Shipment) bool { return s.UserID == userID })
	start := (page - 1) * perPage
	if start > len(all) {
		start = len(all)
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return Page{Items: all[start:end], Total: len(all), Page: page, PerPage: perPage}, nil
}

func (m *MemoryStore) ListAllByUser(ctx context.Context, userID int64) ([]Shipment, error) {
	return m.filter(func(s Shipment) bool { return s.UserID == userID }), nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id int64) (Shipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.rows[id]
	if !ok || s.DeletedAt != nil {
		return Shipment{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) FindByIDWithDeleted(ctx context.Context, id int64) (Shipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.rows[id]
	if !ok {
		return Shipment{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) FindByUserAndID(ctx context.Context, userID, id int64) (Shipment, error) {
	s, err := m.FindByID(ctx, id)
	if err != nil {
		return Shipment{}, err
	}
	if s.UserID != userID {
		return Shipment{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Create(ctx context.Context, s Shipment) (Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := m.now()
	s.ID = m.nextID
	s.CreatedAt = now
	s.UpdatedAt = now
	s.DeletedAt = nil
	m.rows[s.ID] = s
	return s, nil
}

func (m *MemoryStore) Update(ctx context.Context, id int64, c Changes) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok || s.DeletedAt != nil {
		return false, nil
	}
	if c.Status != nil {
		s.Status = *c.Status
	}
	if c.TrackingURL != nil {
		s.TrackingURL = c.TrackingURL
	}
	if !c.empty() {
		s.UpdatedAt = m.now()
	}
	m.rows[id] = s
	return true, nil
}

func (m *MemoryStore) SoftDelete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok || s.DeletedAt != nil {
		return false, nil
	}
	now := m.now()
	s.DeletedAt = &now
	s.UpdatedAt = now
	m.rows[id] = s
	return true, nil
}

func (m *MemoryStore) ListByUserAndStatus(ctx context.Context, userID int64, status Status) ([]Shipment, error) {
	return m.filter(func(s Shipment) bool { return s.UserID == userID && s.Status == status }), nil
}

func (m *MemoryStore) ListRecentByUser(ctx context.Context, userID int64, limit int) ([]Shipment, error) {
	if limit < 1 {
		limit = 10
	}
	all := m.filter(func(s Shipment) bool { return s.UserID == userID })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// filter returns live rows matching keep, newest first.
func (m *MemoryStore) filter(keep func(Shipment) bool) []Shipment {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Shipment, 0)
	for _, s := range m.rows {
		if s.DeletedAt == nil && keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
