package db

import (
	"context"
	"sort"
	"sync"

	"github.com/kube-rca/remediator/internal/model"
)

// Memory - 프로세스 내 저장소 (STORE=memory, 테스트용)
type Memory struct {
	mu    sync.Mutex
	items map[string]model.Incident
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]model.Incident)}
}

func (m *Memory) CreateIfAbsent(_ context.Context, inc *model.Incident) (*model.Incident, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.items[inc.IncidentID]; ok {
		return cloneIncident(existing), false, nil
	}
	m.items[inc.IncidentID] = *cloneIncident(*inc)
	return cloneIncident(*inc), true, nil
}

func (m *Memory) Get(_ context.Context, id string) (*model.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inc, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneIncident(inc), nil
}

func (m *Memory) Transition(_ context.Context, id string, expected model.Status, update model.IncidentUpdate) (*model.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inc, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if inc.Status != expected {
		return nil, &StatusConflictError{IncidentID: id, Expected: expected, Current: inc.Status}
	}
	next := cloneIncident(inc)
	update.Apply(next)
	m.items[id] = *next
	return cloneIncident(*next), nil
}

func (m *Memory) List(_ context.Context, filter model.IncidentFilter) ([]model.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := []model.Incident{}
	for _, inc := range m.items {
		if filter.Status != "" && inc.Status != filter.Status {
			continue
		}
		list = append(list, *cloneIncident(inc))
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func cloneIncident(inc model.Incident) *model.Incident {
	out := inc
	out.Timeline = append([]model.TimelineEntry(nil), inc.Timeline...)
	return &out
}
