// Realtime Notifier
//
// 전이 완료 이벤트를 현재 연결된 구독자에게 fan-out
// Publish는 절대 block 하지 않음: 버퍼가 찬 구독자는 이벤트를 놓침 (push는 hint, 목록 조회가 기준)
// 재연결 시 놓친 이벤트를 재전송하지 않음

package service

import (
	"sync"

	"github.com/google/uuid"
	"github.com/kube-rca/remediator/internal/model"
	"github.com/kube-rca/remediator/internal/observability"
)

const defaultSubscriberBuffer = 32

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	buffer int
	closed bool
}

type Subscription struct {
	id     string
	events chan model.IncidentEvent
	hub    *Hub
	once   sync.Once
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{subs: make(map[string]*Subscription), buffer: buffer}
}

// Subscribe - 새 구독 등록 (Hub가 닫혔으면 이미 닫힌 채널을 가진 구독 반환)
func (h *Hub) Subscribe() *Subscription {
	s := &Subscription{
		id:     uuid.NewString(),
		events: make(chan model.IncidentEvent, h.buffer),
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.once.Do(func() { close(s.events) })
		return s
	}
	h.subs[s.id] = s
	return s
}

func (h *Hub) Publish(ev model.IncidentEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		select {
		case s.events <- ev:
		default:
			observability.NotifierDropped.Inc()
		}
	}
}

// Count - 현재 구독자 수
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close - 모든 구독 종료 (graceful shutdown)
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, s := range h.subs {
		delete(h.subs, id)
		s.once.Do(func() { close(s.events) })
	}
}

func (s *Subscription) ID() string {
	return s.id
}

// Events - 구독 해제 또는 Hub 종료 시 닫힘
func (s *Subscription) Events() <-chan model.IncidentEvent {
	return s.events
}

func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	delete(s.hub.subs, s.id)
	s.once.Do(func() { close(s.events) })
}
