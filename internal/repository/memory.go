package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
)

type memEvent struct {
	seq int64
	v   model.Event
}

type memRequest struct {
	seq int64
	v   model.ParticipationRequest
}

// MemoryStore is an in-process Store. Per-event mutexes give it the same
// serialization guarantee as row locks in Postgres; it has no rollback, so a
// failing fn keeps whatever it already wrote.
type MemoryStore struct {
	mu       sync.RWMutex
	seq      int64
	events   map[string]memEvent
	requests map[string]memRequest

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:   make(map[string]memEvent),
		requests: make(map[string]memRequest),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) Events() EventStore     { return memEventStore{s} }
func (s *MemoryStore) Requests() RequestStore { return memRequestStore{s} }

// lockEvent acquires the mutex for id. A waiter whose mutex was dropped while
// it blocked retries with the current one.
func (s *MemoryStore) lockEvent(id string) *sync.Mutex {
	for {
		s.locksMu.Lock()
		l, ok := s.locks[id]
		if !ok {
			l = &sync.Mutex{}
			s.locks[id] = l
		}
		s.locksMu.Unlock()

		l.Lock()
		s.locksMu.Lock()
		current := s.locks[id] == l
		s.locksMu.Unlock()
		if current {
			return l
		}
		l.Unlock()
	}
}

func (s *MemoryStore) dropLock(id string) {
	s.locksMu.Lock()
	delete(s.locks, id)
	s.locksMu.Unlock()
}

func (s *MemoryStore) WithEventLock(ctx context.Context, eventID string, fn func(tx Store, ev *model.Event) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := s.lockEvent(eventID)
	defer l.Unlock()

	ev, err := s.Events().Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.dropLock(eventID)
		}
		return err
	}
	return fn(s, ev)
}

// ─── Events ──────────────────────────────────────────────────────────────────

type memEventStore struct{ s *MemoryStore }

func (m memEventStore) Get(_ context.Context, id string) (*model.Event, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	e, ok := m.s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEvent(e.v), nil
}

func (m memEventStore) GetByInitiator(ctx context.Context, id, initiatorID string) (*model.Event, error) {
	e, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.InitiatorID != initiatorID {
		return nil, ErrNotFound
	}
	return e, nil
}

// Save keeps the stored counter: it changes only through AddConfirmed.
func (m memEventStore) Save(_ context.Context, e *model.Event) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	v := *copyEvent(*e)
	if old, ok := m.s.events[e.ID]; ok {
		v.ConfirmedRequests = old.v.ConfirmedRequests
		m.s.events[e.ID] = memEvent{seq: old.seq, v: v}
		return nil
	}
	m.s.seq++
	m.s.events[e.ID] = memEvent{seq: m.s.seq, v: v}
	return nil
}

func (m memEventStore) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.events, id)
	m.s.dropLock(id)
	for rid, r := range m.s.requests {
		if r.v.EventID == id {
			delete(m.s.requests, rid)
		}
	}
	return nil
}

func (m memEventStore) AddConfirmed(_ context.Context, id string, delta int) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.events[id]
	if !ok {
		return 0, ErrNotFound
	}
	e.v.ConfirmedRequests += delta
	m.s.events[id] = e
	return e.v.ConfirmedRequests, nil
}

func (m memEventStore) Search(_ context.Context, f model.EventFilter, p model.Page) ([]model.Event, error) {
	m.s.mu.RLock()
	matched := make([]memEvent, 0, len(m.s.events))
	for _, e := range m.s.events {
		if f.Matches(&e.v) {
			matched = append(matched, e)
		}
	}
	m.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if f.Sort == model.SortEventDate && !matched[i].v.EventDate.Equal(matched[j].v.EventDate) {
			return matched[i].v.EventDate.Before(matched[j].v.EventDate)
		}
		return matched[i].seq < matched[j].seq
	})

	if p.From >= len(matched) {
		return nil, nil
	}
	end := len(matched)
	if p.Size < end-p.From {
		end = p.From + p.Size
	}
	out := make([]model.Event, 0, end-p.From)
	for _, e := range matched[p.From:end] {
		out = append(out, *copyEvent(e.v))
	}
	return out, nil
}

func copyEvent(e model.Event) *model.Event {
	if e.PublishedOn != nil {
		t := *e.PublishedOn
		e.PublishedOn = &t
	}
	return &e
}

// ─── Participation requests ──────────────────────────────────────────────────

type memRequestStore struct{ s *MemoryStore }

func (m memRequestStore) Get(_ context.Context, id string) (*model.ParticipationRequest, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	r, ok := m.s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	v := r.v
	return &v, nil
}

func (m memRequestStore) FindByRequesterAndEvent(_ context.Context, requesterID, eventID string) (*model.ParticipationRequest, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, r := range m.s.requests {
		if r.v.RequesterID == requesterID && r.v.EventID == eventID {
			v := r.v
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (m memRequestStore) Save(_ context.Context, pr *model.ParticipationRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for id, r := range m.s.requests {
		if id != pr.ID && r.v.RequesterID == pr.RequesterID && r.v.EventID == pr.EventID {
			return ErrDuplicate
		}
	}
	if old, ok := m.s.requests[pr.ID]; ok {
		m.s.requests[pr.ID] = memRequest{seq: old.seq, v: *pr}
		return nil
	}
	m.s.seq++
	m.s.requests[pr.ID] = memRequest{seq: m.s.seq, v: *pr}
	return nil
}

func (m memRequestStore) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.requests[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.requests, id)
	return nil
}

func (m memRequestStore) ListByEvent(_ context.Context, eventID string) ([]model.ParticipationRequest, error) {
	return m.list(func(r *model.ParticipationRequest) bool { return r.EventID == eventID }), nil
}

func (m memRequestStore) ListByRequester(_ context.Context, requesterID string) ([]model.ParticipationRequest, error) {
	return m.list(func(r *model.ParticipationRequest) bool { return r.RequesterID == requesterID }), nil
}

func (m memRequestStore) list(keep func(*model.ParticipationRequest) bool) []model.ParticipationRequest {
	m.s.mu.RLock()
	matched := make([]memRequest, 0)
	for _, r := range m.s.requests {
		if keep(&r.v) {
			matched = append(matched, r)
		}
	}
	m.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })
	out := make([]model.ParticipationRequest, 0, len(matched))
	for _, r := range matched {
		out = append(out, r.v)
	}
	return out
}
