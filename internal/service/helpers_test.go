package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/directory"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/repository"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type fakeViews struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeViews) ViewCounts(_ context.Context, ids []string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]int64, len(ids))
	for _, id := range ids {
		out[id] = f.counts[id]
	}
	return out, nil
}

type fakeHits struct {
	mu   sync.Mutex
	uris []string
	err  error
}

func (f *fakeHits) Hit(_ context.Context, uri, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uris = append(f.uris, uri)
	return f.err
}

type published struct {
	key     string
	payload any
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakePublisher) Publish(_ context.Context, key string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{key, payload})
	return nil
}

func (f *fakePublisher) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.key)
	}
	return out
}

type fixture struct {
	store    *repository.MemoryStore
	dir      *directory.Memory
	views    *fakeViews
	hits     *fakeHits
	pub      *fakePublisher
	events   *EventService
	requests *RequestService
	now      time.Time
}

const (
	ownerID    = "owner"
	categoryID = "cat-1"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: repository.NewMemoryStore(),
		dir:   directory.NewMemory(),
		views: &fakeViews{counts: map[string]int64{}},
		hits:  &fakeHits{},
		pub:   &fakePublisher{},
		now:   testNow,
	}
	f.dir.PutUser(model.UserSummary{ID: ownerID, Name: "Owner"})
	f.dir.PutCategory(model.CategorySummary{ID: categoryID, Name: "Concerts"})
	for i := 1; i <= 50; i++ {
		f.dir.PutUser(model.UserSummary{ID: userID(i), Name: fmt.Sprintf("User %d", i)})
	}

	clock := func() time.Time { return f.now }
	opts := []Option{WithClock(clock), WithPublisher(f.pub), WithHitRecorder(f.hits)}
	f.events = NewEventService(f.store, f.dir, f.dir, f.views, opts...)
	f.requests = NewRequestService(f.store, f.dir, opts...)
	return f
}

func userID(i int) string { return fmt.Sprintf("user-%d", i) }

func newEventInput(date time.Time) model.NewEvent {
	return model.NewEvent{
		Title:             "Jazz night",
		Annotation:        "An evening of improvised music",
		Description:       "Bring friends, the bar opens at seven",
		CategoryID:        categoryID,
		EventDate:         date,
		Location:          model.Location{Lat: 55.75, Lon: 37.61},
		RequestModeration: true,
	}
}

// publishedEvent creates and publishes an event with the given capacity settings.
func (f *fixture) publishedEvent(t *testing.T, limit int, moderation bool) string {
	t.Helper()
	ctx := context.Background()
	in := newEventInput(f.now.Add(48 * time.Hour))
	in.ParticipantLimit = limit
	in.RequestModeration = moderation

	ev, err := f.events.CreateEvent(ctx, ownerID, in)
	require.NoError(t, err)

	publish := model.PublishEvent
	_, err = f.events.PatchByAdmin(ctx, ev.ID, model.AdminEventPatch{StateAction: &publish})
	require.NoError(t, err)
	return ev.ID
}

func (f *fixture) confirmedCount(t *testing.T, eventID string) int {
	t.Helper()
	ev, err := f.store.Events().Get(context.Background(), eventID)
	require.NoError(t, err)
	return ev.ConfirmedRequests
}

func ptr[T any](v T) *T { return &v }
