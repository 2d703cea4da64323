package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/messaging"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEvent_LeadTimeBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev, err := f.events.CreateEvent(ctx, ownerID, newEventInput(f.now.Add(2*time.Hour)))
	require.NoError(t, err, "exactly two hours ahead is accepted")
	assert.Equal(t, model.StatePending, ev.State)
	assert.Zero(t, ev.ConfirmedRequests)
	assert.Equal(t, "Concerts", ev.Category.Name)
	assert.Equal(t, "Owner", ev.Initiator.Name)
	assert.Empty(t, ev.PublishedOn)

	_, err = f.events.CreateEvent(ctx, ownerID, newEventInput(f.now.Add(2*time.Hour-time.Second)))
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestCreateEvent_UnknownReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.events.CreateEvent(ctx, "ghost", newEventInput(f.now.Add(3*time.Hour)))
	assert.ErrorIs(t, err, model.ErrNotFound)

	in := newEventInput(f.now.Add(3 * time.Hour))
	in.CategoryID = "no-such-category"
	_, err = f.events.CreateEvent(ctx, ownerID, in)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPatchByAdmin_PublishOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, err := f.events.CreateEvent(ctx, ownerID, newEventInput(f.now.Add(3*time.Hour)))
	require.NoError(t, err)

	publish := model.PublishEvent
	got, err := f.events.PatchByAdmin(ctx, ev.ID, model.AdminEventPatch{StateAction: &publish})
	require.NoError(t, err)
	assert.Equal(t, model.StatePublished, got.State)
	assert.Equal(t, f.now.Format(model.DateTimeLayout), got.PublishedOn)
	assert.Contains(t, f.pub.keys(), messaging.EventPublished)

	_, err = f.events.PatchByAdmin(ctx, ev.ID, model.AdminEventPatch{StateAction: &publish})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestPatchByAdmin_PublishTooLate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, err := f.events.CreateEvent(ctx, ownerID, newEventInput(f.now.Add(2*time.Hour)))
	require.NoError(t, err)

	f.now = f.now.Add(61 * time.Minute)
	publish := model.PublishEvent
	_, err = f.events.PatchByAdmin(ctx, ev.ID, model.AdminEventPatch{StateAction: &publish})
	assert.ErrorIs(t, err, model.ErrValidation)

	stored, err := f.store.Events().Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatePending, stored.State)
}

func TestPatchByAdmin_RejectThenPublishConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, err := f.events.CreateEvent(ctx, ownerID, newEventInput(f.now.Add(3*time.Hour)))
	require.NoError(t, err)

	reject, publish := model.RejectEvent, model.PublishEvent
	got, err := f.events.PatchByAdmin(ctx, ev.ID, model.AdminEventPatch{StateAction: &reject})
	require.NoError(t, err)
	assert.Equal(t, model.StateCanceled, got.State)

	_, err = f.events.PatchByAdmin(ctx, ev.ID, model.AdminEventPatch{StateAction: &publish})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestPatchByAdmin_PublishedEventIsFrozen(t *testing.T) {
	f := newFixture(t)
	id := f.publishedEvent(t, 0, true)

	_, err := f.events.PatchByAdmin(context.Background(), id, model.AdminEventPatch{
		EventPatch: model.EventPatch{Title: ptr("New title")},
	})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestPatchByAdmin_Missing(t *testing.T) {
	f := newFixture(t)
	_, err := f.events.PatchByAdmin(context.Background(), "nope", model.AdminEventPatch{})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPatchByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, err := f.events.CreateEvent(ctx, ownerID, newEventInput(f.now.Add(3*time.Hour)))
	require.NoError(t, err)

	cancel := model.CancelReview
	got, err := f.events.PatchByOwner(ctx, ownerID, ev.ID, model.UserEventPatch{
		EventPatch:  model.EventPatch{Title: ptr("Renamed"), ParticipantLimit: ptr(5)},
		StateAction: &cancel,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, 5, got.ParticipantLimit)
	assert.Equal(t, model.StateCanceled, got.State)
	assert.Equal(t, ev.Annotation, got.Annotation, "nil fields are left unchanged")

	send := model.SendToReview
	got, err = f.events.PatchByOwner(ctx, ownerID, ev.ID, model.UserEventPatch{StateAction: &send})
	require.NoError(t, err)
	assert.Equal(t, model.StatePending, got.State)
}

func TestPatchByOwner_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev, err := f.events.CreateEvent(ctx, ownerID, newEventInput(f.now.Add(3*time.Hour)))
	require.NoError(t, err)

	_, err = f.events.PatchByOwner(ctx, userID(1), ev.ID, model.UserEventPatch{})
	assert.ErrorIs(t, err, model.ErrNotFound, "someone else's event")

	_, err = f.events.PatchByOwner(ctx, ownerID, ev.ID, model.UserEventPatch{
		EventPatch: model.EventPatch{EventDate: ptr(f.now.Add(time.Hour))},
	})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.events.PatchByOwner(ctx, ownerID, ev.ID, model.UserEventPatch{
		EventPatch: model.EventPatch{CategoryID: ptr("missing")},
	})
	assert.ErrorIs(t, err, model.ErrNotFound)

	id := f.publishedEvent(t, 0, true)
	_, err = f.events.PatchByOwner(ctx, ownerID, id, model.UserEventPatch{
		EventPatch: model.EventPatch{Title: ptr("x")},
	})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestSearch_FiltersAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	published := f.publishedEvent(t, 0, true)
	_, err := f.events.CreateEvent(ctx, ownerID, newEventInput(f.now.Add(3*time.Hour)))
	require.NoError(t, err)

	all, err := f.events.Search(ctx, model.EventFilter{Initiators: []string{ownerID}}, model.DefaultPage)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only, err := f.events.Search(ctx, model.EventFilter{States: []model.EventState{model.StatePublished}}, model.DefaultPage)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, published, only[0].ID)

	_, err = f.events.Search(ctx, model.EventFilter{}, model.Page{From: -1, Size: 10})
	assert.ErrorIs(t, err, model.ErrPagination)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestSearchPublic_SortsByViewsAndRecordsHit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.publishedEvent(t, 0, true)
	b := f.publishedEvent(t, 0, true)
	f.views.counts[b] = 10
	f.views.counts[a] = 3

	list, err := f.events.SearchPublic(ctx, model.EventFilter{Sort: model.SortViews}, model.Page{From: 0, Size: 1}, Visit{URI: "/events", IP: "1.2.3.4"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b, list[0].ID)
	assert.EqualValues(t, 10, list[0].Views)
	assert.Equal(t, []string{"/events"}, f.hits.uris)
}

func TestSearchPublic_DefaultsToFutureEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.publishedEvent(t, 0, true)

	f.now = f.now.Add(72 * time.Hour)
	list, err := f.events.SearchPublic(ctx, model.EventFilter{}, model.DefaultPage, Visit{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.publishedEvent(t, 0, true)
	f.views.counts[id] = 4

	got, err := f.events.GetPublished(ctx, id, Visit{URI: EventURI(id), IP: "1.2.3.4"})
	require.NoError(t, err)
	assert.EqualValues(t, 4, got.Views)
	assert.Equal(t, []string{"/events/" + id}, f.hits.uris)

	pending, err := f.events.CreateEvent(ctx, ownerID, newEventInput(f.now.Add(3*time.Hour)))
	require.NoError(t, err)
	_, err = f.events.GetPublished(ctx, pending.ID, Visit{})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetPublished_HitFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	id := f.publishedEvent(t, 0, true)
	f.hits.err = errors.New("stats down")

	_, err := f.events.GetPublished(context.Background(), id, Visit{URI: EventURI(id)})
	assert.NoError(t, err)
}

func TestGetPublished_ViewCounterFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	id := f.publishedEvent(t, 0, true)
	f.views.err = errors.New("stats down")

	_, err := f.events.GetPublished(context.Background(), id, Visit{})
	assert.ErrorContains(t, err, "stats down")
}

func TestOwnerReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.publishedEvent(t, 0, true)

	list, err := f.events.ListByOwner(ctx, ownerID, model.DefaultPage)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	got, err := f.events.GetByOwner(ctx, ownerID, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatePublished, got.State)

	_, err = f.events.GetByOwner(ctx, userID(1), id)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.events.ListByOwner(ctx, ownerID, model.Page{From: 0, Size: 0})
	assert.ErrorIs(t, err, model.ErrPagination)
}
