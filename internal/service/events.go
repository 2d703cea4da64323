package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/messaging"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/metrics"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/repository"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/stats"
	"github.com/google/uuid"
)

type eventNotice struct {
	EventID     string           `json:"eventId"`
	InitiatorID string           `json:"initiatorId"`
	State       model.EventState `json:"state"`
	EventDate   string           `json:"eventDate"`
}

func newEventNotice(e *model.Event) eventNotice {
	return eventNotice{
		EventID:     e.ID,
		InitiatorID: e.InitiatorID,
		State:       e.State,
		EventDate:   e.EventDate.Format(model.DateTimeLayout),
	}
}

// EventService owns the event lifecycle: creation, owner and admin edits, and reads.
type EventService struct {
	store      repository.Store
	users      UserDirectory
	categories CategoryDirectory
	views      ViewCounter
	opts       options
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(
	store repository.Store,
	users UserDirectory,
	categories CategoryDirectory,
	views ViewCounter,
	opts ...Option,
) *EventService {
	return &EventService{
		store:      store,
		users:      users,
		categories: categories,
		views:      views,
		opts:       buildOptions(opts),
	}
}

// CreateEvent registers a new PENDING event owned by ownerID.
func (s *EventService) CreateEvent(ctx context.Context, ownerID string, in model.NewEvent) (*model.EventFullView, error) {
	now := s.opts.now()
	if err := model.CheckLeadTime(in.EventDate, now, model.MinLeadTime); err != nil {
		return nil, err
	}
	if in.ParticipantLimit < 0 {
		return nil, model.Validation("participant limit must not be negative")
	}

	initiator, err := s.users.LookupUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	category, err := s.categories.LookupCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	ev := &model.Event{
		ID:                uuid.NewString(),
		Title:             in.Title,
		Annotation:        in.Annotation,
		Description:       in.Description,
		CategoryID:        category.ID,
		InitiatorID:       initiator.ID,
		Location:          in.Location,
		ParticipantLimit:  in.ParticipantLimit,
		RequestModeration: in.RequestModeration,
		Paid:              in.Paid,
		EventDate:         in.EventDate,
		CreatedOn:         now,
		State:             model.StatePending,
	}
	if err := s.store.Events().Save(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	metrics.RecordTransition(string(model.StatePending))

	view := model.ToFullView(ev, category, initiator, 0)
	return &view, nil
}

// PatchByOwner applies an initiator's edit. Published events are frozen.
func (s *EventService) PatchByOwner(ctx context.Context, ownerID, eventID string, patch model.UserEventPatch) (*model.EventFullView, error) {
	if _, err := s.users.LookupUser(ctx, ownerID); err != nil {
		return nil, err
	}
	if err := s.checkPatch(ctx, patch.EventPatch); err != nil {
		return nil, err
	}

	var updated *model.Event
	err := s.store.WithEventLock(ctx, eventID, func(tx repository.Store, ev *model.Event) error {
		if ev.InitiatorID != ownerID {
			return model.NotFound("event %s was not found", eventID)
		}
		if ev.State == model.StatePublished {
			return model.Conflict("published event %s cannot be changed", ev.ID)
		}

		patch.Apply(ev)
		if patch.StateAction != nil {
			if err := ev.ApplyUserAction(*patch.StateAction); err != nil {
				return err
			}
		}
		if err := tx.Events().Save(ctx, ev); err != nil {
			return err
		}
		updated = ev
		return nil
	})
	if err != nil {
		return nil, eventNotFound(err, eventID)
	}
	if patch.StateAction != nil {
		metrics.RecordTransition(string(updated.State))
	}
	return s.fullView(ctx, updated)
}

// PatchByAdmin applies an administrator's edit and optional publish/reject.
func (s *EventService) PatchByAdmin(ctx context.Context, eventID string, patch model.AdminEventPatch) (*model.EventFullView, error) {
	if err := s.checkPatch(ctx, patch.EventPatch); err != nil {
		return nil, err
	}

	var updated *model.Event
	err := s.store.WithEventLock(ctx, eventID, func(tx repository.Store, ev *model.Event) error {
		if ev.State == model.StatePublished {
			return model.Conflict("published event %s cannot be changed", ev.ID)
		}

		patch.Apply(ev)
		if patch.StateAction != nil {
			var err error
			switch *patch.StateAction {
			case model.PublishEvent:
				err = ev.Publish(s.opts.now())
			case model.RejectEvent:
				err = ev.Reject()
			default:
				err = model.Validation("unknown state action %q", *patch.StateAction)
			}
			if err != nil {
				return err
			}
		}
		if err := tx.Events().Save(ctx, ev); err != nil {
			return err
		}
		updated = ev
		return nil
	})
	if err != nil {
		return nil, eventNotFound(err, eventID)
	}

	if patch.StateAction != nil {
		metrics.RecordTransition(string(updated.State))
		key := messaging.EventRejected
		if updated.State == model.StatePublished {
			key = messaging.EventPublished
		}
		s.opts.publish(ctx, key, newEventNotice(updated))
	}
	return s.fullView(ctx, updated)
}

// checkPatch validates the fields that need a clock or a collaborator.
func (s *EventService) checkPatch(ctx context.Context, p model.EventPatch) error {
	if p.EventDate != nil {
		if err := model.CheckLeadTime(*p.EventDate, s.opts.now(), model.MinLeadTime); err != nil {
			return err
		}
	}
	if p.ParticipantLimit != nil && *p.ParticipantLimit < 0 {
		return model.Validation("participant limit must not be negative")
	}
	if p.CategoryID != nil {
		if _, err := s.categories.LookupCategory(ctx, *p.CategoryID); err != nil {
			return err
		}
	}
	return nil
}

// Search is the administrative search over events in any state.
func (s *EventService) Search(ctx context.Context, f model.EventFilter, p model.Page) ([]model.EventFullView, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if f.RangeStart != nil && f.RangeEnd != nil && f.RangeEnd.Before(*f.RangeStart) {
		return nil, model.Validation("rangeEnd must not be before rangeStart")
	}

	events, err := s.store.Events().Search(ctx, f, p)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	counts, err := s.viewCounts(ctx, events)
	if err != nil {
		return nil, err
	}

	r := newResolver(s.users, s.categories)
	out := make([]model.EventFullView, 0, len(events))
	for i := range events {
		cat, initiator, err := r.resolve(ctx, &events[i])
		if err != nil {
			return nil, err
		}
		out = append(out, model.ToFullView(&events[i], cat, initiator, counts[events[i].ID]))
	}
	return out, nil
}

// SearchPublic lists published events. Without a date range only future events
// are returned. Sorting by VIEWS orders by view count, highest first.
func (s *EventService) SearchPublic(ctx context.Context, f model.EventFilter, p model.Page, visit Visit) ([]model.EventShortView, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if f.RangeStart != nil && f.RangeEnd != nil && f.RangeEnd.Before(*f.RangeStart) {
		return nil, model.Validation("rangeEnd must not be before rangeStart")
	}

	f.Initiators = nil
	f.States = []model.EventState{model.StatePublished}
	if f.RangeStart == nil && f.RangeEnd == nil {
		now := s.opts.now()
		f.RangeStart = &now
	}

	s.opts.recordHit(ctx, visit)

	storePage := p
	if f.Sort == model.SortViews {
		storePage = model.Page{From: 0, Size: math.MaxInt32}
	}
	events, err := s.store.Events().Search(ctx, f, storePage)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	counts, err := s.viewCounts(ctx, events)
	if err != nil {
		return nil, err
	}

	if f.Sort == model.SortViews {
		sort.SliceStable(events, func(i, j int) bool {
			return counts[events[i].ID] > counts[events[j].ID]
		})
		events = pageOf(events, p)
	}
	return s.shortViews(ctx, events, counts)
}

// GetPublished returns a published event and records the visit.
func (s *EventService) GetPublished(ctx context.Context, eventID string, visit Visit) (*model.EventFullView, error) {
	ev, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, eventNotFound(err, eventID)
	}
	if ev.State != model.StatePublished {
		return nil, model.NotFound("event %s was not found", eventID)
	}

	s.opts.recordHit(ctx, visit)
	return s.fullView(ctx, ev)
}

// ListByOwner lists the events created by ownerID.
func (s *EventService) ListByOwner(ctx context.Context, ownerID string, p model.Page) ([]model.EventShortView, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.LookupUser(ctx, ownerID); err != nil {
		return nil, err
	}

	events, err := s.store.Events().Search(ctx, model.EventFilter{Initiators: []string{ownerID}}, p)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	counts, err := s.viewCounts(ctx, events)
	if err != nil {
		return nil, err
	}
	return s.shortViews(ctx, events, counts)
}

// GetByOwner returns one of ownerID's events in any state.
func (s *EventService) GetByOwner(ctx context.Context, ownerID, eventID string) (*model.EventFullView, error) {
	if _, err := s.users.LookupUser(ctx, ownerID); err != nil {
		return nil, err
	}
	ev, err := s.store.Events().GetByInitiator(ctx, eventID, ownerID)
	if err != nil {
		return nil, eventNotFound(err, eventID)
	}
	return s.fullView(ctx, ev)
}

func (s *EventService) fullView(ctx context.Context, ev *model.Event) (*model.EventFullView, error) {
	counts, err := s.viewCounts(ctx, []model.Event{*ev})
	if err != nil {
		return nil, err
	}
	cat, initiator, err := newResolver(s.users, s.categories).resolve(ctx, ev)
	if err != nil {
		return nil, err
	}
	view := model.ToFullView(ev, cat, initiator, counts[ev.ID])
	return &view, nil
}

func (s *EventService) shortViews(ctx context.Context, events []model.Event, counts map[string]int64) ([]model.EventShortView, error) {
	r := newResolver(s.users, s.categories)
	out := make([]model.EventShortView, 0, len(events))
	for i := range events {
		cat, initiator, err := r.resolve(ctx, &events[i])
		if err != nil {
			return nil, err
		}
		out = append(out, model.ToShortView(&events[i], cat, initiator, counts[events[i].ID]))
	}
	return out, nil
}

func (s *EventService) viewCounts(ctx context.Context, events []model.Event) (map[string]int64, error) {
	if len(events) == 0 {
		return map[string]int64{}, nil
	}
	ids := make([]string, 0, len(events))
	for i := range events {
		ids = append(ids, events[i].ID)
	}
	counts, err := s.views.ViewCounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("view counts: %w", err)
	}
	return counts, nil
}

// EventURI is the public path under which hits for an event are recorded.
func EventURI(eventID string) string {
	return stats.EventURIPrefix + eventID
}

func pageOf[T any](xs []T, p model.Page) []T {
	if p.From >= len(xs) {
		return xs[:0]
	}
	end := p.From + p.Size
	if end > len(xs) || end < p.From {
		end = len(xs)
	}
	return xs[p.From:end]
}

// resolver memoizes directory lookups within one call.
type resolver struct {
	users      UserDirectory
	categories CategoryDirectory
	userCache  map[string]model.UserSummary
	catCache   map[string]model.CategorySummary
}

func newResolver(users UserDirectory, categories CategoryDirectory) *resolver {
	return &resolver{
		users:      users,
		categories: categories,
		userCache:  make(map[string]model.UserSummary),
		catCache:   make(map[string]model.CategorySummary),
	}
}

func (r *resolver) resolve(ctx context.Context, ev *model.Event) (model.CategorySummary, model.UserSummary, error) {
	cat, ok := r.catCache[ev.CategoryID]
	if !ok {
		var err error
		if cat, err = r.categories.LookupCategory(ctx, ev.CategoryID); err != nil {
			return model.CategorySummary{}, model.UserSummary{}, err
		}
		r.catCache[ev.CategoryID] = cat
	}
	user, ok := r.userCache[ev.InitiatorID]
	if !ok {
		var err error
		if user, err = r.users.LookupUser(ctx, ev.InitiatorID); err != nil {
			return model.CategorySummary{}, model.UserSummary{}, err
		}
		r.userCache[ev.InitiatorID] = user
	}
	return cat, user, nil
}
