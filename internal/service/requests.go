package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/logger"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/messaging"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/metrics"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/repository"
	"github.com/google/uuid"
)

type requestNotice struct {
	RequestID   string              `json:"requestId"`
	EventID     string              `json:"eventId"`
	RequesterID string              `json:"requesterId"`
	Status      model.RequestStatus `json:"status"`
}

func newRequestNotice(pr *model.ParticipationRequest) requestNotice {
	return requestNotice{
		RequestID:   pr.ID,
		EventID:     pr.EventID,
		RequesterID: pr.RequesterID,
		Status:      pr.Status,
	}
}

func statusRoutingKey(st model.RequestStatus) string {
	switch st {
	case model.RequestConfirmed:
		return messaging.RequestConfirmed
	case model.RequestRejected:
		return messaging.RequestRejected
	case model.RequestCanceled:
		return messaging.RequestCanceled
	}
	return messaging.RequestCreated
}

// RequestService is the admission controller for participation requests.
type RequestService struct {
	store repository.Store
	users UserDirectory
	opts  options
}

// NewRequestService constructs a RequestService with its dependencies.
func NewRequestService(store repository.Store, users UserDirectory, opts ...Option) *RequestService {
	return &RequestService{store: store, users: users, opts: buildOptions(opts)}
}

// CreateRequest submits requesterID's participation in eventID.
//
// All checks run under the event lock so that two concurrent requests cannot
// both take the last seat. The request is CONFIRMED immediately when the event
// is unlimited or does not require moderation, PENDING otherwise.
func (s *RequestService) CreateRequest(ctx context.Context, requesterID, eventID string) (*model.RequestView, error) {
	if _, err := s.users.LookupUser(ctx, requesterID); err != nil {
		return nil, err
	}

	var created *model.ParticipationRequest
	err := s.store.WithEventLock(ctx, eventID, func(tx repository.Store, ev *model.Event) error {
		_, err := tx.Requests().FindByRequesterAndEvent(ctx, requesterID, eventID)
		switch {
		case err == nil:
			return model.Conflict("user %s has already requested participation in event %s", requesterID, eventID)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		if ev.InitiatorID == requesterID {
			return model.Conflict("the initiator cannot request participation in their own event")
		}
		if ev.State != model.StatePublished {
			return model.Conflict("event %s is not published", eventID)
		}
		if ev.IsFull() {
			return &model.Error{
				Kind:    model.ErrConflict,
				Message: fmt.Sprintf("event %s has reached its participant limit", eventID),
				Meta:    capacityMeta(ev),
			}
		}

		pr := &model.ParticipationRequest{
			ID:          uuid.NewString(),
			RequesterID: requesterID,
			EventID:     eventID,
			Created:     s.opts.now(),
			Status:      model.RequestPending,
		}
		if ev.AutoConfirm() {
			pr.Status = model.RequestConfirmed
		}

		if err := tx.Requests().Save(ctx, pr); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return model.Conflict("user %s has already requested participation in event %s", requesterID, eventID)
			}
			return err
		}
		if pr.Status == model.RequestConfirmed {
			if _, err := tx.Events().AddConfirmed(ctx, eventID, 1); err != nil {
				return err
			}
		}
		created = pr
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			metrics.RecordAdmission(metrics.OutcomeConflict)
		}
		return nil, eventNotFound(err, eventID)
	}

	if created.Status == model.RequestConfirmed {
		metrics.RecordAdmission(metrics.OutcomeConfirmed)
	} else {
		metrics.RecordAdmission(metrics.OutcomePending)
	}
	s.opts.publish(ctx, messaging.RequestCreated, newRequestNotice(created))
	if created.Status == model.RequestConfirmed {
		s.opts.publish(ctx, messaging.RequestConfirmed, newRequestNotice(created))
	}

	view := model.ToRequestView(created)
	return &view, nil
}

// CancelRequest withdraws a PENDING request. Canceling twice returns the
// request unchanged; decided requests cannot be canceled.
func (s *RequestService) CancelRequest(ctx context.Context, requesterID, requestID string) (*model.RequestView, error) {
	if _, err := s.users.LookupUser(ctx, requesterID); err != nil {
		return nil, err
	}

	pr, err := s.store.Requests().Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NotFound("request %s was not found", requestID)
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	if pr.RequesterID != requesterID {
		return nil, model.NotFound("request %s was not found", requestID)
	}

	changed := false
	err = s.store.WithEventLock(ctx, pr.EventID, func(tx repository.Store, _ *model.Event) error {
		cur, err := tx.Requests().Get(ctx, requestID)
		if err != nil {
			return err
		}
		if cur.Status == model.RequestCanceled {
			pr = cur
			return nil
		}
		if cur.Terminal() {
			return model.Conflict("request %s has already been %s", requestID, cur.Status)
		}

		cur.Status = model.RequestCanceled
		if err := tx.Requests().Save(ctx, cur); err != nil {
			return err
		}
		pr, changed = cur, true
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NotFound("request %s was not found", requestID)
		}
		return nil, err
	}

	if changed {
		s.opts.publish(ctx, messaging.RequestCanceled, newRequestNotice(pr))
	}
	view := model.ToRequestView(pr)
	return &view, nil
}

// Moderate applies an organizer decision to a batch of requests of one event.
//
// Requests are processed in list order under the event lock. Every decision is
// persisted as it is made: when the batch stops on an already processed request,
// or when the participant limit is hit, earlier decisions stay committed. In the
// latter case the returned Conflict carries them in Partial.
func (s *RequestService) Moderate(ctx context.Context, ownerID, eventID string, upd model.StatusUpdate) (*model.StatusUpdateResult, error) {
	if upd.Status != model.RequestConfirmed && upd.Status != model.RequestRejected {
		return nil, model.Validation("status must be CONFIRMED or REJECTED, got %q", upd.Status)
	}
	if _, err := s.users.LookupUser(ctx, ownerID); err != nil {
		return nil, err
	}

	result := &model.StatusUpdateResult{
		ConfirmedRequests: []model.RequestView{},
		RejectedRequests:  []model.RequestView{},
	}
	var (
		decided  []model.ParticipationRequest
		batchErr error
	)

	err := s.store.WithEventLock(ctx, eventID, func(tx repository.Store, ev *model.Event) error {
		if ev.InitiatorID != ownerID {
			return model.NotFound("event %s was not found", eventID)
		}

		// Resolve every id before writing anything; repeated ids share one record.
		loaded := make(map[string]*model.ParticipationRequest, len(upd.RequestIDs))
		batch := make([]*model.ParticipationRequest, 0, len(upd.RequestIDs))
		for _, id := range upd.RequestIDs {
			pr, ok := loaded[id]
			if !ok {
				var err error
				pr, err = tx.Requests().Get(ctx, id)
				if errors.Is(err, repository.ErrNotFound) || (err == nil && pr.EventID != eventID) {
					return model.NotFound("request %s was not found for event %s", id, eventID)
				}
				if err != nil {
					return err
				}
				loaded[id] = pr
			}
			batch = append(batch, pr)
		}

		limitReached := false
		decide := func(pr *model.ParticipationRequest, st model.RequestStatus) error {
			pr.Status = st
			if err := tx.Requests().Save(ctx, pr); err != nil {
				return err
			}
			if st == model.RequestConfirmed {
				n, err := tx.Events().AddConfirmed(ctx, eventID, 1)
				if err != nil {
					return err
				}
				ev.ConfirmedRequests = n
				result.ConfirmedRequests = append(result.ConfirmedRequests, model.ToRequestView(pr))
			} else {
				result.RejectedRequests = append(result.RejectedRequests, model.ToRequestView(pr))
			}
			decided = append(decided, *pr)
			return nil
		}

		for _, pr := range batch {
			if pr.Status != model.RequestPending {
				batchErr = model.Conflict("request %s has already been processed", pr.ID)
				metrics.RecordModerationBatch(metrics.BatchAlreadyProcessed)
				return nil
			}

			target := upd.Status
			if target == model.RequestConfirmed && ev.IsFull() {
				limitReached = true
				target = model.RequestRejected
			}
			if err := decide(pr, target); err != nil {
				return err
			}
		}

		if limitReached {
			batchErr = &model.Error{
				Kind:    model.ErrConflict,
				Message: fmt.Sprintf("participant limit of event %s has been reached", eventID),
				Meta:    capacityMeta(ev),
				Partial: result,
			}
			metrics.RecordModerationBatch(metrics.BatchCapacityExhausted)
			return nil
		}
		metrics.RecordModerationBatch(metrics.BatchOK)
		return nil
	})
	if err != nil {
		return nil, eventNotFound(err, eventID)
	}

	for i := range decided {
		pr := &decided[i]
		if pr.Status == model.RequestConfirmed {
			metrics.RecordAdmission(metrics.OutcomeConfirmed)
		} else {
			metrics.RecordAdmission(metrics.OutcomeRejected)
		}
		s.opts.publish(ctx, statusRoutingKey(pr.Status), newRequestNotice(pr))
	}

	if batchErr != nil {
		logger.WithCtx(ctx).Debug().Err(batchErr).Str("event_id", eventID).Int("decided", len(decided)).Msg("moderation batch stopped")
		return nil, batchErr
	}
	return result, nil
}

// ListByRequester returns every request submitted by requesterID.
func (s *RequestService) ListByRequester(ctx context.Context, requesterID string) ([]model.RequestView, error) {
	if _, err := s.users.LookupUser(ctx, requesterID); err != nil {
		return nil, err
	}
	list, err := s.store.Requests().ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return model.ToRequestViews(list), nil
}

// ListForEvent returns the requests submitted to one of ownerID's events.
func (s *RequestService) ListForEvent(ctx context.Context, ownerID, eventID string) ([]model.RequestView, error) {
	if _, err := s.users.LookupUser(ctx, ownerID); err != nil {
		return nil, err
	}
	if _, err := s.store.Events().GetByInitiator(ctx, eventID, ownerID); err != nil {
		return nil, eventNotFound(err, eventID)
	}
	list, err := s.store.Requests().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return model.ToRequestViews(list), nil
}

func capacityMeta(ev *model.Event) map[string]string {
	return map[string]string{
		"participantLimit":  strconv.Itoa(ev.ParticipantLimit),
		"confirmedRequests": strconv.Itoa(ev.ConfirmedRequests),
	}
}
