package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// PgStore is the Postgres-backed Store.
type PgStore struct {
	pool *pgxpool.Pool // nil for a transaction-bound store
	db   querier
}

// NewPgStore constructs a PgStore over a connection pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, db: pool}
}

func (s *PgStore) Events() EventStore     { return &pgEventStore{db: s.db} }
func (s *PgStore) Requests() RequestStore { return &pgRequestStore{db: s.db} }

// WithEventLock serializes every writer of one event row.
//
// A naive read-then-write of confirmed_requests lets two transactions read the
// same count, both see a free seat and both confirm, overshooting the limit.
// SELECT … FOR UPDATE takes a row-level exclusive lock on the event: any other
// transaction issuing the same statement for this id blocks until we COMMIT or
// ROLLBACK, so check-then-increment runs one at a time per event. Other events
// are unaffected.
func (s *PgStore) WithEventLock(ctx context.Context, eventID string, fn func(tx Store, ev *model.Event) error) (err error) {
	if s.pool == nil {
		return errors.New("event lock: already inside a transaction")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ev, err := scanEvent(tx.QueryRow(ctx, selectEvents+` WHERE id = $1 FOR UPDATE`, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock event row: %w", err)
	}

	if err = fn(&PgStore{db: tx}, ev); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ─── Events ──────────────────────────────────────────────────────────────────

const selectEvents = `SELECT id, title, annotation, description, category_id, initiator_id,
       location_lat, location_lon, participant_limit, request_moderation, paid,
       event_date, created_on, published_on, state, confirmed_requests
  FROM events`

type pgEventStore struct {
	db querier
}

func scanEvent(row scanner) (*model.Event, error) {
	var (
		e     model.Event
		state string
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Annotation, &e.Description, &e.CategoryID, &e.InitiatorID,
		&e.Location.Lat, &e.Location.Lon, &e.ParticipantLimit, &e.RequestModeration, &e.Paid,
		&e.EventDate, &e.CreatedOn, &e.PublishedOn, &state, &e.ConfirmedRequests,
	)
	if err != nil {
		return nil, err
	}
	e.State = model.EventState(state)
	return &e, nil
}

func (r *pgEventStore) Get(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, selectEvents+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *pgEventStore) GetByInitiator(ctx context.Context, id, initiatorID string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, selectEvents+` WHERE id = $1 AND initiator_id = $2`, id, initiatorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event by initiator: %w", err)
	}
	return e, nil
}

func (r *pgEventStore) Save(ctx context.Context, e *model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, annotation, description, category_id, initiator_id,
		                     location_lat, location_lon, participant_limit, request_moderation, paid,
		                     event_date, created_on, published_on, state, confirmed_requests)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (id) DO UPDATE SET
		     title = EXCLUDED.title,
		     annotation = EXCLUDED.annotation,
		     description = EXCLUDED.description,
		     category_id = EXCLUDED.category_id,
		     location_lat = EXCLUDED.location_lat,
		     location_lon = EXCLUDED.location_lon,
		     participant_limit = EXCLUDED.participant_limit,
		     request_moderation = EXCLUDED.request_moderation,
		     paid = EXCLUDED.paid,
		     event_date = EXCLUDED.event_date,
		     published_on = EXCLUDED.published_on,
		     state = EXCLUDED.state`,
		e.ID, e.Title, e.Annotation, e.Description, e.CategoryID, e.InitiatorID,
		e.Location.Lat, e.Location.Lon, e.ParticipantLimit, e.RequestModeration, e.Paid,
		e.EventDate, e.CreatedOn, e.PublishedOn, string(e.State), e.ConfirmedRequests,
	)
	if err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

func (r *pgEventStore) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddConfirmed never touches the counter through a Save round trip, so the
// stored value is the only source of truth.
func (r *pgEventStore) AddConfirmed(ctx context.Context, id string, delta int) (int, error) {
	var confirmed int
	err := r.db.QueryRow(ctx,
		`UPDATE events
		    SET confirmed_requests = confirmed_requests + $2
		  WHERE id = $1
		  RETURNING confirmed_requests`,
		id, delta,
	).Scan(&confirmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("update confirmed_requests: %w", err)
	}
	return confirmed, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches text literally anywhere in the column.
func containsPattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}

func (r *pgEventStore) Search(ctx context.Context, f model.EventFilter, p model.Page) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.Initiators) > 0 {
		where = append(where, "initiator_id = ANY("+arg(f.Initiators)+")")
	}
	if len(f.States) > 0 {
		states := make([]string, 0, len(f.States))
		for _, st := range f.States {
			states = append(states, string(st))
		}
		where = append(where, "state = ANY("+arg(states)+")")
	}
	if len(f.Categories) > 0 {
		where = append(where, "category_id = ANY("+arg(f.Categories)+")")
	}
	if f.RangeStart != nil {
		where = append(where, "event_date >= "+arg(*f.RangeStart))
	}
	if f.RangeEnd != nil {
		where = append(where, "event_date <= "+arg(*f.RangeEnd))
	}
	if f.Text != "" {
		pattern := arg(containsPattern(f.Text))
		where = append(where, "(annotation ILIKE "+pattern+` ESCAPE '\' OR description ILIKE `+pattern+` ESCAPE '\')`)
	}
	if f.Paid != nil {
		where = append(where, "paid = "+arg(*f.Paid))
	}
	if f.OnlyAvailable {
		where = append(where, "(participant_limit = 0 OR confirmed_requests < participant_limit)")
	}

	q := selectEvents
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Sort == model.SortEventDate {
		q += " ORDER BY event_date ASC, id ASC"
	} else {
		q += " ORDER BY created_on ASC, id ASC"
	}
	q += " OFFSET " + arg(p.From) + " LIMIT " + arg(p.Size)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// ─── Participation requests ──────────────────────────────────────────────────

const selectRequests = `SELECT id, requester_id, event_id, created, status FROM participation_requests`

type pgRequestStore struct {
	db querier
}

func scanRequest(row scanner) (*model.ParticipationRequest, error) {
	var (
		pr     model.ParticipationRequest
		status string
	)
	if err := row.Scan(&pr.ID, &pr.RequesterID, &pr.EventID, &pr.Created, &status); err != nil {
		return nil, err
	}
	pr.Status = model.RequestStatus(status)
	return &pr, nil
}

func (r *pgRequestStore) Get(ctx context.Context, id string) (*model.ParticipationRequest, error) {
	pr, err := scanRequest(r.db.QueryRow(ctx, selectRequests+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return pr, nil
}

func (r *pgRequestStore) FindByRequesterAndEvent(ctx context.Context, requesterID, eventID string) (*model.ParticipationRequest, error) {
	pr, err := scanRequest(r.db.QueryRow(ctx,
		selectRequests+` WHERE requester_id = $1 AND event_id = $2`, requesterID, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find request: %w", err)
	}
	return pr, nil
}

func (r *pgRequestStore) Save(ctx context.Context, pr *model.ParticipationRequest) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO participation_requests (id, requester_id, event_id, created, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
		pr.ID, pr.RequesterID, pr.EventID, pr.Created, string(pr.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("save request: %w", err)
	}
	return nil
}

func (r *pgRequestStore) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM participation_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRequestStore) ListByEvent(ctx context.Context, eventID string) ([]model.ParticipationRequest, error) {
	return r.list(ctx, selectRequests+` WHERE event_id = $1 ORDER BY created ASC, id ASC`, eventID)
}

func (r *pgRequestStore) ListByRequester(ctx context.Context, requesterID string) ([]model.ParticipationRequest, error) {
	return r.list(ctx, selectRequests+` WHERE requester_id = $1 ORDER BY created ASC, id ASC`, requesterID)
}

func (r *pgRequestStore) list(ctx context.Context, q string, args ...any) ([]model.ParticipationRequest, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []model.ParticipationRequest
	for rows.Next() {
		pr, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, *pr)
	}
	return out, rows.Err()
}
