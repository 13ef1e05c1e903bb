package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
)

// EventRepository handles persistence for events and their variant stock.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, organizer_id, name, description, status, event_type,
	registration_limit, purchase_limit, registration_deadline, start_date, end_date,
	fee, registration_count, revenue, form_schema, created_at, updated_at`

// CreateEvent inserts the event and, for merchandise, its variants.
func (r *EventRepository) CreateEvent(ctx context.Context, ev *model.Event) error {
	form, err := marshalJSON(formSchema(ev.FormSchema))
	if err != nil {
		return err
	}
	registrationLimit, purchaseLimit := kindLimits(ev.Kind)

	return withTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		_, err := q.Exec(ctx, `
INSERT INTO events (id, organizer_id, name, description, status, event_type,
	registration_limit, purchase_limit, registration_deadline, start_date, end_date,
	fee, registration_count, revenue, form_schema, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			ev.ID, ev.OrganizerID, ev.Name, ev.Description, ev.Status, ev.Type(),
			registrationLimit, purchaseLimit, ev.RegistrationDeadline, nullTime(ev.StartDate), nullTime(ev.EndDate),
			ev.Fee, ev.RegistrationCount, ev.Revenue, form, ev.CreatedAt, ev.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return insertVariants(ctx, q, ev)
	})
}

// GetEvent returns a single event or model.ErrEventNotFound.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	q := conn(ctx, r.db)
	ev, err := scanEvent(q.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if err := loadVariants(ctx, q, []*model.Event{ev}); err != nil {
		return nil, err
	}
	return ev, nil
}

// ListEvents returns events matching filter, newest first.
func (r *EventRepository) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.OrganizerID != "" {
		args = append(args, filter.OrganizerID)
		where = append(where, fmt.Sprintf("organizer_id = $%d", len(args)))
	}
	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	q := conn(ctx, r.db)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var ptrs []*model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ptrs = append(ptrs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	rows.Close()

	if err := loadVariants(ctx, q, ptrs); err != nil {
		return nil, err
	}
	events := make([]model.Event, 0, len(ptrs))
	for _, ev := range ptrs {
		events = append(events, *ev)
	}
	return events, nil
}

// UpdateDraft overwrites the editable fields while the event is a draft.
func (r *EventRepository) UpdateDraft(ctx context.Context, ev *model.Event, formChanged bool) error {
	form, err := marshalJSON(formSchema(ev.FormSchema))
	if err != nil {
		return err
	}
	registrationLimit, purchaseLimit := kindLimits(ev.Kind)

	return withTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		tag, err := q.Exec(ctx, `
UPDATE events
SET name = $2, description = $3, registration_limit = $4, purchase_limit = $5,
    registration_deadline = $6, start_date = $7, end_date = $8, fee = $9,
    form_schema = $10, updated_at = $11
WHERE id = $1
  AND status = 'draft'
  AND (NOT $12 OR registration_count = 0)`,
			ev.ID, ev.Name, ev.Description, registrationLimit, purchaseLimit,
			ev.RegistrationDeadline, nullTime(ev.StartDate), nullTime(ev.EndDate), ev.Fee,
			form, ev.UpdatedAt, formChanged,
		)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return r.draftConflict(ctx, q, ev.ID)
		}

		if _, ok := ev.Kind.(model.MerchandiseKind); ok {
			if _, err := q.Exec(ctx, `DELETE FROM event_variants WHERE event_id = $1`, ev.ID); err != nil {
				return fmt.Errorf("replace variants: %w", err)
			}
			return insertVariants(ctx, q, ev)
		}
		return nil
	})
}

// draftConflict explains why a draft-only write matched no row.
func (r *EventRepository) draftConflict(ctx context.Context, q querier, id string) error {
	var (
		status model.EventStatus
		count  int
	)
	err := q.QueryRow(ctx, `SELECT status, registration_count FROM events WHERE id = $1`, id).Scan(&status, &count)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("get event status: %w", err)
	}
	if status != model.StatusDraft {
		return model.ErrEventNotEditable.WithMeta("status", string(status))
	}
	return model.ErrFormLocked
}

// DeleteDraft removes a draft event. Variants, teams and registrations go
// with it through ON DELETE CASCADE in the same statement.
func (r *EventRepository) DeleteDraft(ctx context.Context, id string) error {
	q := conn(ctx, r.db)
	tag, err := q.Exec(ctx, `DELETE FROM events WHERE id = $1 AND status = 'draft'`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.draftConflict(ctx, q, id)
	}
	return nil
}

// TransitionStatus moves the event from -> to if it is still in from.
func (r *EventRepository) TransitionStatus(ctx context.Context, id string, from, to model.EventStatus, at time.Time) (*model.Event, error) {
	q := conn(ctx, r.db)
	tag, err := q.Exec(ctx,
		`UPDATE events SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, at,
	)
	if err != nil {
		return nil, fmt.Errorf("transition event: %w", err)
	}
	ev, err := r.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, model.ErrInvalidTransition.
			Withf("event is %s, not %s", ev.Status, from).
			WithMeta("from", string(ev.Status)).
			WithMeta("to", string(to))
	}
	return ev, nil
}

// ReserveStock decrements a variant's stock if enough remains.
func (r *EventRepository) ReserveStock(ctx context.Context, res model.Reservation) (int, error) {
	return reserve(ctx, conn(ctx, r.db), res)
}

func insertVariants(ctx context.Context, q querier, ev *model.Event) error {
	k, ok := ev.Kind.(model.MerchandiseKind)
	if !ok {
		return nil
	}
	for i, v := range k.Variants {
		_, err := q.Exec(ctx,
			`INSERT INTO event_variants (event_id, size, color, stock, position) VALUES ($1, $2, $3, $4, $5)`,
			ev.ID, v.Size, v.Color, v.Stock, i,
		)
		if err != nil {
			return fmt.Errorf("insert variant %s/%s: %w", v.Size, v.Color, err)
		}
	}
	return nil
}

// loadVariants attaches variants to the merchandise events in evs.
func loadVariants(ctx context.Context, q querier, evs []*model.Event) error {
	byID := make(map[string]*model.Event)
	var ids []string
	for _, ev := range evs {
		if _, ok := ev.Kind.(model.MerchandiseKind); ok {
			byID[ev.ID] = ev
			ids = append(ids, ev.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	rows, err := q.Query(ctx, `
SELECT event_id, size, color, stock
FROM event_variants
WHERE event_id = ANY($1)
ORDER BY event_id, position`, ids)
	if err != nil {
		return fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventID string
			v       model.Variant
		)
		if err := rows.Scan(&eventID, &v.Size, &v.Color, &v.Stock); err != nil {
			return fmt.Errorf("scan variant: %w", err)
		}
		ev := byID[eventID]
		k := ev.Kind.(model.MerchandiseKind)
		k.Variants = append(k.Variants, v)
		ev.Kind = k
	}
	return rows.Err()
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		ev                               model.Event
		eventType                        model.EventType
		registrationLimit, purchaseLimit *int
		start, end                       *time.Time
		form                             []byte
	)
	err := row.Scan(
		&ev.ID, &ev.OrganizerID, &ev.Name, &ev.Description, &ev.Status, &eventType,
		&registrationLimit, &purchaseLimit, &ev.RegistrationDeadline, &start, &end,
		&ev.Fee, &ev.RegistrationCount, &ev.Revenue, &form, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch eventType {
	case model.EventTypeMerchandise:
		k := model.MerchandiseKind{}
		if purchaseLimit != nil {
			k.PurchaseLimit = *purchaseLimit
		}
		ev.Kind = k
	default:
		k := model.NormalKind{}
		if registrationLimit != nil {
			k.RegistrationLimit = *registrationLimit
		}
		ev.Kind = k
	}
	ev.StartDate, ev.EndDate = derefTime(start), derefTime(end)
	ev.RegistrationDeadline = ev.RegistrationDeadline.UTC()
	ev.CreatedAt, ev.UpdatedAt = ev.CreatedAt.UTC(), ev.UpdatedAt.UTC()
	if len(form) > 0 {
		if err := json.Unmarshal(form, &ev.FormSchema); err != nil {
			return nil, fmt.Errorf("decode form schema: %w", err)
		}
	}
	return &ev, nil
}

func kindLimits(k model.Kind) (registrationLimit, purchaseLimit *int) {
	switch k := k.(type) {
	case model.NormalKind:
		return &k.RegistrationLimit, nil
	case model.MerchandiseKind:
		return nil, &k.PurchaseLimit
	}
	return nil, nil
}

func formSchema(fields []model.FormField) []model.FormField {
	if fields == nil {
		return []model.FormField{}
	}
	return fields
}
