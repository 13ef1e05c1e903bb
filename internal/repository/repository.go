// Package repository implements the engine's persistence: a PostgreSQL store
// built on pgx (no ORM) and an in-process store for tests and local runs.
//
// Every write that touches shared counters is a single conditional statement
// (increment-if-below-limit, decrement-if-sufficient, set-if-unset) or a
// unique-constraint-guarded insert. Nothing here reads a counter, decides in
// Go and writes it back.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/service"
)

var _ service.Store = (*Postgres)(nil)

// Postgres is the PostgreSQL-backed Store.
type Postgres struct {
	*EventRepository
	*RegistrationRepository
	*TeamRepository
}

// NewPostgres constructs a Postgres store over pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		EventRepository:        NewEventRepository(pool),
		RegistrationRepository: NewRegistrationRepository(pool),
		TeamRepository:         NewTeamRepository(pool),
	}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn returns the transaction bound to ctx, or the pool.
func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// admit adds n registrations and their revenue to the event's counters,
// provided the event is published and stays within its registration limit.
func admit(ctx context.Context, q querier, eventID string, n int, revenue int64) error {
	tag, err := q.Exec(ctx, `
UPDATE events
SET registration_count = registration_count + $2,
    revenue = revenue + $3
WHERE id = $1
  AND status = 'published'
  AND (registration_limit IS NULL OR registration_count + $2 <= registration_limit)`,
		eventID, n, revenue,
	)
	if err != nil {
		return fmt.Errorf("increment registration count: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var status model.EventStatus
	err = q.QueryRow(ctx, `SELECT status FROM events WHERE id = $1`, eventID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("get event status: %w", err)
	}
	if status != model.StatusPublished {
		return model.ErrEventNotOpen.WithMeta("status", string(status))
	}
	return model.ErrCapacityReached
}

// lockEvent takes the event row lock that bookings and team membership
// changes of one event serialise on.
func lockEvent(ctx context.Context, q querier, eventID string) error {
	var id string
	err := q.QueryRow(ctx, `SELECT id FROM events WHERE id = $1 FOR NO KEY UPDATE`, eventID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("lock event: %w", err)
	}
	return nil
}

// activeTicket returns the participant's non-cancelled ticket id for the
// event, or "".
func activeTicket(ctx context.Context, q querier, eventID, participantID string) (string, error) {
	var ticketID string
	err := q.QueryRow(ctx,
		`SELECT ticket_id FROM registrations WHERE event_id = $1 AND participant_id = $2 AND status <> 'cancelled'`,
		eventID, participantID,
	).Scan(&ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find active ticket: %w", err)
	}
	return ticketID, nil
}

// formingTeam returns the id of the forming team the participant belongs
// to for the event, or "".
func formingTeam(ctx context.Context, q querier, eventID, participantID string) (string, error) {
	var teamID string
	err := q.QueryRow(ctx, `
SELECT m.team_id
FROM team_members m
JOIN teams t ON t.id = m.team_id
WHERE m.event_id = $1 AND m.participant_id = $2 AND t.status = 'forming'`,
		eventID, participantID,
	).Scan(&teamID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find forming team: %w", err)
	}
	return teamID, nil
}

// reserve decrements a variant's stock if at least r.Quantity remains.
func reserve(ctx context.Context, q querier, r model.Reservation) (int, error) {
	var stock int
	err := q.QueryRow(ctx, `
UPDATE event_variants
SET stock = stock - $4
WHERE event_id = $1 AND size = $2 AND color = $3 AND stock >= $4
RETURNING stock`,
		r.EventID, r.Variant.Size, r.Variant.Color, r.Quantity,
	).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("reserve stock: %w", err)
	}

	err = q.QueryRow(ctx,
		`SELECT stock FROM event_variants WHERE event_id = $1 AND size = $2 AND color = $3`,
		r.EventID, r.Variant.Size, r.Variant.Color,
	).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, model.ErrVariantNotFound.WithMeta("size", r.Variant.Size).WithMeta("color", r.Variant.Color)
	}
	if err != nil {
		return 0, fmt.Errorf("get stock: %w", err)
	}
	return 0, model.ErrInsufficientStock.
		Withf("only %d left of %s/%s", stock, r.Variant.Size, r.Variant.Color).
		WithMeta("available", fmt.Sprint(stock))
}

func marshalJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return b, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
