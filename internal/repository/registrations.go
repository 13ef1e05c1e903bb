package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
)

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, ticket_id, event_id, participant_id, COALESCE(team_id, ''),
	status, payment_status, form_data, variant_size, variant_color, quantity, amount,
	attended, attendance_timestamp, created_at`

// Book commits a registration in one transaction:
//
//  1. the event counter is incremented only if the event is published and
//     below its limit (the UPDATE row lock serialises concurrent bookings of
//     one event, and the WHERE clause is re-evaluated after the lock wait);
//  2. a member of a forming team is refused; team creation and joins take
//     the same event row lock, so membership cannot change underneath;
//  3. the variant stock is decremented only if enough remains;
//  4. the row is inserted under the partial unique index on
//     (event_id, participant_id) for non-cancelled rows.
//
// Any failure rolls back all of it.
func (r *RegistrationRepository) Book(ctx context.Context, b model.Booking) error {
	reg := b.Registration
	return withTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		if err := admit(ctx, q, reg.EventID, 1, reg.Amount); err != nil {
			return err
		}
		teamID, err := formingTeam(ctx, q, reg.EventID, reg.ParticipantID)
		if err != nil {
			return err
		}
		if teamID != "" {
			return model.ErrAlreadyInTeam.WithMeta("team_id", teamID)
		}
		if b.Reservation != nil {
			if _, err := reserve(ctx, q, *b.Reservation); err != nil {
				return err
			}
		}
		return insertRegistration(ctx, q, &reg)
	})
}

func insertRegistration(ctx context.Context, q querier, reg *model.Registration) error {
	var form []byte
	if reg.FormData != nil {
		var err error
		if form, err = marshalJSON(reg.FormData); err != nil {
			return err
		}
	}
	var size, color *string
	if reg.Variant != nil {
		size, color = &reg.Variant.Size, &reg.Variant.Color
	}

	_, err := q.Exec(ctx, `
INSERT INTO registrations (id, ticket_id, event_id, participant_id, team_id, status, payment_status,
	form_data, variant_size, variant_color, quantity, amount, attended, attendance_timestamp, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		reg.ID, reg.TicketID, reg.EventID, reg.ParticipantID, nullString(reg.TeamID), reg.Status, reg.PaymentStatus,
		form, size, color, reg.Quantity, reg.Amount, reg.Attended, reg.AttendanceTimestamp, reg.CreatedAt,
	)
	if err == nil {
		return nil
	}
	switch constraint, _ := uniqueViolation(err); constraint {
	case constraintActiveRegistration:
		return model.ErrAlreadyRegistered.WithMeta("participant_id", reg.ParticipantID)
	case constraintTicketID:
		return model.ErrTicketIDTaken.WithMeta("ticket_id", reg.TicketID)
	}
	return fmt.Errorf("insert registration: %w", err)
}

// FindActiveRegistration returns the participant's non-cancelled
// registration for the event, or nil.
func (r *RegistrationRepository) FindActiveRegistration(ctx context.Context, eventID, participantID string) (*model.Registration, error) {
	reg, err := scanRegistration(conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = $1 AND participant_id = $2 AND status <> 'cancelled'`,
		eventID, participantID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}

// GetRegistrationByTicket returns a registration or model.ErrTicketNotFound.
func (r *RegistrationRepository) GetRegistrationByTicket(ctx context.Context, ticketID string) (*model.Registration, error) {
	return getRegistration(ctx, conn(ctx, r.db), ticketID)
}

func getRegistration(ctx context.Context, q querier, ticketID string) (*model.Registration, error) {
	reg, err := scanRegistration(q.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE ticket_id = $1`, ticketID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// ListRegistrations returns all registrations for an event, oldest first.
func (r *RegistrationRepository) ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = $1
		 ORDER BY created_at ASC, ticket_id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	regs := []model.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

// MarkAttended sets attendance with a single set-if-unset update.
func (r *RegistrationRepository) MarkAttended(ctx context.Context, ticketID string, at time.Time) (*model.Registration, bool, error) {
	q := conn(ctx, r.db)
	reg, err := scanRegistration(q.QueryRow(ctx, `
UPDATE registrations
SET attended = TRUE, attendance_timestamp = $2, status = 'completed'
WHERE ticket_id = $1 AND NOT attended AND status = 'registered'
RETURNING `+registrationColumns, ticketID, at))
	if err == nil {
		return reg, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("mark attended: %w", err)
	}

	reg, err = getRegistration(ctx, q, ticketID)
	if err != nil {
		return nil, false, err
	}
	if reg.Attended {
		return reg, false, nil
	}
	return nil, false, model.ErrAlreadyCancelled
}

// CancelRegistration marks a registered ticket cancelled, freeing the
// participant's slot. Counters and stock are left as they are. Attended
// tickets are completed and can no longer be cancelled.
func (r *RegistrationRepository) CancelRegistration(ctx context.Context, ticketID string) (*model.Registration, error) {
	q := conn(ctx, r.db)
	reg, err := scanRegistration(q.QueryRow(ctx, `
UPDATE registrations
SET status = 'cancelled'
WHERE ticket_id = $1 AND status = 'registered'
RETURNING `+registrationColumns, ticketID))
	if err == nil {
		return reg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cancel registration: %w", err)
	}
	reg, err = getRegistration(ctx, q, ticketID)
	if err != nil {
		return nil, err
	}
	if reg.Status == model.RegistrationCompleted {
		return nil, model.ErrAlreadyAttended
	}
	return nil, model.ErrAlreadyCancelled
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var (
		reg         model.Registration
		form        []byte
		size, color *string
		attendedAt  *time.Time
	)
	err := row.Scan(
		&reg.ID, &reg.TicketID, &reg.EventID, &reg.ParticipantID, &reg.TeamID,
		&reg.Status, &reg.PaymentStatus, &form, &size, &color, &reg.Quantity, &reg.Amount,
		&reg.Attended, &attendedAt, &reg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(form) > 0 {
		if err := json.Unmarshal(form, &reg.FormData); err != nil {
			return nil, fmt.Errorf("decode form data: %w", err)
		}
	}
	if size != nil && color != nil {
		reg.Variant = &model.VariantKey{Size: *size, Color: *color}
	}
	if attendedAt != nil {
		t := attendedAt.UTC()
		reg.AttendanceTimestamp = &t
	}
	reg.CreatedAt = reg.CreatedAt.UTC()
	return &reg, nil
}
