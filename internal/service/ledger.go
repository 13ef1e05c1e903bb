package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/notify"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/ticket"
)

// ticketIDAttempts bounds regeneration of colliding ticket ids.
const ticketIDAttempts = 3

// Ledger is the only path through which tickets are created.
type Ledger struct {
	events    EventStore
	store     RegistrationStore
	teams     TeamStore
	inventory *Inventory
	deps
}

// NewLedger constructs a Ledger.
func NewLedger(events EventStore, store RegistrationStore, teams TeamStore, inventory *Inventory, opts ...Option) *Ledger {
	return &Ledger{events: events, store: store, teams: teams, inventory: inventory, deps: newDeps(opts)}
}

// RegisterInput is a participant's request for a ticket. Variant and
// Quantity apply to merchandise only; Quantity defaults to 1.
// PaymentStatus may only be set by organizers and admins (Role).
type RegisterInput struct {
	EventID       string
	ParticipantID string
	Role          model.Role
	FormData      map[string]string
	Variant       *model.VariantKey
	Quantity      int
	PaymentStatus model.PaymentStatus
}

// Register validates eligibility and issues a ticket. Capacity, uniqueness
// and stock are re-checked by the store inside one atomic commit, so the
// checks here only produce early, well-ordered errors.
func (l *Ledger) Register(ctx context.Context, in RegisterInput) (reg *model.Registration, err error) {
	eventType := ""
	defer func() { l.metrics.Registration(eventType, resultCode(err)) }()

	if strings.TrimSpace(in.ParticipantID) == "" {
		return nil, model.ErrInvalidInput.Withf("participant id is required")
	}
	if in.PaymentStatus != "" {
		if !in.PaymentStatus.Valid() {
			return nil, model.ErrInvalidInput.Withf("unknown payment status %q", in.PaymentStatus)
		}
		if in.Role != model.RoleOrganizer && in.Role != model.RoleAdmin {
			return nil, model.ErrUnauthorized.Withf("payment status is recorded by organizers")
		}
	}

	ev, err := l.events.GetEvent(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	eventType = string(ev.Type())

	if err := l.checkOpen(ev); err != nil {
		return nil, err
	}
	if ev.IsFull() {
		return nil, model.ErrCapacityReached
	}
	existing, err := l.store.FindActiveRegistration(ctx, ev.ID, in.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("check existing registration: %w", err)
	}
	if existing != nil {
		return nil, model.ErrAlreadyRegistered.WithMeta("ticket_id", existing.TicketID)
	}
	team, err := l.teams.GetTeamForParticipant(ctx, ev.ID, in.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("check team membership: %w", err)
	}
	if team != nil && team.Status == model.TeamForming {
		return nil, model.ErrAlreadyInTeam.
			Withf("participant is in forming team %s and registers with it", team.ID).
			WithMeta("team_id", team.ID)
	}
	if err := validateForm(ev.FormSchema, in.FormData); err != nil {
		return nil, err
	}

	var booking model.Booking
	quantity := 1
	switch ev.Kind.(type) {
	case model.MerchandiseKind:
		if in.Quantity != 0 {
			quantity = in.Quantity
		}
		booking.Reservation, err = l.inventory.Plan(ev, in.Variant, quantity)
		if err != nil {
			return nil, err
		}
	case model.NormalKind:
		if in.Variant != nil {
			return nil, model.ErrInvalidInput.Withf("variants apply to merchandise events only")
		}
		if in.Quantity != 0 && in.Quantity != 1 {
			return nil, model.ErrInvalidInput.Withf("a normal event ticket admits one participant").
				WithMeta("quantity", fmt.Sprint(in.Quantity))
		}
	}

	payment := in.PaymentStatus
	if payment == "" {
		payment = defaultPayment(ev)
	}
	var r *model.Registration
	for attempt := 1; ; attempt++ {
		r, err = l.newRegistration(ev, in.ParticipantID, payment)
		if err != nil {
			return nil, err
		}
		r.FormData = maps.Clone(in.FormData)
		r.Quantity = quantity
		r.Amount = ev.Fee * int64(quantity)
		if booking.Reservation != nil {
			v := booking.Reservation.Variant
			r.Variant = &v
		}
		booking.Registration = *r

		err = l.store.Book(ctx, booking)
		if !errors.Is(err, model.ErrTicketIDTaken) || attempt == ticketIDAttempts {
			break
		}
		l.log.Warn("registration.ticket_id_collision", "event_id", ev.ID, "ticket_id", r.TicketID, "attempt", attempt)
	}
	if err != nil {
		return nil, err
	}
	if booking.Reservation != nil {
		l.metrics.StockReserved(r.Variant.Size, r.Variant.Color, quantity)
	}

	l.log.Info("registration.created",
		"event_id", ev.ID, "participant_id", r.ParticipantID, "ticket_id", r.TicketID, "type", ev.Type())
	l.confirm(ev, r)
	return r, nil
}

// MarkAttendance records attendance for a ticket exactly once. A repeated
// call returns ErrAlreadyAttended together with the original record.
func (l *Ledger) MarkAttendance(ctx context.Context, ticketID string, actor model.Actor) (rec *model.AttendanceRecord, err error) {
	defer func() { l.metrics.Attendance(resultCode(err)) }()

	reg, err := l.ticketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ev, err := l.events.GetEvent(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if !ev.OwnedBy(actor) {
		return nil, model.ErrUnauthorized
	}
	if reg.Attended {
		return alreadyAttended(reg)
	}
	if !reg.Active() {
		return nil, model.ErrAlreadyCancelled.Withf("ticket %s is cancelled", ticketID)
	}

	updated, marked, err := l.store.MarkAttended(ctx, ticketID, l.clock.Now())
	if err != nil {
		return nil, err
	}
	if !marked {
		return alreadyAttended(updated)
	}
	l.log.Info("attendance.marked", "ticket_id", ticketID, "event_id", updated.EventID, "actor_id", actor.ID)
	return attendanceRecord(updated, false), nil
}

// ticketByID loads a ticket. Ids this ledger could not have issued are
// reported missing without a store lookup.
func (l *Ledger) ticketByID(ctx context.Context, ticketID string) (*model.Registration, error) {
	if _, ok := ticket.IssuedAt(ticketID); !ok {
		return nil, model.ErrTicketNotFound
	}
	return l.store.GetRegistrationByTicket(ctx, ticketID)
}

func alreadyAttended(reg *model.Registration) (*model.AttendanceRecord, error) {
	rec := attendanceRecord(reg, true)
	return rec, model.ErrAlreadyAttended.WithMeta("attendance_time", rec.AttendedAt.Format(time.RFC3339Nano))
}

func attendanceRecord(reg *model.Registration, already bool) *model.AttendanceRecord {
	rec := &model.AttendanceRecord{
		TicketID:        reg.TicketID,
		EventID:         reg.EventID,
		ParticipantID:   reg.ParticipantID,
		AlreadyAttended: already,
	}
	if reg.AttendanceTimestamp != nil {
		rec.AttendedAt = *reg.AttendanceTimestamp
	}
	return rec
}

// GetTicket returns a ticket to its holder, the event's organizer or an admin.
func (l *Ledger) GetTicket(ctx context.Context, ticketID string, actor model.Actor) (*model.Registration, error) {
	reg, err := l.ticketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ev, err := l.events.GetEvent(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if reg.ParticipantID != actor.ID && !ev.OwnedBy(actor) {
		return nil, model.ErrUnauthorized
	}
	reg.Event = ev.Summary()
	return reg, nil
}

// ListRegistrations returns all registrations of an event to its organizer.
func (l *Ledger) ListRegistrations(ctx context.Context, eventID string, actor model.Actor) ([]model.Registration, error) {
	ev, err := l.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.OwnedBy(actor) {
		return nil, model.ErrUnauthorized
	}
	return l.store.ListRegistrations(ctx, eventID)
}

// Cancel frees the participant's slot for the event. Stock and the
// registration count are not restored. Attended tickets stay completed.
func (l *Ledger) Cancel(ctx context.Context, ticketID string, actor model.Actor) (*model.Registration, error) {
	reg, err := l.ticketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if reg.ParticipantID != actor.ID && !actor.IsAdmin() {
		return nil, model.ErrUnauthorized
	}
	switch reg.Status {
	case model.RegistrationCancelled:
		return nil, model.ErrAlreadyCancelled
	case model.RegistrationCompleted:
		return nil, model.ErrAlreadyAttended.Withf("ticket %s was used at the event", ticketID)
	}
	cancelled, err := l.store.CancelRegistration(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	l.log.Info("registration.cancelled", "ticket_id", ticketID, "event_id", reg.EventID, "actor_id", actor.ID)
	return cancelled, nil
}

// teamTickets runs every member of a completing team through the ledger's
// eligibility checks and builds their tickets. Team tickets carry no form
// data and are treated as paid. Nothing is persisted here: the team store
// commits the tickets atomically with the completing join.
func (l *Ledger) teamTickets(ctx context.Context, ev *model.Event, teamID string, memberIDs []string) ([]model.Registration, error) {
	if err := l.checkOpen(ev); err != nil {
		return nil, err
	}
	if limit := ev.CapacityLimit(); limit > 0 && ev.RegistrationCount+len(memberIDs) > limit {
		return nil, model.ErrCapacityReached.Withf("event has %d places left, team needs %d", ev.Remaining(), len(memberIDs))
	}

	tickets := make([]model.Registration, 0, len(memberIDs))
	for _, pid := range memberIDs {
		existing, err := l.store.FindActiveRegistration(ctx, ev.ID, pid)
		if err != nil {
			return nil, fmt.Errorf("check existing registration: %w", err)
		}
		if existing != nil {
			return nil, model.ErrTeamIssuanceFailed.
				Withf("member %s is already registered for this event", pid).
				WithMeta("participant_id", pid).
				Wrap(model.ErrAlreadyRegistered)
		}
		r, err := l.newRegistration(ev, pid, model.PaymentPaid)
		if err != nil {
			return nil, err
		}
		r.TeamID = teamID
		r.Quantity = 1
		r.Amount = ev.Fee
		tickets = append(tickets, *r)
	}
	return tickets, nil
}

// confirmTeamTickets runs the post-commit side effects for team tickets.
func (l *Ledger) confirmTeamTickets(ev *model.Event, tickets []model.Registration) {
	for i := range tickets {
		l.metrics.Registration(string(ev.Type()), codeOK)
		l.confirm(ev, &tickets[i])
	}
}

func (l *Ledger) confirm(ev *model.Event, r *model.Registration) {
	r.Event = ev.Summary()
	l.notifier.Notify(notify.KindTicketConfirmed, notify.Payload{
		"ticket_id":      r.TicketID,
		"event_id":       ev.ID,
		"event_name":     ev.Name,
		"participant_id": r.ParticipantID,
		"team_id":        r.TeamID,
		"amount":         r.Amount,
	})
}

func (l *Ledger) checkOpen(ev *model.Event) error {
	if ev.Status != model.StatusPublished {
		return model.ErrEventNotOpen.WithMeta("status", string(ev.Status))
	}
	if l.clock.Now().After(ev.RegistrationDeadline) {
		return model.ErrDeadlinePassed.WithMeta("deadline", ev.RegistrationDeadline.Format(time.RFC3339))
	}
	return nil
}

func (l *Ledger) newRegistration(ev *model.Event, participantID string, payment model.PaymentStatus) (*model.Registration, error) {
	now := l.clock.Now()
	ticketID, err := ticket.NewID(now)
	if err != nil {
		return nil, err
	}
	return &model.Registration{
		ID:            uuid.New().String(),
		TicketID:      ticketID,
		EventID:       ev.ID,
		ParticipantID: participantID,
		Status:        model.RegistrationRegistered,
		PaymentStatus: payment,
		CreatedAt:     now,
	}, nil
}

func defaultPayment(ev *model.Event) model.PaymentStatus {
	if ev.Fee == 0 {
		return model.PaymentNotRequired
	}
	return model.PaymentPending
}

func validateForm(schema []model.FormField, data map[string]string) error {
	known := make(map[string]struct{}, len(schema))
	for _, f := range schema {
		known[f.Name] = struct{}{}
		if f.Required && strings.TrimSpace(data[f.Name]) == "" {
			return model.ErrFormFieldRequired.Withf("form field %q is required", f.Name).WithMeta("field", f.Name)
		}
		if v, ok := data[f.Name]; ok && len(f.Options) > 0 && v != "" && !contains(f.Options, v) {
			return model.ErrInvalidInput.Withf("form field %q has no option %q", f.Name, v).WithMeta("field", f.Name)
		}
	}
	for name := range data {
		if _, ok := known[name]; !ok {
			return model.ErrInvalidInput.Withf("unknown form field %q", name).WithMeta("field", name)
		}
	}
	return nil
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

const codeOK = "ok"

func resultCode(err error) string {
	if err == nil {
		return codeOK
	}
	var e *model.Error
	if errors.As(err, &e) {
		return string(e.Code)
	}
	return "internal"
}
