package service

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
)

// EventStore persists events. Status and field changes are conditional
// updates evaluated by the store, never read-then-write from here.
type EventStore interface {
	CreateEvent(ctx context.Context, ev *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	// UpdateDraft overwrites the editable fields of ev while the stored event
	// is still a draft. When formChanged is set it also requires that no
	// registration exists.
	UpdateDraft(ctx context.Context, ev *model.Event, formChanged bool) error
	// DeleteDraft removes a draft event with its registrations and teams.
	DeleteDraft(ctx context.Context, id string) error
	// TransitionStatus moves the event from -> to if it is still in from.
	TransitionStatus(ctx context.Context, id string, from, to model.EventStatus, at time.Time) (*model.Event, error)
}

// InventoryStore owns per-variant stock counters.
type InventoryStore interface {
	// ReserveStock decrements the variant's stock by r.Quantity only if at
	// least that much remains, returning the remaining stock.
	ReserveStock(ctx context.Context, r model.Reservation) (int, error)
}

// RegistrationStore is the single writer of ticket state.
type RegistrationStore interface {
	// Book commits a registration together with the event counter increment
	// and the optional stock reservation. Either all of it applies or none.
	Book(ctx context.Context, b model.Booking) error
	// FindActiveRegistration returns nil when the participant holds no
	// non-cancelled registration for the event.
	FindActiveRegistration(ctx context.Context, eventID, participantID string) (*model.Registration, error)
	GetRegistrationByTicket(ctx context.Context, ticketID string) (*model.Registration, error)
	ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error)
	// MarkAttended sets attendance if unset. The bool reports whether this
	// call set it; otherwise the returned registration carries the prior mark.
	MarkAttended(ctx context.Context, ticketID string, at time.Time) (*model.Registration, bool, error)
	CancelRegistration(ctx context.Context, ticketID string) (*model.Registration, error)
}

// TeamStore persists teams and their members.
type TeamStore interface {
	CreateTeam(ctx context.Context, t *model.Team) error
	GetTeamByInvite(ctx context.Context, eventID, inviteCode string) (*model.Team, error)
	// GetTeamForParticipant returns nil when the participant is in no team
	// for the event.
	GetTeamForParticipant(ctx context.Context, eventID, participantID string) (*model.Team, error)
	// JoinTeam appends a member if the team still has j.ExpectedMembers
	// members. When j.Tickets is set the team is completed and the tickets
	// are booked in the same atomic step.
	JoinTeam(ctx context.Context, j model.TeamJoin) (*model.Team, error)
}

// Store is implemented by both the Postgres and the in-memory backends.
type Store interface {
	EventStore
	InventoryStore
	RegistrationStore
	TeamStore
}
