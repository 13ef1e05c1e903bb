// Package model defines the core domain types for the registration engine.
package model

import "time"

// Role is the caller role supplied by the identity layer.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleOrganizer   Role = "organizer"
	RoleAdmin       Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleParticipant, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// Actor is the identity a request is made on behalf of. It is trusted as given.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor is an administrator.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// EventType tags the kind of an event.
type EventType string

const (
	EventTypeNormal      EventType = "normal"
	EventTypeMerchandise EventType = "merchandise"
)

// Kind carries the type-specific part of an event. It is either
// NormalKind or MerchandiseKind.
type Kind interface {
	Type() EventType
	isKind()
}

// NormalKind is a capacity-limited event.
type NormalKind struct {
	RegistrationLimit int
}

func (NormalKind) Type() EventType { return EventTypeNormal }
func (NormalKind) isKind()         {}

// MerchandiseKind is a stock-limited merchandise drop.
type MerchandiseKind struct {
	Variants      []Variant
	PurchaseLimit int
}

func (MerchandiseKind) Type() EventType { return EventTypeMerchandise }
func (MerchandiseKind) isKind()         {}

// Variant looks up a declared variant by its size and color.
func (m MerchandiseKind) Variant(key VariantKey) (Variant, bool) {
	for _, v := range m.Variants {
		if v.Size == key.Size && v.Color == key.Color {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantKey selects one purchasable configuration of an item.
type VariantKey struct {
	Size  string `json:"size"`
	Color string `json:"color"`
}

// Variant is a purchasable configuration with its own stock.
type Variant struct {
	Size  string `json:"size"`
	Color string `json:"color"`
	Stock int    `json:"stock"`
}

// Key returns the selection key of the variant.
func (v Variant) Key() VariantKey { return VariantKey{Size: v.Size, Color: v.Color} }

// FormField is one field of an event's custom registration form.
type FormField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// Event represents a plannable activity or merchandise drop owned by an organizer.
type Event struct {
	ID                   string
	OrganizerID          string
	Name                 string
	Description          string
	Status               EventStatus
	Kind                 Kind
	RegistrationDeadline time.Time
	StartDate            time.Time
	EndDate              time.Time
	Fee                  int64
	RegistrationCount    int
	Revenue              int64
	FormSchema           []FormField
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Type returns the tag of the event's kind.
func (e *Event) Type() EventType {
	if e.Kind == nil {
		return EventTypeNormal
	}
	return e.Kind.Type()
}

// CapacityLimit returns the registration limit of a normal event, or 0 for
// events limited by stock.
func (e *Event) CapacityLimit() int {
	if k, ok := e.Kind.(NormalKind); ok {
		return k.RegistrationLimit
	}
	return 0
}

// Remaining returns the number of available places of a normal event.
func (e *Event) Remaining() int {
	limit := e.CapacityLimit()
	if limit == 0 {
		return 0
	}
	return limit - e.RegistrationCount
}

// IsFull returns true when a normal event has no remaining places.
func (e *Event) IsFull() bool {
	limit := e.CapacityLimit()
	return limit > 0 && e.RegistrationCount >= limit
}

// FormLocked reports whether the registration form schema is frozen.
func (e *Event) FormLocked() bool { return e.RegistrationCount > 0 }

// OwnedBy reports whether the actor may act as the event's organizer.
func (e *Event) OwnedBy(a Actor) bool {
	return a.IsAdmin() || (a.ID != "" && a.ID == e.OrganizerID)
}

// Summary returns the display summary of the event.
func (e *Event) Summary() *EventSummary {
	return &EventSummary{
		ID:        e.ID,
		Name:      e.Name,
		Type:      e.Type(),
		StartDate: e.StartDate,
		EndDate:   e.EndDate,
	}
}

// EventSummary is the event information resolved onto a ticket for display.
type EventSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      EventType `json:"type"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// EventFilter narrows event listings.
type EventFilter struct {
	Status      EventStatus
	OrganizerID string
}

// RegistrationStatus is the lifecycle state of a ticket.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationCompleted  RegistrationStatus = "completed"
	RegistrationCancelled  RegistrationStatus = "cancelled"
)

// PaymentStatus is determined outside the engine and recorded as given.
type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentPaid        PaymentStatus = "paid"
	PaymentNotRequired PaymentStatus = "not_required"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentNotRequired:
		return true
	}
	return false
}

// Registration is a participant's ticket for an event.
type Registration struct {
	ID                  string
	TicketID            string
	EventID             string
	ParticipantID       string
	TeamID              string
	Status              RegistrationStatus
	PaymentStatus       PaymentStatus
	FormData            map[string]string
	Variant             *VariantKey
	Quantity            int
	Amount              int64
	Attended            bool
	AttendanceTimestamp *time.Time
	CreatedAt           time.Time

	// Event is resolved for display and is not persisted.
	Event *EventSummary
}

// Active reports whether the registration still occupies its
// (participant, event) slot.
func (r *Registration) Active() bool { return r.Status != RegistrationCancelled }

// AttendanceRecord is the outcome of an attendance-marking request.
type AttendanceRecord struct {
	TicketID        string
	EventID         string
	ParticipantID   string
	AttendedAt      time.Time
	AlreadyAttended bool
}

// Reservation is a stock decrement against one variant.
type Reservation struct {
	EventID  string
	Variant  VariantKey
	Quantity int
}

// Booking is everything committed atomically for one ticket: the
// registration row, the counter increment and an optional stock reservation.
// The store enforces the event's registration limit itself.
type Booking struct {
	Registration Registration
	Reservation  *Reservation
}

// TeamStatus is the formation state of a team.
type TeamStatus string

const (
	TeamForming   TeamStatus = "forming"
	TeamCompleted TeamStatus = "completed"
)

// MemberStatus is the state of a team membership.
type MemberStatus string

const MemberAccepted MemberStatus = "accepted"

const (
	MinTeamSize = 2
	MaxTeamSize = 6
)

// TeamMember is one participant of a team.
type TeamMember struct {
	ParticipantID string
	Status        MemberStatus
	JoinedAt      time.Time
}

// Team is a group registration in formation or completed.
type Team struct {
	ID          string
	EventID     string
	Name        string
	LeaderID    string
	TargetSize  int
	InviteCode  string
	Status      TeamStatus
	Members     []TeamMember
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// HasMember reports whether participantID is a member of the team.
func (t *Team) HasMember(participantID string) bool {
	for _, m := range t.Members {
		if m.ParticipantID == participantID {
			return true
		}
	}
	return false
}

// Full reports whether the team accepts no further members.
func (t *Team) Full() bool {
	return t.Status == TeamCompleted || len(t.Members) >= t.TargetSize
}

// TeamJoin is committed atomically by the team store. Tickets is non-empty
// only when the join completes the team.
type TeamJoin struct {
	TeamID          string
	EventID         string
	Member          TeamMember
	ExpectedMembers int
	Tickets         []Registration
	CompletedAt     time.Time
}
