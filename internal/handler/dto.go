package handler

import (
	"time"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/service"
)

// ─── Requests ─────────────────────────────────────────────────────────────────

type createEventRequest struct {
	Name                 string            `json:"name" validate:"required,max=200"`
	Description          string            `json:"description" validate:"max=5000"`
	Type                 string            `json:"type" validate:"omitempty,oneof=normal merchandise"`
	RegistrationDeadline time.Time         `json:"registration_deadline" validate:"required"`
	StartDate            *time.Time        `json:"start_date"`
	EndDate              *time.Time        `json:"end_date"`
	Fee                  int64             `json:"fee" validate:"gte=0"`
	RegistrationLimit    int               `json:"registration_limit" validate:"gte=0"`
	Variants             []variantRequest  `json:"variants" validate:"omitempty,dive"`
	PurchaseLimit        int               `json:"purchase_limit" validate:"gte=0"`
	FormSchema           []model.FormField `json:"form_schema"`
}

type variantRequest struct {
	Size  string `json:"size" validate:"required,max=50"`
	Color string `json:"color" validate:"required,max=50"`
	Stock int    `json:"stock" validate:"gte=0"`
}

func (req createEventRequest) input() service.CreateEventInput {
	return service.CreateEventInput{
		Name:                 req.Name,
		Description:          req.Description,
		Type:                 model.EventType(req.Type),
		RegistrationDeadline: req.RegistrationDeadline,
		StartDate:            derefTime(req.StartDate),
		EndDate:              derefTime(req.EndDate),
		Fee:                  req.Fee,
		RegistrationLimit:    req.RegistrationLimit,
		Variants:             variants(req.Variants),
		PurchaseLimit:        req.PurchaseLimit,
		FormSchema:           req.FormSchema,
	}
}

type updateEventRequest struct {
	Name                 *string           `json:"name" validate:"omitempty,min=1,max=200"`
	Description          *string           `json:"description" validate:"omitempty,max=5000"`
	RegistrationDeadline *time.Time        `json:"registration_deadline"`
	StartDate            *time.Time        `json:"start_date"`
	EndDate              *time.Time        `json:"end_date"`
	Fee                  *int64            `json:"fee" validate:"omitempty,gte=0"`
	RegistrationLimit    *int              `json:"registration_limit" validate:"omitempty,gt=0"`
	Variants             []variantRequest  `json:"variants" validate:"omitempty,dive"`
	PurchaseLimit        *int              `json:"purchase_limit" validate:"omitempty,gt=0"`
	FormSchema           []model.FormField `json:"form_schema"`
}

func (req updateEventRequest) input() service.UpdateEventInput {
	return service.UpdateEventInput{
		Name:                 req.Name,
		Description:          req.Description,
		RegistrationDeadline: req.RegistrationDeadline,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		Fee:                  req.Fee,
		RegistrationLimit:    req.RegistrationLimit,
		Variants:             variants(req.Variants),
		PurchaseLimit:        req.PurchaseLimit,
		FormSchema:           req.FormSchema,
	}
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type registerRequest struct {
	FormData      map[string]string `json:"form_data"`
	Variant       *model.VariantKey `json:"variant"`
	Quantity      int               `json:"quantity" validate:"gte=0"`
	PaymentStatus string            `json:"payment_status" validate:"omitempty,oneof=pending paid not_required"`
}

type createTeamRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	TargetSize int    `json:"target_size"`
}

type joinTeamRequest struct {
	InviteCode string `json:"invite_code" validate:"required,alphanum,max=32"`
}

func variants(in []variantRequest) []model.Variant {
	if in == nil {
		return nil
	}
	out := make([]model.Variant, 0, len(in))
	for _, v := range in {
		out = append(out, model.Variant{Size: v.Size, Color: v.Color, Stock: v.Stock})
	}
	return out
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// ─── Responses ────────────────────────────────────────────────────────────────

type eventResponse struct {
	ID                   string            `json:"id"`
	OrganizerID          string            `json:"organizer_id"`
	Name                 string            `json:"name"`
	Description          string            `json:"description"`
	Type                 model.EventType   `json:"type"`
	Status               model.EventStatus `json:"status"`
	RegistrationDeadline time.Time         `json:"registration_deadline"`
	StartDate            *time.Time        `json:"start_date,omitempty"`
	EndDate              *time.Time        `json:"end_date,omitempty"`
	Fee                  int64             `json:"fee"`
	RegistrationLimit    *int              `json:"registration_limit,omitempty"`
	Remaining            *int              `json:"remaining,omitempty"`
	Variants             []model.Variant   `json:"variants,omitempty"`
	PurchaseLimit        *int              `json:"purchase_limit,omitempty"`
	RegistrationCount    int               `json:"registration_count"`
	Revenue              int64             `json:"revenue"`
	FormSchema           []model.FormField `json:"form_schema"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func newEventResponse(ev *model.Event) eventResponse {
	resp := eventResponse{
		ID:                   ev.ID,
		OrganizerID:          ev.OrganizerID,
		Name:                 ev.Name,
		Description:          ev.Description,
		Type:                 ev.Type(),
		Status:               ev.Status,
		RegistrationDeadline: ev.RegistrationDeadline,
		StartDate:            optionalTime(ev.StartDate),
		EndDate:              optionalTime(ev.EndDate),
		Fee:                  ev.Fee,
		RegistrationCount:    ev.RegistrationCount,
		Revenue:              ev.Revenue,
		FormSchema:           ev.FormSchema,
		CreatedAt:            ev.CreatedAt,
		UpdatedAt:            ev.UpdatedAt,
	}
	if resp.FormSchema == nil {
		resp.FormSchema = []model.FormField{}
	}
	switch k := ev.Kind.(type) {
	case model.NormalKind:
		limit, remaining := k.RegistrationLimit, ev.Remaining()
		resp.RegistrationLimit, resp.Remaining = &limit, &remaining
	case model.MerchandiseKind:
		limit := k.PurchaseLimit
		resp.Variants, resp.PurchaseLimit = k.Variants, &limit
	}
	return resp
}

type registrationResponse struct {
	ID                  string                   `json:"id"`
	TicketID            string                   `json:"ticket_id"`
	EventID             string                   `json:"event_id"`
	ParticipantID       string                   `json:"participant_id"`
	TeamID              string                   `json:"team_id,omitempty"`
	Status              model.RegistrationStatus `json:"status"`
	PaymentStatus       model.PaymentStatus      `json:"payment_status"`
	FormData            map[string]string        `json:"form_data,omitempty"`
	Variant             *model.VariantKey        `json:"variant,omitempty"`
	Quantity            int                      `json:"quantity"`
	Amount              int64                    `json:"amount"`
	Attended            bool                     `json:"attended"`
	AttendanceTimestamp *time.Time               `json:"attendance_timestamp,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
	Event               *model.EventSummary      `json:"event,omitempty"`
}

func newRegistrationResponse(r *model.Registration) registrationResponse {
	return registrationResponse{
		ID:                  r.ID,
		TicketID:            r.TicketID,
		EventID:             r.EventID,
		ParticipantID:       r.ParticipantID,
		TeamID:              r.TeamID,
		Status:              r.Status,
		PaymentStatus:       r.PaymentStatus,
		FormData:            r.FormData,
		Variant:             r.Variant,
		Quantity:            r.Quantity,
		Amount:              r.Amount,
		Attended:            r.Attended,
		AttendanceTimestamp: r.AttendanceTimestamp,
		CreatedAt:           r.CreatedAt,
		Event:               r.Event,
	}
}

func newRegistrationList(regs []model.Registration) []registrationResponse {
	out := make([]registrationResponse, 0, len(regs))
	for i := range regs {
		out = append(out, newRegistrationResponse(&regs[i]))
	}
	return out
}

type attendanceResponse struct {
	TicketID        string    `json:"ticket_id"`
	EventID         string    `json:"event_id"`
	ParticipantID   string    `json:"participant_id"`
	AttendedAt      time.Time `json:"attended_at"`
	AlreadyAttended bool      `json:"already_attended"`
}

type teamMemberResponse struct {
	ParticipantID string             `json:"participant_id"`
	Status        model.MemberStatus `json:"status"`
	JoinedAt      time.Time          `json:"joined_at"`
}

type teamResponse struct {
	ID          string                 `json:"id"`
	EventID     string                 `json:"event_id"`
	Name        string                 `json:"name"`
	LeaderID    string                 `json:"leader_id"`
	TargetSize  int                    `json:"target_size"`
	InviteCode  string                 `json:"invite_code"`
	Status      model.TeamStatus       `json:"status"`
	Members     []teamMemberResponse   `json:"members"`
	CreatedAt   time.Time              `json:"created_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Tickets     []registrationResponse `json:"tickets,omitempty"`
}

func newTeamResponse(t *model.Team) teamResponse {
	resp := teamResponse{
		ID:          t.ID,
		EventID:     t.EventID,
		Name:        t.Name,
		LeaderID:    t.LeaderID,
		TargetSize:  t.TargetSize,
		InviteCode:  t.InviteCode,
		Status:      t.Status,
		Members:     make([]teamMemberResponse, 0, len(t.Members)),
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
	for _, m := range t.Members {
		resp.Members = append(resp.Members, teamMemberResponse{
			ParticipantID: m.ParticipantID,
			Status:        m.Status,
			JoinedAt:      m.JoinedAt,
		})
	}
	return resp
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
