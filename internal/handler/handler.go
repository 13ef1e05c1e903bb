// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/service"
)

// Handler holds all HTTP handlers for the registration API.
type Handler struct {
	events    *service.EventService
	inventory *service.Inventory
	ledger    *service.Ledger
	teams     *service.TeamService
	validate  *validator.Validate
	log       *slog.Logger
}

// New constructs a Handler.
func New(events *service.EventService, inventory *service.Inventory, ledger *service.Ledger, teams *service.TeamService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		events:    events,
		inventory: inventory,
		ledger:    ledger,
		teams:     teams,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       log,
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeServiceError(w, r, err)
		return false
	}
	return true
}

func mustActor(r *http.Request) model.Actor {
	a, _ := actorFrom(r.Context())
	return a
}

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if !h.decode(w, r, &req) {
		return
	}
	ev, err := h.events.CreateEvent(r.Context(), mustActor(r), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newEventResponse(ev))
}

// ListEvents handles GET /events?status=&organizer_id=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter := model.EventFilter{
		Status:      model.EventStatus(r.URL.Query().Get("status")),
		OrganizerID: r.URL.Query().Get("organizer_id"),
	}
	events, err := h.events.ListEvents(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for i := range events {
		out = append(out, newEventResponse(&events[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetEvent handles GET /events/{id}
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEventResponse(ev))
}

// UpdateEvent handles PATCH /events/{id}
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req updateEventRequest
	if !h.decode(w, r, &req) {
		return
	}
	ev, err := h.events.UpdateEvent(r.Context(), mustActor(r), chi.URLParam(r, "id"), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEventResponse(ev))
}

// DeleteEvent handles DELETE /events/{id}
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.events.DeleteEvent(r.Context(), mustActor(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransitionStatus handles POST /events/{id}/status
func (h *Handler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	ev, err := h.events.TransitionStatus(r.Context(), mustActor(r), chi.URLParam(r, "id"), model.EventStatus(req.Status))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEventResponse(ev))
}

// Stock handles GET /events/{id}/stock
func (h *Handler) Stock(w http.ResponseWriter, r *http.Request) {
	variants, err := h.inventory.Stock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, variants)
}

// ─── Registrations ────────────────────────────────────────────────────────────

// Register handles POST /events/{id}/register
// Issues a ticket to the caller. payment_status is honoured for organizers
// and admins only.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor := mustActor(r)
	reg, err := h.ledger.Register(r.Context(), service.RegisterInput{
		EventID:       chi.URLParam(r, "id"),
		ParticipantID: actor.ID,
		Role:          actor.Role,
		FormData:      req.FormData,
		Variant:       req.Variant,
		Quantity:      req.Quantity,
		PaymentStatus: model.PaymentStatus(req.PaymentStatus),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRegistrationResponse(reg))
}

// ListRegistrations handles GET /events/{id}/registrations
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.ledger.ListRegistrations(r.Context(), chi.URLParam(r, "id"), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRegistrationList(regs))
}

// GetTicket handles GET /tickets/{ticketId}
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	reg, err := h.ledger.GetTicket(r.Context(), chi.URLParam(r, "ticketId"), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRegistrationResponse(reg))
}

// MarkAttendance handles POST /tickets/{ticketId}/attendance
// A repeated scan answers 409 ALREADY_ATTENDED with the original time.
func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ledger.MarkAttendance(r.Context(), chi.URLParam(r, "ticketId"), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attendanceResponse{
		TicketID:        rec.TicketID,
		EventID:         rec.EventID,
		ParticipantID:   rec.ParticipantID,
		AttendedAt:      rec.AttendedAt,
		AlreadyAttended: rec.AlreadyAttended,
	})
}

// CancelTicket handles POST /tickets/{ticketId}/cancel
func (h *Handler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	reg, err := h.ledger.Cancel(r.Context(), chi.URLParam(r, "ticketId"), mustActor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRegistrationResponse(reg))
}

// ─── Teams ────────────────────────────────────────────────────────────────────

// CreateTeam handles POST /events/{id}/teams
// The caller becomes the team leader.
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if !h.decode(w, r, &req) {
		return
	}
	team, err := h.teams.CreateTeam(r.Context(), service.CreateTeamInput{
		EventID:    chi.URLParam(r, "id"),
		LeaderID:   mustActor(r).ID,
		Name:       req.Name,
		TargetSize: req.TargetSize,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTeamResponse(team))
}

// JoinTeam handles POST /events/{id}/teams/join
// The response carries the issued tickets when the join completed the team.
func (h *Handler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	var req joinTeamRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.teams.JoinTeam(r.Context(), service.JoinTeamInput{
		EventID:       chi.URLParam(r, "id"),
		ParticipantID: mustActor(r).ID,
		InviteCode:    req.InviteCode,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	resp := newTeamResponse(res.Team)
	if len(res.Tickets) > 0 {
		resp.Tickets = newRegistrationList(res.Tickets)
	}
	writeJSON(w, http.StatusOK, resp)
}

// MyTeam handles GET /events/{id}/teams/mine
func (h *Handler) MyTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.teams.GetTeam(r.Context(), chi.URLParam(r, "id"), mustActor(r).ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if team == nil {
		writeError(w, http.StatusNotFound, string(model.CodeTeamNotFound),
			fmt.Sprintf("no team for participant in event %s", chi.URLParam(r, "id")))
		return
	}
	writeJSON(w, http.StatusOK, newTeamResponse(team))
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
