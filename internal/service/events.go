package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/notify"
)

const maxRegistrationLimit = 100_000

// EventService owns event records and their status machine.
type EventService struct {
	store EventStore
	deps
}

// NewEventService constructs an EventService.
func NewEventService(store EventStore, opts ...Option) *EventService {
	return &EventService{store: store, deps: newDeps(opts)}
}

// CreateEventInput describes a new event. Variants and PurchaseLimit apply
// to merchandise events, RegistrationLimit to normal events.
type CreateEventInput struct {
	Name                 string
	Description          string
	Type                 model.EventType
	RegistrationDeadline time.Time
	StartDate            time.Time
	EndDate              time.Time
	Fee                  int64
	RegistrationLimit    int
	Variants             []model.Variant
	PurchaseLimit        int
	FormSchema           []model.FormField
}

// CreateEvent validates the request and stores a draft event owned by actor.
func (s *EventService) CreateEvent(ctx context.Context, actor model.Actor, in CreateEventInput) (*model.Event, error) {
	if actor.Role != model.RoleOrganizer && !actor.IsAdmin() {
		return nil, model.ErrUnauthorized.Withf("only organizers can create events")
	}

	var kind model.Kind
	switch in.Type {
	case model.EventTypeNormal, "":
		kind = model.NormalKind{RegistrationLimit: in.RegistrationLimit}
	case model.EventTypeMerchandise:
		kind = model.MerchandiseKind{Variants: slices.Clone(in.Variants), PurchaseLimit: in.PurchaseLimit}
	default:
		return nil, model.ErrInvalidInput.Withf("unknown event type %q", in.Type)
	}

	now := s.clock.Now()
	ev := &model.Event{
		ID:                   uuid.New().String(),
		OrganizerID:          actor.ID,
		Name:                 strings.TrimSpace(in.Name),
		Description:          strings.TrimSpace(in.Description),
		Status:               model.StatusDraft,
		Kind:                 kind,
		RegistrationDeadline: in.RegistrationDeadline.UTC(),
		StartDate:            in.StartDate.UTC(),
		EndDate:              in.EndDate.UTC(),
		Fee:                  in.Fee,
		FormSchema:           slices.Clone(in.FormSchema),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := validateEvent(ev); err != nil {
		return nil, err
	}
	if err := s.store.CreateEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.log.Info("event.created", "event_id", ev.ID, "organizer_id", ev.OrganizerID, "type", ev.Type())
	return ev, nil
}

// GetEvent returns a single event by id.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, model.ErrInvalidInput.Withf("event id is required")
	}
	return s.store.GetEvent(ctx, id)
}

// ListEvents returns events matching filter, newest first.
func (s *EventService) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, model.ErrInvalidInput.Withf("unknown status %q", filter.Status)
	}
	return s.store.ListEvents(ctx, filter)
}

// UpdateEventInput is a partial update; nil fields are left unchanged.
type UpdateEventInput struct {
	Name                 *string
	Description          *string
	RegistrationDeadline *time.Time
	StartDate            *time.Time
	EndDate              *time.Time
	Fee                  *int64
	RegistrationLimit    *int
	Variants             []model.Variant
	PurchaseLimit        *int
	FormSchema           []model.FormField
}

// UpdateEvent edits a draft event. The form schema is frozen once the event
// has registrations.
func (s *EventService) UpdateEvent(ctx context.Context, actor model.Actor, id string, in UpdateEventInput) (*model.Event, error) {
	ev, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ev.OwnedBy(actor) {
		return nil, model.ErrUnauthorized
	}
	if ev.Status != model.StatusDraft {
		return nil, model.ErrEventNotEditable.WithMeta("status", string(ev.Status))
	}
	formChanged := in.FormSchema != nil
	if formChanged && ev.FormLocked() {
		return nil, model.ErrFormLocked
	}

	if in.Name != nil {
		ev.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		ev.Description = strings.TrimSpace(*in.Description)
	}
	if in.RegistrationDeadline != nil {
		ev.RegistrationDeadline = in.RegistrationDeadline.UTC()
	}
	if in.StartDate != nil {
		ev.StartDate = in.StartDate.UTC()
	}
	if in.EndDate != nil {
		ev.EndDate = in.EndDate.UTC()
	}
	if in.Fee != nil {
		ev.Fee = *in.Fee
	}
	if formChanged {
		ev.FormSchema = slices.Clone(in.FormSchema)
	}

	switch k := ev.Kind.(type) {
	case model.NormalKind:
		if in.Variants != nil || in.PurchaseLimit != nil {
			return nil, model.ErrInvalidInput.Withf("variants apply to merchandise events only")
		}
		if in.RegistrationLimit != nil {
			k.RegistrationLimit = *in.RegistrationLimit
		}
		ev.Kind = k
	case model.MerchandiseKind:
		if in.RegistrationLimit != nil {
			return nil, model.ErrInvalidInput.Withf("registration limit applies to normal events only")
		}
		if in.Variants != nil {
			k.Variants = slices.Clone(in.Variants)
		}
		if in.PurchaseLimit != nil {
			k.PurchaseLimit = *in.PurchaseLimit
		}
		ev.Kind = k
	}

	if err := validateEvent(ev); err != nil {
		return nil, err
	}
	ev.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateDraft(ctx, ev, formChanged); err != nil {
		return nil, err
	}
	return ev, nil
}

// DeleteEvent removes a draft event together with everything attached to it.
func (s *EventService) DeleteEvent(ctx context.Context, actor model.Actor, id string) error {
	ev, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if !ev.OwnedBy(actor) {
		return model.ErrUnauthorized
	}
	if ev.Status != model.StatusDraft {
		return model.ErrEventNotEditable.Withf("only draft events can be deleted")
	}
	if err := s.store.DeleteDraft(ctx, id); err != nil {
		return err
	}
	s.log.Info("event.deleted", "event_id", id, "actor_id", actor.ID)
	return nil
}

// TransitionStatus moves an event along the status graph. Publishing
// triggers a best-effort notification.
func (s *EventService) TransitionStatus(ctx context.Context, actor model.Actor, id string, to model.EventStatus) (*model.Event, error) {
	if !to.Valid() {
		return nil, model.ErrInvalidInput.Withf("unknown status %q", to)
	}
	ev, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ev.OwnedBy(actor) {
		return nil, model.ErrUnauthorized
	}
	if !model.CanTransition(ev.Status, to) {
		return nil, invalidTransition(ev.Status, to)
	}

	updated, err := s.store.TransitionStatus(ctx, id, ev.Status, to, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.metrics.Transition(string(to))
	s.log.Info("event.transitioned", "event_id", id, "from", ev.Status, "to", to, "actor_id", actor.ID)

	if to == model.StatusPublished {
		s.notifier.Notify(notify.KindEventPublished, notify.Payload{
			"event_id":     updated.ID,
			"name":         updated.Name,
			"organizer_id": updated.OrganizerID,
			"type":         string(updated.Type()),
			"deadline":     updated.RegistrationDeadline,
		})
	}
	return updated, nil
}

func invalidTransition(from, to model.EventStatus) *model.Error {
	return model.ErrInvalidTransition.
		Withf("cannot transition event from %s to %s", from, to).
		WithMeta("from", string(from)).
		WithMeta("to", string(to))
}

func validateEvent(ev *model.Event) error {
	if ev.Name == "" {
		return model.ErrInvalidInput.Withf("event name is required")
	}
	if ev.RegistrationDeadline.IsZero() {
		return model.ErrInvalidInput.Withf("registration deadline is required")
	}
	if !ev.StartDate.IsZero() && ev.RegistrationDeadline.After(ev.StartDate) {
		return model.ErrInvalidInput.Withf("registration deadline must not be after the start date")
	}
	if !ev.StartDate.IsZero() && !ev.EndDate.IsZero() && ev.EndDate.Before(ev.StartDate) {
		return model.ErrInvalidInput.Withf("end date must not be before the start date")
	}
	if ev.Fee < 0 {
		return model.ErrInvalidInput.Withf("fee must not be negative")
	}

	switch k := ev.Kind.(type) {
	case model.NormalKind:
		if k.RegistrationLimit <= 0 {
			return model.ErrInvalidInput.Withf("registration limit must be a positive integer")
		}
		if k.RegistrationLimit > maxRegistrationLimit {
			return model.ErrInvalidInput.Withf("registration limit cannot exceed %d", maxRegistrationLimit)
		}
	case model.MerchandiseKind:
		if len(k.Variants) == 0 {
			return model.ErrInvalidInput.Withf("merchandise needs at least one variant")
		}
		if k.PurchaseLimit < 1 {
			return model.ErrInvalidInput.Withf("purchase limit must be at least 1")
		}
		seen := make(map[model.VariantKey]struct{}, len(k.Variants))
		for _, v := range k.Variants {
			if strings.TrimSpace(v.Size) == "" || strings.TrimSpace(v.Color) == "" {
				return model.ErrInvalidInput.Withf("variant size and color are required")
			}
			if v.Stock < 0 {
				return model.ErrInvalidInput.Withf("variant stock must not be negative")
			}
			if _, dup := seen[v.Key()]; dup {
				return model.ErrInvalidInput.Withf("duplicate variant %s/%s", v.Size, v.Color)
			}
			seen[v.Key()] = struct{}{}
		}
	default:
		return errors.New("event kind not set")
	}

	names := make(map[string]struct{}, len(ev.FormSchema))
	for _, f := range ev.FormSchema {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return model.ErrInvalidInput.Withf("form field name is required")
		}
		if _, dup := names[name]; dup {
			return model.ErrInvalidInput.Withf("duplicate form field %q", name)
		}
		names[name] = struct{}{}
	}
	return nil
}
