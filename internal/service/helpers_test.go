package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/clock"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/logging"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/notify"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/repository"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/service"
)

var (
	t0        = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	organizer = model.Actor{ID: "org-1", Role: model.RoleOrganizer}
	admin     = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
)

type recorder struct {
	mu    sync.Mutex
	sent  []notify.Kind
	items []notify.Payload
}

func (r *recorder) Notify(kind notify.Kind, payload notify.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, kind)
	r.items = append(r.items, payload)
}

func (r *recorder) count(kind notify.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, k := range r.sent {
		if k == kind {
			n++
		}
	}
	return n
}

type env struct {
	store     *repository.MemoryStore
	clock     *clock.Manual
	notes     *recorder
	events    *service.EventService
	inventory *service.Inventory
	ledger    *service.Ledger
	teams     *service.TeamService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWith(t, repository.NewMemoryStore())
}

func newEnvWith(t *testing.T, store service.Store) *env {
	t.Helper()
	e := &env{clock: clock.NewManual(t0), notes: &recorder{}}
	if m, ok := store.(*repository.MemoryStore); ok {
		e.store = m
	}
	opts := []service.Option{
		service.WithClock(e.clock),
		service.WithLogger(logging.Discard()),
		service.WithNotifier(e.notes),
	}
	e.events = service.NewEventService(store, opts...)
	e.inventory = service.NewInventory(store, store, opts...)
	e.ledger = service.NewLedger(store, store, store, e.inventory, opts...)
	e.teams = service.NewTeamService(store, store, e.ledger, opts...)
	return e
}

func normalInput(limit int) service.CreateEventInput {
	return service.CreateEventInput{
		Name:                 "Hack Night",
		Type:                 model.EventTypeNormal,
		RegistrationDeadline: t0.Add(7 * 24 * time.Hour),
		StartDate:            t0.Add(10 * 24 * time.Hour),
		EndDate:              t0.Add(11 * 24 * time.Hour),
		RegistrationLimit:    limit,
	}
}

func merchInput(purchaseLimit int, variants ...model.Variant) service.CreateEventInput {
	return service.CreateEventInput{
		Name:                 "Club Hoodie",
		Type:                 model.EventTypeMerchandise,
		RegistrationDeadline: t0.Add(7 * 24 * time.Hour),
		Fee:                  1500,
		Variants:             variants,
		PurchaseLimit:        purchaseLimit,
	}
}

// published creates an event from in and publishes it.
func (e *env) published(t *testing.T, in service.CreateEventInput) *model.Event {
	t.Helper()
	ctx := context.Background()
	ev, err := e.events.CreateEvent(ctx, organizer, in)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	ev, err = e.events.TransitionStatus(ctx, organizer, ev.ID, model.StatusPublished)
	if err != nil {
		t.Fatalf("publish event: %v", err)
	}
	return ev
}

func (e *env) register(t *testing.T, eventID, participantID string) *model.Registration {
	t.Helper()
	reg, err := e.ledger.Register(context.Background(), service.RegisterInput{EventID: eventID, ParticipantID: participantID})
	if err != nil {
		t.Fatalf("register %s: %v", participantID, err)
	}
	return reg
}

func (e *env) event(t *testing.T, id string) *model.Event {
	t.Helper()
	ev, err := e.events.GetEvent(context.Background(), id)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	return ev
}

func participant(i int) string { return fmt.Sprintf("p-%03d", i) }

func assertCode(t *testing.T, err error, want *model.Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want.Code, err)
	}
}
