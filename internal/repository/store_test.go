package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/service"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// testStore runs the behaviour every Store backend must share. newStore
// returns an empty store.
func testStore(t *testing.T, newStore func(t *testing.T) service.Store) {
	ctx := context.Background()

	t.Run("event round trip", func(t *testing.T) {
		s := newStore(t)
		ev := merchEvent("ev-1", model.Variant{Size: "M", Color: "black", Stock: 3}, model.Variant{Size: "L", Color: "white", Stock: 1})
		ev.FormSchema = []model.FormField{{Name: "roll", Label: "Roll no", Type: "text", Required: true}}
		create(t, s, ev)

		got, err := s.GetEvent(ctx, "ev-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		k, ok := got.Kind.(model.MerchandiseKind)
		if !ok || k.PurchaseLimit != 2 || len(k.Variants) != 2 || k.Variants[0].Size != "M" || k.Variants[1].Stock != 1 {
			t.Fatalf("unexpected kind %+v", got.Kind)
		}
		if !got.RegistrationDeadline.Equal(ev.RegistrationDeadline) || got.Fee != 1500 || got.Status != model.StatusPublished {
			t.Fatalf("unexpected event %+v", got)
		}
		if len(got.FormSchema) != 1 || !got.FormSchema[0].Required {
			t.Fatalf("unexpected form %+v", got.FormSchema)
		}

		_, err = s.GetEvent(ctx, "ev-missing")
		if !errors.Is(err, model.ErrEventNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("list filters and orders newest first", func(t *testing.T) {
		s := newStore(t)
		old := normalEvent("ev-old", 5)
		old.Status = model.StatusDraft
		create(t, s, old)
		recent := normalEvent("ev-new", 5)
		recent.CreatedAt = t0.Add(time.Hour)
		create(t, s, recent)

		all, err := s.ListEvents(ctx, model.EventFilter{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 2 || all[0].ID != "ev-new" {
			t.Fatalf("unexpected order %v", ids(all))
		}
		drafts, err := s.ListEvents(ctx, model.EventFilter{Status: model.StatusDraft, OrganizerID: "org-1"})
		if err != nil {
			t.Fatalf("list drafts: %v", err)
		}
		if len(drafts) != 1 || drafts[0].ID != "ev-old" {
			t.Fatalf("unexpected drafts %v", ids(drafts))
		}
	})

	t.Run("transition is compare and set", func(t *testing.T) {
		s := newStore(t)
		ev := normalEvent("ev-1", 5)
		ev.Status = model.StatusDraft
		create(t, s, ev)

		got, err := s.TransitionStatus(ctx, "ev-1", model.StatusDraft, model.StatusPublished, t0.Add(time.Minute))
		if err != nil {
			t.Fatalf("transition: %v", err)
		}
		if got.Status != model.StatusPublished || !got.UpdatedAt.Equal(t0.Add(time.Minute)) {
			t.Fatalf("unexpected event %+v", got)
		}

		_, err = s.TransitionStatus(ctx, "ev-1", model.StatusDraft, model.StatusPublished, t0)
		if !errors.Is(err, model.ErrInvalidTransition) {
			t.Fatalf("expected invalid transition, got %v", err)
		}
		de, _ := model.AsError(err)
		if de.Metadata["from"] != string(model.StatusPublished) {
			t.Fatalf("expected current status in metadata, got %v", de.Metadata)
		}
	})

	t.Run("drafts only", func(t *testing.T) {
		s := newStore(t)
		draft := normalEvent("ev-draft", 5)
		draft.Status = model.StatusDraft
		create(t, s, draft)
		create(t, s, normalEvent("ev-live", 5))

		draft.Name = "Renamed"
		draft.Kind = model.NormalKind{RegistrationLimit: 9}
		if err := s.UpdateDraft(ctx, draft, true); err != nil {
			t.Fatalf("update draft: %v", err)
		}
		got, _ := s.GetEvent(ctx, "ev-draft")
		if got.Name != "Renamed" || got.CapacityLimit() != 9 {
			t.Fatalf("update not applied: %+v", got)
		}

		live := normalEvent("ev-live", 5)
		if err := s.UpdateDraft(ctx, live, false); !errors.Is(err, model.ErrEventNotEditable) {
			t.Fatalf("expected not editable, got %v", err)
		}
		if err := s.DeleteDraft(ctx, "ev-live"); !errors.Is(err, model.ErrEventNotEditable) {
			t.Fatalf("expected not editable, got %v", err)
		}
		if err := s.DeleteDraft(ctx, "ev-draft"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.GetEvent(ctx, "ev-draft"); !errors.Is(err, model.ErrEventNotFound) {
			t.Fatalf("expected deleted, got %v", err)
		}
	})

	t.Run("reserve stock", func(t *testing.T) {
		s := newStore(t)
		create(t, s, merchEvent("ev-1", model.Variant{Size: "M", Color: "black", Stock: 3}))
		black := model.VariantKey{Size: "M", Color: "black"}

		left, err := s.ReserveStock(ctx, model.Reservation{EventID: "ev-1", Variant: black, Quantity: 2})
		if err != nil || left != 1 {
			t.Fatalf("expected 1 left, got %d, %v", left, err)
		}
		_, err = s.ReserveStock(ctx, model.Reservation{EventID: "ev-1", Variant: black, Quantity: 2})
		if !errors.Is(err, model.ErrInsufficientStock) {
			t.Fatalf("expected insufficient stock, got %v", err)
		}
		if de, _ := model.AsError(err); de.Metadata["available"] != "1" {
			t.Fatalf("expected available=1, got %v", de.Metadata)
		}
		_, err = s.ReserveStock(ctx, model.Reservation{EventID: "ev-1", Variant: model.VariantKey{Size: "S", Color: "red"}, Quantity: 1})
		if !errors.Is(err, model.ErrVariantNotFound) {
			t.Fatalf("expected variant not found, got %v", err)
		}
	})

	t.Run("book enforces limit and uniqueness", func(t *testing.T) {
		s := newStore(t)
		create(t, s, normalEvent("ev-1", 2))

		book(t, s, registration("ev-1", "p-1", "T-1"))
		err := s.Book(ctx, model.Booking{Registration: registration("ev-1", "p-1", "T-2")})
		if !errors.Is(err, model.ErrAlreadyRegistered) {
			t.Fatalf("expected already registered, got %v", err)
		}
		book(t, s, registration("ev-1", "p-2", "T-3"))
		err = s.Book(ctx, model.Booking{Registration: registration("ev-1", "p-3", "T-4")})
		if !errors.Is(err, model.ErrCapacityReached) {
			t.Fatalf("expected capacity reached, got %v", err)
		}

		ev, _ := s.GetEvent(ctx, "ev-1")
		if ev.RegistrationCount != 2 || ev.Revenue != 200 {
			t.Fatalf("expected count 2 revenue 200, got %d %d", ev.RegistrationCount, ev.Revenue)
		}
		regs, err := s.ListRegistrations(ctx, "ev-1")
		if err != nil || len(regs) != 2 {
			t.Fatalf("expected 2 registrations, got %d, %v", len(regs), err)
		}

		found, err := s.FindActiveRegistration(ctx, "ev-1", "p-2")
		if err != nil || found == nil || found.TicketID != "T-3" {
			t.Fatalf("unexpected active registration %+v, %v", found, err)
		}
		none, err := s.FindActiveRegistration(ctx, "ev-1", "p-9")
		if err != nil || none != nil {
			t.Fatalf("expected nil, got %+v, %v", none, err)
		}
	})

	t.Run("book reports a taken ticket id", func(t *testing.T) {
		s := newStore(t)
		create(t, s, normalEvent("ev-1", 5))
		book(t, s, registration("ev-1", "p-1", "T-1"))

		dup := registration("ev-1", "p-2", "T-1")
		dup.ID = "reg-other"
		err := s.Book(ctx, model.Booking{Registration: dup})
		if !errors.Is(err, model.ErrTicketIDTaken) {
			t.Fatalf("expected ticket id taken, got %v", err)
		}
		ev, _ := s.GetEvent(ctx, "ev-1")
		if ev.RegistrationCount != 1 {
			t.Fatalf("expected count 1, got %d", ev.RegistrationCount)
		}
		if none, _ := s.FindActiveRegistration(ctx, "ev-1", "p-2"); none != nil {
			t.Fatalf("registration leaked: %+v", none)
		}
	})

	t.Run("book refuses events that are not published", func(t *testing.T) {
		s := newStore(t)
		ev := normalEvent("ev-1", 2)
		ev.Status = model.StatusDraft
		create(t, s, ev)

		err := s.Book(ctx, model.Booking{Registration: registration("ev-1", "p-1", "T-1")})
		if !errors.Is(err, model.ErrEventNotOpen) {
			t.Fatalf("expected not open, got %v", err)
		}
		err = s.Book(ctx, model.Booking{Registration: registration("ev-missing", "p-1", "T-1")})
		if !errors.Is(err, model.ErrEventNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("book rolls back when stock runs out", func(t *testing.T) {
		s := newStore(t)
		create(t, s, merchEvent("ev-1", model.Variant{Size: "M", Color: "black", Stock: 1}))
		black := model.VariantKey{Size: "M", Color: "black"}

		reg := registration("ev-1", "p-1", "T-1")
		reg.Variant, reg.Quantity = &black, 2
		err := s.Book(ctx, model.Booking{
			Registration: reg,
			Reservation:  &model.Reservation{EventID: "ev-1", Variant: black, Quantity: 2},
		})
		if !errors.Is(err, model.ErrInsufficientStock) {
			t.Fatalf("expected insufficient stock, got %v", err)
		}
		ev, _ := s.GetEvent(ctx, "ev-1")
		if ev.RegistrationCount != 0 || ev.Revenue != 0 {
			t.Fatalf("counters moved on a failed booking: %d %d", ev.RegistrationCount, ev.Revenue)
		}
		if _, err := s.GetRegistrationByTicket(ctx, "T-1"); !errors.Is(err, model.ErrTicketNotFound) {
			t.Fatalf("registration leaked: %v", err)
		}

		reg.Quantity = 1
		if err := s.Book(ctx, model.Booking{
			Registration: reg,
			Reservation:  &model.Reservation{EventID: "ev-1", Variant: black, Quantity: 1},
		}); err != nil {
			t.Fatalf("book: %v", err)
		}
		got, _ := s.GetRegistrationByTicket(ctx, "T-1")
		if got.Variant == nil || *got.Variant != black {
			t.Fatalf("variant not stored: %+v", got.Variant)
		}
	})

	t.Run("concurrent bookings stop at the limit", func(t *testing.T) {
		s := newStore(t)
		const limit = 5
		create(t, s, normalEvent("ev-1", limit))

		var (
			wg sync.WaitGroup
			ok atomic.Int64
		)
		for i := range 30 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.Book(ctx, model.Booking{Registration: registration("ev-1", fmt.Sprintf("p-%d", i), fmt.Sprintf("T-%d", i))})
				switch {
				case err == nil:
					ok.Add(1)
				case !errors.Is(err, model.ErrCapacityReached):
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		ev, _ := s.GetEvent(ctx, "ev-1")
		if ok.Load() != limit || ev.RegistrationCount != limit {
			t.Fatalf("expected %d bookings, got %d (count %d)", limit, ok.Load(), ev.RegistrationCount)
		}
	})

	t.Run("attendance is set once", func(t *testing.T) {
		s := newStore(t)
		create(t, s, normalEvent("ev-1", 5))
		book(t, s, registration("ev-1", "p-1", "T-1"))

		first, marked, err := s.MarkAttended(ctx, "T-1", t0)
		if err != nil || !marked || !first.AttendanceTimestamp.Equal(t0) {
			t.Fatalf("first mark: %+v %v %v", first, marked, err)
		}
		again, marked, err := s.MarkAttended(ctx, "T-1", t0.Add(time.Hour))
		if err != nil || marked || !again.AttendanceTimestamp.Equal(t0) {
			t.Fatalf("second mark must keep the first time: %+v %v %v", again.AttendanceTimestamp, marked, err)
		}
		if again.Status != model.RegistrationCompleted {
			t.Fatalf("attended ticket should be completed, got %s", again.Status)
		}
		if _, err := s.CancelRegistration(ctx, "T-1"); !errors.Is(err, model.ErrAlreadyAttended) {
			t.Fatalf("expected already attended, got %v", err)
		}
		if _, _, err := s.MarkAttended(ctx, "T-404", t0); !errors.Is(err, model.ErrTicketNotFound) {
			t.Fatalf("expected ticket not found, got %v", err)
		}
	})

	t.Run("cancel frees the slot", func(t *testing.T) {
		s := newStore(t)
		create(t, s, normalEvent("ev-1", 5))
		book(t, s, registration("ev-1", "p-1", "T-1"))

		cancelled, err := s.CancelRegistration(ctx, "T-1")
		if err != nil || cancelled.Status != model.RegistrationCancelled {
			t.Fatalf("cancel: %+v %v", cancelled, err)
		}
		if _, err := s.CancelRegistration(ctx, "T-1"); !errors.Is(err, model.ErrAlreadyCancelled) {
			t.Fatalf("expected already cancelled, got %v", err)
		}
		if _, _, err := s.MarkAttended(ctx, "T-1", t0); !errors.Is(err, model.ErrAlreadyCancelled) {
			t.Fatalf("expected already cancelled, got %v", err)
		}
		if _, err := s.CancelRegistration(ctx, "T-404"); !errors.Is(err, model.ErrTicketNotFound) {
			t.Fatalf("expected ticket not found, got %v", err)
		}

		book(t, s, registration("ev-1", "p-1", "T-2"))
		ev, _ := s.GetEvent(ctx, "ev-1")
		if ev.RegistrationCount != 2 {
			t.Fatalf("cancel does not restore the count, expected 2, got %d", ev.RegistrationCount)
		}
	})

	t.Run("teams", func(t *testing.T) {
		s := newStore(t)
		create(t, s, normalEvent("ev-1", 10))
		team := newTeam("team-1", "ev-1", "lead", "CODE0001", 2)
		if err := s.CreateTeam(ctx, team); err != nil {
			t.Fatalf("create team: %v", err)
		}

		err := s.CreateTeam(ctx, newTeam("team-2", "ev-1", "other", "CODE0001", 2))
		if !errors.Is(err, model.ErrInviteCodeTaken) {
			t.Fatalf("expected invite code taken, got %v", err)
		}
		err = s.CreateTeam(ctx, newTeam("team-3", "ev-1", "lead", "CODE0003", 2))
		if !errors.Is(err, model.ErrAlreadyInTeam) {
			t.Fatalf("expected already in team, got %v", err)
		}

		got, err := s.GetTeamByInvite(ctx, "ev-1", "CODE0001")
		if err != nil || got.ID != "team-1" || len(got.Members) != 1 {
			t.Fatalf("get by invite: %+v %v", got, err)
		}
		if _, err := s.GetTeamByInvite(ctx, "ev-1", "NOPE0000"); !errors.Is(err, model.ErrTeamNotFound) {
			t.Fatalf("expected team not found, got %v", err)
		}
		if none, err := s.GetTeamForParticipant(ctx, "ev-1", "mate"); err != nil || none != nil {
			t.Fatalf("expected no team, got %+v %v", none, err)
		}

		join := model.TeamJoin{
			TeamID: "team-1", EventID: "ev-1",
			Member:          member("mate"),
			ExpectedMembers: 1,
			CompletedAt:     t0.Add(time.Hour),
		}
		if _, err := s.JoinTeam(ctx, join); !errors.Is(err, model.ErrTeamChanged) {
			t.Fatalf("completing join without tickets must conflict, got %v", err)
		}
		stale := join
		stale.ExpectedMembers = 0
		stale.Tickets = teamTickets("ev-1", "team-1", "lead", "mate")
		if _, err := s.JoinTeam(ctx, stale); !errors.Is(err, model.ErrTeamChanged) {
			t.Fatalf("expected team changed, got %v", err)
		}

		join.Tickets = teamTickets("ev-1", "team-1", "lead", "mate")
		done, err := s.JoinTeam(ctx, join)
		if err != nil {
			t.Fatalf("join: %v", err)
		}
		if done.Status != model.TeamCompleted || len(done.Members) != 2 || !done.CompletedAt.Equal(t0.Add(time.Hour)) {
			t.Fatalf("unexpected team %+v", done)
		}
		ev, _ := s.GetEvent(ctx, "ev-1")
		if ev.RegistrationCount != 2 {
			t.Fatalf("expected count 2, got %d", ev.RegistrationCount)
		}
		reg, err := s.FindActiveRegistration(ctx, "ev-1", "mate")
		if err != nil || reg == nil || reg.TeamID != "team-1" {
			t.Fatalf("team ticket not stored: %+v %v", reg, err)
		}
		mine, err := s.GetTeamForParticipant(ctx, "ev-1", "mate")
		if err != nil || mine == nil || mine.ID != "team-1" {
			t.Fatalf("membership not stored: %+v %v", mine, err)
		}

		late := model.TeamJoin{TeamID: "team-1", EventID: "ev-1", Member: member("late"), ExpectedMembers: 2}
		if _, err := s.JoinTeam(ctx, late); !errors.Is(err, model.ErrTeamFull) {
			t.Fatalf("expected team full, got %v", err)
		}
	})

	t.Run("forming team members cannot book", func(t *testing.T) {
		s := newStore(t)
		create(t, s, normalEvent("ev-1", 10))
		if err := s.CreateTeam(ctx, newTeam("team-1", "ev-1", "lead", "CODE0001", 2)); err != nil {
			t.Fatalf("create team: %v", err)
		}

		err := s.Book(ctx, model.Booking{Registration: registration("ev-1", "lead", "T-solo")})
		if !errors.Is(err, model.ErrAlreadyInTeam) {
			t.Fatalf("expected already in team, got %v", err)
		}
		if ev, _ := s.GetEvent(ctx, "ev-1"); ev.RegistrationCount != 0 {
			t.Fatalf("refused booking moved the count to %d", ev.RegistrationCount)
		}

		book(t, s, registration("ev-1", "holder", "T-holder"))
		err = s.CreateTeam(ctx, newTeam("team-2", "ev-1", "holder", "CODE0002", 2))
		if !errors.Is(err, model.ErrAlreadyRegistered) {
			t.Fatalf("ticket holder must not lead a team, got %v", err)
		}

		if _, err := s.JoinTeam(ctx, model.TeamJoin{
			TeamID: "team-1", EventID: "ev-1",
			Member:          member("mate"),
			ExpectedMembers: 1,
			Tickets:         teamTickets("ev-1", "team-1", "lead", "mate"),
			CompletedAt:     t0,
		}); err != nil {
			t.Fatalf("complete team: %v", err)
		}
		if _, err := s.CancelRegistration(ctx, "T-team-1-lead"); err != nil {
			t.Fatalf("cancel team ticket: %v", err)
		}
		book(t, s, registration("ev-1", "lead", "T-solo"))
	})

	t.Run("team completion is all or nothing", func(t *testing.T) {
		s := newStore(t)
		create(t, s, normalEvent("ev-1", 10))
		if err := s.CreateTeam(ctx, newTeam("team-1", "ev-1", "lead", "CODE0001", 2)); err != nil {
			t.Fatalf("create team: %v", err)
		}
		book(t, s, registration("ev-1", "mate", "T-solo"))

		completing := model.TeamJoin{
			TeamID: "team-1", EventID: "ev-1",
			Member:          member("mate"),
			ExpectedMembers: 1,
			Tickets:         teamTickets("ev-1", "team-1", "lead", "mate"),
			CompletedAt:     t0,
		}
		if _, err := s.JoinTeam(ctx, completing); !errors.Is(err, model.ErrAlreadyRegistered) {
			t.Fatalf("expected already registered, got %v", err)
		}

		if _, err := s.TransitionStatus(ctx, "ev-1", model.StatusPublished, model.StatusClosed, t0); err != nil {
			t.Fatalf("close: %v", err)
		}
		completing.Member = member("other")
		completing.Tickets = teamTickets("ev-1", "team-1", "lead", "other")
		if _, err := s.JoinTeam(ctx, completing); !errors.Is(err, model.ErrEventNotOpen) {
			t.Fatalf("expected not open, got %v", err)
		}

		team, _ := s.GetTeamByInvite(ctx, "ev-1", "CODE0001")
		if team.Status != model.TeamForming || len(team.Members) != 1 {
			t.Fatalf("team changed on failure: %+v", team)
		}
		ev, _ := s.GetEvent(ctx, "ev-1")
		if ev.RegistrationCount != 1 {
			t.Fatalf("expected only the solo ticket, got %d", ev.RegistrationCount)
		}
		if reg, _ := s.FindActiveRegistration(ctx, "ev-1", "lead"); reg != nil {
			t.Fatalf("partial ticket leaked: %+v", reg)
		}
		if none, _ := s.GetTeamForParticipant(ctx, "ev-1", "other"); none != nil {
			t.Fatalf("member added on failure: %+v", none)
		}
	})

	t.Run("team completion respects the limit", func(t *testing.T) {
		s := newStore(t)
		create(t, s, normalEvent("ev-1", 2))
		if err := s.CreateTeam(ctx, newTeam("team-1", "ev-1", "lead", "CODE0001", 2)); err != nil {
			t.Fatalf("create team: %v", err)
		}
		book(t, s, registration("ev-1", "solo", "T-solo"))

		_, err := s.JoinTeam(ctx, model.TeamJoin{
			TeamID: "team-1", EventID: "ev-1",
			Member:          member("mate"),
			ExpectedMembers: 1,
			Tickets:         teamTickets("ev-1", "team-1", "lead", "mate"),
			CompletedAt:     t0,
		})
		if !errors.Is(err, model.ErrCapacityReached) {
			t.Fatalf("expected capacity reached, got %v", err)
		}
		ev, _ := s.GetEvent(ctx, "ev-1")
		if ev.RegistrationCount != 1 {
			t.Fatalf("expected count 1, got %d", ev.RegistrationCount)
		}
	})
}

func normalEvent(id string, limit int) *model.Event {
	return &model.Event{
		ID:                   id,
		OrganizerID:          "org-1",
		Name:                 "Hack Night",
		Status:               model.StatusPublished,
		Kind:                 model.NormalKind{RegistrationLimit: limit},
		RegistrationDeadline: t0.Add(7 * 24 * time.Hour),
		StartDate:            t0.Add(10 * 24 * time.Hour),
		EndDate:              t0.Add(11 * 24 * time.Hour),
		Fee:                  100,
		CreatedAt:            t0,
		UpdatedAt:            t0,
	}
}

func merchEvent(id string, variants ...model.Variant) *model.Event {
	return &model.Event{
		ID:                   id,
		OrganizerID:          "org-1",
		Name:                 "Club Hoodie",
		Status:               model.StatusPublished,
		Kind:                 model.MerchandiseKind{Variants: variants, PurchaseLimit: 2},
		RegistrationDeadline: t0.Add(7 * 24 * time.Hour),
		Fee:                  1500,
		CreatedAt:            t0,
		UpdatedAt:            t0,
	}
}

func registration(eventID, participantID, ticketID string) model.Registration {
	return model.Registration{
		ID:            "reg-" + ticketID,
		TicketID:      ticketID,
		EventID:       eventID,
		ParticipantID: participantID,
		Status:        model.RegistrationRegistered,
		PaymentStatus: model.PaymentPending,
		Quantity:      1,
		Amount:        100,
		CreatedAt:     t0,
	}
}

func teamTickets(eventID, teamID string, members ...string) []model.Registration {
	regs := make([]model.Registration, 0, len(members))
	for _, pid := range members {
		r := registration(eventID, pid, "T-"+teamID+"-"+pid)
		r.TeamID = teamID
		r.PaymentStatus = model.PaymentPaid
		regs = append(regs, r)
	}
	return regs
}

func newTeam(id, eventID, leader, code string, size int) *model.Team {
	return &model.Team{
		ID:         id,
		EventID:    eventID,
		Name:       "Null Pointers",
		LeaderID:   leader,
		TargetSize: size,
		InviteCode: code,
		Status:     model.TeamForming,
		Members:    []model.TeamMember{member(leader)},
		CreatedAt:  t0,
	}
}

func member(pid string) model.TeamMember {
	return model.TeamMember{ParticipantID: pid, Status: model.MemberAccepted, JoinedAt: t0}
}

func create(t *testing.T, s service.Store, ev *model.Event) {
	t.Helper()
	if err := s.CreateEvent(context.Background(), ev); err != nil {
		t.Fatalf("create event %s: %v", ev.ID, err)
	}
}

func book(t *testing.T, s service.Store, reg model.Registration) {
	t.Helper()
	if err := s.Book(context.Background(), model.Booking{Registration: reg}); err != nil {
		t.Fatalf("book %s: %v", reg.TicketID, err)
	}
}

func ids(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.ID)
	}
	return out
}
