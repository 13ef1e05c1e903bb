package repository

import (
	"context"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/service"
)

var _ service.Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store. Every event and everything attached
// to it (variants, registrations, teams) lives in a shard guarded by its own
// mutex, so conditional updates on one event never wait on another. The
// store-wide lock only guards the indexes across shards and is always taken
// after a shard lock, never before.
type MemoryStore struct {
	mu      sync.RWMutex
	events  map[string]*shard
	tickets map[string]string // ticket id -> event id
	invites map[string]string // invite code -> event id
}

type shard struct {
	mu      sync.Mutex
	deleted bool
	event   model.Event

	regs     []*model.Registration
	byTicket map[string]*model.Registration
	active   map[string]*model.Registration // participant id -> non-cancelled registration

	teams    map[string]*model.Team
	byInvite map[string]*model.Team
	teamOf   map[string]string // participant id -> team id
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:  make(map[string]*shard),
		tickets: make(map[string]string),
		invites: make(map[string]string),
	}
}

// lock returns the locked shard of an event. The caller must unlock it.
func (s *MemoryStore) lock(eventID string) (*shard, error) {
	s.mu.RLock()
	sh, ok := s.events[eventID]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrEventNotFound
	}
	sh.mu.Lock()
	if sh.deleted {
		sh.mu.Unlock()
		return nil, model.ErrEventNotFound
	}
	return sh, nil
}

func (s *MemoryStore) lockTicket(ticketID string) (*shard, *model.Registration, error) {
	s.mu.RLock()
	eventID, ok := s.tickets[ticketID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, model.ErrTicketNotFound
	}
	sh, err := s.lock(eventID)
	if err != nil {
		return nil, nil, model.ErrTicketNotFound
	}
	reg, ok := sh.byTicket[ticketID]
	if !ok {
		sh.mu.Unlock()
		return nil, nil, model.ErrTicketNotFound
	}
	return sh, reg, nil
}

// ─── Events ───────────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateEvent(_ context.Context, ev *model.Event) error {
	sh := &shard{
		event:    copyEvent(ev),
		byTicket: make(map[string]*model.Registration),
		active:   make(map[string]*model.Registration),
		teams:    make(map[string]*model.Team),
		byInvite: make(map[string]*model.Team),
		teamOf:   make(map[string]string),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[ev.ID]; exists {
		return model.ErrInvalidInput.Withf("event %s already exists", ev.ID)
	}
	s.events[ev.ID] = sh
	return nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id string) (*model.Event, error) {
	sh, err := s.lock(id)
	if err != nil {
		return nil, err
	}
	defer sh.mu.Unlock()
	ev := copyEvent(&sh.event)
	return &ev, nil
}

func (s *MemoryStore) ListEvents(_ context.Context, filter model.EventFilter) ([]model.Event, error) {
	s.mu.RLock()
	shards := slices.Collect(maps.Values(s.events))
	s.mu.RUnlock()

	events := make([]model.Event, 0, len(shards))
	for _, sh := range shards {
		sh.mu.Lock()
		ev := sh.event
		deleted := sh.deleted
		if !deleted && matches(&ev, filter) {
			events = append(events, copyEvent(&ev))
		}
		sh.mu.Unlock()
	}
	slices.SortFunc(events, func(a, b model.Event) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return events, nil
}

func matches(ev *model.Event, f model.EventFilter) bool {
	if f.Status != "" && ev.Status != f.Status {
		return false
	}
	if f.OrganizerID != "" && ev.OrganizerID != f.OrganizerID {
		return false
	}
	return true
}

func (s *MemoryStore) UpdateDraft(_ context.Context, ev *model.Event, formChanged bool) error {
	sh, err := s.lock(ev.ID)
	if err != nil {
		return err
	}
	defer sh.mu.Unlock()

	cur := &sh.event
	if cur.Status != model.StatusDraft {
		return model.ErrEventNotEditable.WithMeta("status", string(cur.Status))
	}
	if formChanged && cur.FormLocked() {
		return model.ErrFormLocked
	}
	next := copyEvent(ev)
	cur.Name = next.Name
	cur.Description = next.Description
	cur.Kind = next.Kind
	cur.RegistrationDeadline = next.RegistrationDeadline
	cur.StartDate = next.StartDate
	cur.EndDate = next.EndDate
	cur.Fee = next.Fee
	cur.FormSchema = next.FormSchema
	cur.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *MemoryStore) DeleteDraft(_ context.Context, id string) error {
	sh, err := s.lock(id)
	if err != nil {
		return err
	}
	defer sh.mu.Unlock()
	if sh.event.Status != model.StatusDraft {
		return model.ErrEventNotEditable.WithMeta("status", string(sh.event.Status))
	}

	s.mu.Lock()
	delete(s.events, id)
	for ticketID := range sh.byTicket {
		delete(s.tickets, ticketID)
	}
	for code := range sh.byInvite {
		delete(s.invites, code)
	}
	s.mu.Unlock()

	sh.deleted = true
	return nil
}

func (s *MemoryStore) TransitionStatus(_ context.Context, id string, from, to model.EventStatus, at time.Time) (*model.Event, error) {
	sh, err := s.lock(id)
	if err != nil {
		return nil, err
	}
	defer sh.mu.Unlock()
	if sh.event.Status != from {
		return nil, model.ErrInvalidTransition.
			Withf("event is %s, not %s", sh.event.Status, from).
			WithMeta("from", string(sh.event.Status)).
			WithMeta("to", string(to))
	}
	sh.event.Status = to
	sh.event.UpdatedAt = at
	ev := copyEvent(&sh.event)
	return &ev, nil
}

// ─── Inventory ────────────────────────────────────────────────────────────────

func (s *MemoryStore) ReserveStock(_ context.Context, r model.Reservation) (int, error) {
	sh, err := s.lock(r.EventID)
	if err != nil {
		return 0, err
	}
	defer sh.mu.Unlock()
	v, err := sh.variant(r)
	if err != nil {
		return 0, err
	}
	v.Stock -= r.Quantity
	return v.Stock, nil
}

// variant returns the variant to decrement, failing when it is unknown or
// holds less than the reserved quantity. sh.mu must be held.
func (sh *shard) variant(r model.Reservation) (*model.Variant, error) {
	k, ok := sh.event.Kind.(model.MerchandiseKind)
	if !ok {
		return nil, model.ErrInvalidInput.Withf("event %s does not sell merchandise", r.EventID)
	}
	i := slices.IndexFunc(k.Variants, func(v model.Variant) bool { return v.Key() == r.Variant })
	if i < 0 {
		return nil, model.ErrVariantNotFound.WithMeta("size", r.Variant.Size).WithMeta("color", r.Variant.Color)
	}
	v := &k.Variants[i]
	if v.Stock < r.Quantity {
		return nil, model.ErrInsufficientStock.
			Withf("only %d left of %s/%s", v.Stock, v.Size, v.Color).
			WithMeta("available", strconv.Itoa(v.Stock))
	}
	return v, nil
}

// ─── Registrations ────────────────────────────────────────────────────────────

func (s *MemoryStore) Book(_ context.Context, b model.Booking) error {
	reg := b.Registration
	sh, err := s.lock(reg.EventID)
	if err != nil {
		return err
	}
	defer sh.mu.Unlock()

	if err := sh.admit(1); err != nil {
		return err
	}
	if existing, ok := sh.active[reg.ParticipantID]; ok {
		return model.ErrAlreadyRegistered.WithMeta("ticket_id", existing.TicketID)
	}
	if team := sh.formingTeamOf(reg.ParticipantID); team != nil {
		return model.ErrAlreadyInTeam.WithMeta("team_id", team.ID)
	}
	var v *model.Variant
	if b.Reservation != nil {
		if v, err = sh.variant(*b.Reservation); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.tickets[reg.TicketID]; taken {
		return model.ErrTicketIDTaken.WithMeta("ticket_id", reg.TicketID)
	}
	if v != nil {
		v.Stock -= b.Reservation.Quantity
	}
	sh.insert(reg)
	s.tickets[reg.TicketID] = reg.EventID
	return nil
}

// admit checks that n more registrations fit the event. sh.mu must be held.
func (sh *shard) admit(n int) error {
	ev := &sh.event
	if ev.Status != model.StatusPublished {
		return model.ErrEventNotOpen.WithMeta("status", string(ev.Status))
	}
	if limit := ev.CapacityLimit(); limit > 0 && ev.RegistrationCount+n > limit {
		return model.ErrCapacityReached
	}
	return nil
}

// formingTeamOf returns the forming team the participant belongs to, or
// nil. sh.mu must be held.
func (sh *shard) formingTeamOf(participantID string) *model.Team {
	teamID, ok := sh.teamOf[participantID]
	if !ok {
		return nil
	}
	if t := sh.teams[teamID]; t.Status == model.TeamForming {
		return t
	}
	return nil
}

// insert stores reg and applies its counter updates. sh.mu must be held.
func (sh *shard) insert(reg model.Registration) {
	r := copyRegistration(&reg)
	r.Event = nil
	sh.regs = append(sh.regs, r)
	sh.byTicket[r.TicketID] = r
	sh.active[r.ParticipantID] = r
	sh.event.RegistrationCount++
	sh.event.Revenue += r.Amount
}

func (s *MemoryStore) FindActiveRegistration(_ context.Context, eventID, participantID string) (*model.Registration, error) {
	sh, err := s.lock(eventID)
	if err != nil {
		return nil, err
	}
	defer sh.mu.Unlock()
	r, ok := sh.active[participantID]
	if !ok {
		return nil, nil
	}
	return copyRegistration(r), nil
}

func (s *MemoryStore) GetRegistrationByTicket(_ context.Context, ticketID string) (*model.Registration, error) {
	sh, r, err := s.lockTicket(ticketID)
	if err != nil {
		return nil, err
	}
	defer sh.mu.Unlock()
	return copyRegistration(r), nil
}

func (s *MemoryStore) ListRegistrations(_ context.Context, eventID string) ([]model.Registration, error) {
	sh, err := s.lock(eventID)
	if err != nil {
		return nil, err
	}
	defer sh.mu.Unlock()
	regs := make([]model.Registration, 0, len(sh.regs))
	for _, r := range sh.regs {
		regs = append(regs, *copyRegistration(r))
	}
	return regs, nil
}

func (s *MemoryStore) MarkAttended(_ context.Context, ticketID string, at time.Time) (*model.Registration, bool, error) {
	sh, r, err := s.lockTicket(ticketID)
	if err != nil {
		return nil, false, err
	}
	defer sh.mu.Unlock()
	if r.Attended {
		return copyRegistration(r), false, nil
	}
	if !r.Active() {
		return nil, false, model.ErrAlreadyCancelled
	}
	r.Attended = true
	r.AttendanceTimestamp = &at
	r.Status = model.RegistrationCompleted
	return copyRegistration(r), true, nil
}

func (s *MemoryStore) CancelRegistration(_ context.Context, ticketID string) (*model.Registration, error) {
	sh, r, err := s.lockTicket(ticketID)
	if err != nil {
		return nil, err
	}
	defer sh.mu.Unlock()
	switch r.Status {
	case model.RegistrationCancelled:
		return nil, model.ErrAlreadyCancelled
	case model.RegistrationCompleted:
		return nil, model.ErrAlreadyAttended
	}
	r.Status = model.RegistrationCancelled
	if sh.active[r.ParticipantID] == r {
		delete(sh.active, r.ParticipantID)
	}
	return copyRegistration(r), nil
}

// ─── Teams ────────────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateTeam(_ context.Context, t *model.Team) error {
	sh, err := s.lock(t.EventID)
	if err != nil {
		return err
	}
	defer sh.mu.Unlock()
	if teamID, ok := sh.teamOf[t.LeaderID]; ok {
		return model.ErrAlreadyInTeam.WithMeta("team_id", teamID)
	}
	if existing, ok := sh.active[t.LeaderID]; ok {
		return model.ErrAlreadyRegistered.WithMeta("ticket_id", existing.TicketID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.invites[t.InviteCode]; taken {
		return model.ErrInviteCodeTaken
	}
	team := copyTeam(t)
	sh.teams[team.ID] = team
	sh.byInvite[team.InviteCode] = team
	for _, m := range team.Members {
		sh.teamOf[m.ParticipantID] = team.ID
	}
	s.invites[team.InviteCode] = team.EventID
	return nil
}

func (s *MemoryStore) GetTeamByInvite(_ context.Context, eventID, inviteCode string) (*model.Team, error) {
	sh, err := s.lock(eventID)
	if err != nil {
		return nil, err
	}
	defer sh.mu.Unlock()
	t, ok := sh.byInvite[inviteCode]
	if !ok {
		return nil, model.ErrTeamNotFound
	}
	return copyTeam(t), nil
}

func (s *MemoryStore) GetTeamForParticipant(_ context.Context, eventID, participantID string) (*model.Team, error) {
	sh, err := s.lock(eventID)
	if err != nil {
		return nil, err
	}
	defer sh.mu.Unlock()
	teamID, ok := sh.teamOf[participantID]
	if !ok {
		return nil, nil
	}
	return copyTeam(sh.teams[teamID]), nil
}

func (s *MemoryStore) JoinTeam(_ context.Context, j model.TeamJoin) (*model.Team, error) {
	sh, err := s.lock(j.EventID)
	if err != nil {
		return nil, err
	}
	defer sh.mu.Unlock()

	t, ok := sh.teams[j.TeamID]
	if !ok {
		return nil, model.ErrTeamNotFound
	}
	if t.Status == model.TeamCompleted {
		return nil, model.ErrTeamFull
	}
	pid := j.Member.ParticipantID
	if teamID, ok := sh.teamOf[pid]; ok {
		if teamID == t.ID {
			return nil, model.ErrAlreadyMember
		}
		return nil, model.ErrAlreadyInTeam.WithMeta("team_id", teamID)
	}
	if existing, ok := sh.active[pid]; ok {
		return nil, model.ErrAlreadyRegistered.WithMeta("ticket_id", existing.TicketID)
	}
	if len(t.Members) != j.ExpectedMembers {
		return nil, model.ErrTeamChanged
	}
	completes := len(t.Members)+1 == t.TargetSize
	if completes != (len(j.Tickets) > 0) {
		return nil, model.ErrTeamChanged
	}

	if completes {
		if err := sh.admit(len(j.Tickets)); err != nil {
			return nil, err
		}
		for _, reg := range j.Tickets {
			if _, ok := sh.active[reg.ParticipantID]; ok {
				return nil, model.ErrTeamIssuanceFailed.
					Withf("member %s is already registered for this event", reg.ParticipantID).
					WithMeta("participant_id", reg.ParticipantID).
					Wrap(model.ErrAlreadyRegistered)
			}
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, reg := range j.Tickets {
			if _, taken := s.tickets[reg.TicketID]; taken {
				return nil, model.ErrTicketIDTaken.WithMeta("ticket_id", reg.TicketID)
			}
		}
		for _, reg := range j.Tickets {
			sh.insert(reg)
			s.tickets[reg.TicketID] = reg.EventID
		}
		completedAt := j.CompletedAt
		t.Status = model.TeamCompleted
		t.CompletedAt = &completedAt
	}

	t.Members = append(t.Members, j.Member)
	sh.teamOf[pid] = t.ID
	return copyTeam(t), nil
}

// ─── Copies ───────────────────────────────────────────────────────────────────

func copyEvent(ev *model.Event) model.Event {
	c := *ev
	if k, ok := ev.Kind.(model.MerchandiseKind); ok {
		k.Variants = slices.Clone(k.Variants)
		c.Kind = k
	}
	c.FormSchema = slices.Clone(ev.FormSchema)
	return c
}

func copyRegistration(r *model.Registration) *model.Registration {
	c := *r
	c.FormData = maps.Clone(r.FormData)
	if r.Variant != nil {
		v := *r.Variant
		c.Variant = &v
	}
	if r.AttendanceTimestamp != nil {
		at := *r.AttendanceTimestamp
		c.AttendanceTimestamp = &at
	}
	return &c
}

func copyTeam(t *model.Team) *model.Team {
	c := *t
	c.Members = slices.Clone(t.Members)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}
