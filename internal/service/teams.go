package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/ticket"
)

const inviteCodeAttempts = 5

// TeamService assembles teams and hands completed teams to the ledger for
// batch ticket issuance.
type TeamService struct {
	events EventStore
	store  TeamStore
	ledger *Ledger
	deps
}

// NewTeamService constructs a TeamService.
func NewTeamService(events EventStore, store TeamStore, ledger *Ledger, opts ...Option) *TeamService {
	return &TeamService{events: events, store: store, ledger: ledger, deps: newDeps(opts)}
}

// CreateTeamInput describes a new team.
type CreateTeamInput struct {
	EventID    string
	LeaderID   string
	Name       string
	TargetSize int
}

// CreateTeam creates a forming team with the leader as its first member.
func (s *TeamService) CreateTeam(ctx context.Context, in CreateTeamInput) (team *model.Team, err error) {
	defer func() { s.metrics.Team("create", resultCode(err)) }()

	if in.TargetSize < model.MinTeamSize || in.TargetSize > model.MaxTeamSize {
		return nil, model.ErrInvalidSize.WithMeta("target_size", fmt.Sprint(in.TargetSize))
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, model.ErrInvalidInput.Withf("team name is required")
	}
	if strings.TrimSpace(in.LeaderID) == "" {
		return nil, model.ErrInvalidInput.Withf("leader id is required")
	}

	ev, err := s.events.GetEvent(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if _, ok := ev.Kind.(model.NormalKind); !ok {
		return nil, model.ErrInvalidInput.Withf("teams can only register for normal events")
	}
	if err := s.ledger.checkOpen(ev); err != nil {
		return nil, err
	}
	if in.TargetSize > ev.Remaining() {
		return nil, model.ErrCapacityReached.Withf("event has %d places left, team needs %d", ev.Remaining(), in.TargetSize)
	}
	if err := s.checkFree(ctx, ev.ID, in.LeaderID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	team = &model.Team{
		ID:         uuid.New().String(),
		EventID:    ev.ID,
		Name:       name,
		LeaderID:   in.LeaderID,
		TargetSize: in.TargetSize,
		Status:     model.TeamForming,
		Members:    []model.TeamMember{{ParticipantID: in.LeaderID, Status: model.MemberAccepted, JoinedAt: now}},
		CreatedAt:  now,
	}
	for attempt := 1; ; attempt++ {
		team.InviteCode = ticket.NewInviteCode()
		err = s.store.CreateTeam(ctx, team)
		if !errors.Is(err, model.ErrInviteCodeTaken) || attempt == inviteCodeAttempts {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("team.created", "team_id", team.ID, "event_id", ev.ID, "leader_id", in.LeaderID, "target_size", in.TargetSize)
	return team, nil
}

// checkFree fails when the participant already belongs to a team or holds
// a ticket for the event.
func (s *TeamService) checkFree(ctx context.Context, eventID, participantID string) error {
	other, err := s.store.GetTeamForParticipant(ctx, eventID, participantID)
	if err != nil {
		return fmt.Errorf("lookup team membership: %w", err)
	}
	if other != nil {
		return model.ErrAlreadyInTeam.WithMeta("team_id", other.ID)
	}
	reg, err := s.ledger.store.FindActiveRegistration(ctx, eventID, participantID)
	if err != nil {
		return fmt.Errorf("check existing registration: %w", err)
	}
	if reg != nil {
		return model.ErrAlreadyRegistered.WithMeta("ticket_id", reg.TicketID)
	}
	return nil
}

// JoinTeamInput is a request to join a team by invite code.
type JoinTeamInput struct {
	EventID       string
	ParticipantID string
	InviteCode    string
}

// JoinResult is the team after a join. Tickets holds the issued
// registrations when the join completed the team.
type JoinResult struct {
	Team    *model.Team
	Tickets []model.Registration
}

// JoinTeam adds a participant to a forming team. The join that fills the
// team completes it and issues a ticket to every member in the same atomic
// commit; if any member cannot be issued a ticket nothing is committed and
// the team stays forming.
func (s *TeamService) JoinTeam(ctx context.Context, in JoinTeamInput) (res *JoinResult, err error) {
	defer func() { s.metrics.Team("join", resultCode(err)) }()

	if strings.TrimSpace(in.ParticipantID) == "" {
		return nil, model.ErrInvalidInput.Withf("participant id is required")
	}
	code := strings.ToUpper(strings.TrimSpace(in.InviteCode))
	if code == "" {
		return nil, model.ErrInvalidInput.Withf("invite code is required")
	}

	for attempt := 1; ; attempt++ {
		res, err = s.tryJoin(ctx, in.EventID, in.ParticipantID, code)
		retry := errors.Is(err, model.ErrTeamChanged) || errors.Is(err, model.ErrTicketIDTaken)
		if !retry || attempt >= s.joinAttempts {
			break
		}
		s.log.Debug("team.join.retry", "event_id", in.EventID, "participant_id", in.ParticipantID, "attempt", attempt)
	}
	return res, err
}

func (s *TeamService) tryJoin(ctx context.Context, eventID, participantID, code string) (*JoinResult, error) {
	team, err := s.store.GetTeamByInvite(ctx, eventID, code)
	if err != nil {
		return nil, err
	}
	if team.Status == model.TeamCompleted {
		return nil, model.ErrTeamFull
	}
	if team.HasMember(participantID) {
		return nil, model.ErrAlreadyMember
	}
	if err := s.checkFree(ctx, eventID, participantID); err != nil {
		return nil, err
	}
	if team.Full() {
		return nil, model.ErrTeamFull
	}

	now := s.clock.Now()
	join := model.TeamJoin{
		TeamID:          team.ID,
		EventID:         eventID,
		Member:          model.TeamMember{ParticipantID: participantID, Status: model.MemberAccepted, JoinedAt: now},
		ExpectedMembers: len(team.Members),
	}

	var ev *model.Event
	if len(team.Members)+1 == team.TargetSize {
		ev, err = s.events.GetEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		memberIDs := make([]string, 0, team.TargetSize)
		for _, m := range team.Members {
			memberIDs = append(memberIDs, m.ParticipantID)
		}
		memberIDs = append(memberIDs, participantID)

		join.Tickets, err = s.ledger.teamTickets(ctx, ev, team.ID, memberIDs)
		if err != nil {
			return nil, issuanceFailed(err)
		}
		join.CompletedAt = now
	}

	updated, err := s.store.JoinTeam(ctx, join)
	if err != nil {
		return nil, issuanceFailed(err)
	}
	s.log.Info("team.joined", "team_id", team.ID, "event_id", eventID, "participant_id", participantID,
		"members", len(updated.Members), "target_size", updated.TargetSize)

	res := &JoinResult{Team: updated}
	if len(join.Tickets) > 0 {
		s.log.Info("team.completed", "team_id", team.ID, "event_id", eventID, "tickets", len(join.Tickets))
		s.ledger.confirmTeamTickets(ev, join.Tickets)
		res.Tickets = join.Tickets
	}
	return res, nil
}

// issuanceFailed reports ledger refusals during completion as a failed
// batch. Errors about the join itself pass through unchanged.
func issuanceFailed(err error) error {
	switch {
	case errors.Is(err, model.ErrTeamIssuanceFailed):
		return err
	case errors.Is(err, model.ErrAlreadyRegistered),
		errors.Is(err, model.ErrCapacityReached),
		errors.Is(err, model.ErrEventNotOpen),
		errors.Is(err, model.ErrDeadlinePassed):
		return model.ErrTeamIssuanceFailed.Wrap(err)
	}
	return err
}

// GetTeam returns the participant's team for the event, or nil.
func (s *TeamService) GetTeam(ctx context.Context, eventID, participantID string) (*model.Team, error) {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.GetTeamForParticipant(ctx, eventID, participantID)
}
