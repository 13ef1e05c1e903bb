package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/model"
)

// TeamRepository handles persistence for teams and their members.
type TeamRepository struct {
	db *pgxpool.Pool
}

// NewTeamRepository constructs a TeamRepository.
func NewTeamRepository(db *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{db: db}
}

const teamColumns = `id, event_id, name, leader_id, target_size, invite_code, status, created_at, completed_at`

// CreateTeam inserts the team with its initial members. A leader who holds
// a ticket for the event is refused.
func (r *TeamRepository) CreateTeam(ctx context.Context, t *model.Team) error {
	return withTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		if err := lockEvent(ctx, q, t.EventID); err != nil {
			return err
		}
		ticketID, err := activeTicket(ctx, q, t.EventID, t.LeaderID)
		if err != nil {
			return err
		}
		if ticketID != "" {
			return model.ErrAlreadyRegistered.WithMeta("ticket_id", ticketID)
		}
		_, err = q.Exec(ctx, `
INSERT INTO teams (id, event_id, name, leader_id, target_size, invite_code, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.ID, t.EventID, t.Name, t.LeaderID, t.TargetSize, t.InviteCode, t.Status, t.CreatedAt,
		)
		if constraint, ok := uniqueViolation(err); ok && constraint == constraintInviteCode {
			return model.ErrInviteCodeTaken
		}
		if err != nil {
			return fmt.Errorf("insert team: %w", err)
		}
		for i, m := range t.Members {
			if err := insertMember(ctx, q, t, m, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertMember(ctx context.Context, q querier, t *model.Team, m model.TeamMember, position int) error {
	_, err := q.Exec(ctx, `
INSERT INTO team_members (team_id, event_id, participant_id, status, joined_at, position)
VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.EventID, m.ParticipantID, m.Status, m.JoinedAt, position,
	)
	if err == nil {
		return nil
	}
	switch constraint, _ := uniqueViolation(err); constraint {
	case constraintTeamMember:
		return model.ErrAlreadyMember
	case constraintOneTeamPerEvent:
		return model.ErrAlreadyInTeam
	}
	return fmt.Errorf("insert team member: %w", err)
}

// GetTeamByInvite returns the event's team with the invite code.
func (r *TeamRepository) GetTeamByInvite(ctx context.Context, eventID, inviteCode string) (*model.Team, error) {
	q := conn(ctx, r.db)
	t, err := scanTeam(q.QueryRow(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE event_id = $1 AND invite_code = $2`, eventID, inviteCode))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	return t, loadMembers(ctx, q, t)
}

// GetTeamForParticipant returns the participant's team for the event, or nil.
func (r *TeamRepository) GetTeamForParticipant(ctx context.Context, eventID, participantID string) (*model.Team, error) {
	q := conn(ctx, r.db)
	t, err := scanTeam(q.QueryRow(ctx, `
SELECT `+teamColumns+` FROM teams
WHERE id = (SELECT team_id FROM team_members WHERE event_id = $1 AND participant_id = $2)`,
		eventID, participantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team for participant: %w", err)
	}
	return t, loadMembers(ctx, q, t)
}

// JoinTeam appends a member under the event and team row locks. A joiner
// who already holds a ticket is refused. A join that
// fills the team completes it and books every ticket in the same
// transaction, so a team is either forming with no tickets or completed
// with all of them.
func (r *TeamRepository) JoinTeam(ctx context.Context, j model.TeamJoin) (*model.Team, error) {
	var team *model.Team
	err := withTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		if err := lockEvent(ctx, q, j.EventID); err != nil {
			return err
		}

		t, err := scanTeam(q.QueryRow(ctx,
			`SELECT `+teamColumns+` FROM teams WHERE id = $1 AND event_id = $2 FOR UPDATE`, j.TeamID, j.EventID))
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrTeamNotFound
		}
		if err != nil {
			return fmt.Errorf("lock team: %w", err)
		}
		if t.Status == model.TeamCompleted {
			return model.ErrTeamFull
		}
		if err := loadMembers(ctx, q, t); err != nil {
			return err
		}
		if len(t.Members) != j.ExpectedMembers {
			return model.ErrTeamChanged
		}
		completes := len(t.Members)+1 == t.TargetSize
		if completes != (len(j.Tickets) > 0) {
			return model.ErrTeamChanged
		}
		ticketID, err := activeTicket(ctx, q, j.EventID, j.Member.ParticipantID)
		if err != nil {
			return err
		}
		if ticketID != "" {
			return model.ErrAlreadyRegistered.WithMeta("ticket_id", ticketID)
		}

		if err := insertMember(ctx, q, t, j.Member, len(t.Members)); err != nil {
			return err
		}
		t.Members = append(t.Members, j.Member)

		if completes {
			if err := r.issue(ctx, q, j); err != nil {
				return err
			}
			if _, err := q.Exec(ctx,
				`UPDATE teams SET status = 'completed', completed_at = $2 WHERE id = $1`, t.ID, j.CompletedAt,
			); err != nil {
				return fmt.Errorf("complete team: %w", err)
			}
			completedAt := j.CompletedAt
			t.Status = model.TeamCompleted
			t.CompletedAt = &completedAt
		}
		team = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// issue books every team ticket as one counter increment plus one insert
// per member.
func (r *TeamRepository) issue(ctx context.Context, q querier, j model.TeamJoin) error {
	var revenue int64
	for _, reg := range j.Tickets {
		revenue += reg.Amount
	}
	if err := admit(ctx, q, j.EventID, len(j.Tickets), revenue); err != nil {
		return err
	}
	for i := range j.Tickets {
		reg := &j.Tickets[i]
		err := insertRegistration(ctx, q, reg)
		if errors.Is(err, model.ErrAlreadyRegistered) {
			return model.ErrTeamIssuanceFailed.
				Withf("member %s is already registered for this event", reg.ParticipantID).
				WithMeta("participant_id", reg.ParticipantID).
				Wrap(model.ErrAlreadyRegistered)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func loadMembers(ctx context.Context, q querier, t *model.Team) error {
	rows, err := q.Query(ctx, `
SELECT participant_id, status, joined_at
FROM team_members
WHERE team_id = $1
ORDER BY position`, t.ID)
	if err != nil {
		return fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	t.Members = t.Members[:0]
	for rows.Next() {
		var m model.TeamMember
		if err := rows.Scan(&m.ParticipantID, &m.Status, &m.JoinedAt); err != nil {
			return fmt.Errorf("scan team member: %w", err)
		}
		m.JoinedAt = m.JoinedAt.UTC()
		t.Members = append(t.Members, m)
	}
	return rows.Err()
}

func scanTeam(row pgx.Row) (*model.Team, error) {
	var (
		t           model.Team
		completedAt *time.Time
	)
	err := row.Scan(&t.ID, &t.EventID, &t.Name, &t.LeaderID, &t.TargetSize, &t.InviteCode, &t.Status,
		&t.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	if completedAt != nil {
		at := completedAt.UTC()
		t.CompletedAt = &at
	}
	return &t, nil
}
