package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/realtime"
	"github.com/yungbote/swarmchat-backend/internal/repos"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrSessionStarted  = errors.New("session already started")
	ErrSessionEnded    = errors.New("session has ended")
	ErrNotEnoughPeople = errors.New("need at least 2 participants to start")
)

// SubgroupPartitioner is the slice of the engine the session service needs to
// split participants at start time.
type SubgroupPartitioner interface {
	CreateSubgroups(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, participants []*types.Participant, targetSize int) ([]*types.Subgroup, error)
}

// ConvergenceScorer reports the live cross-subgroup convergence of a session.
type ConvergenceScorer interface {
	Convergence(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (float64, error)
}

// DirectSender delivers an event to a single connected participant.
type DirectSender interface {
	SendToParticipant(participantID uuid.UUID, event string, data any)
}

// SessionDetail is a session plus its headline counts.
type SessionDetail struct {
	Session          *types.Session
	ParticipantCount int64
	SubgroupCount    int64
}

// SubgroupDetail is a subgroup plus its members.
type SubgroupDetail struct {
	Subgroup *types.Subgroup
	Members  []*types.Participant
}

type SessionService interface {
	Create(ctx context.Context, title string, subgroupSize int) (*types.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*SessionDetail, error)
	GetByJoinCode(ctx context.Context, joinCode string) (*types.Session, error)
	Start(ctx context.Context, id uuid.UUID) ([]*SubgroupDetail, error)
	Stop(ctx context.Context, id uuid.UUID) (float64, error)
	Subgroups(ctx context.Context, id uuid.UUID) ([]*SubgroupDetail, error)
	Ideas(ctx context.Context, id uuid.UUID) ([]*types.Idea, error)
}

type sessionService struct {
	db           *gorm.DB
	log          *logger.Logger
	sessions     repos.SessionRepo
	subgroups    repos.SubgroupRepo
	participants repos.ParticipantRepo
	ideas        repos.IdeaRepo
	partitioner  SubgroupPartitioner
	scorer       ConvergenceScorer
	pub          realtime.Publisher
	direct       DirectSender
}

func NewSessionService(
	db *gorm.DB,
	log *logger.Logger,
	sessions repos.SessionRepo,
	subgroups repos.SubgroupRepo,
	participants repos.ParticipantRepo,
	ideas repos.IdeaRepo,
	partitioner SubgroupPartitioner,
	scorer ConvergenceScorer,
	pub realtime.Publisher,
	direct DirectSender,
) SessionService {
	return &sessionService{
		db:           db,
		log:          log.With("service", "SessionService"),
		sessions:     sessions,
		subgroups:    subgroups,
		participants: participants,
		ideas:        ideas,
		partitioner:  partitioner,
		scorer:       scorer,
		pub:          pub,
		direct:       direct,
	}
}

func (ss *sessionService) Create(ctx context.Context, title string, subgroupSize int) (*types.Session, error) {
	if subgroupSize < 2 {
		subgroupSize = 5
	}
	session := &types.Session{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(title),
		Status:       types.SessionStatusWaiting,
		SubgroupSize: subgroupSize,
		JoinCode:     types.GenerateJoinCode(),
	}
	if session.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if err := ss.sessions.Create(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	ss.log.Info("session created", "sessionID", session.ID, "joinCode", session.JoinCode)
	return session, nil
}

func (ss *sessionService) Get(ctx context.Context, id uuid.UUID) (*SessionDetail, error) {
	session, err := ss.sessions.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	participantCount, err := ss.participants.CountBySession(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	subgroupCount, err := ss.subgroups.CountBySession(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("count subgroups: %w", err)
	}
	return &SessionDetail{
		Session:          session,
		ParticipantCount: participantCount,
		SubgroupCount:    subgroupCount,
	}, nil
}

func (ss *sessionService) GetByJoinCode(ctx context.Context, joinCode string) (*types.Session, error) {
	session, err := ss.sessions.GetByJoinCode(ctx, nil, strings.ToUpper(strings.TrimSpace(joinCode)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return session, nil
}

// Start partitions the waiting participants into subgroups and flips the
// session to active. Every member gets a direct session:started event with
// its assignment, and session-level listeners get the full subgroup list.
func (ss *sessionService) Start(ctx context.Context, id uuid.UUID) ([]*SubgroupDetail, error) {
	var created []*types.Subgroup
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := ss.sessions.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if session.Status != types.SessionStatusWaiting {
			return ErrSessionStarted
		}

		participants, err := ss.participants.ListBySession(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("list participants: %w", err)
		}
		if len(participants) < 2 {
			return ErrNotEnoughPeople
		}

		created, err = ss.partitioner.CreateSubgroups(ctx, tx, id, participants, session.SubgroupSize)
		if err != nil {
			return fmt.Errorf("partition: %w", err)
		}
		return ss.sessions.UpdateStatus(ctx, tx, id, types.SessionStatusActive)
	})
	if err != nil {
		return nil, err
	}

	details, err := ss.Subgroups(ctx, id)
	if err != nil {
		return nil, err
	}

	subgroupData := make([]map[string]any, 0, len(details))
	for _, d := range details {
		members := make([]map[string]any, 0, len(d.Members))
		for _, m := range d.Members {
			members = append(members, map[string]any{
				"id":           m.ID.String(),
				"display_name": m.DisplayName,
			})
		}
		sg := map[string]any{
			"id":      d.Subgroup.ID.String(),
			"label":   d.Subgroup.Label,
			"members": members,
		}
		subgroupData = append(subgroupData, sg)

		for _, m := range d.Members {
			ss.direct.SendToParticipant(m.ID, realtime.EventSessionStarted, map[string]any{
				"subgroup": sg,
				"user_id":  m.ID.String(),
			})
		}
	}
	if err := ss.pub.PublishToSession(ctx, id, realtime.EventSessionStarted, map[string]any{
		"subgroups": subgroupData,
	}); err != nil {
		ss.log.Warn("session start broadcast failed", "sessionID", id, "error", err)
	}

	ss.log.Info("session started", "sessionID", id, "subgroups", len(created))
	return details, nil
}

// Stop completes the session and freezes the final convergence score on it.
func (ss *sessionService) Stop(ctx context.Context, id uuid.UUID) (float64, error) {
	var final float64
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ss.sessions.GetByID(ctx, tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		score, err := ss.scorer.Convergence(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("final convergence: %w", err)
		}
		final = score
		if err := ss.sessions.SetFinalConvergence(ctx, tx, id, score); err != nil {
			return fmt.Errorf("store final convergence: %w", err)
		}
		return ss.sessions.UpdateStatus(ctx, tx, id, types.SessionStatusCompleted)
	})
	if err != nil {
		return 0, err
	}

	if err := ss.pub.PublishToSession(ctx, id, realtime.EventSessionCompleted, map[string]any{
		"session_id": id.String(),
	}); err != nil {
		ss.log.Warn("session completed broadcast failed", "sessionID", id, "error", err)
	}
	ss.log.Info("session completed", "sessionID", id, "finalConvergence", final)
	return final, nil
}

func (ss *sessionService) Subgroups(ctx context.Context, id uuid.UUID) ([]*SubgroupDetail, error) {
	subgroups, err := ss.subgroups.ListBySession(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("list subgroups: %w", err)
	}
	details := make([]*SubgroupDetail, 0, len(subgroups))
	for _, sg := range subgroups {
		members, err := ss.participants.ListBySubgroup(ctx, nil, sg.ID)
		if err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
		details = append(details, &SubgroupDetail{Subgroup: sg, Members: members})
	}
	return details, nil
}

func (ss *sessionService) Ideas(ctx context.Context, id uuid.UUID) ([]*types.Idea, error) {
	return ss.ideas.ListBySession(ctx, nil, id)
}
