package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/realtime"
	"github.com/yungbote/swarmchat-backend/internal/repos"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

var ErrNotInSubgroup = errors.New("participant not in a subgroup")

// LateJoinAssigner places a participant who joins an already active session.
type LateJoinAssigner interface {
	AssignLateJoiner(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, participant *types.Participant, targetSize int) (*types.Subgroup, error)
}

type ParticipantService interface {
	Join(ctx context.Context, joinCode, displayName string) (*types.Participant, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Participant, error)
	Messages(ctx context.Context, participantID uuid.UUID) ([]realtime.MessagePayload, error)
}

type participantService struct {
	db           *gorm.DB
	log          *logger.Logger
	sessions     repos.SessionRepo
	participants repos.ParticipantRepo
	messages     repos.MessageRepo
	assigner     LateJoinAssigner
	pub          realtime.Publisher
}

func NewParticipantService(
	db *gorm.DB,
	log *logger.Logger,
	sessions repos.SessionRepo,
	participants repos.ParticipantRepo,
	messages repos.MessageRepo,
	assigner LateJoinAssigner,
	pub realtime.Publisher,
) ParticipantService {
	return &participantService{
		db:           db,
		log:          log.With("service", "ParticipantService"),
		sessions:     sessions,
		participants: participants,
		messages:     messages,
		assigner:     assigner,
		pub:          pub,
	}
}

// Join adds a participant to the session behind the join code. The first
// joiner becomes admin. Joining an active session assigns a subgroup right
// away and announces the arrival to session listeners.
func (ps *participantService) Join(ctx context.Context, joinCode, displayName string) (*types.Participant, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("display name is required")
	}

	var participant *types.Participant
	var assigned *types.Subgroup
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := ps.sessions.GetByJoinCode(ctx, tx, strings.ToUpper(strings.TrimSpace(joinCode)))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if session.Status == types.SessionStatusCompleted {
			return ErrSessionEnded
		}

		count, err := ps.participants.CountBySession(ctx, tx, session.ID)
		if err != nil {
			return fmt.Errorf("count participants: %w", err)
		}

		participant = &types.Participant{
			ID:          uuid.New(),
			SessionID:   session.ID,
			DisplayName: displayName,
			IsAdmin:     count == 0,
		}
		if err := ps.participants.Create(ctx, tx, participant); err != nil {
			return fmt.Errorf("create participant: %w", err)
		}

		if session.Status == types.SessionStatusActive {
			assigned, err = ps.assigner.AssignLateJoiner(ctx, tx, session.ID, participant, session.SubgroupSize)
			if err != nil {
				return fmt.Errorf("assign late joiner: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if assigned != nil {
		if err := ps.pub.PublishToSession(ctx, participant.SessionID, realtime.EventUserJoined, map[string]any{
			"user_id":      participant.ID.String(),
			"display_name": participant.DisplayName,
			"subgroup_id":  assigned.ID.String(),
		}); err != nil {
			ps.log.Warn("user joined broadcast failed", "participantID", participant.ID, "error", err)
		}
	}
	ps.log.Info("participant joined", "participantID", participant.ID, "sessionID", participant.SessionID, "isAdmin", participant.IsAdmin)
	return participant, nil
}

func (ps *participantService) Get(ctx context.Context, id uuid.UUID) (*types.Participant, error) {
	participant, err := ps.participants.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return participant, nil
}

// Messages returns the participant's subgroup history oldest first, each
// entry carrying the sender's display name. Agent messages get their fixed
// agent names.
func (ps *participantService) Messages(ctx context.Context, participantID uuid.UUID) ([]realtime.MessagePayload, error) {
	participant, err := ps.Get(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if participant.SubgroupID == nil {
		return nil, ErrNotInSubgroup
	}

	messages, err := ps.messages.ListBySubgroup(ctx, nil, *participant.SubgroupID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	members, err := ps.participants.ListBySubgroup(ctx, nil, *participant.SubgroupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	names := make(map[uuid.UUID]string, len(members))
	for _, m := range members {
		names[m.ID] = m.DisplayName
	}

	out := make([]realtime.MessagePayload, 0, len(messages))
	for _, m := range messages {
		payload := realtime.MessagePayload{
			ID:         m.ID.String(),
			SubgroupID: m.SubgroupID.String(),
			Content:    m.Content,
			MsgType:    string(m.MsgType),
			CreatedAt:  m.CreatedAt.Format(time.RFC3339),
		}
		switch {
		case m.ParticipantID != nil:
			id := m.ParticipantID.String()
			payload.UserID = &id
			if name, ok := names[*m.ParticipantID]; ok {
				payload.DisplayName = name
			} else if author, err := ps.participants.GetByID(ctx, nil, *m.ParticipantID); err == nil {
				payload.DisplayName = author.DisplayName
			}
		case m.MsgType == types.MessageTypeSurrogate:
			payload.DisplayName = "Surrogate Agent"
		case m.MsgType == types.MessageTypeContributor:
			payload.DisplayName = "Contributor Agent"
		}
		if m.SourceSubgroupID != nil {
			src := m.SourceSubgroupID.String()
			payload.SourceSubgroupID = &src
		}
		out = append(out, payload)
	}
	return out, nil
}
