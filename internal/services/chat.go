package services

import (
	"context"
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

type ChatService interface {
	HandleChatMessage(ctx context.Context, participantID, subgroupID uuid.UUID, content string) error
}

type chatService struct {
	db           *gorm.DB
	log          *logger.Logger
	participants repos.ParticipantRepo
	messages     repos.MessageRepo
	pub          realtime.Publisher
}

func NewChatService(
	db *gorm.DB,
	log *logger.Logger,
	participants repos.ParticipantRepo,
	messages repos.MessageRepo,
	pub realtime.Publisher,
) ChatService {
	return &chatService{
		db:           db,
		log:          log.With("service", "ChatService"),
		participants: participants,
		messages:     messages,
		pub:          pub,
	}
}

// HandleChatMessage persists a human chat message and fans it out to the
// subgroup. Blank content and unknown senders are dropped silently; a chat
// socket is not the place to surface validation errors.
func (cs *chatService) HandleChatMessage(ctx context.Context, participantID, subgroupID uuid.UUID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	participant, err := cs.participants.GetByID(ctx, nil, participantID)
	if err != nil {
		cs.log.Warn("chat from unknown participant", "participantID", participantID)
		return nil
	}

	message := &types.Message{
		ID:            uuid.New(),
		SubgroupID:    subgroupID,
		ParticipantID: &participantID,
		Content:       content,
		MsgType:       types.MessageTypeHuman,
		CreatedAt:     time.Now().UTC(),
	}
	if err := cs.messages.Create(ctx, nil, message); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}

	userID := participantID.String()
	return cs.pub.PublishToSubgroup(ctx, subgroupID, realtime.EventNewMessage, realtime.MessagePayload{
		ID:          message.ID.String(),
		SubgroupID:  subgroupID.String(),
		UserID:      &userID,
		DisplayName: participant.DisplayName,
		Content:     content,
		MsgType:     string(types.MessageTypeHuman),
		CreatedAt:   message.CreatedAt.Format(time.RFC3339),
	})
}
