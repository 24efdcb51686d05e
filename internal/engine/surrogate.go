package engine

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
	"github.com/yungbote/swarmchat-backend/internal/services"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

const (
	surrogateContextWindow = 10
	surrogateSenderName    = "Surrogate Agent"
)

// Surrogate crafts relay messages that introduce foreign-subgroup insights
// into a subgroup's chat, voiced as a peer. Delivery is fail-closed: a blank
// or failed generation leaves no message and no broadcast behind.
type Surrogate struct {
	log      *logger.Logger
	messages repos.MessageRepo
	gen      services.TextGenerator
	pub      realtime.Publisher
}

func NewSurrogate(log *logger.Logger, messages repos.MessageRepo, gen services.TextGenerator, pub realtime.Publisher) *Surrogate {
	return &Surrogate{
		log:      log.With("service", "Surrogate"),
		messages: messages,
		gen:      gen,
		pub:      pub,
	}
}

// Deliver weaves 1-2 of the insights into a short conversational message,
// persists it as a surrogate message and broadcasts it to the subgroup.
func (s *Surrogate) Deliver(ctx context.Context, tx *gorm.DB, session *types.Session, subgroup *types.Subgroup, insights []string) error {
	if len(insights) == 0 {
		return nil
	}

	recent, err := s.messages.ListRecentBySubgroup(ctx, tx, subgroup.ID, surrogateContextWindow)
	if err != nil {
		return fmt.Errorf("list recent messages: %w", err)
	}
	chatContext := "(No messages yet)"
	if len(recent) > 0 {
		var b strings.Builder
		for i := len(recent) - 1; i >= 0; i-- {
			b.WriteString("- ")
			b.WriteString(recent[i].Content)
			b.WriteString("\n")
		}
		chatContext = b.String()
	}

	if err := s.pub.PublishToSubgroup(ctx, subgroup.ID, realtime.EventSurrogateTyping, map[string]any{
		"subgroup_id": subgroup.ID.String(),
	}); err != nil {
		s.log.Warn("typing event publish failed", "subgroupID", subgroup.ID, "error", err)
	}

	var insightList strings.Builder
	for _, insight := range insights {
		insightList.WriteString("- ")
		insightList.WriteString(insight)
		insightList.WriteString("\n")
	}

	prompt := fmt.Sprintf(`You are a Surrogate Agent in a group deliberation about: "%s"

Your job is to naturally introduce insights from other discussion groups into this conversation.
You should speak as a friendly peer, not as an authority or AI. Use natural language like:
- "I've been hearing from other groups that..."
- "Some folks elsewhere raised an interesting point about..."
- "There's another perspective floating around that..."

Current conversation context in this group:
%s
Insights from other groups to introduce:
%s
Write a single conversational message (2-4 sentences) that naturally weaves in 1-2 of these insights.
Be concise and conversational. Do NOT list all insights - pick the most relevant or challenging ones.
Do NOT use bullet points. Write naturally as if you're chatting.`, session.Title, chatContext, insightList.String())

	content, err := s.gen.GenerateText(ctx, prompt, "")
	if err != nil {
		s.log.Error("surrogate generation failed", "subgroup", subgroup.Label, "error", err)
		return nil
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	message := &types.Message{
		ID:         uuid.New(),
		SubgroupID: subgroup.ID,
		Content:    content,
		MsgType:    types.MessageTypeSurrogate,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, tx, message); err != nil {
		return fmt.Errorf("persist surrogate message: %w", err)
	}

	if err := s.pub.PublishToSubgroup(ctx, subgroup.ID, realtime.EventNewMessage, realtime.MessagePayload{
		ID:          message.ID.String(),
		SubgroupID:  message.SubgroupID.String(),
		DisplayName: surrogateSenderName,
		Content:     message.Content,
		MsgType:     string(types.MessageTypeSurrogate),
		CreatedAt:   message.CreatedAt.Format(time.RFC3339),
	}); err != nil {
		s.log.Warn("surrogate broadcast failed", "subgroupID", subgroup.ID, "error", err)
	}
	return nil
}
