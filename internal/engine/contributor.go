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
	contributorContextWindow = 10
	contributorSenderName    = "Contributor Agent"
)

// Contributor posts standalone observations in a subgroup's chat. Unlike the
// surrogate it carries no foreign insights, only the subgroup's own recent
// conversation, and nudges the discussion toward unexplored angles.
type Contributor struct {
	log      *logger.Logger
	messages repos.MessageRepo
	gen      services.TextGenerator
	pub      realtime.Publisher
}

func NewContributor(log *logger.Logger, messages repos.MessageRepo, gen services.TextGenerator, pub realtime.Publisher) *Contributor {
	return &Contributor{
		log:      log.With("service", "Contributor"),
		messages: messages,
		gen:      gen,
		pub:      pub,
	}
}

// Deliver generates a contributor observation from recent chat context,
// persists it and broadcasts it. Blank or failed generation is a no-op.
func (c *Contributor) Deliver(ctx context.Context, tx *gorm.DB, session *types.Session, subgroup *types.Subgroup) error {
	recent, err := c.messages.ListRecentBySubgroup(ctx, tx, subgroup.ID, contributorContextWindow)
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

	if err := c.pub.PublishToSubgroup(ctx, subgroup.ID, realtime.EventSurrogateTyping, map[string]any{
		"subgroup_id": subgroup.ID.String(),
	}); err != nil {
		c.log.Warn("typing event publish failed", "subgroupID", subgroup.ID, "error", err)
	}

	prompt := fmt.Sprintf(`You are a Contributor Agent in a group deliberation about: "%s"

Your job is to enrich the conversation with a fresh observation, question, or
angle the group has not considered yet. Speak as a friendly peer, not as an
authority or AI.

Current conversation context in this group:
%s
Write a single conversational message (2-4 sentences) that adds something new
to the discussion. Be concise. Do NOT summarize what was already said and do
NOT use bullet points. Write naturally as if you're chatting.`, session.Title, chatContext)

	content, err := c.gen.GenerateText(ctx, prompt, "")
	if err != nil {
		c.log.Error("contributor generation failed", "subgroup", subgroup.Label, "error", err)
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
		MsgType:    types.MessageTypeContributor,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.messages.Create(ctx, tx, message); err != nil {
		return fmt.Errorf("persist contributor message: %w", err)
	}

	if err := c.pub.PublishToSubgroup(ctx, subgroup.ID, realtime.EventNewMessage, realtime.MessagePayload{
		ID:          message.ID.String(),
		SubgroupID:  message.SubgroupID.String(),
		DisplayName: contributorSenderName,
		Content:     message.Content,
		MsgType:     string(types.MessageTypeContributor),
		CreatedAt:   message.CreatedAt.Format(time.RFC3339),
	}); err != nil {
		c.log.Warn("contributor broadcast failed", "subgroupID", subgroup.ID, "error", err)
	}
	return nil
}
