package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/repos"
)

// OnlineCounter reports how many sockets are live in a subgroup.
type OnlineCounter interface {
	SubgroupOnlineCount(subgroupID uuid.UUID) int
}

// SubgroupStatus is one subgroup's slice of the session status report.
type SubgroupStatus struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	MemberCount int            `json:"member_count"`
	Members     []MemberStatus `json:"members"`
	OnlineCount int            `json:"online_count"`
}

type MemberStatus struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type SessionStatus struct {
	SessionID   string           `json:"session_id"`
	Title       string           `json:"title"`
	Status      string           `json:"status"`
	Convergence float64          `json:"convergence"`
	Subgroups   []SubgroupStatus `json:"subgroups"`
}

type AdminService interface {
	Status(ctx context.Context, sessionID uuid.UUID) (*SessionStatus, error)
	GenerateSummary(ctx context.Context, sessionID uuid.UUID) (string, error)
}

type adminService struct {
	db           *gorm.DB
	log          *logger.Logger
	sessions     repos.SessionRepo
	subgroups    repos.SubgroupRepo
	participants repos.ParticipantRepo
	ideas        repos.IdeaRepo
	scorer       ConvergenceScorer
	gen          TextGenerator
	online       OnlineCounter
}

func NewAdminService(
	db *gorm.DB,
	log *logger.Logger,
	sessions repos.SessionRepo,
	subgroups repos.SubgroupRepo,
	participants repos.ParticipantRepo,
	ideas repos.IdeaRepo,
	scorer ConvergenceScorer,
	gen TextGenerator,
	online OnlineCounter,
) AdminService {
	return &adminService{
		db:           db,
		log:          log.With("service", "AdminService"),
		sessions:     sessions,
		subgroups:    subgroups,
		participants: participants,
		ideas:        ideas,
		scorer:       scorer,
		gen:          gen,
		online:       online,
	}
}

func (as *adminService) Status(ctx context.Context, sessionID uuid.UUID) (*SessionStatus, error) {
	session, err := as.sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	subgroups, err := as.subgroups.ListBySession(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list subgroups: %w", err)
	}

	convergence, err := as.scorer.Convergence(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("convergence: %w", err)
	}

	status := &SessionStatus{
		SessionID:   session.ID.String(),
		Title:       session.Title,
		Status:      string(session.Status),
		Convergence: convergence,
		Subgroups:   make([]SubgroupStatus, 0, len(subgroups)),
	}
	for _, sg := range subgroups {
		members, err := as.participants.ListBySubgroup(ctx, nil, sg.ID)
		if err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
		memberStatuses := make([]MemberStatus, 0, len(members))
		for _, m := range members {
			memberStatuses = append(memberStatuses, MemberStatus{
				ID:          m.ID.String(),
				DisplayName: m.DisplayName,
			})
		}
		status.Subgroups = append(status.Subgroups, SubgroupStatus{
			ID:          sg.ID.String(),
			Label:       sg.Label,
			MemberCount: len(members),
			Members:     memberStatuses,
			OnlineCount: as.online.SubgroupOnlineCount(sg.ID),
		})
	}
	return status, nil
}

// GenerateSummary asks the model for a deliberative report over every idea
// the session produced and stores it on the session. Sessions with no ideas
// get a canned line and nothing is persisted.
func (as *adminService) GenerateSummary(ctx context.Context, sessionID uuid.UUID) (string, error) {
	session, err := as.sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	ideas, err := as.ideas.ListBySession(ctx, nil, sessionID)
	if err != nil {
		return "", fmt.Errorf("list ideas: %w", err)
	}
	if len(ideas) == 0 {
		return "No ideas were captured during this session.", nil
	}

	var b strings.Builder
	for i := len(ideas) - 1; i >= 0; i-- {
		idea := ideas[i]
		b.WriteString(fmt.Sprintf("- %s (sentiment: %.1f, support: %d, challenges: %d)\n",
			idea.Summary, idea.Sentiment, idea.SupportCount, idea.ChallengeCount))
	}

	prompt := fmt.Sprintf(`Summarize the outcomes of a group deliberation on: "%s"

This deliberation used Conversational Swarm Intelligence — participants were divided
into small subgroups that were interconnected by AI agents relaying insights between
groups, enabling large-scale real-time discussion.

Ideas and arguments that emerged across all groups:
%s
Write a deliberative summary (3-5 paragraphs) structured as follows:

1. **Collective Perspective**: State the group's overall conclusion in the voice of the
   collective ("Our collective perspective is..."). What did the group converge on?

2. **Reasoning and Persuasion**: Explain WHY the group reached this conclusion. What
   arguments were most persuasive? Which ideas gained traction across multiple subgroups
   and why? How did the deliberation evolve — did early disagreements resolve?

3. **Dissent and Counterarguments**: What minority views or counterarguments emerged?
   How did the group respond to challenges? Were any strong objections raised?

4. **Novel Insights**: What unexpected ideas, proposals, or connections emerged from
   the cross-group deliberation that individuals might not have reached alone?

5. **Confidence and Convergence**: How decisive was the outcome? Was there strong
   consensus or lingering disagreement? Note the sentiment distribution.

Write in a clear, professional tone. Use "we" and "our" to reflect the collective voice.
The summary should read as the group's own deliberative report, not an external analysis.`,
		session.Title, b.String())

	summary, err := as.gen.GenerateText(ctx, prompt, "")
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	if err := as.sessions.SetSummary(ctx, nil, sessionID, summary); err != nil {
		return "", fmt.Errorf("store summary: %w", err)
	}
	as.log.Info("summary generated", "sessionID", sessionID, "length", len(summary))
	return summary, nil
}
