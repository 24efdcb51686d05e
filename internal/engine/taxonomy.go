package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/repos"
	"github.com/yungbote/swarmchat-backend/internal/services"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

const (
	extractionWindow = 20
	foreignIdeaLimit = 10
)

// Taxonomy maintains the session-wide idea index: it extracts ideas from
// recent subgroup chatter, ranks foreign ideas by how much they challenge a
// subgroup's local consensus, and scores cross-subgroup convergence.
type Taxonomy struct {
	log      *logger.Logger
	sessions repos.SessionRepo
	messages repos.MessageRepo
	ideas    repos.IdeaRepo
	gen      services.TextGenerator
}

func NewTaxonomy(log *logger.Logger, sessions repos.SessionRepo, messages repos.MessageRepo, ideas repos.IdeaRepo, gen services.TextGenerator) *Taxonomy {
	return &Taxonomy{
		log:      log.With("service", "Taxonomy"),
		sessions: sessions,
		messages: messages,
		ideas:    ideas,
		gen:      gen,
	}
}

// ExtractForSubgroup pulls the last messages of the subgroup, asks the model
// for distinct ideas with sentiment, and persists the ones whose summaries are
// new to the session. Returns exactly the newly persisted ideas.
func (t *Taxonomy) ExtractForSubgroup(ctx context.Context, tx *gorm.DB, sessionID, subgroupID uuid.UUID) ([]*types.Idea, error) {
	session, err := t.sessions.GetByID(ctx, tx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	messages, err := t.messages.ListRecentBySubgroup(ctx, tx, subgroupID, extractionWindow)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if len(messages) == 0 {
		return nil, nil
	}

	var b strings.Builder
	for i := len(messages) - 1; i >= 0; i-- {
		b.WriteString("- ")
		b.WriteString(messages[i].Content)
		b.WriteString("\n")
	}

	prompt := fmt.Sprintf(`Analyze the following discussion messages about the topic: "%s"

Extract distinct ideas, arguments, or proposals mentioned. For each idea, provide:
- summary: A concise 1-2 sentence description
- sentiment: A float from -1.0 (strongly against the topic) to 1.0 (strongly for)

Return a JSON array of objects with "summary" and "sentiment" fields.
If no clear ideas are present, return an empty array [].

Messages:
%s
Return ONLY valid JSON, no markdown formatting.`, session.Title, b.String())

	raw, err := t.gen.GenerateJSON(ctx, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("generate ideas: %w", err)
	}
	candidates, _ := raw.([]any)

	existing, err := t.ideas.ListSummariesBySession(ctx, tx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list existing summaries: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, summary := range existing {
		seen[strings.TrimSpace(summary)] = true
	}

	var newIdeas []*types.Idea
	for _, candidate := range candidates {
		obj, ok := candidate.(map[string]any)
		if !ok {
			continue
		}
		summary, _ := obj["summary"].(string)
		summary = strings.TrimSpace(summary)
		if summary == "" || seen[summary] {
			continue
		}
		sentiment := parseSentiment(obj["sentiment"])

		seen[summary] = true
		newIdeas = append(newIdeas, &types.Idea{
			ID:           uuid.New(),
			SessionID:    sessionID,
			SubgroupID:   subgroupID,
			Summary:      summary,
			Sentiment:    sentiment,
			SupportCount: 1,
		})
	}

	if err := t.ideas.Create(ctx, tx, newIdeas); err != nil {
		return nil, fmt.Errorf("persist ideas: %w", err)
	}
	if len(newIdeas) > 0 {
		t.log.Debug("extracted ideas", "sessionID", sessionID, "subgroupID", subgroupID, "count", len(newIdeas))
	}
	return newIdeas, nil
}

// parseSentiment accepts the float the model was asked for, but also coerces
// the numeric strings it sometimes returns instead.
func parseSentiment(v any) float64 {
	switch s := v.(type) {
	case float64:
		return s
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return 0
}

// ForeignIdeas returns up to 10 ideas from other subgroups, most challenging
// first: sorted by distance from the subgroup's own mean sentiment, with ties
// keeping their fetch order.
func (t *Taxonomy) ForeignIdeas(ctx context.Context, tx *gorm.DB, sessionID, subgroupID uuid.UUID) ([]*types.Idea, error) {
	localMean := 0.0
	if mean, err := t.ideas.MeanSentimentBySubgroup(ctx, tx, sessionID, subgroupID); err != nil {
		return nil, fmt.Errorf("local mean sentiment: %w", err)
	} else if mean != nil {
		localMean = *mean
	}

	foreign, err := t.ideas.ListForeign(ctx, tx, sessionID, subgroupID)
	if err != nil {
		return nil, fmt.Errorf("list foreign ideas: %w", err)
	}

	sort.SliceStable(foreign, func(i, j int) bool {
		return math.Abs(foreign[i].Sentiment-localMean) > math.Abs(foreign[j].Sentiment-localMean)
	})

	if len(foreign) > foreignIdeaLimit {
		foreign = foreign[:foreignIdeaLimit]
	}
	return foreign, nil
}

// Convergence maps the spread of per-subgroup mean sentiments onto [0,1]:
// identical means score 1.0, maximal spread scores 0.0. The 0.0 return is
// overloaded: it also means "fewer than two subgroups have ideas", so callers
// cannot tell no-signal apart from full divergence.
func (t *Taxonomy) Convergence(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (float64, error) {
	means, err := t.ideas.SubgroupMeans(ctx, tx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("subgroup means: %w", err)
	}
	if len(means) < 2 {
		return 0.0, nil
	}

	sentiments := make([]float64, 0, len(means))
	for _, m := range means {
		sentiments = append(sentiments, m.Mean)
	}
	return ConvergenceScore(sentiments), nil
}

// ConvergenceScore computes max(0, 1-sqrt(popvariance)) rounded to 3 decimals.
// Sentiment lives in [-1,1], so the population variance tops out at 1.0.
func ConvergenceScore(sentiments []float64) float64 {
	mean := 0.0
	for _, s := range sentiments {
		mean += s
	}
	mean /= float64(len(sentiments))

	variance := 0.0
	for _, s := range sentiments {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(sentiments))

	score := 1.0 - math.Sqrt(variance)
	if score < 0 {
		score = 0
	}
	return math.Round(score*1000) / 1000
}
