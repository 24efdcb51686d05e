package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/repos"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

type fakeSessionRepo struct {
	repos.SessionRepo
	session *types.Session
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Session, error) {
	return f.session, nil
}

type fakeMessageRepo struct {
	repos.MessageRepo
	recent  []*types.Message
	created []*types.Message
}

func (f *fakeMessageRepo) ListRecentBySubgroup(ctx context.Context, tx *gorm.DB, subgroupID uuid.UUID, limit int) ([]*types.Message, error) {
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeMessageRepo) Create(ctx context.Context, tx *gorm.DB, message *types.Message) error {
	f.created = append(f.created, message)
	return nil
}

type fakeIdeaRepo struct {
	repos.IdeaRepo
	existing  []string
	foreign   []*types.Idea
	localMean *float64
	means     []repos.SubgroupSentiment
	created   []*types.Idea
}

func (f *fakeIdeaRepo) Create(ctx context.Context, tx *gorm.DB, ideas []*types.Idea) error {
	f.created = append(f.created, ideas...)
	return nil
}

func (f *fakeIdeaRepo) ListSummariesBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]string, error) {
	summaries := append([]string{}, f.existing...)
	for _, idea := range f.created {
		summaries = append(summaries, idea.Summary)
	}
	return summaries, nil
}

func (f *fakeIdeaRepo) SubgroupMeans(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]repos.SubgroupSentiment, error) {
	return f.means, nil
}

func (f *fakeIdeaRepo) ListForeign(ctx context.Context, tx *gorm.DB, sessionID, subgroupID uuid.UUID) ([]*types.Idea, error) {
	return f.foreign, nil
}

func (f *fakeIdeaRepo) MeanSentimentBySubgroup(ctx context.Context, tx *gorm.DB, sessionID, subgroupID uuid.UUID) (*float64, error) {
	return f.localMean, nil
}

type fakeGenerator struct {
	text      string
	textErr   error
	json      any
	jsonErr   error
	textCalls int
	jsonCalls int
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt, systemInstruction string) (string, error) {
	f.textCalls++
	return f.text, f.textErr
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, prompt, systemInstruction string) (any, error) {
	f.jsonCalls++
	return f.json, f.jsonErr
}

func TestExtractForSubgroupNoMessages(t *testing.T) {
	log := mustTestLogger(t)
	gen := &fakeGenerator{}
	ideas := &fakeIdeaRepo{}
	tax := NewTaxonomy(log,
		&fakeSessionRepo{session: &types.Session{ID: uuid.New(), Title: "Remote work"}},
		&fakeMessageRepo{},
		ideas,
		gen,
	)

	got, err := tax.ExtractForSubgroup(context.Background(), nil, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("ExtractForSubgroup: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no ideas, got %d", len(got))
	}
	if gen.jsonCalls != 0 {
		t.Fatalf("expected no model call for an empty subgroup, got %d", gen.jsonCalls)
	}
	if len(ideas.created) != 0 {
		t.Fatalf("expected no persisted ideas, got %d", len(ideas.created))
	}
}

func TestExtractForSubgroupDedupesAndSkipsBlanks(t *testing.T) {
	log := mustTestLogger(t)
	gen := &fakeGenerator{json: []any{
		map[string]any{"summary": "Four-day week boosts focus", "sentiment": 0.8},
		map[string]any{"summary": "  Four-day week boosts focus  ", "sentiment": 0.7},
		map[string]any{"summary": "Already known idea", "sentiment": 0.1},
		map[string]any{"summary": "   ", "sentiment": 0.5},
		map[string]any{"sentiment": 0.5},
		"not an object",
		map[string]any{"summary": "Async meetings reduce burnout", "sentiment": -0.4},
	}}
	ideas := &fakeIdeaRepo{existing: []string{"Already known idea"}}
	tax := NewTaxonomy(log,
		&fakeSessionRepo{session: &types.Session{ID: uuid.New(), Title: "Remote work"}},
		&fakeMessageRepo{recent: []*types.Message{{Content: "let's try four-day weeks"}}},
		ideas,
		gen,
	)

	got, err := tax.ExtractForSubgroup(context.Background(), nil, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("ExtractForSubgroup: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 new ideas, got %d", len(got))
	}
	if got[0].Summary != "Four-day week boosts focus" || got[1].Summary != "Async meetings reduce burnout" {
		t.Fatalf("unexpected summaries: %q, %q", got[0].Summary, got[1].Summary)
	}
	if got[0].SupportCount != 1 {
		t.Fatalf("expected support count 1, got %d", got[0].SupportCount)
	}
	if len(ideas.created) != 2 {
		t.Fatalf("expected 2 persisted ideas, got %d", len(ideas.created))
	}
}

func TestExtractForSubgroupSecondPassAddsNothing(t *testing.T) {
	log := mustTestLogger(t)
	gen := &fakeGenerator{json: []any{
		map[string]any{"summary": "Hybrid schedules need core hours", "sentiment": 0.6},
	}}
	ideas := &fakeIdeaRepo{}
	tax := NewTaxonomy(log,
		&fakeSessionRepo{session: &types.Session{ID: uuid.New(), Title: "Remote work"}},
		&fakeMessageRepo{recent: []*types.Message{{Content: "core hours matter"}}},
		ideas,
		gen,
	)

	sessionID, subgroupID := uuid.New(), uuid.New()
	first, err := tax.ExtractForSubgroup(context.Background(), nil, sessionID, subgroupID)
	if err != nil {
		t.Fatalf("first ExtractForSubgroup: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 idea on first pass, got %d", len(first))
	}

	// Same chatter, same model output: the persisted summary must suppress
	// the candidate on the second pass.
	second, err := tax.ExtractForSubgroup(context.Background(), nil, sessionID, subgroupID)
	if err != nil {
		t.Fatalf("second ExtractForSubgroup: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no new ideas on second pass, got %d", len(second))
	}
	if len(ideas.created) != 1 {
		t.Fatalf("expected exactly 1 persisted idea across both passes, got %d", len(ideas.created))
	}
}

func TestExtractForSubgroupCoercesStringSentiment(t *testing.T) {
	log := mustTestLogger(t)
	gen := &fakeGenerator{json: []any{
		map[string]any{"summary": "Quoted number", "sentiment": "0.5"},
		map[string]any{"summary": "Not a number", "sentiment": "strongly for"},
	}}
	ideas := &fakeIdeaRepo{}
	tax := NewTaxonomy(log,
		&fakeSessionRepo{session: &types.Session{ID: uuid.New(), Title: "Remote work"}},
		&fakeMessageRepo{recent: []*types.Message{{Content: "hello"}}},
		ideas,
		gen,
	)

	got, err := tax.ExtractForSubgroup(context.Background(), nil, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("ExtractForSubgroup: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 ideas, got %d", len(got))
	}
	if got[0].Sentiment != 0.5 {
		t.Fatalf("quoted sentiment should parse to 0.5, got %v", got[0].Sentiment)
	}
	if got[1].Sentiment != 0 {
		t.Fatalf("unparseable sentiment should default to 0, got %v", got[1].Sentiment)
	}
}

func TestExtractForSubgroupMalformedModelOutput(t *testing.T) {
	log := mustTestLogger(t)
	gen := &fakeGenerator{json: map[string]any{"summary": "not an array"}}
	ideas := &fakeIdeaRepo{}
	tax := NewTaxonomy(log,
		&fakeSessionRepo{session: &types.Session{ID: uuid.New(), Title: "Remote work"}},
		&fakeMessageRepo{recent: []*types.Message{{Content: "hello"}}},
		ideas,
		gen,
	)

	got, err := tax.ExtractForSubgroup(context.Background(), nil, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("ExtractForSubgroup: %v", err)
	}
	if len(got) != 0 || len(ideas.created) != 0 {
		t.Fatalf("expected nothing persisted, got %d returned, %d created", len(got), len(ideas.created))
	}
}

func TestForeignIdeasRanking(t *testing.T) {
	log := mustTestLogger(t)
	mean := 0.0
	first := &types.Idea{Summary: "mild support", Sentiment: 0.2}
	tieA := &types.Idea{Summary: "strong support", Sentiment: 0.9}
	tieB := &types.Idea{Summary: "strong opposition", Sentiment: -0.9}
	ideas := &fakeIdeaRepo{
		localMean: &mean,
		foreign:   []*types.Idea{first, tieA, tieB},
	}
	tax := NewTaxonomy(log, nil, nil, ideas, nil)

	got, err := tax.ForeignIdeas(context.Background(), nil, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("ForeignIdeas: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 ideas, got %d", len(got))
	}
	// Equal distances keep fetch order.
	if got[0] != tieA || got[1] != tieB || got[2] != first {
		t.Fatalf("unexpected order: %q, %q, %q", got[0].Summary, got[1].Summary, got[2].Summary)
	}
}

func TestForeignIdeasTopTenCut(t *testing.T) {
	log := mustTestLogger(t)
	ideas := &fakeIdeaRepo{}
	for i := 0; i < 15; i++ {
		ideas.foreign = append(ideas.foreign, &types.Idea{
			Summary:   fmt.Sprintf("idea %d", i),
			Sentiment: float64(i) / 15.0,
		})
	}
	tax := NewTaxonomy(log, nil, nil, ideas, nil)

	got, err := tax.ForeignIdeas(context.Background(), nil, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("ForeignIdeas: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected top 10, got %d", len(got))
	}
	// No local ideas means mean 0.0, so the highest sentiments win.
	if got[0].Summary != "idea 14" {
		t.Fatalf("expected most divergent idea first, got %q", got[0].Summary)
	}
}

func TestConvergenceFewerThanTwoSubgroupsIsZero(t *testing.T) {
	log := mustTestLogger(t)
	one := repos.SubgroupSentiment{SubgroupID: uuid.New(), Mean: 0.8}

	for name, means := range map[string][]repos.SubgroupSentiment{
		"no subgroups with ideas": nil,
		"one subgroup with ideas": {one},
	} {
		tax := NewTaxonomy(log, nil, nil, &fakeIdeaRepo{means: means}, nil)
		got, err := tax.Convergence(context.Background(), nil, uuid.New())
		if err != nil {
			t.Fatalf("%s: Convergence: %v", name, err)
		}
		if got != 0.0 {
			t.Fatalf("%s: expected 0.0, got %v", name, got)
		}
	}

	// Two aligned subgroups clear the sentinel.
	tax := NewTaxonomy(log, nil, nil, &fakeIdeaRepo{means: []repos.SubgroupSentiment{
		{SubgroupID: uuid.New(), Mean: 0.5},
		{SubgroupID: uuid.New(), Mean: 0.5},
	}}, nil)
	got, err := tax.Convergence(context.Background(), nil, uuid.New())
	if err != nil {
		t.Fatalf("Convergence: %v", err)
	}
	if got != 1.0 {
		t.Fatalf("two identical means should score 1.0, got %v", got)
	}
}

func TestConvergenceScore(t *testing.T) {
	cases := []struct {
		name       string
		sentiments []float64
		want       float64
	}{
		{"identical means", []float64{0.5, 0.5, 0.5}, 1.0},
		{"maximal spread", []float64{1, -1}, 0.0},
		{"wide spread", []float64{0.9, -0.9}, 0.1},
		{"narrow spread", []float64{0.2, 0.4}, 0.9},
		{"clamped at zero", []float64{3, -3}, 0.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ConvergenceScore(tc.sentiments)
			if got != tc.want {
				t.Fatalf("ConvergenceScore(%v) = %v, want %v", tc.sentiments, got, tc.want)
			}
		})
	}
}
