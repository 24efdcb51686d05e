package repos_test

import (
	"context"
	"math"
	"testing"

	"github.com/yungbote/swarmchat-backend/internal/repos"
	"github.com/yungbote/swarmchat-backend/internal/repos/testutil"
)

func TestIdeaRepoForeignAndMeans(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := repos.NewIdeaRepo(db, log)
	session := testutil.SeedSession(t, ctx, tx, "Remote work")
	home := testutil.SeedSubgroup(t, ctx, tx, session.ID, "ThinkTank 1")
	other := testutil.SeedSubgroup(t, ctx, tx, session.ID, "ThinkTank 2")

	testutil.SeedIdea(t, ctx, tx, session.ID, home.ID, "local idea", 0.4)
	testutil.SeedIdea(t, ctx, tx, session.ID, home.ID, "another local idea", 0.6)
	testutil.SeedIdea(t, ctx, tx, session.ID, other.ID, "foreign idea", -0.2)

	foreign, err := repo.ListForeign(ctx, tx, session.ID, home.ID)
	if err != nil {
		t.Fatalf("ListForeign: %v", err)
	}
	if len(foreign) != 1 || foreign[0].Summary != "foreign idea" {
		t.Fatalf("unexpected foreign ideas: %+v", foreign)
	}

	mean, err := repo.MeanSentimentBySubgroup(ctx, tx, session.ID, home.ID)
	if err != nil {
		t.Fatalf("MeanSentimentBySubgroup: %v", err)
	}
	if mean == nil || math.Abs(*mean-0.5) > 1e-9 {
		t.Fatalf("expected local mean 0.5, got %v", mean)
	}

	means, err := repo.SubgroupMeans(ctx, tx, session.ID)
	if err != nil {
		t.Fatalf("SubgroupMeans: %v", err)
	}
	if len(means) != 2 {
		t.Fatalf("expected means for 2 subgroups, got %d", len(means))
	}

	summaries, err := repo.ListSummariesBySession(ctx, tx, session.ID)
	if err != nil {
		t.Fatalf("ListSummariesBySession: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}
}

func TestIdeaRepoMeanWithoutIdeas(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := repos.NewIdeaRepo(db, log)
	session := testutil.SeedSession(t, ctx, tx, "Remote work")
	empty := testutil.SeedSubgroup(t, ctx, tx, session.ID, "ThinkTank 1")

	mean, err := repo.MeanSentimentBySubgroup(ctx, tx, session.ID, empty.ID)
	if err != nil {
		t.Fatalf("MeanSentimentBySubgroup: %v", err)
	}
	if mean != nil {
		t.Fatalf("expected nil mean for empty subgroup, got %v", *mean)
	}
}
