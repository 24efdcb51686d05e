package repos_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yungbote/swarmchat-backend/internal/repos"
	"github.com/yungbote/swarmchat-backend/internal/repos/testutil"
)

func TestMessageRepoRecentWindow(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := repos.NewMessageRepo(db, log)
	session := testutil.SeedSession(t, ctx, tx, "Remote work")
	subgroup := testutil.SeedSubgroup(t, ctx, tx, session.ID, "ThinkTank 1")
	author := testutil.SeedParticipant(t, ctx, tx, session.ID, &subgroup.ID, "alice")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		testutil.SeedMessage(t, ctx, tx, subgroup.ID, &author.ID, content(i), base.Add(time.Duration(i)*time.Minute))
	}

	recent, err := repo.ListRecentBySubgroup(ctx, tx, subgroup.ID, 3)
	if err != nil {
		t.Fatalf("ListRecentBySubgroup: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(recent))
	}
	// Newest first.
	if recent[0].Content != content(4) || recent[2].Content != content(2) {
		t.Fatalf("unexpected window: %q ... %q", recent[0].Content, recent[2].Content)
	}

	all, err := repo.ListBySubgroup(ctx, tx, subgroup.ID)
	if err != nil {
		t.Fatalf("ListBySubgroup: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(all))
	}
	if all[0].Content != content(0) || all[4].Content != content(4) {
		t.Fatalf("expected chronological order, got %q ... %q", all[0].Content, all[4].Content)
	}
}

func content(i int) string {
	return fmt.Sprintf("thought %d", i)
}
