package repos_test

import (
	"context"
	"testing"

	"github.com/yungbote/swarmchat-backend/internal/repos"
	"github.com/yungbote/swarmchat-backend/internal/repos/testutil"
)

func TestSubgroupRepoListWithMemberCounts(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := repos.NewSubgroupRepo(db, log)
	session := testutil.SeedSession(t, ctx, tx, "Remote work")
	full := testutil.SeedSubgroup(t, ctx, tx, session.ID, "ThinkTank 1")
	small := testutil.SeedSubgroup(t, ctx, tx, session.ID, "ThinkTank 2")
	empty := testutil.SeedSubgroup(t, ctx, tx, session.ID, "ThinkTank 3")

	for i := 0; i < 3; i++ {
		testutil.SeedParticipant(t, ctx, tx, session.ID, &full.ID, "alice")
	}
	testutil.SeedParticipant(t, ctx, tx, session.ID, &small.ID, "bob")

	counts, err := repo.ListWithMemberCounts(ctx, tx, session.ID)
	if err != nil {
		t.Fatalf("ListWithMemberCounts: %v", err)
	}
	if len(counts) != 3 {
		t.Fatalf("expected 3 subgroups, got %d", len(counts))
	}
	// Emptiest first; the late-joiner assignment depends on this order.
	if counts[0].Subgroup.ID != empty.ID || counts[0].MemberCount != 0 {
		t.Fatalf("expected empty subgroup first, got %q with %d", counts[0].Subgroup.Label, counts[0].MemberCount)
	}
	if counts[1].Subgroup.ID != small.ID || counts[1].MemberCount != 1 {
		t.Fatalf("expected one-member subgroup second, got %q with %d", counts[1].Subgroup.Label, counts[1].MemberCount)
	}
	if counts[2].Subgroup.ID != full.ID || counts[2].MemberCount != 3 {
		t.Fatalf("expected fullest subgroup last, got %q with %d", counts[2].Subgroup.Label, counts[2].MemberCount)
	}

	total, err := repo.CountBySession(ctx, tx, session.ID)
	if err != nil {
		t.Fatalf("CountBySession: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 subgroups counted, got %d", total)
	}
}
