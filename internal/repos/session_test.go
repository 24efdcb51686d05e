package repos_test

import (
	"context"
	"testing"

	"github.com/yungbote/swarmchat-backend/internal/repos"
	"github.com/yungbote/swarmchat-backend/internal/repos/testutil"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

func TestSessionRepoLifecycle(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := repos.NewSessionRepo(db, log)
	seeded := testutil.SeedSession(t, ctx, tx, "Remote work")

	got, err := repo.GetByID(ctx, tx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Remote work" || got.Status != types.SessionStatusWaiting {
		t.Fatalf("unexpected session: %+v", got)
	}

	byCode, err := repo.GetByJoinCode(ctx, tx, seeded.JoinCode)
	if err != nil {
		t.Fatalf("GetByJoinCode: %v", err)
	}
	if byCode.ID != seeded.ID {
		t.Fatalf("join code resolved to wrong session")
	}

	if err := repo.UpdateStatus(ctx, tx, seeded.ID, types.SessionStatusActive); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	active, err := repo.ListByStatus(ctx, tx, types.SessionStatusActive)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	found := false
	for _, s := range active {
		if s.ID == seeded.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("activated session missing from active list")
	}

	if err := repo.SetSummary(ctx, tx, seeded.ID, "we agreed on async"); err != nil {
		t.Fatalf("SetSummary: %v", err)
	}
	if err := repo.SetFinalConvergence(ctx, tx, seeded.ID, 0.84); err != nil {
		t.Fatalf("SetFinalConvergence: %v", err)
	}
	got, err = repo.GetByID(ctx, tx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID after update: %v", err)
	}
	if got.Summary == nil || *got.Summary != "we agreed on async" {
		t.Fatalf("summary not persisted: %+v", got.Summary)
	}
	if got.FinalConvergence == nil || *got.FinalConvergence != 0.84 {
		t.Fatalf("final convergence not persisted: %+v", got.FinalConvergence)
	}
}
