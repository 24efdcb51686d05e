package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/yungbote/swarmchat-backend/internal/repos"
	"github.com/yungbote/swarmchat-backend/internal/repos/testutil"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

func TestSubgroupCount(t *testing.T) {
	cases := []struct {
		name   string
		n      int
		target int
		want   int
	}{
		{"exact multiple", 10, 5, 2},
		{"single participant", 1, 5, 1},
		{"tiny remainder collapses", 11, 5, 2},
		{"two-person remainder collapses", 12, 5, 2},
		{"viable remainder keeps its group", 13, 5, 3},
		{"fewer than target", 3, 5, 1},
		{"two sessions worth", 25, 5, 5},
		{"remainder of one collapses", 6, 5, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SubgroupCount(tc.n, tc.target)
			if got != tc.want {
				t.Fatalf("SubgroupCount(%d, %d) = %d, want %d", tc.n, tc.target, got, tc.want)
			}
		})
	}
}

func TestCreateSubgroupsRoundRobin(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	subgroupRepo := repos.NewSubgroupRepo(db, log)
	participantRepo := repos.NewParticipantRepo(db, log)
	p := NewPartitioner(log, subgroupRepo, participantRepo)

	session := testutil.SeedSession(t, ctx, tx, "Remote work")
	participants := make([]*types.Participant, 0, 11)
	for i := 0; i < 11; i++ {
		participants = append(participants, testutil.SeedParticipant(t, ctx, tx, session.ID, nil, fmt.Sprintf("p%d", i)))
	}

	created, err := p.CreateSubgroups(ctx, tx, session.ID, participants, 5)
	if err != nil {
		t.Fatalf("CreateSubgroups: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 subgroups for 11 at target 5, got %d", len(created))
	}
	if created[0].Label != "ThinkTank 1" || created[1].Label != "ThinkTank 2" {
		t.Fatalf("unexpected labels: %q, %q", created[0].Label, created[1].Label)
	}

	sizes := make(map[string]int)
	for _, participant := range participants {
		if participant.SubgroupID == nil {
			t.Fatalf("participant %s left unassigned", participant.DisplayName)
		}
		sizes[participant.SubgroupID.String()]++
	}
	// Round-robin over 2 groups splits 11 into 6 and 5.
	if sizes[created[0].ID.String()] != 6 || sizes[created[1].ID.String()] != 5 {
		t.Fatalf("unexpected spread: %v", sizes)
	}
}

func TestAssignLateJoinerPrefersSmallest(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	subgroupRepo := repos.NewSubgroupRepo(db, log)
	participantRepo := repos.NewParticipantRepo(db, log)
	p := NewPartitioner(log, subgroupRepo, participantRepo)

	session := testutil.SeedSession(t, ctx, tx, "Remote work")
	big := testutil.SeedSubgroup(t, ctx, tx, session.ID, "ThinkTank 1")
	small := testutil.SeedSubgroup(t, ctx, tx, session.ID, "ThinkTank 2")
	for i := 0; i < 3; i++ {
		testutil.SeedParticipant(t, ctx, tx, session.ID, &big.ID, fmt.Sprintf("b%d", i))
	}
	testutil.SeedParticipant(t, ctx, tx, session.ID, &small.ID, "s0")

	late := testutil.SeedParticipant(t, ctx, tx, session.ID, nil, "late")
	assigned, err := p.AssignLateJoiner(ctx, tx, session.ID, late, 5)
	if err != nil {
		t.Fatalf("AssignLateJoiner: %v", err)
	}
	if assigned.ID != small.ID {
		t.Fatalf("expected placement in smallest subgroup %q, got %q", small.Label, assigned.Label)
	}
	if late.SubgroupID == nil || *late.SubgroupID != small.ID {
		t.Fatalf("late joiner not updated in place")
	}
}

func TestAssignLateJoinerOverflowsWhenFull(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	subgroupRepo := repos.NewSubgroupRepo(db, log)
	participantRepo := repos.NewParticipantRepo(db, log)
	p := NewPartitioner(log, subgroupRepo, participantRepo)

	session := testutil.SeedSession(t, ctx, tx, "Remote work")
	only := testutil.SeedSubgroup(t, ctx, tx, session.ID, "ThinkTank 1")
	for i := 0; i < 3; i++ {
		testutil.SeedParticipant(t, ctx, tx, session.ID, &only.ID, fmt.Sprintf("p%d", i))
	}

	late := testutil.SeedParticipant(t, ctx, tx, session.ID, nil, "late")
	assigned, err := p.AssignLateJoiner(ctx, tx, session.ID, late, 3)
	if err != nil {
		t.Fatalf("AssignLateJoiner: %v", err)
	}
	if assigned.ID == only.ID {
		t.Fatalf("expected a fresh overflow subgroup")
	}
	if assigned.Label != "ThinkTank 2" {
		t.Fatalf("unexpected overflow label %q", assigned.Label)
	}
}
