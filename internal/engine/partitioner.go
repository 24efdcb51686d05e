package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/repos"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

// Partitioner assigns participants to subgroups: round-robin at session start,
// smallest-first for late joiners.
type Partitioner struct {
	log          *logger.Logger
	subgroups    repos.SubgroupRepo
	participants repos.ParticipantRepo
}

func NewPartitioner(log *logger.Logger, subgroups repos.SubgroupRepo, participants repos.ParticipantRepo) *Partitioner {
	return &Partitioner{
		log:          log.With("service", "Partitioner"),
		subgroups:    subgroups,
		participants: participants,
	}
}

// SubgroupCount computes how many subgroups n participants need at the target
// size: ceil(n/target), collapsed by one when the remainder group would have
// fewer than 3 members and more than one group exists.
func SubgroupCount(n, targetSize int) int {
	if n <= 0 {
		return 1
	}
	count := n / targetSize
	if n%targetSize > 0 {
		count++
	}
	if count < 1 {
		count = 1
	}
	if count > 1 {
		lastGroupSize := n - (count-1)*targetSize
		if lastGroupSize < 3 {
			count--
		}
	}
	return count
}

// CreateSubgroups partitions participants into freshly created subgroups using
// round-robin assignment by index, so the spread is even regardless of
// arrival order. Returned subgroups are in creation order.
func (p *Partitioner) CreateSubgroups(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, participants []*types.Participant, targetSize int) ([]*types.Subgroup, error) {
	count := SubgroupCount(len(participants), targetSize)

	subgroups := make([]*types.Subgroup, 0, count)
	for i := 0; i < count; i++ {
		subgroups = append(subgroups, &types.Subgroup{
			ID:        uuid.New(),
			SessionID: sessionID,
			Label:     fmt.Sprintf("ThinkTank %d", i+1),
		})
	}
	if err := p.subgroups.Create(ctx, tx, subgroups); err != nil {
		return nil, fmt.Errorf("create subgroups: %w", err)
	}

	for idx, participant := range participants {
		sg := subgroups[idx%count]
		if err := p.participants.UpdateSubgroup(ctx, tx, participant.ID, sg.ID); err != nil {
			return nil, fmt.Errorf("assign participant %s: %w", participant.ID, err)
		}
		participant.SubgroupID = &sg.ID
	}

	p.log.Info("partitioned session", "sessionID", sessionID, "participants", len(participants), "subgroups", count)
	return subgroups, nil
}

// AssignLateJoiner places the participant into the smallest subgroup if it
// still has room at the target size, otherwise creates a new overflow
// subgroup. Ties among smallest subgroups break by creation order.
func (p *Partitioner) AssignLateJoiner(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, participant *types.Participant, targetSize int) (*types.Subgroup, error) {
	counted, err := p.subgroups.ListWithMemberCounts(ctx, tx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list subgroups: %w", err)
	}

	var target *types.Subgroup
	if len(counted) > 0 && counted[0].MemberCount < targetSize {
		target = counted[0].Subgroup
	} else {
		target = &types.Subgroup{
			ID:        uuid.New(),
			SessionID: sessionID,
			Label:     fmt.Sprintf("ThinkTank %d", len(counted)+1),
		}
		if err := p.subgroups.Create(ctx, tx, []*types.Subgroup{target}); err != nil {
			return nil, fmt.Errorf("create overflow subgroup: %w", err)
		}
	}

	if err := p.participants.UpdateSubgroup(ctx, tx, participant.ID, target.ID); err != nil {
		return nil, fmt.Errorf("assign late joiner: %w", err)
	}
	participant.SubgroupID = &target.ID
	return target, nil
}
