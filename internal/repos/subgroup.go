package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

// SubgroupWithCount carries a subgroup plus its current member count for the
// late-joiner placement query.
type SubgroupWithCount struct {
	Subgroup    *types.Subgroup
	MemberCount int
}

type SubgroupRepo interface {
	Create(ctx context.Context, tx *gorm.DB, subgroups []*types.Subgroup) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Subgroup, error)
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.Subgroup, error)
	CountBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error)
	ListWithMemberCounts(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]SubgroupWithCount, error)
}

type subgroupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubgroupRepo(db *gorm.DB, baseLog *logger.Logger) SubgroupRepo {
	repoLog := baseLog.With("repo", "SubgroupRepo")
	return &subgroupRepo{db: db, log: repoLog}
}

func (sgr *subgroupRepo) Create(ctx context.Context, tx *gorm.DB, subgroups []*types.Subgroup) error {
	transaction := tx
	if transaction == nil {
		transaction = sgr.db
	}
	if len(subgroups) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&subgroups).Error
}

func (sgr *subgroupRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Subgroup, error) {
	transaction := tx
	if transaction == nil {
		transaction = sgr.db
	}

	var result types.Subgroup
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (sgr *subgroupRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.Subgroup, error) {
	transaction := tx
	if transaction == nil {
		transaction = sgr.db
	}

	var results []*types.Subgroup
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sgr *subgroupRepo) CountBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sgr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Subgroup{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListWithMemberCounts returns every subgroup of the session ordered by member
// count ascending, ties broken by creation order. The ordering is part of the
// late-joiner contract: the smallest, oldest subgroup is first.
func (sgr *subgroupRepo) ListWithMemberCounts(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]SubgroupWithCount, error) {
	transaction := tx
	if transaction == nil {
		transaction = sgr.db
	}

	var rows []struct {
		types.Subgroup
		MemberCount int
	}
	if err := transaction.WithContext(ctx).
		Table("subgroups").
		Select("subgroups.*, COUNT(participants.id) AS member_count").
		Joins("LEFT JOIN participants ON participants.subgroup_id = subgroups.id").
		Where("subgroups.session_id = ?", sessionID).
		Group("subgroups.id").
		Order("member_count ASC, subgroups.created_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	results := make([]SubgroupWithCount, 0, len(rows))
	for i := range rows {
		sg := rows[i].Subgroup
		results = append(results, SubgroupWithCount{Subgroup: &sg, MemberCount: rows[i].MemberCount})
	}
	return results, nil
}
