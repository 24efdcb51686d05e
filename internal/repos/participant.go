package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

type ParticipantRepo interface {
	Create(ctx context.Context, tx *gorm.DB, participant *types.Participant) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Participant, error)
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.Participant, error)
	ListBySubgroup(ctx context.Context, tx *gorm.DB, subgroupID uuid.UUID) ([]*types.Participant, error)
	CountBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error)
	UpdateSubgroup(ctx context.Context, tx *gorm.DB, participantID uuid.UUID, subgroupID uuid.UUID) error
}

type participantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewParticipantRepo(db *gorm.DB, baseLog *logger.Logger) ParticipantRepo {
	repoLog := baseLog.With("repo", "ParticipantRepo")
	return &participantRepo{db: db, log: repoLog}
}

func (pr *participantRepo) Create(ctx context.Context, tx *gorm.DB, participant *types.Participant) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).Create(participant).Error
}

func (pr *participantRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Participant, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var result types.Participant
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *participantRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.Participant, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Participant
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *participantRepo) ListBySubgroup(ctx context.Context, tx *gorm.DB, subgroupID uuid.UUID) ([]*types.Participant, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Participant
	if err := transaction.WithContext(ctx).
		Where("subgroup_id = ?", subgroupID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *participantRepo) CountBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Participant{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (pr *participantRepo) UpdateSubgroup(ctx context.Context, tx *gorm.DB, participantID uuid.UUID, subgroupID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Participant{}).
		Where("id = ?", participantID).
		Update("subgroup_id", subgroupID).Error
}
