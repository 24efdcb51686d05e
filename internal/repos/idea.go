package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

// SubgroupSentiment is one subgroup's mean idea sentiment, used by the
// convergence scorer.
type SubgroupSentiment struct {
	SubgroupID uuid.UUID
	Mean       float64
}

type IdeaRepo interface {
	Create(ctx context.Context, tx *gorm.DB, ideas []*types.Idea) error
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.Idea, error)
	ListSummariesBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]string, error)
	// ListForeign returns ideas of the session that originate outside the given
	// subgroup, in creation order. The divergence ranker relies on that order
	// being stable.
	ListForeign(ctx context.Context, tx *gorm.DB, sessionID, subgroupID uuid.UUID) ([]*types.Idea, error)
	MeanSentimentBySubgroup(ctx context.Context, tx *gorm.DB, sessionID, subgroupID uuid.UUID) (*float64, error)
	SubgroupMeans(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]SubgroupSentiment, error)
}

type ideaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdeaRepo(db *gorm.DB, baseLog *logger.Logger) IdeaRepo {
	repoLog := baseLog.With("repo", "IdeaRepo")
	return &ideaRepo{db: db, log: repoLog}
}

func (ir *ideaRepo) Create(ctx context.Context, tx *gorm.DB, ideas []*types.Idea) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if len(ideas) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&ideas).Error
}

func (ir *ideaRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.Idea, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var results []*types.Idea
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *ideaRepo) ListSummariesBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var results []string
	if err := transaction.WithContext(ctx).
		Model(&types.Idea{}).
		Where("session_id = ?", sessionID).
		Pluck("summary", &results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *ideaRepo) ListForeign(ctx context.Context, tx *gorm.DB, sessionID, subgroupID uuid.UUID) ([]*types.Idea, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var results []*types.Idea
	if err := transaction.WithContext(ctx).
		Where("session_id = ? AND subgroup_id <> ?", sessionID, subgroupID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *ideaRepo) MeanSentimentBySubgroup(ctx context.Context, tx *gorm.DB, sessionID, subgroupID uuid.UUID) (*float64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var mean *float64
	if err := transaction.WithContext(ctx).
		Model(&types.Idea{}).
		Where("session_id = ? AND subgroup_id = ?", sessionID, subgroupID).
		Select("AVG(sentiment)").
		Scan(&mean).Error; err != nil {
		return nil, err
	}
	return mean, nil
}

func (ir *ideaRepo) SubgroupMeans(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]SubgroupSentiment, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var rows []struct {
		SubgroupID uuid.UUID
		Mean       float64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Idea{}).
		Select("subgroup_id, AVG(sentiment) AS mean").
		Where("session_id = ?", sessionID).
		Group("subgroup_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	results := make([]SubgroupSentiment, 0, len(rows))
	for _, row := range rows {
		results = append(results, SubgroupSentiment{SubgroupID: row.SubgroupID, Mean: row.Mean})
	}
	return results, nil
}
