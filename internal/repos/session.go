package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/types"
)

type SessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.Session) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Session, error)
	GetByJoinCode(ctx context.Context, tx *gorm.DB, joinCode string) (*types.Session, error)
	ListByStatus(ctx context.Context, tx *gorm.DB, status types.SessionStatus) ([]*types.Session, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.SessionStatus) error
	SetSummary(ctx context.Context, tx *gorm.DB, id uuid.UUID, summary string) error
	SetFinalConvergence(ctx context.Context, tx *gorm.DB, id uuid.UUID, score float64) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	repoLog := baseLog.With("repo", "SessionRepo")
	return &sessionRepo{db: db, log: repoLog}
}

func (sr *sessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.Session) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	return transaction.WithContext(ctx).Create(session).Error
}

func (sr *sessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.Session
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *sessionRepo) GetByJoinCode(ctx context.Context, tx *gorm.DB, joinCode string) (*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.Session
	if err := transaction.WithContext(ctx).
		Where("join_code = ?", joinCode).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *sessionRepo) ListByStatus(ctx context.Context, tx *gorm.DB, status types.SessionStatus) ([]*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Session
	if err := transaction.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *sessionRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.SessionStatus) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Session{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (sr *sessionRepo) SetSummary(ctx context.Context, tx *gorm.DB, id uuid.UUID, summary string) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Session{}).
		Where("id = ?", id).
		Update("summary", summary).Error
}

func (sr *sessionRepo) SetFinalConvergence(ctx context.Context, tx *gorm.DB, id uuid.UUID, score float64) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Session{}).
		Where("id = ?", id).
		Update("final_convergence", score).Error
}
