package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/swarmchat-backend/internal/types"
)

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.Session {
	tb.Helper()
	s := &types.Session{
		ID:           uuid.New(),
		Title:        title,
		Status:       types.SessionStatusWaiting,
		SubgroupSize: 5,
		JoinCode:     types.GenerateJoinCode(),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedSubgroup(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, label string) *types.Subgroup {
	tb.Helper()
	sg := &types.Subgroup{
		ID:        uuid.New(),
		SessionID: sessionID,
		Label:     label,
	}
	if err := tx.WithContext(ctx).Create(sg).Error; err != nil {
		tb.Fatalf("seed subgroup: %v", err)
	}
	return sg
}

func SeedParticipant(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, subgroupID *uuid.UUID, name string) *types.Participant {
	tb.Helper()
	p := &types.Participant{
		ID:          uuid.New(),
		SessionID:   sessionID,
		SubgroupID:  subgroupID,
		DisplayName: name,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed participant: %v", err)
	}
	return p
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, subgroupID uuid.UUID, participantID *uuid.UUID, content string, createdAt time.Time) *types.Message {
	tb.Helper()
	m := &types.Message{
		ID:            uuid.New(),
		SubgroupID:    subgroupID,
		ParticipantID: participantID,
		Content:       content,
		MsgType:       types.MessageTypeHuman,
		CreatedAt:     createdAt,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

func SeedIdea(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID, subgroupID uuid.UUID, summary string, sentiment float64) *types.Idea {
	tb.Helper()
	i := &types.Idea{
		ID:           uuid.New(),
		SessionID:    sessionID,
		SubgroupID:   subgroupID,
		Summary:      summary,
		Sentiment:    sentiment,
		SupportCount: 1,
	}
	if err := tx.WithContext(ctx).Create(i).Error; err != nil {
		tb.Fatalf("seed idea: %v", err)
	}
	return i
}
