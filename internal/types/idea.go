package types

import (
	"time"

	"github.com/google/uuid"
)

// Idea is an extracted claim with a sentiment score and the subgroup it came
// from. Ideas are written once by the taxonomy extractor and never mutated;
// the support/challenge counters are forward-compatible fields with no writer
// beyond their creation defaults.
type Idea struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID      uuid.UUID `gorm:"type:uuid;not null;index;column:session_id" json:"session_id"`
	SubgroupID     uuid.UUID `gorm:"type:uuid;not null;index;column:subgroup_id" json:"subgroup_id"`
	Summary        string    `gorm:"type:text;not null;column:summary" json:"summary"`
	Sentiment      float64   `gorm:"not null;default:0;column:sentiment" json:"sentiment"`
	SupportCount   int       `gorm:"not null;default:1;column:support_count" json:"support_count"`
	ChallengeCount int       `gorm:"not null;default:0;column:challenge_count" json:"challenge_count"`
	CreatedAt      time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (Idea) TableName() string {
	return "ideas"
}
