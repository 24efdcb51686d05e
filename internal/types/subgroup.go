package types

import (
	"time"

	"github.com/google/uuid"
)

// Subgroup is a bounded-size chat cohort within a session. Subgroups are
// created at partition time (or on demand for overflow) and never merged.
type Subgroup struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index;column:session_id" json:"session_id"`
	Label     string    `gorm:"size:20;not null;column:label" json:"label"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Subgroup) TableName() string {
	return "subgroups"
}
