package types

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a person inside one session. SubgroupID stays nil until the
// partitioner assigns it; the first joiner of a session becomes its admin.
type Participant struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID   uuid.UUID  `gorm:"type:uuid;not null;index;column:session_id" json:"session_id"`
	SubgroupID  *uuid.UUID `gorm:"type:uuid;index;column:subgroup_id" json:"subgroup_id,omitempty"`
	DisplayName string     `gorm:"size:50;not null;column:display_name" json:"display_name"`
	IsAdmin     bool       `gorm:"not null;default:false;column:is_admin" json:"is_admin"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Participant) TableName() string {
	return "participants"
}
