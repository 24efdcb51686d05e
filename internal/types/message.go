package types

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeHuman       MessageType = "human"
	MessageTypeSurrogate   MessageType = "surrogate"
	MessageTypeContributor MessageType = "contributor"
)

// Message is immutable once written. ParticipantID is nil for agent-authored
// messages; SourceSubgroupID is reserved for relays attributed to an origin.
type Message struct {
	ID               uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubgroupID       uuid.UUID   `gorm:"type:uuid;not null;index;column:subgroup_id" json:"subgroup_id"`
	ParticipantID    *uuid.UUID  `gorm:"type:uuid;column:participant_id" json:"participant_id,omitempty"`
	Content          string      `gorm:"type:text;not null;column:content" json:"content"`
	MsgType          MessageType `gorm:"size:20;not null;default:'human';column:msg_type" json:"msg_type"`
	SourceSubgroupID *uuid.UUID  `gorm:"type:uuid;column:source_subgroup_id" json:"source_subgroup_id,omitempty"`
	CreatedAt        time.Time   `gorm:"not null;default:now();index" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}
