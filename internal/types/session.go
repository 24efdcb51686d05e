package types

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusWaiting   SessionStatus = "waiting"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// Session is one facilitated deliberation event. Status moves monotonically
// waiting -> active -> completed; sessions are never deleted.
type Session struct {
	ID               uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title            string        `gorm:"size:200;not null;column:title" json:"title"`
	Status           SessionStatus `gorm:"size:20;not null;default:'waiting';column:status" json:"status"`
	SubgroupSize     int           `gorm:"not null;default:5;column:subgroup_size" json:"subgroup_size"`
	JoinCode         string        `gorm:"size:8;uniqueIndex;not null;column:join_code" json:"join_code"`
	Summary          *string       `gorm:"type:text;column:summary" json:"summary,omitempty"`
	FinalConvergence *float64      `gorm:"column:final_convergence" json:"final_convergence,omitempty"`
	CreatedAt        time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null;default:now()" json:"updated_at"`
}

func (Session) TableName() string {
	return "sessions"
}

const joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func GenerateJoinCode() string {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteByte(joinCodeAlphabet[rand.Intn(len(joinCodeAlphabet))])
	}
	return b.String()
}
