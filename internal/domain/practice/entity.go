package practice

import (
	"time"

	"github.com/google/uuid"
)

// Member roles
const (
	RoleOwner  = "OWNER"
	RoleLawyer = "LAWYER"
	RoleStaff  = "STAFF"
)

// Member represents practice_members. Staff of a practice may read and write
// any conversation owned by that practice without being listed as a
// participant.
type Member struct {
	PracticeID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role       string
	CreatedAt  time.Time
}

func (Member) TableName() string {
	return "practice_members"
}
