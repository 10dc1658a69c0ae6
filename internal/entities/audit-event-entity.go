package entities

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditModify AuditAction = "MODIFY"
	AuditDelete AuditAction = "DELETE"
	AuditAssign AuditAction = "ASSIGN"
	AuditReturn AuditAction = "RETURN"
)

func ValidAuditAction(a string) bool {
	switch AuditAction(a) {
	case AuditCreate, AuditModify, AuditDelete, AuditAssign, AuditReturn:
		return true
	}
	return false
}

const (
	SectionEquipment  = "equipment"
	SectionAssignment = "assignment"
)

// AuditEvent - запись битакоры. Только вставка, никогда не изменяется.
// TxID общий для всех событий одной логической операции.
type AuditEvent struct {
	ID        uint64                 `json:"id"`
	TxID      uuid.UUID              `json:"tx_id"`
	Action    AuditAction            `json:"action"`
	Section   string                 `json:"section"`
	TargetID  *uint64                `json:"target_id"`
	ActorID   uint64                 `json:"actor_id"`
	Details   map[string]interface{} `json:"details"`
	CreatedAt time.Time              `json:"created_at"`
}
