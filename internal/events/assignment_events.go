package events

import "time"

const AssignmentsOpenedName = "assignments.opened"

// AssignmentsOpened публикуется после коммита операции, открывшей выдачи.
// По нему формируется акт приёма-передачи.
type AssignmentsOpened struct {
	TxID          string
	UserID        uint64
	ActorID       uint64
	AssignmentIDs []uint64
	EquipmentIDs  []uint64
	OccurredAt    time.Time
}

// Name - реализуем интерфейс eventbus.Event
func (e AssignmentsOpened) Name() string {
	return AssignmentsOpenedName
}

const AssignmentsClosedName = "assignments.closed"

// AssignmentsClosed публикуется после коммита возврата или сверки, закрывшей выдачи.
type AssignmentsClosed struct {
	TxID          string
	UserID        uint64
	ActorID       uint64
	AssignmentIDs []uint64
	EquipmentIDs  []uint64
	OccurredAt    time.Time
}

func (e AssignmentsClosed) Name() string {
	return AssignmentsClosedName
}
