package services

import (
	"context"

	"inventory-system/internal/entities"
	"inventory-system/internal/lifecycle"
	"inventory-system/internal/repositories"

	"github.com/jackc/pgx/v5"
)

const (
	noteDefaultReturn = "equipment returned"
	noteStatusChanged = "status changed"
	noteReconcile     = "reconciliation"
)

// ledger - общие шаги открытия и закрытия выдачи внутри транзакции.
// Вызывающий отвечает за блокировку строки оборудования.
type ledger struct {
	assignments repositories.AssignmentRepositoryInterface
	equipment   repositories.EquipmentRepositoryInterface
	audit       AuditWriterInterface
}

func (l ledger) open(ctx context.Context, tx pgx.Tx, op operation, equipmentID, userID uint64, tr lifecycle.Transition) (entities.Assignment, error) {
	a := entities.Assignment{
		EquipmentID:      equipmentID,
		UserID:           userID,
		AssignedByUserID: op.actorID,
		AssignedAt:       op.at,
	}
	id, err := l.assignments.CreateAssignmentInTx(ctx, tx, &a)
	if err != nil {
		return a, err
	}
	a.ID = id

	if err := l.equipment.UpdateStatusInTx(ctx, tx, equipmentID, tr.To.ID); err != nil {
		return a, err
	}

	err = l.audit.Record(ctx, tx, op, entities.AuditAssign, entities.SectionAssignment, equipmentID, map[string]interface{}{
		"assignment_id": a.ID,
		"user_id":       userID,
		"assigned_by":   op.actorID,
		"status_before": tr.From.ID,
		"status_after":  tr.To.ID,
	})
	return a, err
}

// close закрывает выдачу. При writeStatus оборудование переводится в tr.To,
// иначе статус меняет вызывающий (правка статуса с неявным возвратом).
func (l ledger) close(ctx context.Context, tx pgx.Tx, op operation, a entities.Assignment, note string, tr lifecycle.Transition, writeStatus bool) (entities.Assignment, error) {
	if err := l.assignments.CloseAssignmentInTx(ctx, tx, a.ID, op.at); err != nil {
		return a, err
	}
	returnedAt := op.at
	a.ReturnedAt = &returnedAt

	if writeStatus {
		if err := l.equipment.UpdateStatusInTx(ctx, tx, a.EquipmentID, tr.To.ID); err != nil {
			return a, err
		}
	}

	if note == "" {
		note = noteDefaultReturn
	}
	err := l.audit.Record(ctx, tx, op, entities.AuditReturn, entities.SectionAssignment, a.EquipmentID, map[string]interface{}{
		"assignment_id": a.ID,
		"user_id":       a.UserID,
		"returned_by":   op.actorID,
		"note":          note,
		"status_before": tr.From.ID,
		"status_after":  tr.To.ID,
	})
	return a, err
}
