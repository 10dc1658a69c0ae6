// Package lifecycle содержит чистые правила жизненного цикла оборудования:
// допустимые смены статуса и расчёт разницы при сверке выдач.
package lifecycle

import (
	"inventory-system/internal/entities"
	apperrors "inventory-system/pkg/errors"
)

// Target - статус, в который разрешено перевести оборудование.
// Вариант "Assigned" нельзя получить через RequestTarget: в него
// оборудование попадает только через PlanAssign.
type Target struct {
	status entities.Status
}

func (t Target) Status() entities.Status { return t.status }

// RequestTarget проверяет статус, запрошенный напрямую (редактирование, создание).
func RequestTarget(s entities.Status) (Target, error) {
	if s.Kind != entities.StatusKindEquipment {
		return Target{}, apperrors.Validation("статус «%s» (%s) не относится к оборудованию", s.Name, s.Kind)
	}
	if s.IsAssigned() {
		return Target{}, apperrors.InvalidTransition("статус «%s» устанавливается только через выдачу оборудования", s.Name)
	}
	return Target{status: s}, nil
}

// Transition описывает смену статуса и её побочные эффекты.
type Transition struct {
	From entities.Status
	To   entities.Status
	// CloseOpenAssignment - оборудование уходит из "Assigned", открытая выдача должна быть закрыта.
	CloseOpenAssignment bool
}

func (t Transition) Changed() bool { return t.From.ID != t.To.ID }

// PlanEdit строит переход при прямом редактировании статуса.
func PlanEdit(current entities.Status, target Target) Transition {
	tr := Transition{From: current, To: target.status}
	if current.IsAssigned() && tr.Changed() {
		tr.CloseOpenAssignment = true
	}
	return tr
}

// PlanAssign - единственный путь в статус "Assigned". Допустим только из "Available".
func PlanAssign(equipmentID uint64, current, assigned entities.Status) (Transition, error) {
	if !assigned.IsAssigned() {
		return Transition{}, apperrors.Configuration(nil, "статус «%s» не является статусом выдачи", assigned.Name)
	}
	if !current.IsAvailable() {
		return Transition{}, apperrors.NotAvailable(equipmentID, current.Name)
	}
	return Transition{From: current, To: assigned}, nil
}

// PlanReturn - возврат всегда переводит оборудование в "Available".
func PlanReturn(current, available entities.Status) (Transition, error) {
	if !available.IsAvailable() {
		return Transition{}, apperrors.Configuration(nil, "статус «%s» не является статусом доступности", available.Name)
	}
	return Transition{From: current, To: available}, nil
}
