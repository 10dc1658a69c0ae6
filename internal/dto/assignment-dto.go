package dto

type AssignEquipmentDTO struct {
	EquipmentID uint64 `json:"equipment_id" validate:"required,gt=0"`
	UserID      uint64 `json:"user_id" validate:"required,gt=0"`
}

type ReturnEquipmentDTO struct {
	Note string `json:"note" validate:"omitempty,max=500"`
}

// ReconcileAssignmentsDTO - желаемый набор оборудования сотрудника. Пустой список закрывает все выдачи.
type ReconcileAssignmentsDTO struct {
	EquipmentIDs []uint64 `json:"equipment_ids" validate:"omitempty,max=500,dive,gt=0"`
}

type AssignmentDTO struct {
	ID               uint64  `json:"id"`
	EquipmentID      uint64  `json:"equipment_id"`
	UserID           uint64  `json:"user_id"`
	AssignedByUserID uint64  `json:"assigned_by_user_id"`
	AssignedAt       string  `json:"assigned_at"`
	ReturnedAt       *string `json:"returned_at"`
	DocumentPath     *string `json:"document_path"`
}

type ReconcileResultDTO struct {
	UserID uint64          `json:"user_id"`
	Opened []AssignmentDTO `json:"opened"`
	Closed []AssignmentDTO `json:"closed"`
}
