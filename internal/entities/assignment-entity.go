package entities

import "time"

// Assignment - выдача единицы оборудования сотруднику. ReturnedAt == nil означает,
// что выдача открыта. Строки не удаляются: это история.
type Assignment struct {
	ID               uint64     `json:"id"`
	EquipmentID      uint64     `json:"equipment_id"`
	UserID           uint64     `json:"user_id"`
	AssignedByUserID uint64     `json:"assigned_by_user_id"`
	AssignedAt       time.Time  `json:"assigned_at"`
	ReturnedAt       *time.Time `json:"returned_at"`
	DocumentPath     *string    `json:"document_path"`
}

func (a Assignment) IsOpen() bool { return a.ReturnedAt == nil }
