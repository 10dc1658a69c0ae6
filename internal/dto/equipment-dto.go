package dto

import (
	"github.com/aarondl/null/v8"
)

type SimDetailDTO struct {
	PhoneNumber string  `json:"phone_number" validate:"required,phone_number"`
	Carrier     string  `json:"carrier" validate:"required,max=100"`
	ICCID       *string `json:"iccid,omitempty" validate:"omitempty,iccid"`
	Plan        *string `json:"plan,omitempty" validate:"omitempty,max=100"`
}

type ConsumableDetailDTO struct {
	CompatibleModel string  `json:"compatible_model" validate:"required,max=150"`
	Color           *string `json:"color,omitempty" validate:"omitempty,max=50"`
	Quantity        *int    `json:"quantity" validate:"required,gte=0"`
}

type CreateEquipmentDTO struct {
	TypeID       uint64  `json:"type_id" validate:"required,gt=0"`
	ModelID      *uint64 `json:"model_id" validate:"omitempty,gt=0"`
	LocationID   *uint64 `json:"location_id" validate:"omitempty,gt=0"`
	StatusID     *uint64 `json:"status_id" validate:"omitempty,gt=0"`
	SerialNumber *string `json:"serial_number" validate:"omitempty,serial_number"`
	Notes        *string `json:"notes" validate:"omitempty,max=2000"`

	SimDetail        *SimDetailDTO        `json:"sim_detail" validate:"omitempty"`
	ConsumableDetail *ConsumableDetailDTO `json:"consumable_detail" validate:"omitempty"`
}

// UpdateEquipmentDTO - частичное обновление. Fields хранит ключи, которые
// реально пришли в теле запроса: так "null" (очистить) отличается от "не передано".
type UpdateEquipmentDTO struct {
	TypeID       null.Int    `json:"type_id" validate:"omitempty,gt=0"`
	ModelID      null.Int    `json:"model_id" validate:"omitempty,gt=0"`
	LocationID   null.Int    `json:"location_id" validate:"omitempty,gt=0"`
	StatusID     null.Int    `json:"status_id" validate:"omitempty,gt=0"`
	SerialNumber null.String `json:"serial_number" validate:"omitempty,serial_number"`
	Notes        null.String `json:"notes" validate:"omitempty,max=2000"`

	SimDetail        *SimDetailDTO        `json:"sim_detail" validate:"omitempty"`
	ConsumableDetail *ConsumableDetailDTO `json:"consumable_detail" validate:"omitempty"`

	Fields map[string]bool `json:"-"`
}

// Has сообщает, был ли ключ передан в запросе.
func (d UpdateEquipmentDTO) Has(field string) bool {
	return d.Fields[field]
}

type EquipmentDTO struct {
	ID           uint64  `json:"id"`
	TypeID       uint64  `json:"type_id"`
	TypeName     string  `json:"type_name"`
	ModelID      *uint64 `json:"model_id"`
	LocationID   *uint64 `json:"location_id"`
	StatusID     uint64  `json:"status_id"`
	StatusName   string  `json:"status_name"`
	SerialNumber *string `json:"serial_number"`
	Notes        *string `json:"notes"`

	SimDetail        *SimDetailDTO        `json:"sim_detail,omitempty"`
	ConsumableDetail *ConsumableDetailDTO `json:"consumable_detail,omitempty"`
	Holder           *AssignmentDTO       `json:"holder,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ImportRowErrorDTO struct {
	Line    int    `json:"line"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ImportResultDTO struct {
	Created    int                 `json:"created"`
	CreatedIDs []uint64            `json:"created_ids"`
	Failed     []ImportRowErrorDTO `json:"failed"`
}
