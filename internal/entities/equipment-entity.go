package entities

import (
	"inventory-system/pkg/types"
)

type SimDetail struct {
	PhoneNumber string  `json:"phone_number"`
	Carrier     string  `json:"carrier"`
	ICCID       *string `json:"iccid,omitempty"`
	Plan        *string `json:"plan,omitempty"`
}

type ConsumableDetail struct {
	CompatibleModel string  `json:"compatible_model"`
	Color           *string `json:"color,omitempty"`
	Quantity        int     `json:"quantity"`
}

type Equipment struct {
	ID           uint64  `json:"id"`
	TypeID       uint64  `json:"type_id"`
	ModelID      *uint64 `json:"model_id"`
	LocationID   *uint64 `json:"location_id"`
	StatusID     uint64  `json:"status_id"`
	SerialNumber *string `json:"serial_number"`
	Notes        *string `json:"notes"`

	SimDetail        *SimDetail        `json:"sim_detail,omitempty"`
	ConsumableDetail *ConsumableDetail `json:"consumable_detail,omitempty"`

	types.BaseEntity
	types.SoftDelete

	// Поля для связанных данных (не колонки в таблице)
	TypeName   string      `db:"-" json:"-"`
	StatusName string      `db:"-" json:"-"`
	Holder     *Assignment `db:"-" json:"-"`
}
