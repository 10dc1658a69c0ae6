package entities

import "time"

type StatusKind string

const (
	StatusKindEquipment StatusKind = "EQUIPMENT"
	StatusKindPersonnel StatusKind = "PERSONNEL"
	StatusKindLocation  StatusKind = "LOCATION"
)

// Имена засеянных статусов оборудования. По ним ядро ищет статусы в справочнике.
const (
	StatusAvailable      = "Available"
	StatusAssigned       = "Assigned"
	StatusUnderRepair    = "UnderRepair"
	StatusDecommissioned = "Decommissioned"
)

type Status struct {
	ID        uint64     `json:"id"`
	Kind      StatusKind `json:"kind"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
}

func (s Status) IsAssigned() bool  { return s.Kind == StatusKindEquipment && s.Name == StatusAssigned }
func (s Status) IsAvailable() bool { return s.Kind == StatusKindEquipment && s.Name == StatusAvailable }

func ValidStatusKind(kind string) bool {
	switch StatusKind(kind) {
	case StatusKindEquipment, StatusKindPersonnel, StatusKindLocation:
		return true
	}
	return false
}
