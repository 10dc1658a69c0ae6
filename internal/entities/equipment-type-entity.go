package entities

import "strings"

// DetailKind определяет, какая подзапись обязательна для типа оборудования.
type DetailKind int

const (
	DetailNone DetailKind = iota
	DetailSim
	DetailConsumable
)

type EquipmentType struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// DetailKind выводится из названия типа: "SIM-карта" → SIM, "Тонер"/"Consumable" → расходник.
func (t EquipmentType) DetailKind() DetailKind {
	name := strings.ToLower(t.Name)
	switch {
	case strings.Contains(name, "sim"):
		return DetailSim
	case strings.Contains(name, "consumable"), strings.Contains(name, "toner"),
		strings.Contains(name, "расходн"), strings.Contains(name, "тонер"):
		return DetailConsumable
	}
	return DetailNone
}
