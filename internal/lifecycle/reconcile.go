package lifecycle

import (
	"sort"

	"inventory-system/internal/entities"
)

// Plan - минимальный набор операций, приводящий открытые выдачи сотрудника
// к желаемому набору оборудования.
type Plan struct {
	ToClose []entities.Assignment
	ToOpen  []uint64
	Kept    []uint64
}

func (p Plan) Empty() bool { return len(p.ToClose) == 0 && len(p.ToOpen) == 0 }

// Diff сравнивает текущие открытые выдачи с желаемым набором ID.
// Повторы в desired игнорируются, результат отсортирован по ID оборудования.
func Diff(current []entities.Assignment, desired []uint64) Plan {
	want := make(map[uint64]struct{}, len(desired))
	for _, id := range desired {
		want[id] = struct{}{}
	}

	held := make(map[uint64]struct{}, len(current))
	var plan Plan
	for _, a := range current {
		held[a.EquipmentID] = struct{}{}
		if _, ok := want[a.EquipmentID]; ok {
			plan.Kept = append(plan.Kept, a.EquipmentID)
		} else {
			plan.ToClose = append(plan.ToClose, a)
		}
	}

	for id := range want {
		if _, ok := held[id]; !ok {
			plan.ToOpen = append(plan.ToOpen, id)
		}
	}

	sort.Slice(plan.ToClose, func(i, j int) bool { return plan.ToClose[i].EquipmentID < plan.ToClose[j].EquipmentID })
	sort.Slice(plan.ToOpen, func(i, j int) bool { return plan.ToOpen[i] < plan.ToOpen[j] })
	sort.Slice(plan.Kept, func(i, j int) bool { return plan.Kept[i] < plan.Kept[j] })
	return plan
}

// Unique возвращает отсортированный набор ID без повторов и нулей.
func Unique(ids ...[]uint64) []uint64 {
	seen := make(map[uint64]struct{})
	var out []uint64
	for _, list := range ids {
		for _, id := range list {
			if id == 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
