package services

import (
	"inventory-system/internal/dto"
	"inventory-system/internal/entities"
)

func toEquipmentDTO(e *entities.Equipment) *dto.EquipmentDTO {
	out := &dto.EquipmentDTO{
		ID:           e.ID,
		TypeID:       e.TypeID,
		TypeName:     e.TypeName,
		ModelID:      e.ModelID,
		LocationID:   e.LocationID,
		StatusID:     e.StatusID,
		StatusName:   e.StatusName,
		SerialNumber: e.SerialNumber,
		Notes:        e.Notes,
	}
	if e.CreatedAt != nil {
		out.CreatedAt = e.CreatedAt.Local().Format(dto.TimeLayout)
	}
	if e.UpdatedAt != nil {
		out.UpdatedAt = e.UpdatedAt.Local().Format(dto.TimeLayout)
	}
	if sim := e.SimDetail; sim != nil {
		out.SimDetail = &dto.SimDetailDTO{PhoneNumber: sim.PhoneNumber, Carrier: sim.Carrier, ICCID: sim.ICCID, Plan: sim.Plan}
	}
	if c := e.ConsumableDetail; c != nil {
		qty := c.Quantity
		out.ConsumableDetail = &dto.ConsumableDetailDTO{CompatibleModel: c.CompatibleModel, Color: c.Color, Quantity: &qty}
	}
	if e.Holder != nil {
		holder := toAssignmentDTO(*e.Holder)
		out.Holder = &holder
	}
	return out
}

func toAssignmentDTO(a entities.Assignment) dto.AssignmentDTO {
	out := dto.AssignmentDTO{
		ID:               a.ID,
		EquipmentID:      a.EquipmentID,
		UserID:           a.UserID,
		AssignedByUserID: a.AssignedByUserID,
		AssignedAt:       a.AssignedAt.Local().Format(dto.TimeLayout),
		DocumentPath:     a.DocumentPath,
	}
	if a.ReturnedAt != nil {
		returned := a.ReturnedAt.Local().Format(dto.TimeLayout)
		out.ReturnedAt = &returned
	}
	return out
}

func toAssignmentDTOs(list []entities.Assignment) []dto.AssignmentDTO {
	out := make([]dto.AssignmentDTO, 0, len(list))
	for _, a := range list {
		out = append(out, toAssignmentDTO(a))
	}
	return out
}

func toAuditEventDTO(e entities.AuditEvent) dto.AuditEventDTO {
	return dto.AuditEventDTO{
		ID:        e.ID,
		TxID:      e.TxID.String(),
		Action:    string(e.Action),
		Section:   e.Section,
		TargetID:  e.TargetID,
		ActorID:   e.ActorID,
		Details:   e.Details,
		CreatedAt: e.CreatedAt.Local().Format(dto.TimeLayout),
	}
}
