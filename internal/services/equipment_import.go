package services

import (
	"context"
	"io"
	"strconv"
	"strings"

	"inventory-system/internal/documents"
	"inventory-system/internal/dto"
	"inventory-system/internal/entities"
	apperrors "inventory-system/pkg/errors"
	"inventory-system/pkg/utils"
	"inventory-system/pkg/validation"

	"go.uber.org/zap"
)

var importValidator = validation.New()

// ImportEquipment создаёт оборудование из xlsx-файла. Каждая строка проходит
// обычное создание в своей транзакции: ошибочные строки попадают в отчёт
// и не мешают остальным.
func (s *EquipmentService) ImportEquipment(ctx context.Context, file io.Reader) (*dto.ImportResultDTO, error) {
	if _, err := utils.GetUserIDFromCtx(ctx); err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	rows, err := documents.ParseEquipmentWorkbook(file)
	if err != nil {
		return nil, apperrors.Validation("%v", err)
	}

	eqTypes, err := s.typeRepo.GetEquipmentTypes(ctx)
	if err != nil {
		return nil, err
	}
	typesByName := make(map[string]entities.EquipmentType, len(eqTypes))
	for _, t := range eqTypes {
		typesByName[strings.ToLower(t.Name)] = t
	}

	result := &dto.ImportResultDTO{CreatedIDs: []uint64{}, Failed: []dto.ImportRowErrorDTO{}}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		created, err := s.importRow(ctx, row, typesByName)
		if err != nil {
			result.Failed = append(result.Failed, dto.ImportRowErrorDTO{
				Line:    row.Line,
				Kind:    apperrors.Kind(err),
				Message: apperrors.MessageOf(err),
			})
			continue
		}
		result.Created++
		result.CreatedIDs = append(result.CreatedIDs, created.ID)
	}

	s.logger.Info("импорт оборудования завершён",
		zap.Int("rows", len(rows)),
		zap.Int("created", result.Created),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *EquipmentService) importRow(ctx context.Context, row documents.ImportRow, typesByName map[string]entities.EquipmentType) (*dto.EquipmentDTO, error) {
	eqType, ok := typesByName[strings.ToLower(row.TypeName)]
	if !ok {
		return nil, apperrors.NotFound("тип оборудования «%s» не найден", row.TypeName)
	}

	payload := dto.CreateEquipmentDTO{
		TypeID:       eqType.ID,
		SerialNumber: optional(row.SerialNumber),
		Notes:        optional(row.Notes),
	}
	switch eqType.DetailKind() {
	case entities.DetailSim:
		payload.SimDetail = &dto.SimDetailDTO{PhoneNumber: row.PhoneNumber, Carrier: row.Carrier}
	case entities.DetailConsumable:
		detail := &dto.ConsumableDetailDTO{CompatibleModel: row.CompatibleModel}
		if row.Quantity != "" {
			qty, err := strconv.Atoi(row.Quantity)
			if err != nil {
				return nil, apperrors.Validation("количество «%s» не является числом", row.Quantity)
			}
			detail.Quantity = &qty
		}
		payload.ConsumableDetail = detail
	}

	if err := importValidator.Validate(payload); err != nil {
		return nil, apperrors.Validation("%v", err)
	}
	return s.CreateEquipment(ctx, payload)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
