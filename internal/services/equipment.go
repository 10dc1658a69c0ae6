package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"inventory-system/internal/dto"
	"inventory-system/internal/entities"
	"inventory-system/internal/lifecycle"
	"inventory-system/internal/repositories"
	apperrors "inventory-system/pkg/errors"
	"inventory-system/pkg/types"
	"inventory-system/pkg/utils"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type EquipmentServiceInterface interface {
	GetEquipments(ctx context.Context, filter types.Filter) ([]dto.EquipmentDTO, uint64, error)
	FindEquipment(ctx context.Context, id uint64) (*dto.EquipmentDTO, error)
	CreateEquipment(ctx context.Context, payload dto.CreateEquipmentDTO) (*dto.EquipmentDTO, error)
	UpdateEquipment(ctx context.Context, id uint64, payload dto.UpdateEquipmentDTO) (*dto.EquipmentDTO, error)
	DeleteEquipment(ctx context.Context, id uint64) error
	ImportEquipment(ctx context.Context, file io.Reader) (*dto.ImportResultDTO, error)
}

type EquipmentService struct {
	txManager      repositories.TxManagerInterface
	equipmentRepo  repositories.EquipmentRepositoryInterface
	typeRepo       repositories.EquipmentTypeRepositoryInterface
	assignmentRepo repositories.AssignmentRepositoryInterface
	statuses       StatusCatalogInterface
	audit          AuditWriterInterface
	ledger         ledger
	logger         *zap.Logger
	now            func() time.Time
}

func NewEquipmentService(
	txManager repositories.TxManagerInterface,
	equipmentRepo repositories.EquipmentRepositoryInterface,
	typeRepo repositories.EquipmentTypeRepositoryInterface,
	assignmentRepo repositories.AssignmentRepositoryInterface,
	statuses StatusCatalogInterface,
	audit AuditWriterInterface,
	logger *zap.Logger,
) *EquipmentService {
	return &EquipmentService{
		txManager:      txManager,
		equipmentRepo:  equipmentRepo,
		typeRepo:       typeRepo,
		assignmentRepo: assignmentRepo,
		statuses:       statuses,
		audit:          audit,
		ledger:         ledger{assignments: assignmentRepo, equipment: equipmentRepo, audit: audit},
		logger:         logger,
		now:            time.Now,
	}
}

func (s *EquipmentService) GetEquipments(ctx context.Context, filter types.Filter) ([]dto.EquipmentDTO, uint64, error) {
	list, total, err := s.equipmentRepo.GetEquipments(ctx, filter)
	if err != nil {
		s.logger.Error("не удалось получить список оборудования", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.EquipmentDTO, 0, len(list))
	for i := range list {
		result = append(result, *toEquipmentDTO(&list[i]))
	}
	return result, total, nil
}

func (s *EquipmentService) FindEquipment(ctx context.Context, id uint64) (*dto.EquipmentDTO, error) {
	eq, err := s.equipmentRepo.FindEquipment(ctx, id)
	if err != nil {
		return nil, equipmentNotFound(err, id)
	}
	holder, err := s.assignmentRepo.FindOpenByEquipment(ctx, id)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	eq.Holder = holder
	return toEquipmentDTO(eq), nil
}

func (s *EquipmentService) CreateEquipment(ctx context.Context, payload dto.CreateEquipmentDTO) (*dto.EquipmentDTO, error) {
	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	eqType, err := s.findType(ctx, payload.TypeID)
	if err != nil {
		return nil, err
	}

	var status *entities.Status
	if payload.StatusID != nil {
		if status, err = s.statuses.FindStatus(ctx, *payload.StatusID); err != nil {
			return nil, err
		}
		if _, err := lifecycle.RequestTarget(*status); err != nil {
			return nil, err
		}
	} else if status, err = s.statuses.EquipmentStatus(ctx, entities.StatusAvailable); err != nil {
		return nil, err
	}

	eq := &entities.Equipment{
		TypeID:           eqType.ID,
		ModelID:          payload.ModelID,
		LocationID:       payload.LocationID,
		StatusID:         status.ID,
		SerialNumber:     normalizeSerial(payload.SerialNumber),
		Notes:            payload.Notes,
		SimDetail:        simFromDTO(payload.SimDetail),
		ConsumableDetail: consumableFromDTO(payload.ConsumableDetail),
	}
	if err := checkDetails(*eqType, eq); err != nil {
		return nil, err
	}

	op := newOperation(actorID, s.now())
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		id, err := s.equipmentRepo.CreateEquipmentInTx(ctx, tx, eq)
		if err != nil {
			return err
		}
		eq.ID = id
		return s.audit.Record(ctx, tx, op, entities.AuditCreate, entities.SectionEquipment, id, snapshot(eq))
	})
	if err != nil {
		s.logger.Error("ошибка при создании оборудования", zap.Uint64("type_id", payload.TypeID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("оборудование создано", zap.Uint64("id", eq.ID), zap.Uint64("actor_id", actorID))
	return s.FindEquipment(ctx, eq.ID)
}

// UpdateEquipment применяет частичное изменение. Смена статуса проходит через
// правила жизненного цикла: "Assigned" напрямую не ставится, уход из "Assigned"
// закрывает открытую выдачу в той же транзакции.
func (s *EquipmentService) UpdateEquipment(ctx context.Context, id uint64, payload dto.UpdateEquipmentDTO) (*dto.EquipmentDTO, error) {
	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	for _, field := range []string{"type_id", "status_id"} {
		if payload.Has(field) && !nullIntValid(payload, field) {
			return nil, apperrors.Validation("поле %s не может быть пустым", field)
		}
	}

	var requested *entities.Status
	if payload.Has("status_id") {
		if requested, err = s.statuses.FindStatus(ctx, uint64(payload.StatusID.Int)); err != nil {
			return nil, err
		}
	}

	var newType *entities.EquipmentType
	if payload.Has("type_id") {
		if newType, err = s.findType(ctx, uint64(payload.TypeID.Int)); err != nil {
			return nil, err
		}
	}

	op := newOperation(actorID, s.now())
	var changed bool
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := s.equipmentRepo.FindForUpdateInTx(ctx, tx, id)
		if err != nil {
			return equipmentNotFound(err, id)
		}

		eqType := newType
		if eqType == nil {
			if eqType, err = s.findType(ctx, current.TypeID); err != nil {
				return err
			}
		}

		next := cloneEquipment(current)
		applyPatch(next, payload, *eqType)
		if err := checkDetails(*eqType, next); err != nil {
			return err
		}

		currentStatus, err := s.statuses.FindStatus(ctx, current.StatusID)
		if err != nil {
			return err
		}
		tr := lifecycle.Transition{From: *currentStatus, To: *currentStatus}
		if requested != nil {
			// "Assigned" отклоняется даже при совпадении с текущим статусом.
			target, err := lifecycle.RequestTarget(*requested)
			if err != nil {
				return err
			}
			if requested.ID != current.StatusID {
				tr = lifecycle.PlanEdit(*currentStatus, target)
				next.StatusID = requested.ID
			}
		}

		changes := diffSnapshots(snapshot(current), snapshot(next))
		if changes.empty() {
			return nil
		}
		changed = true

		// Уход из "Assigned" пишет два события с общим tx_id: RETURN по выдаче и MODIFY ниже.
		if tr.CloseOpenAssignment {
			if err := s.closeForStatusChange(ctx, tx, op, current.ID, tr); err != nil {
				return err
			}
		}

		if err := s.equipmentRepo.UpdateEquipmentInTx(ctx, tx, next); err != nil {
			return equipmentNotFound(err, id)
		}
		return s.audit.Record(ctx, tx, op, entities.AuditModify, entities.SectionEquipment, id, changes.details())
	})
	if err != nil {
		s.logger.Error("ошибка при обновлении оборудования", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}

	if changed {
		s.logger.Info("оборудование обновлено", zap.Uint64("id", id), zap.Uint64("actor_id", actorID))
	}
	return s.FindEquipment(ctx, id)
}

// DeleteEquipment - мягкое удаление. Выданное оборудование сначала нужно вернуть.
func (s *EquipmentService) DeleteEquipment(ctx context.Context, id uint64) error {
	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return apperrors.ErrUnauthorized
	}

	op := newOperation(actorID, s.now())
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := s.equipmentRepo.FindForUpdateInTx(ctx, tx, id)
		if err != nil {
			return equipmentNotFound(err, id)
		}
		open, err := s.assignmentRepo.ListOpenByEquipmentInTx(ctx, tx, []uint64{id})
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return apperrors.Conflict([]uint64{id}, "оборудование #%d выдано сотруднику, сначала оформите возврат", id)
		}
		if err := s.equipmentRepo.SoftDeleteInTx(ctx, tx, id); err != nil {
			return equipmentNotFound(err, id)
		}
		return s.audit.Record(ctx, tx, op, entities.AuditDelete, entities.SectionEquipment, id, snapshot(current))
	})
	if err != nil {
		s.logger.Error("ошибка при удалении оборудования", zap.Uint64("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("оборудование удалено", zap.Uint64("id", id), zap.Uint64("actor_id", actorID))
	return nil
}

func (s *EquipmentService) closeForStatusChange(ctx context.Context, tx pgx.Tx, op operation, equipmentID uint64, tr lifecycle.Transition) error {
	open, err := s.assignmentRepo.ListOpenByEquipmentInTx(ctx, tx, []uint64{equipmentID})
	if err != nil {
		return err
	}
	if len(open) == 0 {
		s.logger.Warn("оборудование в статусе Assigned без открытой выдачи", zap.Uint64("equipment_id", equipmentID))
		return nil
	}
	for _, a := range open {
		if _, err := s.ledger.close(ctx, tx, op, a, noteStatusChanged, tr, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *EquipmentService) findType(ctx context.Context, id uint64) (*entities.EquipmentType, error) {
	t, err := s.typeRepo.FindEquipmentType(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("тип оборудования #%d не найден", id)
		}
		return nil, err
	}
	return t, nil
}

func equipmentNotFound(err error, id uint64) error {
	var de *apperrors.DomainError
	if errors.Is(err, apperrors.ErrNotFound) && !errors.As(err, &de) {
		return apperrors.NewDomainError(apperrors.ErrNotFound, "оборудование не найдено", id)
	}
	return err
}

func nullIntValid(payload dto.UpdateEquipmentDTO, field string) bool {
	switch field {
	case "type_id":
		return payload.TypeID.Valid
	case "status_id":
		return payload.StatusID.Valid
	}
	return true
}

// applyPatch переносит в eq только переданные поля. Подзаписи, не подходящие
// новому типу и не переданные явно, сбрасываются.
func applyPatch(eq *entities.Equipment, p dto.UpdateEquipmentDTO, eqType entities.EquipmentType) {
	if p.Has("type_id") {
		eq.TypeID = eqType.ID
	}
	if p.Has("model_id") {
		eq.ModelID = nullIntPtr(p.ModelID.Valid, p.ModelID.Int)
	}
	if p.Has("location_id") {
		eq.LocationID = nullIntPtr(p.LocationID.Valid, p.LocationID.Int)
	}
	if p.Has("serial_number") {
		eq.SerialNumber = nil
		if p.SerialNumber.Valid {
			eq.SerialNumber = normalizeSerial(&p.SerialNumber.String)
		}
	}
	if p.Has("notes") {
		eq.Notes = nil
		if p.Notes.Valid {
			notes := p.Notes.String
			eq.Notes = &notes
		}
	}
	if p.Has("sim_detail") {
		eq.SimDetail = simFromDTO(p.SimDetail)
	}
	if p.Has("consumable_detail") {
		eq.ConsumableDetail = consumableFromDTO(p.ConsumableDetail)
	}

	kind := eqType.DetailKind()
	if kind != entities.DetailSim && !p.Has("sim_detail") {
		eq.SimDetail = nil
	}
	if kind != entities.DetailConsumable && !p.Has("consumable_detail") {
		eq.ConsumableDetail = nil
	}
}

// checkDetails проверяет подзаписи, обязательные для типа оборудования.
func checkDetails(t entities.EquipmentType, eq *entities.Equipment) error {
	switch t.DetailKind() {
	case entities.DetailSim:
		if eq.ConsumableDetail != nil {
			return apperrors.Validation("тип «%s» не допускает данных расходника", t.Name)
		}
		if eq.SimDetail == nil || strings.TrimSpace(eq.SimDetail.PhoneNumber) == "" || strings.TrimSpace(eq.SimDetail.Carrier) == "" {
			return apperrors.Validation("для типа «%s» обязательны номер телефона и оператор", t.Name)
		}
	case entities.DetailConsumable:
		if eq.SimDetail != nil {
			return apperrors.Validation("тип «%s» не допускает данных SIM-карты", t.Name)
		}
		if eq.ConsumableDetail == nil || strings.TrimSpace(eq.ConsumableDetail.CompatibleModel) == "" || eq.ConsumableDetail.Quantity < 0 {
			return apperrors.Validation("для типа «%s» обязательны совместимая модель и количество", t.Name)
		}
	default:
		if eq.SimDetail != nil || eq.ConsumableDetail != nil {
			return apperrors.Validation("тип «%s» не имеет дополнительных сведений", t.Name)
		}
	}
	return nil
}

func snapshot(eq *entities.Equipment) map[string]interface{} {
	return map[string]interface{}{
		"type_id":           eq.TypeID,
		"model_id":          value(eq.ModelID),
		"location_id":       value(eq.LocationID),
		"status_id":         eq.StatusID,
		"serial_number":     value(eq.SerialNumber),
		"notes":             value(eq.Notes),
		"sim_detail":        value(eq.SimDetail),
		"consumable_detail": value(eq.ConsumableDetail),
	}
}

func diffSnapshots(before, after map[string]interface{}) changeSet {
	changes := changeSet{}
	for field, prev := range before {
		changes.add(field, prev, after[field])
	}
	return changes
}

func cloneEquipment(e *entities.Equipment) *entities.Equipment {
	c := *e
	if e.SimDetail != nil {
		sim := *e.SimDetail
		c.SimDetail = &sim
	}
	if e.ConsumableDetail != nil {
		cd := *e.ConsumableDetail
		c.ConsumableDetail = &cd
	}
	return &c
}

func normalizeSerial(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nullIntPtr(valid bool, v int) *uint64 {
	if !valid || v <= 0 {
		return nil
	}
	u := uint64(v)
	return &u
}

func simFromDTO(d *dto.SimDetailDTO) *entities.SimDetail {
	if d == nil {
		return nil
	}
	return &entities.SimDetail{PhoneNumber: strings.TrimSpace(d.PhoneNumber), Carrier: strings.TrimSpace(d.Carrier), ICCID: d.ICCID, Plan: d.Plan}
}

func consumableFromDTO(d *dto.ConsumableDetailDTO) *entities.ConsumableDetail {
	if d == nil {
		return nil
	}
	c := &entities.ConsumableDetail{CompatibleModel: strings.TrimSpace(d.CompatibleModel), Color: d.Color, Quantity: -1}
	if d.Quantity != nil {
		c.Quantity = *d.Quantity
	}
	return c
}
