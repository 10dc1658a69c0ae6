package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"inventory-system/internal/dto"
	"inventory-system/internal/entities"
	"inventory-system/internal/events"
	"inventory-system/internal/lifecycle"
	"inventory-system/internal/repositories"
	apperrors "inventory-system/pkg/errors"
	"inventory-system/pkg/utils"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type AssignmentServiceInterface interface {
	Assign(ctx context.Context, payload dto.AssignEquipmentDTO) (*dto.AssignmentDTO, error)
	Return(ctx context.Context, equipmentID uint64, payload dto.ReturnEquipmentDTO) (*dto.AssignmentDTO, error)
	Reconcile(ctx context.Context, userID uint64, payload dto.ReconcileAssignmentsDTO) (*dto.ReconcileResultDTO, error)
	GetUserAssignments(ctx context.Context, userID uint64, withHistory bool) ([]dto.AssignmentDTO, error)
	GetEquipmentAssignments(ctx context.Context, equipmentID uint64) ([]dto.AssignmentDTO, error)
}

type AssignmentService struct {
	txManager      repositories.TxManagerInterface
	equipmentRepo  repositories.EquipmentRepositoryInterface
	assignmentRepo repositories.AssignmentRepositoryInterface
	userRepo       repositories.UserRepositoryInterface
	statuses       StatusCatalogInterface
	ledger         ledger
	publisher      EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

func NewAssignmentService(
	txManager repositories.TxManagerInterface,
	equipmentRepo repositories.EquipmentRepositoryInterface,
	assignmentRepo repositories.AssignmentRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	statuses StatusCatalogInterface,
	audit AuditWriterInterface,
	publisher EventPublisher,
	logger *zap.Logger,
) *AssignmentService {
	return &AssignmentService{
		txManager:      txManager,
		equipmentRepo:  equipmentRepo,
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
		statuses:       statuses,
		ledger:         ledger{assignments: assignmentRepo, equipment: equipmentRepo, audit: audit},
		publisher:      publisher,
		logger:         logger,
		now:            time.Now,
	}
}

// lifecycleStatuses - засеянные статусы, без которых выдача и возврат невозможны.
type lifecycleStatuses struct {
	available entities.Status
	assigned  entities.Status
}

func (s *AssignmentService) loadStatuses(ctx context.Context) (*lifecycleStatuses, error) {
	available, err := s.statuses.EquipmentStatus(ctx, entities.StatusAvailable)
	if err != nil {
		return nil, err
	}
	assigned, err := s.statuses.EquipmentStatus(ctx, entities.StatusAssigned)
	if err != nil {
		return nil, err
	}
	return &lifecycleStatuses{available: *available, assigned: *assigned}, nil
}

func (s *AssignmentService) Assign(ctx context.Context, payload dto.AssignEquipmentDTO) (*dto.AssignmentDTO, error) {
	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	st, err := s.loadStatuses(ctx)
	if err != nil {
		return nil, err
	}

	op := newOperation(actorID, s.now())
	var opened entities.Assignment
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		// Порядок блокировок везде один: сотрудник, затем оборудование.
		if err := s.lockUser(ctx, tx, payload.UserID); err != nil {
			return err
		}
		// Статус перечитывается под блокировкой: из двух одновременных выдач пройдёт одна.
		eq, err := s.equipmentRepo.FindForUpdateInTx(ctx, tx, payload.EquipmentID)
		if err != nil {
			return equipmentNotFound(err, payload.EquipmentID)
		}
		current, err := s.currentStatus(ctx, eq, st)
		if err != nil {
			return err
		}
		tr, err := lifecycle.PlanAssign(eq.ID, current, st.assigned)
		if err != nil {
			return err
		}
		open, err := s.assignmentRepo.ListOpenByEquipmentInTx(ctx, tx, []uint64{eq.ID})
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return apperrors.NotAvailable(eq.ID, st.assigned.Name)
		}

		opened, err = s.ledger.open(ctx, tx, op, eq.ID, payload.UserID, tr)
		return err
	})
	if err != nil {
		s.logger.Warn("выдача оборудования отклонена",
			zap.Uint64("equipment_id", payload.EquipmentID),
			zap.Uint64("user_id", payload.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("оборудование выдано",
		zap.Uint64("equipment_id", opened.EquipmentID),
		zap.Uint64("user_id", opened.UserID),
		zap.Uint64("actor_id", actorID),
	)
	s.publishOpened(ctx, op, payload.UserID, []entities.Assignment{opened})

	result := toAssignmentDTO(opened)
	return &result, nil
}

func (s *AssignmentService) Return(ctx context.Context, equipmentID uint64, payload dto.ReturnEquipmentDTO) (*dto.AssignmentDTO, error) {
	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	st, err := s.loadStatuses(ctx)
	if err != nil {
		return nil, err
	}

	op := newOperation(actorID, s.now())
	var closed entities.Assignment
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		eq, err := s.equipmentRepo.FindForUpdateInTx(ctx, tx, equipmentID)
		if err != nil {
			return equipmentNotFound(err, equipmentID)
		}
		open, err := s.assignmentRepo.ListOpenByEquipmentInTx(ctx, tx, []uint64{equipmentID})
		if err != nil {
			return err
		}
		if len(open) == 0 {
			return apperrors.AlreadyReturned(equipmentID)
		}

		current, err := s.currentStatus(ctx, eq, st)
		if err != nil {
			return err
		}
		tr, err := lifecycle.PlanReturn(current, st.available)
		if err != nil {
			return err
		}
		if len(open) > 1 {
			s.logger.Warn("у оборудования несколько открытых выдач, закрываются все",
				zap.Uint64("equipment_id", equipmentID), zap.Int("count", len(open)))
		}
		for _, a := range open {
			if closed, err = s.ledger.close(ctx, tx, op, a, payload.Note, tr, true); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("возврат оборудования отклонён", zap.Uint64("equipment_id", equipmentID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("оборудование возвращено",
		zap.Uint64("equipment_id", equipmentID),
		zap.Uint64("user_id", closed.UserID),
		zap.Uint64("actor_id", actorID),
	)
	s.publishClosed(ctx, op, closed.UserID, []entities.Assignment{closed})

	result := toAssignmentDTO(closed)
	return &result, nil
}

// Reconcile приводит открытые выдачи сотрудника к желаемому набору одной транзакцией.
// Если хотя бы одно новое оборудование недоступно, не меняется ничего.
func (s *AssignmentService) Reconcile(ctx context.Context, userID uint64, payload dto.ReconcileAssignmentsDTO) (*dto.ReconcileResultDTO, error) {
	actorID, err := utils.GetUserIDFromCtx(ctx)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	st, err := s.loadStatuses(ctx)
	if err != nil {
		return nil, err
	}
	desired := lifecycle.Unique(payload.EquipmentIDs)

	op := newOperation(actorID, s.now())
	var opened, closed []entities.Assignment
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		opened, closed = nil, nil

		if err := s.lockUser(ctx, tx, userID); err != nil {
			return err
		}

		current, err := s.assignmentRepo.ListOpenByUserInTx(ctx, tx, userID)
		if err != nil {
			return err
		}

		locked, err := s.lockEquipment(ctx, tx, lifecycle.Unique(equipmentIDsOf(current), desired))
		if err != nil {
			return err
		}

		plan := lifecycle.Diff(current, desired)
		if plan.Empty() {
			return nil
		}

		if err := s.validateOpenable(ctx, tx, plan.ToOpen, locked, st); err != nil {
			return err
		}

		for _, a := range plan.ToClose {
			eq, ok := locked[a.EquipmentID]
			from := st.assigned
			if ok {
				if from, err = s.currentStatus(ctx, &eq, st); err != nil {
					return err
				}
			}
			tr, err := lifecycle.PlanReturn(from, st.available)
			if err != nil {
				return err
			}
			c, err := s.ledger.close(ctx, tx, op, a, noteReconcile, tr, true)
			if err != nil {
				return err
			}
			closed = append(closed, c)
		}

		for _, id := range plan.ToOpen {
			tr, err := lifecycle.PlanAssign(id, st.available, st.assigned)
			if err != nil {
				return err
			}
			a, err := s.ledger.open(ctx, tx, op, id, userID, tr)
			if err != nil {
				return err
			}
			opened = append(opened, a)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("сверка выдач отклонена", zap.Uint64("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("сверка выдач выполнена",
		zap.Uint64("user_id", userID),
		zap.Uint64("actor_id", actorID),
		zap.Int("opened", len(opened)),
		zap.Int("closed", len(closed)),
	)
	s.publishClosed(ctx, op, userID, closed)
	s.publishOpened(ctx, op, userID, opened)

	return &dto.ReconcileResultDTO{
		UserID: userID,
		Opened: toAssignmentDTOs(opened),
		Closed: toAssignmentDTOs(closed),
	}, nil
}

func (s *AssignmentService) GetUserAssignments(ctx context.Context, userID uint64, withHistory bool) ([]dto.AssignmentDTO, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	list, err := s.assignmentRepo.ListByUser(ctx, userID, withHistory)
	if err != nil {
		return nil, err
	}
	return toAssignmentDTOs(list), nil
}

func (s *AssignmentService) GetEquipmentAssignments(ctx context.Context, equipmentID uint64) ([]dto.AssignmentDTO, error) {
	if _, err := s.equipmentRepo.FindEquipment(ctx, equipmentID); err != nil {
		return nil, equipmentNotFound(err, equipmentID)
	}
	list, err := s.assignmentRepo.ListByEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	return toAssignmentDTOs(list), nil
}

// lockEquipment блокирует строки оборудования в порядке ID и возвращает их по ID.
func (s *AssignmentService) lockEquipment(ctx context.Context, tx pgx.Tx, ids []uint64) (map[uint64]entities.Equipment, error) {
	rows, err := s.equipmentRepo.LockEquipmentsInTx(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	locked := make(map[uint64]entities.Equipment, len(rows))
	for _, eq := range rows {
		locked[eq.ID] = eq
	}
	return locked, nil
}

// validateOpenable проверяет всё оборудование к выдаче и перечисляет все проблемные ID.
func (s *AssignmentService) validateOpenable(ctx context.Context, tx pgx.Tx, toOpen []uint64, locked map[uint64]entities.Equipment, st *lifecycleStatuses) error {
	var missing, unavailable []uint64
	for _, id := range toOpen {
		eq, ok := locked[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if eq.StatusID != st.available.ID {
			unavailable = append(unavailable, id)
		}
	}

	// Открытая выдача у "Available" оборудования - нарушенный инвариант, такое тоже не выдаём.
	open, err := s.assignmentRepo.ListOpenByEquipmentInTx(ctx, tx, toOpen)
	if err != nil {
		return err
	}
	for _, a := range open {
		unavailable = append(unavailable, a.EquipmentID)
	}
	unavailable = lifecycle.Unique(unavailable)

	switch {
	case len(missing) > 0 && len(unavailable) > 0:
		return apperrors.Conflict(lifecycle.Unique(missing, unavailable),
			"оборудование не найдено: %s; недоступно для выдачи: %s", joinIDs(missing), joinIDs(unavailable))
	case len(missing) > 0:
		return apperrors.NewDomainError(apperrors.ErrNotFound, "оборудование не найдено: "+joinIDs(missing), missing...)
	case len(unavailable) > 0:
		return apperrors.Conflict(unavailable, "оборудование недоступно для выдачи: %s", joinIDs(unavailable))
	}
	return nil
}

func (s *AssignmentService) currentStatus(ctx context.Context, eq *entities.Equipment, st *lifecycleStatuses) (entities.Status, error) {
	switch eq.StatusID {
	case st.available.ID:
		return st.available, nil
	case st.assigned.ID:
		return st.assigned, nil
	}
	status, err := s.statuses.FindStatus(ctx, eq.StatusID)
	if err != nil {
		return entities.Status{}, err
	}
	return *status, nil
}

func (s *AssignmentService) lockUser(ctx context.Context, tx pgx.Tx, userID uint64) error {
	if err := s.userRepo.LockUserInTx(ctx, tx, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("сотрудник #%d не найден", userID)
		}
		return err
	}
	return nil
}

func (s *AssignmentService) ensureUser(ctx context.Context, userID uint64) error {
	if _, err := s.userRepo.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("сотрудник #%d не найден", userID)
		}
		return err
	}
	return nil
}

// publishOpened запускает формирование акта. Ошибки акта не влияют на результат операции.
func (s *AssignmentService) publishOpened(ctx context.Context, op operation, userID uint64, opened []entities.Assignment) {
	if len(opened) == 0 || s.publisher == nil {
		return
	}
	assignmentIDs, equipmentIDs := splitIDs(opened)
	s.publisher.Publish(ctx, events.AssignmentsOpened{
		TxID:          op.txID.String(),
		UserID:        userID,
		ActorID:       op.actorID,
		AssignmentIDs: assignmentIDs,
		EquipmentIDs:  equipmentIDs,
		OccurredAt:    op.at,
	})
}

func (s *AssignmentService) publishClosed(ctx context.Context, op operation, userID uint64, closed []entities.Assignment) {
	if len(closed) == 0 || s.publisher == nil {
		return
	}
	assignmentIDs, equipmentIDs := splitIDs(closed)
	s.publisher.Publish(ctx, events.AssignmentsClosed{
		TxID:          op.txID.String(),
		UserID:        userID,
		ActorID:       op.actorID,
		AssignmentIDs: assignmentIDs,
		EquipmentIDs:  equipmentIDs,
		OccurredAt:    op.at,
	})
}

func splitIDs(list []entities.Assignment) (assignmentIDs, equipmentIDs []uint64) {
	for _, a := range list {
		assignmentIDs = append(assignmentIDs, a.ID)
		equipmentIDs = append(equipmentIDs, a.EquipmentID)
	}
	return assignmentIDs, equipmentIDs
}

func equipmentIDsOf(list []entities.Assignment) []uint64 {
	ids := make([]uint64, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.EquipmentID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
