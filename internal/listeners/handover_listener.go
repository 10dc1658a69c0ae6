package listeners

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventory-system/internal/documents"
	"inventory-system/internal/entities"
	"inventory-system/internal/events"
	"inventory-system/internal/repositories"
	apperrors "inventory-system/pkg/errors"
	"inventory-system/pkg/eventbus"

	"go.uber.org/zap"
)

// HandoverListener формирует акт приёма-передачи после коммита выдачи.
// Это вторая, необязательная фаза операции: ошибки только логируются,
// а путь к акту остаётся пустым.
type HandoverListener struct {
	userRepo       repositories.UserRepositoryInterface
	equipmentRepo  repositories.EquipmentRepositoryInterface
	assignmentRepo repositories.AssignmentRepositoryInterface
	generator      documents.GeneratorInterface
	logger         *zap.Logger
}

func NewHandoverListener(
	userRepo repositories.UserRepositoryInterface,
	equipmentRepo repositories.EquipmentRepositoryInterface,
	assignmentRepo repositories.AssignmentRepositoryInterface,
	generator documents.GeneratorInterface,
	logger *zap.Logger,
) *HandoverListener {
	return &HandoverListener{
		userRepo:       userRepo,
		equipmentRepo:  equipmentRepo,
		assignmentRepo: assignmentRepo,
		generator:      generator,
		logger:         logger,
	}
}

func (l *HandoverListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.AssignmentsOpenedName, l.handleAssignmentsOpened)
	l.logger.Info("HandoverListener подписан на событие", zap.String("event", events.AssignmentsOpenedName))
}

func (l *HandoverListener) handleAssignmentsOpened(ctx context.Context, e eventbus.Event) error {
	event, ok := e.(events.AssignmentsOpened)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T", e)
	}
	return l.Handle(ctx, event)
}

// Handle формирует один сводный акт только по вновь выданному оборудованию.
func (l *HandoverListener) Handle(ctx context.Context, event events.AssignmentsOpened) error {
	logger := l.logger.With(
		zap.String("tx_id", event.TxID),
		zap.Uint64("user_id", event.UserID),
		zap.Uint64s("assignment_ids", event.AssignmentIDs),
	)

	user, err := l.userRepo.FindUserByID(ctx, event.UserID)
	if err != nil {
		logger.Error("акт не сформирован: сотрудник не найден", zap.Error(err))
		return err
	}

	var actor *entities.User
	if event.ActorID != 0 {
		actor, err = l.userRepo.FindUserByID(ctx, event.ActorID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("не удалось получить данные выдавшего", zap.Error(err))
		}
	}

	items, err := l.equipmentRepo.FindEquipmentsByIDs(ctx, event.EquipmentIDs)
	if err != nil {
		logger.Error("акт не сформирован: ошибка чтения оборудования", zap.Error(err))
		return err
	}

	date := event.OccurredAt
	if date.IsZero() {
		date = time.Now()
	}
	path, err := l.generator.Generate(ctx, documents.HandoverAct{
		Number: fmt.Sprintf("%d-%s", event.UserID, date.Format("20060102-150405")),
		User:   *user,
		Actor:  actor,
		Items:  items,
		Date:   date,
	})
	if err != nil {
		logger.Error("акт не сформирован", zap.Error(err))
		return err
	}

	attached, err := l.assignmentRepo.AttachDocument(ctx, event.UserID, event.AssignmentIDs, path)
	if err != nil {
		logger.Error("акт сформирован, но не привязан к выдачам", zap.String("path", path), zap.Error(err))
		l.discard(logger, path)
		return err
	}
	if attached == 0 {
		// Все выдачи уже закрыты, пока формировался акт.
		logger.Warn("акт не к чему привязать", zap.String("path", path))
		l.discard(logger, path)
		return nil
	}
	logger.Info("акт приёма-передачи сформирован", zap.String("path", path), zap.Int64("attached", attached))
	return nil
}

func (l *HandoverListener) discard(logger *zap.Logger, path string) {
	if err := l.generator.Discard(path); err != nil {
		logger.Error("не удалось удалить непривязанный акт", zap.String("path", path), zap.Error(err))
	}
}
