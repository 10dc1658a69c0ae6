package services

import (
	"bytes"
	"context"
	"time"

	"inventory-system/internal/documents"
	"inventory-system/internal/dto"
	"inventory-system/internal/entities"
	"inventory-system/internal/repositories"
	apperrors "inventory-system/pkg/errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	auditDefaultLimit = 50
	auditExportLimit  = 10000
)

// AuditWriterInterface пишет битакору внутри транзакции изменения.
// Ошибка записи откатывает всю операцию.
type AuditWriterInterface interface {
	Record(ctx context.Context, tx pgx.Tx, op operation, action entities.AuditAction, section string, targetID uint64, details map[string]interface{}) error
}

type AuditServiceInterface interface {
	AuditWriterInterface
	GetEvents(ctx context.Context, filter dto.AuditFilterDTO) ([]dto.AuditEventDTO, uint64, error)
	Export(ctx context.Context, filter dto.AuditFilterDTO) (*bytes.Buffer, error)
}

type AuditService struct {
	repo   repositories.AuditRepositoryInterface
	logger *zap.Logger
}

func NewAuditService(repo repositories.AuditRepositoryInterface, logger *zap.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

func (s *AuditService) Record(ctx context.Context, tx pgx.Tx, op operation, action entities.AuditAction, section string, targetID uint64, details map[string]interface{}) error {
	event := &entities.AuditEvent{
		TxID:      op.txID,
		Action:    action,
		Section:   section,
		ActorID:   op.actorID,
		Details:   details,
		CreatedAt: op.at,
	}
	if targetID != 0 {
		event.TargetID = &targetID
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	id, err := s.repo.CreateEventInTx(ctx, tx, event)
	if err != nil {
		s.logger.Error("не удалось записать событие битакоры",
			zap.String("tx_id", op.txID.String()),
			zap.String("action", string(action)),
			zap.Uint64("target_id", targetID),
			zap.Error(err),
		)
		return err
	}
	s.logger.Debug("событие битакоры записано", zap.Uint64("id", id), zap.String("action", string(action)))
	return nil
}

func (s *AuditService) GetEvents(ctx context.Context, filter dto.AuditFilterDTO) ([]dto.AuditEventDTO, uint64, error) {
	repoFilter, err := toAuditFilter(filter)
	if err != nil {
		return nil, 0, err
	}
	events, total, err := s.repo.GetEvents(ctx, repoFilter)
	if err != nil {
		s.logger.Error("не удалось получить битакору", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.AuditEventDTO, 0, len(events))
	for _, e := range events {
		result = append(result, toAuditEventDTO(e))
	}
	return result, total, nil
}

func (s *AuditService) Export(ctx context.Context, filter dto.AuditFilterDTO) (*bytes.Buffer, error) {
	repoFilter, err := toAuditFilter(filter)
	if err != nil {
		return nil, err
	}
	repoFilter.Limit = auditExportLimit
	repoFilter.Offset = 0

	events, total, err := s.repo.GetEvents(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	if total > auditExportLimit {
		s.logger.Warn("выгрузка битакоры обрезана", zap.Uint64("total", total), zap.Int("limit", auditExportLimit))
	}
	return documents.AuditWorkbook(events)
}

func toAuditFilter(f dto.AuditFilterDTO) (repositories.AuditFilter, error) {
	if f.Action != "" && !entities.ValidAuditAction(f.Action) {
		return repositories.AuditFilter{}, apperrors.Validation("неизвестное действие «%s»", f.Action)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = auditDefaultLimit
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	out := repositories.AuditFilter{
		Section:  f.Section,
		Action:   f.Action,
		ActorID:  f.ActorID,
		TargetID: f.TargetID,
		Limit:    uint64(limit),
		Offset:   uint64((page - 1) * limit),
	}
	if f.From != "" {
		from, err := time.ParseInLocation("2006-01-02", f.From, time.Local)
		if err != nil {
			return out, apperrors.Validation("некорректная дата from: %s", f.From)
		}
		out.From = &from
	}
	if f.To != "" {
		to, err := time.ParseInLocation("2006-01-02", f.To, time.Local)
		if err != nil {
			return out, apperrors.Validation("некорректная дата to: %s", f.To)
		}
		// Граница включительная: весь день "to".
		to = to.AddDate(0, 0, 1)
		out.To = &to
	}
	if out.From != nil && out.To != nil && !out.From.Before(*out.To) {
		return out, apperrors.Validation("дата from должна быть не позже to")
	}
	return out, nil
}
