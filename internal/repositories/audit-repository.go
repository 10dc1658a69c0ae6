package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inventory-system/internal/entities"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// AuditFilter - условия выборки битакоры. Нулевые поля не ограничивают выборку.
type AuditFilter struct {
	Section  string
	Action   string
	ActorID  uint64
	TargetID uint64
	From     *time.Time
	To       *time.Time
	Limit    uint64
	Offset   uint64
}

type AuditRepositoryInterface interface {
	CreateEventInTx(ctx context.Context, tx pgx.Tx, event *entities.AuditEvent) (uint64, error)
	GetEvents(ctx context.Context, filter AuditFilter) ([]entities.AuditEvent, uint64, error)
}

type AuditRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewAuditRepository(storage *pgxpool.Pool, logger *zap.Logger) AuditRepositoryInterface {
	return &AuditRepository{storage: storage, logger: logger}
}

func (r *AuditRepository) CreateEventInTx(ctx context.Context, tx pgx.Tx, event *entities.AuditEvent) (uint64, error) {
	details := event.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return 0, fmt.Errorf("не удалось сериализовать детали события: %w", err)
	}

	query := `
		INSERT INTO audit_events (tx_id, action, section, target_id, actor_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id uint64
	err = tx.QueryRow(ctx, query,
		event.TxID, string(event.Action), event.Section, event.TargetID, event.ActorID, payload, event.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("не удалось записать событие в битакору: %w", err)
	}
	return id, nil
}

func applyAuditFilter(b sq.SelectBuilder, f AuditFilter) sq.SelectBuilder {
	if f.Section != "" {
		b = b.Where(sq.Eq{"section": f.Section})
	}
	if f.Action != "" {
		b = b.Where(sq.Eq{"action": f.Action})
	}
	if f.ActorID != 0 {
		b = b.Where(sq.Eq{"actor_id": f.ActorID})
	}
	if f.TargetID != 0 {
		b = b.Where(sq.Eq{"target_id": f.TargetID})
	}
	if f.From != nil {
		b = b.Where(sq.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		b = b.Where(sq.Lt{"created_at": *f.To})
	}
	return b
}

func (r *AuditRepository) GetEvents(ctx context.Context, filter AuditFilter) ([]entities.AuditEvent, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	countQuery, countArgs, err := applyAuditFilter(psql.Select("COUNT(*)").From("audit_events"), filter).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.AuditEvent{}, 0, nil
	}

	builder := applyAuditFilter(
		psql.Select("id", "tx_id", "action", "section", "target_id", "actor_id", "details", "created_at").From("audit_events"),
		filter,
	).OrderBy("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]entities.AuditEvent, 0)
	for rows.Next() {
		var (
			e       entities.AuditEvent
			action  string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.TxID, &action, &e.Section, &e.TargetID, &e.ActorID, &payload, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.Action = entities.AuditAction(action)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Details); err != nil {
				r.logger.Warn("не удалось разобрать детали события битакоры", zap.Uint64("id", e.ID), zap.Error(err))
			}
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}
