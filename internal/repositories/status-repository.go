package repositories

import (
	"context"
	"errors"

	"inventory-system/internal/entities"
	apperrors "inventory-system/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type StatusRepositoryInterface interface {
	GetStatuses(ctx context.Context, kind string) ([]entities.Status, error)
	FindStatus(ctx context.Context, id uint64) (*entities.Status, error)
	FindByKindAndName(ctx context.Context, kind entities.StatusKind, name string) (*entities.Status, error)
}

type StatusRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewStatusRepository(storage *pgxpool.Pool, logger *zap.Logger) StatusRepositoryInterface {
	return &StatusRepository{storage: storage, logger: logger}
}

func scanStatus(row pgx.Row) (*entities.Status, error) {
	var s entities.Status
	if err := row.Scan(&s.ID, &s.Kind, &s.Name, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *StatusRepository) selectStatuses() sq.SelectBuilder {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("id", "kind", "name", "created_at").
		From("statuses")
}

func (r *StatusRepository) GetStatuses(ctx context.Context, kind string) ([]entities.Status, error) {
	builder := r.selectStatuses().OrderBy("kind", "id")
	if kind != "" {
		builder = builder.Where(sq.Eq{"kind": kind})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make([]entities.Status, 0)
	for rows.Next() {
		s, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *s)
	}
	return statuses, rows.Err()
}

func (r *StatusRepository) FindStatus(ctx context.Context, id uint64) (*entities.Status, error) {
	query, args, err := r.selectStatuses().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanStatus(r.storage.QueryRow(ctx, query, args...))
}

func (r *StatusRepository) FindByKindAndName(ctx context.Context, kind entities.StatusKind, name string) (*entities.Status, error) {
	query, args, err := r.selectStatuses().Where(sq.Eq{"kind": string(kind), "name": name}).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	return scanStatus(r.storage.QueryRow(ctx, query, args...))
}
