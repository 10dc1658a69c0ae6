package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventory-system/internal/entities"
	apperrors "inventory-system/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var assignmentColumns = []string{
	"a.id", "a.equipment_id", "a.user_id", "a.assigned_by_user_id", "a.assigned_at", "a.returned_at", "a.document_path",
}

type AssignmentRepositoryInterface interface {
	CreateAssignmentInTx(ctx context.Context, tx pgx.Tx, a *entities.Assignment) (uint64, error)
	// CloseAssignmentInTx закрывает только открытую выдачу, иначе ErrAlreadyReturned.
	CloseAssignmentInTx(ctx context.Context, tx pgx.Tx, id uint64, returnedAt time.Time) error
	ListOpenByEquipmentInTx(ctx context.Context, tx pgx.Tx, equipmentIDs []uint64) ([]entities.Assignment, error)
	ListOpenByUserInTx(ctx context.Context, tx pgx.Tx, userID uint64) ([]entities.Assignment, error)

	ListByUser(ctx context.Context, userID uint64, withHistory bool) ([]entities.Assignment, error)
	ListByEquipment(ctx context.Context, equipmentID uint64) ([]entities.Assignment, error)
	FindOpenByEquipment(ctx context.Context, equipmentID uint64) (*entities.Assignment, error)

	// AttachDocument привязывает акт к выдачам сотрудника, которые всё ещё открыты.
	AttachDocument(ctx context.Context, userID uint64, assignmentIDs []uint64, path string) (int64, error)
}

type AssignmentRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewAssignmentRepository(storage *pgxpool.Pool, logger *zap.Logger) AssignmentRepositoryInterface {
	return &AssignmentRepository{storage: storage, logger: logger}
}

func scanAssignment(row pgx.Row) (*entities.Assignment, error) {
	var a entities.Assignment
	err := row.Scan(&a.ID, &a.EquipmentID, &a.UserID, &a.AssignedByUserID, &a.AssignedAt, &a.ReturnedAt, &a.DocumentPath)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func selectAssignments() sq.SelectBuilder {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(assignmentColumns...).
		From("assignments a")
}

func queryAssignments(ctx context.Context, q Querier, builder sq.SelectBuilder) ([]entities.Assignment, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]entities.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

func (r *AssignmentRepository) CreateAssignmentInTx(ctx context.Context, tx pgx.Tx, a *entities.Assignment) (uint64, error) {
	query := `
		INSERT INTO assignments (equipment_id, user_id, assigned_by_user_id, assigned_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id uint64
	if err := tx.QueryRow(ctx, query, a.EquipmentID, a.UserID, a.AssignedByUserID, a.AssignedAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("не удалось создать выдачу: %w", err)
	}
	return id, nil
}

func (r *AssignmentRepository) CloseAssignmentInTx(ctx context.Context, tx pgx.Tx, id uint64, returnedAt time.Time) error {
	result, err := tx.Exec(ctx,
		"UPDATE assignments SET returned_at = $1 WHERE id = $2 AND returned_at IS NULL",
		returnedAt, id)
	if err != nil {
		return fmt.Errorf("не удалось закрыть выдачу: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrAlreadyReturned
	}
	return nil
}

func (r *AssignmentRepository) ListOpenByEquipmentInTx(ctx context.Context, tx pgx.Tx, equipmentIDs []uint64) ([]entities.Assignment, error) {
	if len(equipmentIDs) == 0 {
		return []entities.Assignment{}, nil
	}
	builder := selectAssignments().
		Where(sq.Eq{"a.equipment_id": equipmentIDs, "a.returned_at": nil}).
		OrderBy("a.equipment_id", "a.id").
		Suffix("FOR UPDATE")
	return queryAssignments(ctx, tx, builder)
}

func (r *AssignmentRepository) ListOpenByUserInTx(ctx context.Context, tx pgx.Tx, userID uint64) ([]entities.Assignment, error) {
	builder := selectAssignments().
		Where(sq.Eq{"a.user_id": userID, "a.returned_at": nil}).
		OrderBy("a.equipment_id", "a.id").
		Suffix("FOR UPDATE")
	return queryAssignments(ctx, tx, builder)
}

func (r *AssignmentRepository) ListByUser(ctx context.Context, userID uint64, withHistory bool) ([]entities.Assignment, error) {
	builder := selectAssignments().Where(sq.Eq{"a.user_id": userID})
	if !withHistory {
		builder = builder.Where(sq.Eq{"a.returned_at": nil})
	}
	return queryAssignments(ctx, r.storage, builder.OrderBy("a.assigned_at DESC", "a.id DESC"))
}

func (r *AssignmentRepository) ListByEquipment(ctx context.Context, equipmentID uint64) ([]entities.Assignment, error) {
	builder := selectAssignments().
		Where(sq.Eq{"a.equipment_id": equipmentID}).
		OrderBy("a.assigned_at DESC", "a.id DESC")
	return queryAssignments(ctx, r.storage, builder)
}

func (r *AssignmentRepository) FindOpenByEquipment(ctx context.Context, equipmentID uint64) (*entities.Assignment, error) {
	query, args, err := selectAssignments().
		Where(sq.Eq{"a.equipment_id": equipmentID, "a.returned_at": nil}).
		OrderBy("a.id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanAssignment(r.storage.QueryRow(ctx, query, args...))
}

func (r *AssignmentRepository) AttachDocument(ctx context.Context, userID uint64, assignmentIDs []uint64, path string) (int64, error) {
	if len(assignmentIDs) == 0 {
		return 0, nil
	}
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Update("assignments").
		Set("document_path", path).
		Where(sq.Eq{"id": assignmentIDs, "user_id": userID, "returned_at": nil}).
		ToSql()
	if err != nil {
		return 0, err
	}
	result, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("не удалось привязать акт к выдачам: %w", err)
	}
	return result.RowsAffected(), nil
}
