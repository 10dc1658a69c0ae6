package repositories

import (
	"context"
	"errors"
	"fmt"

	"inventory-system/internal/entities"
	"inventory-system/internal/infrastructure/bd"
	apperrors "inventory-system/pkg/errors"
	"inventory-system/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var equipmentMap = map[string]string{
	"id":            "e.id",
	"type_id":       "e.type_id",
	"model_id":      "e.model_id",
	"location_id":   "e.location_id",
	"status_id":     "e.status_id",
	"serial_number": "e.serial_number",
	"created_at":    "e.created_at",
	"updated_at":    "e.updated_at",
}

var equipmentColumns = []string{
	"e.id", "e.type_id", "e.model_id", "e.location_id", "e.status_id", "e.serial_number", "e.notes",
	"e.created_at", "e.updated_at", "e.deleted_at",
	"t.name", "s.name",
	"sd.phone_number", "sd.carrier", "sd.iccid", "sd.plan",
	"cd.compatible_model", "cd.color", "cd.quantity",
}

type EquipmentRepositoryInterface interface {
	GetEquipments(ctx context.Context, filter types.Filter) ([]entities.Equipment, uint64, error)
	FindEquipment(ctx context.Context, id uint64) (*entities.Equipment, error)
	FindEquipmentsByIDs(ctx context.Context, ids []uint64) ([]entities.Equipment, error)

	// FindForUpdateInTx читает строку с блокировкой FOR UPDATE. Удалённое оборудование не возвращается.
	FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error)
	// LockEquipmentsInTx блокирует строки в порядке возрастания ID. Отсутствующие ID просто не попадают в результат.
	LockEquipmentsInTx(ctx context.Context, tx pgx.Tx, ids []uint64) ([]entities.Equipment, error)

	CreateEquipmentInTx(ctx context.Context, tx pgx.Tx, eq *entities.Equipment) (uint64, error)
	UpdateEquipmentInTx(ctx context.Context, tx pgx.Tx, eq *entities.Equipment) error
	UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id, statusID uint64) error
	SoftDeleteInTx(ctx context.Context, tx pgx.Tx, id uint64) error
}

type EquipmentRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewEquipmentRepository(storage *pgxpool.Pool, logger *zap.Logger) EquipmentRepositoryInterface {
	return &EquipmentRepository{storage: storage, logger: logger}
}

func scanEquipment(row pgx.Row) (*entities.Equipment, error) {
	var (
		e                           entities.Equipment
		phone, carrier, iccid, plan *string
		compatibleModel, color      *string
		quantity                    *int
	)
	err := row.Scan(
		&e.ID, &e.TypeID, &e.ModelID, &e.LocationID, &e.StatusID, &e.SerialNumber, &e.Notes,
		&e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
		&e.TypeName, &e.StatusName,
		&phone, &carrier, &iccid, &plan,
		&compatibleModel, &color, &quantity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	if phone != nil && carrier != nil {
		e.SimDetail = &entities.SimDetail{PhoneNumber: *phone, Carrier: *carrier, ICCID: iccid, Plan: plan}
	}
	if compatibleModel != nil && quantity != nil {
		e.ConsumableDetail = &entities.ConsumableDetail{CompatibleModel: *compatibleModel, Color: color, Quantity: *quantity}
	}
	return &e, nil
}

func selectEquipment(columns ...string) sq.SelectBuilder {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(columns...).
		From("equipments e").
		Join("equipment_types t ON t.id = e.type_id").
		Join("statuses s ON s.id = e.status_id").
		LeftJoin("equipment_sim_details sd ON sd.equipment_id = e.id").
		LeftJoin("equipment_consumable_details cd ON cd.equipment_id = e.id").
		Where(sq.Eq{"e.deleted_at": nil})
}

func queryEquipments(ctx context.Context, q Querier, builder sq.SelectBuilder) ([]entities.Equipment, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]entities.Equipment, 0)
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

func (r *EquipmentRepository) GetEquipments(ctx context.Context, filter types.Filter) ([]entities.Equipment, uint64, error) {
	applySearch := func(b sq.SelectBuilder) sq.SelectBuilder {
		if filter.Search != "" {
			pat := "%" + filter.Search + "%"
			return b.Where(sq.Or{
				sq.ILike{"e.serial_number": pat},
				sq.ILike{"e.notes": pat},
				sq.ILike{"t.name": pat},
			})
		}
		return b
	}

	countBuilder := applySearch(selectEquipment("COUNT(e.id)"))
	countBuilder = bd.ApplyListParams(countBuilder, bd.ForCount(filter), equipmentMap)
	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.Equipment{}, 0, nil
	}

	builder := applySearch(selectEquipment(equipmentColumns...))
	if len(filter.Sort) == 0 {
		builder = builder.OrderBy("e.id DESC")
	}
	builder = bd.ApplyListParams(builder, filter, equipmentMap)

	list, err := queryEquipments(ctx, r.storage, builder)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *EquipmentRepository) FindEquipment(ctx context.Context, id uint64) (*entities.Equipment, error) {
	query, args, err := selectEquipment(equipmentColumns...).Where(sq.Eq{"e.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanEquipment(r.storage.QueryRow(ctx, query, args...))
}

func (r *EquipmentRepository) FindEquipmentsByIDs(ctx context.Context, ids []uint64) ([]entities.Equipment, error) {
	if len(ids) == 0 {
		return []entities.Equipment{}, nil
	}
	builder := selectEquipment(equipmentColumns...).Where(sq.Eq{"e.id": ids}).OrderBy("e.id")
	return queryEquipments(ctx, r.storage, builder)
}

func (r *EquipmentRepository) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	query, args, err := selectEquipment(equipmentColumns...).
		Where(sq.Eq{"e.id": id}).
		Suffix("FOR UPDATE OF e").
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanEquipment(tx.QueryRow(ctx, query, args...))
}

func (r *EquipmentRepository) LockEquipmentsInTx(ctx context.Context, tx pgx.Tx, ids []uint64) ([]entities.Equipment, error) {
	if len(ids) == 0 {
		return []entities.Equipment{}, nil
	}
	builder := selectEquipment(equipmentColumns...).
		Where(sq.Eq{"e.id": ids}).
		OrderBy("e.id").
		Suffix("FOR UPDATE OF e")
	return queryEquipments(ctx, tx, builder)
}

func (r *EquipmentRepository) CreateEquipmentInTx(ctx context.Context, tx pgx.Tx, eq *entities.Equipment) (uint64, error) {
	query := `
		INSERT INTO equipments (type_id, model_id, location_id, status_id, serial_number, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id
	`
	var id uint64
	err := tx.QueryRow(ctx, query, eq.TypeID, eq.ModelID, eq.LocationID, eq.StatusID, eq.SerialNumber, eq.Notes).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, serialConflict(eq)
		}
		return 0, fmt.Errorf("не удалось создать оборудование: %w", err)
	}

	if err := r.saveDetailsInTx(ctx, tx, id, eq); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *EquipmentRepository) UpdateEquipmentInTx(ctx context.Context, tx pgx.Tx, eq *entities.Equipment) error {
	query := `
		UPDATE equipments
		SET type_id = $1, model_id = $2, location_id = $3, status_id = $4, serial_number = $5, notes = $6, updated_at = NOW()
		WHERE id = $7 AND deleted_at IS NULL
	`
	result, err := tx.Exec(ctx, query, eq.TypeID, eq.ModelID, eq.LocationID, eq.StatusID, eq.SerialNumber, eq.Notes, eq.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return serialConflict(eq)
		}
		return fmt.Errorf("не удалось обновить оборудование: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return r.saveDetailsInTx(ctx, tx, eq.ID, eq)
}

func (r *EquipmentRepository) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id, statusID uint64) error {
	result, err := tx.Exec(ctx,
		"UPDATE equipments SET status_id = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL",
		statusID, id)
	if err != nil {
		return fmt.Errorf("не удалось сменить статус оборудования: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *EquipmentRepository) SoftDeleteInTx(ctx context.Context, tx pgx.Tx, id uint64) error {
	result, err := tx.Exec(ctx,
		"UPDATE equipments SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("не удалось удалить оборудование: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// saveDetailsInTx приводит подзаписи SIM и расходника к состоянию eq.
func (r *EquipmentRepository) saveDetailsInTx(ctx context.Context, tx pgx.Tx, id uint64, eq *entities.Equipment) error {
	if sim := eq.SimDetail; sim != nil {
		_, err := tx.Exec(ctx, `
			INSERT INTO equipment_sim_details (equipment_id, phone_number, carrier, iccid, plan)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (equipment_id) DO UPDATE
			SET phone_number = EXCLUDED.phone_number, carrier = EXCLUDED.carrier, iccid = EXCLUDED.iccid, plan = EXCLUDED.plan
		`, id, sim.PhoneNumber, sim.Carrier, sim.ICCID, sim.Plan)
		if err != nil {
			return fmt.Errorf("не удалось сохранить данные SIM: %w", err)
		}
	} else if _, err := tx.Exec(ctx, "DELETE FROM equipment_sim_details WHERE equipment_id = $1", id); err != nil {
		return err
	}

	if c := eq.ConsumableDetail; c != nil {
		_, err := tx.Exec(ctx, `
			INSERT INTO equipment_consumable_details (equipment_id, compatible_model, color, quantity)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (equipment_id) DO UPDATE
			SET compatible_model = EXCLUDED.compatible_model, color = EXCLUDED.color, quantity = EXCLUDED.quantity
		`, id, c.CompatibleModel, c.Color, c.Quantity)
		if err != nil {
			return fmt.Errorf("не удалось сохранить данные расходника: %w", err)
		}
	} else if _, err := tx.Exec(ctx, "DELETE FROM equipment_consumable_details WHERE equipment_id = $1", id); err != nil {
		return err
	}
	return nil
}

func serialConflict(eq *entities.Equipment) error {
	serial := ""
	if eq.SerialNumber != nil {
		serial = *eq.SerialNumber
	}
	var ids []uint64
	if eq.ID != 0 {
		ids = append(ids, eq.ID)
	}
	return apperrors.Conflict(ids, "серийный номер «%s» уже используется", serial)
}
