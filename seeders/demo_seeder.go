package seeders

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// seedDemoUsers создаёт сотрудников, если их ещё нет (по email).
func seedDemoUsers(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - Наполнение таблицы 'users'...")

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	activeID, err := findStatusID(ctx, tx, "PERSONNEL", "Active")
	if err != nil {
		return fmt.Errorf("не найден статус сотрудника 'Active': %w", err)
	}
	for _, u := range demoUsersData {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (fio, email, position, status_id)
			 SELECT $1, $2, $3, $4 WHERE NOT EXISTS (SELECT 1 FROM users WHERE email = $2)`,
			u.Fio, u.Email, u.Position, activeID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// seedDemoEquipment добавляет оборудование в статусе Available вместе с подзаписями SIM и расходников.
func seedDemoEquipment(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - Наполнение таблицы 'equipments'...")

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	availableID, err := findStatusID(ctx, tx, "EQUIPMENT", "Available")
	if err != nil {
		return fmt.Errorf("не найден статус оборудования 'Available': %w", err)
	}
	typesMap, err := mapIDsByName(ctx, tx, `SELECT id, name FROM equipment_types`)
	if err != nil {
		return fmt.Errorf("ошибка получения ID типов оборудования: %w", err)
	}
	modelsMap, err := mapIDsByName(ctx, tx, `SELECT id, name FROM equipment_models`)
	if err != nil {
		return fmt.Errorf("ошибка получения ID моделей: %w", err)
	}

	for _, e := range demoEquipmentData {
		typeID, ok := typesMap[e.TypeName]
		if !ok {
			log.Printf("ПРЕДУПРЕЖДЕНИЕ: Тип оборудования '%s' не найден, пропускаем.", e.TypeName)
			continue
		}
		var modelID *uint64
		if id, ok := modelsMap[e.ModelName]; ok {
			modelID = &id
		}
		var serial *string
		if e.SerialNumber != "" {
			serial = &e.SerialNumber
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM equipments WHERE serial_number = $1 AND deleted_at IS NULL)`,
				serial).Scan(&exists); err != nil {
				return err
			}
			if exists {
				continue
			}
		}

		var equipmentID uint64
		err := tx.QueryRow(ctx,
			`INSERT INTO equipments (type_id, model_id, status_id, serial_number)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			typeID, modelID, availableID, serial).Scan(&equipmentID)
		if err != nil {
			log.Printf("Ошибка при вставке оборудования '%s': %v", e.TypeName, err)
			return err
		}

		switch {
		case e.Phone != "":
			_, err = tx.Exec(ctx,
				`INSERT INTO equipment_sim_details (equipment_id, phone_number, carrier) VALUES ($1, $2, $3)`,
				equipmentID, e.Phone, e.Carrier)
		case e.Compatible != "":
			_, err = tx.Exec(ctx,
				`INSERT INTO equipment_consumable_details (equipment_id, compatible_model, quantity) VALUES ($1, $2, $3)`,
				equipmentID, e.Compatible, e.Quantity)
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
