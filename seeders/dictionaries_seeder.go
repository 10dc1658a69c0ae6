package seeders

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func seedEquipmentTypes(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - Наполнение таблицы 'equipment_types'...")

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO equipment_types (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
	for _, name := range equipmentTypesData {
		if _, err := tx.Exec(ctx, query, name); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func seedBrandsAndModels(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - Наполнение таблиц 'brands' и 'equipment_models'...")

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for brand, models := range brandModelsData {
		var brandID uint64
		err := tx.QueryRow(ctx,
			`INSERT INTO brands (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`, brand).Scan(&brandID)
		if err != nil {
			return err
		}
		for _, model := range models {
			_, err := tx.Exec(ctx,
				`INSERT INTO equipment_models (brand_id, name)
				 SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM equipment_models WHERE brand_id = $1 AND name = $2)`,
				brandID, model)
			if err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

func seedLocations(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - Наполнение таблицы 'locations'...")

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	activeID, err := findStatusID(ctx, tx, "LOCATION", "Active")
	if err != nil {
		return err
	}
	for _, name := range locationsData {
		_, err := tx.Exec(ctx,
			`INSERT INTO locations (name, status_id)
			 SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM locations WHERE name = $1)`,
			name, activeID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func findStatusID(ctx context.Context, tx pgx.Tx, kind, name string) (uint64, error) {
	var id uint64
	err := tx.QueryRow(ctx, `SELECT id FROM statuses WHERE kind = $1 AND name = $2`, kind, name).Scan(&id)
	return id, err
}

func mapIDsByName(ctx context.Context, tx pgx.Tx, query string) (map[string]uint64, error) {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]uint64)
	for rows.Next() {
		var id uint64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		result[name] = id
	}
	return result, rows.Err()
}
