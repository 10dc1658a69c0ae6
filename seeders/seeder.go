package seeders

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedCoreDictionaries наполняет справочники оборудования. Статусы создаются миграциями.
func SeedCoreDictionaries(db *pgxpool.Pool) {
	ctx := context.Background()
	log.Println("▶️  Запуск наполнения базовых справочников...")

	if err := seedEquipmentTypes(ctx, db); err != nil {
		log.Fatalf("❌ Ошибка наполнения Типов оборудования: %v", err)
	}
	if err := seedBrandsAndModels(ctx, db); err != nil {
		log.Fatalf("❌ Ошибка наполнения Брендов и Моделей: %v", err)
	}
	if err := seedLocations(ctx, db); err != nil {
		log.Fatalf("❌ Ошибка наполнения Локаций: %v", err)
	}
	log.Println("✅ Наполнение базовых справочников завершено!")
}

// SeedDemo создаёт сотрудников и оборудование для ручной проверки.
func SeedDemo(db *pgxpool.Pool) {
	ctx := context.Background()
	log.Println("▶️  Запуск наполнения демо-данных...")

	if err := seedDemoUsers(ctx, db); err != nil {
		log.Fatalf("❌ Ошибка наполнения Сотрудников: %v", err)
	}
	if err := seedDemoEquipment(ctx, db); err != nil {
		log.Fatalf("❌ Ошибка наполнения Оборудования: %v", err)
	}
	log.Println("✅ Наполнение демо-данных завершено!")
}
