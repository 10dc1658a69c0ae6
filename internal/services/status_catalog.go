package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inventory-system/internal/dto"
	"inventory-system/internal/entities"
	"inventory-system/internal/repositories"
	apperrors "inventory-system/pkg/errors"

	"go.uber.org/zap"
)

type StatusCatalogInterface interface {
	GetStatuses(ctx context.Context, kind string) ([]dto.StatusDTO, error)
	FindStatus(ctx context.Context, id uint64) (*entities.Status, error)
	// EquipmentStatus ищет засеянный статус оборудования по имени.
	// Отсутствие такого статуса - ошибка конфигурации, а не NotFound.
	EquipmentStatus(ctx context.Context, name string) (*entities.Status, error)
}

// StatusCatalog - справочник статусов с кешем в Redis. Статусы меняются только
// миграциями, поэтому кеш не инвалидируется, а живёт ttl.
type StatusCatalog struct {
	repo   repositories.StatusRepositoryInterface
	cache  repositories.CacheRepositoryInterface
	ttl    time.Duration
	logger *zap.Logger
}

func NewStatusCatalog(
	repo repositories.StatusRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	ttl time.Duration,
	logger *zap.Logger,
) *StatusCatalog {
	return &StatusCatalog{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

func (s *StatusCatalog) GetStatuses(ctx context.Context, kind string) ([]dto.StatusDTO, error) {
	if kind != "" && !entities.ValidStatusKind(kind) {
		return nil, apperrors.Validation("неизвестный вид статуса «%s»", kind)
	}
	statuses, err := s.repo.GetStatuses(ctx, kind)
	if err != nil {
		s.logger.Error("не удалось получить список статусов", zap.String("kind", kind), zap.Error(err))
		return nil, err
	}
	result := make([]dto.StatusDTO, 0, len(statuses))
	for _, st := range statuses {
		result = append(result, dto.StatusDTO{ID: st.ID, Kind: string(st.Kind), Name: st.Name})
	}
	return result, nil
}

func (s *StatusCatalog) FindStatus(ctx context.Context, id uint64) (*entities.Status, error) {
	key := fmt.Sprintf("status:id:%d", id)
	if st := s.fromCache(ctx, key); st != nil {
		return st, nil
	}
	st, err := s.repo.FindStatus(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("статус #%d не найден", id)
		}
		return nil, err
	}
	s.toCache(ctx, key, st)
	return st, nil
}

func (s *StatusCatalog) EquipmentStatus(ctx context.Context, name string) (*entities.Status, error) {
	key := fmt.Sprintf("status:%s:%s", entities.StatusKindEquipment, name)
	if st := s.fromCache(ctx, key); st != nil {
		return st, nil
	}
	st, err := s.repo.FindByKindAndName(ctx, entities.StatusKindEquipment, name)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Error("в справочнике нет обязательного статуса", zap.String("name", name))
			return nil, apperrors.Configuration(err, "в справочнике не найден статус оборудования «%s»", name)
		}
		return nil, err
	}
	s.toCache(ctx, key, st)
	return st, nil
}

// Ошибки кеша не прерывают операцию: справочник всегда можно прочитать из БД.
func (s *StatusCatalog) fromCache(ctx context.Context, key string) *entities.Status {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repositories.ErrCacheMiss) {
			s.logger.Warn("ошибка чтения кеша статусов", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var st entities.Status
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		s.logger.Warn("повреждённая запись кеша статусов удалена", zap.String("key", key), zap.Error(err))
		if err := s.cache.Del(ctx, key); err != nil {
			s.logger.Warn("ошибка удаления из кеша статусов", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	return &st
}

func (s *StatusCatalog) toCache(ctx context.Context, key string, st *entities.Status) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
		s.logger.Warn("ошибка записи кеша статусов", zap.String("key", key), zap.Error(err))
	}
}
