package services

import (
	"context"
	"reflect"
	"time"

	"inventory-system/pkg/eventbus"

	"github.com/google/uuid"
)

// EventPublisher - то, что нужно сервисам от шины событий.
type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

// operation - одна логическая операция: все её события битакоры
// получают общий tx_id, пользователя и время.
type operation struct {
	txID    uuid.UUID
	actorID uint64
	at      time.Time
}

func newOperation(actorID uint64, now time.Time) operation {
	return operation{txID: uuid.New(), actorID: actorID, at: now}
}

// changeSet собирает изменения полей в формате {"cambios": {поле: {"anterior", "nuevo"}}}.
type changeSet map[string]interface{}

func (c changeSet) add(field string, before, after interface{}) {
	if reflect.DeepEqual(before, after) {
		return
	}
	c[field] = map[string]interface{}{"anterior": before, "nuevo": after}
}

func (c changeSet) empty() bool { return len(c) == 0 }

func (c changeSet) details() map[string]interface{} {
	return map[string]interface{}{"cambios": map[string]interface{}(c)}
}

// value разыменовывает указатель для битакоры: nil остаётся nil.
func value[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
