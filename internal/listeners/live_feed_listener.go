package listeners

import (
	"context"
	"fmt"
	"time"

	"inventory-system/internal/events"
	"inventory-system/pkg/eventbus"

	"go.uber.org/zap"
)

// Broadcaster - то, что ленте нужно от WebSocket-хаба.
type Broadcaster interface {
	Broadcast(messageType string, payload interface{}) error
}

// AssignmentFeedPayload - сообщение ленты об открытых или закрытых выдачах.
type AssignmentFeedPayload struct {
	TxID          string    `json:"tx_id"`
	UserID        uint64    `json:"user_id"`
	ActorID       uint64    `json:"actor_id"`
	AssignmentIDs []uint64  `json:"assignment_ids"`
	EquipmentIDs  []uint64  `json:"equipment_ids"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// LiveFeedListener пересылает закоммиченные изменения выдач подключённым клиентам.
type LiveFeedListener struct {
	hub    Broadcaster
	logger *zap.Logger
}

func NewLiveFeedListener(hub Broadcaster, logger *zap.Logger) *LiveFeedListener {
	return &LiveFeedListener{hub: hub, logger: logger}
}

func (l *LiveFeedListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.AssignmentsOpenedName, l.Handle)
	bus.Subscribe(events.AssignmentsClosedName, l.Handle)
	l.logger.Info("LiveFeedListener подписан на события выдач")
}

func (l *LiveFeedListener) Handle(_ context.Context, e eventbus.Event) error {
	var payload AssignmentFeedPayload
	switch event := e.(type) {
	case events.AssignmentsOpened:
		payload = AssignmentFeedPayload(event)
	case events.AssignmentsClosed:
		payload = AssignmentFeedPayload(event)
	default:
		return fmt.Errorf("неожиданный тип события %T", e)
	}
	return l.hub.Broadcast(e.Name(), payload)
}
