package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"inventory-system/internal/dto"
	"inventory-system/internal/entities"
	"inventory-system/internal/events"
	"inventory-system/pkg/contextkeys"
	apperrors "inventory-system/pkg/errors"
	"inventory-system/pkg/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) opened() []events.AssignmentsOpened {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.AssignmentsOpened
	for _, e := range p.events {
		if ev, ok := e.(events.AssignmentsOpened); ok {
			out = append(out, ev)
		}
	}
	return out
}

func (p *recordingPublisher) closed() []events.AssignmentsClosed {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.AssignmentsClosed
	for _, e := range p.events {
		if ev, ok := e.(events.AssignmentsClosed); ok {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	store       *memStore
	publisher   *recordingPublisher
	equipment   *EquipmentService
	assignments *AssignmentService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemStore()
	logger := zap.NewNop()
	txManager := &fakeTxManager{store: store}
	statuses := NewStatusCatalog(fakeStatusRepo{store}, nil, time.Minute, logger)
	audit := NewAuditService(fakeAuditRepo{store}, logger)
	publisher := &recordingPublisher{}

	equipment := NewEquipmentService(txManager, fakeEquipmentRepo{store}, fakeTypeRepo{store}, fakeAssignmentRepo{store}, statuses, audit, logger)
	equipment.now = func() time.Time { return fixedNow }
	assignments := NewAssignmentService(txManager, fakeEquipmentRepo{store}, fakeAssignmentRepo{store}, fakeUserRepo{store}, statuses, audit, publisher, logger)
	assignments.now = func() time.Time { return fixedNow }

	return &harness{store: store, publisher: publisher, equipment: equipment, assignments: assignments}
}

func actorCtx() context.Context {
	return context.WithValue(context.Background(), contextkeys.UserIDKey, actorID)
}

func TestAssign_Success(t *testing.T) {
	h := newHarness(t)
	h.store.addEquipment(7, typeLaptop, stAvailable)

	res, err := h.assignments.Assign(actorCtx(), dto.AssignEquipmentDTO{EquipmentID: 7, UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), res.EquipmentID)
	assert.Equal(t, uint64(1), res.UserID)
	assert.Equal(t, actorID, res.AssignedByUserID)
	assert.Nil(t, res.ReturnedAt)

	assert.Equal(t, stAssigned, h.store.status(7))
	assert.Equal(t, []uint64{7}, h.store.openFor(1))

	evs := h.store.auditEvents()
	require.Len(t, evs, 1)
	assert.Equal(t, entities.AuditAssign, evs[0].Action)
	assert.Equal(t, entities.SectionAssignment, evs[0].Section)
	require.NotNil(t, evs[0].TargetID)
	assert.Equal(t, uint64(7), *evs[0].TargetID)
	assert.Equal(t, actorID, evs[0].ActorID)
	assert.Equal(t, stAvailable, evs[0].Details["status_before"])
	assert.Equal(t, stAssigned, evs[0].Details["status_after"])

	opened := h.publisher.opened()
	require.Len(t, opened, 1)
	assert.Equal(t, uint64(1), opened[0].UserID)
	assert.Equal(t, []uint64{7}, opened[0].EquipmentIDs)
	assert.Equal(t, evs[0].TxID.String(), opened[0].TxID)
}

func TestAssign_NotAvailable(t *testing.T) {
	h := newHarness(t)
	h.store.addEquipment(7, typeLaptop, stRepair)

	_, err := h.assignments.Assign(actorCtx(), dto.AssignEquipmentDTO{EquipmentID: 7, UserID: 1})
	require.ErrorIs(t, err, apperrors.ErrNotAvailable)
	assert.Equal(t, []uint64{7}, apperrors.IDsOf(err))

	assert.Equal(t, stRepair, h.store.status(7))
	assert.Empty(t, h.store.auditEvents())
	assert.Empty(t, h.publisher.opened())
}

func TestAssign_SecondAssignIsRejected(t *testing.T) {
	h := newHarness(t)
	h.store.addEquipment(7, typeLaptop, stAvailable)

	_, err := h.assignments.Assign(actorCtx(), dto.AssignEquipmentDTO{EquipmentID: 7, UserID: 1})
	require.NoError(t, err)

	_, err = h.assignments.Assign(actorCtx(), dto.AssignEquipmentDTO{EquipmentID: 7, UserID: 2})
	require.ErrorIs(t, err, apperrors.ErrNotAvailable)
	assert.Equal(t, []uint64{7}, h.store.openFor(1))
	assert.Empty(t, h.store.openFor(2))
}

func TestAssign_ConcurrentOnlyOneWins(t *testing.T) {
	h := newHarness(t)
	h.store.addEquipment(7, typeLaptop, stAvailable)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []uint64{1, 2} {
		wg.Add(1)
		go func(i int, userID uint64) {
			defer wg.Done()
			_, errs[i] = h.assignments.Assign(actorCtx(), dto.AssignEquipmentDTO{EquipmentID: 7, UserID: userID})
		}(i, userID)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		if err == nil {
			ok++
		} else if assert.ErrorIs(t, err, apperrors.ErrNotAvailable) {
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)
	assert.Len(t, h.store.auditEvents(), 1)
}

func TestAssign_Errors(t *testing.T) {
	t.Run("сотрудник не найден", func(t *testing.T) {
		h := newHarness(t)
		h.store.addEquipment(7, typeLaptop, stAvailable)
		_, err := h.assignments.Assign(actorCtx(), dto.AssignEquipmentDTO{EquipmentID: 7, UserID: 42})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Equal(t, stAvailable, h.store.status(7))
	})

	t.Run("оборудование не найдено", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.assignments.Assign(actorCtx(), dto.AssignEquipmentDTO{EquipmentID: 7, UserID: 1})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Equal(t, []uint64{7}, apperrors.IDsOf(err))
	})

	t.Run("нет пользователя в контексте", func(t *testing.T) {
		h := newHarness(t)
		h.store.addEquipment(7, typeLaptop, stAvailable)
		_, err := h.assignments.Assign(context.Background(), dto.AssignEquipmentDTO{EquipmentID: 7, UserID: 1})
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("в справочнике нет статуса Assigned", func(t *testing.T) {
		h := newHarness(t)
		delete(h.store.statuses, stAssigned)
		h.store.addEquipment(7, typeLaptop, stAvailable)
		_, err := h.assignments.Assign(actorCtx(), dto.AssignEquipmentDTO{EquipmentID: 7, UserID: 1})
		assert.ErrorIs(t, err, apperrors.ErrConfiguration)
		assert.Equal(t, "ConfigurationError", apperrors.Kind(err))
		assert.Empty(t, h.store.auditEvents())
	})
}

func TestAssign_AuditFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.store.addEquipment(7, typeLaptop, stAvailable)
	h.store.failAudit = true

	_, err := h.assignments.Assign(actorCtx(), dto.AssignEquipmentDTO{EquipmentID: 7, UserID: 1})
	require.ErrorIs(t, err, errAuditDown)

	assert.Equal(t, stAvailable, h.store.status(7))
	assert.Empty(t, h.store.openFor(1))
	assert.Empty(t, h.publisher.opened())
}

func TestAssign_CancelledContextRollsBack(t *testing.T) {
	h := newHarness(t)
	h.store.addEquipment(7, typeLaptop, stAvailable)

	ctx, cancel := context.WithCancel(actorCtx())
	cancel()

	_, err := h.assignments.Assign(ctx, dto.AssignEquipmentDTO{EquipmentID: 7, UserID: 1})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, stAvailable, h.store.status(7))
	assert.Empty(t, h.store.auditEvents())
}

func TestReturn(t *testing.T) {
	h := newHarness(t)
	h.store.addEquipment(7, typeLaptop, stAvailable)
	_, err := h.assignments.Assign(actorCtx(), dto.AssignEquipmentDTO{EquipmentID: 7, UserID: 1})
	require.NoError(t, err)

	res, err := h.assignments.Return(actorCtx(), 7, dto.ReturnEquipmentDTO{Note: "сдан на склад"})
	require.NoError(t, err)
	require.NotNil(t, res.ReturnedAt)
	assert.Equal(t, stAvailable, h.store.status(7))
	assert.Empty(t, h.store.openFor(1))

	evs := h.store.auditEvents()
	require.Len(t, evs, 2)
	ret := evs[1]
	assert.Equal(t, entities.AuditReturn, ret.Action)
	assert.Equal(t, "сдан на склад", ret.Details["note"])
	assert.Equal(t, stAssigned, ret.Details["status_before"])
	assert.Equal(t, stAvailable, ret.Details["status_after"])

	t.Run("повторный возврат", func(t *testing.T) {
		_, err := h.assignments.Return(actorCtx(), 7, dto.ReturnEquipmentDTO{})
		assert.ErrorIs(t, err, apperrors.ErrAlreadyReturned)
		assert.Len(t, h.store.auditEvents(), 2)
	})

	t.Run("оборудование не найдено", func(t *testing.T) {
		_, err := h.assignments.Return(actorCtx(), 999, dto.ReturnEquipmentDTO{})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestReturn_DefaultNote(t *testing.T) {
	h := newHarness(t)
	h.store.addEquipment(7, typeLaptop, stAvailable)
	_, err := h.assignments.Assign(actorCtx(), dto.AssignEquipmentDTO{EquipmentID: 7, UserID: 1})
	require.NoError(t, err)

	_, err = h.assignments.Return(actorCtx(), 7, dto.ReturnEquipmentDTO{})
	require.NoError(t, err)

	evs := h.store.auditEvents()
	assert.Equal(t, noteDefaultReturn, evs[len(evs)-1].Details["note"])
}

func TestReconcile_ReplacesSet(t *testing.T) {
	h := newHarness(t)
	for _, id := range []uint64{7, 8, 9} {
		h.store.addEquipment(id, typeLaptop, stAvailable)
	}

	first, err := h.assignments.Reconcile(actorCtx(), 1, dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{8, 7, 8}})
	require.NoError(t, err)
	assert.Len(t, first.Opened, 2)
	assert.Empty(t, first.Closed)
	assert.Equal(t, []uint64{7, 8}, h.store.openFor(1))
	before := len(h.store.auditEvents())

	res, err := h.assignments.Reconcile(actorCtx(), 1, dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{8, 9}})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.UserID)
	require.Len(t, res.Closed, 1)
	assert.Equal(t, uint64(7), res.Closed[0].EquipmentID)
	require.Len(t, res.Opened, 1)
	assert.Equal(t, uint64(9), res.Opened[0].EquipmentID)

	assert.Equal(t, []uint64{8, 9}, h.store.openFor(1))
	assert.Equal(t, stAvailable, h.store.status(7))
	assert.Equal(t, stAssigned, h.store.status(8))
	assert.Equal(t, stAssigned, h.store.status(9))

	evs := h.store.auditEvents()[before:]
	require.Len(t, evs, 2)
	assert.Equal(t, entities.AuditReturn, evs[0].Action)
	assert.Equal(t, uint64(7), *evs[0].TargetID)
	assert.Equal(t, noteReconcile, evs[0].Details["note"])
	assert.Equal(t, entities.AuditAssign, evs[1].Action)
	assert.Equal(t, uint64(9), *evs[1].TargetID)
	assert.Equal(t, evs[0].TxID, evs[1].TxID)

	opened := h.publisher.opened()
	require.Len(t, opened, 2)
	assert.Equal(t, []uint64{9}, opened[1].EquipmentIDs)
}

func TestReconcile_PublishesClosed(t *testing.T) {
	h := newHarness(t)
	for _, id := range []uint64{7, 8} {
		h.store.addEquipment(id, typeLaptop, stAvailable)
	}
	_, err := h.assignments.Reconcile(actorCtx(), 1, dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{7, 8}})
	require.NoError(t, err)
	assert.Empty(t, h.publisher.closed())

	_, err = h.assignments.Reconcile(actorCtx(), 1, dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{8}})
	require.NoError(t, err)
	closed := h.publisher.closed()
	require.Len(t, closed, 1)
	assert.Equal(t, uint64(1), closed[0].UserID)
	assert.Equal(t, []uint64{7}, closed[0].EquipmentIDs)
	assert.Equal(t, actorID, closed[0].ActorID)

	_, err = h.assignments.Return(actorCtx(), 8, dto.ReturnEquipmentDTO{})
	require.NoError(t, err)
	assert.Len(t, h.publisher.closed(), 2)
}

func TestReconcile_Idempotent(t *testing.T) {
	h := newHarness(t)
	for _, id := range []uint64{8, 9} {
		h.store.addEquipment(id, typeLaptop, stAvailable)
	}
	payload := dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{8, 9}}

	_, err := h.assignments.Reconcile(actorCtx(), 1, payload)
	require.NoError(t, err)
	eventCount := len(h.store.auditEvents())
	published := len(h.publisher.opened())

	res, err := h.assignments.Reconcile(actorCtx(), 1, payload)
	require.NoError(t, err)
	assert.Empty(t, res.Opened)
	assert.Empty(t, res.Closed)
	assert.Len(t, h.store.auditEvents(), eventCount)
	assert.Len(t, h.publisher.opened(), published)
}

func TestReconcile_EmptyClosesAll(t *testing.T) {
	h := newHarness(t)
	for _, id := range []uint64{7, 8} {
		h.store.addEquipment(id, typeLaptop, stAvailable)
	}
	_, err := h.assignments.Reconcile(actorCtx(), 1, dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{7, 8}})
	require.NoError(t, err)

	res, err := h.assignments.Reconcile(actorCtx(), 1, dto.ReconcileAssignmentsDTO{})
	require.NoError(t, err)
	assert.Len(t, res.Closed, 2)
	assert.Empty(t, h.store.openFor(1))
	assert.Equal(t, stAvailable, h.store.status(7))
	assert.Equal(t, stAvailable, h.store.status(8))
}

func TestReconcile_AllOrNothing(t *testing.T) {
	h := newHarness(t)
	h.store.addEquipment(7, typeLaptop, stAvailable)
	h.store.addEquipment(8, typeLaptop, stRepair)
	h.store.addEquipment(9, typeLaptop, stAvailable)
	h.store.addEquipment(10, typeLaptop, stAvailable)

	_, err := h.assignments.Reconcile(actorCtx(), 1, dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{7}})
	require.NoError(t, err)
	_, err = h.assignments.Assign(actorCtx(), dto.AssignEquipmentDTO{EquipmentID: 9, UserID: 2})
	require.NoError(t, err)
	eventCount := len(h.store.auditEvents())

	_, err = h.assignments.Reconcile(actorCtx(), 1, dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{10, 9, 8}})
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, []uint64{8, 9}, apperrors.IDsOf(err))

	// Ни одно изменение не применено.
	assert.Equal(t, []uint64{7}, h.store.openFor(1))
	assert.Equal(t, stAssigned, h.store.status(7))
	assert.Equal(t, stAvailable, h.store.status(10))
	assert.Len(t, h.store.auditEvents(), eventCount)
}

func TestReconcile_MissingEquipment(t *testing.T) {
	h := newHarness(t)
	h.store.addEquipment(7, typeLaptop, stAvailable)

	_, err := h.assignments.Reconcile(actorCtx(), 1, dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{7, 999}})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, []uint64{999}, apperrors.IDsOf(err))
	assert.Empty(t, h.store.openFor(1))
	assert.Equal(t, stAvailable, h.store.status(7))
}

func TestReconcile_MissingAndUnavailableReportedTogether(t *testing.T) {
	h := newHarness(t)
	h.store.addEquipment(7, typeLaptop, stAvailable)
	h.store.addEquipment(10, typeLaptop, stRepair)

	_, err := h.assignments.Reconcile(actorCtx(), 1, dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{7, 10, 999}})
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, []uint64{10, 999}, apperrors.IDsOf(err))
	assert.Contains(t, err.Error(), "не найдено: #999")
	assert.Contains(t, err.Error(), "недоступно для выдачи: #10")

	assert.Empty(t, h.store.openFor(1))
	assert.Equal(t, stAvailable, h.store.status(7))
	assert.Empty(t, h.store.auditEvents())
}

func TestReconcile_UnknownUser(t *testing.T) {
	h := newHarness(t)
	h.store.addEquipment(7, typeLaptop, stAvailable)

	_, err := h.assignments.Reconcile(actorCtx(), 42, dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{7}})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReconcile_AuditFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	for _, id := range []uint64{7, 8} {
		h.store.addEquipment(id, typeLaptop, stAvailable)
	}
	_, err := h.assignments.Reconcile(actorCtx(), 1, dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{7}})
	require.NoError(t, err)

	h.store.failAudit = true
	_, err = h.assignments.Reconcile(actorCtx(), 1, dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{8}})
	require.Error(t, err)

	assert.Equal(t, []uint64{7}, h.store.openFor(1))
	assert.Equal(t, stAssigned, h.store.status(7))
	assert.Equal(t, stAvailable, h.store.status(8))
}

func TestAssignmentQueries(t *testing.T) {
	h := newHarness(t)
	for _, id := range []uint64{7, 8} {
		h.store.addEquipment(id, typeLaptop, stAvailable)
	}
	_, err := h.assignments.Reconcile(actorCtx(), 1, dto.ReconcileAssignmentsDTO{EquipmentIDs: []uint64{7, 8}})
	require.NoError(t, err)
	_, err = h.assignments.Return(actorCtx(), 7, dto.ReturnEquipmentDTO{})
	require.NoError(t, err)

	open, err := h.assignments.GetUserAssignments(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, uint64(8), open[0].EquipmentID)

	all, err := h.assignments.GetUserAssignments(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	history, err := h.assignments.GetEquipmentAssignments(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotNil(t, history[0].ReturnedAt)

	_, err = h.assignments.GetUserAssignments(context.Background(), 42, false)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = h.assignments.GetEquipmentAssignments(context.Background(), 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
