package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"inventory-system/internal/entities"
	"inventory-system/internal/repositories"
	apperrors "inventory-system/pkg/errors"
	"inventory-system/pkg/types"

	"github.com/jackc/pgx/v5"
)

// Идентификаторы засеянных справочников в тестовом хранилище.
const (
	stAvailable uint64 = 1
	stAssigned  uint64 = 2
	stRepair    uint64 = 3
	stDecomm    uint64 = 4
	stPersonnel uint64 = 5

	typeLaptop uint64 = 1
	typeSim    uint64 = 2
	typeToner  uint64 = 3

	actorID uint64 = 100
)

var errAuditDown = errors.New("audit storage down")

// memStore - общее состояние фейковых репозиториев. Транзакция фейка
// снимает копию состояния и восстанавливает её при ошибке.
type memStore struct {
	mu sync.Mutex

	statuses    map[uint64]entities.Status
	types       map[uint64]entities.EquipmentType
	users       map[uint64]entities.User
	equipment   map[uint64]entities.Equipment
	assignments map[uint64]entities.Assignment
	events      []entities.AuditEvent

	nextEquipment  uint64
	nextAssignment uint64
	nextEvent      uint64

	failAudit bool
}

func newMemStore() *memStore {
	s := &memStore{
		statuses: map[uint64]entities.Status{
			stAvailable: {ID: stAvailable, Kind: entities.StatusKindEquipment, Name: entities.StatusAvailable},
			stAssigned:  {ID: stAssigned, Kind: entities.StatusKindEquipment, Name: entities.StatusAssigned},
			stRepair:    {ID: stRepair, Kind: entities.StatusKindEquipment, Name: entities.StatusUnderRepair},
			stDecomm:    {ID: stDecomm, Kind: entities.StatusKindEquipment, Name: entities.StatusDecommissioned},
			stPersonnel: {ID: stPersonnel, Kind: entities.StatusKindPersonnel, Name: "Active"},
		},
		types: map[uint64]entities.EquipmentType{
			typeLaptop: {ID: typeLaptop, Name: "Ноутбук"},
			typeSim:    {ID: typeSim, Name: "SIM-карта"},
			typeToner:  {ID: typeToner, Name: "Тонер"},
		},
		users: map[uint64]entities.User{
			1:       {ID: 1, Fio: "Иванов И.И."},
			2:       {ID: 2, Fio: "Петрова А.С."},
			actorID: {ID: actorID, Fio: "Кладовщик"},
		},
		equipment:      map[uint64]entities.Equipment{},
		assignments:    map[uint64]entities.Assignment{},
		nextEquipment:  1000,
		nextAssignment: 1,
		nextEvent:      1,
	}
	return s
}

func (s *memStore) addEquipment(id, typeID, statusID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equipment[id] = entities.Equipment{ID: id, TypeID: typeID, StatusID: statusID}
}

func (s *memStore) status(id uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.equipment[id].StatusID
}

func (s *memStore) openFor(userID uint64) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for _, a := range s.assignments {
		if a.UserID == userID && a.IsOpen() {
			ids = append(ids, a.EquipmentID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *memStore) auditEvents() []entities.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.AuditEvent(nil), s.events...)
}

type memSnapshot struct {
	equipment   map[uint64]entities.Equipment
	assignments map[uint64]entities.Assignment
	events      []entities.AuditEvent
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		equipment:   make(map[uint64]entities.Equipment, len(s.equipment)),
		assignments: make(map[uint64]entities.Assignment, len(s.assignments)),
		events:      append([]entities.AuditEvent(nil), s.events...),
	}
	for k, v := range s.equipment {
		snap.equipment[k] = v
	}
	for k, v := range s.assignments {
		snap.assignments[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equipment = snap.equipment
	s.assignments = snap.assignments
	s.events = snap.events
}

// --- TxManager ---

// fakeTxManager выполняет транзакции по одной, как если бы все строки были заблокированы.
type fakeTxManager struct {
	store *memStore
	txMu  sync.Mutex
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.store.snapshot()
	if err = fn(nil); err != nil {
		m.store.restore(snap)
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		m.store.restore(snap)
		return fmt.Errorf("операция прервана по таймауту: %w", ctxErr)
	}
	return nil
}

// --- Справочники ---

type fakeStatusRepo struct{ store *memStore }

func (r fakeStatusRepo) GetStatuses(_ context.Context, kind string) ([]entities.Status, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []entities.Status
	for _, st := range r.store.statuses {
		if kind == "" || string(st.Kind) == kind {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeStatusRepo) FindStatus(_ context.Context, id uint64) (*entities.Status, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	st, ok := r.store.statuses[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &st, nil
}

func (r fakeStatusRepo) FindByKindAndName(_ context.Context, kind entities.StatusKind, name string) (*entities.Status, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, st := range r.store.statuses {
		if st.Kind == kind && st.Name == name {
			found := st
			return &found, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

type fakeTypeRepo struct{ store *memStore }

func (r fakeTypeRepo) GetEquipmentTypes(_ context.Context) ([]entities.EquipmentType, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []entities.EquipmentType
	for _, t := range r.store.types {
		out = append(out, t)
	}
	return out, nil
}

func (r fakeTypeRepo) FindEquipmentType(_ context.Context, id uint64) (*entities.EquipmentType, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.types[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &t, nil
}

type fakeUserRepo struct{ store *memStore }

func (r fakeUserRepo) FindUserByID(_ context.Context, id uint64) (*entities.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &u, nil
}

func (r fakeUserRepo) LockUserInTx(ctx context.Context, _ pgx.Tx, id uint64) error {
	_, err := r.FindUserByID(ctx, id)
	return err
}

// --- Оборудование ---

type fakeEquipmentRepo struct{ store *memStore }

func (r fakeEquipmentRepo) get(id uint64) (*entities.Equipment, error) {
	eq, ok := r.store.equipment[id]
	if !ok || eq.DeletedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	return &eq, nil
}

func (r fakeEquipmentRepo) GetEquipments(_ context.Context, _ types.Filter) ([]entities.Equipment, uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []entities.Equipment
	for _, eq := range r.store.equipment {
		if eq.DeletedAt == nil {
			out = append(out, eq)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, uint64(len(out)), nil
}

func (r fakeEquipmentRepo) FindEquipment(_ context.Context, id uint64) (*entities.Equipment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.get(id)
}

func (r fakeEquipmentRepo) FindEquipmentsByIDs(_ context.Context, ids []uint64) ([]entities.Equipment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []entities.Equipment
	for _, id := range ids {
		if eq, err := r.get(id); err == nil {
			out = append(out, *eq)
		}
	}
	return out, nil
}

func (r fakeEquipmentRepo) FindForUpdateInTx(ctx context.Context, _ pgx.Tx, id uint64) (*entities.Equipment, error) {
	return r.FindEquipment(ctx, id)
}

func (r fakeEquipmentRepo) LockEquipmentsInTx(ctx context.Context, _ pgx.Tx, ids []uint64) ([]entities.Equipment, error) {
	return r.FindEquipmentsByIDs(ctx, ids)
}

func (r fakeEquipmentRepo) serialTaken(eq *entities.Equipment) bool {
	if eq.SerialNumber == nil {
		return false
	}
	for _, other := range r.store.equipment {
		if other.ID != eq.ID && other.DeletedAt == nil && other.SerialNumber != nil && *other.SerialNumber == *eq.SerialNumber {
			return true
		}
	}
	return false
}

func (r fakeEquipmentRepo) CreateEquipmentInTx(_ context.Context, _ pgx.Tx, eq *entities.Equipment) (uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.serialTaken(eq) {
		return 0, apperrors.Conflict(nil, "серийный номер «%s» уже используется", *eq.SerialNumber)
	}
	r.store.nextEquipment++
	created := *eq
	created.ID = r.store.nextEquipment
	r.store.equipment[created.ID] = created
	return created.ID, nil
}

func (r fakeEquipmentRepo) UpdateEquipmentInTx(_ context.Context, _ pgx.Tx, eq *entities.Equipment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, err := r.get(eq.ID); err != nil {
		return err
	}
	if r.serialTaken(eq) {
		return apperrors.Conflict([]uint64{eq.ID}, "серийный номер «%s» уже используется", *eq.SerialNumber)
	}
	r.store.equipment[eq.ID] = *eq
	return nil
}

func (r fakeEquipmentRepo) UpdateStatusInTx(_ context.Context, _ pgx.Tx, id, statusID uint64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	eq, err := r.get(id)
	if err != nil {
		return err
	}
	eq.StatusID = statusID
	r.store.equipment[id] = *eq
	return nil
}

func (r fakeEquipmentRepo) SoftDeleteInTx(_ context.Context, _ pgx.Tx, id uint64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	eq, err := r.get(id)
	if err != nil {
		return err
	}
	now := time.Now()
	eq.DeletedAt = &now
	r.store.equipment[id] = *eq
	return nil
}

// --- Выдачи ---

type fakeAssignmentRepo struct{ store *memStore }

func (r fakeAssignmentRepo) sorted(match func(entities.Assignment) bool) []entities.Assignment {
	var out []entities.Assignment
	for _, a := range r.store.assignments {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r fakeAssignmentRepo) CreateAssignmentInTx(_ context.Context, _ pgx.Tx, a *entities.Assignment) (uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	created := *a
	created.ID = r.store.nextAssignment
	r.store.nextAssignment++
	r.store.assignments[created.ID] = created
	return created.ID, nil
}

func (r fakeAssignmentRepo) CloseAssignmentInTx(_ context.Context, _ pgx.Tx, id uint64, returnedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.assignments[id]
	if !ok || !a.IsOpen() {
		return apperrors.ErrAlreadyReturned
	}
	a.ReturnedAt = &returnedAt
	r.store.assignments[id] = a
	return nil
}

func (r fakeAssignmentRepo) ListOpenByEquipmentInTx(_ context.Context, _ pgx.Tx, equipmentIDs []uint64) ([]entities.Assignment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	want := make(map[uint64]bool, len(equipmentIDs))
	for _, id := range equipmentIDs {
		want[id] = true
	}
	return r.sorted(func(a entities.Assignment) bool { return a.IsOpen() && want[a.EquipmentID] }), nil
}

func (r fakeAssignmentRepo) ListOpenByUserInTx(_ context.Context, _ pgx.Tx, userID uint64) ([]entities.Assignment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.sorted(func(a entities.Assignment) bool { return a.IsOpen() && a.UserID == userID }), nil
}

func (r fakeAssignmentRepo) ListByUser(_ context.Context, userID uint64, withHistory bool) ([]entities.Assignment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.sorted(func(a entities.Assignment) bool { return a.UserID == userID && (withHistory || a.IsOpen()) }), nil
}

func (r fakeAssignmentRepo) ListByEquipment(_ context.Context, equipmentID uint64) ([]entities.Assignment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.sorted(func(a entities.Assignment) bool { return a.EquipmentID == equipmentID }), nil
}

func (r fakeAssignmentRepo) FindOpenByEquipment(_ context.Context, equipmentID uint64) (*entities.Assignment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	open := r.sorted(func(a entities.Assignment) bool { return a.IsOpen() && a.EquipmentID == equipmentID })
	if len(open) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &open[0], nil
}

func (r fakeAssignmentRepo) AttachDocument(_ context.Context, userID uint64, assignmentIDs []uint64, path string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, id := range assignmentIDs {
		a, ok := r.store.assignments[id]
		if ok && a.UserID == userID && a.IsOpen() {
			p := path
			a.DocumentPath = &p
			r.store.assignments[id] = a
			n++
		}
	}
	return n, nil
}

// --- Битакора ---

type fakeAuditRepo struct{ store *memStore }

func (r fakeAuditRepo) CreateEventInTx(_ context.Context, _ pgx.Tx, event *entities.AuditEvent) (uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failAudit {
		return 0, errAuditDown
	}
	e := *event
	e.ID = r.store.nextEvent
	r.store.nextEvent++
	r.store.events = append(r.store.events, e)
	return e.ID, nil
}

func (r fakeAuditRepo) GetEvents(_ context.Context, f repositories.AuditFilter) ([]entities.AuditEvent, uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []entities.AuditEvent
	for i := len(r.store.events) - 1; i >= 0; i-- {
		e := r.store.events[i]
		if f.Action != "" && string(e.Action) != f.Action {
			continue
		}
		if f.Section != "" && e.Section != f.Section {
			continue
		}
		out = append(out, e)
	}
	return out, uint64(len(out)), nil
}

// --- Кеш и шина ---

type memCache struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	switch v := value.(type) {
	case []byte:
		c.data[key] = string(v)
	case string:
		c.data[key] = v
	default:
		c.data[key] = fmt.Sprint(v)
	}
	return nil
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}
