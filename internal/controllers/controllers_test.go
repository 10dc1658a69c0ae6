package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inventory-system/internal/dto"
	"inventory-system/internal/services"
	apperrors "inventory-system/pkg/errors"
	"inventory-system/pkg/types"
	"inventory-system/pkg/validation"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAssignmentService struct {
	services.AssignmentServiceInterface
	reconcileErr error
	lastUserID   uint64
	lastIDs      []uint64
	lastNote     string
}

func (s *stubAssignmentService) Assign(_ context.Context, p dto.AssignEquipmentDTO) (*dto.AssignmentDTO, error) {
	if p.EquipmentID == 13 {
		return nil, apperrors.NotAvailable(13, "UnderRepair")
	}
	return &dto.AssignmentDTO{ID: 1, EquipmentID: p.EquipmentID, UserID: p.UserID}, nil
}

func (s *stubAssignmentService) Return(_ context.Context, equipmentID uint64, p dto.ReturnEquipmentDTO) (*dto.AssignmentDTO, error) {
	s.lastNote = p.Note
	if equipmentID == 7 {
		return nil, apperrors.AlreadyReturned(7)
	}
	returned := "2026-03-10 09:30:00"
	return &dto.AssignmentDTO{ID: 1, EquipmentID: equipmentID, ReturnedAt: &returned}, nil
}

func (s *stubAssignmentService) Reconcile(_ context.Context, userID uint64, p dto.ReconcileAssignmentsDTO) (*dto.ReconcileResultDTO, error) {
	s.lastUserID, s.lastIDs = userID, p.EquipmentIDs
	if s.reconcileErr != nil {
		return nil, s.reconcileErr
	}
	return &dto.ReconcileResultDTO{UserID: userID}, nil
}

type stubEquipmentService struct {
	services.EquipmentServiceInterface
	lastPatch dto.UpdateEquipmentDTO
	imported  []byte
}

func (s *stubEquipmentService) UpdateEquipment(_ context.Context, id uint64, p dto.UpdateEquipmentDTO) (*dto.EquipmentDTO, error) {
	s.lastPatch = p
	if p.Has("status_id") && p.StatusID.Int == 2 {
		return nil, apperrors.InvalidTransition("статус «Assigned» устанавливается только через выдачу оборудования")
	}
	return &dto.EquipmentDTO{ID: id}, nil
}

func (s *stubEquipmentService) GetEquipments(_ context.Context, _ types.Filter) ([]dto.EquipmentDTO, uint64, error) {
	return []dto.EquipmentDTO{{ID: 1}, {ID: 2}}, 12, nil
}

func (s *stubEquipmentService) ImportEquipment(_ context.Context, file io.Reader) (*dto.ImportResultDTO, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	s.imported = data
	return &dto.ImportResultDTO{Created: 1, CreatedIDs: []uint64{10}, Failed: []dto.ImportRowErrorDTO{}}, nil
}

func (s *stubEquipmentService) DeleteEquipment(_ context.Context, id uint64) error {
	if id == 404 {
		return apperrors.NewDomainError(apperrors.ErrNotFound, "оборудование не найдено", id)
	}
	return nil
}

type envelope struct {
	Status  bool                   `json:"status"`
	Message string                 `json:"message"`
	Body    map[string]interface{} `json:"body"`
}

func newTestServer() (*echo.Echo, *stubAssignmentService, *stubEquipmentService) {
	e := echo.New()
	e.Validator = validation.New()
	logger := zap.NewNop()

	as := &stubAssignmentService{}
	es := &stubEquipmentService{}
	ac := NewAssignmentController(as, time.Second, logger)
	ec := NewEquipmentController(es, as, time.Second, logger)

	e.POST("/api/assignments", ac.Assign)
	e.POST("/api/equipment/:id/return", ac.Return)
	e.PUT("/api/users/:id/assignments", ac.Reconcile)
	e.GET("/api/equipment", ec.GetEquipments)
	e.POST("/api/equipment/import", ec.ImportEquipment)
	e.PATCH("/api/equipment/:id", ec.UpdateEquipment)
	e.DELETE("/api/equipment/:id", ec.DeleteEquipment)
	return e, as, es
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func TestAssign(t *testing.T) {
	e, _, _ := newTestServer()

	rec, env := do(t, e, http.MethodPost, "/api/assignments", `{"equipment_id": 7, "user_id": 3}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Status)
	assert.Equal(t, float64(7), env.Body["equipment_id"])

	rec, env = do(t, e, http.MethodPost, "/api/assignments", `{"equipment_id": 13, "user_id": 3}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Status)
	assert.Equal(t, "NotAvailable", env.Body["kind"])
	assert.Equal(t, []interface{}{float64(13)}, env.Body["ids"])

	rec, env = do(t, e, http.MethodPost, "/api/assignments", `{"equipment_id": 7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ValidationError", env.Body["kind"])

	rec, _ = do(t, e, http.MethodPost, "/api/assignments", `{"equipment_id": "x"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReturn(t *testing.T) {
	e, as, _ := newTestServer()

	rec, _ := do(t, e, http.MethodPost, "/api/equipment/8/return", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/equipment/8/return", `{"note": "сломан экран"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "сломан экран", as.lastNote)

	rec, env := do(t, e, http.MethodPost, "/api/equipment/7/return", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "AlreadyReturned", env.Body["kind"])

	rec, env = do(t, e, http.MethodPost, "/api/equipment/abc/return", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ValidationError", env.Body["kind"])
}

func TestReconcile(t *testing.T) {
	e, as, _ := newTestServer()

	rec, _ := do(t, e, http.MethodPut, "/api/users/3/assignments", `{"equipment_ids": [8, 9]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(3), as.lastUserID)
	assert.Equal(t, []uint64{8, 9}, as.lastIDs)

	rec, _ = do(t, e, http.MethodPut, "/api/users/3/assignments", `{"equipment_ids": [0]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	as.reconcileErr = apperrors.Conflict([]uint64{8, 9}, "оборудование недоступно для выдачи: #8, #9")
	rec, env := do(t, e, http.MethodPut, "/api/users/3/assignments", `{"equipment_ids": [8, 9]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Conflict", env.Body["kind"])
	assert.Equal(t, []interface{}{float64(8), float64(9)}, env.Body["ids"])
	assert.Contains(t, env.Message, "#8, #9")
}

func TestUpdateEquipment_TracksPresentFields(t *testing.T) {
	e, _, es := newTestServer()

	rec, _ := do(t, e, http.MethodPatch, "/api/equipment/5", `{"notes": null, "location_id": 4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, es.lastPatch.Has("notes"))
	assert.True(t, es.lastPatch.Has("location_id"))
	assert.False(t, es.lastPatch.Has("status_id"))
	assert.False(t, es.lastPatch.Notes.Valid)
	assert.Equal(t, 4, es.lastPatch.LocationID.Int)

	rec, env := do(t, e, http.MethodPatch, "/api/equipment/5", `{"status_id": 2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "InvalidTransition", env.Body["kind"])

	rec, _ = do(t, e, http.MethodPatch, "/api/equipment/5", `[1, 2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteEquipment(t *testing.T) {
	e, _, _ := newTestServer()

	rec, _ := do(t, e, http.MethodDelete, "/api/equipment/5", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, env := do(t, e, http.MethodDelete, "/api/equipment/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NotFound", env.Body["kind"])
}

func TestGetEquipments_Pagination(t *testing.T) {
	e, _, _ := newTestServer()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/equipment?withPagination=true&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	pagination := env.Body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(12), pagination["total_count"])
	assert.Equal(t, float64(3), pagination["total_pages"])
}

func uploadRequest(t *testing.T, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/equipment/import", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestImportEquipment(t *testing.T) {
	e, _, es := newTestServer()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "склад.XLSX", []byte("workbook")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte("workbook"), es.imported)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, float64(1), env.Body["created"])

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "склад.csv", []byte("a,b")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/equipment/import", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
