package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"inventory-system/internal/dto"
	"inventory-system/internal/services"
	apperrors "inventory-system/pkg/errors"
	"inventory-system/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type EquipmentController struct {
	equipmentService  services.EquipmentServiceInterface
	assignmentService services.AssignmentServiceInterface
	timeout           time.Duration
	logger            *zap.Logger
}

func NewEquipmentController(
	equipmentService services.EquipmentServiceInterface,
	assignmentService services.AssignmentServiceInterface,
	timeout time.Duration,
	logger *zap.Logger,
) *EquipmentController {
	return &EquipmentController{
		equipmentService:  equipmentService,
		assignmentService: assignmentService,
		timeout:           timeout,
		logger:            logger,
	}
}

func (c *EquipmentController) GetEquipments(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.QueryParams())

	list, total, err := c.equipmentService.GetEquipments(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, list, "Список оборудования успешно получен", http.StatusOK, total)
}

func (c *EquipmentController) FindEquipment(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.equipmentService.FindEquipment(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Оборудование успешно найдено", http.StatusOK)
}

func (c *EquipmentController) CreateEquipment(ctx echo.Context) error {
	var payload dto.CreateEquipmentDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("неверный формат данных"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.equipmentService.CreateEquipment(reqCtx, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Оборудование успешно создано", http.StatusCreated)
}

const maxImportFileSize = 5 << 20

// ImportEquipment принимает xlsx в поле "file". Строки создаются независимо,
// поэтому общий таймаут операции к импорту не применяется.
func (c *EquipmentController) ImportEquipment(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("файл не передан"), c.logger)
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".xlsx") {
		return utils.ErrorResponse(ctx, apperrors.Validation("допускаются только файлы .xlsx"), c.logger)
	}
	if fileHeader.Size > maxImportFileSize {
		return utils.ErrorResponse(ctx, apperrors.Validation("файл больше 5 МБ"), c.logger)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	defer src.Close()

	res, err := c.equipmentService.ImportEquipment(ctx.Request().Context(), src)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Импорт оборудования завершён", http.StatusOK)
}

// UpdateEquipment - PATCH: тело читается дважды, чтобы знать, какие ключи пришли.
func (c *EquipmentController) UpdateEquipment(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("не удалось прочитать тело запроса"), c.logger)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("неверный формат данных"), c.logger)
	}
	var payload dto.UpdateEquipmentDTO
	if err := json.Unmarshal(body, &payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("неверный формат данных"), c.logger)
	}
	payload.Fields = make(map[string]bool, len(raw))
	for key := range raw {
		payload.Fields[key] = true
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.equipmentService.UpdateEquipment(reqCtx, id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Оборудование успешно обновлено", http.StatusOK)
}

func (c *EquipmentController) DeleteEquipment(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.equipmentService.DeleteEquipment(reqCtx, id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (c *EquipmentController) GetEquipmentAssignments(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.assignmentService.GetEquipmentAssignments(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "История выдач успешно получена", http.StatusOK)
}

func parseID(ctx echo.Context, name string) (uint64, error) {
	id, err := utils.ParseUintParam(ctx.Param(name))
	if err != nil {
		return 0, apperrors.Validation("некорректный ID: %s", ctx.Param(name))
	}
	return id, nil
}
