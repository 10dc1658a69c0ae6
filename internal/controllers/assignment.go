package controllers

import (
	"net/http"
	"strconv"
	"time"

	"inventory-system/internal/dto"
	"inventory-system/internal/services"
	apperrors "inventory-system/pkg/errors"
	"inventory-system/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AssignmentController struct {
	assignmentService services.AssignmentServiceInterface
	timeout           time.Duration
	logger            *zap.Logger
}

func NewAssignmentController(
	assignmentService services.AssignmentServiceInterface,
	timeout time.Duration,
	logger *zap.Logger,
) *AssignmentController {
	return &AssignmentController{
		assignmentService: assignmentService,
		timeout:           timeout,
		logger:            logger,
	}
}

func (c *AssignmentController) Assign(ctx echo.Context) error {
	var payload dto.AssignEquipmentDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("неверный формат данных"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.assignmentService.Assign(reqCtx, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Оборудование успешно выдано", http.StatusCreated)
}

func (c *AssignmentController) Return(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.ReturnEquipmentDTO
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&payload); err != nil {
			return utils.ErrorResponse(ctx, apperrors.Validation("неверный формат данных"), c.logger)
		}
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.assignmentService.Return(reqCtx, id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Оборудование успешно возвращено", http.StatusOK)
}

func (c *AssignmentController) GetUserAssignments(ctx echo.Context) error {
	userID, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	withHistory, _ := strconv.ParseBool(ctx.QueryParam("history"))

	res, err := c.assignmentService.GetUserAssignments(ctx.Request().Context(), userID, withHistory)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Выдачи сотрудника успешно получены", http.StatusOK)
}

// Reconcile - PUT набора оборудования сотрудника.
func (c *AssignmentController) Reconcile(ctx echo.Context) error {
	userID, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.ReconcileAssignmentsDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("неверный формат данных"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.assignmentService.Reconcile(reqCtx, userID, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Выдачи сотрудника успешно сверены", http.StatusOK)
}
