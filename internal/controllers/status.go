package controllers

import (
	"net/http"

	"inventory-system/internal/services"
	"inventory-system/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type StatusController struct {
	statusCatalog services.StatusCatalogInterface
	logger        *zap.Logger
}

func NewStatusController(statusCatalog services.StatusCatalogInterface, logger *zap.Logger) *StatusController {
	return &StatusController{statusCatalog: statusCatalog, logger: logger}
}

// GetStatuses - справочник статусов, ?kind=EQUIPMENT|PERSONNEL|LOCATION.
func (c *StatusController) GetStatuses(ctx echo.Context) error {
	list, err := c.statusCatalog.GetStatuses(ctx.Request().Context(), ctx.QueryParam("kind"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, list, "Статусы успешно получены", http.StatusOK)
}
