package routes

import (
	"inventory-system/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runAuditRouter(secureGroup *echo.Group, ctrl *controllers.AuditController) {
	secureGroup.GET("/audit", ctrl.GetEvents)
	secureGroup.GET("/audit/export", ctrl.Export)
}
