package routes

import (
	"inventory-system/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runStatusRouter(secureGroup *echo.Group, ctrl *controllers.StatusController) {
	secureGroup.GET("/statuses", ctrl.GetStatuses)
}
