package routes

import (
	"inventory-system/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runAssignmentRouter(secureGroup *echo.Group, ctrl *controllers.AssignmentController) {
	secureGroup.POST("/assignments", ctrl.Assign)
	secureGroup.POST("/equipment/:id/return", ctrl.Return)
	secureGroup.GET("/users/:id/assignments", ctrl.GetUserAssignments)
	secureGroup.PUT("/users/:id/assignments", ctrl.Reconcile)
}
