package routes

import (
	"inventory-system/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runEquipmentRouter(secureGroup *echo.Group, ctrl *controllers.EquipmentController) {
	secureGroup.GET("/equipment", ctrl.GetEquipments)
	secureGroup.POST("/equipment", ctrl.CreateEquipment)
	secureGroup.POST("/equipment/import", ctrl.ImportEquipment)
	secureGroup.GET("/equipment/:id", ctrl.FindEquipment)
	secureGroup.PATCH("/equipment/:id", ctrl.UpdateEquipment)
	secureGroup.DELETE("/equipment/:id", ctrl.DeleteEquipment)
	secureGroup.GET("/equipment/:id/assignments", ctrl.GetEquipmentAssignments)
}
