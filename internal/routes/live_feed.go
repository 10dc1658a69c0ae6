package routes

import (
	"inventory-system/internal/controllers"

	"github.com/labstack/echo/v4"
)

// Лента вне secureGroup: токен проверяется в самом контроллере.
func runLiveFeedRouter(api *echo.Group, ctrl *controllers.LiveFeedController) {
	api.GET("/ws", ctrl.ServeWs)
}
