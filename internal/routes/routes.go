package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"inventory-system/internal/controllers"
	"inventory-system/internal/documents"
	"inventory-system/internal/listeners"
	"inventory-system/internal/repositories"
	"inventory-system/internal/services"
	"inventory-system/pkg/config"
	"inventory-system/pkg/eventbus"
	"inventory-system/pkg/filestorage"
	"inventory-system/pkg/middleware"
	"inventory-system/pkg/service"
	appwebsocket "inventory-system/pkg/websocket"
)

// InitRouter собирает репозитории, сервисы и контроллеры и регистрирует маршруты /api.
func InitRouter(e *echo.Echo, dbConn *pgxpool.Pool, redisClient *redis.Client, jwtSvc service.JWTService, bus *eventbus.Bus, hub *appwebsocket.Hub, logger *zap.Logger, cfg *config.Config) {
	logger.Info("InitRouter: Начало создания маршрутов")

	// --- 0. ОБЩИЕ КОМПОНЕНТЫ ---
	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(jwtSvc, logger)
	fileStorage, err := filestorage.NewLocalFileStorage(cfg.Documents.BaseDir)
	if err != nil {
		logger.Fatal("не удалось создать файловое хранилище", zap.Error(err))
	}
	txManager := repositories.NewTxManager(dbConn)

	// --- 1. РЕПОЗИТОРИИ ---
	statusRepo := repositories.NewStatusRepository(dbConn, logger)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)
	userRepo := repositories.NewUserRepository(dbConn, logger)
	equipmentRepo := repositories.NewEquipmentRepository(dbConn, logger)
	equipmentTypeRepo := repositories.NewEquipmentTypeRepository(dbConn)
	assignmentRepo := repositories.NewAssignmentRepository(dbConn, logger)
	auditRepo := repositories.NewAuditRepository(dbConn, logger)

	// --- 2. СЕРВИСЫ ---
	statusCatalog := services.NewStatusCatalog(statusRepo, cacheRepo, cfg.Redis.StatusCacheTTL, logger)
	auditService := services.NewAuditService(auditRepo, logger)
	equipmentService := services.NewEquipmentService(
		txManager, equipmentRepo, equipmentTypeRepo, assignmentRepo, statusCatalog, auditService, logger,
	)
	assignmentService := services.NewAssignmentService(
		txManager, equipmentRepo, assignmentRepo, userRepo, statusCatalog, auditService, bus, logger,
	)

	// --- 3. СЛУШАТЕЛИ ---
	generator := documents.NewExcelGenerator(fileStorage)
	listeners.NewHandoverListener(userRepo, equipmentRepo, assignmentRepo, generator, logger).Register(bus)
	listeners.NewLiveFeedListener(hub, logger).Register(bus)

	// --- 4. РОУТЕРЫ ---
	secureGroup := api.Group("", authMW.Auth)
	timeout := cfg.Server.OperationTimeout

	runStatusRouter(secureGroup, controllers.NewStatusController(statusCatalog, logger))
	runEquipmentRouter(secureGroup, controllers.NewEquipmentController(equipmentService, assignmentService, timeout, logger))
	runAssignmentRouter(secureGroup, controllers.NewAssignmentController(assignmentService, timeout, logger))
	runAuditRouter(secureGroup, controllers.NewAuditController(auditService, logger))
	runLiveFeedRouter(api, controllers.NewLiveFeedController(hub, jwtSvc, cfg.Server.AllowedOrigins, logger))

	logger.Info("InitRouter: Создание маршрутов завершено")
}
