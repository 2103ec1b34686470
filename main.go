package main

import (
	"fmt"
	"log"
	"os"

	"group_assist/internal/auth"
	"group_assist/internal/config"
	"group_assist/internal/handlers"
	"group_assist/internal/models"
	"group_assist/internal/queue"
	"group_assist/internal/storage"
	"group_assist/internal/tasks"
	"group_assist/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @Title						Ассистент учебной группы
// @Description				Очереди на сдачу по предметам, посещаемость и опросы
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	key := os.Getenv("ENV_CHEK")
	if key == "" {
		fmt.Println("Подключение к .env")
		if err := godotenv.Load(); err != nil {
			log.Fatal("Ошибка получения .env")
		}
	}

	cfg := config.Load()

	storage.ConnectDatabase(cfg.DB)

	if err := storage.DB.AutoMigrate(
		&models.User{}, &models.Subject{}, &models.QueueEntry{},
		&models.Poll{}, &models.Choice{}, &models.Vote{}, &models.Attendance{},
	); err != nil {
		log.Fatal("Ошибка при миграции... ", err.Error())
	}

	storage.InitRedis(cfg.Redis)

	ledger := queue.NewLedger(storage.DB, cfg.Queue)

	tasks.InitScheduler(ledger, cfg.Queue.EntryTTL)

	go ws.HubInstance.Run()

	tokens := auth.NewTokenManager(cfg.JWT)
	authHandler := handlers.NewAuthHandler(tokens)
	userHandler := handlers.NewUserHandler()
	subjectHandler := handlers.NewSubjectHandler(ledger, cfg.Queue)
	queueHandler := handlers.NewQueueHandler(ledger, ws.HubInstance)
	pollHandler := handlers.NewPollHandler()
	attendanceHandler := handlers.NewAttendanceHandler()

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.RefreshToken)
	}

	api := r.Group("/api", auth.Middleware(tokens))
	{
		users := api.Group("/users")
		{
			users.POST("/create", auth.RequireRole(models.RoleAdmin), userHandler.Create)
			users.GET("", userHandler.List)
			users.GET("/me", userHandler.Me)
			users.GET("/:id", userHandler.Get)
		}

		subjects := api.Group("/subjects")
		{
			subjects.GET("", subjectHandler.List)
			subjects.POST("", auth.RequireRole(models.RoleAdmin), subjectHandler.Create)
			subjects.POST("/access", auth.RequireRole(models.RoleModerator), subjectHandler.ModifyAccess)
			subjects.GET("/:slug", subjectHandler.Get)
			subjects.DELETE("/:slug", auth.RequireRole(models.RoleAdmin), subjectHandler.Delete)
		}

		queues := api.Group("/queue")
		{
			queues.POST("", queueHandler.Join)
			queues.GET("", auth.RequireSubjectFilter(), queueHandler.List)
			queues.DELETE("/:slug", queueHandler.Leave)
			queues.GET("/:slug/ws", ws.QueueWebSocketHandler)
		}

		polls := api.Group("/polls")
		{
			polls.GET("", pollHandler.List)
			polls.POST("", auth.RequireRole(models.RoleModerator), pollHandler.Create)
			polls.POST("/vote", pollHandler.Vote)
			polls.GET("/:id", pollHandler.Get)
			polls.DELETE("/:id", auth.RequireRole(models.RoleModerator), pollHandler.Delete)
		}

		attendance := api.Group("/attendance")
		{
			attendance.GET("", auth.RequireSubjectFilter(), attendanceHandler.List)
			attendance.POST("", auth.RequireRole(models.RoleModerator), attendanceHandler.Create)
			attendance.PUT("/:id", auth.RequireRole(models.RoleModerator), attendanceHandler.Update)
			attendance.DELETE("/:id", auth.RequireRole(models.RoleModerator), attendanceHandler.Delete)
		}
	}

	if err := r.Run(":8080"); err != nil {
		log.Fatal("Ошибка запуска сервера...", err.Error())
	}
}
