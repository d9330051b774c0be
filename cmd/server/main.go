package main

import (
	"log"

	"secure-vault/internal/api"
	"secure-vault/internal/directory"
	"secure-vault/internal/middleware"
	"secure-vault/internal/repository"
	"secure-vault/internal/service"
	"secure-vault/internal/storage"
	"secure-vault/pkg/config"
	"secure-vault/pkg/db"
	"secure-vault/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// 初始化配置
	if err := config.Init(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.InitLogger(config.GlobalConfig.Log.Level, config.GlobalConfig.Log.Production); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 初始化数据库连接
	if err := db.InitDB(config.GlobalConfig.Database.DSN); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 物理存储
	store, err := storage.New(config.GlobalConfig.Storage.Root, config.GlobalConfig.Storage.MaxFileSize)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// 目录服务(可选)
	var dir *directory.Client
	if config.GlobalConfig.LDAP.Enabled {
		dir = directory.NewClient(config.GlobalConfig.LDAP)
	}

	// 仓库与服务
	userRepo := repository.NewUserRepository()
	fileRepo := repository.NewFileRepository()
	grantRepo := repository.NewGrantRepository()
	auditRepo := repository.NewAuditRepository()

	auditService := service.NewAuditService(auditRepo)
	permService := service.NewPermissionService(fileRepo, grantRepo)
	vaultService := service.NewVaultService(fileRepo, userRepo, permService, auditService, store)
	shareService := service.NewShareService(fileRepo, grantRepo, userRepo, permService, auditService)
	authService := service.NewAuthService(userRepo, dir, auditService, store)

	authHandler := api.NewAuthHandler(authService)
	fileHandler := api.NewFileHandler(vaultService)
	shareHandler := api.NewShareHandler(shareService)
	auditHandler := api.NewAuditHandler(auditService)

	// 创建Gin引擎
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	// 公开路由
	r.POST("/api/auth/login", authHandler.Login)
	if !config.GlobalConfig.LDAP.Enabled {
		r.POST("/api/auth/register", authHandler.Register)
	}

	// 受保护的路由
	protected := r.Group("/api", middleware.AuthMiddleware())
	{
		protected.GET("/files", fileHandler.List)
		protected.GET("/files/download", fileHandler.Download)
		protected.POST("/files/upload", fileHandler.Upload)
		protected.POST("/files/folder", fileHandler.CreateFolder)
		protected.PUT("/files/rename", fileHandler.Rename)
		protected.PUT("/files/move", fileHandler.Move)
		protected.PUT("/files/copy", fileHandler.Copy)
		protected.DELETE("/files", fileHandler.Delete)

		protected.POST("/shares", shareHandler.Create)
		protected.DELETE("/shares/:id", shareHandler.Delete)
		protected.GET("/shares/file", shareHandler.ListForFile)
		protected.GET("/shares/with-me", shareHandler.SharedWithMe)

		protected.GET("/audit", middleware.AdminOnly(), auditHandler.ListRecent)
	}

	// 启动服务器
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
