package routes

import (
	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/controllers"
	_ "github.com/tbmobb813/KidMap-sub000/docs"
	"github.com/tbmobb813/KidMap-sub000/middleware"
	"github.com/tbmobb813/KidMap-sub000/services/container"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// SetupRouter 初始化并返回配置好的路由
func SetupRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// 初始化 Gin
	r := gin.Default()

	// 添加 CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
	// 设置正确的Content-Type，确保UTF-8编码
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		c.Next()
	})
	// 创建服务容器
	serviceContainer := container.NewServiceContainer(db, cfg, nil)
	// 初始化中间件
	middleware.InitAuthMiddleware(cfg)
	// 添加 Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 注册路由
	registerRoutes(r, serviceContainer)
	return r
}

// registerRoutes 配置所有API路由
func registerRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
) {
	// API 路由根路径
	api := r.Group("/api")
	// 注册公共路由
	registerPublicRoutes(api, container)
	// 注册需要认证的路由
	registerAuthenticatedRoutes(api, container)
}

// registerPublicRoutes 注册公共路由
func registerPublicRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	// 健康检查
	healthController := controllers.NewHealthCheckController()
	api.GET("/ping", healthController.Ping)

	// 认证路由
	api.POST("/auth/login", controllers.HandleJWTFunc(container, "login"))

	// 孩子设备侧路由，设备不持有家长JWT，按IP限流
	child := api.Group("/child")
	child.Use(middleware.IPRateLimiter(10, 20))
	child.POST("/ring/stop", controllers.HandleResponseFunc(container, "stop_ring"))
	child.POST("/pings/:id/respond", controllers.HandleResponseFunc(container, "respond"))
	child.POST("/heartbeat", controllers.HandleResponseFunc(container, "heartbeat"))
	child.GET("/status", controllers.HandleResponseFunc(container, "status"))
}

// registerAuthenticatedRoutes 注册需要认证的路由
func registerAuthenticatedRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	// 添加认证中间件
	auth := api.Group("/")
	auth.Use(middleware.AuthenticateGuardian())

	// 指令路由
	auth.Group("/pings").POST("", controllers.HandlePingFunc(container, "send"))
	auth.Group("/pings").POST("/ring", controllers.HandlePingFunc(container, "ring"))
	auth.Group("/pings").POST("/locate", controllers.HandlePingFunc(container, "locate"))
	auth.Group("/pings").POST("/check-in", controllers.HandlePingFunc(container, "check_in"))
	auth.Group("/pings").POST("/emergency", controllers.HandlePingFunc(container, "emergency"))
	auth.Group("/pings").GET("/pending", controllers.HandlePingFunc(container, "pending"))
	auth.Group("/pings").GET("/history", controllers.HandlePingFunc(container, "history"))
	auth.Group("/pings").GET("/ring/session", controllers.HandlePingFunc(container, "ring_session"))
	auth.Group("/pings").GET("/last-location", controllers.HandlePingFunc(container, "last_location"))
	auth.Group("/pings").GET("/:id", controllers.HandlePingFunc(container, "get"))

	// 指令审计记录路由
	auth.Group("/ping-records").GET("", controllers.HandlePingFunc(container, "records"))
	auth.Group("/ping-records").GET("/statistics", controllers.HandlePingFunc(container, "statistics"))
}
