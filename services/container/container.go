package container

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"
	"github.com/tbmobb813/KidMap-sub000/services"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	db     *gorm.DB
	config *config.Config
	redis  *redis.Client

	// 基础服务
	jwtService services.InterfaceJWTService

	// 数据存储服务
	redisService services.InterfaceRedisService
	pingStore    *models.PingStore

	// 设备能力提供者（模拟实现，真实设备侧由原生层接入）
	vibrationProvider services.InterfaceVibrationProvider
	audioProvider     services.InterfaceAudioProvider
	speechProvider    services.InterfaceSpeechProvider
	locationProvider  services.InterfaceLocationProvider

	// 通知桥接服务
	notificationBridge services.InterfaceNotificationBridge

	// 指令编排服务
	ringOrchestrator      services.InterfaceRingOrchestratorService
	locateOrchestrator    services.InterfaceLocateOrchestratorService
	checkInOrchestrator   services.InterfaceCheckInOrchestratorService
	emergencyOrchestrator services.InterfaceEmergencyOrchestratorService

	// 指令调度服务
	pingDispatcher services.InterfacePingDispatcherService

	// 业务服务
	pingRecordService services.InterfacePingRecordService
	guardianService   services.InterfaceGuardianService

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器
func NewServiceContainer(db *gorm.DB, cfg *config.Config, redisClient *redis.Client) *ServiceContainer {
	if cfg == nil {
		panic("配置为空")
	}

	// 测试Redis连接
	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Redis连接测试失败: %v，将不使用Redis缓存", err)
		}
	}

	container := &ServiceContainer{
		db:     db,
		config: cfg,
		redis:  redisClient,
	}
	container.initializeServices()
	return container
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 初始化基础服务
	c.jwtService = services.NewJWTService(c.config)
	c.redisService = services.NewRedisService(c.config)

	// 初始化指令内存存储，进程内权威状态
	c.pingStore = models.NewPingStore()

	// 初始化设备能力提供者
	c.vibrationProvider = services.NewSimulatedVibrationProvider()
	c.audioProvider = services.NewSimulatedAudioProvider(c.config)
	c.speechProvider = services.NewSimulatedSpeechProvider(c.config)
	c.locationProvider = services.NewSimulatedLocationProvider(c.config)

	// 初始化通知桥接服务，未配置MQTT时退化为本地日志桥接
	if c.config.MQTTBrokerURL == "" {
		c.notificationBridge = services.NewLocalNotificationBridge()
	} else {
		c.notificationBridge = services.NewMQTTNotificationBridge(c.config)
	}

	// 连接通知桥接服务，失败不阻塞启动
	if err := c.notificationBridge.Connect(); err != nil {
		log.Printf("通知桥接服务连接失败: %v", err)
	}

	// 初始化指令编排服务
	c.ringOrchestrator = services.NewRingOrchestratorService(
		c.vibrationProvider, c.audioProvider, c.speechProvider, c.notificationBridge)
	c.locateOrchestrator = services.NewLocateOrchestratorService(
		c.locationProvider, c.speechProvider, c.notificationBridge,
		c.redisService, c.pingStore, c.config.ChildDeviceID)
	c.checkInOrchestrator = services.NewCheckInOrchestratorService(
		c.speechProvider, c.notificationBridge, c.pingStore)
	c.emergencyOrchestrator = services.NewEmergencyOrchestratorService(
		c.ringOrchestrator, c.locateOrchestrator, c.speechProvider,
		c.notificationBridge, c.pingStore)

	// 初始化指令调度服务
	c.pingDispatcher = services.NewPingDispatcherService(
		c.db, c.pingStore, c.notificationBridge,
		c.ringOrchestrator, c.locateOrchestrator,
		c.checkInOrchestrator, c.emergencyOrchestrator)

	// 初始化业务服务
	c.pingRecordService = services.NewPingRecordService(c.db, c.config)
	c.guardianService = services.NewGuardianService(c.db, c.config)
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.db
	case "jwt":
		return c.jwtService
	case "redis":
		return c.redisService
	case "ping_store":
		return c.pingStore
	case "bridge":
		return c.notificationBridge
	case "ring":
		return c.ringOrchestrator
	case "locate":
		return c.locateOrchestrator
	case "check_in":
		return c.checkInOrchestrator
	case "emergency":
		return c.emergencyOrchestrator
	case "ping_dispatcher":
		return c.pingDispatcher
	case "ping_record":
		return c.pingRecordService
	case "guardian":
		return c.guardianService
	default:
		return nil
	}
}

// GetDB 获取数据库连接
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// GetPingDispatcherService 获取指令调度服务
func (c *ServiceContainer) GetPingDispatcherService() services.InterfacePingDispatcherService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pingDispatcher
}

// GetRingOrchestratorService 获取响铃编排服务
func (c *ServiceContainer) GetRingOrchestratorService() services.InterfaceRingOrchestratorService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ringOrchestrator
}

// GetRedisService 获取Redis缓存服务
func (c *ServiceContainer) GetRedisService() services.InterfaceRedisService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.redisService
}

// GetJWTService 获取JWT服务
func (c *ServiceContainer) GetJWTService() services.InterfaceJWTService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jwtService
}

// GetPingRecordService 获取指令审计记录服务
func (c *ServiceContainer) GetPingRecordService() services.InterfacePingRecordService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pingRecordService
}

// GetGuardianService 获取家长账户服务
func (c *ServiceContainer) GetGuardianService() services.InterfaceGuardianService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.guardianService
}
