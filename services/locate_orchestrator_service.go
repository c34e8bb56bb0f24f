package services

import (
	"time"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"
)

// InterfaceLocateOrchestratorService 定义定位编排服务接口
type InterfaceLocateOrchestratorService interface {
	// Handle 处理独立的locate指令: 成功时确认指令并附带位置
	Handle(req *models.PingRequest)
	// Capture 仅捕获位置（紧急指令的子步骤），不确认指令
	Capture(req *models.PingRequest) (*models.Location, error)
}

// LocateOrchestratorService 负责locate类型指令，以及紧急指令的位置捕获子步骤
type LocateOrchestratorService struct {
	Location InterfaceLocationProvider
	Speech   InterfaceSpeechProvider
	Bridge   InterfaceNotificationBridge
	Redis    InterfaceRedisService
	Store    *models.PingStore

	DeviceID string
}

// NewLocateOrchestratorService 创建一个新的定位编排服务
func NewLocateOrchestratorService(
	location InterfaceLocationProvider,
	speech InterfaceSpeechProvider,
	bridge InterfaceNotificationBridge,
	redisService InterfaceRedisService,
	store *models.PingStore,
	deviceID string,
) *LocateOrchestratorService {
	return &LocateOrchestratorService{
		Location: location,
		Speech:   speech,
		Bridge:   bridge,
		Redis:    redisService,
		Store:    store,
		DeviceID: deviceID,
	}
}

// Handle 处理locate指令
// 定位失败时不确认指令，让它留在pending列表直到自然过期
func (s *LocateOrchestratorService) Handle(req *models.PingRequest) {
	loc, err := s.Capture(req)
	if err != nil {
		// 向家长侧回报可读的错误描述，错误不再向上传播
		if pubErr := s.Bridge.PublishSystemMessage("locate_failed", "warning",
			"could not get current location", map[string]any{"ping_id": req.ID}); pubErr != nil {
			config.Warning("[LOCATE] 回报定位失败消息未送达: %v", pubErr)
		}
		return
	}

	if err := s.Store.Acknowledge(req.ID, models.PingResponse{Location: loc}); err != nil {
		config.Warning("[LOCATE] 确认指令失败: ping_id=%s, err=%v", req.ID, err)
		return
	}

	if err := s.Speech.Speak("Your location was shared with your parent."); err != nil {
		config.Warning("[LOCATE] 语音确认失败: %v", err)
	}
}

// Capture 获取一次高精度位置并尽量补全可读地址
// 地址解析失败是非致命的，只省略address字段
func (s *LocateOrchestratorService) Capture(req *models.PingRequest) (*models.Location, error) {
	loc, err := s.Location.GetCurrentPosition(true)
	if err != nil {
		config.Warning("[LOCATE] 无法获取当前位置: ping_id=%s, err=%v", req.ID, err)
		return nil, err
	}

	if addr, geoErr := s.Location.ReverseGeocode(loc); geoErr == nil {
		loc.Address = addr
	}

	// 缓存最近一次位置，供家长侧快速查询，失败只记录
	if s.Redis != nil {
		if cacheErr := s.Redis.CacheLastLocation(s.DeviceID, loc, 24*time.Hour); cacheErr != nil {
			config.Warning("[LOCATE] 缓存最近位置失败: %v", cacheErr)
		}
	}

	return loc, nil
}
