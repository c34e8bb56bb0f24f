package services

import (
	"fmt"
	"sync"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"

	"gorm.io/gorm"
)

// 孩子设备回传的响应动作
const (
	ChildActionStopRing    = "stop_ring"
	ChildActionRespond     = "respond"
	ChildActionCheckIn     = "check_in"
	ChildActionEmergency   = "emergency"
	ChildActionAcknowledge = "acknowledge"
)

// InterfacePingDispatcherService 定义指令调度服务接口，是整个生命周期管理器的公共入口
type InterfacePingDispatcherService interface {
	SendPing(pingType models.PingType, message string) (string, error)
	RingChild(message string) (string, error)
	RequestLocation(message string) (string, error)
	RequestCheckIn(message string) (string, error)
	SendEmergencyPing(message string) (string, error)

	Pending() []models.PingRequest
	History(limit int) []models.PingRequest
	GetPing(id string) (models.PingRequest, bool)
	Acknowledge(id string, response models.PingResponse) error

	HandleChildAction(pingID, action string, payload map[string]any) error
}

// PingDispatcherService 创建指令、下发通知并分派给对应的编排服务
// send的调用方同步拿到指令ID，所有副作用相对调用方都是fire-and-forget
type PingDispatcherService struct {
	DB     *gorm.DB // 可为nil，审计落库为尽力而为
	Store  *models.PingStore
	Bridge InterfaceNotificationBridge

	Ring      InterfaceRingOrchestratorService
	Locate    InterfaceLocateOrchestratorService
	CheckIn   InterfaceCheckInOrchestratorService
	Emergency InterfaceEmergencyOrchestratorService

	recordMutex sync.Mutex // 用于保护审计记录写入
}

// NewPingDispatcherService 创建一个新的指令调度服务
func NewPingDispatcherService(
	db *gorm.DB,
	store *models.PingStore,
	bridge InterfaceNotificationBridge,
	ring InterfaceRingOrchestratorService,
	locate InterfaceLocateOrchestratorService,
	checkIn InterfaceCheckInOrchestratorService,
	emergency InterfaceEmergencyOrchestratorService,
) *PingDispatcherService {
	service := &PingDispatcherService{
		DB:        db,
		Store:     store,
		Bridge:    bridge,
		Ring:      ring,
		Locate:    locate,
		CheckIn:   checkIn,
		Emergency: emergency,
	}

	// 桥接层收到孩子设备的MQTT响应时，回流到统一的动作处理入口
	bridge.SetResponseHandler(func(pingID, action string, payload map[string]any) {
		if err := service.HandleChildAction(pingID, action, payload); err != nil {
			config.Warning("[PING] 处理桥接响应失败: ping_id=%s, action=%s, err=%v", pingID, action, err)
		}
	})

	return service
}

// SendPing 发起一条指令，紧急程度由类型推导
// 返回的ID在任何副作用完成之前就对调用方可见；通知下发和编排失败都不会让本方法报错
func (s *PingDispatcherService) SendPing(pingType models.PingType, message string) (string, error) {
	switch pingType {
	case models.PingTypeRing, models.PingTypeLocate, models.PingTypeCheckIn, models.PingTypeEmergency:
	default:
		return "", fmt.Errorf("未知的指令类型: %s", pingType)
	}

	req := s.Store.Create(pingType, message, models.UrgencyForType(pingType))
	config.Info("[PING] 创建指令: id=%s, type=%s, urgency=%s, expires_at=%v",
		req.ID, req.Type, req.Urgency, req.ExpiresAt)

	// 审计落库，尽力而为
	s.createPingRecord(req)

	// 通知下发，失败只记录，绝不中断调用
	if err := s.Bridge.SchedulePing(req); err != nil {
		config.Warning("[PING] 通知下发失败: ping_id=%s, err=%v", req.ID, err)
	}

	// 分派给对应的编排服务（同进程投递模拟），panic和错误都被隔离
	go s.dispatch(req)

	return req.ID, nil
}

// RingChild 发起响铃指令
func (s *PingDispatcherService) RingChild(message string) (string, error) {
	return s.SendPing(models.PingTypeRing, message)
}

// RequestLocation 发起定位指令
func (s *PingDispatcherService) RequestLocation(message string) (string, error) {
	return s.SendPing(models.PingTypeLocate, message)
}

// RequestCheckIn 发起签到指令
func (s *PingDispatcherService) RequestCheckIn(message string) (string, error) {
	return s.SendPing(models.PingTypeCheckIn, message)
}

// SendEmergencyPing 发起紧急指令
func (s *PingDispatcherService) SendEmergencyPing(message string) (string, error) {
	return s.SendPing(models.PingTypeEmergency, message)
}

// dispatch 把指令交给对应类型的编排服务处理
func (s *PingDispatcherService) dispatch(req *models.PingRequest) {
	defer func() {
		if r := recover(); r != nil {
			// 编排失败不影响指令本身，它仍留在pending列表中等待响应或过期
			config.Error("[PING] 处理%s指令panic: ping_id=%s, error=%v", req.Type, req.ID, r)
		}
	}()

	switch req.Type {
	case models.PingTypeRing:
		s.Ring.StartRing(req)
	case models.PingTypeLocate:
		s.Locate.Handle(req)
		// locate成功路径会直接确认指令，同步审计记录
		s.syncPingRecord(req.ID)
	case models.PingTypeCheckIn:
		s.CheckIn.Handle(req)
	case models.PingTypeEmergency:
		s.Emergency.Handle(req)
	}
}

// Pending 返回所有未确认且未过期的指令
func (s *PingDispatcherService) Pending() []models.PingRequest {
	return s.Store.Pending()
}

// History 返回最近的指令历史
func (s *PingDispatcherService) History(limit int) []models.PingRequest {
	return s.Store.History(limit)
}

// GetPing 查询单条指令
func (s *PingDispatcherService) GetPing(id string) (models.PingRequest, bool) {
	return s.Store.Get(id)
}

// Acknowledge 手动确认一条指令（UI驱动的响应流程使用）
func (s *PingDispatcherService) Acknowledge(id string, response models.PingResponse) error {
	if err := s.Store.Acknowledge(id, response); err != nil {
		return err
	}
	s.syncPingRecord(id)
	return nil
}

// HandleChildAction 统一处理孩子设备的响应动作
// 响铃弹窗的"Respond"会按指令类型重新进入对应的编排服务
func (s *PingDispatcherService) HandleChildAction(pingID, action string, payload map[string]any) error {
	req, exists := s.Store.Get(pingID)
	if !exists {
		return models.ErrPingNotFound
	}

	var err error
	switch action {
	case ChildActionStopRing:
		// 孩子只是停止响铃，不算响应，指令留在pending中直到过期
		s.Ring.StopRing()
		return nil

	case ChildActionRespond:
		s.Ring.StopRing()
		err = s.respondByType(req, payload)

	case ChildActionCheckIn:
		err = s.CheckIn.Respond(pingID,
			stringField(payload, "option"),
			stringField(payload, "message"),
			boolField(payload, "urgent"))

	case ChildActionEmergency:
		err = s.Emergency.Respond(pingID, stringField(payload, "status"))

	case ChildActionAcknowledge:
		err = s.Store.Acknowledge(pingID, models.PingResponse{
			Message: stringField(payload, "message"),
		})

	default:
		return fmt.Errorf("未知的响应动作: %s", action)
	}

	if err != nil {
		return err
	}
	s.syncPingRecord(pingID)
	return nil
}

// respondByType 按指令类型处理响铃弹窗的"Respond"动作
func (s *PingDispatcherService) respondByType(req models.PingRequest, payload map[string]any) error {
	switch req.Type {
	case models.PingTypeEmergency:
		status := stringField(payload, "status")
		if status == "" {
			status = EmergencyActionNeedHelp
		}
		return s.Emergency.Respond(req.ID, status)

	case models.PingTypeCheckIn:
		return s.CheckIn.Respond(req.ID,
			stringField(payload, "option"),
			stringField(payload, "message"),
			boolField(payload, "urgent"))

	default:
		message := stringField(payload, "message")
		if message == "" {
			message = "Responded"
		}
		return s.Store.Acknowledge(req.ID, models.PingResponse{Message: message})
	}
}

// createPingRecord 写入审计记录，失败只记录日志
func (s *PingDispatcherService) createPingRecord(req *models.PingRequest) {
	if s.DB == nil {
		return
	}

	s.recordMutex.Lock()
	defer s.recordMutex.Unlock()

	record := models.PingRecord{
		PingID:    req.ID,
		Type:      string(req.Type),
		Urgency:   string(req.Urgency),
		Message:   req.Message,
		Status:    models.PingRecordStatusSent,
		Timestamp: req.Timestamp,
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.DB.Create(&record).Error; err != nil {
		config.Warning("[PING] 创建审计记录失败: ping_id=%s, err=%v", req.ID, err)
	}
}

// syncPingRecord 把内存中的确认状态同步到审计记录，失败只记录日志
func (s *PingDispatcherService) syncPingRecord(pingID string) {
	if s.DB == nil {
		return
	}

	req, exists := s.Store.Get(pingID)
	if !exists || !req.Acknowledged {
		return
	}

	s.recordMutex.Lock()
	defer s.recordMutex.Unlock()

	updates := map[string]any{
		"status":          models.PingRecordStatusAcknowledged,
		"acknowledged_at": req.AcknowledgedAt,
	}
	if req.Response != nil {
		updates["response_message"] = req.Response.Message
		updates["needs_help"] = req.Response.NeedsHelp
	}

	if err := s.DB.Model(&models.PingRecord{}).
		Where("ping_id = ?", pingID).
		Updates(updates).Error; err != nil {
		config.Warning("[PING] 更新审计记录失败: ping_id=%s, err=%v", pingID, err)
	}
}

// stringField 从响应载荷中取字符串字段
func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

// boolField 从响应载荷中取布尔字段
func boolField(payload map[string]any, key string) bool {
	if payload == nil {
		return false
	}
	if v, ok := payload[key].(bool); ok {
		return v
	}
	return false
}
