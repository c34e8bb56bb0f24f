package services

import (
	"fmt"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"
)

// 紧急响应动作
const (
	EmergencyActionSafe       = "safe"
	EmergencyActionNeedHelp   = "need_help"
	EmergencyActionCallParent = "call_parent"
)

// InterfaceEmergencyOrchestratorService 定义紧急指令编排服务接口
type InterfaceEmergencyOrchestratorService interface {
	Handle(req *models.PingRequest)
	Respond(pingID, action string) error
}

// EmergencyOrchestratorService 负责emergency类型指令:
// 以紧急强度响铃，同时无条件立即发起位置捕获，两者互不等待
type EmergencyOrchestratorService struct {
	Ring   InterfaceRingOrchestratorService
	Locate InterfaceLocateOrchestratorService
	Speech InterfaceSpeechProvider
	Bridge InterfaceNotificationBridge
	Store  *models.PingStore
}

// NewEmergencyOrchestratorService 创建一个新的紧急指令编排服务
func NewEmergencyOrchestratorService(
	ring InterfaceRingOrchestratorService,
	locate InterfaceLocateOrchestratorService,
	speech InterfaceSpeechProvider,
	bridge InterfaceNotificationBridge,
	store *models.PingStore,
) *EmergencyOrchestratorService {
	return &EmergencyOrchestratorService{
		Ring:   ring,
		Locate: locate,
		Speech: speech,
		Bridge: bridge,
		Store:  store,
	}
}

// Handle 处理紧急指令
// 响铃展示和位置捕获并发启动，定位失败绝不能抑制或推迟警报展示
func (s *EmergencyOrchestratorService) Handle(req *models.PingRequest) {
	go func() {
		defer recoverEmergencyStep(req, "ring")
		s.Ring.StartRing(req)
	}()

	go func() {
		defer recoverEmergencyStep(req, "locate")
		// 紧急场景只捕获位置，指令的确认留给孩子的Safe/Need Help响应
		loc, err := s.Locate.Capture(req)
		if err != nil {
			return
		}
		if pubErr := s.Bridge.PublishSystemMessage("emergency_location", "info",
			"emergency location captured", map[string]any{
				"ping_id":  req.ID,
				"location": loc,
			}); pubErr != nil {
			config.Warning("[EMERGENCY] 回传紧急位置失败: %v", pubErr)
		}
	}()

	// 下发三向选择弹窗: Safe / Need Help / Call Parent
	ctrl := ChildControlMessage{
		Action:  "emergency",
		PingID:  req.ID,
		Urgency: string(req.Urgency),
		Prompt:  req.Message,
		Choices: []string{EmergencyActionSafe, EmergencyActionNeedHelp, EmergencyActionCallParent},
	}
	if err := s.Bridge.PublishChildControl(ctrl); err != nil {
		config.Warning("[EMERGENCY] 下发紧急弹窗失败: %v", err)
	}
}

// Respond 记录孩子对紧急指令的响应
// Safe和Need Help是可区分的终态; Call Parent只是电话交接的意图信号，不确认指令
func (s *EmergencyOrchestratorService) Respond(pingID, action string) error {
	// 孩子已经在回应，无论哪种动作都先停掉响铃
	s.Ring.StopRing()

	switch action {
	case EmergencyActionSafe:
		if err := s.Store.Acknowledge(pingID, models.PingResponse{
			Status: models.EmergencyStatusSafe,
		}); err != nil {
			return err
		}
		if err := s.Speech.Speak("Glad you're safe. Your parent has been notified."); err != nil {
			config.Warning("[EMERGENCY] 语音确认失败: %v", err)
		}
		return nil

	case EmergencyActionNeedHelp:
		if err := s.Store.Acknowledge(pingID, models.PingResponse{
			Status:    models.EmergencyStatusHelp,
			NeedsHelp: true,
		}); err != nil {
			return err
		}
		if err := s.Speech.Speak("Help is on the way. Stay where you are."); err != nil {
			config.Warning("[EMERGENCY] 语音确认失败: %v", err)
		}
		return nil

	case EmergencyActionCallParent:
		// 电话呼出由UI层接管，这里只向家长侧发出意图信号
		if err := s.Bridge.PublishSystemMessage("call_parent_intent", "info",
			"child requested a call", map[string]any{"ping_id": pingID}); err != nil {
			config.Warning("[EMERGENCY] 发送呼叫意图失败: %v", err)
		}
		return nil

	default:
		return fmt.Errorf("未知的紧急响应动作: %s", action)
	}
}

// recoverEmergencyStep 防止单个紧急子步骤panic拖垮整个处理流程
func recoverEmergencyStep(req *models.PingRequest, step string) {
	if r := recover(); r != nil {
		config.Error("[EMERGENCY] %s子步骤panic: ping_id=%s, error=%v", step, req.ID, r)
	}
}
