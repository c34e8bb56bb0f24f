package services

import (
	"fmt"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"
)

// 签到选项标识
const (
	CheckInOptionOK       = "im_ok"
	CheckInOptionSafe     = "im_safe"
	CheckInOptionNeedHelp = "need_help"
	CheckInOptionCustom   = "custom"
)

// CheckInOption 表示一个签到快捷选项
type CheckInOption struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	NeedsHelp bool   `json:"needs_help"`
}

// 固定的签到快捷选项集合
var checkInOptions = []CheckInOption{
	{Key: CheckInOptionOK, Label: "I'm OK", NeedsHelp: false},
	{Key: CheckInOptionSafe, Label: "I'm Safe", NeedsHelp: false},
	{Key: CheckInOptionNeedHelp, Label: "Need Help", NeedsHelp: true},
}

// InterfaceCheckInOrchestratorService 定义签到编排服务接口
type InterfaceCheckInOrchestratorService interface {
	Handle(req *models.PingRequest)
	Respond(pingID, option, freeText string, urgent bool) error
	Options() []CheckInOption
}

// CheckInOrchestratorService 负责check-in类型指令:
// 向孩子呈现固定快捷选项加自由文本，并把选择写回存储
type CheckInOrchestratorService struct {
	Speech InterfaceSpeechProvider
	Bridge InterfaceNotificationBridge
	Store  *models.PingStore
}

// NewCheckInOrchestratorService 创建一个新的签到编排服务
func NewCheckInOrchestratorService(
	speech InterfaceSpeechProvider,
	bridge InterfaceNotificationBridge,
	store *models.PingStore,
) *CheckInOrchestratorService {
	return &CheckInOrchestratorService{
		Speech: speech,
		Bridge: bridge,
		Store:  store,
	}
}

// Options 返回固定的签到快捷选项
func (s *CheckInOrchestratorService) Options() []CheckInOption {
	options := make([]CheckInOption, len(checkInOptions))
	copy(options, checkInOptions)
	return options
}

// Handle 向孩子设备下发签到弹窗并播报提醒
func (s *CheckInOrchestratorService) Handle(req *models.PingRequest) {
	choices := make([]string, 0, len(checkInOptions)+1)
	for _, opt := range checkInOptions {
		choices = append(choices, opt.Key)
	}
	choices = append(choices, CheckInOptionCustom)

	ctrl := ChildControlMessage{
		Action:  "check_in",
		PingID:  req.ID,
		Urgency: string(req.Urgency),
		Prompt:  req.Message,
		Choices: choices,
	}
	if err := s.Bridge.PublishChildControl(ctrl); err != nil {
		config.Warning("[CHECKIN] 下发签到弹窗失败: %v", err)
	}

	if err := s.Speech.Speak("Your parent wants you to check in."); err != nil {
		config.Warning("[CHECKIN] 语音提醒失败: %v", err)
	}
}

// Respond 记录孩子的签到选择
// needsHelp只在选择"Need Help"或自由文本被标记为紧急时为true
func (s *CheckInOrchestratorService) Respond(pingID, option, freeText string, urgent bool) error {
	var message string
	var needsHelp bool

	switch option {
	case CheckInOptionOK:
		message = "I'm OK"
	case CheckInOptionSafe:
		message = "I'm Safe"
	case CheckInOptionNeedHelp:
		message = "I need help"
		needsHelp = true
	case CheckInOptionCustom:
		message = freeText
		needsHelp = urgent
	default:
		return fmt.Errorf("未知的签到选项: %s", option)
	}

	if err := s.Store.Acknowledge(pingID, models.PingResponse{
		Message:   message,
		NeedsHelp: needsHelp,
	}); err != nil {
		return err
	}

	// 按响应内容播报不同的确认语
	confirmation := "Thanks! Your parent has been notified."
	if needsHelp {
		confirmation = "Help is on the way. Your parent has been alerted."
	}
	if err := s.Speech.Speak(confirmation); err != nil {
		config.Warning("[CHECKIN] 语音确认失败: %v", err)
	}

	return nil
}
