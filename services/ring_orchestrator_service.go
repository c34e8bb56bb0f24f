package services

import (
	"sync"
	"time"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"
)

// 响铃会话控制动作
const (
	RingActionStopRing = "stop_ring"
	RingActionRespond  = "respond"
)

// 响铃自动停止超时
const (
	defaultRingTimeout          = 30 * time.Second
	defaultEmergencyRingTimeout = 60 * time.Second
)

// RingSession 表示一次独占的响铃会话
type RingSession struct {
	PingID    string             `json:"ping_id"`
	Urgency   models.PingUrgency `json:"urgency"`
	StartedAt time.Time          `json:"started_at"`

	timer       *time.Timer // 自动停止定时器，每个会话只有一个
	audioHandle int32
	audioActive bool
}

// InterfaceRingOrchestratorService 定义响铃编排服务接口
type InterfaceRingOrchestratorService interface {
	StartRing(req *models.PingRequest)
	StopRing()
	IsRinging() bool
	ActiveSession() (RingSession, bool)
}

// RingOrchestratorService 负责ring类型指令（以及紧急指令的响铃部分）
// 全进程同一时间最多存在一个响铃会话，会话状态由本服务的互斥锁独占管理
type RingOrchestratorService struct {
	Vibration InterfaceVibrationProvider
	Audio     InterfaceAudioProvider
	Speech    InterfaceSpeechProvider
	Bridge    InterfaceNotificationBridge

	ringTimeout          time.Duration
	emergencyRingTimeout time.Duration

	mu      sync.Mutex
	session *RingSession // nil表示空闲
}

// NewRingOrchestratorService 创建一个新的响铃编排服务
func NewRingOrchestratorService(
	vibration InterfaceVibrationProvider,
	audio InterfaceAudioProvider,
	speech InterfaceSpeechProvider,
	bridge InterfaceNotificationBridge,
) *RingOrchestratorService {
	return &RingOrchestratorService{
		Vibration:            vibration,
		Audio:                audio,
		Speech:               speech,
		Bridge:               bridge,
		ringTimeout:          defaultRingTimeout,
		emergencyRingTimeout: defaultEmergencyRingTimeout,
	}
}

// StartRing 开始一次响铃会话
// 如果已有会话在响铃，先完整执行一次停止再开始新会话，绝不并发响铃
func (s *RingOrchestratorService) StartRing(req *models.PingRequest) {
	s.mu.Lock()
	if s.session != nil {
		s.teardownLocked("preempted")
	}

	session := &RingSession{
		PingID:    req.ID,
		Urgency:   req.Urgency,
		StartedAt: time.Now(),
	}
	s.session = session

	// 武装自动停止定时器: 紧急60秒，其余30秒
	timeout := s.ringTimeout
	if req.Urgency == models.UrgencyEmergency {
		timeout = s.emergencyRingTimeout
	}
	session.timer = time.AfterFunc(timeout, func() {
		s.stopRingWithReason("auto_timeout")
	})
	s.mu.Unlock()

	config.Info("[RING] 开始响铃会话: ping_id=%s, urgency=%s, timeout=%v", req.ID, req.Urgency, timeout)

	// 以下副作用并发执行，互不等待，任何一个失败都不影响其他
	go s.speakAlert(req)
	go s.startVibration(session)
	go s.startAudio(session)
	go s.presentChoices(req)
}

// StopRing 停止当前响铃会话，空闲时调用是安全的空操作
func (s *RingOrchestratorService) StopRing() {
	s.stopRingWithReason("stopped")
}

// stopRingWithReason 带原因地停止响铃
func (s *RingOrchestratorService) stopRingWithReason(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return
	}
	s.teardownLocked(reason)
}

// teardownLocked 原子地清理会话资源: 取消振动、停止音频、清除定时器
// 三者必须一起发生，无论停止是由用户、响应还是超时触发
// 调用方必须持有s.mu
func (s *RingOrchestratorService) teardownLocked(reason string) {
	session := s.session

	if session.timer != nil {
		session.timer.Stop()
	}
	s.Vibration.Cancel()
	if session.audioActive {
		s.Audio.Stop(session.audioHandle)
		session.audioActive = false
	}

	s.session = nil
	config.Info("[RING] 响铃会话结束: ping_id=%s, reason=%s, duration=%v",
		session.PingID, reason, time.Since(session.StartedAt))
}

// IsRinging 返回当前是否处于响铃状态
func (s *RingOrchestratorService) IsRinging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// ActiveSession 返回当前响铃会话的快照
func (s *RingOrchestratorService) ActiveSession() (RingSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return RingSession{}, false
	}
	return *s.session, true
}

// speakAlert 播报语音提醒，失败只记录
func (s *RingOrchestratorService) speakAlert(req *models.PingRequest) {
	text := "Your parent is trying to reach you."
	if req.Urgency == models.UrgencyEmergency {
		text = "Emergency! Your parent needs to reach you right now."
	}
	if req.Message != "" {
		text = text + " " + req.Message
	}

	if err := s.Speech.Speak(text); err != nil {
		config.Warning("[RING] 语音播报失败: %v", err)
	}
}

// startVibration 按紧急程度选择节奏并开始循环振动
// 振动器是全局资源，启动完成后必须校验会话是否仍然有效:
// 会话已结束则取消振动，已被新会话抢占则改写为新会话的节奏
func (s *RingOrchestratorService) startVibration(session *RingSession) {
	if err := s.Vibration.Vibrate(vibrationPattern(session.Urgency), true); err != nil {
		config.Warning("[RING] 启动振动失败: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == session {
		return
	}
	if s.session == nil {
		// 会话在振动启动期间已被停止，立即收回
		s.Vibration.Cancel()
		return
	}
	if err := s.Vibration.Vibrate(vibrationPattern(s.session.Urgency), true); err != nil {
		config.Warning("[RING] 改写振动节奏失败: %v", err)
	}
}

// vibrationPattern 返回紧急程度对应的振动节奏
// 紧急指令使用长而慢的脉冲，其余使用短而快的脉冲
func vibrationPattern(urgency models.PingUrgency) []time.Duration {
	if urgency == models.UrgencyEmergency {
		return []time.Duration{
			time.Second, 500 * time.Millisecond,
			time.Second, 500 * time.Millisecond,
		}
	}
	return []time.Duration{
		200 * time.Millisecond, 100 * time.Millisecond,
		200 * time.Millisecond, 100 * time.Millisecond,
	}
}

// startAudio 尽力而为地开始循环播放警报音
func (s *RingOrchestratorService) startAudio(session *RingSession) {
	handle, err := s.Audio.PlayLoop()
	if err != nil {
		// 音频未装载是合法状态，不阻塞振动和弹窗
		config.Warning("[RING] 警报音频不可用: %v", err)
		return
	}

	s.mu.Lock()
	if s.session == session {
		session.audioHandle = handle
		session.audioActive = true
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	// 会话在音频启动期间已被停止，立即收回
	s.Audio.Stop(handle)
}

// presentChoices 向孩子设备下发两个选项的弹窗: 停止响铃 / 回应
func (s *RingOrchestratorService) presentChoices(req *models.PingRequest) {
	ctrl := ChildControlMessage{
		Action:  "ring",
		PingID:  req.ID,
		Urgency: string(req.Urgency),
		Prompt:  req.Message,
		Choices: []string{RingActionStopRing, RingActionRespond},
	}
	if err := s.Bridge.PublishChildControl(ctrl); err != nil {
		config.Warning("[RING] 下发响铃弹窗失败: %v", err)
	}
}
