package services

import (
	"testing"
	"time"

	"github.com/tbmobb813/KidMap-sub000/models"
)

func newTestRingService() (*RingOrchestratorService, *fakeVibration, *fakeAudio, *fakeSpeech, *fakeBridge) {
	vibration := &fakeVibration{}
	audio := newFakeAudio()
	speech := &fakeSpeech{}
	bridge := &fakeBridge{}
	svc := NewRingOrchestratorService(vibration, audio, speech, bridge)
	return svc, vibration, audio, speech, bridge
}

func ringRequest(urgency models.PingUrgency) *models.PingRequest {
	store := models.NewPingStore()
	return store.Create(models.PingTypeRing, "where are you", urgency)
}

// TestStartRingSideEffects 验证响铃启动振动、音频、语音和弹窗
func TestStartRingSideEffects(t *testing.T) {
	svc, vibration, audio, speech, bridge := newTestRingService()
	req := ringRequest(models.UrgencyMedium)

	svc.StartRing(req)
	defer svc.StopRing()

	if !svc.IsRinging() {
		t.Fatal("StartRing后IsRinging为false")
	}

	waitFor(t, "振动启动", vibration.isVibrating)
	waitFor(t, "音频启动", func() bool { return audio.activeCount() == 1 })
	waitFor(t, "语音播报", func() bool { return speech.spokenCount() == 1 })
	waitFor(t, "弹窗下发", func() bool {
		actions := bridge.controlActions()
		return len(actions) == 1 && actions[0] == "ring"
	})

	session, active := svc.ActiveSession()
	if !active || session.PingID != req.ID {
		t.Errorf("会话快照错误: active=%v, ping_id=%s", active, session.PingID)
	}
}

// TestStartRingExclusive 验证新响铃会先完整停止旧会话，绝不并发响铃
func TestStartRingExclusive(t *testing.T) {
	svc, _, audio, _, _ := newTestRingService()

	first := ringRequest(models.UrgencyMedium)
	svc.StartRing(first)
	waitFor(t, "首个音频启动", func() bool { return audio.activeCount() == 1 })

	second := ringRequest(models.UrgencyMedium)
	svc.StartRing(second)
	defer svc.StopRing()

	session, active := svc.ActiveSession()
	if !active || session.PingID != second.ID {
		t.Fatalf("抢占后的会话指向 %s, 期望 %s", session.PingID, second.ID)
	}

	// 任何时刻最多只有一路音频在播放
	waitFor(t, "旧音频被停止", func() bool { return audio.activeCount() == 1 })
}

// TestStopRingTeardown 验证停止时定时器、振动、音频被一并清理，且重复停止安全
func TestStopRingTeardown(t *testing.T) {
	svc, vibration, audio, _, _ := newTestRingService()
	req := ringRequest(models.UrgencyMedium)

	svc.StartRing(req)
	waitFor(t, "音频启动", func() bool { return audio.activeCount() == 1 })
	waitFor(t, "振动启动", vibration.isVibrating)

	svc.StopRing()

	if svc.IsRinging() {
		t.Error("StopRing后仍在响铃")
	}
	if vibration.isVibrating() {
		t.Error("StopRing后振动未取消")
	}
	if audio.activeCount() != 0 {
		t.Error("StopRing后音频未停止")
	}

	// 空闲时停止是安全的空操作
	svc.StopRing()
}

// TestRingAutoTimeout 验证会话到时自动停止
func TestRingAutoTimeout(t *testing.T) {
	svc, _, _, _, _ := newTestRingService()
	svc.ringTimeout = 30 * time.Millisecond

	svc.StartRing(ringRequest(models.UrgencyMedium))

	waitFor(t, "自动超时停止", func() bool { return !svc.IsRinging() })
}

// TestEmergencyRingUsesExtendedTimeout 验证紧急响铃使用更长的超时
func TestEmergencyRingUsesExtendedTimeout(t *testing.T) {
	svc, _, _, _, _ := newTestRingService()
	svc.ringTimeout = 20 * time.Millisecond
	svc.emergencyRingTimeout = 150 * time.Millisecond

	svc.StartRing(ringRequest(models.UrgencyEmergency))
	defer svc.StopRing()

	// 普通超时过后紧急会话仍在响铃
	time.Sleep(60 * time.Millisecond)
	if !svc.IsRinging() {
		t.Fatal("紧急响铃在普通超时后就停止了")
	}

	waitFor(t, "紧急超时停止", func() bool { return !svc.IsRinging() })
}

// TestRingAudioFailureDoesNotBlock 验证音频不可用时振动和弹窗照常进行
func TestRingAudioFailureDoesNotBlock(t *testing.T) {
	svc, vibration, audio, _, bridge := newTestRingService()
	audio.playErr = ErrAudioNotLoaded

	svc.StartRing(ringRequest(models.UrgencyMedium))
	defer svc.StopRing()

	waitFor(t, "振动启动", vibration.isVibrating)
	waitFor(t, "弹窗下发", func() bool { return len(bridge.controlActions()) == 1 })

	if !svc.IsRinging() {
		t.Error("音频失败导致会话停止")
	}
}

// TestVibrationCanceledWhenSessionStopsFirst 验证振动启动晚于停止时立即被收回，不留下孤儿振动
func TestVibrationCanceledWhenSessionStopsFirst(t *testing.T) {
	vibration := &fakeVibration{gate: make(chan struct{})}
	audio := newFakeAudio()
	svc := NewRingOrchestratorService(vibration, audio, &fakeSpeech{}, &fakeBridge{})

	svc.StartRing(ringRequest(models.UrgencyMedium))
	svc.StopRing()

	// 放行被延迟的振动启动，此时会话已经空闲
	close(vibration.gate)

	waitFor(t, "迟到的振动已启动", func() bool { return vibration.lastPattern() != nil })
	waitFor(t, "迟到的振动被取消", func() bool { return !vibration.isVibrating() })
	if svc.IsRinging() {
		t.Error("会话不应重新进入响铃状态")
	}
}

// TestVibrationRewrittenWhenSessionPreempted 验证旧会话迟到的振动被改写为新会话的节奏
func TestVibrationRewrittenWhenSessionPreempted(t *testing.T) {
	vibration := &fakeVibration{gate: make(chan struct{})}
	audio := newFakeAudio()
	svc := NewRingOrchestratorService(vibration, audio, &fakeSpeech{}, &fakeBridge{})

	svc.StartRing(ringRequest(models.UrgencyMedium))
	svc.StartRing(ringRequest(models.UrgencyEmergency))
	defer svc.StopRing()

	// 两个被延迟的振动启动依次放行
	close(vibration.gate)

	waitFor(t, "振动按当前会话的节奏进行", func() bool {
		pattern := vibration.lastPattern()
		return vibration.isVibrating() && len(pattern) > 0 && pattern[0] == time.Second
	})
}

// TestVibrationPatternByUrgency 验证紧急和普通响铃使用不同的振动节奏
func TestVibrationPatternByUrgency(t *testing.T) {
	emergency := vibrationPattern(models.UrgencyEmergency)
	normal := vibrationPattern(models.UrgencyMedium)

	if emergency[0] != time.Second {
		t.Errorf("紧急振动首个脉冲 = %v, 期望 1s", emergency[0])
	}
	if normal[0] != 200*time.Millisecond {
		t.Errorf("普通振动首个脉冲 = %v, 期望 200ms", normal[0])
	}
}
