package services

import (
	"errors"
	"testing"

	"github.com/tbmobb813/KidMap-sub000/models"
)

func newTestDispatcher(location *fakeLocation, bridge *fakeBridge) (*PingDispatcherService, *models.PingStore, *RingOrchestratorService) {
	store := models.NewPingStore()
	speech := &fakeSpeech{}
	vibration := &fakeVibration{}
	audio := newFakeAudio()

	ring := NewRingOrchestratorService(vibration, audio, speech, bridge)
	locate := NewLocateOrchestratorService(location, speech, bridge, nil, store, "child-device-001")
	checkIn := NewCheckInOrchestratorService(speech, bridge, store)
	emergency := NewEmergencyOrchestratorService(ring, locate, speech, bridge, store)

	svc := NewPingDispatcherService(nil, store, bridge, ring, locate, checkIn, emergency)
	return svc, store, ring
}

// TestSendPingReturnsIDImmediately 验证发起指令同步返回ID并进入历史
func TestSendPingReturnsIDImmediately(t *testing.T) {
	svc, store, ring := newTestDispatcher(&fakeLocation{}, &fakeBridge{})
	defer ring.StopRing()

	id, err := svc.RingChild("come home")
	if err != nil {
		t.Fatalf("RingChild失败: %v", err)
	}
	if id == "" {
		t.Fatal("返回的指令ID为空")
	}

	req, exists := store.Get(id)
	if !exists {
		t.Fatal("指令未登记到存储")
	}
	if req.Type != models.PingTypeRing || req.Urgency != models.UrgencyMedium {
		t.Errorf("指令类型/紧急程度错误: %s/%s", req.Type, req.Urgency)
	}

	history := svc.History(0)
	if len(history) != 1 || history[0].ID != id {
		t.Error("指令未出现在历史中")
	}
}

// TestSendPingUnknownType 验证未知指令类型被拒绝
func TestSendPingUnknownType(t *testing.T) {
	svc, _, _ := newTestDispatcher(&fakeLocation{}, &fakeBridge{})

	if _, err := svc.SendPing(models.PingType("poke"), ""); err == nil {
		t.Fatal("未知指令类型应报错")
	}
}

// TestSendPingBridgeFailureIsolated 验证通知下发失败不影响指令创建
func TestSendPingBridgeFailureIsolated(t *testing.T) {
	bridge := &fakeBridge{scheduleErr: errors.New("bridge down")}
	svc, store, ring := newTestDispatcher(&fakeLocation{}, bridge)
	defer ring.StopRing()

	id, err := svc.RingChild("")
	if err != nil {
		t.Fatalf("通知失败不应让SendPing报错: %v", err)
	}
	if _, exists := store.Get(id); !exists {
		t.Error("通知失败时指令仍应被登记")
	}
}

// TestDispatchLocate 验证locate指令经调度后被定位编排服务确认
func TestDispatchLocate(t *testing.T) {
	svc, store, _ := newTestDispatcher(&fakeLocation{address: "school"}, &fakeBridge{})

	id, err := svc.RequestLocation("")
	if err != nil {
		t.Fatalf("RequestLocation失败: %v", err)
	}

	waitFor(t, "locate指令确认", func() bool {
		req, _ := store.Get(id)
		return req.Acknowledged
	})

	req, _ := store.Get(id)
	if req.Response == nil || req.Response.Location == nil {
		t.Error("locate确认响应中没有位置")
	}
}

// TestDispatchEmergency 验证emergency指令触发响铃
func TestDispatchEmergency(t *testing.T) {
	svc, _, ring := newTestDispatcher(&fakeLocation{}, &fakeBridge{})
	defer ring.StopRing()

	if _, err := svc.SendEmergencyPing("help"); err != nil {
		t.Fatalf("SendEmergencyPing失败: %v", err)
	}

	waitFor(t, "紧急响铃启动", ring.IsRinging)
}

// TestHandleChildActionStopRingLeavesPending 验证停止响铃不算响应，指令留在pending中
func TestHandleChildActionStopRingLeavesPending(t *testing.T) {
	svc, store, ring := newTestDispatcher(&fakeLocation{}, &fakeBridge{})

	id, _ := svc.RingChild("")
	waitFor(t, "响铃启动", ring.IsRinging)

	if err := svc.HandleChildAction(id, ChildActionStopRing, nil); err != nil {
		t.Fatalf("HandleChildAction失败: %v", err)
	}

	if ring.IsRinging() {
		t.Error("停止响铃动作未生效")
	}

	req, _ := store.Get(id)
	if req.Acknowledged {
		t.Error("停止响铃不应确认指令")
	}
	if len(svc.Pending()) != 1 {
		t.Error("指令应留在pending列表中")
	}
}

// TestHandleChildActionRespondRing 验证响铃的Respond动作确认指令并停止响铃
func TestHandleChildActionRespondRing(t *testing.T) {
	svc, store, ring := newTestDispatcher(&fakeLocation{}, &fakeBridge{})

	id, _ := svc.RingChild("")
	waitFor(t, "响铃启动", ring.IsRinging)

	payload := map[string]any{"message": "On my way"}
	if err := svc.HandleChildAction(id, ChildActionRespond, payload); err != nil {
		t.Fatalf("HandleChildAction失败: %v", err)
	}

	if ring.IsRinging() {
		t.Error("响应后响铃未停止")
	}

	req, _ := store.Get(id)
	if !req.Acknowledged || req.Response.Message != "On my way" {
		t.Errorf("响应内容错误: %+v", req.Response)
	}
}

// TestHandleChildActionRespondEmergencyDefaultsToHelp 验证紧急指令的Respond默认按求助处理
func TestHandleChildActionRespondEmergencyDefaultsToHelp(t *testing.T) {
	svc, store, ring := newTestDispatcher(&fakeLocation{}, &fakeBridge{})

	id, _ := svc.SendEmergencyPing("")
	waitFor(t, "紧急响铃启动", ring.IsRinging)

	if err := svc.HandleChildAction(id, ChildActionRespond, nil); err != nil {
		t.Fatalf("HandleChildAction失败: %v", err)
	}

	req, _ := store.Get(id)
	if !req.Acknowledged {
		t.Fatal("紧急指令未确认")
	}
	if req.Response.Status != models.EmergencyStatusHelp || !req.Response.NeedsHelp {
		t.Errorf("默认紧急响应错误: %+v", req.Response)
	}
}

// TestHandleChildActionCheckIn 验证签到响应经调度入口写回
func TestHandleChildActionCheckIn(t *testing.T) {
	svc, store, _ := newTestDispatcher(&fakeLocation{}, &fakeBridge{})

	id, _ := svc.RequestCheckIn("")

	payload := map[string]any{"option": CheckInOptionNeedHelp}
	if err := svc.HandleChildAction(id, ChildActionCheckIn, payload); err != nil {
		t.Fatalf("HandleChildAction失败: %v", err)
	}

	req, _ := store.Get(id)
	if !req.Acknowledged || !req.Response.NeedsHelp {
		t.Errorf("签到求助响应错误: %+v", req.Response)
	}
}

// TestHandleChildActionUnknownPing 验证对不存在指令的响应报错
func TestHandleChildActionUnknownPing(t *testing.T) {
	svc, _, _ := newTestDispatcher(&fakeLocation{}, &fakeBridge{})

	err := svc.HandleChildAction("no-such-id", ChildActionRespond, nil)
	if !errors.Is(err, models.ErrPingNotFound) {
		t.Errorf("返回 %v, 期望 ErrPingNotFound", err)
	}
}

// TestBridgeResponseFlowsToDispatcher 验证桥接层收到的响应回流到调度入口
func TestBridgeResponseFlowsToDispatcher(t *testing.T) {
	bridge := &fakeBridge{}
	svc, store, ring := newTestDispatcher(&fakeLocation{}, bridge)
	defer ring.StopRing()

	id, _ := svc.RingChild("")

	bridge.mu.Lock()
	handler := bridge.handler
	bridge.mu.Unlock()
	if handler == nil {
		t.Fatal("调度服务未注册桥接响应处理器")
	}

	handler(id, ChildActionRespond, map[string]any{"message": "Got it"})

	req, _ := store.Get(id)
	if !req.Acknowledged || req.Response.Message != "Got it" {
		t.Errorf("桥接响应未生效: %+v", req.Response)
	}
}
