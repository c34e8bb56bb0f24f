package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tbmobb813/KidMap-sub000/models"
)

// 本文件提供各编排服务测试共用的假能力提供者和假桥接

// waitFor 轮询等待异步副作用完成
func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("等待超时: %s", desc)
}

// fakeVibration 记录振动调用的假振动提供者
// gate非空时Vibrate会阻塞到gate被关闭，用于模拟振动启动的延迟
type fakeVibration struct {
	mu         sync.Mutex
	vibrating  bool
	vibrateErr error
	patterns   [][]time.Duration
	gate       chan struct{}
}

func (f *fakeVibration) Vibrate(pattern []time.Duration, repeat bool) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.vibrateErr != nil {
		return f.vibrateErr
	}
	f.vibrating = true
	f.patterns = append(f.patterns, pattern)
	return nil
}

func (f *fakeVibration) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vibrating = false
}

func (f *fakeVibration) isVibrating() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vibrating
}

func (f *fakeVibration) lastPattern() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.patterns) == 0 {
		return nil
	}
	return f.patterns[len(f.patterns)-1]
}

// fakeAudio 记录播放句柄的假音频提供者
type fakeAudio struct {
	mu         sync.Mutex
	playErr    error
	nextHandle int32
	active     map[int32]bool
	plays      int
	stops      int
}

func newFakeAudio() *fakeAudio {
	return &fakeAudio{active: make(map[int32]bool)}
}

func (f *fakeAudio) PlayLoop() (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return 0, f.playErr
	}
	f.nextHandle++
	f.active[f.nextHandle] = true
	f.plays++
	return f.nextHandle, nil
}

func (f *fakeAudio) Stop(handle int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, handle)
	f.stops++
}

func (f *fakeAudio) activeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active)
}

// fakeSpeech 记录播报文本的假语音提供者
type fakeSpeech struct {
	mu       sync.Mutex
	speakErr error
	spoken   []string
}

func (f *fakeSpeech) Speak(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.speakErr != nil {
		return f.speakErr
	}
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeSpeech) spokenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spoken)
}

// fakeLocation 返回固定坐标的假定位提供者
type fakeLocation struct {
	mu          sync.Mutex
	positionErr error
	geocodeErr  error
	address     string
	calls       int
}

func (f *fakeLocation) GetCurrentPosition(highAccuracy bool) (*models.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.positionErr != nil {
		return nil, f.positionErr
	}
	return &models.Location{
		Latitude:  40.7128,
		Longitude: -74.0060,
		Accuracy:  10,
		Timestamp: time.Now(),
	}, nil
}

func (f *fakeLocation) ReverseGeocode(loc *models.Location) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.geocodeErr != nil {
		return "", f.geocodeErr
	}
	if f.address == "" {
		return "", errors.New("no address")
	}
	return f.address, nil
}

// fakeBridge 记录所有下发消息的假通知桥接
type fakeBridge struct {
	mu          sync.Mutex
	scheduleErr error
	publishErr  error
	scheduled   []string
	controls    []ChildControlMessage
	systemMsgs  []string
	handler     ChildResponseHandler
}

func (f *fakeBridge) Connect() error { return nil }

func (f *fakeBridge) Disconnect() {}

func (f *fakeBridge) SchedulePing(req *models.PingRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduleErr != nil {
		return f.scheduleErr
	}
	f.scheduled = append(f.scheduled, req.ID)
	return nil
}

func (f *fakeBridge) PublishChildControl(ctrl ChildControlMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.controls = append(f.controls, ctrl)
	return nil
}

func (f *fakeBridge) PublishSystemMessage(messageType, level, message string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.systemMsgs = append(f.systemMsgs, messageType)
	return nil
}

func (f *fakeBridge) SetResponseHandler(handler ChildResponseHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

func (f *fakeBridge) systemMessageTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.systemMsgs))
	copy(out, f.systemMsgs)
	return out
}

func (f *fakeBridge) controlActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]string, 0, len(f.controls))
	for _, ctrl := range f.controls {
		actions = append(actions, ctrl.Action)
	}
	return actions
}
