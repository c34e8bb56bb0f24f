package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tbmobb813/KidMap-sub000/models"
)

// fakeRedis 内存实现的假Redis缓存
type fakeRedis struct {
	mu        sync.Mutex
	locations map[string]*models.Location
	presence  map[string]map[string]interface{}
	setErr    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		locations: make(map[string]*models.Location),
		presence:  make(map[string]map[string]interface{}),
	}
}

func (f *fakeRedis) Set(key string, value interface{}, expiration time.Duration) error {
	return f.setErr
}

func (f *fakeRedis) Get(key string, dest interface{}) error { return errors.New("not found") }

func (f *fakeRedis) Delete(key string) error { return nil }

func (f *fakeRedis) CacheLastLocation(deviceID string, loc *models.Location, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.locations[deviceID] = loc
	return nil
}

func (f *fakeRedis) GetLastLocation(deviceID string) (*models.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc, ok := f.locations[deviceID]
	if !ok {
		return nil, errors.New("not found")
	}
	return loc, nil
}

func (f *fakeRedis) CacheDevicePresence(deviceID string, presence map[string]interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presence[deviceID] = presence
	return nil
}

func (f *fakeRedis) GetDevicePresence(deviceID string) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.presence[deviceID]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func newTestLocateService(location *fakeLocation) (*LocateOrchestratorService, *models.PingStore, *fakeBridge, *fakeSpeech, *fakeRedis) {
	store := models.NewPingStore()
	bridge := &fakeBridge{}
	speech := &fakeSpeech{}
	redis := newFakeRedis()
	svc := NewLocateOrchestratorService(location, speech, bridge, redis, store, "child-device-001")
	return svc, store, bridge, speech, redis
}

// TestLocateHandleSuccess 验证定位成功时确认指令并附带位置
func TestLocateHandleSuccess(t *testing.T) {
	location := &fakeLocation{address: "123 Main St"}
	svc, store, _, speech, redis := newTestLocateService(location)

	req := store.Create(models.PingTypeLocate, "", models.UrgencyLow)
	svc.Handle(req)

	got, _ := store.Get(req.ID)
	if !got.Acknowledged {
		t.Fatal("定位成功但指令未被确认")
	}
	if got.Response == nil || got.Response.Location == nil {
		t.Fatal("确认响应中没有位置")
	}
	if got.Response.Location.Address != "123 Main St" {
		t.Errorf("地址 = %q, 期望 %q", got.Response.Location.Address, "123 Main St")
	}
	if speech.spokenCount() != 1 {
		t.Error("定位成功后没有语音确认")
	}

	// 最近位置被缓存
	if _, err := redis.GetLastLocation("child-device-001"); err != nil {
		t.Error("最近位置未被缓存")
	}
}

// TestLocateHandlePermissionDenied 验证定位失败时指令留在pending中等待过期
func TestLocateHandlePermissionDenied(t *testing.T) {
	location := &fakeLocation{positionErr: ErrLocationPermission}
	svc, store, bridge, _, _ := newTestLocateService(location)

	req := store.Create(models.PingTypeLocate, "", models.UrgencyLow)
	svc.Handle(req)

	got, _ := store.Get(req.ID)
	if got.Acknowledged {
		t.Fatal("定位失败的指令不应被确认")
	}
	if len(store.Pending()) != 1 {
		t.Error("定位失败的指令应留在pending列表中")
	}

	// 家长侧收到可读的失败回报
	types := bridge.systemMessageTypes()
	if len(types) != 1 || types[0] != "locate_failed" {
		t.Errorf("系统消息 = %v, 期望 [locate_failed]", types)
	}
}

// TestLocateGeocodeFailureOmitsAddress 验证地址解析失败只省略address字段
func TestLocateGeocodeFailureOmitsAddress(t *testing.T) {
	location := &fakeLocation{geocodeErr: errors.New("geocoder down")}
	svc, store, _, _, _ := newTestLocateService(location)

	req := store.Create(models.PingTypeLocate, "", models.UrgencyLow)
	svc.Handle(req)

	got, _ := store.Get(req.ID)
	if !got.Acknowledged {
		t.Fatal("地址解析失败不应阻止确认")
	}
	if got.Response.Location.Address != "" {
		t.Errorf("地址应为空, 实际 %q", got.Response.Location.Address)
	}
}

// TestCaptureDoesNotAcknowledge 验证Capture只捕获位置，不确认指令
func TestCaptureDoesNotAcknowledge(t *testing.T) {
	location := &fakeLocation{}
	svc, store, _, _, _ := newTestLocateService(location)

	req := store.Create(models.PingTypeEmergency, "", models.UrgencyEmergency)
	loc, err := svc.Capture(req)
	if err != nil {
		t.Fatalf("Capture失败: %v", err)
	}
	if loc == nil {
		t.Fatal("Capture返回空位置")
	}

	got, _ := store.Get(req.ID)
	if got.Acknowledged {
		t.Error("Capture不应确认指令")
	}
}

// TestCaptureRedisFailureIsNonFatal 验证缓存失败不影响位置捕获
func TestCaptureRedisFailureIsNonFatal(t *testing.T) {
	location := &fakeLocation{}
	svc, store, _, _, redis := newTestLocateService(location)
	redis.setErr = errors.New("redis down")

	req := store.Create(models.PingTypeLocate, "", models.UrgencyLow)
	if _, err := svc.Capture(req); err != nil {
		t.Fatalf("缓存失败不应让Capture报错: %v", err)
	}
}
