package services

import (
	"errors"
	"time"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"
	"github.com/tbmobb813/KidMap-sub000/utils"
)

// 本文件定义孩子设备上的能力提供方契约
// 每个能力彼此独立，任何一个失败都不影响其他能力的调用

// 能力不可用时返回的错误
var (
	ErrAudioNotLoaded     = errors.New("alert audio not loaded")
	ErrSpeechUnavailable  = errors.New("speech engine unavailable")
	ErrLocationPermission = errors.New("location permission denied")
)

// InterfaceVibrationProvider 定义振动能力契约
type InterfaceVibrationProvider interface {
	// Vibrate 按给定节奏振动，repeat为true时循环执行
	Vibrate(pattern []time.Duration, repeat bool) error
	// Cancel 取消当前振动，幂等
	Cancel()
}

// InterfaceAudioProvider 定义警报音频能力契约
// 音频未装载是合法状态，PlayLoop此时返回ErrAudioNotLoaded
type InterfaceAudioProvider interface {
	// PlayLoop 开始循环播放警报音，返回停止用的句柄
	PlayLoop() (int32, error)
	// Stop 停止指定句柄的播放，对已停止的句柄无副作用
	Stop(handle int32)
}

// InterfaceSpeechProvider 定义语音合成能力契约，尽力而为
type InterfaceSpeechProvider interface {
	Speak(text string) error
}

// InterfaceLocationProvider 定义定位能力契约
type InterfaceLocationProvider interface {
	// GetCurrentPosition 获取当前位置，可能因权限或硬件原因失败
	GetCurrentPosition(highAccuracy bool) (*models.Location, error)
	// ReverseGeocode 把坐标转换为可读地址，可独立于定位失败
	ReverseGeocode(loc *models.Location) (string, error)
}

// ---- 本地模拟实现 ----
// 真实部署中这些能力由设备端驱动提供，这里按配置模拟设备行为

// SimulatedVibrationProvider 模拟设备振动马达
type SimulatedVibrationProvider struct{}

func NewSimulatedVibrationProvider() InterfaceVibrationProvider {
	return &SimulatedVibrationProvider{}
}

func (p *SimulatedVibrationProvider) Vibrate(pattern []time.Duration, repeat bool) error {
	config.Info("[CAPABILITY] 振动开始: pattern=%v, repeat=%v", pattern, repeat)
	return nil
}

func (p *SimulatedVibrationProvider) Cancel() {
	config.Info("[CAPABILITY] 振动取消")
}

// SimulatedAudioProvider 模拟警报音频播放器
type SimulatedAudioProvider struct {
	Loaded bool
}

func NewSimulatedAudioProvider(cfg *config.Config) InterfaceAudioProvider {
	return &SimulatedAudioProvider{Loaded: cfg.AudioLoaded}
}

func (p *SimulatedAudioProvider) PlayLoop() (int32, error) {
	if !p.Loaded {
		return 0, ErrAudioNotLoaded
	}

	handle := utils.RandomInt32()
	config.Info("[CAPABILITY] 警报音频开始循环播放: handle=%d", handle)
	return handle, nil
}

func (p *SimulatedAudioProvider) Stop(handle int32) {
	config.Info("[CAPABILITY] 警报音频停止: handle=%d", handle)
}

// SimulatedSpeechProvider 模拟语音合成引擎
type SimulatedSpeechProvider struct {
	Enabled bool
}

func NewSimulatedSpeechProvider(cfg *config.Config) InterfaceSpeechProvider {
	return &SimulatedSpeechProvider{Enabled: cfg.SpeechEnabled}
}

func (p *SimulatedSpeechProvider) Speak(text string) error {
	if !p.Enabled {
		return ErrSpeechUnavailable
	}

	config.Info("[CAPABILITY] 语音播报: %q", text)
	return nil
}

// SimulatedLocationProvider 模拟设备定位，按配置返回固定坐标或权限错误
type SimulatedLocationProvider struct {
	Denied    bool
	Latitude  float64
	Longitude float64
}

func NewSimulatedLocationProvider(cfg *config.Config) InterfaceLocationProvider {
	return &SimulatedLocationProvider{
		Denied:    cfg.LocationDenied,
		Latitude:  cfg.LocationFixedLat,
		Longitude: cfg.LocationFixedLng,
	}
}

func (p *SimulatedLocationProvider) GetCurrentPosition(highAccuracy bool) (*models.Location, error) {
	if p.Denied {
		return nil, ErrLocationPermission
	}

	accuracy := 50.0
	if highAccuracy {
		accuracy = 10.0
	}

	return &models.Location{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  accuracy,
		Timestamp: time.Now(),
	}, nil
}

func (p *SimulatedLocationProvider) ReverseGeocode(loc *models.Location) (string, error) {
	// 模拟环境没有地理编码服务，调用方应把失败视为非致命
	return "", errors.New("reverse geocoding unavailable")
}
