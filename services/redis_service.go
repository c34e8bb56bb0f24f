package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"

	"github.com/go-redis/redis/v8"
)

// InterfaceRedisService 定义Redis缓存服务接口
type InterfaceRedisService interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string, dest interface{}) error
	Delete(key string) error
	CacheLastLocation(deviceID string, loc *models.Location, expiration time.Duration) error
	GetLastLocation(deviceID string) (*models.Location, error)
	CacheDevicePresence(deviceID string, presence map[string]interface{}, expiration time.Duration) error
	GetDevicePresence(deviceID string) (map[string]interface{}, error)
}

// RedisService handles Redis operations
type RedisService struct {
	Client *redis.Client
	Ctx    context.Context
}

// NewRedisService creates a new Redis service
func NewRedisService(cfg *config.Config) InterfaceRedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: "", // No password set
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	return &RedisService{
		Client: client,
		Ctx:    ctx,
	}
}

// Set sets a key-value pair in Redis with expiration
func (s *RedisService) Set(key string, value interface{}, expiration time.Duration) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.Client.Set(s.Ctx, key, jsonValue, expiration).Err()
}

// Get gets a value from Redis by key
func (s *RedisService) Get(key string, dest interface{}) error {
	val, err := s.Client.Get(s.Ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(val), dest)
}

// Delete deletes a key from Redis
func (s *RedisService) Delete(key string) error {
	return s.Client.Del(s.Ctx, key).Err()
}

// CacheLastLocation 缓存孩子设备最近一次捕获的位置
func (s *RedisService) CacheLastLocation(deviceID string, loc *models.Location, expiration time.Duration) error {
	key := "last_location:" + deviceID
	return s.Set(key, loc, expiration)
}

// GetLastLocation 获取孩子设备最近一次缓存的位置
func (s *RedisService) GetLastLocation(deviceID string) (*models.Location, error) {
	key := "last_location:" + deviceID
	var loc models.Location
	if err := s.Get(key, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// CacheDevicePresence 缓存孩子设备的在线状态心跳
func (s *RedisService) CacheDevicePresence(deviceID string, presence map[string]interface{}, expiration time.Duration) error {
	key := "device_presence:" + deviceID
	return s.Set(key, presence, expiration)
}

// GetDevicePresence 获取孩子设备的在线状态
func (s *RedisService) GetDevicePresence(deviceID string) (map[string]interface{}, error) {
	key := "device_presence:" + deviceID
	presence := make(map[string]interface{})
	if err := s.Get(key, &presence); err != nil {
		return nil, err
	}
	return presence, nil
}
