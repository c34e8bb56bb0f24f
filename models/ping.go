package models

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PingType 表示家长向孩子设备发起的指令类型
type PingType string

const (
	PingTypeRing      PingType = "ring"
	PingTypeLocate    PingType = "locate"
	PingTypeCheckIn   PingType = "check-in"
	PingTypeEmergency PingType = "emergency"
)

// PingUrgency 表示指令的紧急程度，决定过期时间和提醒强度
type PingUrgency string

const (
	UrgencyLow       PingUrgency = "low"
	UrgencyMedium    PingUrgency = "medium"
	UrgencyHigh      PingUrgency = "high"
	UrgencyEmergency PingUrgency = "emergency"
)

// 紧急状态响应值
const (
	EmergencyStatusSafe = "safe"
	EmergencyStatusHelp = "help"
)

var (
	ErrPingNotFound        = errors.New("ping request not found")
	ErrAlreadyAcknowledged = errors.New("ping request already acknowledged")
)

// UrgencyForType 根据指令类型推导默认紧急程度
func UrgencyForType(pingType PingType) PingUrgency {
	switch pingType {
	case PingTypeEmergency:
		return UrgencyEmergency
	case PingTypeLocate:
		return UrgencyLow
	default:
		// ring 和 check-in 默认为中等紧急程度
		return UrgencyMedium
	}
}

// TTLForUrgency 根据紧急程度返回指令的有效时长
// 紧急指令30分钟，其余一律15分钟，与消息内容无关
func TTLForUrgency(urgency PingUrgency) time.Duration {
	if urgency == UrgencyEmergency {
		return 30 * time.Minute
	}
	return 15 * time.Minute
}

// Location 表示一次捕获的设备位置
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Address   string    `json:"address,omitempty"` // 反向地理编码结果，失败时省略
	Timestamp time.Time `json:"timestamp"`
}

// PingResponse 表示孩子对指令的响应载荷
type PingResponse struct {
	Message   string    `json:"message,omitempty"`
	NeedsHelp bool      `json:"needs_help,omitempty"`
	Status    string    `json:"status,omitempty"` // 紧急响应状态: safe / help
	Location  *Location `json:"location,omitempty"`
}

// PingRequest 表示一条家长发起的设备指令
type PingRequest struct {
	ID             string        `json:"id"`
	Type           PingType      `json:"type"`
	Urgency        PingUrgency   `json:"urgency"`
	Timestamp      time.Time     `json:"timestamp"`
	Message        string        `json:"message,omitempty"`
	ExpiresAt      time.Time     `json:"expires_at"`
	Acknowledged   bool          `json:"acknowledged"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty"`
	Response       *PingResponse `json:"response,omitempty"`
}

// DefaultHistoryLimit 历史查询的默认条数上限
const DefaultHistoryLimit = 20

// PingStore 管理所有指令请求的内存存储
// 过期判定在读取时按时钟惰性计算，不做后台清扫，也不为每条指令挂定时器
type PingStore struct {
	pings map[string]*PingRequest // 以指令ID为键的请求映射
	mu    sync.RWMutex            // 读写锁保护请求映射
	now   func() time.Time        // 可注入时钟，便于测试
}

// NewPingStore 创建一个新的指令存储
func NewPingStore() *PingStore {
	return NewPingStoreWithClock(time.Now)
}

// NewPingStoreWithClock 创建一个使用指定时钟的指令存储
func NewPingStoreWithClock(now func() time.Time) *PingStore {
	return &PingStore{
		pings: make(map[string]*PingRequest),
		now:   now,
	}
}

// Create 创建并登记一条新的指令请求，分配ID、时间戳和过期时间
func (s *PingStore) Create(pingType PingType, message string, urgency PingUrgency) *PingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	req := &PingRequest{
		ID:        uuid.New().String(),
		Type:      pingType,
		Urgency:   urgency,
		Timestamp: now,
		Message:   message,
		ExpiresAt: now.Add(TTLForUrgency(urgency)),
	}

	s.pings[req.ID] = req
	return req
}

// Acknowledge 记录孩子的响应，确认是单调的：首次写入生效，之后的调用不会覆盖
// 已过期但仍在响应的指令同样允许确认，过期只影响pending列表
func (s *PingStore) Acknowledge(id string, response PingResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, exists := s.pings[id]
	if !exists {
		return ErrPingNotFound
	}
	if req.Acknowledged {
		return ErrAlreadyAcknowledged
	}

	ackedAt := s.now()
	req.Acknowledged = true
	req.AcknowledgedAt = &ackedAt
	req.Response = &response
	return nil
}

// Get 获取指定指令的快照
func (s *PingStore) Get(id string) (PingRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, exists := s.pings[id]
	if !exists {
		return PingRequest{}, false
	}
	return *req, true
}

// Pending 返回所有未确认且未过期的指令快照，按创建时间倒序
func (s *PingStore) Pending() []PingRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	pending := make([]PingRequest, 0)
	for _, req := range s.pings {
		if !req.Acknowledged && now.Before(req.ExpiresAt) {
			pending = append(pending, *req)
		}
	}

	sortByTimestampDesc(pending)
	return pending
}

// History 返回所有指令快照（无论状态），按创建时间倒序并截断到limit条
func (s *PingStore) History(limit int) []PingRequest {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]PingRequest, 0, len(s.pings))
	for _, req := range s.pings {
		history = append(history, *req)
	}

	sortByTimestampDesc(history)
	if len(history) > limit {
		history = history[:limit]
	}
	return history
}

// sortByTimestampDesc 按创建时间倒序排列
func sortByTimestampDesc(pings []PingRequest) {
	sort.Slice(pings, func(i, j int) bool {
		return pings[i].Timestamp.After(pings[j].Timestamp)
	})
}
