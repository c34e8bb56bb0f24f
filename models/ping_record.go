package models

import (
	"time"
)

// PingRecordStatus represents the status of a ping audit record
type PingRecordStatus string

const (
	PingRecordStatusSent         PingRecordStatus = "sent"
	PingRecordStatusAcknowledged PingRecordStatus = "acknowledged"
)

// PingRecord 表示指令的落库审计记录
// 权威状态始终在内存的PingStore中，这里只做尽力而为的写入，供历史审计查询
type PingRecord struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	PingID          string           `gorm:"type:varchar(100);index" json:"ping_id"` // 指令唯一标识
	Type            string           `gorm:"type:varchar(20)" json:"type"`
	Urgency         string           `gorm:"type:varchar(20)" json:"urgency"`
	Message         string           `gorm:"type:varchar(255)" json:"message"`
	Status          PingRecordStatus `gorm:"type:varchar(20)" json:"status"`
	Timestamp       time.Time        `json:"timestamp"` // 指令发起时间
	ExpiresAt       time.Time        `json:"expires_at"`
	AcknowledgedAt  *time.Time       `json:"acknowledged_at,omitempty"`
	ResponseMessage string           `gorm:"type:varchar(255)" json:"response_message"`
	NeedsHelp       bool             `json:"needs_help"`
}
