package services

import (
	"errors"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"

	"gorm.io/gorm"
)

// PingStatistics 指令统计信息
type PingStatistics struct {
	TotalPings        int64 `json:"total_pings"`
	AcknowledgedPings int64 `json:"acknowledged_pings"`
	EmergencyPings    int64 `json:"emergency_pings"`
	NeedsHelpCount    int64 `json:"needs_help_count"`
}

// InterfacePingRecordService defines the ping record service interface
type InterfacePingRecordService interface {
	GetAllPingRecords(page, pageSize int) ([]models.PingRecord, int64, error)
	GetPingRecordByPingID(pingID string) (*models.PingRecord, error)
	GetPingStatistics() (*PingStatistics, error)
}

// PingRecordService 提供指令审计记录相关的服务
type PingRecordService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewPingRecordService 创建一个新的指令审计记录服务
func NewPingRecordService(db *gorm.DB, cfg *config.Config) InterfacePingRecordService {
	return &PingRecordService{
		DB:     db,
		Config: cfg,
	}
}

// ErrAuditStoreUnavailable 表示服务运行在无审计模式，数据库不可用
var ErrAuditStoreUnavailable = errors.New("审计存储不可用")

// 1 GetAllPingRecords 获取所有指令审计记录，支持分页
func (s *PingRecordService) GetAllPingRecords(page, pageSize int) ([]models.PingRecord, int64, error) {
	if s.DB == nil {
		return nil, 0, ErrAuditStoreUnavailable
	}

	var records []models.PingRecord
	var total int64

	// 获取总数
	if err := s.DB.Model(&models.PingRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	offset := (page - 1) * pageSize
	if err := s.DB.Order("timestamp DESC").
		Limit(pageSize).Offset(offset).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// 2 GetPingRecordByPingID 根据指令ID获取审计记录
func (s *PingRecordService) GetPingRecordByPingID(pingID string) (*models.PingRecord, error) {
	if s.DB == nil {
		return nil, ErrAuditStoreUnavailable
	}

	var record models.PingRecord
	if err := s.DB.Where("ping_id = ?", pingID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("指令记录不存在")
		}
		return nil, err
	}
	return &record, nil
}

// 3 GetPingStatistics 获取指令统计信息
func (s *PingRecordService) GetPingStatistics() (*PingStatistics, error) {
	if s.DB == nil {
		return nil, ErrAuditStoreUnavailable
	}

	stats := &PingStatistics{}

	if err := s.DB.Model(&models.PingRecord{}).Count(&stats.TotalPings).Error; err != nil {
		return nil, err
	}

	if err := s.DB.Model(&models.PingRecord{}).
		Where("status = ?", models.PingRecordStatusAcknowledged).
		Count(&stats.AcknowledgedPings).Error; err != nil {
		return nil, err
	}

	if err := s.DB.Model(&models.PingRecord{}).
		Where("type = ?", string(models.PingTypeEmergency)).
		Count(&stats.EmergencyPings).Error; err != nil {
		return nil, err
	}

	if err := s.DB.Model(&models.PingRecord{}).
		Where("needs_help = ?", true).
		Count(&stats.NeedsHelpCount).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
