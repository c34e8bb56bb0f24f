package services

import (
	"errors"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"
	"github.com/tbmobb813/KidMap-sub000/utils"

	"gorm.io/gorm"
)

// InterfaceGuardianService 定义家长账户服务接口
type InterfaceGuardianService interface {
	Authenticate(username, password string) (*models.Guardian, error)
	GetGuardianByID(id uint) (*models.Guardian, error)
}

// GuardianService 提供家长账户相关的服务
type GuardianService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewGuardianService 创建一个新的家长账户服务
func NewGuardianService(db *gorm.DB, cfg *config.Config) InterfaceGuardianService {
	return &GuardianService{
		DB:     db,
		Config: cfg,
	}
}

// ErrAccountStoreUnavailable 表示服务运行在无审计模式，账户存储不可用
var ErrAccountStoreUnavailable = errors.New("账户存储不可用")

// Authenticate 校验家长的用户名和密码
func (s *GuardianService) Authenticate(username, password string) (*models.Guardian, error) {
	if s.DB == nil {
		return nil, ErrAccountStoreUnavailable
	}

	var guardian models.Guardian
	if err := s.DB.Where("username = ?", username).First(&guardian).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("用户名或密码错误")
		}
		return nil, err
	}

	if !utils.CheckPasswordHash(password, guardian.Password) {
		return nil, errors.New("用户名或密码错误")
	}

	return &guardian, nil
}

// GetGuardianByID 根据ID获取家长账户
func (s *GuardianService) GetGuardianByID(id uint) (*models.Guardian, error) {
	if s.DB == nil {
		return nil, ErrAccountStoreUnavailable
	}

	var guardian models.Guardian
	if err := s.DB.First(&guardian, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("家长账户不存在")
		}
		return nil, err
	}
	return &guardian, nil
}
