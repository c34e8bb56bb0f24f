package models

// Guardian 表示可以登录并向孩子设备发送指令的家长账户
type Guardian struct {
	BaseModel
	Username string `gorm:"type:varchar(50);uniqueIndex" json:"username"`
	Password string `gorm:"type:varchar(100)" json:"-"` // bcrypt哈希
	Email    string `gorm:"type:varchar(100)" json:"email"`
	Phone    string `gorm:"type:varchar(20)" json:"phone"`
	Role     string `gorm:"type:varchar(20);default:guardian" json:"role"`
}
