// @title           KidMap Ping Service API
// @version         1.0
// @description     Device ping and safety alert lifecycle manager for the KidMap family navigation app

// @contact.name   API Support
// @contact.url    http://www.yourcompany.com/support
// @contact.email  support@yourcompany.com

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Enter the token with the `Bearer: ` prefix
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/tbmobb813/KidMap-sub000/config"
	"github.com/tbmobb813/KidMap-sub000/models"
	"github.com/tbmobb813/KidMap-sub000/routes"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// 初始化日志配置
	if err := config.SetupLogger(); err != nil {
		fmt.Printf("初始化日志配置失败: %v\n", err)
		os.Exit(1)
	}

	// 加载.env文件
	if err := godotenv.Load(); err != nil {
		config.Warning("无法加载.env文件: %v", err)
		// 即使加载失败也继续执行，可能环境变量已经通过其他方式设置
	} else {
		config.Info("成功加载.env文件")
	}

	// 获取配置
	cfg := config.GetConfig()

	// 连接数据库，指令状态的权威存储在内存中，数据库只承担审计记录
	// 连接失败时降级为无审计模式继续运行
	db, err := initDB(cfg)
	if err != nil {
		config.Warning("无法连接数据库，将以无审计模式运行: %v", err)
		db = nil
	}

	if db != nil {
		// 根据配置执行不同的数据库操作
		if cfg.DBMigrationMode == "drop" {
			// 删除并重建表
			log.Println("警告: 在drop模式下运行，将删除并重建所有表")
			if err := dropAndRecreateTables(db); err != nil {
				log.Fatalf("删除并重建表失败: %v", err)
			}
		} else {
			// 默认AutoMigrate，只会添加新列和新表，不会删除或修改列
			log.Println("在标准模式下运行，将只添加新列和新表")
			if err := autoMigrate(db); err != nil {
				log.Fatalf("自动迁移失败: %v", err)
			}
		}

		// 确保系统中有家长账户
		ensureGuardianExists(db, cfg)
	}

	// 初始化路由
	r := routes.SetupRouter(db, cfg)

	// 获取端口配置
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080" // 默认端口
	}

	// 启动服务器
	config.Info("服务器启动在: http://localhost:%s", port)
	if err := r.Run(":" + port); err != nil {
		config.Error("启动服务器失败: %v", err)
		os.Exit(1)
	}
}

// initDB 初始化数据库连接
func initDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.GetDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	fmt.Println("Database connection established")
	return db, nil
}

// autoMigrate 自动迁移所有模型（只添加新列和新表）
func autoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Guardian{},
		&models.PingRecord{},
	)

	if err != nil {
		return err
	}

	fmt.Println("Database migration completed")
	return nil
}

// dropAndRecreateTables 删除并重建所有表
func dropAndRecreateTables(db *gorm.DB) error {
	// 警告: 这将删除所有数据
	log.Println("警告: 正在删除并重建所有表，所有数据将丢失")

	// 禁用外键检查以允许删除表
	db.Exec("SET FOREIGN_KEY_CHECKS = 0")
	defer db.Exec("SET FOREIGN_KEY_CHECKS = 1")

	// 获取所有表名
	var tables []string
	err := db.Raw("SHOW TABLES").Scan(&tables).Error
	if err != nil {
		return fmt.Errorf("failed to get table names: %w", err)
	}

	// 删除所有表
	for _, table := range tables {
		log.Printf("正在删除表: %s", table)
		err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS `%s`", table)).Error
		if err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	// 重新创建所有表
	log.Println("正在重新创建所有表")
	return autoMigrate(db)
}

// ensureGuardianExists 确保系统中至少有一个家长账户
func ensureGuardianExists(db *gorm.DB, cfg *config.Config) {
	var count int64
	db.Model(&models.Guardian{}).Count(&count)

	// 如果没有家长账户，则创建一个默认账户
	if count == 0 {
		// 生成密码哈希
		defaultPassword := "guardian123" // 默认密码
		if cfg.DefaultGuardianPassword != "" {
			defaultPassword = cfg.DefaultGuardianPassword
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("无法为默认家长账户哈希密码: %v", err)
			return
		}

		// 创建默认家长账户
		guardian := models.Guardian{
			Username: "guardian",
			Password: string(hashedPassword),
			Email:    "guardian@example.com",
			Phone:    "1234567890",
			Role:     "guardian",
		}

		result := db.Create(&guardian)
		if result.Error != nil {
			log.Printf("无法创建默认家长账户: %v", result.Error)
			return
		}

		log.Println("已创建默认家长账户 (用户名: guardian)")
	}
}
