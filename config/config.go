package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

var (
	config     *Config
	configOnce sync.Once
)

// Config stores all configuration of the application
type Config struct {
	// Environment type
	EnvType string

	// Database
	DBHost          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBPort          string
	DBMigrationMode string // 数据库迁移模式: "auto"(默认), "drop"(删除重建)

	// Server
	ServerPort string

	// Redis
	RedisHost string
	RedisPort string
	RedisDB   int

	// MQTT 通知桥接
	MQTTBrokerURL  string // 为空时使用本地模拟桥接
	MQTTClientID   string
	MQTTUsername   string
	MQTTPassword   string
	MQTTSSLEnabled bool
	MQTTCACertPath string

	// 孩子设备能力模拟
	ChildDeviceID    string
	AudioLoaded      bool    // 是否装载了警报音频
	SpeechEnabled    bool    // 是否可用语音合成
	LocationDenied   bool    // 模拟定位权限被拒绝
	LocationFixedLat float64 // 模拟定位的纬度
	LocationFixedLng float64 // 模拟定位的经度

	// JWT Authentication
	JWTSecretKey string

	// Guardian
	DefaultGuardianPassword string
}

// LoadConfig loads config from environment variables based on ENV_TYPE
func LoadConfig() *Config {
	// Get environment type (default to LOCAL if not set)
	envType := getEnv("ENV_TYPE", "LOCAL")
	prefix := ""

	// Set prefix based on environment type
	if strings.ToUpper(envType) == "LOCAL" {
		prefix = "LOCAL_"
	} else if strings.ToUpper(envType) == "SERVER" {
		prefix = "SERVER_"
	} else {
		fmt.Printf("Warning: Unknown ENV_TYPE '%s', defaulting to LOCAL environment\n", envType)
		prefix = "LOCAL_"
		envType = "LOCAL"
	}

	fmt.Printf("Loading configuration for environment: %s\n", envType)

	return &Config{
		// Environment type
		EnvType: envType,

		// Database config - use environment-specific variables if available
		DBHost:          getEnv(prefix+"DB_HOST", getEnv("DB_HOST", "localhost")),
		DBUser:          getEnv(prefix+"DB_USER", getEnv("DB_USER", "root")),
		DBPassword:      getEnv(prefix+"DB_PASSWORD", getEnv("DB_PASSWORD", "")),
		DBName:          getEnv(prefix+"DB_NAME", getEnv("DB_NAME", "kidmap_db")),
		DBPort:          getEnv(prefix+"DB_PORT", getEnv("DB_PORT", "3306")),
		DBMigrationMode: getEnv(prefix+"DB_MIGRATION_MODE", getEnv("DB_MIGRATION_MODE", "auto")),

		// Server config
		ServerPort: getEnv(prefix+"SERVER_PORT", getEnv("SERVER_PORT", "8080")),

		// Redis config
		RedisHost: getEnv(prefix+"REDIS_HOST", getEnv("REDIS_HOST", "localhost")),
		RedisPort: getEnv(prefix+"REDIS_PORT", getEnv("REDIS_PORT", "6379")),
		RedisDB:   getEnvAsInt("REDIS_DB", 0),

		// MQTT config
		MQTTBrokerURL:  getEnv(prefix+"MQTT_BROKER_URL", getEnv("MQTT_BROKER_URL", "")),
		MQTTClientID:   getEnv("MQTT_CLIENT_ID", "kidmap-ping-service"),
		MQTTUsername:   getEnv("MQTT_USERNAME", ""),
		MQTTPassword:   getEnv("MQTT_PASSWORD", ""),
		MQTTSSLEnabled: getEnvAsBool("MQTT_SSL_ENABLED", false),
		MQTTCACertPath: getEnv("MQTT_CA_CERT_PATH", ""),

		// 孩子设备能力模拟配置
		ChildDeviceID:    getEnv("CHILD_DEVICE_ID", "child-device-1"),
		AudioLoaded:      getEnvAsBool("SIM_AUDIO_LOADED", true),
		SpeechEnabled:    getEnvAsBool("SIM_SPEECH_ENABLED", true),
		LocationDenied:   getEnvAsBool("SIM_LOCATION_DENIED", false),
		LocationFixedLat: getEnvAsFloat("SIM_LOCATION_LAT", 40.7128),
		LocationFixedLng: getEnvAsFloat("SIM_LOCATION_LNG", -74.0060),

		// JWT Config
		JWTSecretKey: getEnv("JWT_SECRET_KEY", "kidmap-secret-key-change-in-production"),

		// Guardian Config
		DefaultGuardianPassword: getEnv("DEFAULT_GUARDIAN_PASSWORD", "guardian123"),
	}
}

// GetConfig returns the application configuration as a singleton
func GetConfig() *Config {
	configOnce.Do(func() {
		config = LoadConfig()
	})
	return config
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local&allowNativePasswords=true&multiStatements=true"
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as integer with default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as boolean with default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as float with default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
