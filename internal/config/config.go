package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`              // 数据库文件路径
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大生命周期
	AutoMigrate     bool          `mapstructure:"auto_migrate"`      // 是否自动迁移
	LogLevel        string        `mapstructure:"log_level"`         // GORM 日志级别: silent/error/warn/info
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	LogLevel    string   `mapstructure:"log_level"`
	AuthToken   string   `mapstructure:"auth_token"`   // 本地 API 共享密钥，为空则不校验
	CORSOrigins []string `mapstructure:"cors_origins"` // 桌面 WebView 来源
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"` // Base64 编码的 32 字节密钥，为空则明文存储
}

// HealthConfig 健康检查配置
type HealthConfig struct {
	DefaultTimeout     time.Duration `mapstructure:"default_timeout"`      // 供应商未配置超时时使用
	ProbePath          string        `mapstructure:"probe_path"`           // 探测路径
	ProbeRPS           float64       `mapstructure:"probe_rps"`            // 每秒最大探测次数，0 表示不限
	AllowedStatusCodes []int         `mapstructure:"allowed_status_codes"` // 额外视为成功的状态码
	CheckConcurrency   int           `mapstructure:"check_concurrency"`    // 批量检查并发数
}

// FailoverConfig 故障转移运行配置
type FailoverConfig struct {
	MonitorInterval   time.Duration `mapstructure:"monitor_interval"`   // 定时巡检间隔，0 表示关闭
	ProgressRetention time.Duration `mapstructure:"progress_retention"` // 切换进度保留时长
}

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security"`
	Health   HealthConfig   `mapstructure:"health"`
	Failover FailoverConfig `mapstructure:"failover"`
}

// Addr 监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig 加载配置
// 优先级: 环境变量 > 配置文件 > 默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/aitools-switch")
	}

	v.SetEnvPrefix("AITOOLS")
	v.AutomaticEnv()

	// 兼容旧的环境变量
	_ = v.BindEnv("database.path", "AITOOLS_DATABASE_PATH", "DATABASE_PATH")
	_ = v.BindEnv("server.port", "AITOOLS_SERVER_PORT", "SERVER_PORT")
	_ = v.BindEnv("server.log_level", "AITOOLS_LOG_LEVEL")
	_ = v.BindEnv("server.auth_token", "AITOOLS_AUTH_TOKEN")
	_ = v.BindEnv("security.encryption_key", "AITOOLS_ENCRYPTION_KEY", "ENCRYPTION_KEY")
	_ = v.BindEnv("failover.monitor_interval", "AITOOLS_MONITOR_INTERVAL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// 显式指定的文件不存在也算错误
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default 返回默认配置（测试和 migrate 命令使用）
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port 无效: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path 不能为空")
	}
	if c.Health.DefaultTimeout <= 0 {
		return fmt.Errorf("health.default_timeout 必须大于 0")
	}
	if c.Health.CheckConcurrency <= 0 {
		c.Health.CheckConcurrency = 1
	}
	if c.Failover.MonitorInterval < 0 {
		return fmt.Errorf("failover.monitor_interval 不能为负数")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8765)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.auth_token", "")
	v.SetDefault("server.cors_origins", []string{"tauri://localhost", "http://localhost:1420"})

	v.SetDefault("database.path", defaultDatabasePath())
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("security.encryption_key", "")

	v.SetDefault("health.default_timeout", 30*time.Second)
	v.SetDefault("health.probe_path", "/v1/models")
	v.SetDefault("health.probe_rps", 10.0)
	v.SetDefault("health.allowed_status_codes", []int{})
	v.SetDefault("health.check_concurrency", 4)

	v.SetDefault("failover.monitor_interval", time.Duration(0))
	v.SetDefault("failover.progress_retention", 10*time.Minute)
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data/aitools.db"
	}
	return filepath.Join(home, ".aitools-switch", "aitools.db")
}
