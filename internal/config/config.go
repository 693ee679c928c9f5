package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config 结构体包含所有应用的配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"` // `mapstructure` 标签用于Viper绑定结构体
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Share    ShareConfig    `mapstructure:"share"`
	Janitor  JanitorConfig  `mapstructure:"janitor"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           string   `mapstructure:"port" validate:"required,numeric"`
	Mode           string   `mapstructure:"mode" validate:"oneof=debug release test"`
	MaxUploadMB    int64    `mapstructure:"max_upload_mb" validate:"gt=0"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// MaxUploadBytes 上传大小上限（字节）
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

// DatabaseConfig 元数据库配置，driver 为 mysql 或 sqlite
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"oneof=mysql sqlite"`
	DSN          string `mapstructure:"dsn" validate:"required"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// RedisConfig Redis配置，未启用时使用进程内缓存
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey string        `mapstructure:"secret_key" validate:"required,min=16"`
	ExpiresIn time.Duration `mapstructure:"expires_in" validate:"gt=0"`
	Issuer    string        `mapstructure:"issuer"`
}

// StorageConfig 本地存储配置
type StorageConfig struct {
	Root   string `mapstructure:"root" validate:"required"`
	Digest string `mapstructure:"digest" validate:"oneof=md5 sha256"`
}

// ShareConfig 分享链接相关配置
type ShareConfig struct {
	MaxPasswordAttempts int           `mapstructure:"max_password_attempts" validate:"gte=0"` // 0 表示不限制
	AttemptWindow       time.Duration `mapstructure:"attempt_window" validate:"gte=0"`
}

// JanitorConfig 定时清理任务配置
type JanitorConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Schedule          string        `mapstructure:"schedule" validate:"required_if=Enabled true"`
	StagingTTL        time.Duration `mapstructure:"staging_ttl" validate:"gt=0"`
	PurgeOrphanShares bool          `mapstructure:"purge_orphan_shares"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// zap日志配置
type LogConfig struct {
	OutputPath string `mapstructure:"output_path"`
	ErrorPath  string `mapstructure:"error_path"`
	Level      string `mapstructure:"level"`
}

// SetDefaults 设置默认值，同时让 AutomaticEnv 能识别所有键
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.max_upload_mb", 100)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "go-pan.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.expires_in", 24*time.Hour)
	v.SetDefault("jwt.issuer", "go-pan")

	v.SetDefault("storage.root", "./data")
	v.SetDefault("storage.digest", "md5")

	v.SetDefault("share.max_password_attempts", 5)
	v.SetDefault("share.attempt_window", 15*time.Minute)

	v.SetDefault("janitor.enabled", true)
	v.SetDefault("janitor.schedule", "@every 1h")
	v.SetDefault("janitor.staging_ttl", 24*time.Hour)
	v.SetDefault("janitor.purge_orphan_shares", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.output_path", "logs/app.log")
	v.SetDefault("log.error_path", "logs/error.log")
	v.SetDefault("log.level", "info")
}

// LoadConfig 加载配置
// path 为空时依次在 .、./configs、/etc/go-pan/ 查找 config.yaml，找不到则只使用环境变量与默认值
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	// 环境变量如 GO_PAN_STORAGE_ROOT 对应 storage.root
	v.SetEnvPrefix("GO_PAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/go-pan/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := normalize(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// normalize 把存储根目录转换成绝对路径并统一小写枚举值
func normalize(cfg *Config) error {
	cfg.Storage.Digest = strings.ToLower(strings.TrimSpace(cfg.Storage.Digest))
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Storage.Root == "" {
		return nil
	}
	root, err := filepath.Abs(cfg.Storage.Root)
	if err != nil {
		return fmt.Errorf("failed to resolve storage root: %w", err)
	}
	cfg.Storage.Root = root
	return nil
}
