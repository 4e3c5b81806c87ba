package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	OSS      OSSConfig      `mapstructure:"oss"`
	Forensic ForensicConfig `mapstructure:"forensic"`
	Reveal   RevealConfig   `mapstructure:"reveal"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Upload   UploadConfig   `mapstructure:"upload"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

// ForensicConfig 远程取证分析服务
type ForensicConfig struct {
	Endpoint              string `mapstructure:"endpoint"`
	APIKey                string `mapstructure:"api_key"`
	PollIntervalSeconds   int    `mapstructure:"poll_interval_seconds"`   // 轮询间隔（秒），默认 2
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"` // 单次请求超时（秒），默认 30
	MaxPollFailures       int    `mapstructure:"max_poll_failures"`       // 连续失败上限，超过则判定任务失败
}

// RevealConfig 解释文本逐字显示
type RevealConfig struct {
	TickMillis int `mapstructure:"tick_millis"` // 每个字符的间隔（毫秒），默认 18
}

type QueueConfig struct {
	ArchiveQueue string `mapstructure:"archive_queue"`
	MaxWorkers   int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type UploadConfig struct {
	MaxSize           int64    `mapstructure:"max_size"`           // 最大文件大小（字节）
	MediaDir          string   `mapstructure:"media_dir"`          // 本地媒体目录
	RetentionHours    int      `mapstructure:"retention_hours"`    // 本地媒体保留时间（小时）
	AllowedExtensions []string `mapstructure:"allowed_extensions"` // 允许的扩展名
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	// 检查 config.local.yaml 是否存在
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults 填充未配置的关键参数
func applyDefaults(cfg *Config) {
	if cfg.Forensic.PollIntervalSeconds <= 0 {
		cfg.Forensic.PollIntervalSeconds = 2
	}
	if cfg.Forensic.RequestTimeoutSeconds <= 0 {
		cfg.Forensic.RequestTimeoutSeconds = 30
	}
	if cfg.Forensic.MaxPollFailures <= 0 {
		cfg.Forensic.MaxPollFailures = 30
	}
	if cfg.Reveal.TickMillis <= 0 {
		cfg.Reveal.TickMillis = 18
	}
	if cfg.Queue.ArchiveQueue == "" {
		cfg.Queue.ArchiveQueue = "media_archive"
	}
	if cfg.Queue.MaxWorkers <= 0 {
		cfg.Queue.MaxWorkers = 2
	}
}
