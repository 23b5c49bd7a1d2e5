package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultAcceptanceThreshold 通过阈值默认值
	DefaultAcceptanceThreshold = 2
	// DefaultRejectionThreshold 拒绝阈值默认值
	DefaultRejectionThreshold = 3
	// DefaultFallbackModel 未配置任何模型时使用的模型
	DefaultFallbackModel = "qwen3:1.7b"
)

// LoadConfig 加载配置文件，configFile 为空时在 . 和 ./config 下查找 config.yaml
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// 环境变量 REVIEW_JWT_SECRET_KEY 覆盖 jwt.secret_key
	v.SetEnvPrefix("review")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	SetDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// SetDefaults 设置默认值
func SetDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 18080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./database/review.db"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.LockTTLSeconds == 0 {
		cfg.Redis.LockTTLSeconds = 30
	}
	if cfg.JWT.Algorithm == "" {
		cfg.JWT.Algorithm = "HS256"
	}
	if cfg.JWT.ExpireMinutes == 0 {
		cfg.JWT.ExpireMinutes = 43200 // 30天
	}
	if cfg.JWT.RefreshDays == 0 {
		cfg.JWT.RefreshDays = 7
	}
	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "admin"
	}
	if cfg.CORS.AllowMethods == nil {
		cfg.CORS.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if cfg.CORS.AllowHeaders == nil {
		cfg.CORS.AllowHeaders = []string{"*"}
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Generator.FallbackModel == "" {
		cfg.Generator.FallbackModel = DefaultFallbackModel
	}
	if cfg.Generator.TimeoutSeconds == 0 {
		cfg.Generator.TimeoutSeconds = 600
	}
	if cfg.Generator.MaxConcurrent == 0 {
		cfg.Generator.MaxConcurrent = 4
	}
	if cfg.Generator.Temperature == 0 {
		cfg.Generator.Temperature = 0.7
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 2048
	}
	if cfg.Review.AcceptanceThreshold == 0 {
		cfg.Review.AcceptanceThreshold = DefaultAcceptanceThreshold
	}
	if cfg.Review.RejectionThreshold == 0 {
		cfg.Review.RejectionThreshold = DefaultRejectionThreshold
	}
	if cfg.Worker.Count == 0 {
		cfg.Worker.Count = 2
	}
	if cfg.Worker.QueueSize == 0 {
		cfg.Worker.QueueSize = 256
	}
	if cfg.Worker.SweepSeconds == 0 {
		cfg.Worker.SweepSeconds = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// validateConfig 验证配置
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务器端口: %d", cfg.Server.Port)
	}

	if cfg.JWT.SecretKey == "" {
		return fmt.Errorf("JWT密钥不能为空")
	}

	if cfg.Admin.Password == "" {
		return fmt.Errorf("管理员密码不能为空")
	}

	if cfg.Review.AcceptanceThreshold < 1 || cfg.Review.RejectionThreshold < 1 {
		return fmt.Errorf("审核阈值必须大于0")
	}

	if cfg.Worker.Count < 1 {
		return fmt.Errorf("worker数量必须大于0")
	}

	// 内存数据库不需要创建目录
	if !strings.Contains(cfg.Database.Path, "mode=memory") && cfg.Database.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Database.Path)
		if _, err := os.Stat(dbDir); os.IsNotExist(err) {
			if err := os.MkdirAll(dbDir, 0755); err != nil {
				return fmt.Errorf("创建数据库目录失败: %w", err)
			}
		}
	}

	return nil
}
