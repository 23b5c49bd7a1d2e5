package config

import (
	"fmt"
	"time"
)

// Config 应用配置结构
type Config struct {
	Server            ServerConfig           `mapstructure:"server"`
	Database          DatabaseConfig         `mapstructure:"database"`
	Redis             RedisConfig            `mapstructure:"redis"`
	JWT               JWTConfig              `mapstructure:"jwt"`
	Admin             AccountConfig          `mapstructure:"admin"`
	Expert            AccountConfig          `mapstructure:"expert"`
	CORS              CORSConfig             `mapstructure:"cors"`
	Generator         GeneratorConfig        `mapstructure:"generator"`
	Review            ReviewConfig           `mapstructure:"review"`
	Worker            WorkerConfig           `mapstructure:"worker"`
	Log               LogConfig              `mapstructure:"log"`
	SettingsOverrides map[string]interface{} `mapstructure:"settings_overrides"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ProductionMode bool   `mapstructure:"production_mode"`
}

// GetAddress 获取服务器地址
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig Redis配置，未启用时使用进程内锁和信号量
type RedisConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	DB             int    `mapstructure:"db"`
	Password       string `mapstructure:"password"`
	LockTTLSeconds int    `mapstructure:"lock_ttl_seconds"`
}

// GetAddress 获取Redis地址
func (r *RedisConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// GetLockTTL 获取分布式锁过期时间
func (r *RedisConfig) GetLockTTL() time.Duration {
	return time.Duration(r.LockTTLSeconds) * time.Second
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	Algorithm     string `mapstructure:"algorithm"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
	RefreshDays   int    `mapstructure:"refresh_days"`
}

// GetExpireDuration 获取过期时间
func (j *JWTConfig) GetExpireDuration() time.Duration {
	return time.Duration(j.ExpireMinutes) * time.Minute
}

// GetRefreshDuration 获取刷新Token过期时间
func (j *JWTConfig) GetRefreshDuration() time.Duration {
	return time.Duration(j.RefreshDays) * 24 * time.Hour
}

// AccountConfig 启动时初始化的账号
type AccountConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CORSConfig CORS配置
type CORSConfig struct {
	Origins          []string `mapstructure:"origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
}

// GeneratorConfig 文本生成服务配置
type GeneratorConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	APIKey         string   `mapstructure:"api_key"`
	DefaultModel   string   `mapstructure:"default_model"`
	FallbackModel  string   `mapstructure:"fallback_model"`
	Models         []string `mapstructure:"models"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	MaxConcurrent  int      `mapstructure:"max_concurrent"`
	Temperature    float64  `mapstructure:"temperature"`
	MaxTokens      int      `mapstructure:"max_tokens"`
}

// GetTimeout 获取单次生成超时时间
func (g *GeneratorConfig) GetTimeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// ReviewConfig 审核阈值的编译期默认值
type ReviewConfig struct {
	AcceptanceThreshold int `mapstructure:"acceptance_threshold"`
	RejectionThreshold  int `mapstructure:"rejection_threshold"`
}

// WorkerConfig 重新生成队列配置
type WorkerConfig struct {
	Count        int `mapstructure:"count"`
	QueueSize    int `mapstructure:"queue_size"`
	SweepSeconds int `mapstructure:"sweep_seconds"`
}

// GetSweepInterval 获取排队任务巡检间隔
func (w *WorkerConfig) GetSweepInterval() time.Duration {
	return time.Duration(w.SweepSeconds) * time.Second
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}
