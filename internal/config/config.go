package config

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// AppConfig 应用基础配置
type AppConfig struct {
	Name string `yaml:"name"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // mysql, postgres
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name"`
	Charset      string `yaml:"charset"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json, console
	Output     string `yaml:"output"` // stdout, file, both
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // 天
}

// AuthConfig 登录令牌配置
type AuthConfig struct {
	TokenSecret string `yaml:"token_secret"`
	TokenExpire int    `yaml:"token_expire"` // 小时
}

// AgentConfig 远程执行代理配置
type AgentConfig struct {
	// 代理心跳超时（秒），超过后连接视为失效
	HeartbeatTimeout int `yaml:"heartbeat_timeout"`
	// 转发等待的额外缓冲时间（毫秒），叠加在请求自身超时之上
	TimeoutBuffer int `yaml:"timeout_buffer"`
}

// ScriptConfig 脚本沙箱配置
type ScriptConfig struct {
	// 单个脚本的执行时间上限（毫秒）
	Timeout int `yaml:"timeout"`
}

// SecretConfig 敏感数据加密配置
type SecretConfig struct {
	// AES-256-GCM 密钥，必须为 32 字节
	Key string `yaml:"key"`
}

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Agent    AgentConfig    `yaml:"agent"`
	Script   ScriptConfig   `yaml:"script"`
	Secret   SecretConfig   `yaml:"secret"`
}

var (
	globalConfig *Config
	once         sync.Once
)

// LoadConfig 加载配置文件
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	once.Do(func() {
		globalConfig = cfg
	})

	return cfg, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return globalConfig
}

// defaultConfig 返回带默认值的配置
func defaultConfig() *Config {
	return &Config{
		App:    AppConfig{Name: "feiyu"},
		Server: ServerConfig{Host: "0.0.0.0", Port: 8910},
		Log:    LogConfig{Level: "info", Format: "console", Output: "stdout"},
		Auth:   AuthConfig{TokenExpire: 72},
		Agent:  AgentConfig{HeartbeatTimeout: 90, TimeoutBuffer: 5000},
		Script: ScriptConfig{Timeout: 10000},
	}
}
