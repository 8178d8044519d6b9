package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 服务完整配置
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	World   WorldConfig   `yaml:"world"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig UDP 监听与会话表参数
type ServerConfig struct {
	BindAddress       string  `yaml:"bind_address"`
	Port              int     `yaml:"port"`
	MaxConnections    int     `yaml:"max_connections"`
	TickRate          int     `yaml:"tick_rate"`            // ticks per second
	ReadBuffer        int     `yaml:"read_buffer"`          // bytes
	QueueSize         int     `yaml:"queue_size"`           // datagrams
	MaxPacketsPerTick int     `yaml:"max_packets_per_tick"` // 0 = unbounded
	IdleTimeout       int     `yaml:"idle_timeout"`         // seconds, 0 = disabled
	MoveSpeed         float64 `yaml:"move_speed"`           // units per tick
}

// WorldConfig 出生点与世界实体位置
type WorldConfig struct {
	SpawnPosition       [3]float64 `yaml:"spawn_position"`
	WorldEntityPosition [3]float64 `yaml:"world_entity_position"`
}

// HTTPConfig 管理接口
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig 日志级别与滚动文件
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // empty = stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default 返回可直接运行的默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddress:    "0.0.0.0",
			Port:           54321,
			MaxConnections: 4,
			TickRate:       20,
			ReadBuffer:     1 << 16,
			QueueSize:      1024,
			MoveSpeed:      0.1,
		},
		World: WorldConfig{
			SpawnPosition:       [3]float64{10, 0, 10},
			WorldEntityPosition: [3]float64{20, 1, 20},
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: "127.0.0.1",
			Port:    8080,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Load 读取 YAML 文件并覆盖默认值；path 为空时只返回默认配置
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate 逐段校验
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}
	// 槽位与容量在协议中都是单字节
	if s.MaxConnections < 1 || s.MaxConnections > 255 {
		return fmt.Errorf("max_connections must be between 1 and 255, got %d", s.MaxConnections)
	}
	if s.TickRate < 1 || s.TickRate > 1000 {
		return fmt.Errorf("tick_rate must be between 1 and 1000, got %d", s.TickRate)
	}
	if s.ReadBuffer < 1024 {
		return fmt.Errorf("read_buffer must be at least 1024 bytes, got %d", s.ReadBuffer)
	}
	if s.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", s.QueueSize)
	}
	if s.MaxPacketsPerTick < 0 {
		return fmt.Errorf("max_packets_per_tick cannot be negative, got %d", s.MaxPacketsPerTick)
	}
	if s.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout cannot be negative, got %d", s.IdleTimeout)
	}
	if s.MoveSpeed <= 0 {
		return fmt.Errorf("move_speed must be positive, got %f", s.MoveSpeed)
	}
	return nil
}

func (h *HTTPConfig) Validate() error {
	if !h.Enabled {
		return nil
	}
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
	}
	if h.Address == "" {
		return fmt.Errorf("http address cannot be empty when HTTP is enabled")
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}
	if l.File != "" && l.MaxSizeMB < 1 {
		return fmt.Errorf("max_size_mb must be at least 1 when file is set, got %d", l.MaxSizeMB)
	}
	return nil
}

// TickInterval 每个 Tick 的时长
func (s *ServerConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(s.TickRate)
}

// IdleTimeoutDuration 0 表示不做空闲检测
func (s *ServerConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}

// ListenAddress UDP 监听地址
func (s *ServerConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", s.BindAddress, s.Port)
}

func (h *HTTPConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}
