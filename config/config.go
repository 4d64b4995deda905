package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerCfg struct {
	Port                string `mapstructure:"port"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	Development         bool   `mapstructure:"development"`
}

type MongoCfg struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaCfg struct {
	Brokers            []string `mapstructure:"brokers"`
	NotificationsTopic string   `mapstructure:"notifications_topic"`
}

type JwtCfg struct {
	Secret        string `mapstructure:"secret"`
	Algorithm     string `mapstructure:"algorithm"` // HS256 or RS256
	PublicKeyPath string `mapstructure:"public_key_path"`
}

type ChatCfg struct {
	MaxMessageChars    int    `mapstructure:"max_message_chars"`
	RateLimit          int    `mapstructure:"rate_limit"`
	RateWindowSeconds  int    `mapstructure:"rate_window_seconds"`
	RateLimiterBackend string `mapstructure:"rate_limiter_backend"` // memory or redis
	ResolveMaxAttempts int    `mapstructure:"resolve_max_attempts"`
	ResolveBaseDelayMS int    `mapstructure:"resolve_base_delay_ms"`
}

type WsCfg struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	ReadDeadlineSeconds  int   `mapstructure:"read_deadline_seconds"`
	MaxMessageSize       int64 `mapstructure:"max_message_size"`
}

type Config struct {
	Server ServerCfg `mapstructure:"server"`
	Mongo  MongoCfg  `mapstructure:"mongo"`
	Redis  RedisCfg  `mapstructure:"redis"`
	Kafka  KafkaCfg  `mapstructure:"kafka"`
	JWT    JwtCfg    `mapstructure:"jwt"`
	Chat   ChatCfg   `mapstructure:"chat"`
	WS     WsCfg     `mapstructure:"ws"`

	// Derived
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	RateWindow       time.Duration
	ResolveBaseDelay time.Duration
	PingInterval     time.Duration
	WriteDeadline    time.Duration
	ReadDeadline     time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 15
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "careerbridge"
	}
	if cfg.JWT.Algorithm == "" {
		cfg.JWT.Algorithm = "HS256"
	}
	if cfg.Chat.MaxMessageChars == 0 {
		cfg.Chat.MaxMessageChars = 5000
	}
	if cfg.Chat.RateLimit == 0 {
		cfg.Chat.RateLimit = 10
	}
	if cfg.Chat.RateWindowSeconds == 0 {
		cfg.Chat.RateWindowSeconds = 60
	}
	if cfg.Chat.RateLimiterBackend == "" {
		cfg.Chat.RateLimiterBackend = "memory"
	}
	if cfg.Chat.ResolveMaxAttempts == 0 {
		cfg.Chat.ResolveMaxAttempts = 3
	}
	if cfg.Chat.ResolveBaseDelayMS == 0 {
		cfg.Chat.ResolveBaseDelayMS = 100
	}
	if cfg.WS.PingIntervalSeconds == 0 {
		cfg.WS.PingIntervalSeconds = 30
	}
	if cfg.WS.WriteDeadlineSeconds == 0 {
		cfg.WS.WriteDeadlineSeconds = 10
	}
	if cfg.WS.ReadDeadlineSeconds == 0 {
		cfg.WS.ReadDeadlineSeconds = 60
	}
	if cfg.WS.MaxMessageSize == 0 {
		cfg.WS.MaxMessageSize = 1024 * 32
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "chat"
	}
	if cfg.Kafka.NotificationsTopic == "" {
		cfg.Kafka.NotificationsTopic = "chat.notifications"
	}

	cfg.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	cfg.RateWindow = time.Duration(cfg.Chat.RateWindowSeconds) * time.Second
	cfg.ResolveBaseDelay = time.Duration(cfg.Chat.ResolveBaseDelayMS) * time.Millisecond
	cfg.PingInterval = time.Duration(cfg.WS.PingIntervalSeconds) * time.Second
	cfg.WriteDeadline = time.Duration(cfg.WS.WriteDeadlineSeconds) * time.Second
	cfg.ReadDeadline = time.Duration(cfg.WS.ReadDeadlineSeconds) * time.Second
}
