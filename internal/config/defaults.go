package config

import (
	"time"

	"robot_go/internal/models"
)

// getDefaultConfig retorna uma configuração padrão
func getDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			StaticDir:       "./static",
		},
		Robot: RobotConfig{
			Host:                 "127.0.0.1",
			Port:                 5000,
			ConnectTimeoutMs:     5000,
			CommandTimeoutMs:     3000,
			MaxReconnectAttempts: -1,
			ReconnectDelayMs:     1000,
			MaxReconnectDelayMs:  16000,
			PollIntervalMs:       500,
			Debug:                false,
		},
		Envelope: models.WorkEnvelope{
			XMin: -1000, XMax: 1000,
			YMin: -1000, YMax: 1000,
			ZMin: 0, ZMax: 1000,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
			Prefix:   "robot_arm",
			Enabled:  false,
			TTL:      0,
		},
		PLC: PLCConfig{
			Enabled:      false,
			Host:         "192.168.1.100",
			Rack:         0,
			Slot:         1,
			DBNumber:     20,
			UpdateRate:   500 * time.Millisecond,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "./logs",
		},
	}
}

// Default retorna a configuração padrão
func Default() *Config {
	cfg := getDefaultConfig()
	return &cfg
}
