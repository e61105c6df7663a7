// =============================================================================
// 📦 SynthMind 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "github.com/BaSui01/synthmind/types"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Core:      types.DefaultCoreConfig(),
		Store:     DefaultStoreConfig(),
		Tools:     DefaultToolsConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultStoreConfig 返回默认持久化配置
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Backend: "file",
		File: FileStoreConfig{
			Dir: "data",
		},
		Redis: RedisStoreConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			Key:      "synthmind:memory:snapshot",
			PoolSize: 10,
		},
		SQLite: SQLiteStoreConfig{
			Path:            "synthmind.db",
			KeepGenerations: 5,
		},
	}
}

// DefaultToolsConfig 返回默认工具配置
func DefaultToolsConfig() ToolsConfig {
	return ToolsConfig{
		RateLimitRPS:   5,
		RateLimitBurst: 10,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		OutputPaths:  []string{"stdout"},
		EnableCaller: true,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "synthmind",
		SampleRate:   1.0,
	}
}
