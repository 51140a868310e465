package logger

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Level 日志等级
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format 输出格式
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Config 日志配置
type Config struct {
	Level       Level  `mapstructure:"level" json:"level" yaml:"level"`
	Format      Format `mapstructure:"format" json:"format" yaml:"format"`
	Development bool   `mapstructure:"development" json:"development" yaml:"development"`

	// 控制台输出
	EnableConsole bool `mapstructure:"enable_console" json:"enable_console" yaml:"enable_console"`

	// 文件输出（lumberjack 按大小轮换）
	EnableFile bool   `mapstructure:"enable_file" json:"enable_file" yaml:"enable_file"`
	OutputPath string `mapstructure:"output_path" json:"output_path" yaml:"output_path"`
	MaxSize    int    `mapstructure:"max_size" json:"max_size" yaml:"max_size"` // 单位 MB
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" json:"max_age" yaml:"max_age"` // 单位天
	Compress   bool   `mapstructure:"compress" json:"compress" yaml:"compress"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Level:         LevelInfo,
		Format:        FormatJSON,
		EnableConsole: true,
		EnableFile:    false,
		OutputPath:    "logs/app.log",
		MaxSize:       100,
		MaxBackups:    10,
		MaxAge:        30,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, "":
	default:
		return fmt.Errorf("invalid log level: %s", c.Level)
	}
	switch c.Format {
	case FormatJSON, FormatConsole, "":
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}
	if c.EnableFile && c.OutputPath == "" {
		return fmt.Errorf("output_path is required when enable_file is true")
	}
	return nil
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
