package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/solpet-labs/solpet/pkg/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var configPath string

// LoadConfig 集成 pkg/config 提供统一加载能力
// 优先级：1. 命令行显式参数 > 2. 环境变量 > 3. 配置文件 > 4. 默认值
func LoadConfig(target any, opts ...config.Option) error {
	// 1. 获取执行目录，用于计算默认配置路径
	execDir, err := GetExecDir()
	if err != nil {
		return fmt.Errorf("failed to get executable directory: %w", err)
	}
	defaultConfig := filepath.Join(execDir, "config.yaml")

	// 2. 注册并解析命令行参数
	if pflag.Lookup("config") == nil {
		pflag.StringVarP(&configPath, "config", "c", defaultConfig, "path to config file")
	}
	if !pflag.Parsed() {
		pflag.Parse()
	}

	// 3. 创建 Viper 实例并配置环境变量映射
	// SOLPET_LOG_LEVEL -> log.level
	v := viper.New()
	v.SetEnvPrefix("SOLPET")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// 4. 确定配置文件路径
	// 优先级：Flag 显式指定 > 环境变量 SOLPET_CONFIG > 默认物理路径
	finalConfigPath := configPath
	if !pflag.CommandLine.Changed("config") {
		if envConfig := os.Getenv("SOLPET_CONFIG"); envConfig != "" {
			finalConfigPath = envConfig
		}
	}
	if _, err := os.Stat(finalConfigPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s", finalConfigPath)
	}
	configPath = finalConfigPath

	// 5. 初始化配置管理器并解析
	mgr := config.NewManager(append(opts, config.WithViper(v))...)
	if err := mgr.LoadFile(configPath); err != nil {
		return err
	}
	if err := mgr.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// GetExecDir 获取可执行文件所在目录（处理符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}

// GetConfigPath 返回最终使用的配置文件路径
func GetConfigPath() string {
	return configPath
}
