package helius

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Config Helius AI 交易解读服务配置
type Config struct {
	// APIKey Helius 访问密钥，为空时禁用解读
	APIKey string `mapstructure:"api_key" json:"api_key" yaml:"api_key"`
	// BaseURL 服务地址
	BaseURL string `mapstructure:"base_url" json:"base_url" yaml:"base_url"`
	// Cluster 目标集群
	Cluster string `mapstructure:"cluster" json:"cluster" yaml:"cluster"`
	// RequestTimeout 单次请求超时
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://orb-api.helius-rpc.com",
		Cluster:        "mainnet-beta",
		RequestTimeout: 20 * time.Second,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("helius: base_url is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("helius: request_timeout must be positive")
	}
	return nil
}
