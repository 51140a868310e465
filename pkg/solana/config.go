package solana

import (
	"fmt"
	"time"
)

// Config 链上客户端配置
type Config struct {
	// RPCURL JSON-RPC 节点地址
	RPCURL string `mapstructure:"rpc_url" json:"rpc_url" yaml:"rpc_url"`

	// RequestTimeout 单次 RPC 调用超时
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`

	// ConfirmTimeout 交易确认整体超时
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" json:"confirm_timeout" yaml:"confirm_timeout"`

	// ConfirmPollInterval 确认轮询间隔
	ConfirmPollInterval time.Duration `mapstructure:"confirm_poll_interval" json:"confirm_poll_interval" yaml:"confirm_poll_interval"`
}

// DefaultConfig 默认配置（devnet）
func DefaultConfig() *Config {
	return &Config{
		RPCURL:              "https://api.devnet.solana.com",
		RequestTimeout:      15 * time.Second,
		ConfirmTimeout:      60 * time.Second,
		ConfirmPollInterval: 2 * time.Second,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc_url is required")
	}
	return nil
}
