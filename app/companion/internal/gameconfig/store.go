package gameconfig

import (
	"sync/atomic"

	"github.com/solpet-labs/solpet/pkg/config"
	"github.com/solpet-labs/solpet/pkg/logger"
)

// Store 可热更新的游戏数值仓库
// 监听配置文件变化，校验通过后原子替换，校验失败保留旧值
type Store struct {
	current atomic.Pointer[Config]
	manager *config.Manager
	logger  logger.Logger
}

// NewStore 用初始配置创建仓库
func NewStore(cfg *Config, l logger.Logger) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.Default()
	}

	s := &Store{logger: l.Named("gameconfig.store")}
	s.current.Store(cfg)
	return s, nil
}

// Current 当前生效的数值配置
func (s *Store) Current() *Config {
	return s.current.Load()
}

// WatchFile 监听数值配置文件，变更时热替换
func (s *Store) WatchFile(path string) error {
	manager := config.NewManager()
	if err := manager.LoadFile(path); err != nil {
		return err
	}
	s.manager = manager

	if err := s.apply(); err != nil {
		return err
	}

	return manager.Watch(func(loadErr error) {
		if loadErr != nil {
			s.logger.Error("reload game config failed", "path", path, "error", loadErr)
			return
		}
		if err := s.apply(); err != nil {
			s.logger.Error("rejected game config change", "path", path, "error", err)
		}
	})
}

// apply 把已加载的文件内容校验后换入
func (s *Store) apply() error {
	next := DefaultConfig()
	if err := s.manager.Unmarshal(next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}

	s.current.Store(next)
	s.logger.Info("game config applied",
		"max_level", next.MaxLevel(),
		"evolutions", len(next.EvolutionThresholds),
	)
	return nil
}

// Close 停止监听
func (s *Store) Close() error {
	if s.manager == nil {
		return nil
	}
	return s.manager.Close()
}
