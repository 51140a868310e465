package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Manager 配置管理器，封装 viper 提供加载、解析与热更新能力
type Manager struct {
	mu      sync.RWMutex
	viper   *viper.Viper
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Option Manager 选项
type Option func(*Manager)

// WithViper 使用外部构造的 viper 实例（用于环境变量映射等高级配置）
func WithViper(v *viper.Viper) Option {
	return func(m *Manager) {
		m.viper = v
	}
}

// NewManager 创建配置管理器
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.viper == nil {
		m.viper = viper.New()
	}
	return m
}

// LoadFile 加载配置文件（按扩展名识别格式）
func (m *Manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return fmt.Errorf("config file %s has no extension", path)
	}

	m.viper.SetConfigFile(path)
	m.viper.SetConfigType(ext)

	if err := m.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	m.path = path
	return nil
}

// Unmarshal 解析配置到目标结构体
func (m *Manager) Unmarshal(target any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viper.Unmarshal(target)
}

// UnmarshalKey 解析指定配置段
func (m *Manager) UnmarshalKey(key string, target any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viper.UnmarshalKey(key, target)
}

// Watch 监听配置文件变化，变化后重新读取并回调
// 回调在独立 goroutine 中执行，重载失败时传入非 nil error
func (m *Manager) Watch(onChange func(error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.path == "" {
		return fmt.Errorf("no config file loaded")
	}
	if m.watcher != nil {
		return fmt.Errorf("watcher already started")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// 监听目录而非文件，兼容编辑器的原子替换写入
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config dir: %w", err)
	}

	m.watcher = watcher
	target := filepath.Clean(m.path)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				m.mu.Lock()
				err := m.viper.ReadInConfig()
				m.mu.Unlock()
				onChange(err)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			case <-m.done:
				return
			}
		}
	}()

	return nil
}

// Close 停止监听
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	close(m.done)
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

// Viper 返回底层 viper 实例
func (m *Manager) Viper() *viper.Viper {
	return m.viper
}
