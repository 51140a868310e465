package logger

var _ Logger = (*NoopLogger)(nil)

// NoopLogger 空实现，测试场景使用
type NoopLogger struct{}

// Noop 返回空 Logger
func Noop() Logger { return &NoopLogger{} }

func (n *NoopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *NoopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *NoopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (n *NoopLogger) Error(msg string, keysAndValues ...interface{}) {}

func (n *NoopLogger) Named(name string) Logger                       { return n }
func (n *NoopLogger) WithFields(keysAndValues ...interface{}) Logger { return n }
func (n *NoopLogger) Sync() error                                    { return nil }
