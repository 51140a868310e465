package sentry

import (
	"testing"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBindsGlobalHub(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DSN = "https://public@sentry.example.com/1"

	c, err := New(cfg)
	require.NoError(t, err)

	// Recovery 中间件依赖全局 Hub 持有客户端
	assert.NotNil(t, sentrygo.CurrentHub().Client())
	assert.Same(t, sentrygo.CurrentHub(), c.Hub())

	require.NoError(t, c.Close())
	assert.Nil(t, sentrygo.CurrentHub().Client())
	assert.ErrorIs(t, c.Close(), ErrClientClosed)
}

func TestNewRejectsMissingDSN(t *testing.T) {
	_, err := New(DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidDSN)
}

func TestCaptureAfterClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DSN = "https://public@sentry.example.com/1"

	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	assert.Nil(t, c.CaptureException(assert.AnError))
	assert.Nil(t, c.RecoverWithContext("panic"))
}
