package pipeline

import (
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solpet-labs/solpet/pkg/logger"
)

func TestStageString(t *testing.T) {
	assert.Equal(t, "Idle", StageIdle.String())
	assert.Equal(t, "Verified", StageVerified.String())
	assert.Equal(t, "Unknown", Stage(99).String())
}

func TestSessionAdvanceStopsAtTerminal(t *testing.T) {
	s := NewSession(solanago.NewWallet().PublicKey())
	assert.Equal(t, StageIdle, s.Stage())

	s.Advance(StageFundingPrepared)
	s.Advance(StageVerified)
	assert.Equal(t, StageVerified, s.Stage())

	s.Fail("too late")
	assert.Equal(t, StageVerified, s.Stage())
	assert.Empty(t, s.FailReason())
}

func TestSessionFail(t *testing.T) {
	s := NewSession(solanago.NewWallet().PublicKey())
	s.Fail("upload failed")
	assert.Equal(t, StageFailed, s.Stage())
	assert.Equal(t, "upload failed", s.FailReason())
}

func TestSessionRetryClearsFailure(t *testing.T) {
	s := NewSession(solanago.NewWallet().PublicKey())
	s.Advance(StageFundingConfirmed)
	s.Fail("upload failed")
	require.Equal(t, StageFailed, s.Stage())

	// 瞬时故障后重试成功，会话离开失败态并继续推进
	s.Advance(StageMetadataUploaded)
	assert.Equal(t, StageMetadataUploaded, s.Stage())
	assert.Empty(t, s.FailReason())

	s.Advance(StageUpdateTxBuilt)
	s.Advance(StageVerified)
	assert.Equal(t, StageVerified, s.Stage())
}

func TestSessionBindFundingOnce(t *testing.T) {
	s := NewSession(solanago.NewWallet().PublicKey())
	assert.True(t, s.BindFunding("sig1"))
	assert.True(t, s.BindFunding("sig1"))
	assert.False(t, s.BindFunding("sig2"))
	assert.Equal(t, "sig1", s.FundingSignature())
}

func TestSessionsHaveDistinctWallets(t *testing.T) {
	payer := solanago.NewWallet().PublicKey()
	a := NewSession(payer)
	b := NewSession(payer)
	assert.NotEqual(t, a.ServiceWallet.PublicKey(), b.ServiceWallet.PublicKey())
	assert.NotEqual(t, a.ID, b.ID)
}

func TestRegistryBindFundingExclusive(t *testing.T) {
	r := NewRegistry(logger.Noop())
	defer r.Close()

	payer := solanago.NewWallet().PublicKey()
	a := r.Create(payer)
	b := r.Create(payer)

	require.True(t, r.BindFunding(a, "sig1"))
	// 同一签名不能绑到第二个会话，资助只消费一次
	assert.False(t, r.BindFunding(b, "sig1"))
	assert.True(t, r.BindFunding(a, "sig1"))

	found, ok := r.GetByFunding("sig1")
	require.True(t, ok)
	assert.Same(t, a, found)
}

func TestRegistryReap(t *testing.T) {
	r := NewRegistry(logger.Noop())
	defer r.Close()

	session := r.Create(solanago.NewWallet().PublicKey())
	require.True(t, r.BindFunding(session, "sig1"))

	r.reap(time.Now().Add(sessionTTL + time.Minute))

	_, ok := r.Get(session.ID)
	assert.False(t, ok)
	_, ok = r.GetByFunding("sig1")
	assert.False(t, ok)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(logger.Noop())
	defer r.Close()

	session := r.Create(solanago.NewWallet().PublicKey())
	require.True(t, r.BindFunding(session, "sig1"))

	r.Remove(session.ID)
	_, ok := r.GetByFunding("sig1")
	assert.False(t, ok)
}
