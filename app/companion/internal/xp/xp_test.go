package xp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solpet-labs/solpet/app/companion/internal/classify"
)

func tx(txType, summary string, action classify.Action) *classify.Classification {
	return &classify.Classification{Type: txType, Summary: summary, Action: action}
}

func TestComputeEmpty(t *testing.T) {
	assert.Equal(t, 0, Compute(nil))
	assert.Equal(t, 0, Compute([]*classify.Classification{}))
}

func TestComputeSingleTransfer(t *testing.T) {
	// 基础 5 + 类型首现 3 + transfer 类别 1 + 发送 3
	got := Compute([]*classify.Classification{
		tx("Token Transfer", "Sent 10 USDC", classify.ActionSend),
	})
	assert.Equal(t, 12, got)
}

func TestComputeCategoryBonuses(t *testing.T) {
	tests := []struct {
		name string
		c    *classify.Classification
		want int
	}{
		{"nft mint", tx("NFT Mint", "Minted a companion", classify.ActionReceive), 5 + 3 + 10 + 1},
		{"swap", tx("Swap", "Swapped SOL for USDC", classify.ActionSend), 5 + 3 + 5 + 3},
		{"stake", tx("Stake", "Staked 2 SOL", classify.ActionSend), 5 + 3 + 8 + 3},
		{"unstake", tx("Unstake", "Unstaked 2 SOL", classify.ActionSend), 5 + 3 + 8 + 3},
		{"generic no category", tx("Generic", "See advanced details", classify.ActionOther), 5 + 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute([]*classify.Classification{tt.c}))
		})
	}
}

func TestComputeCategoryFromSummary(t *testing.T) {
	// 类型无关键词，摘要里的 swap 也能命中类别
	got := Compute([]*classify.Classification{
		tx("Transaction", "Executed a token swap on Jupiter", classify.ActionOther),
	})
	assert.Equal(t, 5+3+5, got)
}

func TestComputeDirectionFromText(t *testing.T) {
	tests := []struct {
		name string
		c    *classify.Classification
		want int
	}{
		// 动作未判定时，解读文本中的方向词也计奖励
		{"sent text", tx("Payment", "Sent lamports", classify.ActionOther), 5 + 3 + 3},
		{"transferred to", tx("Payment", "Transferred to a friend", classify.ActionOther), 5 + 3 + 1 + 3},
		{"received text", tx("Payment", "Received an airdrop", classify.ActionOther), 5 + 3 + 1},
		{"transferred from", tx("Payment", "Transferred from an exchange", classify.ActionOther), 5 + 3 + 1 + 1},
		// 发送优先于接收
		{"send action wins", tx("Payment", "Received change back", classify.ActionSend), 5 + 3 + 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute([]*classify.Classification{tt.c}))
		})
	}
}

func TestComputeDiversityBonusOncePerType(t *testing.T) {
	batch := []*classify.Classification{
		tx("Swap", "Swapped", classify.ActionOther),
		tx("Swap", "Swapped again", classify.ActionOther),
	}
	// 第二笔同类型不再拿首现奖励
	assert.Equal(t, (5+3+5)+(5+5), Compute(batch))
}

func TestComputeCap(t *testing.T) {
	var batch []*classify.Classification
	for i := 0; i < 50; i++ {
		batch = append(batch, tx("NFT Mint", "Minted", classify.ActionSend))
	}
	got := Compute(batch)
	assert.Equal(t, MaxPerSync, got)
}

func TestComputeNeverNegative(t *testing.T) {
	for i := 0; i < 10; i++ {
		batch := make([]*classify.Classification, i)
		got := Compute(batch)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, MaxPerSync)
	}
}

func TestComputeSkipsNil(t *testing.T) {
	batch := []*classify.Classification{nil, tx("Generic", "", classify.ActionOther)}
	assert.Equal(t, 5+3, Compute(batch))
}
