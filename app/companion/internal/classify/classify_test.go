package classify

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solpet-labs/solpet/pkg/helius"
	"github.com/solpet-labs/solpet/pkg/logger"
	"github.com/solpet-labs/solpet/pkg/solana"
)

const (
	testWallet = "WaLLet1111111111111111111111111111111111111"
	otherKey   = "OtHer2222222222222222222222222222222222222"
)

type fakeChain struct {
	txs map[string]*solana.ParsedTransactionResult
	err error
}

func (f *fakeChain) ParsedTransaction(_ context.Context, signature string) (*solana.ParsedTransactionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	tx, ok := f.txs[signature]
	if !ok {
		return nil, errors.New("not found")
	}
	return tx, nil
}

type fakeExplainer struct {
	explanation *helius.Explanation
	err         error
	calls       int
}

func (f *fakeExplainer) Enabled() bool { return true }

func (f *fakeExplainer) Explain(context.Context, any) (*helius.Explanation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.explanation, nil
}

func simpleTx(feePayer string, extraKeys ...string) *solana.ParsedTransactionResult {
	keys := []solana.ParsedAccountKey{{Pubkey: feePayer, Signer: true, Writable: true}}
	for _, k := range extraKeys {
		keys = append(keys, solana.ParsedAccountKey{Pubkey: k})
	}
	return &solana.ParsedTransactionResult{
		Transaction: &solana.ParsedTransaction{
			Message: solana.ParsedMessage{AccountKeys: keys},
		},
		Meta: &solana.ParsedMeta{},
	}
}

func TestHeuristicActionFeePayerSends(t *testing.T) {
	tx := simpleTx(testWallet, otherKey)
	assert.Equal(t, ActionSend, HeuristicAction(tx, testWallet))
}

func TestHeuristicActionAccountKeyReceives(t *testing.T) {
	tx := simpleTx(otherKey, testWallet)
	assert.Equal(t, ActionReceive, HeuristicAction(tx, testWallet))
}

func TestHeuristicActionUnrelatedWallet(t *testing.T) {
	tx := simpleTx(otherKey)
	assert.Equal(t, ActionOther, HeuristicAction(tx, "somebody-else"))
}

func TestHeuristicActionTokenBalanceIncrease(t *testing.T) {
	tx := simpleTx(testWallet, otherKey)
	tx.Meta.PreTokenBalances = []solana.TokenBalance{
		{AccountIndex: 1, Owner: testWallet, UITokenAmount: solana.TokenAmount{Amount: "100"}},
	}
	tx.Meta.PostTokenBalances = []solana.TokenBalance{
		{AccountIndex: 1, Owner: testWallet, UITokenAmount: solana.TokenAmount{Amount: "150"}},
	}
	// 余额增加覆盖手续费支付方的 SEND 判定
	assert.Equal(t, ActionReceive, HeuristicAction(tx, testWallet))
}

func TestHeuristicActionBurnPrecedence(t *testing.T) {
	tx := simpleTx(testWallet)
	tx.Meta.PreTokenBalances = []solana.TokenBalance{
		{AccountIndex: 0, Owner: testWallet, UITokenAmount: solana.TokenAmount{Amount: "1"}},
	}
	tx.Meta.PostTokenBalances = []solana.TokenBalance{
		{AccountIndex: 0, Owner: testWallet, UITokenAmount: solana.TokenAmount{Amount: "0"}},
	}
	tx.Transaction.Message.Instructions = []solana.ParsedInstruction{
		{Program: "spl-token", Parsed: &solana.ParsedInstructionInfo{Type: "burn"}},
	}
	assert.Equal(t, ActionBurned, HeuristicAction(tx, testWallet))
}

func TestDetectBurnFromLogs(t *testing.T) {
	tx := simpleTx(testWallet, "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	tx.Meta.LogMessages = []string{"Program log: Instruction: Burn", "Program consumed 2000 units"}
	assert.True(t, DetectBurn(tx))

	noBurn := simpleTx(testWallet, otherKey)
	noBurn.Meta.LogMessages = []string{"Program log: Instruction: Burn"}
	assert.False(t, DetectBurn(noBurn), "burn logs without a known program must not match")
}

func TestDetectBurnInnerInstruction(t *testing.T) {
	tx := simpleTx(testWallet)
	tx.Meta.InnerInstructions = []solana.InnerInstructionSet{
		{Instructions: []solana.ParsedInstruction{
			{Parsed: &solana.ParsedInstructionInfo{Info: map[string]interface{}{"instruction": "Burn"}}},
		}},
	}
	assert.True(t, DetectBurn(tx))
}

func TestOverrideActionFieldOrder(t *testing.T) {
	// summary 命中 burn 先于 keyPoints 命中 mint
	action, ok := OverrideAction(&helius.Explanation{
		Summary:   "Burned 1 NFT",
		KeyPoints: []string{"minted something"},
	})
	require.True(t, ok)
	assert.Equal(t, ActionBurned, action)

	action, ok = OverrideAction(&helius.Explanation{
		Type: "NFT Mint",
	})
	require.True(t, ok)
	assert.Equal(t, ActionReceive, action)

	_, ok = OverrideAction(&helius.Explanation{Summary: "Token swap"})
	assert.False(t, ok)
}

func TestClassifyEnrichment(t *testing.T) {
	chain := &fakeChain{txs: map[string]*solana.ParsedTransactionResult{
		"sig1": simpleTx(testWallet, otherKey),
	}}
	explainer := &fakeExplainer{explanation: &helius.Explanation{
		Type:    "NFT Mint",
		Summary: "Minted a companion",
	}}

	c := NewClassifier(chain, explainer, nil, logger.Noop())
	result := c.Classify(context.Background(), testWallet, "sig1")

	assert.Equal(t, "NFT Mint", result.Type)
	assert.Equal(t, "Minted a companion", result.Summary)
	// mint 关键词覆盖启发式的 SEND
	assert.Equal(t, ActionReceive, result.Action)
}

func TestClassifyExplainerFailureDegrades(t *testing.T) {
	chain := &fakeChain{txs: map[string]*solana.ParsedTransactionResult{
		"sig1": simpleTx(testWallet),
	}}
	explainer := &fakeExplainer{err: errors.New("rate limited")}

	c := NewClassifier(chain, explainer, nil, logger.Noop())
	result := c.Classify(context.Background(), testWallet, "sig1")

	assert.Equal(t, TypeTransaction, result.Type)
	assert.Equal(t, ActionSend, result.Action)
}

func TestClassifyChainFailureReturnsGeneric(t *testing.T) {
	chain := &fakeChain{err: errors.New("rpc down")}

	c := NewClassifier(chain, nil, nil, logger.Noop())
	result := c.Classify(context.Background(), testWallet, "sig1")

	assert.Equal(t, TypeGeneric, result.Type)
	assert.Equal(t, ActionOther, result.Action)
}

func TestClassifyNormalizesUnknownType(t *testing.T) {
	chain := &fakeChain{txs: map[string]*solana.ParsedTransactionResult{
		"sig1": simpleTx(testWallet),
	}}
	explainer := &fakeExplainer{explanation: &helius.Explanation{
		Type:    "Unknown",
		Summary: "Something happened",
	}}

	c := NewClassifier(chain, explainer, nil, logger.Noop())
	result := c.Classify(context.Background(), testWallet, "sig1")
	assert.Equal(t, TypeGeneric, result.Type)
}

type memoryCache struct {
	entries map[string]*Classification
}

func (m *memoryCache) GetClassification(_ context.Context, wallet, signature string) (*Classification, bool) {
	c, ok := m.entries[wallet+":"+signature]
	return c, ok
}

func (m *memoryCache) SetClassification(_ context.Context, wallet, signature string, c *Classification) {
	m.entries[wallet+":"+signature] = c
}

func TestClassifyUsesCache(t *testing.T) {
	chain := &fakeChain{txs: map[string]*solana.ParsedTransactionResult{
		"sig1": simpleTx(testWallet),
	}}
	explainer := &fakeExplainer{explanation: &helius.Explanation{Type: "Transfer", Summary: "sent"}}
	cache := &memoryCache{entries: map[string]*Classification{}}

	c := NewClassifier(chain, explainer, cache, logger.Noop())
	first := c.Classify(context.Background(), testWallet, "sig1")
	second := c.Classify(context.Background(), testWallet, "sig1")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, explainer.calls)
}

func TestClassifyBatchPreservesOrder(t *testing.T) {
	txs := map[string]*solana.ParsedTransactionResult{}
	signatures := []string{"a", "b", "c", "d", "e"}
	for _, sig := range signatures {
		txs[sig] = simpleTx(testWallet)
	}
	chain := &fakeChain{txs: txs}

	c := NewClassifier(chain, nil, nil, logger.Noop())
	results := c.ClassifyBatch(context.Background(), testWallet, signatures)

	require.Len(t, results, len(signatures))
	for i, result := range results {
		require.NotNil(t, result)
		assert.Equal(t, signatures[i], result.Signature)
	}
}
