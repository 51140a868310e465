// Package classify 把链上交易归类为对伙伴有意义的行为
package classify

import (
	"context"
	"strconv"
	"strings"

	"github.com/solpet-labs/solpet/pkg/helius"
	"github.com/solpet-labs/solpet/pkg/logger"
	"github.com/solpet-labs/solpet/pkg/solana"
)

// Action 钱包视角下的交易动作
type Action string

const (
	ActionSend    Action = "SEND"
	ActionReceive Action = "RECEIVE"
	ActionBurned  Action = "BURNED"
	ActionOther   Action = "OTHER"
)

// 兜底展示值
const (
	TypeGeneric        = "Generic"
	TypeTransaction    = "Transaction"
	defaultSummary     = "See advanced details for more information"
	unknownTypeLiteral = "Unknown"
)

// Classification 一笔交易的分类结果
type Classification struct {
	Signature         string   `json:"signature,omitempty"`
	Type              string   `json:"type"`
	Summary           string   `json:"summary"`
	KeyPoints         []string `json:"keyPoints,omitempty"`
	AdditionalContext string   `json:"additionalContext,omitempty"`
	Action            Action   `json:"action"`
}

// ChainReader 分类所需的链上读取能力
type ChainReader interface {
	ParsedTransaction(ctx context.Context, signature string) (*solana.ParsedTransactionResult, error)
}

// Explainer AI 解读能力
type Explainer interface {
	Enabled() bool
	Explain(ctx context.Context, transaction any) (*helius.Explanation, error)
}

// Cache 分类结果缓存，已确认交易的分类不可变
type Cache interface {
	GetClassification(ctx context.Context, wallet, signature string) (*Classification, bool)
	SetClassification(ctx context.Context, wallet, signature string, c *Classification)
}

// Classifier 交易分类器
type Classifier struct {
	chain     ChainReader
	explainer Explainer
	cache     Cache
	logger    logger.Logger
}

// NewClassifier 创建分类器，explainer 与 cache 可为 nil
func NewClassifier(chain ChainReader, explainer Explainer, cache Cache, l logger.Logger) *Classifier {
	if l == nil {
		l = logger.Default()
	}
	return &Classifier{
		chain:     chain,
		explainer: explainer,
		cache:     cache,
		logger:    l.Named("service.classify"),
	}
}

// Classify 对单笔交易分类
// 解读服务失败只降级不报错；交易拉取失败返回 Generic 兜底结果
func (c *Classifier) Classify(ctx context.Context, wallet, signature string) *Classification {
	if c.cache != nil {
		if cached, ok := c.cache.GetClassification(ctx, wallet, signature); ok {
			return cached
		}
	}

	tx, err := c.chain.ParsedTransaction(ctx, signature)
	if err != nil {
		c.logger.Warn("fetch transaction for classification failed",
			"signature", signature,
			"error", err,
		)
		return &Classification{
			Signature: signature,
			Type:      TypeGeneric,
			Summary:   defaultSummary,
			Action:    ActionOther,
		}
	}

	result := &Classification{
		Signature: signature,
		Type:      TypeTransaction,
		Summary:   defaultSummary,
		Action:    HeuristicAction(tx, wallet),
	}

	if c.explainer != nil && c.explainer.Enabled() {
		exp, err := c.explainer.Explain(ctx, tx)
		if err != nil {
			c.logger.Warn("ai explanation failed, using heuristics only",
				"signature", signature,
				"error", err,
			)
		} else {
			result.Type = exp.Type
			result.Summary = exp.Summary
			result.KeyPoints = exp.KeyPoints
			result.AdditionalContext = exp.AdditionalContext
			if override, ok := OverrideAction(exp); ok {
				result.Action = override
			}
		}
	}

	if result.Type == unknownTypeLiteral || result.Type == "" {
		result.Type = TypeGeneric
	}

	if c.cache != nil {
		c.cache.SetClassification(ctx, wallet, signature, result)
	}
	return result
}

// HeuristicAction 仅凭交易内容推断动作
func HeuristicAction(tx *solana.ParsedTransactionResult, wallet string) Action {
	if tx == nil || tx.Transaction == nil {
		return ActionOther
	}

	keys := tx.Transaction.Message.AccountKeys
	if len(keys) == 0 {
		return ActionOther
	}

	// 1. 手续费支付方视为发送，否则出现在账户列表即视为接收
	action := ActionOther
	if keys[0].Pubkey == wallet {
		action = ActionSend
	} else {
		for _, key := range keys {
			if key.Pubkey == wallet {
				action = ActionReceive
				break
			}
		}
	}

	// 2. 代币余额变化修正
	if tx.Meta == nil {
		return action
	}
	pre := make(map[int]TokenAmountValue, len(tx.Meta.PreTokenBalances))
	for _, balance := range tx.Meta.PreTokenBalances {
		pre[balance.AccountIndex] = parseTokenAmount(balance.UITokenAmount.Amount)
	}
	for _, balance := range tx.Meta.PostTokenBalances {
		if balance.Owner != wallet {
			continue
		}
		post := parseTokenAmount(balance.UITokenAmount.Amount)
		prev, hadPrev := pre[balance.AccountIndex]
		if !hadPrev || post.Value > prev.Value {
			return ActionReceive
		}
		if hadPrev && post.Value < prev.Value && DetectBurn(tx) {
			action = ActionBurned
		}
	}
	return action
}

// TokenAmountValue 解析后的代币数量
type TokenAmountValue struct {
	Value uint64
	OK    bool
}

func parseTokenAmount(raw string) TokenAmountValue {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return TokenAmountValue{}
	}
	return TokenAmountValue{Value: v, OK: true}
}

// burnProgramIDs 涉及销毁操作的已知程序
var burnProgramIDs = map[string]struct{}{
	"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA":  {}, // Token Program
	"metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s":  {}, // Token Metadata
	"CoREENxT6tW1HoK8ypY1SxRMZTcVPm7R94rH4PZNhX7d": {}, // Metaplex Core
}

// DetectBurn 判断交易是否包含销毁操作
func DetectBurn(tx *solana.ParsedTransactionResult) bool {
	if tx == nil {
		return false
	}

	if tx.Meta != nil {
		for _, set := range tx.Meta.InnerInstructions {
			for _, inst := range set.Instructions {
				if isBurnInstruction(inst) {
					return true
				}
			}
		}
	}
	if tx.Transaction != nil {
		for _, inst := range tx.Transaction.Message.Instructions {
			if isBurnInstruction(inst) {
				return true
			}
		}
	}

	// 已知程序参与且日志出现 burn 字样
	if tx.Transaction == nil || tx.Meta == nil || len(tx.Meta.LogMessages) == 0 {
		return false
	}
	involved := false
	for _, key := range tx.Transaction.Message.AccountKeys {
		if _, ok := burnProgramIDs[key.Pubkey]; ok {
			involved = true
			break
		}
	}
	if !involved {
		return false
	}
	logs := strings.ToLower(strings.Join(tx.Meta.LogMessages, " "))
	return strings.Contains(logs, "burn")
}

func isBurnInstruction(inst solana.ParsedInstruction) bool {
	if inst.Parsed == nil {
		return false
	}
	if strings.EqualFold(inst.Parsed.Type, "burn") {
		return true
	}
	if raw, ok := inst.Parsed.Info["instruction"]; ok {
		if s, ok := raw.(string); ok && strings.EqualFold(s, "burn") {
			return true
		}
	}
	return false
}
