// Package xp 把分类后的交易结算为受上限约束的经验增量
package xp

import (
	"strings"

	"github.com/solpet-labs/solpet/app/companion/internal/classify"
)

const (
	// baseAward 每笔交易的基础经验
	baseAward = 5
	// diversityBonus 批次内首次出现的交易类型奖励
	diversityBonus = 3
	// sendBonus 主动发起交易的奖励
	sendBonus = 3
	// receiveBonus 接收类交易的奖励
	receiveBonus = 1
	// MaxPerSync 单次同步的经验上限
	MaxPerSync = 100
)

// categoryRule 交易类别到奖励的映射，表序即优先级，互斥命中
type categoryRule struct {
	keywords []string
	bonus    int
}

var categoryRules = []categoryRule{
	{keywords: []string{"nft mint", "nft purchase", "nft"}, bonus: 10},
	{keywords: []string{"swap"}, bonus: 5},
	{keywords: []string{"stake", "unstake"}, bonus: 8},
	{keywords: []string{"token transfer", "transfer"}, bonus: 1},
}

// Compute 结算一批分类交易的经验增量，结果在 [0, MaxPerSync] 内
func Compute(classifications []*classify.Classification) int {
	total := 0
	seenTypes := make(map[string]struct{})

	for _, c := range classifications {
		if c == nil {
			continue
		}
		total += baseAward

		if _, seen := seenTypes[c.Type]; !seen {
			seenTypes[c.Type] = struct{}{}
			total += diversityBonus
		}

		total += categoryBonus(c)
		total += directionBonus(c)
	}

	if total > MaxPerSync {
		return MaxPerSync
	}
	if total < 0 {
		return 0
	}
	return total
}

// directionBonus 按动作或解读文本判定交易方向，发送优先于接收
func directionBonus(c *classify.Classification) int {
	haystack := strings.ToLower(c.Type + " " + c.Summary)
	switch {
	case c.Action == classify.ActionSend,
		strings.Contains(haystack, "sent"),
		strings.Contains(haystack, "transferred to"):
		return sendBonus
	case c.Action == classify.ActionReceive,
		strings.Contains(haystack, "received"),
		strings.Contains(haystack, "transferred from"):
		return receiveBonus
	}
	return 0
}

// categoryBonus 按类型与解读文本匹配类别奖励，首个命中的规则生效
func categoryBonus(c *classify.Classification) int {
	haystack := strings.ToLower(c.Type + " " + c.Summary)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(haystack, keyword) {
				return rule.bonus
			}
		}
	}
	return 0
}
