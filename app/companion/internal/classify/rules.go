package classify

import (
	"strings"

	"github.com/solpet-labs/solpet/pkg/helius"
)

// overrideRule 解读文本中的关键词到动作的映射
// 表序即优先级，销毁判定先于领取/铸造
type overrideRule struct {
	keywords []string
	action   Action
}

var overrideRules = []overrideRule{
	{keywords: []string{"burn", "burned"}, action: ActionBurned},
	{keywords: []string{"claim", "mint"}, action: ActionReceive},
}

// OverrideAction 按固定字段顺序扫描解读文本，命中关键词则覆盖启发式动作
// 字段优先级：summary、type、keyPoints、additionalContext
func OverrideAction(exp *helius.Explanation) (Action, bool) {
	if exp == nil {
		return "", false
	}

	fields := []string{
		exp.Summary,
		exp.Type,
		strings.Join(exp.KeyPoints, " "),
		exp.AdditionalContext,
	}
	for _, field := range fields {
		if field == "" {
			continue
		}
		lower := strings.ToLower(field)
		for _, rule := range overrideRules {
			for _, keyword := range rule.keywords {
				if strings.Contains(lower, keyword) {
					return rule.action, true
				}
			}
		}
	}
	return "", false
}
