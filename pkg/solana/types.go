package solana

import "encoding/json"

// 本文件镜像 jsonParsed 编码的 getTransaction 响应结构
// 只保留交易分类所需的字段

// ParsedTransactionResult getTransaction (jsonParsed) 响应
type ParsedTransactionResult struct {
	Slot        uint64             `json:"slot"`
	BlockTime   *int64             `json:"blockTime"`
	Meta        *ParsedMeta        `json:"meta"`
	Transaction *ParsedTransaction `json:"transaction"`
}

// ParsedTransaction 交易体
type ParsedTransaction struct {
	Signatures []string      `json:"signatures"`
	Message    ParsedMessage `json:"message"`
}

// ParsedMessage 交易消息
type ParsedMessage struct {
	AccountKeys  []ParsedAccountKey  `json:"accountKeys"`
	Instructions []ParsedInstruction `json:"instructions"`
}

// ParsedAccountKey 账户条目
type ParsedAccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

// ParsedInstruction 指令，可解析程序带 parsed 字段
type ParsedInstruction struct {
	Program   string                 `json:"program"`
	ProgramID string                 `json:"programId"`
	Parsed    *ParsedInstructionInfo `json:"parsed,omitempty"`
}

// ParsedInstructionInfo 已解析指令内容
// memo 等程序的 parsed 字段是纯字符串，此时只填充 Raw
type ParsedInstructionInfo struct {
	Type string                 `json:"type"`
	Info map[string]interface{} `json:"info"`
	Raw  string                 `json:"-"`
}

// UnmarshalJSON 兼容对象与字符串两种 parsed 编码
func (p *ParsedInstructionInfo) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Raw = s
		return nil
	}

	type alias struct {
		Type string                 `json:"type"`
		Info map[string]interface{} `json:"info"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	p.Type = a.Type
	p.Info = a.Info
	return nil
}

// ParsedMeta 交易元数据
type ParsedMeta struct {
	Err               interface{}           `json:"err"`
	LogMessages       []string              `json:"logMessages"`
	PreTokenBalances  []TokenBalance        `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance        `json:"postTokenBalances"`
	InnerInstructions []InnerInstructionSet `json:"innerInstructions"`
}

// TokenBalance 代币余额快照
type TokenBalance struct {
	AccountIndex  int         `json:"accountIndex"`
	Mint          string      `json:"mint"`
	Owner         string      `json:"owner"`
	UITokenAmount TokenAmount `json:"uiTokenAmount"`
}

// TokenAmount 代币数量
type TokenAmount struct {
	Amount         string `json:"amount"`
	Decimals       int    `json:"decimals"`
	UIAmountString string `json:"uiAmountString"`
}

// InnerInstructionSet 内部指令集合
type InnerInstructionSet struct {
	Index        int                 `json:"index"`
	Instructions []ParsedInstruction `json:"instructions"`
}

// SignatureInfo getSignaturesForAddress 条目
type SignatureInfo struct {
	Signature string  `json:"signature"`
	Slot      uint64  `json:"slot"`
	BlockTime *int64  `json:"blockTime"`
	Err       any     `json:"err"`
	Memo      *string `json:"memo"`
}
