package pipeline

import (
	"sync"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Session 一次更新流程的会话
// 每个会话持有独立的临时服务钱包，私钥只存在于内存中
type Session struct {
	mu sync.Mutex

	ID             string
	PayerPublicKey solanago.PublicKey
	ServiceWallet  *solanago.Wallet
	CreatedAt      time.Time

	stage            Stage
	failReason       string
	fundingSignature string
	estimatedCost    uint64
	metadataURI      string
	builtTransaction string
	updateSignature  string
}

// NewSession 为指定付款方创建会话并生成临时服务钱包
func NewSession(payer solanago.PublicKey) *Session {
	return &Session{
		ID:             uuid.NewString(),
		PayerPublicKey: payer,
		ServiceWallet:  solanago.NewWallet(),
		CreatedAt:      time.Now(),
		stage:          StageIdle,
	}
}

// RestoreSession 用既有服务钱包重建会话
// 服务重启后凭客户端回传的密钥材料恢复流程时使用
func RestoreSession(payer solanago.PublicKey, wallet *solanago.Wallet) *Session {
	return &Session{
		ID:             uuid.NewString(),
		PayerPublicKey: payer,
		ServiceWallet:  wallet,
		CreatedAt:      time.Now(),
		stage:          StageIdle,
	}
}

// Stage 当前阶段
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Advance 推进到指定阶段，校验通过后不再变更
// 重试成功会离开失败态并清除失败原因
func (s *Session) Advance(stage Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage.Terminal() {
		return
	}
	s.stage = stage
	if stage != StageFailed {
		s.failReason = ""
	}
}

// Fail 标记失败并记录原因
func (s *Session) Fail(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage.Terminal() {
		return
	}
	s.stage = StageFailed
	s.failReason = reason
}

// FailReason 失败原因
func (s *Session) FailReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failReason
}

// SetEstimatedCost 记录预估费用
func (s *Session) SetEstimatedCost(lamports uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimatedCost = lamports
}

// EstimatedCost 预估费用
func (s *Session) EstimatedCost() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimatedCost
}

// BindFunding 绑定资助交易签名，只允许绑定一次
func (s *Session) BindFunding(signature string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fundingSignature != "" {
		return s.fundingSignature == signature
	}
	s.fundingSignature = signature
	return true
}

// FundingSignature 资助交易签名
func (s *Session) FundingSignature() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fundingSignature
}

// SetMetadataURI 记录已上传的元数据地址
func (s *Session) SetMetadataURI(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadataURI = uri
}

// MetadataURI 元数据地址
func (s *Session) MetadataURI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadataURI
}

// SetBuiltTransaction 缓存已构造的更新交易
func (s *Session) SetBuiltTransaction(base64Tx string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builtTransaction = base64Tx
}

// BuiltTransaction 已构造的更新交易
func (s *Session) BuiltTransaction() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builtTransaction
}

// SetUpdateSignature 记录最终更新交易签名
func (s *Session) SetUpdateSignature(signature string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateSignature = signature
}

// UpdateSignature 最终更新交易签名
func (s *Session) UpdateSignature() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateSignature
}
