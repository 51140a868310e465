package pipeline

import (
	"sync"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/solpet-labs/solpet/pkg/logger"
)

const (
	// sessionTTL 会话最长存活时间，超时后连同钱包私钥一起丢弃
	sessionTTL = 30 * time.Minute
	// reapInterval 过期清理周期
	reapInterval = time.Minute
)

// Registry 在内存中登记进行中的会话
// 同时按会话 ID 与资助签名索引，保证同一笔资助不会被重复消费
type Registry struct {
	mu        sync.RWMutex
	byID      map[string]*Session
	byFunding map[string]*Session
	byWallet  map[solanago.PublicKey]*Session

	logger logger.Logger
	stop   chan struct{}
	once   sync.Once
}

// NewRegistry 创建会话登记表并启动过期清理
func NewRegistry(l logger.Logger) *Registry {
	if l == nil {
		l = logger.Default()
	}
	r := &Registry{
		byID:      make(map[string]*Session),
		byFunding: make(map[string]*Session),
		byWallet:  make(map[solanago.PublicKey]*Session),
		logger:    l.Named("pipeline.registry"),
		stop:      make(chan struct{}),
	}
	go r.reapLoop()
	return r
}

// Create 创建并登记新会话
func (r *Registry) Create(payer solanago.PublicKey) *Session {
	session := NewSession(payer)
	r.register(session)
	return session
}

// Restore 用既有服务钱包重建并登记会话
func (r *Registry) Restore(payer solanago.PublicKey, wallet *solanago.Wallet) *Session {
	session := RestoreSession(payer, wallet)
	r.register(session)
	return session
}

func (r *Registry) register(session *Session) {
	r.mu.Lock()
	r.byID[session.ID] = session
	r.byWallet[session.ServiceWallet.PublicKey()] = session
	r.mu.Unlock()
}

// GetByWallet 按会话的服务钱包公钥查找
func (r *Registry) GetByWallet(wallet solanago.PublicKey) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byWallet[wallet]
	return session, ok
}

// Get 按会话 ID 查找
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byID[id]
	return session, ok
}

// GetByFunding 按资助签名查找
func (r *Registry) GetByFunding(signature string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byFunding[signature]
	return session, ok
}

// BindFunding 把资助签名绑定到会话
// 签名已被其它会话占用、或会话已绑定不同签名时返回 false
func (r *Registry) BindFunding(session *Session, signature string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byFunding[signature]; ok {
		return existing == session
	}
	if !session.BindFunding(signature) {
		return false
	}
	r.byFunding[signature] = session
	return true
}

// Remove 注销会话
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.byWallet, session.ServiceWallet.PublicKey())
	if sig := session.FundingSignature(); sig != "" {
		delete(r.byFunding, sig)
	}
}

// Close 停止清理循环
func (r *Registry) Close() {
	r.once.Do(func() { close(r.stop) })
}

func (r *Registry) reapLoop() {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.reap(now)
		}
	}
}

func (r *Registry) reap(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, session := range r.byID {
		if now.Sub(session.CreatedAt) < sessionTTL {
			continue
		}
		delete(r.byID, id)
		delete(r.byWallet, session.ServiceWallet.PublicKey())
		if sig := session.FundingSignature(); sig != "" {
			delete(r.byFunding, sig)
		}
		r.logger.Info("reaped expired pipeline session",
			"session_id", id,
			"stage", session.Stage().String(),
		)
	}
}
