package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	solanago "github.com/gagliardetto/solana-go"

	"github.com/solpet-labs/solpet/app/companion/internal/classify"
	"github.com/solpet-labs/solpet/app/companion/internal/metrics"
	"github.com/solpet-labs/solpet/app/companion/internal/syncgate"
	"github.com/solpet-labs/solpet/app/companion/internal/xp"
	"github.com/solpet-labs/solpet/pkg/logger"
	"github.com/solpet-labs/solpet/pkg/solana"
)

// recentSignatureLimit 单次同步最多结算的交易数
const recentSignatureLimit = 20

// SyncService 经验同步服务
type SyncService struct {
	chain      ChainClient
	classifier *classify.Classifier
	metrics    *metrics.Metrics
	logger     logger.Logger
	now        func() time.Time
}

// NewSyncService 创建经验同步服务
func NewSyncService(chain ChainClient, classifier *classify.Classifier, m *metrics.Metrics, l logger.Logger) *SyncService {
	if l == nil {
		l = logger.Default()
	}
	return &SyncService{
		chain:      chain,
		classifier: classifier,
		metrics:    m,
		logger:     l.Named("service.sync"),
		now:        time.Now,
	}
}

// SyncResult 经验同步结果
type SyncResult struct {
	ExperiencePoints   int
	CanSync            bool
	HoursUntilNextSync int
	Message            string
	TransactionCount   int
	CalculatedAt       time.Time
}

// CalculateExperience 结算钱包自上次同步以来的经验增量
// 当日已同步时返回 experiencePoints=0 且 canSync=false，不访问链上
func (s *SyncService) CalculateExperience(ctx context.Context, walletAddress string, dateOfBirth, lastUpdated time.Time) (*SyncResult, error) {
	wallet, err := solanago.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid wallet address")
	}

	now := s.now()

	// 1. 同步闸门
	decision := syncgate.Evaluate(now, dateOfBirth, lastUpdated)
	if !decision.Allowed {
		s.countSync("blocked")
		return &SyncResult{
			CanSync:            false,
			HoursUntilNextSync: decision.HoursUntilNext,
			Message:            decision.Message(),
			CalculatedAt:       now,
		}, nil
	}

	// 2. 拉取最近签名，剔除执行失败与已结算过的交易
	signatures, err := s.chain.RecentSignatures(ctx, wallet, recentSignatureLimit)
	if err != nil {
		s.countSync("error")
		return nil, errors.Wrap(err, "fetch recent signatures")
	}
	fresh := filterSignatures(signatures, lastUpdated)

	// 3. 分类并结算经验
	classifications := s.classifier.ClassifyBatch(ctx, walletAddress, fresh)
	delta := xp.Compute(classifications)

	if s.metrics != nil {
		s.metrics.XPAwarded.Observe(float64(delta))
		for _, c := range classifications {
			if c != nil {
				s.metrics.Classifications.WithLabelValues(string(c.Action)).Inc()
			}
		}
	}
	s.countSync("ok")

	s.logger.Info("experience calculated",
		"wallet", walletAddress,
		"transactions", len(fresh),
		"xp_delta", delta,
	)

	return &SyncResult{
		ExperiencePoints: delta,
		CanSync:          true,
		TransactionCount: len(fresh),
		CalculatedAt:     now,
	}, nil
}

// RecentTransactions 查询钱包最近的交易签名列表
func (s *SyncService) RecentTransactions(ctx context.Context, walletAddress string) ([]solana.SignatureInfo, error) {
	wallet, err := solanago.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid wallet address")
	}
	return s.chain.RecentSignatures(ctx, wallet, recentSignatureLimit)
}

// ClassifyTransaction 分类单笔交易
func (s *SyncService) ClassifyTransaction(ctx context.Context, walletAddress, signature string) *classify.Classification {
	return s.classifier.Classify(ctx, walletAddress, signature)
}

func (s *SyncService) countSync(outcome string) {
	if s.metrics != nil {
		s.metrics.SyncRequests.WithLabelValues(outcome).Inc()
	}
}

// filterSignatures 保留执行成功且晚于上次同步的签名
func filterSignatures(infos []solana.SignatureInfo, lastUpdated time.Time) []string {
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Err != nil {
			continue
		}
		if !lastUpdated.IsZero() && info.BlockTime != nil {
			blockTime := time.Unix(*info.BlockTime, 0).UTC()
			if !blockTime.After(lastUpdated) {
				continue
			}
		}
		out = append(out, info.Signature)
	}
	return out
}
