package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	solanago "github.com/gagliardetto/solana-go"

	"github.com/solpet-labs/solpet/app/companion/internal/metrics"
	"github.com/solpet-labs/solpet/app/companion/internal/model"
	"github.com/solpet-labs/solpet/pkg/logger"
	"github.com/solpet-labs/solpet/pkg/solana"
	"github.com/solpet-labs/solpet/pkg/solana/mplcore"
)

// inactivityThreshold 超过该时长未同步的伙伴转为低落状态
const inactivityThreshold = 3 * 24 * time.Hour

// SweepStatus 单个资产的巡检结果状态
type SweepStatus string

const (
	SweepUpdated SweepStatus = "updated"
	SweepSkipped SweepStatus = "skipped"
	SweepError   SweepStatus = "error"
)

// SweepResult 单个资产的巡检结果
type SweepResult struct {
	AssetAddress string      `json:"assetAddress"`
	Status       SweepStatus `json:"status"`
	NewMood      string      `json:"newMood,omitempty"`
	Signature    string      `json:"signature,omitempty"`
	Reason       string      `json:"reason,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// InactivityService 长期未同步伙伴的巡检服务
// 由持久权限钱包全额签名并支付，无需客户端参与
type InactivityService struct {
	companions *CompanionService
	chain      ChainClient
	uploader   Uploader
	authority  solanago.PrivateKey
	collection solanago.PublicKey
	metrics    *metrics.Metrics
	logger     logger.Logger
	now        func() time.Time
}

// NewInactivityService 创建巡检服务
func NewInactivityService(
	companions *CompanionService,
	chain ChainClient,
	uploader Uploader,
	authority solanago.PrivateKey,
	collection solanago.PublicKey,
	m *metrics.Metrics,
	l logger.Logger,
) *InactivityService {
	if l == nil {
		l = logger.Default()
	}
	return &InactivityService{
		companions: companions,
		chain:      chain,
		uploader:   uploader,
		authority:  authority,
		collection: collection,
		metrics:    m,
		logger:     l.Named("service.inactivity"),
		now:        time.Now,
	}
}

// Sweep 巡检集合内全部资产，把过期未同步的伙伴置为低落并上链
func (s *InactivityService) Sweep(ctx context.Context) ([]*SweepResult, error) {
	if len(s.authority) == 0 {
		return nil, errors.New("authority wallet not configured")
	}

	assets, err := s.companions.ListCollectionAssets(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list collection assets")
	}
	s.logger.Info("inactivity sweep started", "assets", len(assets))

	results := make([]*SweepResult, 0, len(assets))
	for _, asset := range assets {
		result := s.sweepAsset(ctx, asset)
		results = append(results, result)
		if s.metrics != nil {
			s.metrics.InactivitySweep.WithLabelValues(string(result.Status)).Inc()
		}
	}
	return results, nil
}

func (s *InactivityService) sweepAsset(ctx context.Context, asset *CompanionAsset) *SweepResult {
	result := &SweepResult{AssetAddress: asset.Address}

	if asset.URI == "" {
		result.Status = SweepSkipped
		result.Reason = "asset has no metadata URI"
		return result
	}

	raw, err := s.uploader.Download(ctx, asset.URI)
	if err != nil {
		result.Status = SweepError
		result.Error = errors.Wrap(err, "download metadata").Error()
		return result
	}
	var meta model.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		result.Status = SweepError
		result.Error = errors.Wrap(err, "parse metadata").Error()
		return result
	}
	companion, err := model.DecodeMetadata(&meta)
	if err != nil {
		result.Status = SweepError
		result.Error = errors.Wrap(err, "decode metadata").Error()
		return result
	}

	// 从未同步过的按过期处理，其余比较最后同步时间
	if !companion.LastUpdated.IsZero() && s.now().Sub(companion.LastUpdated) < inactivityThreshold {
		result.Status = SweepSkipped
		result.Reason = "recently synced"
		return result
	}
	if companion.Mood == model.MoodSad {
		result.Status = SweepSkipped
		result.Reason = "already sad"
		return result
	}

	signature, err := s.markSad(ctx, asset, companion)
	if err != nil {
		result.Status = SweepError
		result.Error = err.Error()
		return result
	}
	result.Status = SweepUpdated
	result.NewMood = model.MoodSad
	result.Signature = signature
	return result
}

// markSad 以低落状态重传元数据并提交链上更新
func (s *InactivityService) markSad(ctx context.Context, asset *CompanionAsset, companion *model.Companion) (string, error) {
	companion.Mood = model.MoodSad

	meta := model.EncodeMetadata(companion)
	receipt, err := s.uploader.UploadJSON(ctx, meta, s.authority)
	if err != nil {
		return "", errors.Wrap(err, "upload metadata")
	}
	uri := s.uploader.URI(receipt.ID)

	address, err := solanago.PublicKeyFromBase58(asset.Address)
	if err != nil {
		return "", errors.Wrap(err, "invalid asset address")
	}
	authorityKey := s.authority.PublicKey()
	instruction, err := mplcore.NewUpdateV1Instruction(mplcore.UpdateParams{
		Asset:      address,
		Collection: s.collection,
		Payer:      authorityKey,
		NewName:    companion.Name,
		NewURI:     uri,
	})
	if err != nil {
		return "", errors.Wrap(err, "build update instruction")
	}

	blockhash, err := s.chain.LatestBlockhash(ctx)
	if err != nil {
		return "", errors.Wrap(err, "fetch latest blockhash")
	}
	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{instruction},
		blockhash.Hash,
		solanago.TransactionPayer(authorityKey),
	)
	if err != nil {
		return "", errors.Wrap(err, "assemble transaction")
	}
	if err := solana.PartialSign(tx, s.authority); err != nil {
		return "", errors.Wrap(err, "sign transaction")
	}
	encoded, err := solana.MarshalBase64(tx)
	if err != nil {
		return "", errors.Wrap(err, "encode transaction")
	}

	sig, err := s.chain.SendRawTransaction(ctx, encoded)
	if err != nil {
		return "", errors.Wrap(err, "submit transaction")
	}
	if err := s.chain.ConfirmTransaction(ctx, sig, blockhash.LastValidBlockHeight); err != nil {
		return "", errors.Wrap(err, "confirm transaction")
	}

	s.logger.Info("inactive companion updated",
		"asset", asset.Address,
		"signature", sig.String(),
	)
	return sig.String(), nil
}
