package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	solanago "github.com/gagliardetto/solana-go"

	"github.com/solpet-labs/solpet/app/companion/internal/metrics"
	"github.com/solpet-labs/solpet/app/companion/internal/model"
	"github.com/solpet-labs/solpet/app/companion/internal/pipeline"
	"github.com/solpet-labs/solpet/pkg/logger"
)

// MintService 伙伴铸造准备服务
// 负责资助与元数据上传，铸造本身由客户端持有的钱包完成
type MintService struct {
	chain    ChainClient
	uploader Uploader
	registry *pipeline.Registry
	metrics  *metrics.Metrics
	logger   logger.Logger
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// NewMintService 创建铸造准备服务
func NewMintService(chain ChainClient, uploader Uploader, registry *pipeline.Registry, m *metrics.Metrics, l logger.Logger) *MintService {
	if l == nil {
		l = logger.Default()
	}
	return &MintService{
		chain:    chain,
		uploader: uploader,
		registry: registry,
		metrics:  m,
		logger:   l.Named("service.mint"),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// PrepareFunding 为铸造流程准备资助交易，流程与更新一致
func (s *MintService) PrepareFunding(ctx context.Context, walletAddress string) (*FundingResult, error) {
	payer, err := solanago.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid wallet address")
	}

	price, err := s.uploader.Price(ctx, metadataSizeEstimate)
	if err != nil {
		return nil, errors.Wrap(err, "estimate upload price")
	}
	amount := price + rentSafetyMargin

	session := s.registry.Create(payer)
	serviceKey := session.ServiceWallet.PublicKey()

	transfer, err := s.chain.BuildTransfer(ctx, payer, serviceKey, amount)
	if err != nil {
		s.registry.Remove(session.ID)
		return nil, errors.Wrap(err, "build funding transfer")
	}

	session.SetEstimatedCost(amount)
	session.Advance(pipeline.StageFundingPrepared)

	return &FundingResult{
		SessionID:          session.ID,
		FundingTransaction: transfer.Base64,
		EstimatedCost:      amount,
		ServerWallet:       serviceKey.String(),
		ServerSecretKey:    session.ServiceWallet.PrivateKey.String(),
	}, nil
}

// MintUploadRequest 铸造元数据上传请求
type MintUploadRequest struct {
	WalletAddress    string
	Companion        *model.Companion
	ServerSecretKey  string
	FundingSignature string
}

// UploadMetadata 确认资助后上传铸造用元数据，返回元数据地址
func (s *MintService) UploadMetadata(ctx context.Context, req *MintUploadRequest) (string, error) {
	payer, err := solanago.PublicKeyFromBase58(req.WalletAddress)
	if err != nil {
		return "", errors.Wrap(err, "invalid wallet address")
	}
	serviceKey, err := solanago.PrivateKeyFromBase58(req.ServerSecretKey)
	if err != nil {
		return "", errors.Wrap(err, "invalid server secret key")
	}
	fundingSig, err := solanago.SignatureFromBase58(req.FundingSignature)
	if err != nil {
		return "", errors.Wrap(err, "invalid funding signature")
	}
	if req.Companion == nil {
		return "", errors.New("companion data is required")
	}

	session, ok := s.registry.GetByFunding(req.FundingSignature)
	if ok {
		if !session.ServiceWallet.PublicKey().Equals(serviceKey.PublicKey()) {
			return "", ErrFundingConsumed
		}
		if uri := session.MetadataURI(); uri != "" {
			return uri, nil
		}
	} else {
		session, ok = s.registry.GetByWallet(serviceKey.PublicKey())
		if !ok {
			session = s.registry.Restore(payer, &solanago.Wallet{PrivateKey: serviceKey})
		}
	}

	if err := s.chain.VerifySignature(ctx, fundingSig); err != nil {
		return "", errors.Wrap(err, "funding transaction not confirmed")
	}
	if !s.registry.BindFunding(session, req.FundingSignature) {
		return "", ErrFundingConsumed
	}
	if err := s.ensureFunded(ctx, session.ServiceWallet.PublicKey()); err != nil {
		session.Fail(err.Error())
		return "", err
	}
	session.Advance(pipeline.StageFundingConfirmed)

	// 铸造时出生与最后更新写入同一时刻
	born := s.now().UTC()
	req.Companion.DateOfBirth = born
	req.Companion.LastUpdated = born
	req.Companion.Mood = model.MoodHappy

	meta := model.EncodeMetadata(req.Companion)
	receipt, err := s.uploader.UploadJSON(ctx, meta, session.ServiceWallet.PrivateKey)
	if err != nil {
		session.Fail(err.Error())
		return "", errors.Wrap(err, "upload mint metadata")
	}
	uri := s.uploader.URI(receipt.ID)
	session.SetMetadataURI(uri)
	session.Advance(pipeline.StageMetadataUploaded)

	s.logger.Info("mint metadata uploaded",
		"wallet", req.WalletAddress,
		"metadata_uri", uri,
	)
	return uri, nil
}

// ensureFunded 与更新流程相同的余额确认逻辑
func (s *MintService) ensureFunded(ctx context.Context, serviceWallet solanago.PublicKey) error {
	balance, err := s.chain.Balance(ctx, serviceWallet)
	if err != nil {
		return errors.Wrap(err, "check service wallet balance")
	}
	if balance >= minFundedBalance {
		return nil
	}
	if err := s.sleep(ctx, fundingRecheckDelay); err != nil {
		return err
	}
	balance, err = s.chain.Balance(ctx, serviceWallet)
	if err != nil {
		return errors.Wrap(err, "recheck service wallet balance")
	}
	if balance < minFundedBalance {
		return ErrFundingNotVisible
	}
	return nil
}

// VerifyMint 校验铸造交易已确认
func (s *MintService) VerifyMint(ctx context.Context, signature string) error {
	sig, err := solanago.SignatureFromBase58(signature)
	if err != nil {
		return errors.Wrap(err, "invalid signature")
	}
	return s.chain.VerifySignature(ctx, sig)
}
