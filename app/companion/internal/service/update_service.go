package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	solanago "github.com/gagliardetto/solana-go"

	"github.com/solpet-labs/solpet/app/companion/internal/gameconfig"
	"github.com/solpet-labs/solpet/app/companion/internal/metrics"
	"github.com/solpet-labs/solpet/app/companion/internal/model"
	"github.com/solpet-labs/solpet/app/companion/internal/pipeline"
	"github.com/solpet-labs/solpet/pkg/logger"
	"github.com/solpet-labs/solpet/pkg/solana"
	"github.com/solpet-labs/solpet/pkg/solana/mplcore"
)

const (
	// metadataSizeEstimate 元数据体积上限估计，费用按此报价
	metadataSizeEstimate = 5000
	// rentSafetyMargin 在上传报价外附加的租金豁免余量（0.01 SOL）
	rentSafetyMargin = 10_000_000
	// minFundedBalance 视为资助到账的最低余额（0.005 SOL）
	minFundedBalance = 5_000_000
	// fundingRecheckDelay 余额未见时的一次性复查延迟
	fundingRecheckDelay = 2 * time.Second
)

// ErrFundingNotVisible 资助已确认但余额尚未可见
var ErrFundingNotVisible = errors.New("funding transaction confirmed but funds not available in server wallet")

// ErrFundingConsumed 资助签名已被其它流程消费
var ErrFundingConsumed = errors.New("funding transaction already consumed by another update")

// UpdateService 伙伴元数据更新流程服务
type UpdateService struct {
	chain      ChainClient
	uploader   Uploader
	registry   *pipeline.Registry
	store      *gameconfig.Store
	authority  solanago.PrivateKey
	collection solanago.PublicKey
	metrics    *metrics.Metrics
	logger     logger.Logger
	now        func() time.Time
	sleep      func(context.Context, time.Duration) error
}

// NewUpdateService 创建更新流程服务
// authority 为持有集合更新权限的持久服务钱包，collection 可为零值
func NewUpdateService(
	chain ChainClient,
	uploader Uploader,
	registry *pipeline.Registry,
	store *gameconfig.Store,
	authority solanago.PrivateKey,
	collection solanago.PublicKey,
	m *metrics.Metrics,
	l logger.Logger,
) *UpdateService {
	if l == nil {
		l = logger.Default()
	}
	return &UpdateService{
		chain:      chain,
		uploader:   uploader,
		registry:   registry,
		store:      store,
		authority:  authority,
		collection: collection,
		metrics:    m,
		logger:     l.Named("service.update"),
		now:        time.Now,
		sleep:      sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// FundingResult 资助准备结果
type FundingResult struct {
	SessionID          string
	FundingTransaction string
	EstimatedCost      uint64
	ServerWallet       string
	ServerSecretKey    string
}

// PrepareFunding 为一次更新流程准备资助交易
// 为会话生成全新服务钱包，返回未签名的客户端转账交易与钱包密钥材料
func (s *UpdateService) PrepareFunding(ctx context.Context, walletAddress string) (*FundingResult, error) {
	payer, err := solanago.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid wallet address")
	}

	// 1. 报价
	price, err := s.uploader.Price(ctx, metadataSizeEstimate)
	if err != nil {
		return nil, errors.Wrap(err, "estimate upload price")
	}
	amount := price + rentSafetyMargin

	// 2. 建会话与转账交易
	session := s.registry.Create(payer)
	serviceKey := session.ServiceWallet.PublicKey()

	transfer, err := s.chain.BuildTransfer(ctx, payer, serviceKey, amount)
	if err != nil {
		s.registry.Remove(session.ID)
		return nil, errors.Wrap(err, "build funding transfer")
	}

	session.SetEstimatedCost(amount)
	s.advance(session, pipeline.StageFundingPrepared)

	s.logger.Info("funding prepared",
		"session_id", session.ID,
		"payer", walletAddress,
		"service_wallet", serviceKey.String(),
		"lamports", amount,
	)

	return &FundingResult{
		SessionID:          session.ID,
		FundingTransaction: transfer.Base64,
		EstimatedCost:      amount,
		ServerWallet:       serviceKey.String(),
		ServerSecretKey:    session.ServiceWallet.PrivateKey.String(),
	}, nil
}

// BuildUpdateRequest 构建更新交易的请求
type BuildUpdateRequest struct {
	AssetAddress     string
	Companion        *model.Companion
	PayerPublicKey   string
	ServerSecretKey  string
	FundingSignature string
}

// BuildUpdateResult 更新交易构建结果
type BuildUpdateResult struct {
	Transaction string
	MetadataURI string
}

// BuildUpdate 确认资助、上传新元数据并构建链上更新交易
// 同一资助签名重复调用返回已构建的结果，不重复扣费
func (s *UpdateService) BuildUpdate(ctx context.Context, req *BuildUpdateRequest) (*BuildUpdateResult, error) {
	asset, err := solanago.PublicKeyFromBase58(req.AssetAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid asset address")
	}
	payer, err := solanago.PublicKeyFromBase58(req.PayerPublicKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid payer public key")
	}
	serviceKey, err := solanago.PrivateKeyFromBase58(req.ServerSecretKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid server secret key")
	}
	fundingSig, err := solanago.SignatureFromBase58(req.FundingSignature)
	if err != nil {
		return nil, errors.Wrap(err, "invalid funding signature")
	}
	if req.Companion == nil {
		return nil, errors.New("companion data is required")
	}

	// 1. 定位会话；服务重启后用回传的密钥材料恢复
	session, ok := s.registry.GetByFunding(req.FundingSignature)
	if ok {
		// 签名已绑定到别的会话钱包时拒绝复用
		if !session.ServiceWallet.PublicKey().Equals(serviceKey.PublicKey()) {
			return nil, ErrFundingConsumed
		}
		if built := session.BuiltTransaction(); built != "" {
			return &BuildUpdateResult{Transaction: built, MetadataURI: session.MetadataURI()}, nil
		}
	} else {
		session, ok = s.registry.GetByWallet(serviceKey.PublicKey())
		if !ok {
			session = s.registry.Restore(payer, &solanago.Wallet{PrivateKey: serviceKey})
		}
	}

	// 2. 校验资助交易并独占绑定
	if err := s.chain.VerifySignature(ctx, fundingSig); err != nil {
		return nil, errors.Wrap(err, "funding transaction failed or not confirmed")
	}
	if !s.registry.BindFunding(session, req.FundingSignature) {
		return nil, ErrFundingConsumed
	}
	s.advance(session, pipeline.StageFundingSubmitted)

	// 3. 确认余额到账，传播延迟时固定延时复查一次
	if err := s.ensureFunded(ctx, session.ServiceWallet.PublicKey()); err != nil {
		session.Fail(err.Error())
		return nil, err
	}
	s.advance(session, pipeline.StageFundingConfirmed)

	// 4. 结算形象与元数据并上传
	uri, err := s.uploadMetadata(ctx, req.Companion, session.ServiceWallet.PrivateKey)
	if err != nil {
		session.Fail(err.Error())
		return nil, err
	}
	session.SetMetadataURI(uri)
	s.advance(session, pipeline.StageMetadataUploaded)

	// 5. 构建链上更新交易
	built, err := s.buildUpdateTransaction(ctx, asset, payer, req.Companion.Name, uri)
	if err != nil {
		session.Fail(err.Error())
		return nil, err
	}
	session.SetBuiltTransaction(built)
	s.advance(session, pipeline.StageUpdateTxBuilt)

	s.logger.Info("update transaction built",
		"session_id", session.ID,
		"asset", req.AssetAddress,
		"metadata_uri", uri,
	)
	return &BuildUpdateResult{Transaction: built, MetadataURI: uri}, nil
}

// ensureFunded 校验服务钱包余额，未见资金时复查一次
func (s *UpdateService) ensureFunded(ctx context.Context, serviceWallet solanago.PublicKey) error {
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

// uploadMetadata 结算形象与进度字段后把元数据上链存储
func (s *UpdateService) uploadMetadata(ctx context.Context, companion *model.Companion, signer solanago.PrivateKey) (string, error) {
	cfg := s.store.Current()

	companionType := gameconfig.TypeFromDescription(companion.Description)
	if image := cfg.CompanionImage(companionType, companion.Evolution); image != "" {
		companion.Image = image
	}
	companion.XPForNextLevel = cfg.XPForNextLevel(companion.Level, companion.Experience)
	companion.LastUpdated = s.now().UTC()

	meta := model.EncodeMetadata(companion)

	start := time.Now()
	receipt, err := s.uploader.UploadJSON(ctx, meta, signer)
	if err != nil {
		return "", errors.Wrap(err, "upload metadata")
	}
	if s.metrics != nil {
		s.metrics.UploadDuration.Observe(time.Since(start).Seconds())
	}
	return s.uploader.URI(receipt.ID), nil
}

// buildUpdateTransaction 取链上资产与集合，构建待客户端补签的更新交易
func (s *UpdateService) buildUpdateTransaction(ctx context.Context, asset, payer solanago.PublicKey, newName, newURI string) (string, error) {
	assetData, err := s.chain.AccountData(ctx, asset)
	if err != nil {
		return "", errors.Wrap(err, "fetch asset account")
	}
	assetRecord, err := mplcore.DecodeAsset(asset, assetData)
	if err != nil {
		return "", errors.Wrap(err, "decode asset account")
	}

	collection := s.collection
	if assetRecord.UpdateAuthority.Kind == mplcore.UpdateAuthorityCollection {
		collection = assetRecord.UpdateAuthority.Address
	}
	if !collection.IsZero() {
		collectionData, err := s.chain.AccountData(ctx, collection)
		if err != nil {
			return "", errors.Wrap(err, "fetch collection data")
		}
		if _, err := mplcore.DecodeCollection(collection, collectionData); err != nil {
			return "", errors.Wrap(err, "decode collection data")
		}
	}

	params := mplcore.UpdateParams{
		Asset:      asset,
		Collection: collection,
		Payer:      payer,
		NewName:    newName,
		NewURI:     newURI,
	}
	var authorityKey solanago.PublicKey
	if len(s.authority) > 0 {
		authorityKey = s.authority.PublicKey()
		params.Authority = authorityKey
	}

	instruction, err := mplcore.NewUpdateV1Instruction(params)
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
		solanago.TransactionPayer(payer),
	)
	if err != nil {
		return "", errors.Wrap(err, "assemble transaction")
	}

	// 服务端先以更新权限补签，客户端作为付款方补签后提交
	if len(s.authority) > 0 && !authorityKey.Equals(payer) {
		if err := solana.PartialSign(tx, s.authority); err != nil {
			return "", errors.Wrap(err, "authority partial sign")
		}
	}

	return solana.MarshalBase64(tx)
}

// VerifyUpdate 校验更新交易已确认
func (s *UpdateService) VerifyUpdate(ctx context.Context, signature, assetAddress string) error {
	sig, err := solanago.SignatureFromBase58(signature)
	if err != nil {
		return errors.Wrap(err, "invalid signature")
	}
	if err := s.chain.VerifySignature(ctx, sig); err != nil {
		return err
	}

	if session, ok := s.registry.GetByFunding(signature); ok {
		session.SetUpdateSignature(signature)
		s.advance(session, pipeline.StageVerified)
	}
	s.logger.Info("update verified", "signature", signature, "asset", assetAddress)
	return nil
}

// FundingStatus 资助状态，Balance 以 SOL 计
type FundingStatus struct {
	Confirmed bool
	Funded    bool
	Balance   float64
	Message   string
}

// CheckFunding 查询资助交易与服务钱包余额状态
// 会话钱包优先按资助签名从注册表解析，未绑定时退回显式地址
func (s *UpdateService) CheckFunding(ctx context.Context, fundingSignature, serverWallet string) (*FundingStatus, error) {
	sig, err := solanago.SignatureFromBase58(fundingSignature)
	if err != nil {
		return nil, errors.Wrap(err, "invalid funding signature")
	}

	var wallet solanago.PublicKey
	if s.registry != nil {
		if session, ok := s.registry.GetByFunding(fundingSignature); ok {
			wallet = session.ServiceWallet.PublicKey()
		}
	}
	if wallet.IsZero() {
		if serverWallet == "" {
			return nil, errors.New("funding signature not bound to a session, server wallet address required")
		}
		wallet, err = solanago.PublicKeyFromBase58(serverWallet)
		if err != nil {
			return nil, errors.Wrap(err, "invalid server wallet address")
		}
	}

	confirmed, err := s.chain.IsConfirmed(ctx, sig)
	if err != nil || !confirmed {
		return &FundingStatus{Message: "Transaction not yet confirmed"}, nil
	}

	balance, err := s.chain.Balance(ctx, wallet)
	if err != nil {
		return nil, errors.Wrap(err, "check server wallet balance")
	}
	return &FundingStatus{
		Confirmed: true,
		Funded:    balance >= minFundedBalance,
		Balance:   float64(balance) / float64(solanago.LAMPORTS_PER_SOL),
	}, nil
}

// UploadStatus 元数据可达性状态
type UploadStatus struct {
	Confirmed bool
	Message   string
}

// CheckUpload 检查元数据是否已可通过网关读取
func (s *UpdateService) CheckUpload(ctx context.Context, metadataURI string) *UploadStatus {
	if _, err := s.uploader.Download(ctx, metadataURI); err != nil {
		return &UploadStatus{Confirmed: false, Message: "Metadata not yet accessible"}
	}
	return &UploadStatus{Confirmed: true, Message: "Metadata is accessible"}
}

// SubmitResult 交易提交结果
type SubmitResult struct {
	Signature string
}

// SubmitTransaction 代客户端提交已签名交易并等待确认
func (s *UpdateService) SubmitTransaction(ctx context.Context, signedTransaction string) (*SubmitResult, error) {
	sig, err := s.chain.SendRawTransaction(ctx, signedTransaction)
	if err != nil {
		return nil, errors.Wrap(err, "submit transaction")
	}

	blockhash, err := s.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch latest blockhash")
	}
	if err := s.chain.ConfirmTransaction(ctx, sig, blockhash.LastValidBlockHeight); err != nil {
		return nil, errors.Wrap(err, "confirm transaction")
	}
	return &SubmitResult{Signature: sig.String()}, nil
}

func (s *UpdateService) advance(session *pipeline.Session, stage pipeline.Stage) {
	session.Advance(stage)
	if s.metrics != nil {
		s.metrics.PipelineStages.WithLabelValues(stage.String()).Inc()
	}
}
