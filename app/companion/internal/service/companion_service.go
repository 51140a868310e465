package service

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	solanago "github.com/gagliardetto/solana-go"

	"github.com/solpet-labs/solpet/app/companion/internal/model"
	"github.com/solpet-labs/solpet/pkg/logger"
	"github.com/solpet-labs/solpet/pkg/solana/mplcore"
)

// 资产账户中 owner 与 update_authority 字段的偏移
const (
	assetOwnerOffset     = 1
	assetAuthorityOffset = 33
)

// CompanionService 伙伴资产查询服务
type CompanionService struct {
	chain      ChainClient
	uploader   Uploader
	collection solanago.PublicKey
	logger     logger.Logger
}

// NewCompanionService 创建伙伴查询服务
func NewCompanionService(chain ChainClient, uploader Uploader, collection solanago.PublicKey, l logger.Logger) *CompanionService {
	if l == nil {
		l = logger.Default()
	}
	return &CompanionService{
		chain:      chain,
		uploader:   uploader,
		collection: collection,
		logger:     l.Named("service.companion"),
	}
}

// OwnershipResult 持有情况
type OwnershipResult struct {
	HasCompanion   bool
	CompanionCount int
	Assets         []string
}

// CheckOwnership 检查钱包是否持有本集合的伙伴资产
func (s *CompanionService) CheckOwnership(ctx context.Context, walletAddress string) (*OwnershipResult, error) {
	owner, err := solanago.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid wallet address")
	}

	accounts, err := s.chain.ProgramAccounts(ctx, mplcore.ProgramID, assetOwnerOffset, owner.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "fetch owned assets")
	}

	result := &OwnershipResult{}
	for address, data := range accounts {
		asset, err := mplcore.DecodeAsset(address, data)
		if err != nil {
			continue
		}
		// 仅统计归属于配置集合的资产
		if asset.UpdateAuthority.Kind != mplcore.UpdateAuthorityCollection {
			continue
		}
		if !s.collection.IsZero() && !asset.UpdateAuthority.Address.Equals(s.collection) {
			continue
		}
		result.CompanionCount++
		result.Assets = append(result.Assets, address.String())
	}
	result.HasCompanion = result.CompanionCount > 0
	return result, nil
}

// CompanionAsset 一个伙伴资产的链上与元数据视图
type CompanionAsset struct {
	Address   string
	Name      string
	URI       string
	Owner     string
	Companion *model.Companion
}

// ListCollectionAssets 枚举集合下的全部伙伴资产
func (s *CompanionService) ListCollectionAssets(ctx context.Context) ([]*CompanionAsset, error) {
	if s.collection.IsZero() {
		return nil, errors.New("collection address not configured")
	}

	match := append([]byte{byte(mplcore.UpdateAuthorityCollection)}, s.collection.Bytes()...)
	accounts, err := s.chain.ProgramAccounts(ctx, mplcore.ProgramID, assetAuthorityOffset, match)
	if err != nil {
		return nil, errors.Wrap(err, "fetch collection assets")
	}

	assets := make([]*CompanionAsset, 0, len(accounts))
	for address, data := range accounts {
		asset, err := mplcore.DecodeAsset(address, data)
		if err != nil {
			s.logger.Warn("skip undecodable asset", "address", address.String(), "error", err)
			continue
		}
		assets = append(assets, &CompanionAsset{
			Address: address.String(),
			Name:    asset.Name,
			URI:     asset.URI,
			Owner:   asset.Owner.String(),
		})
	}
	return assets, nil
}

// FetchCompanion 取资产的链上记录并解析其元数据
func (s *CompanionService) FetchCompanion(ctx context.Context, assetAddress string) (*CompanionAsset, error) {
	address, err := solanago.PublicKeyFromBase58(assetAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid asset address")
	}
	data, err := s.chain.AccountData(ctx, address)
	if err != nil {
		return nil, errors.Wrap(err, "fetch asset account")
	}
	asset, err := mplcore.DecodeAsset(address, data)
	if err != nil {
		return nil, errors.Wrap(err, "decode asset account")
	}

	result := &CompanionAsset{
		Address: assetAddress,
		Name:    asset.Name,
		URI:     asset.URI,
		Owner:   asset.Owner.String(),
	}
	if asset.URI == "" {
		return result, nil
	}

	raw, err := s.uploader.Download(ctx, asset.URI)
	if err != nil {
		return nil, errors.Wrap(err, "download metadata")
	}
	var meta model.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, errors.Wrap(err, "parse metadata")
	}
	companion, err := model.DecodeMetadata(&meta)
	if err != nil {
		return nil, errors.Wrap(err, "decode metadata")
	}
	result.Companion = companion
	return result, nil
}
