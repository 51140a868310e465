package solana

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/solpet-labs/solpet/pkg/logger"
)

// Client 链上客户端，显式构造、依赖注入，进程内构造一次
// 所有读调用都带超时与有界重试，不做隐式缓存
type Client struct {
	rpc    *rpc.Client
	config *Config
	logger logger.Logger
}

// NewClient 创建链上客户端
func NewClient(cfg *Config, l logger.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.Default()
	}

	return &Client{
		rpc:    rpc.New(cfg.RPCURL),
		config: cfg,
		logger: l.Named("solana.client"),
	}, nil
}

// Blockhash 最新区块哈希信息
type Blockhash struct {
	Hash                 solanago.Hash
	LastValidBlockHeight uint64
}

// LatestBlockhash 获取最新区块哈希
func (c *Client) LatestBlockhash(ctx context.Context) (*Blockhash, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, errors.Wrap(err, "get latest blockhash")
	}
	return &Blockhash{
		Hash:                 out.Value.Blockhash,
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
	}, nil
}

// Balance 查询账户余额（lamports）
func (c *Client) Balance(ctx context.Context, account solanago.PublicKey) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	out, err := c.rpc.GetBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, errors.Wrapf(err, "get balance for %s", account)
	}
	return out.Value, nil
}

// BlockHeight 当前区块高度
func (c *Client) BlockHeight(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	height, err := c.rpc.GetBlockHeight(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, errors.Wrap(err, "get block height")
	}
	return height, nil
}

// IsConfirmed 查询签名是否达到 confirmed 承诺级别
// 交易执行失败时返回 ErrTransactionFailed
func (c *Client) IsConfirmed(ctx context.Context, sig solanago.Signature) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return false, errors.Wrap(err, "get signature status")
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return false, nil
	}

	status := out.Value[0]
	if status.Err != nil {
		return false, errors.Wrapf(ErrTransactionFailed, "%v", status.Err)
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return true, nil
	default:
		return false, nil
	}
}

// ConfirmTransaction 等待交易确认
// 使用最新区块哈希的有效高度判定过期，而不是固定休眠
func (c *Client) ConfirmTransaction(ctx context.Context, sig solanago.Signature, lastValidBlockHeight uint64) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.config.ConfirmPollInterval)
	defer ticker.Stop()

	for {
		confirmed, err := c.IsConfirmed(ctx, sig)
		if err != nil && errors.Is(err, ErrTransactionFailed) {
			return err
		}
		if confirmed {
			return nil
		}

		height, err := c.BlockHeight(ctx)
		if err == nil && height > lastValidBlockHeight {
			return errors.Wrapf(ErrBlockhashExpired, "signature %s", sig)
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ErrNotConfirmed, "signature %s: %v", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

// VerifySignature 校验签名是否成功上链
// 签名状态查询抛错时回退到完整交易查询，检查无错误字段
func (c *Client) VerifySignature(ctx context.Context, sig solanago.Signature) error {
	confirmed, err := c.IsConfirmed(ctx, sig)
	if err == nil {
		if !confirmed {
			return errors.Wrapf(ErrNotConfirmed, "signature %s", sig)
		}
		return nil
	}
	if errors.Is(err, ErrTransactionFailed) {
		return err
	}

	c.logger.Warn("signature status lookup failed, falling back to transaction fetch",
		"signature", sig.String(),
		"error", err,
	)

	fetchCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	maxVersion := uint64(0)
	tx, err := c.rpc.GetTransaction(fetchCtx, sig, &rpc.GetTransactionOpts{
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return errors.Wrapf(ErrTransactionNotFound, "signature %s: %v", sig, err)
	}
	if tx == nil || tx.Meta == nil {
		return errors.Wrapf(ErrTransactionNotFound, "signature %s", sig)
	}
	if tx.Meta.Err != nil {
		return errors.Wrapf(ErrTransactionFailed, "%v", tx.Meta.Err)
	}
	return nil
}

// RecentSignatures 查询钱包最近的交易签名
func (c *Client) RecentSignatures(ctx context.Context, wallet solanago.PublicKey, limit int) ([]SignatureInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	out, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, wallet, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get signatures for %s", wallet)
	}

	infos := make([]SignatureInfo, 0, len(out))
	for _, s := range out {
		info := SignatureInfo{
			Signature: s.Signature.String(),
			Slot:      s.Slot,
			Err:       s.Err,
			Memo:      s.Memo,
		}
		if s.BlockTime != nil {
			t := s.BlockTime.Time().Unix()
			info.BlockTime = &t
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ParsedTransaction 以 jsonParsed 编码获取完整交易
func (c *Client) ParsedTransaction(ctx context.Context, sig solanago.Signature) (*ParsedTransactionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	params := []interface{}{
		sig.String(),
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"commitment":                     string(rpc.CommitmentConfirmed),
			"maxSupportedTransactionVersion": 0,
		},
	}

	var out ParsedTransactionResult
	if err := c.rpc.RPCCallForInto(ctx, &out, "getTransaction", params); err != nil {
		return nil, errors.Wrapf(err, "get parsed transaction %s", sig)
	}
	if out.Transaction == nil {
		return nil, errors.Wrapf(ErrTransactionNotFound, "signature %s", sig)
	}
	return &out, nil
}

// SendRawTransaction 提交 base64 编码的已签名交易
func (c *Client) SendRawTransaction(ctx context.Context, txBase64 string) (solanago.Signature, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	sig, err := c.rpc.SendEncodedTransactionWithOpts(ctx, txBase64, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solanago.Signature{}, errors.Wrap(err, "send raw transaction")
	}
	return sig, nil
}

// AccountData 获取账户的原始二进制数据
func (c *Client) AccountData(ctx context.Context, account solanago.PublicKey) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	out, err := c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, errors.Wrapf(ErrAccountNotFound, "account %s", account)
		}
		return nil, errors.Wrapf(err, "get account info for %s", account)
	}
	if out.Value == nil {
		return nil, errors.Wrapf(ErrAccountNotFound, "account %s", account)
	}
	return out.Value.Data.GetBinary(), nil
}

// ProgramAccounts 按 memcmp 过滤器查询程序账户
func (c *Client) ProgramAccounts(ctx context.Context, program solanago.PublicKey, offset uint64, match []byte) (map[solanago.PublicKey][]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	out, err := c.rpc.GetProgramAccountsWithOpts(ctx, program, &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: offset,
					Bytes:  solanago.Base58(match),
				},
			},
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get program accounts for %s", program)
	}

	accounts := make(map[solanago.PublicKey][]byte, len(out))
	for _, keyed := range out {
		accounts[keyed.Pubkey] = keyed.Account.Data.GetBinary()
	}
	return accounts, nil
}
