// Package service 实现伙伴服务的业务逻辑
package service

import (
	"context"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/solpet-labs/solpet/app/companion/internal/classify"
	"github.com/solpet-labs/solpet/pkg/irys"
	"github.com/solpet-labs/solpet/pkg/solana"
)

// ChainClient 业务层依赖的链上操作
type ChainClient interface {
	Balance(ctx context.Context, account solanago.PublicKey) (uint64, error)
	VerifySignature(ctx context.Context, sig solanago.Signature) error
	IsConfirmed(ctx context.Context, sig solanago.Signature) (bool, error)
	ConfirmTransaction(ctx context.Context, sig solanago.Signature, lastValidBlockHeight uint64) error
	RecentSignatures(ctx context.Context, wallet solanago.PublicKey, limit int) ([]solana.SignatureInfo, error)
	ParsedTransaction(ctx context.Context, sig solanago.Signature) (*solana.ParsedTransactionResult, error)
	BuildTransfer(ctx context.Context, from, to solanago.PublicKey, lamports uint64) (*solana.UnsignedTransfer, error)
	LatestBlockhash(ctx context.Context) (*solana.Blockhash, error)
	AccountData(ctx context.Context, account solanago.PublicKey) ([]byte, error)
	ProgramAccounts(ctx context.Context, program solanago.PublicKey, offset uint64, match []byte) (map[solanago.PublicKey][]byte, error)
	SendRawTransaction(ctx context.Context, txBase64 string) (solanago.Signature, error)
}

// Uploader 元数据永久存储能力
type Uploader interface {
	Price(ctx context.Context, size int) (uint64, error)
	UploadJSON(ctx context.Context, v any, signer solanago.PrivateKey, extraTags ...irys.Tag) (*irys.UploadReceipt, error)
	URI(id string) string
	Download(ctx context.Context, uri string) ([]byte, error)
}

// chainReader 把分类器的按签名字符串读取适配到链上客户端
type chainReader struct {
	chain ChainClient
}

// NewChainReader 创建分类器使用的链上读取适配器
func NewChainReader(chain ChainClient) classify.ChainReader {
	return chainReader{chain: chain}
}

func (r chainReader) ParsedTransaction(ctx context.Context, signature string) (*solana.ParsedTransactionResult, error) {
	sig, err := solanago.SignatureFromBase58(signature)
	if err != nil {
		return nil, err
	}
	return r.chain.ParsedTransaction(ctx, sig)
}
