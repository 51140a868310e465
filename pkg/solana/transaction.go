package solana

import (
	"context"
	"encoding/base64"

	"github.com/cockroachdb/errors"
	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// UnsignedTransfer 未签名转账交易
type UnsignedTransfer struct {
	// Base64 wire 格式（签名位零填充），客户端反序列化后签名提交
	Base64               string
	Blockhash            solanago.Hash
	LastValidBlockHeight uint64
}

// BuildTransfer 构造 from -> to 的未签名 SOL 转账交易
// fee payer 为 from，区块哈希取最新值
func (c *Client) BuildTransfer(ctx context.Context, from, to solanago.PublicKey, lamports uint64) (*UnsignedTransfer, error) {
	blockhash, err := c.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	ix := system.NewTransferInstruction(lamports, from, to).Build()
	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{ix},
		blockhash.Hash,
		solanago.TransactionPayer(from),
	)
	if err != nil {
		return nil, errors.Wrap(err, "build transfer transaction")
	}

	encoded, err := MarshalBase64(tx)
	if err != nil {
		return nil, err
	}

	return &UnsignedTransfer{
		Base64:               encoded,
		Blockhash:            blockhash.Hash,
		LastValidBlockHeight: blockhash.LastValidBlockHeight,
	}, nil
}

// MarshalBase64 序列化交易为 base64
// 未签名的槽位零填充，保证 wire 格式的签名数量与消息头一致
func MarshalBase64(tx *solanago.Transaction) (string, error) {
	required := int(tx.Message.Header.NumRequiredSignatures)
	for len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, solanago.Signature{})
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", errors.Wrap(err, "marshal transaction")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// UnmarshalBase64 从 base64 反序列化交易
func UnmarshalBase64(txBase64 string) (*solanago.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return nil, errors.Wrap(err, "decode transaction base64")
	}
	tx, err := solanago.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal transaction")
	}
	return tx, nil
}

// PartialSign 用指定私钥在对应签名槽位签名
// 其余签名人（如客户端钱包）后续补签
func PartialSign(tx *solanago.Transaction, key solanago.PrivateKey) error {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "marshal message for signing")
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	for len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, solanago.Signature{})
	}

	pub := key.PublicKey()
	for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(pub) {
			sig, err := key.Sign(msg)
			if err != nil {
				return errors.Wrap(err, "sign message")
			}
			tx.Signatures[i] = sig
			return nil
		}
	}
	return errors.Newf("signer %s is not a required signer of the transaction", pub)
}
