package solana

import "github.com/cockroachdb/errors"

var (
	// ErrNotConfirmed 交易未确认
	ErrNotConfirmed = errors.New("transaction not confirmed")

	// ErrTransactionFailed 交易已上链但执行失败
	ErrTransactionFailed = errors.New("transaction failed on chain")

	// ErrBlockhashExpired 交易在有效区块高度内未被确认
	ErrBlockhashExpired = errors.New("transaction expired: blockhash no longer valid")

	// ErrTransactionNotFound 链上查不到交易
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = errors.New("account not found")
)
