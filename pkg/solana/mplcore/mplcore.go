// Package mplcore 提供 Metaplex Core 程序的最小只读解码与更新指令构造
// 该程序没有官方 Go 绑定，账户布局与指令编码参照链上程序的 Borsh 定义
package mplcore

import (
	solanago "github.com/gagliardetto/solana-go"
)

// ProgramID Metaplex Core 程序地址
var ProgramID = solanago.MustPublicKeyFromBase58("CoREENxT6tW1HoK8ypY1SxRMZTcVPm7R94rH4PZNhX7d")

// 账户判别键
const (
	KeyAssetV1      uint8 = 1
	KeyCollectionV1 uint8 = 5
)

// UpdateAuthority 类型标签
const (
	UpdateAuthorityNone       uint8 = 0
	UpdateAuthorityAddress    uint8 = 1
	UpdateAuthorityCollection uint8 = 2
)

// UpdateAuthority 资产的更新权限
type UpdateAuthority struct {
	Kind    uint8
	Address solanago.PublicKey // Kind 为 Address/Collection 时有效
}

// Asset AssetV1 账户
type Asset struct {
	Address         solanago.PublicKey
	Owner           solanago.PublicKey
	UpdateAuthority UpdateAuthority
	Name            string
	URI             string
}

// Collection CollectionV1 账户
type Collection struct {
	Address     solanago.PublicKey
	Authority   solanago.PublicKey
	Name        string
	URI         string
	NumMinted   uint32
	CurrentSize uint32
}
