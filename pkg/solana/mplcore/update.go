package mplcore

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

// updateV1Discriminator UpdateV1 指令判别码
const updateV1Discriminator uint8 = 15

// noopProgramID SPL Noop 日志包装程序
var noopProgramID = solanago.MustPublicKeyFromBase58("noopb9bkMVfRPU8AsbpTUg8AQkHtKwMYZiFUjNRtMmV")

// UpdateParams UpdateV1 指令参数
type UpdateParams struct {
	Asset      solanago.PublicKey
	Collection solanago.PublicKey // 资产属于集合时必填，否则留零值
	Payer      solanago.PublicKey
	Authority  solanago.PublicKey // 更新权限与 payer 不同时必填
	NewName    string
	NewURI     string
}

// NewUpdateV1Instruction 构造 UpdateV1 指令
// 可选账户缺省时按程序约定以 ProgramID 占位
func NewUpdateV1Instruction(params UpdateParams) (solanago.Instruction, error) {
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)

	if err := enc.WriteUint8(updateV1Discriminator); err != nil {
		return nil, err
	}
	if err := writeOptionString(enc, params.NewName); err != nil {
		return nil, err
	}
	if err := writeOptionString(enc, params.NewURI); err != nil {
		return nil, err
	}
	// newUpdateAuthority: Option::None
	if err := enc.WriteUint8(0); err != nil {
		return nil, err
	}

	collection := params.Collection
	if collection.IsZero() {
		collection = ProgramID
	}
	authority := ProgramID
	authoritySigns := false
	if !params.Authority.IsZero() && !params.Authority.Equals(params.Payer) {
		authority = params.Authority
		authoritySigns = true
	}

	metas := solanago.AccountMetaSlice{
		solanago.Meta(params.Asset).WRITE(),
		solanago.Meta(collection),
		solanago.Meta(params.Payer).SIGNER().WRITE(),
		solanago.Meta(authority),
		solanago.Meta(ProgramID), // new collection：不支持迁移集合
		solanago.Meta(solanago.SystemProgramID),
		solanago.Meta(noopProgramID),
	}
	if authoritySigns {
		metas[3] = solanago.Meta(authority).SIGNER()
	}

	return solanago.NewInstruction(ProgramID, metas, buf.Bytes()), nil
}

// writeOptionString 编码 Borsh Option<String>
func writeOptionString(enc *bin.Encoder, s string) error {
	if s == "" {
		return enc.WriteUint8(0)
	}
	if err := enc.WriteUint8(1); err != nil {
		return err
	}
	return enc.WriteString(s)
}
