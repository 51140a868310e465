package mplcore

import (
	"encoding/binary"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendRustString(buf []byte, s string) []byte {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], uint32(len(s)))
	buf = append(buf, l[:]...)
	return append(buf, s...)
}

func TestDecodeAsset(t *testing.T) {
	owner := solanago.NewWallet().PublicKey()
	collection := solanago.NewWallet().PublicKey()
	assetAddr := solanago.NewWallet().PublicKey()

	data := []byte{KeyAssetV1}
	data = append(data, owner.Bytes()...)
	data = append(data, UpdateAuthorityCollection)
	data = append(data, collection.Bytes()...)
	data = appendRustString(data, "Fluffy #42")
	data = appendRustString(data, "https://gateway.irys.xyz/abc123")

	asset, err := DecodeAsset(assetAddr, data)
	require.NoError(t, err)
	assert.Equal(t, assetAddr, asset.Address)
	assert.Equal(t, owner, asset.Owner)
	assert.Equal(t, UpdateAuthorityCollection, asset.UpdateAuthority.Kind)
	assert.Equal(t, collection, asset.UpdateAuthority.Address)
	assert.Equal(t, "Fluffy #42", asset.Name)
	assert.Equal(t, "https://gateway.irys.xyz/abc123", asset.URI)
}

func TestDecodeAssetWrongKey(t *testing.T) {
	data := []byte{KeyCollectionV1}
	_, err := DecodeAsset(solanago.NewWallet().PublicKey(), data)
	assert.Error(t, err)
}

func TestDecodeCollection(t *testing.T) {
	authority := solanago.NewWallet().PublicKey()
	addr := solanago.NewWallet().PublicKey()

	data := []byte{KeyCollectionV1}
	data = append(data, authority.Bytes()...)
	data = appendRustString(data, "SolPet Companions")
	data = appendRustString(data, "https://gateway.irys.xyz/coll")
	var counters [8]byte
	binary.LittleEndian.PutUint32(counters[0:4], 120)
	binary.LittleEndian.PutUint32(counters[4:8], 118)
	data = append(data, counters[:]...)

	coll, err := DecodeCollection(addr, data)
	require.NoError(t, err)
	assert.Equal(t, authority, coll.Authority)
	assert.Equal(t, "SolPet Companions", coll.Name)
	assert.Equal(t, uint32(120), coll.NumMinted)
	assert.Equal(t, uint32(118), coll.CurrentSize)
}

func TestNewUpdateV1Instruction(t *testing.T) {
	asset := solanago.NewWallet().PublicKey()
	collection := solanago.NewWallet().PublicKey()
	payer := solanago.NewWallet().PublicKey()

	inst, err := NewUpdateV1Instruction(UpdateParams{
		Asset:      asset,
		Collection: collection,
		Payer:      payer,
		NewURI:     "https://gateway.irys.xyz/new",
	})
	require.NoError(t, err)
	assert.Equal(t, ProgramID, inst.ProgramID())

	accounts := inst.Accounts()
	require.Len(t, accounts, 7)
	assert.Equal(t, asset, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsWritable)
	assert.Equal(t, collection, accounts[1].PublicKey)
	assert.Equal(t, payer, accounts[2].PublicKey)
	assert.True(t, accounts[2].IsSigner)
	// 未指定独立权限时权限槽以程序地址占位，payer 即权限
	assert.Equal(t, ProgramID, accounts[3].PublicKey)
	assert.Equal(t, solanago.SystemProgramID, accounts[5].PublicKey)

	data, err := inst.Data()
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, updateV1Discriminator, data[0])
	// newName 缺省为 None
	assert.Equal(t, uint8(0), data[1])
	// newUri 为 Some(...)
	assert.Equal(t, uint8(1), data[2])
}
