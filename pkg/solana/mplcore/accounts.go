package mplcore

import (
	"github.com/cockroachdb/errors"
	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

// DecodeAsset 解析 AssetV1 账户数据
func DecodeAsset(address solanago.PublicKey, data []byte) (*Asset, error) {
	dec := bin.NewBorshDecoder(data)

	key, err := dec.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "read account key")
	}
	if key != KeyAssetV1 {
		return nil, errors.Newf("account %s is not an asset (key=%d)", address, key)
	}

	asset := &Asset{Address: address}

	ownerBytes, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, errors.Wrap(err, "read owner")
	}
	asset.Owner = solanago.PublicKeyFromBytes(ownerBytes)

	authority, err := decodeUpdateAuthority(dec)
	if err != nil {
		return nil, err
	}
	asset.UpdateAuthority = *authority

	if asset.Name, err = dec.ReadRustString(); err != nil {
		return nil, errors.Wrap(err, "read name")
	}
	if asset.URI, err = dec.ReadRustString(); err != nil {
		return nil, errors.Wrap(err, "read uri")
	}

	return asset, nil
}

// DecodeCollection 解析 CollectionV1 账户数据
func DecodeCollection(address solanago.PublicKey, data []byte) (*Collection, error) {
	dec := bin.NewBorshDecoder(data)

	key, err := dec.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "read account key")
	}
	if key != KeyCollectionV1 {
		return nil, errors.Newf("account %s is not a collection (key=%d)", address, key)
	}

	coll := &Collection{Address: address}

	authorityBytes, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, errors.Wrap(err, "read update authority")
	}
	coll.Authority = solanago.PublicKeyFromBytes(authorityBytes)

	if coll.Name, err = dec.ReadRustString(); err != nil {
		return nil, errors.Wrap(err, "read name")
	}
	if coll.URI, err = dec.ReadRustString(); err != nil {
		return nil, errors.Wrap(err, "read uri")
	}
	if coll.NumMinted, err = dec.ReadUint32(bin.LE); err != nil {
		return nil, errors.Wrap(err, "read num minted")
	}
	if coll.CurrentSize, err = dec.ReadUint32(bin.LE); err != nil {
		return nil, errors.Wrap(err, "read current size")
	}

	return coll, nil
}

func decodeUpdateAuthority(dec *bin.Decoder) (*UpdateAuthority, error) {
	kind, err := dec.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "read update authority kind")
	}

	authority := &UpdateAuthority{Kind: kind}
	switch kind {
	case UpdateAuthorityNone:
	case UpdateAuthorityAddress, UpdateAuthorityCollection:
		raw, err := dec.ReadNBytes(32)
		if err != nil {
			return nil, errors.Wrap(err, "read update authority address")
		}
		authority.Address = solanago.PublicKeyFromBytes(raw)
	default:
		return nil, errors.Newf("unknown update authority kind %d", kind)
	}
	return authority, nil
}
