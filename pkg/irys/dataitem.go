// Package irys 实现 Irys（Arweave）永久存储的 ANS-104 数据项签名与上传
package irys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/binary"
	"strconv"

	"github.com/cockroachdb/errors"
	solanago "github.com/gagliardetto/solana-go"
)

// SignatureTypeSolana ANS-104 ed25519/Solana 签名类型
const SignatureTypeSolana uint16 = 4

const (
	solanaSignatureLength = 64
	solanaOwnerLength     = 32
)

// Tag 数据项标签
type Tag struct {
	Name  string
	Value string
}

// DataItem ANS-104 数据项
// 先 Sign 再 Marshal，未签名的数据项无法序列化
type DataItem struct {
	Signature []byte
	Owner     []byte
	Target    []byte
	Anchor    []byte
	Tags      []Tag
	Data      []byte
}

// NewDataItem 创建待签名的数据项
func NewDataItem(data []byte, tags ...Tag) *DataItem {
	return &DataItem{Tags: tags, Data: data}
}

// Sign 用 Solana 私钥签名数据项，填充 Owner 与 Signature
func (d *DataItem) Sign(key solanago.PrivateKey) error {
	pub := key.PublicKey()
	d.Owner = pub.Bytes()

	msg, err := d.signingMessage()
	if err != nil {
		return err
	}
	d.Signature = ed25519.Sign(ed25519.PrivateKey(key), msg)
	return nil
}

// ID 数据项标识，签名的 SHA-256 摘要（base64url 无填充）
func (d *DataItem) ID() string {
	sum := sha256.Sum256(d.Signature)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Marshal 序列化为 ANS-104 二进制格式
func (d *DataItem) Marshal() ([]byte, error) {
	if len(d.Signature) != solanaSignatureLength {
		return nil, errors.New("irys: data item is not signed")
	}
	if len(d.Owner) != solanaOwnerLength {
		return nil, errors.Newf("irys: owner must be %d bytes", solanaOwnerLength)
	}

	tagBytes := encodeTags(d.Tags)

	var buf bytes.Buffer
	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], SignatureTypeSolana)
	buf.Write(u16[:])
	buf.Write(d.Signature)
	buf.Write(d.Owner)
	writeOptionalField(&buf, d.Target)
	writeOptionalField(&buf, d.Anchor)

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(len(d.Tags)))
	buf.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], uint64(len(tagBytes)))
	buf.Write(u64[:])
	buf.Write(tagBytes)
	buf.Write(d.Data)

	return buf.Bytes(), nil
}

// signingMessage 按 Arweave deepHash 规则计算签名消息
func (d *DataItem) signingMessage() ([]byte, error) {
	if len(d.Owner) != solanaOwnerLength {
		return nil, errors.New("irys: owner not set")
	}
	sigTypeStr := strconv.FormatUint(uint64(SignatureTypeSolana), 10)
	return deepHashList(
		[]byte("dataitem"),
		[]byte("1"),
		[]byte(sigTypeStr),
		d.Owner,
		d.Target,
		d.Anchor,
		encodeTags(d.Tags),
		d.Data,
	), nil
}

// writeOptionalField 写入带存在位的可选字段
func writeOptionalField(buf *bytes.Buffer, field []byte) {
	if len(field) == 0 {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	buf.Write(field)
}

// encodeTags 按 Avro 数组格式编码标签
func encodeTags(tags []Tag) []byte {
	if len(tags) == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.Write(encodeZigZagVarint(int64(len(tags))))
	for _, t := range tags {
		writeAvroString(&buf, t.Name)
		writeAvroString(&buf, t.Value)
	}
	// 数组结束块
	buf.WriteByte(0)
	return buf.Bytes()
}

func writeAvroString(buf *bytes.Buffer, s string) {
	buf.Write(encodeZigZagVarint(int64(len(s))))
	buf.WriteString(s)
}

// encodeZigZagVarint Avro long 编码：zigzag 后变长 base-128
func encodeZigZagVarint(n int64) []byte {
	u := uint64((n << 1) ^ (n >> 63))
	out := make([]byte, 0, binary.MaxVarintLen64)
	for u >= 0x80 {
		out = append(out, byte(u)|0x80)
		u >>= 7
	}
	return append(out, byte(u))
}

// deepHashChunk 单块数据的 deepHash
func deepHashChunk(data []byte) []byte {
	tagHash := sha512.Sum384([]byte("blob" + strconv.Itoa(len(data))))
	dataHash := sha512.Sum384(data)
	final := sha512.Sum384(append(tagHash[:], dataHash[:]...))
	return final[:]
}

// deepHashList 块列表的 deepHash
func deepHashList(chunks ...[]byte) []byte {
	acc := sha512.Sum384([]byte("list" + strconv.Itoa(len(chunks))))
	for _, chunk := range chunks {
		next := sha512.Sum384(append(acc[:], deepHashChunk(chunk)...))
		acc = next
	}
	return acc[:]
}
