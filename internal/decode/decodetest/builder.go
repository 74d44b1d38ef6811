// Package decodetest builds byte-exact SPL account buffers for tests.
package decodetest

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Builder appends little-endian fields. Write errors cannot happen on a
// bytes.Buffer, so the methods chain.
type Builder struct {
	buf bytes.Buffer
	enc *bin.Encoder
}

func New() *Builder {
	b := &Builder{}
	b.enc = bin.NewBorshEncoder(&b.buf)
	return b
}

func (b *Builder) Bytes() []byte {
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

func (b *Builder) Len() int { return b.buf.Len() }

func (b *Builder) Raw(p []byte) *Builder {
	_, _ = b.enc.Write(p)
	return b
}

func (b *Builder) Zeros(n int) *Builder {
	return b.Raw(make([]byte, n))
}

func (b *Builder) U8(v uint8) *Builder {
	_ = b.enc.WriteUint8(v)
	return b
}

func (b *Builder) Bool(v bool) *Builder {
	_ = b.enc.WriteBool(v)
	return b
}

func (b *Builder) U16(v uint16) *Builder {
	_ = b.enc.WriteUint16(v, bin.LE)
	return b
}

func (b *Builder) I16(v int16) *Builder {
	_ = b.enc.WriteInt16(v, bin.LE)
	return b
}

func (b *Builder) U32(v uint32) *Builder {
	_ = b.enc.WriteUint32(v, bin.LE)
	return b
}

func (b *Builder) U64(v uint64) *Builder {
	_ = b.enc.WriteUint64(v, bin.LE)
	return b
}

func (b *Builder) I64(v int64) *Builder {
	_ = b.enc.WriteInt64(v, bin.LE)
	return b
}

func (b *Builder) F64(v float64) *Builder {
	_ = b.enc.WriteFloat64(v, bin.LE)
	return b
}

func (b *Builder) Key(k solana.PublicKey) *Builder {
	return b.Raw(k[:])
}

func (b *Builder) String(s string) *Builder {
	_ = b.enc.WriteString(s)
	return b
}

// COptionKey writes the SPL COption<Pubkey> encoding; nil is None.
func (b *Builder) COptionKey(k *solana.PublicKey) *Builder {
	if k == nil {
		return b.U32(0).Zeros(32)
	}
	return b.U32(1).Key(*k)
}

func (b *Builder) COptionU64(v *uint64) *Builder {
	if v == nil {
		return b.U32(0).U64(0)
	}
	return b.U32(1).U64(*v)
}

// TLV appends one extension entry.
func (b *Builder) TLV(tag uint16, payload []byte) *Builder {
	return b.U16(tag).U16(uint16(len(payload))).Raw(payload)
}

// Key returns a deterministic non-zero key derived from seed.
func Key(seed byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = seed + byte(i)
	}
	if k.IsZero() {
		k[0] = 1
	}
	return k
}

type AccountFields struct {
	Mint, Owner     solana.PublicKey
	Amount          uint64
	Delegate        *solana.PublicKey
	State           uint8
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *solana.PublicKey
}

// Account returns a 165-byte token account.
func Account(f AccountFields) []byte {
	return New().
		Key(f.Mint).
		Key(f.Owner).
		U64(f.Amount).
		COptionKey(f.Delegate).
		U8(f.State).
		COptionU64(f.IsNative).
		U64(f.DelegatedAmount).
		COptionKey(f.CloseAuthority).
		Bytes()
}

type MintFields struct {
	MintAuthority   *solana.PublicKey
	Supply          uint64
	Decimals        uint8
	FreezeAuthority *solana.PublicKey
}

// Mint returns an initialized 82-byte mint.
func Mint(f MintFields) []byte {
	return New().
		COptionKey(f.MintAuthority).
		U64(f.Supply).
		U8(f.Decimals).
		Bool(true).
		COptionKey(f.FreezeAuthority).
		Bytes()
}

// ExtendedMint pads a base mint to 165 bytes, writes the Mint account type
// and appends tlv.
func ExtendedMint(base []byte, tlv []byte) []byte {
	b := New().Raw(base)
	b.Zeros(165 - b.Len()).U8(1).Raw(tlv)
	return b.Bytes()
}

// ExtendedAccount appends the Account account type and tlv to a 165-byte
// token account.
func ExtendedAccount(base []byte, tlv []byte) []byte {
	return New().Raw(base).U8(2).Raw(tlv).Bytes()
}

// TokenMetadata encodes a TokenMetadata (type 19) payload.
func TokenMetadata(updateAuthority, mint solana.PublicKey, name, symbol, uri string, extra [][2]string) []byte {
	b := New().Key(updateAuthority).Key(mint).String(name).String(symbol).String(uri)
	b.U32(uint32(len(extra)))
	for _, kv := range extra {
		b.String(kv[0]).String(kv[1])
	}
	return b.Bytes()
}

// MetaplexMetadata encodes the prefix of a Metaplex metadata account up to
// the creators option. Strings are NUL padded to the program's fixed widths.
func MetaplexMetadata(updateAuthority, mint solana.PublicKey, name, symbol, uri string, sellerFee uint16) []byte {
	pad := func(s string, n int) string {
		if len(s) >= n {
			return s
		}
		return s + string(make([]byte, n-len(s)))
	}
	return New().
		U8(4). // MetadataV1 key
		Key(updateAuthority).
		Key(mint).
		String(pad(name, 32)).
		String(pad(symbol, 10)).
		String(pad(uri, 200)).
		U16(sellerFee).
		U8(0).  // creators: None
		U8(0).  // primary_sale_happened
		U8(1).  // is_mutable
		U8(0).  // edition_nonce: None
		U8(0).  // token_standard: None
		U8(0).  // collection: None
		U8(0).  // uses: None
		Zeros(64).
		Bytes()
}
