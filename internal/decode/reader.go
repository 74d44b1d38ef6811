// Package decode holds the little-endian cursor shared by the account,
// extension and metadata decoders. Every read is bounds-checked up front so
// a short buffer surfaces as TruncatedData instead of a library error.
package decode

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Reader walks a byte buffer. Borsh strings and SPL COption values are the
// two non-trivial encodings it understands.
type Reader struct {
	dec   *bin.Decoder
	field string
}

func NewReader(data []byte) *Reader {
	return &Reader{dec: bin.NewBorshDecoder(data)}
}

// Field names the value about to be read; it only decorates error messages.
func (r *Reader) Field(name string) *Reader {
	r.field = name
	return r
}

func (r *Reader) Remaining() int { return r.dec.Remaining() }
func (r *Reader) Position() int  { return int(r.dec.Position()) }

func (r *Reader) need(n int) error {
	if r.dec.Remaining() < n {
		return Errorf(TruncatedData, "%s: need %d bytes at offset %d, have %d",
			r.name(), n, r.Position(), r.dec.Remaining())
	}
	return nil
}

func (r *Reader) name() string {
	if r.field == "" {
		return "value"
	}
	return r.field
}

func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	return r.dec.SkipBytes(uint(n))
}

// Bytes returns a copy of the next n bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b, err := r.dec.ReadNBytes(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	return r.dec.ReadUint8()
}

func (r *Reader) Bool() (bool, error) {
	if err := r.need(1); err != nil {
		return false, err
	}
	return r.dec.ReadBool()
}

func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	return r.dec.ReadUint16(bin.LE)
}

func (r *Reader) I16() (int16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	return r.dec.ReadInt16(bin.LE)
}

func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	return r.dec.ReadUint32(bin.LE)
}

func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	return r.dec.ReadUint64(bin.LE)
}

func (r *Reader) I64() (int64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	return r.dec.ReadInt64(bin.LE)
}

func (r *Reader) F64() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	return r.dec.ReadFloat64(bin.LE)
}

func (r *Reader) Pubkey() (solana.PublicKey, error) {
	b, err := r.Bytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

// OptionalPubkey reads a 32-byte key where all zeroes means "none".
func (r *Reader) OptionalPubkey() (*solana.PublicKey, error) {
	key, err := r.Pubkey()
	if err != nil || key.IsZero() {
		return nil, err
	}
	return &key, nil
}

// coption reads the 4-byte little-endian COption tag used by the SPL
// programs. Only 0 and 1 are valid.
func (r *Reader) coption() (bool, error) {
	tag, err := r.U32()
	if err != nil {
		return false, err
	}
	switch tag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, Errorf(InvalidState, "%s: option tag %d", r.name(), tag)
	}
}

// COptionPubkey reads tag + key. The key bytes are consumed even when the
// tag is None, since the layout is fixed-width.
func (r *Reader) COptionPubkey() (*solana.PublicKey, error) {
	some, err := r.coption()
	if err != nil {
		return nil, err
	}
	key, err := r.Pubkey()
	if err != nil || !some {
		return nil, err
	}
	return &key, nil
}

func (r *Reader) COptionU64() (*uint64, error) {
	some, err := r.coption()
	if err != nil {
		return nil, err
	}
	v, err := r.U64()
	if err != nil || !some {
		return nil, err
	}
	return &v, nil
}

// String reads a borsh string (u32 length + UTF-8 bytes).
func (r *Reader) String() (string, error) {
	n, err := r.U32()
	if err != nil {
		return "", err
	}
	if int64(n) > int64(r.Remaining()) {
		return "", Errorf(TruncatedData, "%s: string length %d exceeds remaining %d", r.name(), n, r.Remaining())
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Expect fails with TruncatedData unless at least n bytes remain. It lets a
// decoder reject a short buffer before reading any field.
func Expect(data []byte, n int, what string) error {
	if len(data) < n {
		return Errorf(TruncatedData, "%s: need %d bytes, got %d", what, n, len(data))
	}
	return nil
}

// Hex renders a short byte slice for log and error messages.
func Hex(b []byte) string {
	const max = 16
	if len(b) > max {
		return fmt.Sprintf("%x…(%d bytes)", b[:max], len(b))
	}
	return fmt.Sprintf("%x", b)
}
