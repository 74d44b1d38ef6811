// Package metadata finds the human-readable name, symbol and URI of a mint.
// Two sources exist on chain: a Metaplex Token Metadata account at a PDA of
// the mint, and the Token-2022 TokenMetadata extension, reached through a
// MetadataPointer.
package metadata

import (
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	token_metadata "github.com/gagliardetto/metaplex-go/clients/token-metadata"
	"github.com/gagliardetto/solana-go"

	"github.com/dmagro/sol-explorer/internal/decode"
	"github.com/dmagro/sol-explorer/internal/extension"
	"github.com/dmagro/sol-explorer/internal/rpc"
)

const (
	SourceMetaplex  = "metaplex"
	SourceToken2022 = "token-2022"
)

// ErrNotFound means neither source holds metadata for the mint. Callers show
// it as absent metadata, not as a failure.
var ErrNotFound = fmt.Errorf("metadata: %w", rpc.ErrNotFound)

// keyMetadataV1 is the first byte of a Metaplex metadata account.
const keyMetadataV1 = 4

type Record struct {
	Address              solana.PublicKey // account the metadata was read from
	Mint                 solana.PublicKey
	Name                 string
	Symbol               string
	URI                  string
	UpdateAuthority      *solana.PublicKey
	SellerFeeBasisPoints *uint16 // Metaplex only
	IsMutable            *bool   // Metaplex only
	Source               string
	Additional           []extension.KeyValue
}

func trim(s string) string {
	return strings.TrimRight(s, "\x00")
}

// DecodeMetaplex decodes a Metaplex metadata account. Only the leading fields
// are needed, so when the full decode fails on a layout revision the prefix
// is read by hand.
func DecodeMetaplex(addr solana.PublicKey, data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, decode.Errorf(decode.TruncatedData, "metaplex metadata: empty account")
	}
	if data[0] != keyMetadataV1 {
		return nil, decode.Errorf(decode.InvalidState, "metaplex metadata: account key %d", data[0])
	}

	var meta token_metadata.Metadata
	if err := bin.NewBorshDecoder(data).Decode(&meta); err == nil {
		fee := meta.Data.SellerFeeBasisPoints
		mutable := meta.IsMutable
		return &Record{
			Address:              addr,
			Mint:                 meta.Mint,
			Name:                 trim(meta.Data.Name),
			Symbol:               trim(meta.Data.Symbol),
			URI:                  trim(meta.Data.Uri),
			UpdateAuthority:      nonZero(meta.UpdateAuthority),
			SellerFeeBasisPoints: &fee,
			IsMutable:            &mutable,
			Source:               SourceMetaplex,
		}, nil
	}

	return decodeMetaplexPrefix(addr, data)
}

// decodeMetaplexPrefix reads key | update_authority | mint | name | symbol |
// uri | seller_fee_basis_points.
func decodeMetaplexPrefix(addr solana.PublicKey, data []byte) (*Record, error) {
	r := decode.NewReader(data)
	if err := r.Field("key").Skip(1); err != nil {
		return nil, err
	}

	rec := &Record{Address: addr, Source: SourceMetaplex}
	var err error
	if rec.UpdateAuthority, err = r.Field("update_authority").OptionalPubkey(); err != nil {
		return nil, err
	}
	if rec.Mint, err = r.Field("mint").Pubkey(); err != nil {
		return nil, err
	}
	if rec.Name, err = r.Field("name").String(); err != nil {
		return nil, err
	}
	if rec.Symbol, err = r.Field("symbol").String(); err != nil {
		return nil, err
	}
	if rec.URI, err = r.Field("uri").String(); err != nil {
		return nil, err
	}
	fee, err := r.Field("seller_fee_basis_points").U16()
	if err != nil {
		return nil, err
	}
	rec.SellerFeeBasisPoints = &fee
	rec.Name, rec.Symbol, rec.URI = trim(rec.Name), trim(rec.Symbol), trim(rec.URI)
	return rec, nil
}

// FromTokenMetadata converts a TokenMetadata extension read at addr.
func FromTokenMetadata(addr solana.PublicKey, tm *extension.TokenMetadata) *Record {
	rec := &Record{
		Address:         addr,
		Mint:            tm.Mint,
		Name:            trim(tm.Name),
		Symbol:          trim(tm.Symbol),
		URI:             trim(tm.URI),
		UpdateAuthority: tm.UpdateAuthority,
		Source:          SourceToken2022,
	}
	if len(tm.AdditionalMetadata) > 0 {
		rec.Additional = append([]extension.KeyValue(nil), tm.AdditionalMetadata...)
	}
	return rec
}

func nonZero(k solana.PublicKey) *solana.PublicKey {
	if k.IsZero() {
		return nil
	}
	return &k
}
