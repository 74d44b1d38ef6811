package explorer

import (
	"github.com/gagliardetto/solana-go"

	"github.com/dmagro/sol-explorer/internal/extension"
	"github.com/dmagro/sol-explorer/internal/layout"
	"github.com/dmagro/sol-explorer/internal/metadata"
	"github.com/dmagro/sol-explorer/internal/rpc"
	"github.com/dmagro/sol-explorer/internal/token"
)

// Kind is what a DisplayRecord describes.
type Kind string

const (
	KindTokenAccount Kind = "token-account"
	KindMint         Kind = "mint"
	KindMultisig     Kind = "multisig"
	KindMetadata     Kind = "metadata"
	KindWallet       Kind = "wallet"
	KindOther        Kind = "other"
)

func kindOf(k layout.Kind) Kind {
	switch k {
	case layout.KindTokenAccount:
		return KindTokenAccount
	case layout.KindMint:
		return KindMint
	case layout.KindMultisig:
		return KindMultisig
	case layout.KindMetadata:
		return KindMetadata
	}
	return KindOther
}

// MintSummary is what a token account or holding shows about its mint.
type MintSummary struct {
	Address  solana.PublicKey
	Decimals uint8
	Name     string
	Symbol   string
}

// Holding is one token account of a wallet.
type Holding struct {
	rpc.TokenHolding
	Symbol string
}

// DisplayRecord is the composed, read-only result of one account query.
type DisplayRecord struct {
	Kind       Kind
	Address    solana.PublicKey
	Owner      solana.PublicKey
	Program    string
	Lamports   uint64
	Executable bool
	DataLen    int
	Slot       uint64
	Data       []byte // raw bytes, kept for KindOther only

	TokenAccount *token.Account
	Mint         *token.Mint
	Multisig     *token.Multisig
	MintInfo     *MintSummary // the mint of a token account
	Extensions   []extension.Extension
	Metadata     *metadata.Record // nil when absent
	Holdings     []Holding

	// Warnings are non-fatal problems found while composing the record, such
	// as a broken extension region or an unreadable metadata account.
	Warnings []string
}

// Parts are the pieces Aggregate composes.
type Parts struct {
	Account  *rpc.RawAccount
	Kind     Kind
	Program  string
	Decoded  *layout.Decoded
	MintInfo *MintSummary
	Metadata *metadata.Record
	Holdings []Holding
	Warnings []string
}

// Aggregate builds a DisplayRecord. It does no I/O and copies every slice so
// later changes to p never show through the record.
func Aggregate(p Parts) *DisplayRecord {
	rec := &DisplayRecord{
		Kind:     p.Kind,
		Program:  p.Program,
		MintInfo: p.MintInfo,
		Metadata: p.Metadata,
	}

	if a := p.Account; a != nil {
		rec.Address = a.Address
		rec.Owner = a.Owner
		rec.Lamports = a.Lamports
		rec.Executable = a.Executable
		rec.DataLen = len(a.Data)
		rec.Slot = a.Slot
		if p.Kind == KindOther && len(a.Data) > 0 {
			rec.Data = append([]byte(nil), a.Data...)
		}
	}

	if d := p.Decoded; d != nil {
		rec.TokenAccount = d.Account
		rec.Mint = d.Mint
		rec.Multisig = d.Multisig
		if rec.Metadata == nil {
			rec.Metadata = d.Metadata
		}
		if len(d.Extensions) > 0 {
			rec.Extensions = append([]extension.Extension(nil), d.Extensions...)
		}
	}

	if len(p.Holdings) > 0 {
		rec.Holdings = append([]Holding(nil), p.Holdings...)
	}
	if len(p.Warnings) > 0 {
		rec.Warnings = append([]string(nil), p.Warnings...)
	}
	return rec
}

// BatchRow is one line of a multi-account query. Record is nil when Err is set.
type BatchRow struct {
	Address solana.PublicKey
	Record  *DisplayRecord
	Err     error
}

// BlockRow is one slot of a block range. Block is nil when Err is set.
type BlockRow struct {
	Slot  uint64
	Block *rpc.BlockRecord
	Err   error
}
