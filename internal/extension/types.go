// =============================================================================
// Token-2022 extension records
// =============================================================================
//
// An extended mint or token account carries, after its 165-byte base and its
// AccountType byte, a run of Type-Length-Value entries:
//
//	┌──────────┬──────────┬─────────────────────┐
//	│ type u16 │ len u16  │ len bytes of value  │ ... repeated
//	└──────────┴──────────┴─────────────────────┘
//
// Each known type decodes into its own struct below. Types this package does
// not know come back as *Unknown with the raw bytes, so a newer program
// version never breaks the scan. A known type whose payload does not match
// its layout comes back as *Invalid; that failure stays local to the entry.
//
// All structs are read-only snapshots; slices are copies of the account
// bytes.
// =============================================================================

package extension

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/dmagro/sol-explorer/internal/token"
)

// Type is the u16 extension discriminator.
type Type uint16

const (
	TypeUninitialized Type = iota
	TypeTransferFeeConfig
	TypeTransferFeeAmount
	TypeMintCloseAuthority
	TypeConfidentialTransferMint
	TypeConfidentialTransferAccount
	TypeDefaultAccountState
	TypeImmutableOwner
	TypeMemoTransfer
	TypeNonTransferable
	TypeInterestBearingConfig
	TypeCpiGuard
	TypePermanentDelegate
	TypeNonTransferableAccount
	TypeTransferHook
	TypeTransferHookAccount
	TypeConfidentialTransferFeeConfig
	TypeConfidentialTransferFeeAmount
	TypeMetadataPointer
	TypeTokenMetadata
	TypeGroupPointer
	TypeTokenGroup
	TypeGroupMemberPointer
	TypeTokenGroupMember
	TypeConfidentialMintBurn
	TypeScaledUiAmount
	TypePausable
	TypePausableAccount
)

var typeNames = map[Type]string{
	TypeUninitialized:                 "Uninitialized",
	TypeTransferFeeConfig:             "TransferFeeConfig",
	TypeTransferFeeAmount:             "TransferFeeAmount",
	TypeMintCloseAuthority:            "MintCloseAuthority",
	TypeConfidentialTransferMint:      "ConfidentialTransferMint",
	TypeConfidentialTransferAccount:   "ConfidentialTransferAccount",
	TypeDefaultAccountState:           "DefaultAccountState",
	TypeImmutableOwner:                "ImmutableOwner",
	TypeMemoTransfer:                  "MemoTransfer",
	TypeNonTransferable:               "NonTransferable",
	TypeInterestBearingConfig:         "InterestBearingConfig",
	TypeCpiGuard:                      "CpiGuard",
	TypePermanentDelegate:             "PermanentDelegate",
	TypeNonTransferableAccount:        "NonTransferableAccount",
	TypeTransferHook:                  "TransferHook",
	TypeTransferHookAccount:           "TransferHookAccount",
	TypeConfidentialTransferFeeConfig: "ConfidentialTransferFeeConfig",
	TypeConfidentialTransferFeeAmount: "ConfidentialTransferFeeAmount",
	TypeMetadataPointer:               "MetadataPointer",
	TypeTokenMetadata:                 "TokenMetadata",
	TypeGroupPointer:                  "GroupPointer",
	TypeTokenGroup:                    "TokenGroup",
	TypeGroupMemberPointer:            "GroupMemberPointer",
	TypeTokenGroupMember:              "TokenGroupMember",
	TypeConfidentialMintBurn:          "ConfidentialMintBurn",
	TypeScaledUiAmount:                "ScaledUiAmount",
	TypePausable:                      "Pausable",
	TypePausableAccount:               "PausableAccount",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Extension(%d)", uint16(t))
}

// Known reports whether t has a name in this package.
func (t Type) Known() bool {
	_, ok := typeNames[t]
	return ok
}

// Extension is one decoded TLV entry.
type Extension interface {
	Type() Type
}

type TransferFee struct {
	Epoch                  uint64
	MaximumFee             uint64
	TransferFeeBasisPoints uint16
}

type TransferFeeConfig struct {
	ConfigAuthority           *solana.PublicKey
	WithdrawWithheldAuthority *solana.PublicKey
	WithheldAmount            uint64
	OlderTransferFee          TransferFee
	NewerTransferFee          TransferFee
}

// ActiveFee returns the fee schedule in force at epoch.
func (c *TransferFeeConfig) ActiveFee(epoch uint64) TransferFee {
	if epoch >= c.NewerTransferFee.Epoch {
		return c.NewerTransferFee
	}
	return c.OlderTransferFee
}

type TransferFeeAmount struct {
	WithheldAmount uint64
}

type MintCloseAuthority struct {
	CloseAuthority *solana.PublicKey
}

type ConfidentialTransferMint struct {
	Authority              *solana.PublicKey
	AutoApproveNewAccounts bool
	AuditorElGamalPubkey   []byte // nil when unset
}

type DefaultAccountState struct {
	State token.AccountState
}

type ImmutableOwner struct{}

type MemoTransfer struct {
	RequireIncomingTransferMemos bool
}

type NonTransferable struct{}

type InterestBearingConfig struct {
	RateAuthority           *solana.PublicKey
	InitializationTimestamp int64
	PreUpdateAverageRate    int16 // basis points
	LastUpdateTimestamp     int64
	CurrentRate             int16 // basis points
}

type CpiGuard struct {
	LockCpi bool
}

type PermanentDelegate struct {
	Delegate *solana.PublicKey
}

type NonTransferableAccount struct{}

type TransferHook struct {
	Authority *solana.PublicKey
	ProgramID *solana.PublicKey
}

type TransferHookAccount struct {
	Transferring bool
}

type MetadataPointer struct {
	Authority       *solana.PublicKey
	MetadataAddress *solana.PublicKey
}

type KeyValue struct {
	Key   string
	Value string
}

type TokenMetadata struct {
	UpdateAuthority    *solana.PublicKey
	Mint               solana.PublicKey
	Name               string
	Symbol             string
	URI                string
	AdditionalMetadata []KeyValue
}

type GroupPointer struct {
	Authority    *solana.PublicKey
	GroupAddress *solana.PublicKey
}

type TokenGroup struct {
	UpdateAuthority *solana.PublicKey
	Mint            solana.PublicKey
	Size            uint64
	MaxSize         uint64
}

type GroupMemberPointer struct {
	Authority     *solana.PublicKey
	MemberAddress *solana.PublicKey
}

type TokenGroupMember struct {
	Mint         solana.PublicKey
	Group        solana.PublicKey
	MemberNumber uint64
}

type ScaledUiAmount struct {
	Authority                       *solana.PublicKey
	Multiplier                      float64
	NewMultiplierEffectiveTimestamp int64
	NewMultiplier                   float64
}

type Pausable struct {
	Authority *solana.PublicKey
	Paused    bool
}

type PausableAccount struct{}

// Opaque is a known extension whose payload is kept as raw bytes
// (the confidential-transfer family).
type Opaque struct {
	Kind Type
	Raw  []byte
}

// Unknown preserves an entry with a type this package does not know.
type Unknown struct {
	Tag uint16
	Raw []byte
}

// Invalid is a known type whose payload failed to decode.
type Invalid struct {
	Kind Type
	Raw  []byte
	Err  error
}

func (*TransferFeeConfig) Type() Type        { return TypeTransferFeeConfig }
func (*TransferFeeAmount) Type() Type        { return TypeTransferFeeAmount }
func (*MintCloseAuthority) Type() Type       { return TypeMintCloseAuthority }
func (*ConfidentialTransferMint) Type() Type { return TypeConfidentialTransferMint }
func (*DefaultAccountState) Type() Type      { return TypeDefaultAccountState }
func (*ImmutableOwner) Type() Type           { return TypeImmutableOwner }
func (*MemoTransfer) Type() Type             { return TypeMemoTransfer }
func (*NonTransferable) Type() Type          { return TypeNonTransferable }
func (*InterestBearingConfig) Type() Type    { return TypeInterestBearingConfig }
func (*CpiGuard) Type() Type                 { return TypeCpiGuard }
func (*PermanentDelegate) Type() Type        { return TypePermanentDelegate }
func (*NonTransferableAccount) Type() Type   { return TypeNonTransferableAccount }
func (*TransferHook) Type() Type             { return TypeTransferHook }
func (*TransferHookAccount) Type() Type      { return TypeTransferHookAccount }
func (*MetadataPointer) Type() Type          { return TypeMetadataPointer }
func (*TokenMetadata) Type() Type            { return TypeTokenMetadata }
func (*GroupPointer) Type() Type             { return TypeGroupPointer }
func (*TokenGroup) Type() Type               { return TypeTokenGroup }
func (*GroupMemberPointer) Type() Type       { return TypeGroupMemberPointer }
func (*TokenGroupMember) Type() Type         { return TypeTokenGroupMember }
func (*ScaledUiAmount) Type() Type           { return TypeScaledUiAmount }
func (*Pausable) Type() Type                 { return TypePausable }
func (*PausableAccount) Type() Type          { return TypePausableAccount }
func (o *Opaque) Type() Type                 { return o.Kind }
func (u *Unknown) Type() Type                { return Type(u.Tag) }
func (i *Invalid) Type() Type                { return i.Kind }

// Find returns the first extension of concrete type T.
func Find[T Extension](exts []Extension) (T, bool) {
	for _, e := range exts {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
