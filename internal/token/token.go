package token

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Fixed sizes of the SPL token layouts. Token-2022 reuses them as the base
// layout and appends an AccountType byte plus a TLV region after AccountSize.
const (
	AccountSize       = 165
	MintSize          = 82
	MultisigSize      = 355
	AccountTypeOffset = AccountSize
	MaxSigners        = 11
)

type AccountState uint8

const (
	StateUninitialized AccountState = iota
	StateInitialized
	StateFrozen
)

func (s AccountState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateFrozen:
		return "frozen"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// AccountType is the discriminator Token-2022 writes right after the base
// layout of an extended account.
type AccountType uint8

const (
	AccountTypeUninitialized AccountType = iota
	AccountTypeMint
	AccountTypeAccount
)

func (t AccountType) String() string {
	switch t {
	case AccountTypeUninitialized:
		return "uninitialized"
	case AccountTypeMint:
		return "mint"
	case AccountTypeAccount:
		return "account"
	default:
		return fmt.Sprintf("account-type(%d)", uint8(t))
	}
}

type Account struct {
	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        *solana.PublicKey
	State           AccountState
	IsNative        *uint64 // rent-exempt reserve, set only for wrapped SOL accounts
	DelegatedAmount uint64
	CloseAuthority  *solana.PublicKey
}

type Mint struct {
	MintAuthority   *solana.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *solana.PublicKey
}

type Multisig struct {
	M             uint8
	N             uint8
	IsInitialized bool
	Signers       []solana.PublicKey
}
