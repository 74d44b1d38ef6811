package token

import (
	"github.com/dmagro/sol-explorer/internal/decode"
)

// DecodeAccount parses the 165-byte token account layout:
//
//	mint 32 | owner 32 | amount u64 | delegate COption<Pubkey> 36 |
//	state u8 | is_native COption<u64> 12 | delegated_amount u64 |
//	close_authority COption<Pubkey> 36
//
// Bytes past AccountSize are ignored; extended accounts carry their TLV
// region there.
func DecodeAccount(data []byte) (*Account, error) {
	if err := decode.Expect(data, AccountSize, "token account"); err != nil {
		return nil, err
	}

	r := decode.NewReader(data[:AccountSize])
	var (
		acc Account
		err error
	)

	if acc.Mint, err = r.Field("mint").Pubkey(); err != nil {
		return nil, err
	}
	if acc.Owner, err = r.Field("owner").Pubkey(); err != nil {
		return nil, err
	}
	if acc.Amount, err = r.Field("amount").U64(); err != nil {
		return nil, err
	}
	if acc.Delegate, err = r.Field("delegate").COptionPubkey(); err != nil {
		return nil, err
	}

	state, err := r.Field("state").U8()
	if err != nil {
		return nil, err
	}
	if state > uint8(StateFrozen) {
		return nil, decode.Errorf(decode.InvalidState, "account state %d", state)
	}
	acc.State = AccountState(state)

	if acc.IsNative, err = r.Field("is_native").COptionU64(); err != nil {
		return nil, err
	}
	if acc.DelegatedAmount, err = r.Field("delegated_amount").U64(); err != nil {
		return nil, err
	}
	if acc.CloseAuthority, err = r.Field("close_authority").COptionPubkey(); err != nil {
		return nil, err
	}

	return &acc, nil
}

// DecodeMint parses the 82-byte mint layout:
//
//	mint_authority COption<Pubkey> 36 | supply u64 | decimals u8 |
//	is_initialized bool | freeze_authority COption<Pubkey> 36
func DecodeMint(data []byte) (*Mint, error) {
	if err := decode.Expect(data, MintSize, "mint"); err != nil {
		return nil, err
	}

	r := decode.NewReader(data[:MintSize])
	var (
		m   Mint
		err error
	)

	if m.MintAuthority, err = r.Field("mint_authority").COptionPubkey(); err != nil {
		return nil, err
	}
	if m.Supply, err = r.Field("supply").U64(); err != nil {
		return nil, err
	}
	if m.Decimals, err = r.Field("decimals").U8(); err != nil {
		return nil, err
	}
	if m.IsInitialized, err = strictBool(r.Field("is_initialized")); err != nil {
		return nil, err
	}
	if m.FreezeAuthority, err = r.Field("freeze_authority").COptionPubkey(); err != nil {
		return nil, err
	}

	return &m, nil
}

// DecodeMultisig parses the 355-byte multisig layout: m u8 | n u8 |
// is_initialized bool | 11 signer keys. Only the first n signers are kept.
func DecodeMultisig(data []byte) (*Multisig, error) {
	if err := decode.Expect(data, MultisigSize, "multisig"); err != nil {
		return nil, err
	}

	r := decode.NewReader(data[:MultisigSize])
	var (
		ms  Multisig
		err error
	)

	if ms.M, err = r.Field("m").U8(); err != nil {
		return nil, err
	}
	if ms.N, err = r.Field("n").U8(); err != nil {
		return nil, err
	}
	if ms.IsInitialized, err = strictBool(r.Field("is_initialized")); err != nil {
		return nil, err
	}
	if ms.N > MaxSigners || ms.M > ms.N {
		return nil, decode.Errorf(decode.InvalidState, "multisig %d of %d", ms.M, ms.N)
	}

	for i := 0; i < MaxSigners; i++ {
		key, err := r.Field("signer").Pubkey()
		if err != nil {
			return nil, err
		}
		if i < int(ms.N) {
			ms.Signers = append(ms.Signers, key)
		}
	}

	return &ms, nil
}

// ExtensionRegion returns the TLV bytes of an extended Token-2022 account.
// A buffer of base size has no region and yields nil. Otherwise the
// AccountType byte at offset 165 must match want.
func ExtensionRegion(data []byte, want AccountType) ([]byte, error) {
	if len(data) <= AccountSize {
		return nil, nil
	}

	got := AccountType(data[AccountTypeOffset])
	if got != want {
		return nil, decode.Errorf(decode.InvalidState, "account type %s, expected %s", got, want)
	}
	return data[AccountTypeOffset+1:], nil
}

func strictBool(r *decode.Reader) (bool, error) {
	b, err := r.U8()
	if err != nil {
		return false, err
	}
	if b > 1 {
		return false, decode.Errorf(decode.InvalidState, "boolean byte %d", b)
	}
	return b == 1, nil
}
