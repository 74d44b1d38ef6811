package extension

import (
	"github.com/gagliardetto/solana-go"

	"github.com/dmagro/sol-explorer/internal/decode"
	"github.com/dmagro/sol-explorer/internal/token"
)

const headerSize = 4

type payloadParser struct {
	size  int // exact payload size; -1 for variable length
	parse func(r *decode.Reader) (Extension, error)
}

var parsers = map[Type]payloadParser{
	TypeTransferFeeConfig:        {108, parseTransferFeeConfig},
	TypeTransferFeeAmount:        {8, parseTransferFeeAmount},
	TypeMintCloseAuthority:       {32, parseMintCloseAuthority},
	TypeConfidentialTransferMint: {65, parseConfidentialTransferMint},
	TypeDefaultAccountState:      {1, parseDefaultAccountState},
	TypeImmutableOwner:           {0, func(*decode.Reader) (Extension, error) { return &ImmutableOwner{}, nil }},
	TypeMemoTransfer:             {1, parseMemoTransfer},
	TypeNonTransferable:          {0, func(*decode.Reader) (Extension, error) { return &NonTransferable{}, nil }},
	TypeInterestBearingConfig:    {52, parseInterestBearingConfig},
	TypeCpiGuard:                 {1, parseCpiGuard},
	TypePermanentDelegate:        {32, parsePermanentDelegate},
	TypeNonTransferableAccount:   {0, func(*decode.Reader) (Extension, error) { return &NonTransferableAccount{}, nil }},
	TypeTransferHook:             {64, parseTransferHook},
	TypeTransferHookAccount:      {1, parseTransferHookAccount},
	TypeMetadataPointer:          {64, parseMetadataPointer},
	TypeTokenMetadata:            {-1, parseTokenMetadata},
	TypeGroupPointer:             {64, parseGroupPointer},
	TypeTokenGroup:               {80, parseTokenGroup},
	TypeGroupMemberPointer:       {64, parseGroupMemberPointer},
	TypeTokenGroupMember:         {72, parseTokenGroupMember},
	TypeScaledUiAmount:           {56, parseScaledUiAmount},
	TypePausable:                 {33, parsePausable},
	TypePausableAccount:          {0, func(*decode.Reader) (Extension, error) { return &PausableAccount{}, nil }},
}

// Parse walks a TLV region and returns its entries in order. The scan stops
// when fewer than four bytes remain or at an Uninitialized (type 0) header,
// which marks zero padding.
//
// A declared length running past the end of the region fails with
// MalformedTlv; the entries decoded before it are returned with the error.
// Unknown types and undecodable payloads never stop the scan.
func Parse(region []byte) ([]Extension, error) {
	var out []Extension
	r := decode.NewReader(region)

	for r.Remaining() >= headerSize {
		offset := r.Position()
		tag, _ := r.U16()
		length, _ := r.U16()

		if Type(tag) == TypeUninitialized {
			break
		}
		if int(length) > r.Remaining() {
			return out, decode.Errorf(decode.MalformedTlv,
				"%s at offset %d declares %d bytes, %d remain", Type(tag), offset, length, r.Remaining())
		}

		payload, err := r.Bytes(int(length))
		if err != nil {
			return out, err
		}
		out = append(out, parseEntry(Type(tag), payload))
	}

	return out, nil
}

func parseEntry(t Type, payload []byte) Extension {
	p, ok := parsers[t]
	if !ok {
		if t.Known() {
			return &Opaque{Kind: t, Raw: payload}
		}
		return &Unknown{Tag: uint16(t), Raw: payload}
	}

	if p.size >= 0 && len(payload) != p.size {
		return &Invalid{
			Kind: t,
			Raw:  payload,
			Err:  decode.Errorf(decode.MalformedTlv, "%s payload is %d bytes, expected %d", t, len(payload), p.size),
		}
	}

	ext, err := p.parse(decode.NewReader(payload).Field(t.String()))
	if err != nil {
		return &Invalid{Kind: t, Raw: payload, Err: err}
	}
	return ext
}

func parseTransferFee(r *decode.Reader) (TransferFee, error) {
	var (
		f   TransferFee
		err error
	)
	if f.Epoch, err = r.U64(); err != nil {
		return f, err
	}
	if f.MaximumFee, err = r.U64(); err != nil {
		return f, err
	}
	f.TransferFeeBasisPoints, err = r.U16()
	return f, err
}

func parseTransferFeeConfig(r *decode.Reader) (Extension, error) {
	var (
		c   TransferFeeConfig
		err error
	)
	if c.ConfigAuthority, err = r.OptionalPubkey(); err != nil {
		return nil, err
	}
	if c.WithdrawWithheldAuthority, err = r.OptionalPubkey(); err != nil {
		return nil, err
	}
	if c.WithheldAmount, err = r.U64(); err != nil {
		return nil, err
	}
	if c.OlderTransferFee, err = parseTransferFee(r); err != nil {
		return nil, err
	}
	if c.NewerTransferFee, err = parseTransferFee(r); err != nil {
		return nil, err
	}
	return &c, nil
}

func parseTransferFeeAmount(r *decode.Reader) (Extension, error) {
	v, err := r.U64()
	if err != nil {
		return nil, err
	}
	return &TransferFeeAmount{WithheldAmount: v}, nil
}

func parseMintCloseAuthority(r *decode.Reader) (Extension, error) {
	k, err := r.OptionalPubkey()
	if err != nil {
		return nil, err
	}
	return &MintCloseAuthority{CloseAuthority: k}, nil
}

func parseConfidentialTransferMint(r *decode.Reader) (Extension, error) {
	var (
		c   ConfidentialTransferMint
		err error
	)
	if c.Authority, err = r.OptionalPubkey(); err != nil {
		return nil, err
	}
	if c.AutoApproveNewAccounts, err = r.Bool(); err != nil {
		return nil, err
	}
	auditor, err := r.Bytes(32)
	if err != nil {
		return nil, err
	}
	for _, b := range auditor {
		if b != 0 {
			c.AuditorElGamalPubkey = auditor
			break
		}
	}
	return &c, nil
}

func parseDefaultAccountState(r *decode.Reader) (Extension, error) {
	s, err := r.U8()
	if err != nil {
		return nil, err
	}
	if s > uint8(token.StateFrozen) {
		return nil, decode.Errorf(decode.InvalidState, "default account state %d", s)
	}
	return &DefaultAccountState{State: token.AccountState(s)}, nil
}

func parseMemoTransfer(r *decode.Reader) (Extension, error) {
	b, err := r.Bool()
	if err != nil {
		return nil, err
	}
	return &MemoTransfer{RequireIncomingTransferMemos: b}, nil
}

func parseInterestBearingConfig(r *decode.Reader) (Extension, error) {
	var (
		c   InterestBearingConfig
		err error
	)
	if c.RateAuthority, err = r.OptionalPubkey(); err != nil {
		return nil, err
	}
	if c.InitializationTimestamp, err = r.I64(); err != nil {
		return nil, err
	}
	if c.PreUpdateAverageRate, err = r.I16(); err != nil {
		return nil, err
	}
	if c.LastUpdateTimestamp, err = r.I64(); err != nil {
		return nil, err
	}
	if c.CurrentRate, err = r.I16(); err != nil {
		return nil, err
	}
	return &c, nil
}

func parseCpiGuard(r *decode.Reader) (Extension, error) {
	b, err := r.Bool()
	if err != nil {
		return nil, err
	}
	return &CpiGuard{LockCpi: b}, nil
}

func parsePermanentDelegate(r *decode.Reader) (Extension, error) {
	k, err := r.OptionalPubkey()
	if err != nil {
		return nil, err
	}
	return &PermanentDelegate{Delegate: k}, nil
}

func parseTransferHook(r *decode.Reader) (Extension, error) {
	a, p, err := twoKeys(r)
	if err != nil {
		return nil, err
	}
	return &TransferHook{Authority: a, ProgramID: p}, nil
}

func parseTransferHookAccount(r *decode.Reader) (Extension, error) {
	b, err := r.Bool()
	if err != nil {
		return nil, err
	}
	return &TransferHookAccount{Transferring: b}, nil
}

func parseMetadataPointer(r *decode.Reader) (Extension, error) {
	a, m, err := twoKeys(r)
	if err != nil {
		return nil, err
	}
	return &MetadataPointer{Authority: a, MetadataAddress: m}, nil
}

// DecodeTokenMetadata decodes a bare TokenMetadata payload, as stored by
// metadata programs that a MetadataPointer may reference.
func DecodeTokenMetadata(payload []byte) (*TokenMetadata, error) {
	ext, err := parseTokenMetadata(decode.NewReader(payload).Field(TypeTokenMetadata.String()))
	if err != nil {
		return nil, err
	}
	return ext.(*TokenMetadata), nil
}

// parseTokenMetadata reads the variable-length TokenMetadata payload:
// update_authority 32 | mint 32 | name | symbol | uri | vec<(key, value)>.
func parseTokenMetadata(r *decode.Reader) (Extension, error) {
	var (
		m   TokenMetadata
		err error
	)
	if m.UpdateAuthority, err = r.Field("update_authority").OptionalPubkey(); err != nil {
		return nil, err
	}
	if m.Mint, err = r.Field("mint").Pubkey(); err != nil {
		return nil, err
	}
	if m.Name, err = r.Field("name").String(); err != nil {
		return nil, err
	}
	if m.Symbol, err = r.Field("symbol").String(); err != nil {
		return nil, err
	}
	if m.URI, err = r.Field("uri").String(); err != nil {
		return nil, err
	}

	n, err := r.Field("additional_metadata").U32()
	if err != nil {
		return nil, err
	}
	// Each pair needs at least two length prefixes.
	if int64(n)*8 > int64(r.Remaining()) {
		return nil, decode.Errorf(decode.TruncatedData, "additional_metadata: %d pairs in %d bytes", n, r.Remaining())
	}
	for i := uint32(0); i < n; i++ {
		k, err := r.Field("additional_metadata key").String()
		if err != nil {
			return nil, err
		}
		v, err := r.Field("additional_metadata value").String()
		if err != nil {
			return nil, err
		}
		m.AdditionalMetadata = append(m.AdditionalMetadata, KeyValue{Key: k, Value: v})
	}
	return &m, nil
}

func parseGroupPointer(r *decode.Reader) (Extension, error) {
	a, g, err := twoKeys(r)
	if err != nil {
		return nil, err
	}
	return &GroupPointer{Authority: a, GroupAddress: g}, nil
}

func parseTokenGroup(r *decode.Reader) (Extension, error) {
	var (
		g   TokenGroup
		err error
	)
	if g.UpdateAuthority, err = r.OptionalPubkey(); err != nil {
		return nil, err
	}
	if g.Mint, err = r.Pubkey(); err != nil {
		return nil, err
	}
	if g.Size, err = r.U64(); err != nil {
		return nil, err
	}
	if g.MaxSize, err = r.U64(); err != nil {
		return nil, err
	}
	return &g, nil
}

func parseGroupMemberPointer(r *decode.Reader) (Extension, error) {
	a, m, err := twoKeys(r)
	if err != nil {
		return nil, err
	}
	return &GroupMemberPointer{Authority: a, MemberAddress: m}, nil
}

func parseTokenGroupMember(r *decode.Reader) (Extension, error) {
	var (
		m   TokenGroupMember
		err error
	)
	if m.Mint, err = r.Pubkey(); err != nil {
		return nil, err
	}
	if m.Group, err = r.Pubkey(); err != nil {
		return nil, err
	}
	if m.MemberNumber, err = r.U64(); err != nil {
		return nil, err
	}
	return &m, nil
}

func parseScaledUiAmount(r *decode.Reader) (Extension, error) {
	var (
		s   ScaledUiAmount
		err error
	)
	if s.Authority, err = r.OptionalPubkey(); err != nil {
		return nil, err
	}
	if s.Multiplier, err = r.F64(); err != nil {
		return nil, err
	}
	if s.NewMultiplierEffectiveTimestamp, err = r.I64(); err != nil {
		return nil, err
	}
	if s.NewMultiplier, err = r.F64(); err != nil {
		return nil, err
	}
	return &s, nil
}

func parsePausable(r *decode.Reader) (Extension, error) {
	var (
		p   Pausable
		err error
	)
	if p.Authority, err = r.OptionalPubkey(); err != nil {
		return nil, err
	}
	if p.Paused, err = r.Bool(); err != nil {
		return nil, err
	}
	return &p, nil
}

func twoKeys(r *decode.Reader) (first, second *solana.PublicKey, err error) {
	if first, err = r.OptionalPubkey(); err != nil {
		return nil, nil, err
	}
	if second, err = r.OptionalPubkey(); err != nil {
		return nil, nil, err
	}
	return first, second, nil
}
