// Package layout picks the decoder for an account from its owner program and
// size. Each known program registers a resolver; adding a program never
// touches the decoders of the others.
package layout

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/dmagro/sol-explorer/internal/decode"
	"github.com/dmagro/sol-explorer/internal/extension"
	"github.com/dmagro/sol-explorer/internal/metadata"
	"github.com/dmagro/sol-explorer/internal/token"
)

type Kind int

const (
	KindTokenAccount Kind = iota + 1
	KindMint
	KindMultisig
	KindMetadata
)

func (k Kind) String() string {
	switch k {
	case KindTokenAccount:
		return "token-account"
	case KindMint:
		return "mint"
	case KindMultisig:
		return "multisig"
	case KindMetadata:
		return "metadata"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Strategy says how to decode one account.
type Strategy struct {
	Program     solana.PublicKey
	ProgramName string
	Kind        Kind
	Extended    bool // a Token-2022 TLV region follows the base layout
}

// ResolveFunc picks a Strategy for data owned by the registered program.
type ResolveFunc func(data []byte) (Strategy, error)

type Registry struct {
	resolvers map[solana.PublicKey]ResolveFunc
}

func NewRegistry() *Registry {
	return &Registry{resolvers: map[solana.PublicKey]ResolveFunc{}}
}

// Default knows SPL Token, Token-2022 and Metaplex Token Metadata.
func Default() *Registry {
	r := NewRegistry()
	r.Register(solana.TokenProgramID, splToken)
	r.Register(solana.Token2022ProgramID, token2022)
	r.Register(solana.TokenMetadataProgramID, metaplex)
	return r
}

func (r *Registry) Register(program solana.PublicKey, fn ResolveFunc) {
	r.resolvers[program] = fn
}

// Knows reports whether program has a resolver.
func (r *Registry) Knows(program solana.PublicKey) bool {
	_, ok := r.resolvers[program]
	return ok
}

// Resolve returns the Strategy for an account. An owner without a resolver,
// or a size its resolver does not recognize, is ErrUnknownLayout.
func (r *Registry) Resolve(owner solana.PublicKey, data []byte) (Strategy, error) {
	fn, ok := r.resolvers[owner]
	if !ok {
		return Strategy{}, decode.Errorf(decode.UnknownLayout, "no layout for owner %s", owner)
	}
	s, err := fn(data)
	if err != nil {
		return Strategy{}, err
	}
	s.Program = owner
	return s, nil
}

func splToken(data []byte) (Strategy, error) {
	s := Strategy{ProgramName: "spl-token"}
	switch len(data) {
	case token.AccountSize:
		s.Kind = KindTokenAccount
	case token.MintSize:
		s.Kind = KindMint
	case token.MultisigSize:
		s.Kind = KindMultisig
	default:
		return Strategy{}, decode.Errorf(decode.UnknownLayout, "spl-token account of %d bytes", len(data))
	}
	return s, nil
}

func token2022(data []byte) (Strategy, error) {
	s := Strategy{ProgramName: "spl-token-2022"}
	switch n := len(data); {
	case n == token.AccountSize:
		s.Kind = KindTokenAccount
	case n == token.MintSize:
		s.Kind = KindMint
	case n == token.MultisigSize:
		s.Kind = KindMultisig
	case n > token.AccountSize:
		s.Extended = true
		switch t := token.AccountType(data[token.AccountTypeOffset]); t {
		case token.AccountTypeMint:
			s.Kind = KindMint
		case token.AccountTypeAccount:
			s.Kind = KindTokenAccount
		default:
			return Strategy{}, decode.Errorf(decode.InvalidState, "spl-token-2022 account type %s", t)
		}
	default:
		return Strategy{}, decode.Errorf(decode.UnknownLayout, "spl-token-2022 account of %d bytes", n)
	}
	return s, nil
}

func metaplex(data []byte) (Strategy, error) {
	if len(data) == 0 || data[0] != 4 {
		return Strategy{}, decode.Errorf(decode.UnknownLayout, "metaplex account is not MetadataV1")
	}
	return Strategy{ProgramName: "token-metadata", Kind: KindMetadata}, nil
}

// Decoded is the result of applying a Strategy. Exactly one of Account, Mint,
// Multisig and Metadata is set.
type Decoded struct {
	Strategy   Strategy
	Account    *token.Account
	Mint       *token.Mint
	Multisig   *token.Multisig
	Metadata   *metadata.Record
	Extensions []extension.Extension

	// ExtensionErr is a MalformedTlv failure of the extension region.
	// Extensions still holds every entry read before it.
	ExtensionErr error
}

// Decode applies s to data read at addr. A base-layout failure is returned
// as the error; a broken TLV region is reported through ExtensionErr.
func (s Strategy) Decode(addr solana.PublicKey, data []byte) (*Decoded, error) {
	d := &Decoded{Strategy: s}
	var err error

	switch s.Kind {
	case KindTokenAccount:
		if d.Account, err = token.DecodeAccount(data); err != nil {
			return nil, err
		}
		if s.Extended {
			err = d.parseExtensions(data, token.AccountTypeAccount)
		}
	case KindMint:
		if d.Mint, err = token.DecodeMint(data); err != nil {
			return nil, err
		}
		if s.Extended {
			err = d.parseExtensions(data, token.AccountTypeMint)
		}
	case KindMultisig:
		d.Multisig, err = token.DecodeMultisig(data)
	case KindMetadata:
		d.Metadata, err = metadata.DecodeMetaplex(addr, data)
	default:
		err = decode.Errorf(decode.UnknownLayout, "strategy kind %s", s.Kind)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Decoded) parseExtensions(data []byte, want token.AccountType) error {
	region, err := token.ExtensionRegion(data, want)
	if err != nil {
		return err
	}
	d.Extensions, d.ExtensionErr = extension.Parse(region)
	return nil
}
