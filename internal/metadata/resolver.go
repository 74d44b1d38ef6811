package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/dmagro/sol-explorer/internal/decode"
	"github.com/dmagro/sol-explorer/internal/extension"
	"github.com/dmagro/sol-explorer/internal/logger"
	"github.com/dmagro/sol-explorer/internal/rpc"
	"github.com/dmagro/sol-explorer/internal/token"
)

// AccountFetcher is the one RPC call the resolver needs.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, addr solana.PublicKey) (*rpc.RawAccount, error)
}

type Resolver struct {
	fetcher AccountFetcher
}

func NewResolver(f AccountFetcher) *Resolver {
	return &Resolver{fetcher: f}
}

// Resolve finds metadata for mint. exts are the mint's own extensions, if it
// has any.
//
// The Metaplex PDA is tried first. Failing that, a MetadataPointer is
// followed one hop: a pointer to the mint itself means the embedded
// TokenMetadata extension, anything else is fetched and read. A pointer is
// never followed from the pointed-to account.
//
// ErrNotFound is returned when neither source has data. A failure on a
// source is returned instead of ErrNotFound so the caller can warn about it;
// a fetch failure outranks a decode failure. A failed Metaplex fetch does not
// stop the pointer path, so embedded metadata still resolves offline.
func (r *Resolver) Resolve(ctx context.Context, mint solana.PublicKey, exts []extension.Extension) (*Record, error) {
	rec, decodeErr, fetchErr := r.fromMetaplex(ctx, mint)
	if rec != nil {
		return rec, nil
	}
	if fetchErr != nil {
		logger.Debugf("metaplex metadata for %s: %v", mint, fetchErr)
	}

	rec, err := r.fromPointer(ctx, mint, exts)
	if rec != nil {
		return rec, nil
	}
	if err != nil {
		var derr *decode.Error
		switch {
		case errors.As(err, &derr):
			decodeErr = err
		case fetchErr == nil:
			fetchErr = err
		}
	}

	switch {
	case fetchErr != nil:
		return nil, fetchErr
	case decodeErr != nil:
		return nil, decodeErr
	}
	return nil, ErrNotFound
}

func (r *Resolver) fromMetaplex(ctx context.Context, mint solana.PublicKey) (rec *Record, decodeErr, err error) {
	pda, _, err := solana.FindTokenMetadataAddress(mint)
	if err != nil {
		return nil, nil, fmt.Errorf("derive metadata address for %s: %w", mint, err)
	}

	acct, err := r.fetcher.FetchAccount(ctx, pda)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if !acct.Owner.Equals(solana.TokenMetadataProgramID) {
		logger.Debugf("metadata PDA %s owned by %s, ignoring", pda, acct.Owner)
		return nil, nil, nil
	}

	rec, derr := DecodeMetaplex(pda, acct.Data)
	if derr != nil {
		return nil, derr, nil
	}
	if !rec.Mint.Equals(mint) {
		return nil, decode.Errorf(decode.InvalidState, "metadata %s describes mint %s", pda, rec.Mint), nil
	}
	return rec, nil, nil
}

func (r *Resolver) fromPointer(ctx context.Context, mint solana.PublicKey, exts []extension.Extension) (*Record, error) {
	ptr, hasPtr := extension.Find[*extension.MetadataPointer](exts)
	embedded, hasEmbedded := extension.Find[*extension.TokenMetadata](exts)

	if !hasPtr || ptr.MetadataAddress == nil {
		if hasEmbedded {
			return FromTokenMetadata(mint, embedded), nil
		}
		return nil, nil
	}

	target := *ptr.MetadataAddress
	if target.Equals(mint) {
		if hasEmbedded {
			return FromTokenMetadata(mint, embedded), nil
		}
		return nil, nil
	}

	acct, err := r.fetcher.FetchAccount(ctx, target)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec, err := readPointed(acct)
	if err != nil || rec == nil {
		return nil, err
	}
	if !rec.Mint.Equals(mint) {
		return nil, decode.Errorf(decode.InvalidState, "metadata %s describes mint %s", target, rec.Mint)
	}
	return rec, nil
}

// readPointed reads metadata from the account a pointer names, without
// following any pointer found there.
func readPointed(acct *rpc.RawAccount) (*Record, error) {
	switch {
	case acct.Owner.Equals(solana.TokenMetadataProgramID):
		return DecodeMetaplex(acct.Address, acct.Data)

	case acct.Owner.Equals(solana.Token2022ProgramID):
		region, err := token.ExtensionRegion(acct.Data, token.AccountTypeMint)
		if err != nil {
			return nil, err
		}
		exts, err := extension.Parse(region)
		if tm, ok := extension.Find[*extension.TokenMetadata](exts); ok {
			return FromTokenMetadata(acct.Address, tm), nil
		}
		return nil, err

	default:
		// Interface programs store TLV entries; a bare payload is the fallback.
		tm, err := decodeInterfaceTLV(acct.Data)
		if err != nil {
			bare, bareErr := extension.DecodeTokenMetadata(acct.Data)
			if bareErr != nil {
				return nil, err
			}
			tm = bare
		}
		return FromTokenMetadata(acct.Address, tm), nil
	}
}
