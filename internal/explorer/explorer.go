// Package explorer answers the CLI's queries: it fetches accounts through the
// RPC gateway, routes them through the layout registry and decoders, looks up
// metadata and composes the result into a DisplayRecord.
package explorer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/dmagro/sol-explorer/internal/decode"
	"github.com/dmagro/sol-explorer/internal/extension"
	"github.com/dmagro/sol-explorer/internal/layout"
	"github.com/dmagro/sol-explorer/internal/logger"
	"github.com/dmagro/sol-explorer/internal/metadata"
	"github.com/dmagro/sol-explorer/internal/rpc"
)

// Gateway is the subset of the RPC client the explorer uses.
type Gateway interface {
	FetchAccount(ctx context.Context, addr solana.PublicKey) (*rpc.RawAccount, error)
	FetchAccountsBatch(ctx context.Context, addrs []solana.PublicKey) []rpc.AccountResult
	FetchTransaction(ctx context.Context, sig solana.Signature) (*rpc.TransactionRecord, error)
	TokenAccountsByOwner(ctx context.Context, owner, program solana.PublicKey) ([]rpc.TokenHolding, error)
	FetchBlock(ctx context.Context, slot uint64) (*rpc.BlockRecord, error)
	Slot(ctx context.Context) (uint64, error)
}

type Explorer struct {
	gateway  Gateway
	registry *layout.Registry
	resolver *metadata.Resolver
	workers  int
}

type Option func(*Explorer)

// WithWorkers bounds the metadata lookups a wallet query runs at once.
func WithWorkers(n int) Option {
	return func(e *Explorer) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithRegistry(r *layout.Registry) Option {
	return func(e *Explorer) { e.registry = r }
}

func New(gw Gateway, opts ...Option) *Explorer {
	e := &Explorer{
		gateway:  gw,
		registry: layout.Default(),
		resolver: metadata.NewResolver(gw),
		workers:  rpc.DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// query carries the state of one Account call. The mint memo lives and dies
// with it; nothing is cached across queries.
type query struct {
	*Explorer
	mints *cache.Cache
}

func (e *Explorer) newQuery() *query {
	return &query{Explorer: e, mints: cache.New(cache.NoExpiration, 0)}
}

// Account fetches addr and decodes it according to its owner program.
func (e *Explorer) Account(ctx context.Context, addr solana.PublicKey) (*DisplayRecord, error) {
	acct, err := e.gateway.FetchAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	return e.newQuery().inspect(ctx, acct)
}

// Mint is Account restricted to mints. Any other account is ErrInvalidInput.
func (e *Explorer) Mint(ctx context.Context, addr solana.PublicKey) (*DisplayRecord, error) {
	acct, err := e.gateway.FetchAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	s, err := e.registry.Resolve(acct.Owner, acct.Data)
	if err != nil && !errors.Is(err, decode.ErrUnknownLayout) {
		return nil, err
	}
	if err != nil || s.Kind != layout.KindMint {
		return nil, fmt.Errorf("%w: %s is not a mint account (owner %s)", ErrInvalidInput, addr, acct.Owner)
	}
	return e.newQuery().inspect(ctx, acct)
}

// Transaction fetches a confirmed transaction.
func (e *Explorer) Transaction(ctx context.Context, sig solana.Signature) (*rpc.TransactionRecord, error) {
	return e.gateway.FetchTransaction(ctx, sig)
}

// Accounts fetches addrs in one batch and decodes each row. Row i always
// answers addrs[i]; a failure stays on its row. Token account rows learn
// their mint's decimals from a mint in the same batch or from one extra
// batch of the mints still missing. No metadata is looked up.
func (e *Explorer) Accounts(ctx context.Context, addrs []solana.PublicKey) []BatchRow {
	q := e.newQuery()
	results := e.gateway.FetchAccountsBatch(ctx, addrs)
	rows := make([]BatchRow, len(results))
	parts := make([]*Parts, len(results))
	for i, res := range results {
		rows[i].Address = res.Address
		if res.Err != nil {
			rows[i].Err = res.Err
			continue
		}
		parts[i], rows[i].Err = e.decodeParts(res.Account)
		if p := parts[i]; p != nil && p.Kind == KindMint {
			q.remember(res.Account.Address, p.Decoded.Mint.Decimals)
		}
	}

	mints := lo.Uniq(lo.FilterMap(parts, func(p *Parts, _ int) (solana.PublicKey, bool) {
		if p == nil || p.Kind != KindTokenAccount {
			return solana.PublicKey{}, false
		}
		return p.Decoded.Account.Mint, true
	}))
	missing := lo.Reject(mints, func(m solana.PublicKey, _ int) bool {
		_, hit := q.mints.Get(m.String())
		return hit
	})
	mintErrs := map[solana.PublicKey]error{}
	if len(missing) > 0 {
		for _, res := range e.gateway.FetchAccountsBatch(ctx, missing) {
			err := res.Err
			if err == nil {
				var d *layout.Decoded
				if d, err = q.decodeMint(res.Account); err == nil {
					q.remember(res.Address, d.Mint.Decimals)
				}
			}
			if err != nil {
				mintErrs[res.Address] = err
			}
		}
	}

	for i, p := range parts {
		if p == nil {
			continue
		}
		if p.Kind == KindTokenAccount {
			mint := p.Decoded.Account.Mint
			if v, ok := q.mints.Get(mint.String()); ok {
				p.MintInfo = v.(*MintSummary)
			} else {
				p.Warnings = append(p.Warnings, fmt.Sprintf("mint %s: %v", mint, mintErrs[mint]))
			}
		}
		rows[i].Record = Aggregate(*p)
	}
	return rows
}

// decodeParts decodes acct with no RPC calls.
func (e *Explorer) decodeParts(acct *rpc.RawAccount) (*Parts, error) {
	if acct.Owner.Equals(solana.SystemProgramID) {
		return &Parts{Account: acct, Kind: KindWallet, Program: "system"}, nil
	}
	s, err := e.registry.Resolve(acct.Owner, acct.Data)
	if errors.Is(err, decode.ErrUnknownLayout) {
		return &Parts{Account: acct, Kind: KindOther}, nil
	}
	if err != nil {
		return nil, err
	}
	d, err := s.Decode(acct.Address, acct.Data)
	if err != nil {
		return nil, err
	}
	parts := &Parts{Account: acct, Kind: kindOf(s.Kind), Program: s.ProgramName, Decoded: d}
	if d.ExtensionErr != nil {
		parts.Warnings = append(parts.Warnings, "extensions: "+d.ExtensionErr.Error())
	}
	return parts, nil
}

func (q *query) inspect(ctx context.Context, acct *rpc.RawAccount) (*DisplayRecord, error) {
	if acct.Owner.Equals(solana.SystemProgramID) {
		return q.wallet(ctx, acct)
	}

	s, err := q.registry.Resolve(acct.Owner, acct.Data)
	if errors.Is(err, decode.ErrUnknownLayout) {
		logger.Debugf("no layout for %s owned by %s", acct.Address, acct.Owner)
		return Aggregate(Parts{Account: acct, Kind: KindOther}), nil
	}
	if err != nil {
		return nil, err
	}

	d, err := s.Decode(acct.Address, acct.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", s.ProgramName, s.Kind, err)
	}

	parts := Parts{Account: acct, Kind: kindOf(s.Kind), Program: s.ProgramName, Decoded: d}
	if d.ExtensionErr != nil {
		parts.Warnings = append(parts.Warnings, "extensions: "+d.ExtensionErr.Error())
	}

	switch s.Kind {
	case layout.KindMint:
		md, err := q.resolver.Resolve(ctx, acct.Address, d.Extensions)
		parts.Metadata, parts.Warnings = keepMetadata(md, err, parts.Warnings)
	case layout.KindTokenAccount:
		info, warn := q.mintSummary(ctx, d.Account.Mint)
		parts.MintInfo = info
		if warn != "" {
			parts.Warnings = append(parts.Warnings, warn)
		}
	}
	return Aggregate(parts), nil
}

// keepMetadata turns a resolver result into a record or a warning. Absent
// metadata is neither.
func keepMetadata(md *metadata.Record, err error, warnings []string) (*metadata.Record, []string) {
	switch {
	case err == nil:
		return md, warnings
	case errors.Is(err, metadata.ErrNotFound):
		return nil, warnings
	default:
		return nil, append(warnings, "metadata: "+err.Error())
	}
}

// remember stores a mint summary that carries decimals only.
func (q *query) remember(mint solana.PublicKey, decimals uint8) {
	q.mints.Set(mint.String(), &MintSummary{Address: mint, Decimals: decimals}, cache.NoExpiration)
}

// decodeMint decodes acct, which must be a mint.
func (q *query) decodeMint(acct *rpc.RawAccount) (*layout.Decoded, error) {
	s, err := q.registry.Resolve(acct.Owner, acct.Data)
	if err == nil && s.Kind != layout.KindMint {
		err = decode.Errorf(decode.UnknownLayout, "%s is a %s, not a mint", acct.Address, s.Kind)
	}
	if err != nil {
		return nil, err
	}
	return s.Decode(acct.Address, acct.Data)
}

// mintSummary returns the memoized summary of mint, fetching it on a miss.
func (q *query) mintSummary(ctx context.Context, mint solana.PublicKey) (*MintSummary, string) {
	if v, ok := q.mints.Get(mint.String()); ok {
		return v.(*MintSummary), ""
	}
	acct, err := q.gateway.FetchAccount(ctx, mint)
	if err != nil {
		return nil, fmt.Sprintf("mint %s: %v", mint, err)
	}
	return q.summarizeMint(ctx, acct)
}

// summarizeMint decodes a mint and adds its name and symbol.
func (q *query) summarizeMint(ctx context.Context, acct *rpc.RawAccount) (*MintSummary, string) {
	d, err := q.decodeMint(acct)
	if err != nil {
		return nil, fmt.Sprintf("mint %s: %v", acct.Address, err)
	}

	info := &MintSummary{Address: acct.Address, Decimals: d.Mint.Decimals}
	var warn string
	md, err := q.resolver.Resolve(ctx, acct.Address, d.Extensions)
	switch {
	case err == nil:
		info.Name, info.Symbol = md.Name, md.Symbol
	case !errors.Is(err, metadata.ErrNotFound):
		warn = fmt.Sprintf("metadata of mint %s: %v", acct.Address, err)
	}
	q.mints.Set(acct.Address.String(), info, cache.NoExpiration)
	return info, warn
}

// tokenPrograms are listed for a wallet, in display order.
var tokenPrograms = []solana.PublicKey{solana.TokenProgramID, solana.Token2022ProgramID}

func (q *query) wallet(ctx context.Context, acct *rpc.RawAccount) (*DisplayRecord, error) {
	parts := Parts{Account: acct, Kind: KindWallet, Program: "system"}

	// One slot per token program; neither listing can fail the other.
	listed := make([][]rpc.TokenHolding, len(tokenPrograms))
	listErrs := make([]error, len(tokenPrograms))
	g, gctx := errgroup.WithContext(ctx)
	for i, program := range tokenPrograms {
		i, program := i, program
		g.Go(func() error {
			listed[i], listErrs[i] = q.gateway.TokenAccountsByOwner(gctx, acct.Address, program)
			return nil
		})
	}
	_ = g.Wait()

	var holdings []rpc.TokenHolding
	for i, err := range listErrs {
		if err != nil {
			parts.Warnings = append(parts.Warnings, fmt.Sprintf("token accounts (%s): %v", tokenPrograms[i], err))
			continue
		}
		holdings = append(holdings, listed[i]...)
	}

	symbols, warnings := q.symbols(ctx, holdings)
	parts.Warnings = append(parts.Warnings, warnings...)
	parts.Holdings = lo.Map(holdings, func(h rpc.TokenHolding, _ int) Holding {
		return Holding{TokenHolding: h, Symbol: symbols[h.Mint]}
	})
	return Aggregate(parts), nil
}

// symbols resolves the symbol of every distinct mint in holdings. Mints
// already in the query memo are not fetched again; the rest come in one
// batch and their metadata lookups run on at most q.workers goroutines.
func (q *query) symbols(ctx context.Context, holdings []rpc.TokenHolding) (map[solana.PublicKey]string, []string) {
	mints := lo.Uniq(lo.Map(holdings, func(h rpc.TokenHolding, _ int) solana.PublicKey { return h.Mint }))
	missing := lo.Reject(mints, func(m solana.PublicKey, _ int) bool {
		_, hit := q.mints.Get(m.String())
		return hit
	})

	var warns []string
	if len(missing) > 0 {
		results := q.gateway.FetchAccountsBatch(ctx, missing)
		warns = make([]string, len(results))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(q.workers)
		for i, res := range results {
			i, res := i, res
			if res.Err != nil {
				warns[i] = fmt.Sprintf("mint %s: %v", res.Address, res.Err)
				continue
			}
			g.Go(func() error {
				_, warns[i] = q.summarizeMint(gctx, res.Account)
				return nil
			})
		}
		_ = g.Wait()
	}

	out := make(map[solana.PublicKey]string, len(mints))
	for _, m := range mints {
		if v, ok := q.mints.Get(m.String()); ok {
			out[m] = v.(*MintSummary).Symbol
		}
	}
	return out, lo.Compact(warns)
}

// Extensions filters exts for display. Marker extensions without a payload
// are hidden unless all is set.
func Extensions(exts []extension.Extension, all bool) []extension.Extension {
	if all {
		return exts
	}
	return lo.Filter(exts, func(e extension.Extension, _ int) bool {
		switch e.(type) {
		case *extension.ImmutableOwner, *extension.NonTransferableAccount, *extension.PausableAccount:
			return false
		}
		return true
	})
}
