package explorer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/sol-explorer/internal/address"
	"github.com/dmagro/sol-explorer/internal/decode"
	"github.com/dmagro/sol-explorer/internal/decode/decodetest"
	"github.com/dmagro/sol-explorer/internal/extension"
	"github.com/dmagro/sol-explorer/internal/layout"
	"github.com/dmagro/sol-explorer/internal/rpc"
)

type fakeGateway struct {
	mu         sync.Mutex
	accounts   map[solana.PublicKey]*rpc.RawAccount
	holdings   map[solana.PublicKey][]rpc.TokenHolding
	holdingErr map[solana.PublicKey]error
	txs        map[solana.Signature]*rpc.TransactionRecord
	blocks     map[uint64]*rpc.BlockRecord
	fetched    map[solana.PublicKey]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		accounts:   map[solana.PublicKey]*rpc.RawAccount{},
		holdings:   map[solana.PublicKey][]rpc.TokenHolding{},
		holdingErr: map[solana.PublicKey]error{},
		txs:        map[solana.Signature]*rpc.TransactionRecord{},
		blocks:     map[uint64]*rpc.BlockRecord{},
		fetched:    map[solana.PublicKey]int{},
	}
}

func (g *fakeGateway) put(addr, owner solana.PublicKey, lamports uint64, data []byte) {
	g.accounts[addr] = &rpc.RawAccount{Address: addr, Owner: owner, Lamports: lamports, Data: data}
}

func (g *fakeGateway) FetchAccount(_ context.Context, addr solana.PublicKey) (*rpc.RawAccount, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetched[addr]++
	if acct, ok := g.accounts[addr]; ok {
		return acct, nil
	}
	return nil, fmt.Errorf("account %s: %w", addr, rpc.ErrNotFound)
}

func (g *fakeGateway) FetchAccountsBatch(ctx context.Context, addrs []solana.PublicKey) []rpc.AccountResult {
	out := make([]rpc.AccountResult, len(addrs))
	for i, a := range addrs {
		out[i].Address = a
		out[i].Account, out[i].Err = g.FetchAccount(ctx, a)
	}
	return out
}

func (g *fakeGateway) FetchTransaction(_ context.Context, sig solana.Signature) (*rpc.TransactionRecord, error) {
	if tx, ok := g.txs[sig]; ok {
		return tx, nil
	}
	return nil, fmt.Errorf("transaction %s: %w", sig, rpc.ErrNotFound)
}

func (g *fakeGateway) TokenAccountsByOwner(_ context.Context, _, program solana.PublicKey) ([]rpc.TokenHolding, error) {
	if err := g.holdingErr[program]; err != nil {
		return nil, err
	}
	return g.holdings[program], nil
}

func (g *fakeGateway) FetchBlock(_ context.Context, slot uint64) (*rpc.BlockRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.blocks[slot]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("block %d: %w", slot, rpc.ErrNotFound)
}

func (g *fakeGateway) Slot(context.Context) (uint64, error) {
	return 103, nil
}

func metadataPDA(t *testing.T, mint solana.PublicKey) solana.PublicKey {
	t.Helper()
	pda, _, err := solana.FindTokenMetadataAddress(mint)
	require.NoError(t, err)
	return pda
}

func TestAccountNativeTokenAccountWithoutMetadata(t *testing.T) {
	gw := newFakeGateway()
	acct, mint, owner := decodetest.Key(1), decodetest.Key(2), decodetest.Key(3)
	gw.put(acct, solana.TokenProgramID, 2_039_280, decodetest.Account(decodetest.AccountFields{
		Mint: mint, Owner: owner, Amount: 1_500_000_000, State: 1,
	}))
	gw.put(mint, solana.TokenProgramID, 1, decodetest.Mint(decodetest.MintFields{Supply: 10, Decimals: 9}))

	rec, err := New(gw).Account(context.Background(), acct)
	require.NoError(t, err)

	assert.Equal(t, KindTokenAccount, rec.Kind)
	assert.Equal(t, "spl-token", rec.Program)
	require.NotNil(t, rec.TokenAccount)
	assert.Equal(t, uint64(1_500_000_000), rec.TokenAccount.Amount)
	assert.Empty(t, rec.Extensions)
	assert.Nil(t, rec.Metadata, "absent metadata is rendered as absent")
	assert.Empty(t, rec.Warnings)
	require.NotNil(t, rec.MintInfo)
	assert.Equal(t, uint8(9), rec.MintInfo.Decimals)
	assert.Empty(t, rec.MintInfo.Symbol)
}

func TestAccountTokenAccountShowsMintSymbol(t *testing.T) {
	gw := newFakeGateway()
	acct, mint := decodetest.Key(1), decodetest.Key(2)
	gw.put(acct, solana.TokenProgramID, 1, decodetest.Account(decodetest.AccountFields{Mint: mint, State: 1}))
	gw.put(mint, solana.TokenProgramID, 1, decodetest.Mint(decodetest.MintFields{Decimals: 6}))
	gw.put(metadataPDA(t, mint), solana.TokenMetadataProgramID,
		1, decodetest.MetaplexMetadata(decodetest.Key(4), mint, "USD Coin", "USDC", "", 0))

	rec, err := New(gw).Account(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, "USDC", rec.MintInfo.Symbol)
	assert.Equal(t, "USD Coin", rec.MintInfo.Name)
	assert.Nil(t, rec.Metadata, "metadata belongs to the mint, not the token account")
}

func TestAccountMissingMintIsAWarning(t *testing.T) {
	gw := newFakeGateway()
	acct := decodetest.Key(1)
	gw.put(acct, solana.TokenProgramID, 1, decodetest.Account(decodetest.AccountFields{Mint: decodetest.Key(2), State: 1}))

	rec, err := New(gw).Account(context.Background(), acct)
	require.NoError(t, err)
	assert.Nil(t, rec.MintInfo)
	require.Len(t, rec.Warnings, 1)
	assert.Contains(t, rec.Warnings[0], "not found")
}

func TestAccountExtendedMintWithEmbeddedMetadata(t *testing.T) {
	gw := newFakeGateway()
	mint := decodetest.Key(5)
	tlv := decodetest.New().
		TLV(uint16(extension.TypeMetadataPointer), decodetest.New().Zeros(32).Key(mint).Bytes()).
		TLV(uint16(extension.TypeTokenMetadata), decodetest.TokenMetadata(decodetest.Key(6), mint, "Example", "EXM", "https://e", nil)).
		TLV(3000, []byte{1}).
		Bytes()
	gw.put(mint, solana.Token2022ProgramID, 1, decodetest.ExtendedMint(decodetest.Mint(decodetest.MintFields{Decimals: 2, Supply: 100}), tlv))

	rec, err := New(gw).Account(context.Background(), mint)
	require.NoError(t, err)

	assert.Equal(t, KindMint, rec.Kind)
	assert.Equal(t, uint64(100), rec.Mint.Supply)
	require.Len(t, rec.Extensions, 3)
	_, ok := rec.Extensions[2].(*extension.Unknown)
	assert.True(t, ok)
	require.NotNil(t, rec.Metadata)
	assert.Equal(t, "EXM", rec.Metadata.Symbol)
	assert.Empty(t, rec.Warnings)
}

func TestAccountMalformedExtensionsAreAWarning(t *testing.T) {
	gw := newFakeGateway()
	acct := decodetest.Key(7)
	tlv := decodetest.New().
		TLV(uint16(extension.TypeImmutableOwner), nil).
		U16(uint16(extension.TypeMemoTransfer)).U16(50).U8(1).
		Bytes()
	gw.put(acct, solana.Token2022ProgramID, 1, decodetest.ExtendedAccount(
		decodetest.Account(decodetest.AccountFields{Mint: decodetest.Key(8), State: 2}), tlv))
	gw.put(decodetest.Key(8), solana.Token2022ProgramID, 1, decodetest.Mint(decodetest.MintFields{Decimals: 0}))

	rec, err := New(gw).Account(context.Background(), acct)
	require.NoError(t, err)
	require.Len(t, rec.Extensions, 1)
	require.Len(t, rec.Warnings, 1)
	assert.Contains(t, rec.Warnings[0], "extensions")
}

func TestAccountCorruptBaseIsFatal(t *testing.T) {
	gw := newFakeGateway()
	acct := decodetest.Key(9)
	gw.put(acct, solana.TokenProgramID, 1, decodetest.Account(decodetest.AccountFields{State: 3}))

	_, err := New(gw).Account(context.Background(), acct)
	require.Error(t, err)
	assert.ErrorIs(t, err, decode.ErrInvalidState)
	assert.Equal(t, CategoryDecode, Category(err))
}

func TestAccountUnknownOwnerIsOther(t *testing.T) {
	gw := newFakeGateway()
	acct, program := decodetest.Key(10), decodetest.Key(11)
	gw.put(acct, program, 42, []byte{0xca, 0xfe})

	rec, err := New(gw).Account(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, KindOther, rec.Kind)
	assert.Equal(t, program, rec.Owner)
	assert.Equal(t, []byte{0xca, 0xfe}, rec.Data)
	assert.Equal(t, 2, rec.DataLen)
}

func TestAccountNotFound(t *testing.T) {
	_, err := New(newFakeGateway()).Account(context.Background(), decodetest.Key(1))
	assert.Equal(t, CategoryNotFound, Category(err))
}

func TestMintRejectsOtherKinds(t *testing.T) {
	gw := newFakeGateway()
	acct := decodetest.Key(12)
	gw.put(acct, solana.TokenProgramID, 1, decodetest.Account(decodetest.AccountFields{State: 1}))
	other := decodetest.Key(13)
	gw.put(other, decodetest.Key(14), 1, nil)

	for _, addr := range []solana.PublicKey{acct, other} {
		_, err := New(gw).Mint(context.Background(), addr)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, CategoryInvalidInput, Category(err))
	}
}

func TestWallet(t *testing.T) {
	gw := newFakeGateway()
	wallet := decodetest.Key(20)
	usdc, t22 := decodetest.Key(21), decodetest.Key(22)
	gw.put(wallet, solana.SystemProgramID, 3_000_000_000, nil)
	gw.put(usdc, solana.TokenProgramID, 1, decodetest.Mint(decodetest.MintFields{Decimals: 6}))
	gw.put(metadataPDA(t, usdc), solana.TokenMetadataProgramID, 1,
		decodetest.MetaplexMetadata(decodetest.Key(23), usdc, "USD Coin", "USDC", "", 0))
	gw.put(t22, solana.Token2022ProgramID, 1, decodetest.Mint(decodetest.MintFields{Decimals: 2}))

	gw.holdings[solana.TokenProgramID] = []rpc.TokenHolding{
		{Address: decodetest.Key(30), Program: solana.TokenProgramID, Mint: usdc, Amount: 5_000_000, Decimals: 6},
		{Address: decodetest.Key(31), Program: solana.TokenProgramID, Mint: usdc, Amount: 1, Decimals: 6},
	}
	gw.holdings[solana.Token2022ProgramID] = []rpc.TokenHolding{
		{Address: decodetest.Key(32), Program: solana.Token2022ProgramID, Mint: t22, Amount: 250, Decimals: 2},
	}

	rec, err := New(gw, WithWorkers(2)).Account(context.Background(), wallet)
	require.NoError(t, err)

	assert.Equal(t, KindWallet, rec.Kind)
	assert.Equal(t, uint64(3_000_000_000), rec.Lamports)
	require.Len(t, rec.Holdings, 3)
	assert.Equal(t, "USDC", rec.Holdings[0].Symbol)
	assert.Equal(t, "USDC", rec.Holdings[1].Symbol)
	assert.Equal(t, "", rec.Holdings[2].Symbol)
	assert.Equal(t, uint64(250), rec.Holdings[2].Amount)
	assert.Empty(t, rec.Warnings)
	assert.Equal(t, 1, gw.fetched[usdc], "each mint is fetched once per query")
}

func TestWalletListingFailureIsAWarning(t *testing.T) {
	gw := newFakeGateway()
	wallet := decodetest.Key(40)
	gw.put(wallet, solana.SystemProgramID, 1, nil)
	gw.holdingErr[solana.Token2022ProgramID] = &rpc.NetworkError{Method: "getTokenAccountsByOwner", Type: rpc.ErrorTypeRateLimit, Err: errors.New("429")}

	rec, err := New(gw).Account(context.Background(), wallet)
	require.NoError(t, err)
	assert.Empty(t, rec.Holdings)
	require.Len(t, rec.Warnings, 1)
	assert.Contains(t, rec.Warnings[0], solana.Token2022ProgramID.String())
}

func TestAccountsKeepsInputOrder(t *testing.T) {
	gw := newFakeGateway()
	addrs := []solana.PublicKey{decodetest.Key(50), decodetest.Key(51), decodetest.Key(52), decodetest.Key(53)}
	gw.put(addrs[0], solana.SystemProgramID, 7, nil)
	gw.put(addrs[1], solana.TokenProgramID, 1, decodetest.Mint(decodetest.MintFields{Decimals: 3}))
	gw.put(addrs[3], solana.TokenProgramID, 1, decodetest.Account(decodetest.AccountFields{State: 200}))

	rows := New(gw).Accounts(context.Background(), addrs)
	require.Len(t, rows, 4)
	for i, row := range rows {
		assert.Equal(t, addrs[i], row.Address)
	}
	assert.Equal(t, KindWallet, rows[0].Record.Kind)
	assert.Equal(t, KindMint, rows[1].Record.Kind)
	assert.Equal(t, CategoryNotFound, Category(rows[2].Err))
	assert.Equal(t, CategoryDecode, Category(rows[3].Err))
	assert.Empty(t, gw.fetched[metadataPDA(t, addrs[1])], "batch rows do no metadata lookups")
}

func TestAccountsSharesMintDecimals(t *testing.T) {
	gw := newFakeGateway()
	usdc, other := decodetest.Key(60), decodetest.Key(61)
	a, b, c := decodetest.Key(62), decodetest.Key(63), decodetest.Key(64)
	gw.put(usdc, solana.TokenProgramID, 1, decodetest.Mint(decodetest.MintFields{Decimals: 6}))
	gw.put(other, solana.TokenProgramID, 1, decodetest.Mint(decodetest.MintFields{Decimals: 2}))
	gw.put(a, solana.TokenProgramID, 1, decodetest.Account(decodetest.AccountFields{Mint: usdc, Amount: 1_500_000, State: 1}))
	gw.put(b, solana.TokenProgramID, 1, decodetest.Account(decodetest.AccountFields{Mint: usdc, Amount: 7, State: 1}))
	gw.put(c, solana.TokenProgramID, 1, decodetest.Account(decodetest.AccountFields{Mint: other, Amount: 250, State: 1}))

	rows := New(gw).Accounts(context.Background(), []solana.PublicKey{usdc, a, b, c})
	require.Len(t, rows, 4)
	for i, row := range rows[1:] {
		require.NoError(t, row.Err, "row %d", i+1)
		require.NotNil(t, row.Record.MintInfo, "row %d", i+1)
		assert.Empty(t, row.Record.Warnings)
	}
	assert.Equal(t, uint8(6), rows[1].Record.MintInfo.Decimals)
	assert.Equal(t, uint8(6), rows[2].Record.MintInfo.Decimals)
	assert.Equal(t, uint8(2), rows[3].Record.MintInfo.Decimals)

	assert.Equal(t, 1, gw.fetched[usdc], "a mint queried in the batch is not fetched again")
	assert.Equal(t, 1, gw.fetched[other])
	assert.Empty(t, gw.fetched[metadataPDA(t, usdc)], "batch rows do no metadata lookups")
}

func TestAccountsMissingMintIsARowWarning(t *testing.T) {
	gw := newFakeGateway()
	acct, mint := decodetest.Key(65), decodetest.Key(66)
	gw.put(acct, solana.TokenProgramID, 1, decodetest.Account(decodetest.AccountFields{Mint: mint, Amount: 9, State: 1}))

	rows := New(gw).Accounts(context.Background(), []solana.PublicKey{acct})
	require.Len(t, rows, 1)
	require.NoError(t, rows[0].Err)
	assert.Nil(t, rows[0].Record.MintInfo)
	require.Len(t, rows[0].Record.Warnings, 1)
	assert.Contains(t, rows[0].Record.Warnings[0], "not found")
}

func TestMintSummaryIsMemoizedPerQuery(t *testing.T) {
	gw := newFakeGateway()
	mint := decodetest.Key(67)
	gw.put(mint, solana.TokenProgramID, 1, decodetest.Mint(decodetest.MintFields{Decimals: 4}))
	gw.put(metadataPDA(t, mint), solana.TokenMetadataProgramID, 1,
		decodetest.MetaplexMetadata(decodetest.Key(68), mint, "Four", "FOUR", "", 0))

	q := New(gw).newQuery()
	first, warn := q.mintSummary(context.Background(), mint)
	require.Empty(t, warn)
	second, warn := q.mintSummary(context.Background(), mint)
	require.Empty(t, warn)

	assert.Same(t, first, second)
	assert.Equal(t, "FOUR", second.Symbol)
	assert.Equal(t, 1, gw.fetched[mint])
	assert.Equal(t, 1, gw.fetched[metadataPDA(t, mint)])

	// A fresh query starts empty.
	_, _ = New(gw).newQuery().mintSummary(context.Background(), mint)
	assert.Equal(t, 2, gw.fetched[mint])
}

func TestTransactionPassesThrough(t *testing.T) {
	gw := newFakeGateway()
	var sig solana.Signature
	sig[0] = 1
	gw.txs[sig] = &rpc.TransactionRecord{Signature: sig, Fee: 5000, Success: true}

	tx, err := New(gw).Transaction(context.Background(), sig)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), tx.Fee)

	_, err = New(gw).Transaction(context.Background(), solana.Signature{})
	assert.Equal(t, CategoryNotFound, Category(err))
}

func TestCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "bad_address", err: address.ErrInvalidCharacter, want: CategoryInvalidInput},
		{name: "not_found", err: fmt.Errorf("wrap: %w", rpc.ErrNotFound), want: CategoryNotFound},
		{name: "decode", err: decode.Errorf(decode.MalformedTlv, "x"), want: CategoryDecode},
		{name: "network", err: &rpc.NetworkError{Type: rpc.ErrorTypeTimeout, Err: errors.New("t")}, want: CategoryNetwork},
		{name: "canceled", err: context.Canceled, want: CategoryNetwork},
		{name: "other", err: errors.New("boom"), want: CategoryInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Category(tt.err))
		})
	}
}

func TestAggregateCopiesSlices(t *testing.T) {
	exts := []extension.Extension{&extension.ImmutableOwner{}}
	warnings := []string{"a"}
	data := []byte{1, 2}
	rec := Aggregate(Parts{
		Account:  &rpc.RawAccount{Data: data},
		Kind:     KindOther,
		Decoded:  &layout.Decoded{Extensions: exts},
		Warnings: warnings,
	})

	data[0] = 9
	warnings[0] = "changed"
	exts[0] = &extension.CpiGuard{}

	assert.Equal(t, []byte{1, 2}, rec.Data)
	assert.Equal(t, []string{"a"}, rec.Warnings)
	assert.Equal(t, extension.TypeImmutableOwner, rec.Extensions[0].Type())
}

func TestExtensionsFilter(t *testing.T) {
	exts := []extension.Extension{
		&extension.ImmutableOwner{},
		&extension.MemoTransfer{RequireIncomingTransferMemos: true},
		&extension.PausableAccount{},
	}
	assert.Len(t, Extensions(exts, true), 3)
	filtered := Extensions(exts, false)
	require.Len(t, filtered, 1)
	assert.Equal(t, extension.TypeMemoTransfer, filtered[0].Type())
}
