package metadata

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/sol-explorer/internal/decode"
	"github.com/dmagro/sol-explorer/internal/decode/decodetest"
	"github.com/dmagro/sol-explorer/internal/extension"
	"github.com/dmagro/sol-explorer/internal/rpc"
)

// fakeFetcher serves accounts from a map and records every lookup.
type fakeFetcher struct {
	accounts map[solana.PublicKey]*rpc.RawAccount
	failures map[solana.PublicKey]error
	calls    []solana.PublicKey
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		accounts: map[solana.PublicKey]*rpc.RawAccount{},
		failures: map[solana.PublicKey]error{},
	}
}

func (f *fakeFetcher) put(addr, owner solana.PublicKey, data []byte) {
	f.accounts[addr] = &rpc.RawAccount{Address: addr, Owner: owner, Data: data}
}

func (f *fakeFetcher) FetchAccount(_ context.Context, addr solana.PublicKey) (*rpc.RawAccount, error) {
	f.calls = append(f.calls, addr)
	if err, ok := f.failures[addr]; ok {
		return nil, err
	}
	if acct, ok := f.accounts[addr]; ok {
		return acct, nil
	}
	return nil, fmt.Errorf("account %s: %w", addr, rpc.ErrNotFound)
}

func metadataPDA(t *testing.T, mint solana.PublicKey) solana.PublicKey {
	t.Helper()
	pda, _, err := solana.FindTokenMetadataAddress(mint)
	require.NoError(t, err)
	return pda
}

func TestResolveMetaplex(t *testing.T) {
	mint := decodetest.Key(1)
	authority := decodetest.Key(2)
	f := newFakeFetcher()
	pda := metadataPDA(t, mint)
	f.put(pda, solana.TokenMetadataProgramID, decodetest.MetaplexMetadata(authority, mint, "Wrapped Thing", "WTH", "https://example.org/wth.json", 250))

	rec, err := NewResolver(f).Resolve(context.Background(), mint, nil)
	require.NoError(t, err)

	assert.Equal(t, SourceMetaplex, rec.Source)
	assert.Equal(t, pda, rec.Address)
	assert.Equal(t, mint, rec.Mint)
	assert.Equal(t, "Wrapped Thing", rec.Name)
	assert.Equal(t, "WTH", rec.Symbol)
	assert.Equal(t, "https://example.org/wth.json", rec.URI)
	require.NotNil(t, rec.UpdateAuthority)
	assert.Equal(t, authority, *rec.UpdateAuthority)
	require.NotNil(t, rec.SellerFeeBasisPoints)
	assert.Equal(t, uint16(250), *rec.SellerFeeBasisPoints)
}

func TestResolveNotFound(t *testing.T) {
	mint := decodetest.Key(3)
	f := newFakeFetcher()

	_, err := NewResolver(f).Resolve(context.Background(), mint, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, rpc.ErrNotFound)
	assert.Len(t, f.calls, 1)
}

func TestResolveIgnoresForeignOwnedPDA(t *testing.T) {
	mint := decodetest.Key(4)
	f := newFakeFetcher()
	f.put(metadataPDA(t, mint), solana.SystemProgramID, []byte{4, 0, 0})

	_, err := NewResolver(f).Resolve(context.Background(), mint, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveSelfPointer(t *testing.T) {
	mint := decodetest.Key(5)
	exts := []extension.Extension{
		&extension.MetadataPointer{MetadataAddress: &mint},
		&extension.TokenMetadata{
			Mint:               mint,
			Name:               "Pointed\x00\x00",
			Symbol:             "PNT",
			URI:                "ipfs://x",
			AdditionalMetadata: []extension.KeyValue{{Key: "k", Value: "v"}},
		},
	}
	f := newFakeFetcher()

	rec, err := NewResolver(f).Resolve(context.Background(), mint, exts)
	require.NoError(t, err)
	assert.Equal(t, SourceToken2022, rec.Source)
	assert.Equal(t, "Pointed", rec.Name)
	assert.Equal(t, []extension.KeyValue{{Key: "k", Value: "v"}}, rec.Additional)
	assert.Nil(t, rec.SellerFeeBasisPoints)
	assert.Len(t, f.calls, 1, "only the PDA is fetched for a self pointer")
}

func TestResolveMetaplexWinsOverPointer(t *testing.T) {
	mint := decodetest.Key(6)
	f := newFakeFetcher()
	f.put(metadataPDA(t, mint), solana.TokenMetadataProgramID, decodetest.MetaplexMetadata(decodetest.Key(7), mint, "Meta", "M", "", 0))
	exts := []extension.Extension{
		&extension.MetadataPointer{MetadataAddress: &mint},
		&extension.TokenMetadata{Mint: mint, Name: "Embedded"},
	}

	rec, err := NewResolver(f).Resolve(context.Background(), mint, exts)
	require.NoError(t, err)
	assert.Equal(t, "Meta", rec.Name)
}

func TestResolveFollowsPointerOneHop(t *testing.T) {
	mint := decodetest.Key(8)
	target := decodetest.Key(9)
	further := decodetest.Key(10)

	// The pointed-to mint has its own pointer elsewhere; it must not be followed.
	targetTLV := decodetest.New().
		TLV(uint16(extension.TypeMetadataPointer), decodetest.New().Zeros(32).Key(further).Bytes()).
		TLV(uint16(extension.TypeTokenMetadata), decodetest.TokenMetadata(decodetest.Key(11), mint, "Hop", "HOP", "", nil)).
		Bytes()
	f := newFakeFetcher()
	f.put(target, solana.Token2022ProgramID, decodetest.ExtendedMint(decodetest.Mint(decodetest.MintFields{Decimals: 2}), targetTLV))

	exts := []extension.Extension{&extension.MetadataPointer{MetadataAddress: &target}}
	rec, err := NewResolver(f).Resolve(context.Background(), mint, exts)
	require.NoError(t, err)

	assert.Equal(t, "Hop", rec.Name)
	assert.Equal(t, target, rec.Address)
	assert.Equal(t, []solana.PublicKey{metadataPDA(t, mint), target}, f.calls)
}

func TestResolvePointerToBarePayload(t *testing.T) {
	mint := decodetest.Key(12)
	target := decodetest.Key(13)
	f := newFakeFetcher()
	f.put(target, decodetest.Key(99), decodetest.TokenMetadata(decodetest.Key(14), mint, "Bare", "BR", "u", nil))

	exts := []extension.Extension{&extension.MetadataPointer{MetadataAddress: &target}}
	rec, err := NewResolver(f).Resolve(context.Background(), mint, exts)
	require.NoError(t, err)
	assert.Equal(t, "Bare", rec.Name)
}

// interfaceEntry encodes one discriminator(8) | u32 length | value entry.
func interfaceEntry(disc, value []byte) []byte {
	return decodetest.New().Raw(disc).U32(uint32(len(value))).Raw(value).Bytes()
}

func TestResolvePointerToInterfaceTLV(t *testing.T) {
	mint := decodetest.Key(24)
	target := decodetest.Key(25)
	payload := decodetest.TokenMetadata(decodetest.Key(26), mint, "Tagged", "TAG", "https://t", [][2]string{{"k", "v"}})

	tests := []struct {
		name string
		data []byte
	}{
		{name: "tagged", data: interfaceEntry(TokenMetadataDiscriminator, payload)},
		{name: "after_other_entry", data: append(
			interfaceEntry([]byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte{0xff, 0xff}),
			interfaceEntry(TokenMetadataDiscriminator, payload)...)},
		{name: "untagged", data: interfaceEntry([]byte{9, 9, 9, 9, 9, 9, 9, 9}, payload)},
		{name: "untagged_zero_padded", data: append(interfaceEntry([]byte{7, 7, 7, 7, 7, 7, 7, 7}, payload), make([]byte, 64)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher()
			f.put(target, decodetest.Key(98), tt.data)

			exts := []extension.Extension{&extension.MetadataPointer{MetadataAddress: &target}}
			rec, err := NewResolver(f).Resolve(context.Background(), mint, exts)
			require.NoError(t, err)
			assert.Equal(t, "Tagged", rec.Name)
			assert.Equal(t, "TAG", rec.Symbol)
			assert.Equal(t, "https://t", rec.URI)
			assert.Equal(t, target, rec.Address)
		})
	}
}

func TestResolvePointerToUnreadableAccount(t *testing.T) {
	mint := decodetest.Key(27)
	target := decodetest.Key(28)
	f := newFakeFetcher()
	f.put(target, decodetest.Key(97), interfaceEntry(TokenMetadataDiscriminator, []byte{1, 2, 3}))

	exts := []extension.Extension{&extension.MetadataPointer{MetadataAddress: &target}}
	_, err := NewResolver(f).Resolve(context.Background(), mint, exts)
	assert.ErrorIs(t, err, decode.ErrTruncatedData)
}

func TestResolveRejectsMismatchedMint(t *testing.T) {
	mint := decodetest.Key(15)
	target := decodetest.Key(16)
	f := newFakeFetcher()
	f.put(target, decodetest.Key(99), decodetest.TokenMetadata(decodetest.Key(14), decodetest.Key(17), "Other", "O", "", nil))

	exts := []extension.Extension{&extension.MetadataPointer{MetadataAddress: &target}}
	_, err := NewResolver(f).Resolve(context.Background(), mint, exts)
	assert.ErrorIs(t, err, decode.ErrInvalidState)
}

func TestResolveReportsCorruptMetaplex(t *testing.T) {
	mint := decodetest.Key(18)
	f := newFakeFetcher()
	f.put(metadataPDA(t, mint), solana.TokenMetadataProgramID, []byte{4, 1, 2})

	_, err := NewResolver(f).Resolve(context.Background(), mint, nil)
	assert.ErrorIs(t, err, decode.ErrTruncatedData)
}

func TestResolvePropagatesNetworkErrors(t *testing.T) {
	mint := decodetest.Key(19)
	f := newFakeFetcher()
	boom := &rpc.NetworkError{Method: "getAccountInfo", Type: rpc.ErrorTypeTimeout, Err: errors.New("deadline")}
	f.failures[metadataPDA(t, mint)] = boom

	_, err := NewResolver(f).Resolve(context.Background(), mint, nil)
	assert.ErrorIs(t, err, boom)
}

func TestResolveEmbeddedSurvivesMetaplexFailure(t *testing.T) {
	mint := decodetest.Key(29)
	f := newFakeFetcher()
	f.failures[metadataPDA(t, mint)] = &rpc.NetworkError{Method: "getAccountInfo", Type: rpc.ErrorTypeRateLimit, Err: errors.New("429")}

	embedded := &extension.TokenMetadata{Mint: mint, Name: "Local", Symbol: "LOC"}
	exts := []extension.Extension{&extension.MetadataPointer{MetadataAddress: &mint}, embedded}
	rec, err := NewResolver(f).Resolve(context.Background(), mint, exts)
	require.NoError(t, err)
	assert.Equal(t, "Local", rec.Name)
}

func TestResolveFetchErrorOutranksDecodeError(t *testing.T) {
	mint := decodetest.Key(30)
	target := decodetest.Key(31)
	f := newFakeFetcher()
	boom := &rpc.NetworkError{Method: "getAccountInfo", Type: rpc.ErrorTypeTimeout, Err: errors.New("deadline")}
	f.failures[metadataPDA(t, mint)] = boom
	f.put(target, decodetest.Key(96), []byte{1, 2, 3})

	exts := []extension.Extension{&extension.MetadataPointer{MetadataAddress: &target}}
	_, err := NewResolver(f).Resolve(context.Background(), mint, exts)
	assert.ErrorIs(t, err, boom)
}

func TestDecodeMetaplexPrefix(t *testing.T) {
	mint := decodetest.Key(20)
	data := decodetest.MetaplexMetadata(decodetest.Key(21), mint, "Prefix", "PFX", "https://p", 42)

	rec, err := decodeMetaplexPrefix(decodetest.Key(22), data)
	require.NoError(t, err)
	assert.Equal(t, "Prefix", rec.Name)
	assert.Equal(t, "PFX", rec.Symbol)
	assert.Equal(t, "https://p", rec.URI)
	assert.Equal(t, uint16(42), *rec.SellerFeeBasisPoints)

	_, err = DecodeMetaplex(decodetest.Key(22), []byte{9})
	assert.ErrorIs(t, err, decode.ErrInvalidState)
}
