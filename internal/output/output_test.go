package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmagro/sol-explorer/internal/explorer"
	"github.com/dmagro/sol-explorer/internal/extension"
	"github.com/dmagro/sol-explorer/internal/metadata"
	"github.com/dmagro/sol-explorer/internal/rpc"
	"github.com/dmagro/sol-explorer/internal/token"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func key(seed byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = seed
	}
	return k
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		raw      uint64
		decimals uint8
		want     string
	}{
		{raw: 0, decimals: 6, want: "0"},
		{raw: 1, decimals: 9, want: "0.000000001"},
		{raw: 1_500_000, decimals: 6, want: "1.5"},
		{raw: 1_234_500_000, decimals: 6, want: "1,234.5"},
		{raw: 1_000_000_000, decimals: 0, want: "1,000,000,000"},
		{raw: 18446744073709551615, decimals: 0, want: "18,446,744,073,709,551,615"},
		{raw: 18446744073709551615, decimals: 9, want: "18,446,744,073.709551615"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.raw, tt.decimals), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.raw, tt.decimals))
		})
	}
}

func TestFormatSOLAndChange(t *testing.T) {
	assert.Equal(t, "0.00203928 SOL", FormatSOL(2_039_280))
	assert.Equal(t, "0", FormatLamportChange(0))
	assert.Equal(t, "-0.000005", FormatLamportChange(-5000))
	assert.Equal(t, "+1,000", FormatLamportChange(1_000_000_000_000))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1,000", FormatNumber(1000))
	assert.Equal(t, "123,456,789", FormatNumber(123456789))
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01 12:00:00 UTC (5m ago)", FormatTimestamp(ts, ts.Add(5*time.Minute)))
	assert.Equal(t, "2024-03-01 12:00:00 UTC (2d ago)", FormatTimestamp(ts, ts.Add(49*time.Hour)))
}

func tokenAccountRecord() *explorer.DisplayRecord {
	return &explorer.DisplayRecord{
		Kind:     explorer.KindTokenAccount,
		Address:  key(1),
		Owner:    solana.Token2022ProgramID,
		Program:  "spl-token-2022",
		Lamports: 2_039_280,
		Slot:     250_000_000,
		TokenAccount: &token.Account{
			Mint:   key(2),
			Owner:  key(3),
			Amount: 1_234_500_000,
			State:  token.StateFrozen,
		},
		MintInfo:   &explorer.MintSummary{Address: key(2), Decimals: 6, Symbol: "USDX"},
		Extensions: []extension.Extension{&extension.ImmutableOwner{}, &extension.TransferFeeAmount{WithheldAmount: 7}},
		Warnings:   []string{"metadata: truncated"},
	}
}

func TestRenderTokenAccount(t *testing.T) {
	var buf bytes.Buffer
	RenderAccount(&buf, tokenAccountRecord(), Options{Network: "devnet"})
	out := buf.String()

	assert.Contains(t, out, "Token Account "+key(1).String())
	assert.Contains(t, out, "1,234.5 USDX")
	assert.Contains(t, out, "frozen")
	assert.Contains(t, out, "0.00203928 SOL")
	assert.Contains(t, out, "TransferFeeAmount")
	assert.Contains(t, out, "withheld_amount: 7")
	assert.NotContains(t, out, "ImmutableOwner")
	assert.Contains(t, out, "⚠ metadata: truncated")
	assert.Contains(t, out, "slot 250,000,000 · devnet")
}

func TestRenderAllExtensions(t *testing.T) {
	var buf bytes.Buffer
	RenderAccount(&buf, tokenAccountRecord(), Options{AllExtensions: true})
	assert.Contains(t, buf.String(), "ImmutableOwner")
	assert.Contains(t, buf.String(), "Extensions (2)")
}

func TestRenderTokenAccountUnknownDecimals(t *testing.T) {
	rec := tokenAccountRecord()
	rec.MintInfo = nil
	var buf bytes.Buffer
	RenderAccount(&buf, rec, Options{})
	assert.Contains(t, buf.String(), "1,234,500,000 (raw, decimals unknown)")
}

func TestRenderMintWithMetadata(t *testing.T) {
	fee := uint16(500)
	auth := key(9)
	rec := &explorer.DisplayRecord{
		Kind:    explorer.KindMint,
		Address: key(2),
		Owner:   solana.TokenProgramID,
		Program: "spl-token",
		Mint:    &token.Mint{Supply: 5_000_000_000, Decimals: 9, IsInitialized: true, MintAuthority: &auth},
		Metadata: &metadata.Record{
			Address:              key(4),
			Mint:                 key(2),
			Name:                 "Example",
			Symbol:               "EXM",
			URI:                  "https://example.org/exm.json",
			Source:               metadata.SourceMetaplex,
			SellerFeeBasisPoints: &fee,
		},
	}

	var buf bytes.Buffer
	RenderAccount(&buf, rec, Options{})
	out := buf.String()
	assert.Contains(t, out, "Token Mint")
	assert.Contains(t, out, "Supply:")
	assert.Contains(t, out, "5")
	assert.Contains(t, out, auth.String())
	assert.Contains(t, out, "none")
	assert.Contains(t, out, "EXM")
	assert.Contains(t, out, "500 bps")
}

func TestRenderOtherRaw(t *testing.T) {
	rec := &explorer.DisplayRecord{
		Kind:       explorer.KindOther,
		Address:    key(5),
		Owner:      key(6),
		Executable: true,
		DataLen:    3,
		Data:       []byte{1, 2, 3},
	}

	var plain, raw bytes.Buffer
	RenderAccount(&plain, rec, Options{})
	RenderAccount(&raw, rec, Options{Raw: true})
	assert.NotContains(t, plain.String(), "AQID")
	assert.Contains(t, raw.String(), "AQID")
	assert.Contains(t, plain.String(), "3 bytes")
}

func TestRenderWallet(t *testing.T) {
	rec := &explorer.DisplayRecord{
		Kind:     explorer.KindWallet,
		Address:  key(7),
		Owner:    solana.SystemProgramID,
		Program:  "system",
		Lamports: 1_500_000_000,
		Holdings: []explorer.Holding{
			{TokenHolding: rpc.TokenHolding{Address: key(8), Program: solana.Token2022ProgramID, Mint: key(2), Amount: 42, Decimals: 1}, Symbol: "EXM"},
		},
	}
	var buf bytes.Buffer
	RenderAccount(&buf, rec, Options{})
	out := buf.String()
	assert.Contains(t, out, "1.5 SOL")
	assert.Contains(t, out, "Token Holdings (1)")
	assert.Contains(t, out, "4.2")
	assert.Contains(t, out, "spl-token-2022")
}

func sampleTx() *rpc.TransactionRecord {
	bt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cu := uint64(1234)
	return &rpc.TransactionRecord{
		Slot:         99,
		BlockTime:    &bt,
		Version:      "0",
		Success:      false,
		Err:          `{"InstructionError":[0,"Custom"]}`,
		Fee:          5000,
		ComputeUnits: &cu,
		Accounts: []rpc.TxAccount{
			{Key: key(1), Signer: true, Writable: true, Source: rpc.KeyStatic, PreBalance: 10_000, PostBalance: 5_000},
			{Key: key(2), Source: rpc.KeyLookup, PreBalance: 1, PostBalance: 1},
		},
		Instructions: []rpc.TxInstruction{{ProgramID: key(3), Accounts: []solana.PublicKey{key(1)}, Data: "3Bxs"}},
		Logs:         []string{"Program log: hello"},
	}
}

func TestRenderTransaction(t *testing.T) {
	tx := sampleTx()
	var buf bytes.Buffer
	RenderTransaction(&buf, tx, Options{Now: func() time.Time { return tx.BlockTime.Add(time.Hour) }})
	out := buf.String()
	assert.Contains(t, out, "✗ Failed")
	assert.Contains(t, out, "InstructionError")
	assert.Contains(t, out, "(1h ago)")
	assert.Contains(t, out, "signer writable")
	assert.Contains(t, out, "readonly")
	assert.Contains(t, out, "lookup")
	assert.Contains(t, out, "-0.000005")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "Program log: hello")
}

func TestTransactionReport(t *testing.T) {
	r := NewTransactionReport(sampleTx())
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, false, got["success"])
	assert.Equal(t, map[string]any{"InstructionError": []any{float64(0), "Custom"}}, got["error"])
	accounts := got["accounts"].([]any)
	require.Len(t, accounts, 2)
	assert.Equal(t, float64(-5000), accounts[0].(map[string]any)["balance_change"])
	assert.Equal(t, "lookup", accounts[1].(map[string]any)["source"])
}

func TestAccountReport(t *testing.T) {
	r := NewAccountReport(tokenAccountRecord(), false)
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "token-account", got["kind"])
	assert.Equal(t, "0.00203928", got["sol"])

	ta := got["token_account"].(map[string]any)
	assert.Equal(t, "1234.5", ta["ui_amount"])
	assert.Equal(t, "USDX", ta["mint_symbol"])
	assert.Equal(t, "frozen", ta["state"])
	assert.Nil(t, ta["delegate"])

	// JSON keeps marker extensions the terminal hides.
	exts := got["extensions"].([]any)
	require.Len(t, exts, 2)
	assert.Equal(t, "ImmutableOwner", exts[0].(map[string]any)["type"])
	assert.Equal(t, "7", exts[1].(map[string]any)["fields"].(map[string]any)["withheld_amount"])
}

func TestInvalidExtensionJSON(t *testing.T) {
	e := newExtensionJSON(&extension.Invalid{Kind: extension.TypeMintCloseAuthority, Raw: []byte{0xab}, Err: errors.New("short")})
	assert.False(t, e.Valid)
	assert.Equal(t, "MintCloseAuthority", e.Type)
	assert.Equal(t, uint16(extension.TypeMintCloseAuthority), e.Tag)
	assert.Equal(t, "ab", e.Fields["raw"])
	assert.Equal(t, "short", e.Fields["error"])
}

func TestBatch(t *testing.T) {
	rows := []explorer.BatchRow{
		{Address: key(1), Record: tokenAccountRecord()},
		{Address: key(2), Err: fmt.Errorf("account %s: %w", key(2), rpc.ErrNotFound)},
	}

	var buf bytes.Buffer
	RenderBatch(&buf, rows)
	out := buf.String()
	assert.Contains(t, out, "(1/2 found)")
	assert.Contains(t, out, "not_found")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(key(1).String())), bytes.Index(buf.Bytes(), []byte(key(2).String())))

	r := NewBatchReport(rows, false)
	assert.Equal(t, 1, r.Found)
	assert.Equal(t, 2, r.Total)
	require.NotNil(t, r.Rows[0].Account)
	assert.Nil(t, r.Rows[0].Error)
	require.NotNil(t, r.Rows[1].Error)
	assert.Equal(t, explorer.CategoryNotFound, r.Rows[1].Error.Category)
}

func TestBlocks(t *testing.T) {
	leader := key(9)
	height := uint64(900)
	rows := []explorer.BlockRow{
		{Slot: 1000, Block: &rpc.BlockRecord{
			Slot:               1000,
			ParentSlot:         999,
			BlockHeight:        &height,
			Blockhash:          "BH",
			Leader:             &leader,
			LeaderReward:       12_500,
			Transactions:       3,
			VoteTransactions:   1,
			FailedTransactions: 1,
			Fees:               20_000,
			ComputeUnits:       42_400,
			Programs: []rpc.ProgramCount{
				{Program: key(3), Invocations: 3},
				{Program: key(4), Invocations: 2},
			},
		}},
		{Slot: 1001, Err: fmt.Errorf("block 1001: %w", rpc.ErrNotFound)},
	}

	var buf bytes.Buffer
	RenderBlocks(&buf, rows, Options{}, 1)
	out := buf.String()
	assert.Contains(t, out, "Block #1,000")
	assert.Contains(t, out, "2 non-vote + 1 vote = 3 total (1 failed)")
	assert.Contains(t, out, "42,400")
	assert.Contains(t, out, "+0.0000125 SOL")
	assert.Contains(t, out, "Top Programs (1 of 2)")
	assert.Contains(t, out, key(3).String())
	assert.NotContains(t, out, key(4).String())
	assert.Contains(t, out, "Block #1,001  [not_found]")

	r := NewBlockReport(rows)
	require.Len(t, r.Blocks, 2)
	assert.Equal(t, leader.String(), *r.Blocks[0].Leader)
	assert.Len(t, r.Blocks[0].Programs, 2)
	require.NotNil(t, r.Blocks[1].Error)
	assert.Equal(t, uint64(1001), r.Blocks[1].Slot)
	assert.Equal(t, explorer.CategoryNotFound, r.Blocks[1].Error.Category)
}
