package output

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/dmagro/sol-explorer/internal/explorer"
	"github.com/dmagro/sol-explorer/internal/extension"
	"github.com/dmagro/sol-explorer/internal/metadata"
	"github.com/dmagro/sol-explorer/internal/rpc"
)

// AccountReport is the machine-readable form of a DisplayRecord. JSON output
// always carries every extension, whatever the terminal filter.
type AccountReport struct {
	Kind       string            `json:"kind"`
	Address    string            `json:"address"`
	Owner      string            `json:"owner"`
	Program    string            `json:"program,omitempty"`
	Lamports   uint64            `json:"lamports"`
	SOL        decimal.Decimal   `json:"sol"`
	Executable bool              `json:"executable"`
	DataLen    int               `json:"data_len"`
	Slot       uint64            `json:"slot"`
	DataBase64 string            `json:"data_base64,omitempty"`
	Token      *TokenAccountJSON `json:"token_account,omitempty"`
	Mint       *MintJSON         `json:"mint,omitempty"`
	Multisig   *MultisigJSON     `json:"multisig,omitempty"`
	Extensions []ExtensionJSON   `json:"extensions,omitempty"`
	Metadata   *MetadataJSON     `json:"metadata,omitempty"`
	Holdings   []HoldingJSON     `json:"holdings,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// TokenAccountJSON holds a token account with its mint summary
type TokenAccountJSON struct {
	Mint            string           `json:"mint"`
	MintName        string           `json:"mint_name,omitempty"`
	MintSymbol      string           `json:"mint_symbol,omitempty"`
	Owner           string           `json:"owner"`
	Amount          uint64           `json:"amount"`
	Decimals        *uint8           `json:"decimals,omitempty"`
	UIAmount        *decimal.Decimal `json:"ui_amount,omitempty"`
	Delegate        *string          `json:"delegate"`
	DelegatedAmount uint64           `json:"delegated_amount"`
	State           string           `json:"state"`
	NativeReserve   *uint64          `json:"native_reserve,omitempty"`
	CloseAuthority  *string          `json:"close_authority"`
}

// MintJSON holds mint fields
type MintJSON struct {
	Supply          uint64          `json:"supply"`
	UISupply        decimal.Decimal `json:"ui_supply"`
	Decimals        uint8           `json:"decimals"`
	MintAuthority   *string         `json:"mint_authority"`
	FreezeAuthority *string         `json:"freeze_authority"`
	IsInitialized   bool            `json:"is_initialized"`
}

// MultisigJSON holds multisig fields
type MultisigJSON struct {
	M             uint8    `json:"m"`
	N             uint8    `json:"n"`
	IsInitialized bool     `json:"is_initialized"`
	Signers       []string `json:"signers"`
}

// ExtensionJSON is one TLV extension with its fields flattened
type ExtensionJSON struct {
	Type   string            `json:"type"`
	Tag    uint16            `json:"tag"`
	Valid  bool              `json:"valid"`
	Fields map[string]string `json:"fields,omitempty"`
}

// MetadataJSON holds resolved token metadata
type MetadataJSON struct {
	Address              string            `json:"address"`
	Mint                 string            `json:"mint"`
	Source               string            `json:"source"`
	Name                 string            `json:"name"`
	Symbol               string            `json:"symbol"`
	URI                  string            `json:"uri"`
	UpdateAuthority      *string           `json:"update_authority"`
	SellerFeeBasisPoints *uint16           `json:"seller_fee_basis_points,omitempty"`
	IsMutable            *bool             `json:"is_mutable,omitempty"`
	Additional           map[string]string `json:"additional_metadata,omitempty"`
}

// HoldingJSON is one token account of a wallet
type HoldingJSON struct {
	Address  string          `json:"address"`
	Program  string          `json:"program"`
	Mint     string          `json:"mint"`
	Symbol   string          `json:"symbol,omitempty"`
	Amount   uint64          `json:"amount"`
	Decimals uint8           `json:"decimals"`
	UIAmount decimal.Decimal `json:"ui_amount"`
	State    string          `json:"state"`
}

// TransactionReport is the machine-readable form of a TransactionRecord.
type TransactionReport struct {
	Signature       string            `json:"signature"`
	Slot            uint64            `json:"slot"`
	BlockTime       *time.Time        `json:"block_time"`
	Version         string            `json:"version"`
	Success         bool              `json:"success"`
	Error           json.RawMessage   `json:"error,omitempty"`
	Fee             uint64            `json:"fee"`
	ComputeUnits    *uint64           `json:"compute_units,omitempty"`
	RecentBlockhash string            `json:"recent_blockhash"`
	Accounts        []TxAccountJSON   `json:"accounts"`
	Instructions    []InstructionJSON `json:"instructions"`
	Logs            []string          `json:"logs"`
}

// TxAccountJSON is one account key of a transaction
type TxAccountJSON struct {
	Address       string `json:"address"`
	Signer        bool   `json:"signer"`
	Writable      bool   `json:"writable"`
	Source        string `json:"source"`
	PreBalance    uint64 `json:"pre_balance"`
	PostBalance   uint64 `json:"post_balance"`
	BalanceChange int64  `json:"balance_change"`
}

// InstructionJSON is one top-level instruction
type InstructionJSON struct {
	ProgramID string   `json:"program_id"`
	Accounts  []string `json:"accounts"`
	Data      string   `json:"data"`
}

// BatchReport holds one row per queried address, in input order.
type BatchReport struct {
	Found int            `json:"found"`
	Total int            `json:"total"`
	Rows  []BatchRowJSON `json:"rows"`
}

// BatchRowJSON is either an account or an error
type BatchRowJSON struct {
	Address string         `json:"address"`
	Account *AccountReport `json:"account,omitempty"`
	Error   *ErrorJSON     `json:"error,omitempty"`
}

// ErrorJSON carries a stable category and a human message
type ErrorJSON struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// NewErrorJSON wraps err for JSON output.
func NewErrorJSON(err error) *ErrorJSON {
	return &ErrorJSON{Category: explorer.Category(err), Message: err.Error()}
}

func strPtr[T interface{ String() string }](v *T) *string {
	if v == nil {
		return nil
	}
	s := (*v).String()
	return &s
}

// NewAccountReport converts rec. raw adds base64 data for accounts without
// a known layout.
func NewAccountReport(rec *explorer.DisplayRecord, raw bool) *AccountReport {
	r := &AccountReport{
		Kind:       string(rec.Kind),
		Address:    rec.Address.String(),
		Owner:      rec.Owner.String(),
		Program:    rec.Program,
		Lamports:   rec.Lamports,
		SOL:        UIAmount(rec.Lamports, SOLDecimals),
		Executable: rec.Executable,
		DataLen:    rec.DataLen,
		Slot:       rec.Slot,
		Warnings:   rec.Warnings,
	}
	if raw && len(rec.Data) > 0 {
		r.DataBase64 = base64.StdEncoding.EncodeToString(rec.Data)
	}

	if a := rec.TokenAccount; a != nil {
		t := &TokenAccountJSON{
			Mint:            a.Mint.String(),
			Owner:           a.Owner.String(),
			Amount:          a.Amount,
			Delegate:        strPtr(a.Delegate),
			DelegatedAmount: a.DelegatedAmount,
			State:           a.State.String(),
			NativeReserve:   a.IsNative,
			CloseAuthority:  strPtr(a.CloseAuthority),
		}
		if mi := rec.MintInfo; mi != nil {
			ui := UIAmount(a.Amount, mi.Decimals)
			dec := mi.Decimals
			t.Decimals, t.UIAmount = &dec, &ui
			t.MintName, t.MintSymbol = mi.Name, mi.Symbol
		}
		r.Token = t
	}

	if m := rec.Mint; m != nil {
		r.Mint = &MintJSON{
			Supply:          m.Supply,
			UISupply:        UIAmount(m.Supply, m.Decimals),
			Decimals:        m.Decimals,
			MintAuthority:   strPtr(m.MintAuthority),
			FreezeAuthority: strPtr(m.FreezeAuthority),
			IsInitialized:   m.IsInitialized,
		}
	}

	if m := rec.Multisig; m != nil {
		r.Multisig = &MultisigJSON{
			M:             m.M,
			N:             m.N,
			IsInitialized: m.IsInitialized,
			Signers:       lo.Map(m.Signers, func(k solana.PublicKey, _ int) string { return k.String() }),
		}
	}

	r.Extensions = lo.Map(rec.Extensions, func(ext extension.Extension, _ int) ExtensionJSON {
		return newExtensionJSON(ext)
	})
	if rec.Metadata != nil {
		r.Metadata = newMetadataJSON(rec.Metadata)
	}
	r.Holdings = lo.Map(rec.Holdings, func(h explorer.Holding, _ int) HoldingJSON {
		return HoldingJSON{
			Address:  h.Address.String(),
			Program:  h.Program.String(),
			Mint:     h.Mint.String(),
			Symbol:   h.Symbol,
			Amount:   h.Amount,
			Decimals: h.Decimals,
			UIAmount: UIAmount(h.Amount, h.Decimals),
			State:    h.State,
		}
	})
	return r
}

func newExtensionJSON(ext extension.Extension) ExtensionJSON {
	_, invalid := ext.(*extension.Invalid)
	e := ExtensionJSON{
		Type:  ext.Type().String(),
		Tag:   uint16(ext.Type()),
		Valid: !invalid,
	}
	if fs := extensionFields(ext); len(fs) > 0 {
		e.Fields = make(map[string]string, len(fs))
		for _, f := range fs {
			e.Fields[f.Name] = f.Value
		}
	}
	return e
}

func newMetadataJSON(md *metadata.Record) *MetadataJSON {
	m := &MetadataJSON{
		Address:              md.Address.String(),
		Mint:                 md.Mint.String(),
		Source:               md.Source,
		Name:                 md.Name,
		Symbol:               md.Symbol,
		URI:                  md.URI,
		UpdateAuthority:      strPtr(md.UpdateAuthority),
		SellerFeeBasisPoints: md.SellerFeeBasisPoints,
		IsMutable:            md.IsMutable,
	}
	if len(md.Additional) > 0 {
		m.Additional = lo.SliceToMap(md.Additional, func(kv extension.KeyValue) (string, string) {
			return kv.Key, kv.Value
		})
	}
	return m
}

// NewTransactionReport converts tx.
func NewTransactionReport(tx *rpc.TransactionRecord) *TransactionReport {
	r := &TransactionReport{
		Signature:       tx.Signature.String(),
		Slot:            tx.Slot,
		BlockTime:       tx.BlockTime,
		Version:         tx.Version,
		Success:         tx.Success,
		Fee:             tx.Fee,
		ComputeUnits:    tx.ComputeUnits,
		RecentBlockhash: tx.RecentBlockhash,
		Logs:            tx.Logs,
	}
	if tx.Err != "" && json.Valid([]byte(tx.Err)) {
		r.Error = json.RawMessage(tx.Err)
	}
	r.Accounts = lo.Map(tx.Accounts, func(a rpc.TxAccount, _ int) TxAccountJSON {
		return TxAccountJSON{
			Address:       a.Key.String(),
			Signer:        a.Signer,
			Writable:      a.Writable,
			Source:        string(a.Source),
			PreBalance:    a.PreBalance,
			PostBalance:   a.PostBalance,
			BalanceChange: a.BalanceChange(),
		}
	})
	r.Instructions = lo.Map(tx.Instructions, func(ix rpc.TxInstruction, _ int) InstructionJSON {
		return InstructionJSON{
			ProgramID: ix.ProgramID.String(),
			Accounts:  lo.Map(ix.Accounts, func(k solana.PublicKey, _ int) string { return k.String() }),
			Data:      ix.Data,
		}
	})
	return r
}

// NewBatchReport converts rows, keeping their order.
func NewBatchReport(rows []explorer.BatchRow, raw bool) *BatchReport {
	r := &BatchReport{Total: len(rows), Rows: make([]BatchRowJSON, len(rows))}
	for i, row := range rows {
		r.Rows[i].Address = row.Address.String()
		if row.Err != nil {
			r.Rows[i].Error = NewErrorJSON(row.Err)
			continue
		}
		r.Found++
		r.Rows[i].Account = NewAccountReport(row.Record, raw)
	}
	return r
}

// BlockReport holds one entry per slot of the requested range.
type BlockReport struct {
	Blocks []BlockJSON `json:"blocks"`
}

// BlockJSON is a block summary or the error for its slot
type BlockJSON struct {
	Slot               uint64             `json:"slot"`
	ParentSlot         uint64             `json:"parent_slot,omitempty"`
	BlockHeight        *uint64            `json:"block_height,omitempty"`
	BlockTime          *time.Time         `json:"block_time,omitempty"`
	Blockhash          string             `json:"blockhash,omitempty"`
	PreviousBlockhash  string             `json:"previous_blockhash,omitempty"`
	Leader             *string            `json:"leader,omitempty"`
	LeaderReward       int64              `json:"leader_reward,omitempty"`
	Transactions       int                `json:"transactions"`
	VoteTransactions   int                `json:"vote_transactions"`
	FailedTransactions int                `json:"failed_transactions"`
	Fees               uint64             `json:"fees"`
	ComputeUnits       uint64             `json:"compute_units"`
	Programs           []ProgramCountJSON `json:"programs,omitempty"`
	Error              *ErrorJSON         `json:"error,omitempty"`
}

// ProgramCountJSON is a program and its top-level invocation count
type ProgramCountJSON struct {
	Program     string `json:"program"`
	Invocations int    `json:"invocations"`
}

// NewBlockReport converts rows, keeping slot order.
func NewBlockReport(rows []explorer.BlockRow) *BlockReport {
	r := &BlockReport{Blocks: make([]BlockJSON, len(rows))}
	for i, row := range rows {
		r.Blocks[i].Slot = row.Slot
		if row.Err != nil {
			r.Blocks[i].Error = NewErrorJSON(row.Err)
			continue
		}
		b := row.Block
		r.Blocks[i] = BlockJSON{
			Slot:               b.Slot,
			ParentSlot:         b.ParentSlot,
			BlockHeight:        b.BlockHeight,
			BlockTime:          b.BlockTime,
			Blockhash:          b.Blockhash,
			PreviousBlockhash:  b.PreviousBlockhash,
			Leader:             strPtr(b.Leader),
			LeaderReward:       b.LeaderReward,
			Transactions:       b.Transactions,
			VoteTransactions:   b.VoteTransactions,
			FailedTransactions: b.FailedTransactions,
			Fees:               b.Fees,
			ComputeUnits:       b.ComputeUnits,
			Programs: lo.Map(b.Programs, func(p rpc.ProgramCount, _ int) ProgramCountJSON {
				return ProgramCountJSON{Program: p.Program.String(), Invocations: p.Invocations}
			}),
		}
	}
	return r
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
