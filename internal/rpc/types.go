// =============================================================================
// FILE: internal/rpc/types.go
// ROLE: Wire vocabulary for the Solana JSON-RPC gateway
// =============================================================================
//
// Every RPC exchange in the explorer passes through the types in this file.
// The client serializes a Request, the node answers with a Response, and the
// methods in methods.go turn the Response.Result bytes into RawAccount or
// TransactionRecord values that the decoding layers consume.
//
//   cmd/explorer ──▶ internal/explorer ──▶ internal/rpc (this package)
//                           │                     │
//                           ▼                     ▼
//                 layout / token / extension   net/http
//
// Two layers again:
//   Layer 1 (accountEnvelope, txEnvelope): JSON exactly as the node returns it.
//   Layer 2 (RawAccount, TransactionRecord): decoded bytes and typed keys.
//
// Nothing in this package interprets account bytes. It only moves them.
// =============================================================================

package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// =============================================================================
// SECTION 1: JSON-RPC 2.0 envelope
// =============================================================================
//
// A single call is one JSON object. A batch is a JSON array of those objects;
// the node may answer the array in any order, so every request in a batch
// carries its own ID and responses are matched back by that ID, never by
// position.
//
//   Client ──[ {id:0}, {id:1}, {id:2} ]──▶ Node
//   Client ◀──[ {id:2}, {id:0}, {id:1} ]── Node
// =============================================================================

// Request is one JSON-RPC 2.0 call.
//
//	{"jsonrpc":"2.0","id":1,"method":"getAccountInfo",
//	 "params":["<address>",{"encoding":"base64"}]}
type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// Response is one JSON-RPC 2.0 reply. Result stays raw until the caller,
// who knows the method, decodes it.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object a node returns inside a Response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// isNull reports whether a result is absent or JSON null.
func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// =============================================================================
// SECTION 2: Accounts
// =============================================================================
//
// getAccountInfo with {"encoding":"base64"} answers:
//
//	{"context":{"slot":250000000},
//	 "value":{"data":["<base64>","base64"],"executable":false,
//	          "lamports":2039280,"owner":"Tokenkeg...","rentEpoch":18446744073709551615,
//	          "space":165}}
//
// A null value means the address holds no account. That is NotFound, not a
// network failure, and it is never retried.
// =============================================================================

type contextEnvelope struct {
	Slot uint64 `json:"slot"`
}

type accountEnvelope struct {
	Context contextEnvelope  `json:"context"`
	Value   *accountValueRaw `json:"value"`
}

type accountValueRaw struct {
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	RentEpoch  uint64   `json:"rentEpoch"`
	Space      *uint64  `json:"space,omitempty"`
}

// RawAccount is a fetched account: its owner program and undecoded bytes.
type RawAccount struct {
	Address    solana.PublicKey
	Owner      solana.PublicKey
	Lamports   uint64
	Executable bool
	RentEpoch  uint64
	Data       []byte
	Slot       uint64 // context slot the node answered at
}

// AccountResult is one slot of a batch fetch. Exactly one of Account and Err
// is set. Err wraps ErrNotFound when the address holds no account.
type AccountResult struct {
	Address solana.PublicKey
	Account *RawAccount
	Err     error
}

// TokenHolding is one token account returned by getTokenAccountsByOwner in
// jsonParsed form. The node has already decoded it; the explorer only lists it.
type TokenHolding struct {
	Address  solana.PublicKey
	Program  solana.PublicKey
	Mint     solana.PublicKey
	Amount   uint64
	Decimals uint8
	State    string
}

// =============================================================================
// SECTION 3: Transactions
// =============================================================================
//
// getTransaction with {"encoding":"json","maxSupportedTransactionVersion":0}
// answers a message with static account keys plus, for version 0, keys loaded
// from address lookup tables in meta.loadedAddresses. Balances in meta are
// indexed over the combined list: static keys, then loaded writable, then
// loaded readonly.
// =============================================================================

type txEnvelope struct {
	Slot      uint64          `json:"slot"`
	BlockTime *int64          `json:"blockTime"`
	Version   json.RawMessage `json:"version"`
	Meta      *txMetaRaw      `json:"meta"`
	Tx        struct {
		Signatures []string     `json:"signatures"`
		Message    txMessageRaw `json:"message"`
	} `json:"transaction"`
}

type txMessageRaw struct {
	AccountKeys []string `json:"accountKeys"`
	Header      struct {
		NumRequiredSignatures       int `json:"numRequiredSignatures"`
		NumReadonlySignedAccounts   int `json:"numReadonlySignedAccounts"`
		NumReadonlyUnsignedAccounts int `json:"numReadonlyUnsignedAccounts"`
	} `json:"header"`
	RecentBlockhash string `json:"recentBlockhash"`
	Instructions    []struct {
		ProgramIDIndex int    `json:"programIdIndex"`
		Accounts       []int  `json:"accounts"`
		Data           string `json:"data"`
	} `json:"instructions"`
}

type txMetaRaw struct {
	Err                  json.RawMessage `json:"err"`
	Fee                  uint64          `json:"fee"`
	PreBalances          []uint64        `json:"preBalances"`
	PostBalances         []uint64        `json:"postBalances"`
	LogMessages          []string        `json:"logMessages"`
	ComputeUnitsConsumed *uint64         `json:"computeUnitsConsumed"`
	LoadedAddresses      *struct {
		Writable []string `json:"writable"`
		Readonly []string `json:"readonly"`
	} `json:"loadedAddresses"`
}

// KeySource says where a transaction account key came from.
type KeySource string

const (
	KeyStatic KeySource = "static"
	KeyLookup KeySource = "lookup"
)

// TxAccount is one key of a transaction with its access flags and the SOL
// balance before and after execution.
type TxAccount struct {
	Key         solana.PublicKey
	Signer      bool
	Writable    bool
	Source      KeySource
	PreBalance  uint64
	PostBalance uint64
}

// BalanceChange is PostBalance - PreBalance in lamports.
func (a TxAccount) BalanceChange() int64 {
	return int64(a.PostBalance) - int64(a.PreBalance)
}

// TxInstruction is a top-level instruction with its program and accounts
// resolved to keys. Data stays base58, as the node sends it.
type TxInstruction struct {
	ProgramID solana.PublicKey
	Accounts  []solana.PublicKey
	Data      string
}

// TransactionRecord is the decoded view of a confirmed transaction.
type TransactionRecord struct {
	Signature       solana.Signature
	Slot            uint64
	BlockTime       *time.Time
	Version         string // "legacy" or "0"
	Success         bool
	Err             string // node's error object as JSON; empty on success
	Fee             uint64
	ComputeUnits    *uint64
	RecentBlockhash string
	Accounts        []TxAccount
	Instructions    []TxInstruction
	Logs            []string
}
