package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

const commitment = "confirmed"

func accountParams(addr solana.PublicKey) []interface{} {
	return []interface{}{
		addr.String(),
		map[string]interface{}{"encoding": "base64", "commitment": commitment},
	}
}

// FetchAccount calls getAccountInfo. A missing account is ErrNotFound.
func (c *Client) FetchAccount(ctx context.Context, addr solana.PublicKey) (*RawAccount, error) {
	resp, _, err := c.Call(ctx, "getAccountInfo", accountParams(addr)...)
	if err != nil {
		return nil, err
	}
	return decodeAccount(addr, resp.Result)
}

func decodeAccount(addr solana.PublicKey, result json.RawMessage) (*RawAccount, error) {
	var env accountEnvelope
	if err := json.Unmarshal(result, &env); err != nil {
		return nil, newNetworkError("getAccountInfo", 1, &parseError{err: err})
	}
	if env.Value == nil {
		return nil, fmt.Errorf("account %s: %w", addr, ErrNotFound)
	}

	v := env.Value
	owner, err := solana.PublicKeyFromBase58(v.Owner)
	if err != nil {
		return nil, newNetworkError("getAccountInfo", 1, &parseError{err: fmt.Errorf("owner: %w", err)})
	}
	if len(v.Data) == 0 {
		return nil, newNetworkError("getAccountInfo", 1, &parseError{err: fmt.Errorf("account %s: missing data", addr)})
	}
	if len(v.Data) > 1 && v.Data[1] != "base64" {
		return nil, newNetworkError("getAccountInfo", 1, &parseError{err: fmt.Errorf("unexpected data encoding %q", v.Data[1])})
	}
	data, err := base64.StdEncoding.DecodeString(v.Data[0])
	if err != nil {
		return nil, newNetworkError("getAccountInfo", 1, &parseError{err: fmt.Errorf("account data: %w", err)})
	}

	return &RawAccount{
		Address:    addr,
		Owner:      owner,
		Lamports:   v.Lamports,
		Executable: v.Executable,
		RentEpoch:  v.RentEpoch,
		Data:       data,
		Slot:       env.Context.Slot,
	}, nil
}

// FetchAccountsBatch fetches every address and returns one result per input,
// in input order. Chunks of batchSize travel as JSON-RPC batches and run on at
// most workers goroutines; each chunk fills only its own slots, so a failed
// chunk or item never touches the others.
func (c *Client) FetchAccountsBatch(ctx context.Context, addrs []solana.PublicKey) []AccountResult {
	results := make([]AccountResult, len(addrs))
	for i, a := range addrs {
		results[i].Address = a
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for start := 0; start < len(addrs); start += c.batchSize {
		start := start
		end := start + c.batchSize
		if end > len(addrs) {
			end = len(addrs)
		}
		g.Go(func() error {
			c.fetchChunk(gctx, addrs[start:end], results[start:end])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Client) fetchChunk(ctx context.Context, addrs []solana.PublicKey, out []AccountResult) {
	reqs := make([]Request, len(addrs))
	for i, a := range addrs {
		reqs[i] = Request{Method: "getAccountInfo", Params: accountParams(a)}
	}

	resps, err := c.CallBatch(ctx, reqs)
	if err != nil {
		for i := range out {
			out[i].Err = err
		}
		return
	}

	for i, resp := range resps {
		if resp.Error != nil {
			if !Classify(resp.Error).Transient() {
				out[i].Err = newNetworkError("getAccountInfo", 1, resp.Error)
				continue
			}
			out[i].Account, out[i].Err = c.FetchAccount(ctx, addrs[i])
			continue
		}
		out[i].Account, out[i].Err = decodeAccount(addrs[i], resp.Result)
	}
}

// FetchTransaction calls getTransaction. An unknown or unconfirmed
// signature is ErrNotFound.
func (c *Client) FetchTransaction(ctx context.Context, sig solana.Signature) (*TransactionRecord, error) {
	resp, _, err := c.Call(ctx, "getTransaction", sig.String(), map[string]interface{}{
		"encoding":                       "json",
		"commitment":                     commitment,
		"maxSupportedTransactionVersion": 0,
	})
	if err != nil {
		return nil, err
	}
	if isNull(resp.Result) {
		return nil, fmt.Errorf("transaction %s: %w", sig, ErrNotFound)
	}

	var env txEnvelope
	if err := json.Unmarshal(resp.Result, &env); err != nil {
		return nil, newNetworkError("getTransaction", 1, &parseError{err: err})
	}
	rec, err := env.record(sig)
	if err != nil {
		return nil, newNetworkError("getTransaction", 1, &parseError{err: err})
	}
	return rec, nil
}

func (env *txEnvelope) record(sig solana.Signature) (*TransactionRecord, error) {
	msg := env.Tx.Message
	rec := &TransactionRecord{
		Signature:       sig,
		Slot:            env.Slot,
		Version:         parseVersion(env.Version),
		Success:         true,
		RecentBlockhash: msg.RecentBlockhash,
	}
	if env.BlockTime != nil {
		t := time.Unix(*env.BlockTime, 0).UTC()
		rec.BlockTime = &t
	}

	keys := make([]solana.PublicKey, 0, len(msg.AccountKeys))
	for _, k := range msg.AccountKeys {
		pk, err := solana.PublicKeyFromBase58(k)
		if err != nil {
			return nil, fmt.Errorf("account key %q: %w", k, err)
		}
		keys = append(keys, pk)
	}

	h := msg.Header
	static := len(keys)
	for i, k := range keys {
		signer := i < h.NumRequiredSignatures
		var writable bool
		if signer {
			writable = i < h.NumRequiredSignatures-h.NumReadonlySignedAccounts
		} else {
			writable = i < static-h.NumReadonlyUnsignedAccounts
		}
		rec.Accounts = append(rec.Accounts, TxAccount{Key: k, Signer: signer, Writable: writable, Source: KeyStatic})
	}

	if m := env.Meta; m != nil {
		rec.Fee = m.Fee
		rec.ComputeUnits = m.ComputeUnitsConsumed
		rec.Logs = m.LogMessages
		if !isNull(m.Err) {
			rec.Success = false
			rec.Err = string(m.Err)
		}

		if la := m.LoadedAddresses; la != nil {
			for _, group := range []struct {
				keys     []string
				writable bool
			}{{la.Writable, true}, {la.Readonly, false}} {
				for _, k := range group.keys {
					pk, err := solana.PublicKeyFromBase58(k)
					if err != nil {
						return nil, fmt.Errorf("loaded key %q: %w", k, err)
					}
					keys = append(keys, pk)
					rec.Accounts = append(rec.Accounts, TxAccount{Key: pk, Writable: group.writable, Source: KeyLookup})
				}
			}
		}

		for i := range rec.Accounts {
			if i < len(m.PreBalances) {
				rec.Accounts[i].PreBalance = m.PreBalances[i]
			}
			if i < len(m.PostBalances) {
				rec.Accounts[i].PostBalance = m.PostBalances[i]
			}
		}
	}

	for _, ix := range msg.Instructions {
		if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(keys) {
			return nil, fmt.Errorf("instruction program index %d out of range", ix.ProgramIDIndex)
		}
		out := TxInstruction{ProgramID: keys[ix.ProgramIDIndex], Data: ix.Data}
		for _, a := range ix.Accounts {
			if a < 0 || a >= len(keys) {
				return nil, fmt.Errorf("instruction account index %d out of range", a)
			}
			out.Accounts = append(out.Accounts, keys[a])
		}
		rec.Instructions = append(rec.Instructions, out)
	}

	return rec, nil
}

// parseVersion turns "legacy" or 0 into a display string.
func parseVersion(raw json.RawMessage) string {
	if isNull(raw) {
		return "legacy"
	}
	s := strings.Trim(string(raw), `"`)
	if _, err := strconv.Atoi(s); err == nil || s == "legacy" {
		return s
	}
	return "unknown"
}

// TokenAccountsByOwner lists the token accounts of owner under one token
// program, reading the node's jsonParsed form.
func (c *Client) TokenAccountsByOwner(ctx context.Context, owner, program solana.PublicKey) ([]TokenHolding, error) {
	resp, _, err := c.Call(ctx, "getTokenAccountsByOwner",
		owner.String(),
		map[string]interface{}{"programId": program.String()},
		map[string]interface{}{"encoding": "jsonParsed", "commitment": commitment},
	)
	if err != nil {
		return nil, err
	}

	value := gjson.GetBytes(resp.Result, "value")
	if !value.IsArray() {
		return nil, newNetworkError("getTokenAccountsByOwner", 1, &parseError{err: fmt.Errorf("missing value array")})
	}

	var out []TokenHolding
	var parseErr error
	value.ForEach(func(_, item gjson.Result) bool {
		info := item.Get("account.data.parsed.info")
		addr, err := solana.PublicKeyFromBase58(item.Get("pubkey").String())
		if err != nil {
			parseErr = fmt.Errorf("pubkey: %w", err)
			return false
		}
		mint, err := solana.PublicKeyFromBase58(info.Get("mint").String())
		if err != nil {
			parseErr = fmt.Errorf("mint of %s: %w", addr, err)
			return false
		}
		amount, err := strconv.ParseUint(info.Get("tokenAmount.amount").String(), 10, 64)
		if err != nil {
			parseErr = fmt.Errorf("amount of %s: %w", addr, err)
			return false
		}
		out = append(out, TokenHolding{
			Address:  addr,
			Program:  program,
			Mint:     mint,
			Amount:   amount,
			Decimals: uint8(info.Get("tokenAmount.decimals").Uint()),
			State:    info.Get("state").String(),
		})
		return true
	})
	if parseErr != nil {
		return nil, newNetworkError("getTokenAccountsByOwner", 1, &parseError{err: parseErr})
	}
	return out, nil
}
