package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Codes for a slot that has no block: skipped by its leader, or no longer in
// the node's ledger.
const (
	codeSlotSkipped                = -32007
	codeLongTermStorageSlotSkipped = -32009
)

var voteProgramID = solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111")

type blockRaw struct {
	BlockHeight       *uint64 `json:"blockHeight"`
	BlockTime         *int64  `json:"blockTime"`
	Blockhash         string  `json:"blockhash"`
	ParentSlot        uint64  `json:"parentSlot"`
	PreviousBlockhash string  `json:"previousBlockhash"`
	Rewards           []struct {
		Pubkey     string  `json:"pubkey"`
		Lamports   int64   `json:"lamports"`
		RewardType *string `json:"rewardType"`
	} `json:"rewards"`
	Transactions []struct {
		Meta        *txMetaRaw `json:"meta"`
		Transaction struct {
			Message txMessageRaw `json:"message"`
		} `json:"transaction"`
	} `json:"transactions"`
}

// ProgramCount is how many top-level instructions of a block call Program.
type ProgramCount struct {
	Program     solana.PublicKey
	Invocations int
}

// BlockRecord summarizes a confirmed block.
type BlockRecord struct {
	Slot               uint64
	ParentSlot         uint64
	BlockHeight        *uint64
	BlockTime          *time.Time
	Blockhash          string
	PreviousBlockhash  string
	Leader             *solana.PublicKey // receiver of the fee reward, if reported
	LeaderReward       int64             // lamports
	Transactions       int
	VoteTransactions   int
	FailedTransactions int
	Fees               uint64
	ComputeUnits       uint64
	Programs           []ProgramCount // most invoked first
}

// FetchBlock calls getBlock with full transaction details. A skipped or
// purged slot is ErrNotFound.
func (c *Client) FetchBlock(ctx context.Context, slot uint64) (*BlockRecord, error) {
	resp, _, err := c.Call(ctx, "getBlock", slot, map[string]interface{}{
		"encoding":                       "json",
		"transactionDetails":             "full",
		"rewards":                        true,
		"commitment":                     commitment,
		"maxSupportedTransactionVersion": 0,
	})
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && (rpcErr.Code == codeSlotSkipped || rpcErr.Code == codeLongTermStorageSlotSkipped) {
		return nil, fmt.Errorf("block %d: %s: %w", slot, rpcErr.Message, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if isNull(resp.Result) {
		return nil, fmt.Errorf("block %d: %w", slot, ErrNotFound)
	}

	var raw blockRaw
	if err := json.Unmarshal(resp.Result, &raw); err != nil {
		return nil, newNetworkError("getBlock", 1, &parseError{err: err})
	}
	rec, err := raw.record(slot)
	if err != nil {
		return nil, newNetworkError("getBlock", 1, &parseError{err: err})
	}
	return rec, nil
}

func (raw *blockRaw) record(slot uint64) (*BlockRecord, error) {
	rec := &BlockRecord{
		Slot:              slot,
		ParentSlot:        raw.ParentSlot,
		BlockHeight:       raw.BlockHeight,
		Blockhash:         raw.Blockhash,
		PreviousBlockhash: raw.PreviousBlockhash,
		Transactions:      len(raw.Transactions),
	}
	if raw.BlockTime != nil {
		t := time.Unix(*raw.BlockTime, 0).UTC()
		rec.BlockTime = &t
	}

	for _, r := range raw.Rewards {
		if r.RewardType == nil || *r.RewardType != "Fee" {
			continue
		}
		pk, err := solana.PublicKeyFromBase58(r.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("reward pubkey %q: %w", r.Pubkey, err)
		}
		rec.Leader = &pk
		rec.LeaderReward = r.Lamports
		break
	}

	counts := map[solana.PublicKey]int{}
	for i, tx := range raw.Transactions {
		msg := tx.Transaction.Message
		programs := make([]solana.PublicKey, 0, len(msg.Instructions))
		for _, ix := range msg.Instructions {
			if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(msg.AccountKeys) {
				return nil, fmt.Errorf("transaction %d: program index %d out of range", i, ix.ProgramIDIndex)
			}
			pk, err := solana.PublicKeyFromBase58(msg.AccountKeys[ix.ProgramIDIndex])
			if err != nil {
				return nil, fmt.Errorf("transaction %d: program key: %w", i, err)
			}
			programs = append(programs, pk)
			counts[pk]++
		}
		if len(programs) == 1 && programs[0].Equals(voteProgramID) {
			rec.VoteTransactions++
		}

		if m := tx.Meta; m != nil {
			rec.Fees += m.Fee
			if m.ComputeUnitsConsumed != nil {
				rec.ComputeUnits += *m.ComputeUnitsConsumed
			}
			if !isNull(m.Err) {
				rec.FailedTransactions++
			}
		}
	}

	for program, n := range counts {
		rec.Programs = append(rec.Programs, ProgramCount{Program: program, Invocations: n})
	}
	sort.Slice(rec.Programs, func(i, j int) bool {
		a, b := rec.Programs[i], rec.Programs[j]
		if a.Invocations != b.Invocations {
			return a.Invocations > b.Invocations
		}
		return a.Program.String() < b.Program.String()
	})
	return rec, nil
}

// Slot calls getSlot: the latest slot the node has at the client's
// commitment.
func (c *Client) Slot(ctx context.Context) (uint64, error) {
	resp, _, err := c.Call(ctx, "getSlot", map[string]interface{}{"commitment": commitment})
	if err != nil {
		return 0, err
	}
	var slot uint64
	if err := json.Unmarshal(resp.Result, &slot); err != nil {
		return 0, newNetworkError("getSlot", 1, &parseError{err: err})
	}
	return slot, nil
}
