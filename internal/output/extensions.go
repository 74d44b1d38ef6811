package output

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/dmagro/sol-explorer/internal/extension"
)

type field struct {
	Name  string
	Value string
}

func keyOrNone(k *solana.PublicKey) string {
	if k == nil {
		return "none"
	}
	return k.String()
}

func unixTime(ts int64) string {
	if ts == 0 {
		return "never"
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

func feeFields(prefix string, f extension.TransferFee) []field {
	return []field{
		{prefix + "_epoch", strconv.FormatUint(f.Epoch, 10)},
		{prefix + "_basis_points", strconv.FormatUint(uint64(f.TransferFeeBasisPoints), 10)},
		{prefix + "_maximum_fee", strconv.FormatUint(f.MaximumFee, 10)},
	}
}

// extensionFields flattens one extension into display fields, in a stable
// order. Raw payloads are shown as hex.
func extensionFields(ext extension.Extension) []field {
	switch e := ext.(type) {
	case *extension.TransferFeeConfig:
		fs := []field{
			{"config_authority", keyOrNone(e.ConfigAuthority)},
			{"withdraw_withheld_authority", keyOrNone(e.WithdrawWithheldAuthority)},
			{"withheld_amount", strconv.FormatUint(e.WithheldAmount, 10)},
		}
		fs = append(fs, feeFields("older", e.OlderTransferFee)...)
		return append(fs, feeFields("newer", e.NewerTransferFee)...)
	case *extension.TransferFeeAmount:
		return []field{{"withheld_amount", strconv.FormatUint(e.WithheldAmount, 10)}}
	case *extension.MintCloseAuthority:
		return []field{{"close_authority", keyOrNone(e.CloseAuthority)}}
	case *extension.ConfidentialTransferMint:
		auditor := "none"
		if e.AuditorElGamalPubkey != nil {
			auditor = hex.EncodeToString(e.AuditorElGamalPubkey)
		}
		return []field{
			{"authority", keyOrNone(e.Authority)},
			{"auto_approve_new_accounts", strconv.FormatBool(e.AutoApproveNewAccounts)},
			{"auditor_elgamal_pubkey", auditor},
		}
	case *extension.DefaultAccountState:
		return []field{{"state", e.State.String()}}
	case *extension.MemoTransfer:
		return []field{{"require_incoming_transfer_memos", strconv.FormatBool(e.RequireIncomingTransferMemos)}}
	case *extension.InterestBearingConfig:
		return []field{
			{"rate_authority", keyOrNone(e.RateAuthority)},
			{"current_rate_bps", strconv.Itoa(int(e.CurrentRate))},
			{"pre_update_average_rate_bps", strconv.Itoa(int(e.PreUpdateAverageRate))},
			{"initialized", unixTime(e.InitializationTimestamp)},
			{"last_update", unixTime(e.LastUpdateTimestamp)},
		}
	case *extension.CpiGuard:
		return []field{{"lock_cpi", strconv.FormatBool(e.LockCpi)}}
	case *extension.PermanentDelegate:
		return []field{{"delegate", keyOrNone(e.Delegate)}}
	case *extension.TransferHook:
		return []field{
			{"authority", keyOrNone(e.Authority)},
			{"program_id", keyOrNone(e.ProgramID)},
		}
	case *extension.TransferHookAccount:
		return []field{{"transferring", strconv.FormatBool(e.Transferring)}}
	case *extension.MetadataPointer:
		return []field{
			{"authority", keyOrNone(e.Authority)},
			{"metadata_address", keyOrNone(e.MetadataAddress)},
		}
	case *extension.TokenMetadata:
		fs := []field{
			{"update_authority", keyOrNone(e.UpdateAuthority)},
			{"mint", e.Mint.String()},
			{"name", e.Name},
			{"symbol", e.Symbol},
			{"uri", e.URI},
		}
		for _, kv := range e.AdditionalMetadata {
			fs = append(fs, field{kv.Key, kv.Value})
		}
		return fs
	case *extension.GroupPointer:
		return []field{
			{"authority", keyOrNone(e.Authority)},
			{"group_address", keyOrNone(e.GroupAddress)},
		}
	case *extension.TokenGroup:
		return []field{
			{"update_authority", keyOrNone(e.UpdateAuthority)},
			{"mint", e.Mint.String()},
			{"size", strconv.FormatUint(e.Size, 10)},
			{"max_size", strconv.FormatUint(e.MaxSize, 10)},
		}
	case *extension.GroupMemberPointer:
		return []field{
			{"authority", keyOrNone(e.Authority)},
			{"member_address", keyOrNone(e.MemberAddress)},
		}
	case *extension.TokenGroupMember:
		return []field{
			{"mint", e.Mint.String()},
			{"group", e.Group.String()},
			{"member_number", strconv.FormatUint(e.MemberNumber, 10)},
		}
	case *extension.ScaledUiAmount:
		return []field{
			{"authority", keyOrNone(e.Authority)},
			{"multiplier", strconv.FormatFloat(e.Multiplier, 'g', -1, 64)},
			{"new_multiplier", strconv.FormatFloat(e.NewMultiplier, 'g', -1, 64)},
			{"new_multiplier_effective", unixTime(e.NewMultiplierEffectiveTimestamp)},
		}
	case *extension.Pausable:
		return []field{
			{"authority", keyOrNone(e.Authority)},
			{"paused", strconv.FormatBool(e.Paused)},
		}
	case *extension.Opaque:
		return []field{{"raw", hex.EncodeToString(e.Raw)}}
	case *extension.Unknown:
		return []field{{"raw", hex.EncodeToString(e.Raw)}}
	case *extension.Invalid:
		msg := "invalid payload"
		if e.Err != nil {
			msg = e.Err.Error()
		}
		return []field{
			{"error", msg},
			{"raw", hex.EncodeToString(e.Raw)},
		}
	}
	// ImmutableOwner, NonTransferable and the other marker extensions.
	return nil
}

func extensionName(ext extension.Extension) string {
	if _, ok := ext.(*extension.Invalid); ok {
		return fmt.Sprintf("%s (invalid)", ext.Type())
	}
	return ext.Type().String()
}
