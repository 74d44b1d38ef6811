package output

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// SOLDecimals is the number of decimal places between lamports and SOL.
const SOLDecimals = 9

// UIAmount converts a raw token amount into its display value,
// raw / 10^decimals, without losing precision.
func UIAmount(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

// FormatAmount renders a raw token amount with thousands separators and no
// trailing zeros: 1234500000 with 6 decimals is "1,234.5".
func FormatAmount(raw uint64, decimals uint8) string {
	return groupThousands(UIAmount(raw, decimals))
}

// FormatSOL renders a lamport balance in SOL.
func FormatSOL(lamports uint64) string {
	return FormatAmount(lamports, SOLDecimals) + " SOL"
}

// FormatLamportChange renders a signed balance change in SOL. Zero is "0".
func FormatLamportChange(delta int64) string {
	if delta == 0 {
		return "0"
	}
	s := groupThousands(decimal.NewFromInt(delta).Shift(-SOLDecimals))
	if delta > 0 {
		s = "+" + s
	}
	return s
}

// FormatNumber inserts commas every 3 digits: 1234567 is "1,234,567".
func FormatNumber(n uint64) string {
	return humanize.BigComma(new(big.Int).SetUint64(n))
}

// groupThousands commas the integer part of d and keeps the fraction as is.
func groupThousands(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign, d = "-", d.Neg()
	}
	s := d.String()
	intPart, frac, hasFrac := strings.Cut(s, ".")
	n, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return sign + s
	}
	intPart = humanize.BigComma(n)
	if hasFrac {
		return sign + intPart + "." + frac
	}
	return sign + intPart
}

// FormatTimestamp combines the absolute time (UTC) with a relative "ago".
func FormatTimestamp(t time.Time, now time.Time) string {
	ago := now.Sub(t)

	var agoStr string
	switch {
	case ago < 0:
		agoStr = "in the future"
	case ago < time.Minute:
		agoStr = fmt.Sprintf("%ds ago", int(ago.Seconds()))
	case ago < time.Hour:
		agoStr = fmt.Sprintf("%dm ago", int(ago.Minutes()))
	case ago < 24*time.Hour:
		agoStr = fmt.Sprintf("%dh ago", int(ago.Hours()))
	default:
		agoStr = fmt.Sprintf("%dd ago", int(ago.Hours()/24))
	}
	return fmt.Sprintf("%s (%s)", t.UTC().Format("2006-01-02 15:04:05 UTC"), agoStr)
}

// optKey renders an optional key, "none" when unset.
func optKey(k *solana.PublicKey) string {
	if k == nil {
		return dim("none")
	}
	return k.String()
}

// shortKey abbreviates a base58 key for table columns.
func shortKey(k solana.PublicKey) string {
	s := k.String()
	if len(s) <= 14 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
