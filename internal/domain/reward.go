package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

var weiPerUnit = new(big.Int).SetUint64(params.Ether)

// FormatReward converts a wei amount to a decimal string in display units,
// trimming trailing zeros ("2500000000000000000" -> "2.5").
func FormatReward(wei *big.Int) string {
	if wei == nil || wei.Sign() == 0 {
		return "0"
	}
	q, r := new(big.Int).QuoRem(wei, weiPerUnit, new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}
	frac := fmt.Sprintf("%018s", r.String())
	frac = strings.TrimRight(frac, "0")
	return q.String() + "." + frac
}

// ParseReward converts a decimal display amount ("2.5") to wei.
// At most 18 fractional digits are representable.
func ParseReward(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if strings.ContainsAny(s, "+-") {
		return nil, fmt.Errorf("amount %q must be positive", s)
	}
	if len(fracPart) > 18 {
		return nil, fmt.Errorf("amount %q has more than 18 fractional digits", s)
	}

	whole, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	wei := whole.Mul(whole, weiPerUnit)

	if fracPart != "" {
		padded := fracPart + strings.Repeat("0", 18-len(fracPart))
		frac, ok := new(big.Int).SetString(padded, 10)
		if !ok {
			return nil, fmt.Errorf("invalid amount %q", s)
		}
		wei.Add(wei, frac)
	}
	return wei, nil
}
