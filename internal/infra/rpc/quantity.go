package rpc

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseQuantity decodes a 0x-prefixed hex quantity of any size.
func ParseQuantity(s string) (*big.Int, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	digits := s[2:]
	if digits == "" {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	return n, nil
}

// ParseUint64 decodes a hex quantity that must fit in 64 bits.
func ParseUint64(s string) (uint64, error) {
	n, err := ParseQuantity(s)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("quantity %q overflows uint64", s)
	}
	return n.Uint64(), nil
}
