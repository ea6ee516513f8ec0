package enums

import "fmt"

// FundsSource identifies which drawer balance a payout draws from.
type FundsSource string

const (
	FundsSourceCash          FundsSource = "cash"
	FundsSourceVirtualWallet FundsSource = "virtual_wallet"
)

var validFundsSources = []FundsSource{
	FundsSourceCash,
	FundsSourceVirtualWallet,
}

// String implements fmt.Stringer.
func (f FundsSource) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FundsSource.
func (f FundsSource) IsValid() bool {
	for _, candidate := range validFundsSources {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFundsSource converts raw input into a FundsSource.
func ParseFundsSource(value string) (FundsSource, error) {
	for _, candidate := range validFundsSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid funds source %q", value)
}
