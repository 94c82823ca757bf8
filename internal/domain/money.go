package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// defaultExponent is the number of fraction digits of a currency's minor unit
// unless listed in minorExponents.
const defaultExponent = 2

// minorExponents lists currencies whose minor unit is not the cent, as the
// payment gateway counts them.
var minorExponents = map[string]int32{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "JPY": 0, "KMF": 0, "KRW": 0, "MGA": 0,
	"PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "JOD": 3, "KWD": 3, "OMR": 3, "TND": 3,
}

// CurrencyExponent returns the fraction digits of currency's minor unit.
func CurrencyExponent(currency string) int32 {
	if e, ok := minorExponents[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return e
	}
	return defaultExponent
}

// RoundMoney rounds d to the minor unit of currency.
func RoundMoney(d decimal.Decimal, currency string) decimal.Decimal {
	return d.Round(CurrencyExponent(currency))
}

// ToMinorUnits converts d to the integer amount the gateway charges: cents for
// USD, yen for JPY.
func ToMinorUnits(d decimal.Decimal, currency string) int64 {
	return d.Shift(CurrencyExponent(currency)).Round(0).IntPart()
}

func FromMinorUnits(n int64, currency string) decimal.Decimal {
	return decimal.New(n, -CurrencyExponent(currency))
}

// FormatMoney renders d with the fraction digits of currency.
func FormatMoney(d decimal.Decimal, currency string) string {
	return d.StringFixed(CurrencyExponent(currency))
}

// CheckAmount rejects amounts that cannot be charged in currency without
// rounding, such as 12.50 JPY.
func CheckAmount(d decimal.Decimal, currency string) error {
	if !d.Equal(RoundMoney(d, currency)) {
		return fmt.Errorf("%w: %s %s", ErrUnsupportedAmount, d, strings.ToUpper(currency))
	}
	return nil
}
