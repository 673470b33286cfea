package render

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultPriceFormat mirrors the storefront price layout: currency, a
// non-breaking space, then the amount.
const DefaultPriceFormat = "%[1]s&nbsp;%[2]s"

type PriceFormatter interface {
	FormatPrice(amount decimal.Decimal, currency string) string
}

// CurrencyFormatter groups thousands and fixes the number of decimals. Its
// output may contain markup; the renderer reduces it to plain text.
type CurrencyFormatter struct {
	Pattern  string
	Decimals int
	printer  *message.Printer
}

func NewCurrencyFormatter(pattern string, decimals int) *CurrencyFormatter {
	if pattern == "" {
		pattern = DefaultPriceFormat
	}
	return &CurrencyFormatter{
		Pattern:  pattern,
		Decimals: decimals,
		printer:  message.NewPrinter(language.English),
	}
}

func (f *CurrencyFormatter) FormatPrice(amount decimal.Decimal, currency string) string {
	rounded := amount.Round(int32(f.Decimals)).InexactFloat64()
	formatted := f.printer.Sprint(number.Decimal(rounded, number.Scale(f.Decimals)))
	return fmt.Sprintf(f.Pattern, currency, formatted)
}
