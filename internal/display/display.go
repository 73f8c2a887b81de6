// Package display formats money and percentages for a caller-chosen currency and locale.
package display

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultCurrency = "INR"
	DefaultLocale   = "en-IN"
)

// Context carries the currency and locale of one request. It is passed
// explicitly to every formatting call.
type Context struct {
	Currency currency.Unit
	Language language.Tag
	printer  *message.Printer
}

// NewContext parses an ISO 4217 code and a BCP 47 locale. Empty values fall
// back to the defaults.
func NewContext(code, locale string) (Context, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Context{}, fmt.Errorf("invalid currency %q: %w", code, err)
	}

	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return Context{}, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return Context{Currency: unit, Language: tag, printer: message.NewPrinter(tag)}, nil
}

// Default returns the INR / en-IN context.
func Default() Context {
	c, _ := NewContext(DefaultCurrency, DefaultLocale)
	return c
}

// FromAcceptLanguage picks the first tag of an Accept-Language header, falling back
// to fallback when the header is empty or unparsable.
func FromAcceptLanguage(code, header, fallback string) (Context, error) {
	if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
		return NewContext(code, tags[0].String())
	}
	return NewContext(code, fallback)
}

func (c Context) p() *message.Printer {
	if c.printer == nil {
		return message.NewPrinter(c.Language)
	}
	return c.printer
}

// Symbol returns the currency symbol for the context's language.
func (c Context) Symbol() string {
	return c.p().Sprint(currency.Symbol(c.Currency))
}

// Amount formats d with two decimals, localized grouping and the currency symbol.
func (c Context) Amount(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + c.Symbol() + c.Number(d)
}

// Number formats d with two decimals and localized separators.
func (c Context) Number(d decimal.Decimal) string {
	return c.p().Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// Percent formats a 0-100 percentage with two decimals.
func (c Context) Percent(d decimal.Decimal) string {
	return c.Number(d) + "%"
}
