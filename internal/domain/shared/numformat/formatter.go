package numformat

import (
	"encoding/json"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Formatter formats values with a fixed Settings. It is safe for concurrent use.
type Formatter struct {
	settings Settings
}

// New creates a Formatter for the given settings. Out-of-range precision
// falls back to the default.
func New(settings Settings) *Formatter {
	if settings.DecimalPlaces < 0 || settings.DecimalPlaces > MaxDecimalPlaces {
		settings.DecimalPlaces = DefaultSettings().DecimalPlaces
	}
	return &Formatter{settings: settings}
}

// NewDefault creates a Formatter with DefaultSettings.
func NewDefault() *Formatter {
	return New(DefaultSettings())
}

// Settings returns the formatter configuration.
func (f *Formatter) Settings() Settings {
	return f.settings
}

// Configure returns a new Formatter with raw applied on top of the current settings.
func (f *Formatter) Configure(raw RawSettings) *Formatter {
	return &Formatter{settings: f.settings.Apply(raw)}
}

// Option overrides the fraction digits of a single FormatNumber call.
type Option func(*options)

type options struct {
	minFractionDigits *int
	maxFractionDigits *int
}

// WithMinimumFractionDigits sets the minimum number of fraction digits.
func WithMinimumFractionDigits(n int) Option {
	return func(o *options) { o.minFractionDigits = &n }
}

// WithMaximumFractionDigits sets the maximum number of fraction digits.
func WithMaximumFractionDigits(n int) Option {
	return func(o *options) { o.maxFractionDigits = &n }
}

// FormatNumber formats value with grouping and fixed precision. It returns ""
// for nil, empty or non-numeric input.
//
// The precision is max(minimum, maximum) where each side defaults to the
// configured decimal places. Rounding is half away from zero.
func (f *Formatter) FormatNumber(value any, opts ...Option) string {
	d, ok := ToDecimal(value)
	if !ok {
		return ""
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	minDigits := f.settings.DecimalPlaces
	if o.minFractionDigits != nil {
		minDigits = *o.minFractionDigits
	}
	maxDigits := f.settings.DecimalPlaces
	if o.maxFractionDigits != nil {
		maxDigits = *o.maxFractionDigits
	}
	decimals := max(minDigits, maxDigits)
	if decimals < 0 {
		decimals = 0
	}

	rounded := d.Round(int32(decimals))
	negative := rounded.IsNegative()
	fixed := rounded.Abs().StringFixed(int32(decimals))

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(groupDigits(intPart, f.settings.ThousandSeparator))
	if decimals > 0 {
		b.WriteString(f.settings.DecimalSeparator)
		b.WriteString(fracPart)
	}
	return b.String()
}

// FormatAmount formats value with exactly the configured decimal places.
func (f *Formatter) FormatAmount(value any) string {
	return f.FormatNumber(value,
		WithMinimumFractionDigits(f.settings.DecimalPlaces),
		WithMaximumFractionDigits(f.settings.DecimalPlaces),
	)
}

// FormatMoney formats value as "{label} {amount}" with the configured label.
func (f *Formatter) FormatMoney(value any) string {
	return f.FormatMoneyWithLabel(value, "")
}

// FormatMoneyWithLabel is FormatMoney with a label override. An empty label
// uses the configured one.
func (f *Formatter) FormatMoneyWithLabel(value any, label string) string {
	amount := f.FormatAmount(value)
	if amount == "" {
		return ""
	}
	if label == "" {
		label = f.settings.CurrencyLabel
	}
	return label + " " + amount
}

// groupDigits inserts sep between every run of three digits counted from the right.
func groupDigits(digits, sep string) string {
	if len(digits) <= 3 || sep == "" {
		return digits
	}

	var b strings.Builder
	b.Grow(len(digits) + (len(digits)-1)/3*len(sep))
	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(digits[:head])
	for i := head; i < len(digits); i += 3 {
		b.WriteString(sep)
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ToDecimal converts the values accepted by FormatNumber to a decimal.
func ToDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	case decimal.NullDecimal:
		return v.Decimal, v.Valid
	case string:
		return parseDecimal(v)
	case *string:
		if v == nil {
			return decimal.Zero, false
		}
		return parseDecimal(*v)
	case json.Number:
		return parseDecimal(v.String())
	case float64:
		return fromFloat(v)
	case *float64:
		if v == nil {
			return decimal.Zero, false
		}
		return fromFloat(*v)
	case float32:
		return fromFloat(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int8:
		return decimal.NewFromInt(int64(v)), true
	case int16:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
		return fromUint(uint64(v)), true
	case uint8:
		return fromUint(uint64(v)), true
	case uint16:
		return fromUint(uint64(v)), true
	case uint32:
		return fromUint(uint64(v)), true
	case uint64:
		return fromUint(v), true
	default:
		return decimal.Zero, false
	}
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func fromFloat(v float64) (decimal.Decimal, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(v), true
}

func fromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
