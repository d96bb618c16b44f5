package numformat

import "sync/atomic"

// current is the process-wide formatter. Configure replaces it with a new
// immutable Formatter so readers always see one consistent Settings.
var current atomic.Pointer[Formatter]

func init() {
	current.Store(NewDefault())
}

// Current returns the process-wide formatter.
func Current() *Formatter {
	return current.Load()
}

// Configure applies raw settings to the process-wide formatter and returns
// the resulting settings. Absent or invalid fields keep their previous value.
func Configure(raw RawSettings) Settings {
	for {
		prev := current.Load()
		next := prev.Configure(raw)
		if current.CompareAndSwap(prev, next) {
			return next.settings
		}
	}
}

// Reset restores the process-wide formatter to DefaultSettings.
func Reset() {
	current.Store(NewDefault())
}

// FormatNumber formats value with the process-wide formatter.
func FormatNumber(value any, opts ...Option) string {
	return Current().FormatNumber(value, opts...)
}

// FormatAmount formats value with the process-wide formatter.
func FormatAmount(value any) string {
	return Current().FormatAmount(value)
}

// FormatMoney formats value with the process-wide formatter.
func FormatMoney(value any) string {
	return Current().FormatMoney(value)
}

// FormatMoneyWithLabel formats value with the process-wide formatter and label.
func FormatMoneyWithLabel(value any, label string) string {
	return Current().FormatMoneyWithLabel(value, label)
}
