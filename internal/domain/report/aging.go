package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/contabilidad/backend/internal/domain/shared"
)

// ErrInvalidOpenItem is returned in strict mode when an item cannot be aged
var ErrInvalidOpenItem = shared.NewDomainError("INVALID_OPEN_ITEM", "Open item cannot be aged")

// Skip reasons recorded in AgingReport.Skipped
const (
	SkipReasonNoUsableDate  = "no usable date"
	SkipReasonInvalidAmount = "invalid amount"
)

// AgingBucket is a days-overdue classification
type AgingBucket string

const (
	BucketCurrent AgingBucket = "current"
	Bucket1To30   AgingBucket = "1-30"
	Bucket31To60  AgingBucket = "31-60"
	Bucket61To90  AgingBucket = "61-90"
	BucketOver90  AgingBucket = "over90"
)

// Buckets returns all buckets from youngest to oldest
func Buckets() []AgingBucket {
	return []AgingBucket{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, BucketOver90}
}

// BucketForDays classifies a days-overdue value. Zero or negative is current.
func BucketForDays(days int) AgingBucket {
	switch {
	case days <= 0:
		return BucketCurrent
	case days <= 30:
		return Bucket1To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// OpenItem is an invoice, note or advance snapshot used for aging.
// A nil DueDate means the item is aged from its IssueDate.
type OpenItem struct {
	ID                  string          `json:"id"`
	CounterpartyID      string          `json:"counterparty_id"`
	CounterpartyName    string          `json:"counterparty_name"`
	OriginalAmount      decimal.Decimal `json:"original_amount"`
	PaidOrAppliedAmount decimal.Decimal `json:"paid_or_applied_amount"`
	DueDate             *time.Time      `json:"due_date,omitempty"`
	IssueDate           *time.Time      `json:"issue_date,omitempty"`
}

// Balance returns OriginalAmount - PaidOrAppliedAmount, never below zero
func (i OpenItem) Balance() decimal.Decimal {
	balance := i.OriginalAmount.Sub(i.PaidOrAppliedAmount)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// DaysOverdue returns the whole days between the item's due date (or issue
// date when there is none) and ref. Only calendar dates are compared.
// The result is never negative. ok is false when the item has no date.
func DaysOverdue(item OpenItem, ref time.Time) (days int, ok bool) {
	anchor := item.DueDate
	if anchor == nil {
		anchor = item.IssueDate
	}
	if anchor == nil {
		return 0, false
	}
	days = int(civilDay(ref) - civilDay(*anchor))
	if days < 0 {
		days = 0
	}
	return days, true
}

// civilDay returns the day number of t's calendar date, ignoring its zone offset
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// BucketTotals holds amounts per bucket. Total is the sum of the five buckets.
type BucketTotals struct {
	Current decimal.Decimal `json:"current"`
	D1To30  decimal.Decimal `json:"d1_30"`
	D31To60 decimal.Decimal `json:"d31_60"`
	D61To90 decimal.Decimal `json:"d61_90"`
	Over90  decimal.Decimal `json:"over90"`
	Total   decimal.Decimal `json:"total"`
}

// Add accumulates amount into bucket and into Total
func (b *BucketTotals) Add(bucket AgingBucket, amount decimal.Decimal) {
	switch bucket {
	case BucketCurrent:
		b.Current = b.Current.Add(amount)
	case Bucket1To30:
		b.D1To30 = b.D1To30.Add(amount)
	case Bucket31To60:
		b.D31To60 = b.D31To60.Add(amount)
	case Bucket61To90:
		b.D61To90 = b.D61To90.Add(amount)
	case BucketOver90:
		b.Over90 = b.Over90.Add(amount)
	default:
		return
	}
	b.Total = b.Total.Add(amount)
}

// Merge adds every bucket of other into b
func (b *BucketTotals) Merge(other BucketTotals) {
	for _, bucket := range Buckets() {
		b.Add(bucket, other.Get(bucket))
	}
}

// Get returns the amount held in bucket
func (b BucketTotals) Get(bucket AgingBucket) decimal.Decimal {
	switch bucket {
	case BucketCurrent:
		return b.Current
	case Bucket1To30:
		return b.D1To30
	case Bucket31To60:
		return b.D31To60
	case Bucket61To90:
		return b.D61To90
	case BucketOver90:
		return b.Over90
	default:
		return decimal.Zero
	}
}

// BucketSum recomputes the sum of the five buckets
func (b BucketTotals) BucketSum() decimal.Decimal {
	return b.Current.Add(b.D1To30).Add(b.D31To60).Add(b.D61To90).Add(b.Over90)
}

// CounterpartyAgingSummary aggregates the open balance of one counterparty
type CounterpartyAgingSummary struct {
	CounterpartyID   string `json:"counterparty_id"`
	CounterpartyName string `json:"counterparty_name"`
	BucketTotals
	ItemCount int `json:"item_count"`
}

// SkippedItem describes an item left out of the report
type SkippedItem struct {
	ID             string `json:"id"`
	CounterpartyID string `json:"counterparty_id"`
	Reason         string `json:"reason"`
}

// AgingReport is the result of an aging computation
type AgingReport struct {
	ReferenceDate   time.Time                  `json:"reference_date"`
	PerCounterparty []CounterpartyAgingSummary `json:"per_counterparty"`
	GrandTotal      BucketTotals               `json:"grand_total"`
	Skipped         []SkippedItem              `json:"skipped"`
}

// AgingOption configures an aging computation
type AgingOption func(*agingOptions)

type agingOptions struct {
	strict bool
}

// WithStrict makes any unusable item fail the computation with ErrInvalidOpenItem
// instead of being reported in Skipped.
func WithStrict() AgingOption {
	return func(o *agingOptions) { o.strict = true }
}

// WithStrictMode is WithStrict driven by a flag
func WithStrictMode(strict bool) AgingOption {
	return func(o *agingOptions) { o.strict = strict }
}

func buildOptions(opts []AgingOption) agingOptions {
	var o agingOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ComputeAging buckets the outstanding balance of items as of referenceDate and
// aggregates it per counterparty, in first-seen order. Settled items (balance
// <= 0) are ignored. Items with neither due nor issue date are skipped.
func ComputeAging(items []OpenItem, referenceDate time.Time, opts ...AgingOption) (AgingReport, error) {
	o := buildOptions(opts)

	acc := newAccumulator()
	if err := acc.addAll(items, referenceDate, o); err != nil {
		return AgingReport{}, err
	}
	return acc.report(referenceDate), nil
}

// ComputeAgingParallel is ComputeAging over disjoint contiguous slices of items
// processed by up to workers goroutines. The result equals ComputeAging.
func ComputeAgingParallel(ctx context.Context, items []OpenItem, referenceDate time.Time, workers int, opts ...AgingOption) (AgingReport, error) {
	if workers <= 1 || len(items) < 2 {
		return ComputeAging(items, referenceDate, opts...)
	}
	if workers > len(items) {
		workers = len(items)
	}
	o := buildOptions(opts)

	chunk := (len(items) + workers - 1) / workers
	parts := make([]*accumulator, 0, workers)
	for start := 0; start < len(items); start += chunk {
		parts = append(parts, newAccumulator())
	}
	errs := make([]error, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	for i := range parts {
		start := i * chunk
		end := min(start+chunk, len(items))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			errs[i] = parts[i].addAll(items[start:end], referenceDate, o)
			return errs[i]
		})
	}
	waitErr := g.Wait()
	for _, err := range errs {
		if err != nil {
			return AgingReport{}, err
		}
	}
	if waitErr != nil {
		return AgingReport{}, waitErr
	}

	merged := newAccumulator()
	for _, part := range parts {
		merged.merge(part)
	}
	return merged.report(referenceDate), nil
}

// ComputeAgingFromRecords parses raw records and ages them. Records with
// unparsable amounts are skipped; unparsable dates count as missing.
func ComputeAgingFromRecords(records []OpenItemRecord, referenceDate time.Time, opts ...AgingOption) (AgingReport, error) {
	o := buildOptions(opts)

	acc := newAccumulator()
	for _, rec := range records {
		item, err := rec.ToOpenItem()
		if err != nil {
			if skipErr := acc.skip(rec.ID, rec.CounterpartyID, SkipReasonInvalidAmount, o); skipErr != nil {
				return AgingReport{}, skipErr
			}
			continue
		}
		if err := acc.add(item, referenceDate, o); err != nil {
			return AgingReport{}, err
		}
	}
	return acc.report(referenceDate), nil
}

type accumulator struct {
	order     []string
	summaries map[string]*CounterpartyAgingSummary
	skipped   []SkippedItem
}

func newAccumulator() *accumulator {
	return &accumulator{summaries: make(map[string]*CounterpartyAgingSummary)}
}

func (a *accumulator) addAll(items []OpenItem, ref time.Time, o agingOptions) error {
	for _, item := range items {
		if err := a.add(item, ref, o); err != nil {
			return err
		}
	}
	return nil
}

func (a *accumulator) add(item OpenItem, ref time.Time, o agingOptions) error {
	balance := item.Balance()
	if !balance.IsPositive() {
		return nil
	}
	days, ok := DaysOverdue(item, ref)
	if !ok {
		return a.skip(item.ID, item.CounterpartyID, SkipReasonNoUsableDate, o)
	}

	summary := a.summary(item.CounterpartyID, item.CounterpartyName)
	summary.Add(BucketForDays(days), balance)
	summary.ItemCount++
	return nil
}

func (a *accumulator) skip(id, counterpartyID, reason string, o agingOptions) error {
	if o.strict {
		return fmt.Errorf("%w: item %q: %s", ErrInvalidOpenItem, id, reason)
	}
	a.skipped = append(a.skipped, SkippedItem{ID: id, CounterpartyID: counterpartyID, Reason: reason})
	return nil
}

func (a *accumulator) summary(id, name string) *CounterpartyAgingSummary {
	if s, ok := a.summaries[id]; ok {
		return s
	}
	s := &CounterpartyAgingSummary{CounterpartyID: id, CounterpartyName: name}
	a.summaries[id] = s
	a.order = append(a.order, id)
	return s
}

func (a *accumulator) merge(other *accumulator) {
	for _, id := range other.order {
		src := other.summaries[id]
		dst := a.summary(id, src.CounterpartyName)
		dst.Merge(src.BucketTotals)
		dst.ItemCount += src.ItemCount
	}
	a.skipped = append(a.skipped, other.skipped...)
}

func (a *accumulator) report(ref time.Time) AgingReport {
	out := AgingReport{
		ReferenceDate:   ref,
		PerCounterparty: make([]CounterpartyAgingSummary, 0, len(a.order)),
		Skipped:         a.skipped,
	}
	if out.Skipped == nil {
		out.Skipped = []SkippedItem{}
	}
	for _, id := range a.order {
		s := a.summaries[id]
		out.PerCounterparty = append(out.PerCounterparty, *s)
		out.GrandTotal.Merge(s.BucketTotals)
	}
	return out
}

// Accepted date layouts for OpenItemRecord
var recordDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// OpenItemRecord is an open item as fetched from an external store, before parsing
type OpenItemRecord struct {
	ID                  string `json:"id"`
	CounterpartyID      string `json:"counterparty_id"`
	CounterpartyName    string `json:"counterparty_name"`
	OriginalAmount      string `json:"original_amount"`
	PaidOrAppliedAmount string `json:"paid_or_applied_amount"`
	DueDate             string `json:"due_date"`
	IssueDate           string `json:"issue_date"`
}

// ToOpenItem parses the record. Amounts must be numeric (an empty paid amount
// counts as zero). Dates that do not parse are left nil.
func (r OpenItemRecord) ToOpenItem() (OpenItem, error) {
	original, err := decimal.NewFromString(strings.TrimSpace(r.OriginalAmount))
	if err != nil {
		return OpenItem{}, fmt.Errorf("original amount %q: %w", r.OriginalAmount, err)
	}
	paid := decimal.Zero
	if s := strings.TrimSpace(r.PaidOrAppliedAmount); s != "" {
		paid, err = decimal.NewFromString(s)
		if err != nil {
			return OpenItem{}, fmt.Errorf("paid amount %q: %w", r.PaidOrAppliedAmount, err)
		}
	}
	return OpenItem{
		ID:                  r.ID,
		CounterpartyID:      r.CounterpartyID,
		CounterpartyName:    r.CounterpartyName,
		OriginalAmount:      original,
		PaidOrAppliedAmount: paid,
		DueDate:             ParseRecordDate(r.DueDate),
		IssueDate:           ParseRecordDate(r.IssueDate),
	}, nil
}

// ParseRecordDate parses s with the accepted layouts, returning nil when none match
func ParseRecordDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range recordDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
