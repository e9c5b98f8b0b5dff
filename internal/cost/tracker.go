// Package cost implements the pre-flight budget check and post-flight
// usage recording described in spec §4.2: a fast counter cache backed by a
// durable, append-only ledger that is the source of truth.
package cost

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
	"github.com/waynewangyuxuan/graphex-aicore/internal/metrics"
	"github.com/waynewangyuxuan/graphex-aicore/internal/store"
)

const counterTTL = time.Hour

// Tokens is the input/output token pair calculateCost charges for.
type Tokens struct {
	Input  int
	Output int
}

// BudgetCheckRequest is the pre-flight request shape.
type BudgetCheckRequest struct {
	UserID        string
	Operation     domain.PromptType
	DocumentID    string
	EstimatedCost float64 // if zero, derived from Operation's floor estimate
}

// CurrentUsage reports the caller's spend in each tracked window.
type CurrentUsage struct {
	Today     float64
	ThisMonth float64
}

// BudgetCheckResult is checkBudget's response.
type BudgetCheckResult struct {
	Allowed       bool
	Reason        string // "document-limit-exceeded" | "daily-limit-exceeded" | "monthly-limit-exceeded"
	EstimatedCost float64
	CurrentUsage  CurrentUsage
	ResetAt       *time.Time
}

// UserSummary answers getUserSummary.
type UserSummary struct {
	TotalCost             float64
	OperationCount        int
	AverageCostPerOperation float64
}

// CostBreakdownEntry answers one row of getCostBreakdown.
type CostBreakdownEntry struct {
	Operation  domain.PromptType
	TotalCost  float64
	Percentage float64
}

// Window selects the aggregation horizon for read-only summaries.
type Window string

const (
	WindowDay   Window = "day"
	WindowMonth Window = "month"
)

// Tracker is the Cost Tracker subsystem.
type Tracker struct {
	cache   store.KVStore
	ledger  store.Ledger
	limits  domain.BudgetLimits
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Tracker at construction time.
type Option func(*Tracker)

// WithLimits overrides the default {$5,$10,$50} budget limits.
func WithLimits(limits domain.BudgetLimits) Option {
	return func(t *Tracker) { t.limits = limits }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithClock overrides time.Now, for deterministic tests of day/month
// boundary behavior.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New constructs a Tracker over the given counter cache and durable ledger.
func New(cache store.KVStore, ledger store.Ledger, opts ...Option) *Tracker {
	t := &Tracker{
		cache:  cache,
		ledger: ledger,
		limits: domain.DefaultBudgetLimits(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func dayKey(userID string, t time.Time) string {
	return fmt.Sprintf("usage:%s:%s", userID, t.UTC().Format("2006-01-02"))
}

func monthKey(userID string, t time.Time) string {
	return fmt.Sprintf("usage:%s:%s", userID, t.UTC().Format("2006-01"))
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonthUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// readCounter reads a counter, reconstructing it from the ledger on a cache
// miss and repopulating the cache with the configured TTL (§4.2).
func (t *Tracker) readCounter(ctx context.Context, key, userID string, windowStart time.Time) (float64, error) {
	raw, ok, err := t.cache.Get(ctx, key)
	if err != nil {
		return 0, domain.ErrCostTrackingError.WithCause(err)
	}
	if ok {
		v, perr := parseFloat(raw)
		if perr == nil {
			return v, nil
		}
	}
	sum, err := t.ledger.SumCostSince(ctx, userID, windowStart)
	if err != nil {
		return 0, domain.ErrCostTrackingError.WithCause(err)
	}
	if err := t.cache.Set(ctx, key, formatFloat(sum), counterTTL); err != nil {
		// Reconstruction succeeded; failing to repopulate the cache is not
		// fatal, the next read just reconstructs again.
		return sum, nil
	}
	return sum, nil
}

// EstimateCost returns the fixed per-call floor estimate for model, used
// when the caller has no token estimate yet (§9, documentText absent case).
// Models without a floor entry get claude-haiku's floor.
func EstimateCost(model domain.Model) float64 {
	if v, ok := estimateFloorUSD[model]; ok {
		return v
	}
	return estimateFloorUSD[domain.ModelClaudeHaiku]
}

// CalculateCost computes USD cost for tokens at model's per-million rates.
// Unknown model raises COST_CALCULATION_ERROR — the tracker never silently
// treats an unpriced model as free.
func (t *Tracker) CalculateCost(tokens Tokens, model domain.Model) (float64, error) {
	return Calculate(tokens, model)
}

// Calculate is the pure pricing function behind CalculateCost, exposed at
// package level so other subsystems (Prompt Manager's cost estimates) can
// price a token count without needing a Tracker instance.
func Calculate(tokens Tokens, model domain.Model) (float64, error) {
	rate, ok := defaultRates[model]
	if !ok {
		return 0, domain.ErrCostCalculationErr.WithMessage(fmt.Sprintf("unknown model %q", model))
	}
	cost := float64(tokens.Input)/1_000_000*rate.InputPer1M + float64(tokens.Output)/1_000_000*rate.OutputPer1M
	return cost, nil
}

// CheckBudget implements checkBudget: deny if the estimate would push the
// per-document, daily, or monthly ceiling over its limit. Infrastructure
// failures fail closed (COST_TRACKING_ERROR), never allowed=true.
func (t *Tracker) CheckBudget(ctx context.Context, req BudgetCheckRequest) (BudgetCheckResult, error) {
	now := t.now()
	estimate := req.EstimatedCost
	if estimate == 0 {
		estimate = EstimateCost(recommendedModelFor(req.Operation))
	}

	today, err := t.readCounter(ctx, dayKey(req.UserID, now), req.UserID, startOfDayUTC(now))
	if err != nil {
		return BudgetCheckResult{}, err
	}
	thisMonth, err := t.readCounter(ctx, monthKey(req.UserID, now), req.UserID, startOfMonthUTC(now))
	if err != nil {
		return BudgetCheckResult{}, err
	}

	usage := CurrentUsage{Today: today, ThisMonth: thisMonth}
	result := BudgetCheckResult{EstimatedCost: estimate, CurrentUsage: usage, Allowed: true}

	switch {
	case estimate > t.limits.PerDocument:
		result.Allowed = false
		result.Reason = "document-limit-exceeded"
	case today+estimate > t.limits.PerUserPerDay:
		result.Allowed = false
		result.Reason = "daily-limit-exceeded"
		reset := startOfDayUTC(now).Add(24 * time.Hour)
		result.ResetAt = &reset
	case thisMonth+estimate > t.limits.PerUserPerMonth:
		result.Allowed = false
		result.Reason = "monthly-limit-exceeded"
		reset := startOfMonthUTC(now).AddDate(0, 1, 0)
		result.ResetAt = &reset
	}

	if t.metrics != nil && !result.Allowed {
		t.metrics.BudgetDenied.WithLabelValues(result.Reason).Inc()
	}
	return result, nil
}

// RecordUsage appends the ledger row (authoritative) then best-effort
// increments the day/month counters. Ledger failure is surfaced; counter
// failure is swallowed since the ledger remains correct and the counter
// self-heals on next read via readCounter's reconstruction path.
func (t *Tracker) RecordUsage(ctx context.Context, rec domain.UsageRecord) error {
	if err := t.ledger.Append(ctx, rec); err != nil {
		return domain.ErrCostTrackingError.WithCause(err)
	}

	now := t.now()
	if rec.UserID != "" {
		_, _ = t.cache.IncrByFloat(ctx, dayKey(rec.UserID, now), rec.Cost, counterTTL)
		_, _ = t.cache.IncrByFloat(ctx, monthKey(rec.UserID, now), rec.Cost, counterTTL)
	}
	if t.metrics != nil {
		t.metrics.CostRecordedUSD.WithLabelValues(string(rec.Model)).Add(rec.Cost)
	}
	return nil
}

// GetUserSummary aggregates ledger rows for userID over window.
func (t *Tracker) GetUserSummary(ctx context.Context, userID string, window Window) (UserSummary, error) {
	since := t.windowStart(window)
	records, err := t.ledger.RecordsSince(ctx, userID, since)
	if err != nil {
		return UserSummary{}, domain.ErrCostTrackingError.WithCause(err)
	}
	var total float64
	for _, r := range records {
		total += r.Cost
	}
	summary := UserSummary{TotalCost: total, OperationCount: len(records)}
	if len(records) > 0 {
		summary.AverageCostPerOperation = total / float64(len(records))
	}
	return summary, nil
}

// GetCostBreakdown aggregates ledger rows for userID over window, grouped
// by operation and sorted by descending cost.
func (t *Tracker) GetCostBreakdown(ctx context.Context, userID string, window Window) ([]CostBreakdownEntry, error) {
	since := t.windowStart(window)
	records, err := t.ledger.RecordsSince(ctx, userID, since)
	if err != nil {
		return nil, domain.ErrCostTrackingError.WithCause(err)
	}
	totals := make(map[domain.PromptType]float64)
	var grandTotal float64
	for _, r := range records {
		totals[r.Operation] += r.Cost
		grandTotal += r.Cost
	}
	entries := make([]CostBreakdownEntry, 0, len(totals))
	for op, total := range totals {
		pct := 0.0
		if grandTotal > 0 {
			pct = total / grandTotal * 100
		}
		entries = append(entries, CostBreakdownEntry{Operation: op, TotalCost: total, Percentage: pct})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].TotalCost > entries[j].TotalCost })
	return entries, nil
}

func (t *Tracker) windowStart(window Window) time.Time {
	now := t.now()
	if window == WindowMonth {
		return startOfMonthUTC(now)
	}
	return startOfDayUTC(now)
}

// recommendedModelFor gives CheckBudget a model to floor-estimate against
// when the caller supplies no estimate; mirrors the Prompt Manager's
// default selection for the cheap path without importing that package
// (avoiding a cost<->prompt import cycle, since getRecommendedModel's cost
// estimate itself calls CalculateCost).
func recommendedModelFor(op domain.PromptType) domain.Model {
	if op == domain.PromptImageDescription {
		return domain.ModelClaudeSonnet4
	}
	return domain.ModelClaudeHaiku
}

func parseFloat(s string) (float64, error) {
	var v float64
	_, err := fmt.Sscanf(s, "%g", &v)
	return v, err
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", math.Round(v*1e9)/1e9)
}
