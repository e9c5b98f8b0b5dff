// Package orchestrator implements the AI Orchestrator: the retry,
// fallback, cache and validate loop that ties the Prompt Manager, Cost
// Tracker, Output Validator and LLM clients together for a single prompt
// invocation (spec §4.4).
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/waynewangyuxuan/graphex-aicore/internal/cost"
	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
	"github.com/waynewangyuxuan/graphex-aicore/internal/emit"
	"github.com/waynewangyuxuan/graphex-aicore/internal/llm"
	"github.com/waynewangyuxuan/graphex-aicore/internal/metrics"
	"github.com/waynewangyuxuan/graphex-aicore/internal/prompt"
	"github.com/waynewangyuxuan/graphex-aicore/internal/store"
	"github.com/waynewangyuxuan/graphex-aicore/internal/validate"
)

// Orchestrator composes the Prompt Manager, Cost Tracker, Output Validator
// and a set of per-model LLM clients into the execute() loop.
type Orchestrator struct {
	prompts   *prompt.Manager
	costs     *cost.Tracker
	models    map[domain.Model]llm.ChatModel
	cache     store.KVStore
	metrics   *metrics.Metrics
	emitter   emit.Emitter
	now       func() time.Time
	maxTokens int
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithEmitter attaches an observability sink that receives an Event on a
// cache hit, on each retry decision after a provider error, on a budget
// denial, on success and on validation exhaustion. Defaults
// to emit.NullEmitter, so callers that don't care about events never pay for
// a nil check.
func WithEmitter(e emit.Emitter) Option {
	return func(o *Orchestrator) { o.emitter = e }
}

// WithClock overrides time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithMaxTokens overrides the per-call max_tokens sent to the LLM (default 4096).
func WithMaxTokens(n int) Option {
	return func(o *Orchestrator) { o.maxTokens = n }
}

// New constructs an Orchestrator. models maps each domain.Model the
// deployment supports to the ChatModel that serves it; the recommended
// model and its fallbacks must all be registered or execute() surfaces
// MODEL_UNAVAILABLE.
func New(prompts *prompt.Manager, costs *cost.Tracker, models map[domain.Model]llm.ChatModel, resultCache store.KVStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		prompts:   prompts,
		costs:     costs,
		models:    models,
		cache:     resultCache,
		emitter:   emit.NullEmitter{},
		now:       time.Now,
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// providerFor derives the provider label used on LLMCallLatencyMs from a
// model id, since the metric is keyed on provider rather than model family.
func providerFor(model domain.Model) string {
	switch model {
	case domain.ModelClaudeHaiku, domain.ModelClaudeSonnet4:
		return "anthropic"
	case domain.ModelGPT4Turbo, domain.ModelGPT4Vision:
		return "openai"
	default:
		return "unknown"
	}
}

func budgetMessage(res cost.BudgetCheckResult) string {
	switch res.Reason {
	case "daily-limit-exceeded":
		return fmt.Sprintf("Daily limit of $%.2f reached, resets %s", res.CurrentUsage.Today+res.EstimatedCost, res.ResetAt.Format(time.RFC3339))
	case "monthly-limit-exceeded":
		return fmt.Sprintf("Monthly limit of $%.2f reached, resets %s", res.CurrentUsage.ThisMonth+res.EstimatedCost, res.ResetAt.Format(time.RFC3339))
	default:
		return "Per-document budget exceeded"
	}
}

// Execute implements the pipeline in spec §4.4: budget check, cache
// lookup, prompt build, model selection, LLM call, parse+validate, and
// (on success) cache write. On success the Response's Metadata reflects
// the real outcome; on failure Execute returns a zero Response and the
// error. Usage and the prompt outcome are recorded on every return after
// the prompt is built, success or failure.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	cfg := req.Config.withDefaults()
	startedAt := o.now()
	runID := uuid.NewString()

	rec, err := o.prompts.GetRecommendedModel(req.PromptType, req.Context)
	if err != nil {
		return Response{}, err
	}
	model := rec.Model
	if cfg.PreferredModel != "" {
		model = cfg.PreferredModel
	}
	fallbacks := append([]domain.Model(nil), rec.Fallbacks...)

	budget, err := o.costs.CheckBudget(ctx, cost.BudgetCheckRequest{
		UserID: req.UserID, Operation: req.PromptType, DocumentID: req.DocumentID, EstimatedCost: rec.EstimatedCost,
	})
	if err != nil {
		return Response{}, err
	}
	if !budget.Allowed {
		o.emitter.Emit(emit.Event{RunID: runID, NodeID: string(req.PromptType), Msg: "budget denied", Meta: map[string]any{"reason": budget.Reason}})
		return Response{}, domain.ErrBudgetExceeded.WithMessage(budgetMessage(budget))
	}

	key := cacheKey(req.PromptType, req.Context, model, cfg.PromptVersion)
	if cached, ok := o.readCache(ctx, key); ok {
		if o.metrics != nil {
			o.metrics.CacheResult.WithLabelValues("hit").Inc()
		}
		o.emitter.Emit(emit.Event{RunID: runID, NodeID: string(req.PromptType), Msg: "cache hit"})
		return Response{
			Data:    cached.Data,
			Model:   cached.Model,
			Quality: int(cached.QualityScore),
			Metadata: ResponseMetadata{
				Attempts: 1, Cost: 0, Cached: true, ValidationPassed: true,
				ProcessingTime: o.now().Sub(startedAt), PromptVersion: cfg.PromptVersion,
				Model: cached.Model, Timestamp: o.now(),
			},
		}, nil
	}
	if o.metrics != nil {
		o.metrics.CacheResult.WithLabelValues("miss").Inc()
	}

	built, err := o.prompts.Build(req.PromptType, req.Context, cfg.PromptVersion)
	if err != nil {
		return Response{}, err
	}

	var (
		feedback    []string
		attemptLog  []AttemptFeedback
		lastUsage   llm.Usage
		lastCost    float64
		lastScore   int
		success     bool
		finalData   any
		currentModel = model
		fallbackIdx int
		attempts    int
	)

	defer func() {
		usage := domain.UsageRecord{
			ID:          uuid.NewString(),
			UserID:      req.UserID,
			Operation:   req.PromptType,
			Model:       currentModel,
			InputTokens: lastUsage.InputTokens,
			OutputTokens: lastUsage.OutputTokens,
			Cost:        lastCost,
			Attempts:    attempts,
			Success:     success,
			DocumentID:  req.DocumentID,
			Timestamp:   o.now(),
		}
		if attempts > 0 {
			q := float64(lastScore)
			usage.QualityScore = &q
		}
		_ = o.costs.RecordUsage(ctx, usage)
		o.prompts.RecordOutcome(ctx, req.PromptType, cfg.PromptVersion, domain.Outcome{
			Success: success, QualityScore: float64(lastScore), Cost: lastCost, Attempts: attempts,
		})
	}()

	for attempts = 1; attempts <= cfg.MaxRetries; attempts++ {
		userPrompt := built.UserPrompt
		if len(feedback) > 0 {
			userPrompt = built.UserPrompt + "\n\nPrevious attempt had issues:\n" + strings.Join(feedback, "\n")
		}

		chatModel, ok := o.models[currentModel]
		if !ok {
			return Response{}, domain.ErrModelUnavailable.WithMessage(fmt.Sprintf("no client registered for model %q", currentModel))
		}

		callStart := o.now()
		callCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
		resp, callErr := chatModel.Chat(callCtx, llm.ChatRequest{
			Model: currentModel, System: built.SystemPrompt, User: userPrompt, MaxTokens: o.maxTokens,
		})
		cancel()
		if o.metrics != nil {
			o.metrics.LLMCallLatencyMs.WithLabelValues(string(currentModel), providerFor(currentModel)).Observe(float64(o.now().Sub(callStart).Milliseconds()))
		}

		if callErr != nil {
			domErr := classifyCallError(callErr)
			action, delay, nextModel := decideRetry(domErr, attempts, currentModel, fallbacks, &fallbackIdx)
			if o.metrics != nil {
				o.metrics.OrchestratorAttempts.WithLabelValues(string(req.PromptType), string(currentModel), "error").Inc()
			}
			if action == actionAbort || attempts >= cfg.MaxRetries {
				o.emitter.Emit(emit.Event{RunID: runID, NodeID: string(req.PromptType), Msg: "retry aborted", Meta: map[string]any{"code": string(domErr.Code), "attempt": attempts}})
				return Response{}, domErr
			}
			o.emitter.Emit(emit.Event{RunID: runID, NodeID: string(req.PromptType), Msg: "retrying", Meta: map[string]any{"code": string(domErr.Code), "attempt": attempts, "next_model": string(nextModel)}})
			currentModel = nextModel
			if err := sleepOrCancel(ctx, delay); err != nil {
				return Response{}, err
			}
			continue
		}

		lastUsage = resp.Usage
		attemptCost, costErr := o.costs.CalculateCost(cost.Tokens{Input: resp.Usage.InputTokens, Output: resp.Usage.OutputTokens}, currentModel)
		if costErr != nil {
			return Response{}, costErr
		}
		lastCost = attemptCost

		data, ok := extractData(resp.Content, req.PromptType)
		if !ok {
			if o.metrics != nil {
				o.metrics.OrchestratorAttempts.WithLabelValues(string(req.PromptType), string(currentModel), "parse_error").Inc()
			}
			feedback = []string{"Return strict JSON only, with no surrounding prose."}
			lastScore = 0
			attemptLog = append(attemptLog, AttemptFeedback{Attempt: attempts, Model: currentModel, Score: 0, Issues: feedback})
			continue // parse error: same model, no backoff
		}

		valResult, _ := validate.Validate(resp.Content, req.PromptType, validate.Options{Threshold: cfg.QualityThreshold})
		lastScore = valResult.Score

		if valResult.Passed {
			success = true
			finalData = data
			o.writeCache(ctx, key, domain.CachedResult{Data: data, CachedAt: o.now(), QualityScore: float64(valResult.Score), Model: currentModel}, cfg.cacheTTL())
			if o.metrics != nil {
				o.metrics.OrchestratorAttempts.WithLabelValues(string(req.PromptType), string(currentModel), "success").Inc()
			}
			o.emitter.Emit(emit.Event{RunID: runID, NodeID: string(req.PromptType), Msg: "completed", Meta: map[string]any{"attempts": attempts, "quality": valResult.Score}})

			return Response{
				Data: finalData, Model: currentModel, Quality: valResult.Score,
				Metadata: ResponseMetadata{
					Attempts: attempts, TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
					Cost: lastCost, Cached: false, ProcessingTime: o.now().Sub(startedAt),
					ValidationPassed: true, PromptVersion: cfg.PromptVersion, Model: currentModel, Timestamp: o.now(),
				},
			}, nil
		}

		if o.metrics != nil {
			o.metrics.OrchestratorAttempts.WithLabelValues(string(req.PromptType), string(currentModel), "validation_failed").Inc()
		}
		fixes := validate.FixStrings(valResult.Issues)
		attemptLog = append(attemptLog, AttemptFeedback{Attempt: attempts, Model: currentModel, Score: valResult.Score, Issues: fixes})
		feedback = fixes

		switch {
		case attempts == 2 && currentModel == domain.ModelClaudeHaiku:
			currentModel = domain.ModelClaudeSonnet4 // quality escalation
		default:
			// attempt < 2, or any model other than haiku: keep current model
		}
	}

	o.emitter.Emit(emit.Event{RunID: runID, NodeID: string(req.PromptType), Msg: "validation exhausted", Meta: map[string]any{"attempts": len(attemptLog)}})
	return Response{}, domain.ErrAIValidationFailed.WithCause(&ValidationExhaustedError{Attempts: attemptLog})
}

type retryAction int

const (
	actionRetry retryAction = iota
	actionAbort
)

// decideRetry implements the provider-error rows of the retry decision
// table: rate-limit and timeout retry the same model with backoff; a
// retryable model-unavailable error advances to the next fallback; every
// other provider error aborts.
func decideRetry(domErr *domain.Error, attempt int, currentModel domain.Model, fallbacks []domain.Model, fallbackIdx *int) (retryAction, time.Duration, domain.Model) {
	switch domErr.Code {
	case domain.CodeRateLimitExceeded, domain.CodeAITimeout:
		return actionRetry, backoffDelay(attempt, domErr.RetryHint), currentModel
	case domain.CodeModelUnavailable:
		if !domErr.Retryable {
			return actionAbort, 0, currentModel
		}
		if *fallbackIdx >= len(fallbacks) {
			return actionAbort, 0, currentModel
		}
		next := fallbacks[*fallbackIdx]
		*fallbackIdx++
		return actionRetry, backoffDelay(attempt, 0), next
	default:
		return actionAbort, 0, currentModel
	}
}

func classifyCallError(err error) *domain.Error {
	var provErr *llm.ProviderError
	if errors.As(err, &provErr) {
		return provErr.ToDomainError()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrAITimeout.WithMessage("LLM call exceeded the configured timeout").WithCause(err)
	}
	return domain.ErrModelUnavailable.WithCause(err)
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readCache looks up a cached result. Read failures are swallowed
// (CACHE_ERROR, §7): a cache miss never fails the call.
func (o *Orchestrator) readCache(ctx context.Context, key string) (domain.CachedResult, bool) {
	raw, ok, err := o.cache.Get(ctx, key)
	if err != nil || !ok {
		return domain.CachedResult{}, false
	}
	var cached domain.CachedResult
	if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr != nil {
		return domain.CachedResult{}, false
	}
	return cached, true
}

// writeCache stores a successful, validated result. Write failures are
// swallowed: cache misses are acceptable, per §7.
func (o *Orchestrator) writeCache(ctx context.Context, key string, result domain.CachedResult, ttl time.Duration) {
	b, err := json.Marshal(result)
	if err != nil {
		return
	}
	_, _ = o.cache.SetIfAbsent(ctx, key, string(b), ttl)
}
