package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
	"github.com/waynewangyuxuan/graphex-aicore/internal/store"
)

const statsTTL = 30 * 24 * time.Hour

func statsKey(typ domain.PromptType, version domain.PromptVersion) string {
	return fmt.Sprintf("prompt:stats:%s:%s", typ, version)
}

// loadStats returns the zeroed record for unseen (type, version) keys, per
// getStats's contract.
func loadStats(ctx context.Context, cache store.KVStore, typ domain.PromptType, version domain.PromptVersion) (domain.PromptStats, error) {
	raw, ok, err := cache.Get(ctx, statsKey(typ, version))
	if err != nil {
		return domain.PromptStats{}, err
	}
	if !ok {
		return domain.PromptStats{}, nil
	}
	var s domain.PromptStats
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return domain.PromptStats{}, nil
	}
	return s, nil
}

// saveStats writes with best-effort last-writer-wins: the counter cache
// has no generic CAS primitive, so concurrent updaters may race and drop
// one update. Spec §5 tolerates this loss for statistics.
func saveStats(ctx context.Context, cache store.KVStore, typ domain.PromptType, version domain.PromptVersion, s domain.PromptStats) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return cache.Set(ctx, statsKey(typ, version), string(b), statsTTL)
}

// foldOutcome applies one Outcome onto the running PromptStats using
// incremental-average formulae: each average is recomputed as
// (avg*n + newValue) / (n+1) before n is incremented.
func foldOutcome(s domain.PromptStats, o domain.Outcome, now time.Time) domain.PromptStats {
	n := float64(s.TotalUses)
	successes := s.SuccessRatePct / 100 * n
	if o.Success {
		successes++
	}
	s.TotalUses++
	s.SuccessRatePct = successes / float64(s.TotalUses) * 100
	s.AvgQualityScore = (s.AvgQualityScore*n + o.QualityScore) / float64(s.TotalUses)
	s.AvgCost = (s.AvgCost*n + o.Cost) / float64(s.TotalUses)
	s.AvgRetries = (s.AvgRetries*n + float64(o.Attempts)) / float64(s.TotalUses)
	s.LastUpdated = now
	return s
}
