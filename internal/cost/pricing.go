package cost

import "github.com/waynewangyuxuan/graphex-aicore/internal/domain"

// Rate is USD per million tokens for a model, split by direction.
type Rate struct {
	InputPer1M  float64
	OutputPer1M float64
}

// defaultRates is the pricing table from spec §4.2/§6. Keyed by the
// spec's canonical short model names, not a provider's dated SDK model
// string — internal/llm owns that mapping.
var defaultRates = map[domain.Model]Rate{
	domain.ModelClaudeHaiku:   {InputPer1M: 0.25, OutputPer1M: 1.25},
	domain.ModelClaudeSonnet4: {InputPer1M: 3, OutputPer1M: 15},
	domain.ModelGPT4Turbo:     {InputPer1M: 10, OutputPer1M: 30},
	domain.ModelGPT4Vision:    {InputPer1M: 10, OutputPer1M: 30},
}

// estimateFloorUSD is the conservative per-operation cost floor used when
// context.documentText is absent at budget-check time (§9 open question).
var estimateFloorUSD = map[domain.Model]float64{
	domain.ModelClaudeHaiku:   0.02,
	domain.ModelClaudeSonnet4: 0.10,
}
