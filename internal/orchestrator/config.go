package orchestrator

import (
	"time"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

// Config is the per-call tuning surface described in §8's recognized
// options. Zero values are replaced with their documented defaults by
// withDefaults.
type Config struct {
	MaxRetries       int
	QualityThreshold int
	TimeoutMs        int
	PromptVersion    domain.PromptVersion
	PreferredModel   domain.Model
	CacheTTLSec      int
}

func (c Config) withDefaults() Config {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.QualityThreshold == 0 {
		c.QualityThreshold = 60
	}
	if c.TimeoutMs == 0 {
		c.TimeoutMs = 30_000
	}
	if c.PromptVersion == "" {
		c.PromptVersion = domain.VersionProduction
	}
	if c.CacheTTLSec == 0 {
		c.CacheTTLSec = 3600
	}
	return c
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c Config) cacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}
