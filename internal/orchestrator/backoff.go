package orchestrator

import "time"

const maxBackoff = 8 * time.Second

// backoffDelay implements the retry table's exponential schedule
// min(1s·2^(n-1), 8s), honoring a provider-suggested hint when it supplies
// one. n is the attempt number that just failed.
func backoffDelay(attempt int, providerHint time.Duration) time.Duration {
	if providerHint > 0 {
		return providerHint
	}
	d := time.Second
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
