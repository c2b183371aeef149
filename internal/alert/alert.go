// Package alert decides whether a price snapshot crosses the configured
// thresholds.
package alert

import "goldwatch/internal/models"

// Kind identifies which threshold fired.
type Kind string

const (
	KindHigh Kind = "high"
	KindLow  Kind = "low"
)

// Decision is the outcome of one threshold evaluation.
type Decision struct {
	Fire   bool
	Kind   Kind
	Target float64
}

// Evaluate compares a price against the configured thresholds. The high
// check takes priority: when a pathological config satisfies both sides at
// once, only the high alert fires. Unset thresholds never fire, and a
// disabled config never fires.
//
// There is deliberately no cooldown here; a condition that keeps holding
// re-fires on every evaluation.
func Evaluate(price float64, cfg *models.AlertConfig) Decision {
	if cfg == nil || !cfg.Enabled {
		return Decision{}
	}

	if cfg.HighPrice != nil && price >= *cfg.HighPrice {
		return Decision{Fire: true, Kind: KindHigh, Target: *cfg.HighPrice}
	}
	if cfg.LowPrice != nil && price <= *cfg.LowPrice {
		return Decision{Fire: true, Kind: KindLow, Target: *cfg.LowPrice}
	}
	return Decision{}
}
