// Package validate holds the admission rules every observation must pass
// before it reaches a sink or the alert engine. Checks are pure; callers
// decide how to report a rejection.
package validate

import (
	"fmt"
	"math"
	"regexp"

	"price-tracker/internal/model"
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.-]+$`)

// Rules bound the acceptable shape of an observation. The zero value rejects
// everything; construct with NewRules or fill every field.
type Rules struct {
	MaxSymbolLength int
	MaxPrice        float64
	MaxChangePct    float64
}

// NewRules returns the default admission bounds.
func NewRules() Rules {
	return Rules{
		MaxSymbolLength: 50,
		MaxPrice:        1_000_000_000,
		MaxChangePct:    1000,
	}
}

// Error describes a rejected observation.
type Error struct {
	Symbol string
	Reason string
}

func (e *Error) Error() string {
	if e.Symbol == "" {
		return "invalid observation: " + e.Reason
	}
	return fmt.Sprintf("invalid observation %q: %s", e.Symbol, e.Reason)
}

func (r Rules) reject(symbol, reason string) error {
	return &Error{Symbol: symbol, Reason: reason}
}

// Check verifies an observation against the rules. A nil return admits the
// observation into the pipeline.
func (r Rules) Check(obs model.Observation) error {
	if obs.Symbol == "" {
		return r.reject("", "symbol is empty")
	}
	if len(obs.Symbol) > r.MaxSymbolLength {
		return r.reject(obs.Symbol, fmt.Sprintf("symbol exceeds %d characters", r.MaxSymbolLength))
	}
	if !symbolPattern.MatchString(obs.Symbol) {
		return r.reject(obs.Symbol, "symbol contains invalid characters")
	}
	if !obs.Kind.Valid() {
		return r.reject(obs.Symbol, fmt.Sprintf("unknown asset kind %q", obs.Kind))
	}
	if math.IsNaN(obs.Price) || math.IsInf(obs.Price, 0) {
		return r.reject(obs.Symbol, "price is not a finite number")
	}
	if obs.Price <= 0 {
		return r.reject(obs.Symbol, "price must be greater than zero")
	}
	if obs.Price > r.MaxPrice {
		return r.reject(obs.Symbol, fmt.Sprintf("price exceeds maximum %g", r.MaxPrice))
	}
	if math.IsNaN(obs.ChangePct) || math.IsInf(obs.ChangePct, 0) {
		return r.reject(obs.Symbol, "change_pct is not a finite number")
	}
	if math.Abs(obs.ChangePct) > r.MaxChangePct {
		return r.reject(obs.Symbol, fmt.Sprintf("change_pct magnitude exceeds maximum %g", r.MaxChangePct))
	}
	if obs.ObservedAt.IsZero() {
		return r.reject(obs.Symbol, "observed_at is not set")
	}
	return nil
}
