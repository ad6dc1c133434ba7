package alerting

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"price-tracker/internal/model"
	"price-tracker/internal/validate"
)

var (
	// ErrInvalidThreshold rejects a runtime threshold update; the prior value
	// is retained.
	ErrInvalidThreshold = errors.New("alerting: threshold must be greater than zero")
	// ErrInvalidCooldown rejects a runtime cooldown update; the prior value is
	// retained.
	ErrInvalidCooldown = errors.New("alerting: cooldown must be a positive duration")
)

// Options configure the alert engine.
type Options struct {
	ThresholdPct float64
	Cooldown     time.Duration
	Rules        validate.Rules
}

// Stats is a read-only snapshot of engine state.
type Stats struct {
	ThresholdPct    float64
	Cooldown        time.Duration
	ActiveCooldowns int
	Channels        []string
}

// Engine detects threshold crossings and suppresses repeat alerts per entity
// until the cooldown elapses. It exclusively owns the cooldown state; "active"
// is derived from elapsed time, never stored.
type Engine struct {
	mu         sync.Mutex
	threshold  float64
	cooldown   time.Duration
	lastAlerts map[string]time.Time

	rules    validate.Rules
	channels []Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewEngine constructs an alert engine dispatching to the given channels.
func NewEngine(opts Options, channels []Notifier, logger zerolog.Logger) *Engine {
	return &Engine{
		threshold:  opts.ThresholdPct,
		cooldown:   opts.Cooldown,
		lastAlerts: make(map[string]time.Time),
		rules:      opts.Rules,
		channels:   channels,
		logger:     logger.With().Str("component", "alert_engine").Logger(),
		now:        time.Now,
	}
}

// Evaluate checks each valid observation against the threshold and the
// per-entity cooldown, returning the events to dispatch. The cooldown
// timestamp is updated only on emission; suppressed crossings mutate nothing.
func (e *Engine) Evaluate(batch []model.Observation) []Event {
	var events []Event
	for _, obs := range batch {
		if err := e.rules.Check(obs); err != nil {
			e.logger.Warn().Err(err).Msg("skipping invalid observation in alert check")
			continue
		}

		e.mu.Lock()
		threshold := e.threshold
		crossed := math.Abs(obs.ChangePct) >= threshold
		if !crossed {
			e.mu.Unlock()
			continue
		}

		now := e.now()
		if last, ok := e.lastAlerts[obs.Symbol]; ok && now.Sub(last) < e.cooldown {
			e.mu.Unlock()
			e.logger.Debug().Str("symbol", obs.Symbol).Msg("alert suppressed by cooldown")
			continue
		}
		e.lastAlerts[obs.Symbol] = now
		e.mu.Unlock()

		events = append(events, newEvent(obs, threshold, now))
	}
	return events
}

// Dispatch fans the event out to every channel. A channel failure is reported
// and never blocks or fails the others; dispatch as a whole cannot fail.
func (e *Engine) Dispatch(ctx context.Context, event Event) {
	for _, ch := range e.channels {
		if err := ch.Notify(ctx, event); err != nil {
			e.logger.Error().Err(err).
				Str("channel", ch.Name()).
				Str("symbol", event.Symbol).
				Msg("alert channel dispatch failed")
			continue
		}
		e.logger.Info().
			Str("channel", ch.Name()).
			Str("symbol", event.Symbol).
			Msg("alert dispatched")
	}
}

// Stats reports the current configuration and the number of entities whose
// cooldown is still active.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	active := 0
	for _, last := range e.lastAlerts {
		if now.Sub(last) < e.cooldown {
			active++
		}
	}

	names := make([]string, 0, len(e.channels))
	for _, ch := range e.channels {
		names = append(names, ch.Name())
	}

	return Stats{
		ThresholdPct:    e.threshold,
		Cooldown:        e.cooldown,
		ActiveCooldowns: active,
		Channels:        names,
	}
}

// SetThreshold updates the crossing threshold at runtime.
func (e *Engine) SetThreshold(pct float64) error {
	if math.IsNaN(pct) || pct <= 0 {
		return ErrInvalidThreshold
	}
	e.mu.Lock()
	e.threshold = pct
	e.mu.Unlock()
	e.logger.Info().Float64("threshold_pct", pct).Msg("alert threshold updated")
	return nil
}

// SetCooldown updates the per-entity suppression window at runtime.
func (e *Engine) SetCooldown(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidCooldown
	}
	e.mu.Lock()
	e.cooldown = d
	e.mu.Unlock()
	e.logger.Info().Dur("cooldown", d).Msg("alert cooldown updated")
	return nil
}
