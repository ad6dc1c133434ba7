package app

import (
	"context"
	"errors"
	"time"

	"price-tracker/internal/model"
)

// SimulateAlert pushes one synthetic observation through the alert engine and
// its configured channels. Nothing is persisted.
func (a *App) SimulateAlert(ctx context.Context, symbol string, price, changePct float64) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	engine := a.newEngine()
	if engine == nil {
		return errors.New("alerting is not enabled")
	}

	obs := model.Observation{
		Symbol:     symbol,
		Price:      price,
		ChangePct:  changePct,
		Kind:       model.KindCrypto,
		ObservedAt: time.Now().UTC(),
	}

	events := engine.Evaluate([]model.Observation{obs})
	if len(events) == 0 {
		return errors.New("no alert triggered; change is below the threshold or the observation is invalid")
	}

	for _, event := range events {
		engine.Dispatch(ctx, event)
	}
	return nil
}
