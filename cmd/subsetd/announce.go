package main

import (
	"context"
	"time"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
	"github.com/mohammed-shakir/griddap-subset/internal/invalidation"
)

type eventPublisher interface {
	Publish(ev invalidation.Event) bool
}

// announce forwards API-triggered reloads to peers. Reloads that came in
// as events are not re-announced.
func announce(p eventPublisher, instance string) func(context.Context, model.ReloadResponse, string) {
	return func(_ context.Context, r model.ReloadResponse, trigger string) {
		if trigger != "api" {
			return
		}
		p.Publish(invalidation.Event{
			Version: 1,
			Op:      invalidation.OpReload,
			Dataset: r.Dataset,
			TS:      time.Now().UTC(),
			Source:  instance,
		})
	}
}
