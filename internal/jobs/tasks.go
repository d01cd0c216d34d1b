package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"santua/internal/matching"
	"santua/internal/sticker"
)

type Pruner interface {
	Prune(idle time.Duration) int
}

func PruneLimiter(p Pruner, idle time.Duration, log *zap.Logger) func(context.Context) {
	return func(context.Context) {
		if n := p.Prune(idle); n > 0 {
			log.Debug("rate limiter pruned", zap.Int("clients", n))
		}
	}
}

// LogSummary writes the current store totals to the log.
func LogSummary(svc *matching.Service, reg *sticker.Registry, log *zap.Logger) func(context.Context) {
	return func(ctx context.Context) {
		counts, err := svc.Counts(ctx)
		if err != nil {
			log.Error("summary: count entries", zap.Error(err))
			return
		}
		st, err := reg.Stats(ctx)
		if err != nil {
			log.Error("summary: sticker stats", zap.Error(err))
			return
		}
		log.Info("store summary",
			zap.Int("found", counts.Found),
			zap.Int("lost", counts.Lost),
			zap.Int("stickers_generated", st.Generated),
			zap.Int("stickers_activated", st.Activated),
		)
	}
}
