package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quizgen/internal/storage"
)

// Sweeper deletes published bundles older than a given age and returns their files.
type Sweeper interface {
	Sweep(maxAge time.Duration) ([]storage.Ref, error)
}

// Forgetter drops files from the download index.
type Forgetter interface {
	Forget(ctx context.Context, refs []storage.Ref) error
}

// JanitorWorker removes expired bundles from disk and from the download index.
type JanitorWorker struct {
	store     Sweeper
	artifacts Forgetter
	ttl       time.Duration
	interval  time.Duration
	log       zerolog.Logger
}

func NewJanitorWorker(store Sweeper, artifacts Forgetter, ttl, interval time.Duration, log zerolog.Logger) *JanitorWorker {
	return &JanitorWorker{
		store:     store,
		artifacts: artifacts,
		ttl:       ttl,
		interval:  interval,
		log:       log.With().Str("component", "janitor_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

// Start sweeps once, then on every tick until ctx is cancelled.
func (w *JanitorWorker) Start(ctx context.Context) {
	w.log.Info().
		Dur("ttl", w.ttl).
		Dur("interval", w.interval).
		Msg("JanitorWorker started")

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("JanitorWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *JanitorWorker) sweep(ctx context.Context) {
	removed, err := w.store.Sweep(w.ttl)
	if err != nil {
		w.log.Error().Err(err).Msg("Sweep failed")
	}
	if len(removed) == 0 {
		return
	}

	if err := w.artifacts.Forget(ctx, removed); err != nil && ctx.Err() == nil {
		w.log.Warn().Err(err).Int("files", len(removed)).Msg("Failed to forget expired files")
	}
	files := make([]string, len(removed))
	for i, ref := range removed {
		files[i] = ref.String()
	}
	w.log.Info().Strs("files", files).Msg("Expired files removed")
}
