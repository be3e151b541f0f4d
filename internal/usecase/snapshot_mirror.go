package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

const storeTimeout = 2 * time.Second

type snapshotStore interface {
	Save(ctx context.Context, snapshot entity.Snapshot) error
	DeleteByID(ctx context.Context, sessionID string) error
}

// SnapshotMirror copies the latest snapshot of a session to a store. Intermediate snapshots may be
// skipped when the store is slower than the game.
type SnapshotMirror struct {
	logger  *slog.Logger
	store   snapshotStore
	pending chan entity.Snapshot
}

func NewSnapshotMirror(logger *slog.Logger, store snapshotStore) *SnapshotMirror {
	return &SnapshotMirror{
		logger:  logger.With("component", "snapshot_mirror"),
		store:   store,
		pending: make(chan entity.Snapshot, 1),
	}
}

// Observe - queues snapshot, replacing one not yet saved. Never blocks.
func (that *SnapshotMirror) Observe(snapshot entity.Snapshot) {
	for {
		select {
		case that.pending <- snapshot:
			return
		default:
		}

		select {
		case <-that.pending:
		default:
		}
	}
}

// Run - saves queued snapshots until ctx ends, then removes the session's entry.
func (that *SnapshotMirror) Run(ctx context.Context, sessionID string) {
	log := that.logger.With("method", "Run", "sessionID", sessionID)

	for {
		select {
		case snapshot := <-that.pending:
			// select picks at random when both are ready; a finished session is never saved again
			if ctx.Err() != nil {
				that.remove(log, sessionID)
				return
			}
			that.save(ctx, snapshot)
		case <-ctx.Done():
			that.remove(log, sessionID)
			return
		}
	}
}

func (that *SnapshotMirror) remove(log *slog.Logger, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := that.store.DeleteByID(ctx, sessionID); err != nil {
		log.Warn("failed to delete snapshot", "error", err)
	}
}

func (that *SnapshotMirror) save(ctx context.Context, snapshot entity.Snapshot) {
	saveCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := that.store.Save(saveCtx, snapshot); err != nil {
		that.logger.Error("failed to save snapshot", "sessionID", snapshot.SessionID, "error", err)
	}
}
