package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

type mockStore struct {
	mock.Mock
}

func (that *mockStore) Save(ctx context.Context, snapshot entity.Snapshot) error {
	return that.Called(ctx, snapshot).Error(0)
}

func (that *mockStore) DeleteByID(ctx context.Context, sessionID string) error {
	return that.Called(ctx, sessionID).Error(0)
}

func TestSnapshotMirror(t *testing.T) {
	t.Run("Latest snapshot is saved and removed at the end", func(t *testing.T) {
		// Given: a store and two queued snapshots
		store := &mockStore{}
		mirror := NewSnapshotMirror(newTestLogger(), store)

		first := entity.Snapshot{Board: entity.NewBoard(), SessionID: "s-1"}
		latest := first
		latest.Board.Cells[0] = entity.PlayerX

		saved := make(chan entity.Snapshot, 2)
		store.On("Save", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			saved <- args.Get(1).(entity.Snapshot)
		})
		store.On("DeleteByID", mock.Anything, "s-1").Return(nil).Once()

		mirror.Observe(first)
		mirror.Observe(latest)

		// When: the mirror runs
		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			mirror.Run(ctx, "s-1")
		}()

		// Then: only the latest snapshot reaches the store
		select {
		case got := <-saved:
			assert.Equal(t, latest, got)
		case <-time.After(time.Second):
			t.Fatal("snapshot was not saved")
		}

		cancel()
		<-stopped

		assert.Empty(t, saved)
		store.AssertExpectations(t)
	})

	t.Run("Store errors do not stop the mirror", func(t *testing.T) {
		store := &mockStore{}
		mirror := NewSnapshotMirror(newTestLogger(), store)

		calls := make(chan struct{}, 2)
		store.On("Save", mock.Anything, mock.Anything).Return(errors.New("redis down")).Run(func(mock.Arguments) {
			calls <- struct{}{}
		})
		store.On("DeleteByID", mock.Anything, "s-2").Return(errors.New("redis down"))

		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			mirror.Run(ctx, "s-2")
		}()

		mirror.Observe(entity.Snapshot{SessionID: "s-2"})
		require.Eventually(t, func() bool { return len(calls) == 1 }, time.Second, 5*time.Millisecond)

		mirror.Observe(entity.Snapshot{SessionID: "s-2"})
		require.Eventually(t, func() bool { return len(calls) == 2 }, time.Second, 5*time.Millisecond)

		cancel()
		<-stopped
	})

	t.Run("Snapshot queued after the session ended is not saved", func(t *testing.T) {
		// Given: a queued snapshot and an already cancelled context
		store := &mockStore{}
		mirror := NewSnapshotMirror(newTestLogger(), store)
		store.On("DeleteByID", mock.Anything, "s-3").Return(nil).Once()

		mirror.Observe(entity.Snapshot{SessionID: "s-3"})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// When: the mirror runs, repeatedly so both select branches get picked
		for i := 0; i < 20; i++ {
			mirror.Run(ctx, "s-3")
			store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			mirror.Observe(entity.Snapshot{SessionID: "s-3"})
			store.On("DeleteByID", mock.Anything, "s-3").Return(nil).Once()
		}

		// Then: the entry is only ever deleted
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		store.AssertCalled(t, "DeleteByID", mock.Anything, "s-3")
	})
}
