package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-peer/testing/suite"
)

func TestNewRedisStorage(t *testing.T) {
	t.Run("Connects", func(t *testing.T) {
		ctx, st := suite.New(t)

		storage, err := NewRedisStorage(ctx, st.Addr)
		require.NoError(t, err)

		assert.NoError(t, storage.Close())
	})

	t.Run("Unreachable", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_, err := NewRedisStorage(ctx, "127.0.0.1:1")

		require.Error(t, err)
	})
}
