package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListener_Loopback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Given: a listener on an ephemeral port
	listener, err := Listen("0")
	require.NoError(t, err)
	defer listener.Close()

	_, port, err := net.SplitHostPort(listener.Addr())
	require.NoError(t, err)

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, acceptErr := listener.Accept(ctx)
		if acceptErr == nil {
			accepted <- conn
		}
	}()

	// When: a dialer connects and writes a frame
	client, err := NewDialer(time.Second).Dial(ctx, net.JoinHostPort("127.0.0.1", port))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write([]byte{'R', 0, 0})
	require.NoError(t, err)

	// Then: the accepted side reads the same bytes
	server := <-accepted
	defer server.Close()

	buf := make([]byte, 3)
	_, err = server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{'R', 0, 0}, buf)
}

func TestListener_AcceptCancelled(t *testing.T) {
	listener, err := Listen("0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = listener.Accept(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDialer_NoListener(t *testing.T) {
	// Given: a port that was bound and released
	listener, err := Listen("0")
	require.NoError(t, err)
	addr := listener.Addr()
	require.NoError(t, listener.Close())

	_, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	// When: dialing it
	_, err = NewDialer(time.Second).Dial(context.Background(), net.JoinHostPort("127.0.0.1", port))

	// Then: the dial fails without hanging
	require.Error(t, err)
}
