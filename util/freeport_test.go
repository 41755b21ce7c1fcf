package util

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/floresta-chain/nodeharness/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestAllocateReturnsPortInRange(t *testing.T) {
	alloc := NewPortAllocator()

	for i := 0; i < 25; i++ {
		port, err := alloc.Allocate(20001, 21001)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, port, 20001)
		assert.LessOrEqual(t, port, 21001)

		// the port must be unbound at the moment of return
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 250*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			t.Fatalf("port %d was reported free but something is listening on it", port)
		}
	}
}

func TestAllocateInvalidRange(t *testing.T) {
	alloc := NewPortAllocator()

	_, err := alloc.Allocate(19443, 18443)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPortAllocation))

	_, err = alloc.Allocate(0, 100)
	require.Error(t, err)

	_, err = alloc.Allocate(1, 70000)
	require.Error(t, err)
}

func TestAllocateNeverRepeats(t *testing.T) {
	alloc := NewPortAllocator()
	seen := make(map[int]bool)

	for i := 0; i < 50; i++ {
		port, err := alloc.Allocate(30000, 40000)
		require.NoError(t, err)
		assert.False(t, seen[port], "port %d allocated twice", port)
		seen[port] = true
	}
}

func TestAllocateRangeExhaustion(t *testing.T) {
	alloc := NewPortAllocator()

	// a two-port range can only be allocated twice
	p1, err := alloc.Allocate(45100, 45101)
	require.NoError(t, err)

	p2, err := alloc.Allocate(45100, 45101)
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)

	_, err = alloc.Allocate(45100, 45101)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPortAllocation))
}

func TestAllocateConcurrent(t *testing.T) {
	alloc := NewPortAllocator()

	var mu sync.Mutex

	seen := make(map[int]bool)
	g := errgroup.Group{}

	for i := 0; i < 16; i++ {
		g.Go(func() error {
			port, err := alloc.Allocate(30000, 40000)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()

			if seen[port] {
				return errors.NewPortAllocationError("port %d handed out twice", port)
			}
			seen[port] = true

			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Len(t, seen, 16)
}

func TestGetFreePort(t *testing.T) {
	port, err := GetFreePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
	assert.LessOrEqual(t, port, 65535)
}
