package util

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/floresta-chain/nodeharness/errors"
)

const probeTimeout = 250 * time.Millisecond

// PortAllocator hands out loopback TCP ports that are currently unbound.
// Availability is probed with a real connection attempt: a failed dial means
// nothing is listening, so the port is considered free. There is no
// reservation handshake with the eventual binder, so a small race window
// exists between allocation and the spawned daemon binding the port.
//
// Ports already handed out by this allocator are never returned again, which
// keeps nodes of one orchestrator from colliding with each other.
type PortAllocator struct {
	mu        sync.Mutex
	rng       *rand.Rand
	allocated map[int]struct{}
}

func NewPortAllocator() *PortAllocator {
	return &PortAllocator{
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // not used for crypto
		allocated: make(map[int]struct{}),
	}
}

// Allocate returns a free port p with start <= p <= end.
func (a *PortAllocator) Allocate(start, end int) (int, error) {
	if start <= 0 || end > 65535 || start > end {
		return 0, errors.NewPortAllocationError("invalid port range [%d, %d]", start, end)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for {
		if a.rangeExhausted(start, end) {
			return 0, errors.NewPortAllocationError("no free port left in range [%d, %d]", start, end)
		}

		port := start + a.rng.Intn(end-start+1)
		if _, taken := a.allocated[port]; taken {
			continue
		}

		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), probeTimeout)
		if err != nil {
			// nothing answered, the port is unbound
			a.allocated[port] = struct{}{}
			return port, nil
		}

		_ = conn.Close()
		a.allocated[port] = struct{}{}
	}
}

// rangeExhausted reports whether every port in [start, end] has already been
// handed out by this allocator. Caller holds the lock.
func (a *PortAllocator) rangeExhausted(start, end int) bool {
	count := 0

	for p := range a.allocated {
		if p >= start && p <= end {
			count++
		}
	}

	return count >= end-start+1
}

// GetFreePort asks the kernel for a free open port that is ready to use.
func GetFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	var l *net.TCPListener

	l, err = net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}

	defer func() { _ = l.Close() }()

	return l.Addr().(*net.TCPAddr).Port, nil
}
