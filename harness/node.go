package harness

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/floresta-chain/nodeharness/daemon"
	"github.com/floresta-chain/nodeharness/errors"
	"github.com/floresta-chain/nodeharness/rpc"
	"github.com/floresta-chain/nodeharness/settings"
	"github.com/floresta-chain/nodeharness/ulogger"
	"github.com/floresta-chain/nodeharness/util/retry"
)

// Node lifecycle states. Transitions are monotonic, stopped is terminal:
// a fresh Node must be created to restart a daemon.
const (
	StateCreated = "created"
	StateStarted = "started"
	StateReady   = "ready"
	StateStopped = "stopped"
)

const (
	eventStart = "start"
	eventReady = "ready"
	eventStop  = "stop"
)

// Node composes a daemon process, its detected port map and an RPC client.
// Start blocks until the daemon is RPC-reachable; Stop drives the graceful
// path and falls back to signal escalation.
type Node struct {
	logger   ulogger.Logger
	settings *settings.Settings
	spec     daemon.VariantSpec

	proc     *daemon.Process
	detector *daemon.PortDetector

	mu        sync.Mutex
	state     *fsm.FSM
	rpcClient *rpc.Client
	dataDir   string
	args      []string
}

func newNode(logger ulogger.Logger, appSettings *settings.Settings, spec daemon.VariantSpec, proc *daemon.Process, dataDir string, args []string) *Node {
	state := fsm.NewFSM(
		StateCreated,
		fsm.Events{
			{Name: eventStart, Src: []string{StateCreated}, Dst: StateStarted},
			{Name: eventReady, Src: []string{StateStarted}, Dst: StateReady},
			{Name: eventStop, Src: []string{StateCreated, StateStarted, StateReady}, Dst: StateStopped},
		},
		fsm.Callbacks{},
	)

	return &Node{
		logger:   logger,
		settings: appSettings,
		spec:     spec,
		proc:     proc,
		detector: daemon.NewPortDetector(logger, appSettings.Detect.PollInterval, appSettings.Detect.GracePeriod),
		state:    state,
		dataDir:  dataDir,
		args:     args,
	}
}

// Variant returns the daemon variant this node runs.
func (n *Node) Variant() daemon.Variant {
	return n.spec.Variant
}

// State returns the current lifecycle state.
func (n *Node) State() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.state.Current()
}

// DataDir returns the node's data directory.
func (n *Node) DataDir() string {
	return n.dataDir
}

// Args returns the full argument list the daemon was (or will be) spawned with.
func (n *Node) Args() []string {
	return n.args
}

// Daemon returns the underlying process handle.
func (n *Node) Daemon() *daemon.Process {
	return n.proc
}

// RPC returns the node's RPC client, nil until the node has been started.
func (n *Node) RPC() *rpc.Client {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.rpcClient
}

// Host returns the host address of the node.
func (n *Node) Host() string {
	return "127.0.0.1"
}

// Ports returns all detected ports of the node.
func (n *Node) Ports() map[string]int {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.rpcClient == nil {
		return nil
	}

	return n.rpcClient.Ports()
}

// Port returns the detected port registered under name.
func (n *Node) Port(name string) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.rpcClient == nil {
		return 0, errors.NewInvalidArgumentError("node %s has no detected ports yet", n.spec.Variant)
	}

	return n.rpcClient.Port(name)
}

// SendKillSignal sends sig directly to the daemon process. A process that is
// already gone is tolerated.
func (n *Node) SendKillSignal(sig os.Signal) error {
	return n.proc.Signal(sig)
}

// Start spawns the daemon, detects its ports from the log, and blocks until
// the RPC surface answers or timeout elapses. A second Start on the same node
// fails without spawning anything.
func (n *Node) Start(ctx context.Context, timeout time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.state.Is(StateCreated) {
		return errors.NewInvalidArgumentError("node %s is already %s", n.spec.Variant, n.state.Current())
	}

	if timeout <= 0 {
		timeout = n.settings.Detect.Timeout
	}

	if err := n.proc.Start(ctx); err != nil {
		return err
	}

	if err := n.state.Event(ctx, eventStart); err != nil {
		return errors.NewProcessingError("state transition failed", err)
	}

	ports, err := n.detector.Detect(n.proc.LogPath(), n.spec.PortSpecs, timeout)
	if err != nil {
		n.logger.Errorf("port detection failed for %s, captured output: %s", n.spec.Variant, n.proc.Output())
		n.abort(ctx)

		return err
	}

	n.logger.Infof("node %s ports: %v", n.spec.Variant, ports)

	n.rpcClient = rpc.NewClient(n.logger, rpc.Config{
		Host:        n.Host(),
		Ports:       ports,
		User:        n.spec.RPCUser,
		Password:    n.spec.RPCPassword,
		ProbeMethod: n.spec.ProbeMethod,
		CallTimeout: n.settings.RPC.CallTimeout,
	})

	if err = n.waitForReadiness(ctx, timeout); err != nil {
		n.abort(ctx)

		return err
	}

	if err = n.state.Event(ctx, eventReady); err != nil {
		return errors.NewProcessingError("state transition failed", err)
	}

	n.logger.Infof("node %s started", n.spec.Variant)

	return nil
}

// waitForReadiness blocks until the daemon accepts connections on every
// detected port and answers the variant's probe method.
func (n *Node) waitForReadiness(ctx context.Context, timeout time.Duration) error {
	if err := n.rpcClient.WaitForConnections(ctx, true, timeout); err != nil {
		return err
	}

	// the deadline, not the attempt count, bounds the wait
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempts := int(timeout/n.settings.RPC.PollInterval) + 1

	_, err := retry.Retry(pollCtx, n.logger, func() (struct{}, error) {
		return struct{}{}, n.rpcClient.Ping(pollCtx)
	}, attempts, 1, n.settings.RPC.PollInterval, "waiting for rpc readiness")
	if err != nil {
		return errors.NewRPCUnavailableError("node %s rpc probe never succeeded within %v", n.spec.Variant, timeout, err)
	}

	return nil
}

// abort tears the daemon down after a failed start and marks the node
// stopped. Errors here are logged only, the startup error wins.
func (n *Node) abort(ctx context.Context) {
	if err := n.proc.EnsureStopped(time.Second, time.Second); err != nil {
		n.logger.Errorf("failed to stop %s after aborted start: %v", n.spec.Variant, err)
	}

	_ = n.state.Event(ctx, eventStop)
}

// Stop shuts the node down: the protocol stop request first, then waiting
// for RPC disconnection and process exit, escalating to signals when the
// graceful path fails. The node always ends up stopped.
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.stopLocked(ctx)
}

func (n *Node) stopLocked(ctx context.Context) error {
	if n.state.Is(StateStopped) {
		return nil
	}

	if n.state.Is(StateCreated) {
		_ = n.state.Event(ctx, eventStop)
		return nil
	}

	defer func() {
		if !n.state.Is(StateStopped) {
			_ = n.state.Event(ctx, eventStop)
		}
	}()

	var gracefulErr error

	if n.rpcClient != nil && n.proc.IsRunning() {
		if _, err := n.rpcClient.Stop(ctx); err != nil {
			gracefulErr = err
			n.logger.Warnf("stop request to %s failed: %v", n.spec.Variant, err)
		} else if err = n.rpcClient.WaitForConnections(ctx, false, n.settings.Shutdown.GracefulTimeout); err != nil {
			gracefulErr = err
			n.logger.Warnf("node %s kept its ports open after the stop request: %v", n.spec.Variant, err)
		}
	}

	if err := n.proc.EnsureStopped(n.settings.Shutdown.GracefulTimeout, n.settings.Shutdown.InterruptTimeout); err != nil {
		n.logger.Errorf("escalation failed for %s: %v", n.spec.Variant, err)
		return err
	}

	n.logger.Infof("node %s stopped", n.spec.Variant)

	return gracefulErr
}
