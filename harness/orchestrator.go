package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/floresta-chain/nodeharness/certs"
	"github.com/floresta-chain/nodeharness/daemon"
	"github.com/floresta-chain/nodeharness/errors"
	"github.com/floresta-chain/nodeharness/settings"
	"github.com/floresta-chain/nodeharness/ulogger"
	"github.com/floresta-chain/nodeharness/util"
)

// Orchestrator creates and tracks the nodes of one test run. It synthesizes
// default arguments per variant, allocates non-colliding listen ports and
// provisions TLS material on demand. Nodes are stopped in registration order.
type Orchestrator struct {
	logger   ulogger.Logger
	settings *settings.Settings
	testName string
	alloc    *util.PortAllocator

	mu          sync.Mutex
	nodes       []*Node
	createdDirs map[string]struct{}
}

func NewOrchestrator(logger ulogger.Logger, appSettings *settings.Settings, testName string) (*Orchestrator, error) {
	if err := appSettings.Validate(); err != nil {
		return nil, err
	}

	if testName == "" {
		return nil, errors.NewInvalidArgumentError("test name must not be empty")
	}

	return &Orchestrator{
		logger:      logger,
		settings:    appSettings,
		testName:    testName,
		alloc:       util.NewPortAllocator(),
		nodes:       make([]*Node, 0, 4),
		createdDirs: make(map[string]struct{}),
	}, nil
}

// TestName returns the name this orchestrator files its artifacts under.
func (o *Orchestrator) TestName() string {
	return o.testName
}

// NodeCount returns the number of registered nodes.
func (o *Orchestrator) NodeCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.nodes)
}

// Node returns the node registered at index.
func (o *Orchestrator) Node(index int) (*Node, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if index < 0 || index >= len(o.nodes) {
		return nil, errors.NewInvalidArgumentError("node index %d out of range, %d nodes registered", index, len(o.nodes))
	}

	return o.nodes[index], nil
}

// Nodes returns all registered nodes in registration order.
func (o *Orchestrator) Nodes() []*Node {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]*Node, len(o.nodes))
	copy(out, o.nodes)

	return out
}

// AddNode registers a new node of the given variant. Defaults are synthesized
// for every option extraArgs does not set: data directory, listen addresses
// with freshly allocated ports, and the TLS flags when enableTLS is on.
// Caller-supplied extraArgs are appended last so they win on daemons that
// honour the last occurrence of a flag.
//
// The node is created only; call Start on it (or drive it yourself) after.
func (o *Orchestrator) AddNode(variant daemon.Variant, extraArgs []string, enableTLS bool) (*Node, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	spec := daemon.Spec(variant)
	index := len(o.nodes)

	dataDir, args, err := o.synthesizeArgs(spec, extraArgs, enableTLS, index)
	if err != nil {
		return nil, err
	}

	logName := fmt.Sprintf("%s-%s-%d", o.testName, variant, index)
	logPath := o.settings.LogPath(logName)

	if err = os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, errors.NewProcessingError("failed to create log directory", err)
	}

	executable := spec.Executable
	if o.settings.BinariesDir != "" {
		executable = filepath.Join(o.settings.BinariesDir, spec.Executable)
	}

	proc := daemon.NewProcess(o.logger, executable, args, dataDir, logPath)
	node := newNode(o.logger, o.settings, spec, proc, dataDir, args)

	o.nodes = append(o.nodes, node)

	o.logger.Infof("registered node %d: %s %s", index, executable, strings.Join(args, " "))

	return node, nil
}

// synthesizeArgs builds the final argument list for one node. Caller holds
// the lock.
func (o *Orchestrator) synthesizeArgs(spec daemon.VariantSpec, extraArgs []string, enableTLS bool, index int) (string, []string, error) {
	var args []string

	dataDir, supplied := callerOptionValue(extraArgs, spec.DataDirFlag)
	if !supplied {
		dataDir = filepath.Join(o.settings.DataDir(o.testName), fmt.Sprintf("node-%d", index))
		args = append(args, spec.DataDirFlag+"="+dataDir)
	}

	if err := o.ensureDataDir(dataDir, supplied); err != nil {
		return "", nil, err
	}

	if spec.PeerFlag != "" && !isOptionSet(extraArgs, spec.PeerFlag) {
		listen, err := o.allocateListen(spec.PeerRange, false)
		if err != nil {
			return "", nil, err
		}

		args = append(args, spec.PeerFlag+"="+listen)
	}

	if spec.RPCFlag != "" && !isOptionSet(extraArgs, spec.RPCFlag) {
		listen, err := o.allocateListen(spec.RPCRange, false)
		if err != nil {
			return "", nil, err
		}

		args = append(args, spec.RPCFlag+"="+listen)
		// statics like -rpcallowip only make sense next to the default binding
		args = append(args, spec.ExtraDefaults...)
	}

	if spec.ElectrumFlag != "" && !isOptionSet(extraArgs, spec.ElectrumFlag) {
		listen, err := o.allocateListen(spec.ElectrumRange, false)
		if err != nil {
			return "", nil, err
		}

		args = append(args, spec.ElectrumFlag+"="+listen)
	}

	tlsArgs, err := o.synthesizeTLSArgs(spec, extraArgs, enableTLS)
	if err != nil {
		return "", nil, err
	}

	args = append(args, tlsArgs...)
	args = append(args, extraArgs...)

	return dataDir, args, nil
}

func (o *Orchestrator) synthesizeTLSArgs(spec daemon.VariantSpec, extraArgs []string, enableTLS bool) ([]string, error) {
	if !enableTLS {
		return spec.TLS.DisableArgs, nil
	}

	if !spec.TLS.Supported {
		return nil, errors.NewInvalidArgumentError("variant %s does not support TLS provisioning", spec.Variant)
	}

	keyPath, certPath, err := certs.EnsureCertificate(o.logger, o.settings.TLSDir())
	if err != nil {
		return nil, err
	}

	args := append([]string{}, spec.TLS.EnableArgs...)
	args = append(args, spec.TLS.KeyFlag+"="+keyPath, spec.TLS.CertFlag+"="+certPath)

	if spec.TLS.ListenFlag != "" && !isOptionSet(extraArgs, spec.TLS.ListenFlag) {
		listen, err := o.allocateListen(spec.TLS.ListenRange, spec.TLS.PortOnly)
		if err != nil {
			return nil, err
		}

		args = append(args, spec.TLS.ListenFlag+"="+listen)
	}

	return args, nil
}

// allocateListen picks a fresh port from r and renders it as a flag value.
func (o *Orchestrator) allocateListen(r daemon.PortRange, portOnly bool) (string, error) {
	port, err := o.alloc.Allocate(r.Start, r.End)
	if err != nil {
		return "", err
	}

	if portOnly {
		return strconv.Itoa(port), nil
	}

	return "127.0.0.1:" + strconv.Itoa(port), nil
}

// ensureDataDir creates dir when missing. A directory this orchestrator did
// not create that already holds data is refused unless the caller asked for
// it explicitly, which is how restart tests reuse a chainstate.
func (o *Orchestrator) ensureDataDir(dir string, callerSupplied bool) error {
	if _, ok := o.createdDirs[dir]; ok {
		return nil
	}

	entries, err := os.ReadDir(dir)

	switch {
	case os.IsNotExist(err):
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewProcessingError("failed to create data directory %s", dir, err)
		}
	case err != nil:
		return errors.NewProcessingError("failed to inspect data directory %s", dir, err)
	case len(entries) > 0 && !callerSupplied:
		return errors.NewDataDirConflictError("data directory %s already holds %d entries from an earlier run, refusing to reuse it implicitly", dir, len(entries))
	}

	o.createdDirs[dir] = struct{}{}

	return nil
}

// CreateDataDirs pre-creates n empty data directories under the test's data
// root and returns their paths. Useful for tests that pass explicit data
// directories to AddNode.
func (o *Orchestrator) CreateDataDirs(baseName string, n int) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	dirs := make([]string, 0, n)

	for i := 0; i < n; i++ {
		dir := filepath.Join(o.settings.DataDir(o.testName), fmt.Sprintf("%s-%d", baseName, i))

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.NewProcessingError("failed to create data directory %s", dir, err)
		}

		o.createdDirs[dir] = struct{}{}
		dirs = append(dirs, dir)
	}

	return dirs, nil
}

// StopAllNodes stops every registered node in registration order. A node that
// fails to stop is logged and does not keep the remaining nodes from being
// stopped; the first error is returned after all nodes were attempted.
func (o *Orchestrator) StopAllNodes(ctx context.Context) error {
	var firstErr error

	for i, node := range o.Nodes() {
		if err := node.Stop(ctx); err != nil {
			o.logger.Errorf("failed to stop node %d (%s): %v", i, node.Variant(), err)

			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// isOptionSet reports whether extraArgs already sets option, either as
// "option=value", "option value" or a bare switch.
func isOptionSet(extraArgs []string, option string) bool {
	for _, arg := range extraArgs {
		if arg == option || strings.HasPrefix(arg, option+"=") {
			return true
		}
	}

	return false
}

// callerOptionValue extracts the value of option from extraArgs. Both
// "option=value" and "option value" spellings are understood.
func callerOptionValue(extraArgs []string, option string) (string, bool) {
	for i, arg := range extraArgs {
		if strings.HasPrefix(arg, option+"=") {
			return strings.TrimPrefix(arg, option+"="), true
		}

		if arg == option && i+1 < len(extraArgs) {
			return extraArgs[i+1], true
		}
	}

	return "", false
}
