package daemon

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/floresta-chain/nodeharness/errors"
	"github.com/floresta-chain/nodeharness/ulogger"
)

// startupProbe is how long Start watches a fresh process before declaring it
// alive. A daemon that dies within this window is reported as a startup
// failure together with its captured output.
const startupProbe = 250 * time.Millisecond

// tailSize bounds the in-memory copy of the daemon output kept for
// diagnostics. The full output still goes to the log file.
const tailSize = 8 * 1024

// Process owns the lifecycle of one spawned external daemon: start, signal,
// wait and reap. Shutdown escalates graceful wait -> SIGTERM -> SIGKILL; the
// final tier blocks until the process is reaped.
type Process struct {
	logger     ulogger.Logger
	executable string
	args       []string
	workDir    string
	logPath    string

	mu      sync.Mutex
	cmd     *exec.Cmd
	logFile *os.File
	tail    *tailBuffer
	waitCh  chan struct{}
	started bool
}

func NewProcess(logger ulogger.Logger, executable string, args []string, workDir, logPath string) *Process {
	initPrometheusMetrics()

	return &Process{
		logger:     logger,
		executable: executable,
		args:       args,
		workDir:    workDir,
		logPath:    logPath,
		tail:       newTailBuffer(tailSize),
	}
}

// LogPath returns the file the daemon's combined stdout/stderr is written to.
func (p *Process) LogPath() string {
	return p.logPath
}

// Start spawns the daemon, redirecting its combined output to the log file.
// It fails with a process-startup error if the executable cannot be spawned
// or exits within the startup probe window.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.NewInvalidArgumentError("process %s already started", p.executable)
	}

	if err := os.MkdirAll(filepath.Dir(p.logPath), 0o755); err != nil {
		return errors.NewProcessStartupError("failed to create log directory for %s", p.logPath, err)
	}

	logFile, err := os.OpenFile(p.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.NewProcessStartupError("failed to open log file %s", p.logPath, err)
	}

	cmd := exec.Command(p.executable, p.args...)
	cmd.Dir = p.workDir

	out := io.MultiWriter(logFile, p.tail)
	cmd.Stdout = out
	cmd.Stderr = out

	p.logger.Debugf("starting %s %v", p.executable, p.args)

	if err = cmd.Start(); err != nil {
		_ = logFile.Close()
		prometheusDaemonStartupFailures.Inc()

		return errors.NewProcessStartupError("failed to spawn %s", p.executable, err)
	}

	waitCh := make(chan struct{})

	go func() {
		_ = cmd.Wait()
		_ = logFile.Close()
		close(waitCh)
	}()

	p.cmd = cmd
	p.logFile = logFile
	p.waitCh = waitCh
	p.started = true

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-waitCh

		return errors.NewContextCanceledError("context cancelled while starting %s", p.executable, ctx.Err())
	case <-waitCh:
		prometheusDaemonStartupFailures.Inc()

		return errors.NewProcessStartupError("%s exited immediately with %s, output: %s",
			p.executable, cmd.ProcessState.String(), p.tail.String())
	case <-time.After(startupProbe):
	}

	prometheusDaemonsStarted.Inc()
	p.logger.Infof("started %s with pid %d", p.executable, cmd.Process.Pid)

	return nil
}

// IsRunning reports whether the process was started and has not yet been reaped.
func (p *Process) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return false
	}

	select {
	case <-p.waitCh:
		return false
	default:
		return true
	}
}

// PID returns the captured process identifier, or 0 before Start.
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}

	return p.cmd.Process.Pid
}

// WaitExit blocks until the process has been reaped or the timeout elapses,
// reporting whether it exited in time.
func (p *Process) WaitExit(timeout time.Duration) bool {
	p.mu.Lock()
	waitCh := p.waitCh
	p.mu.Unlock()

	if waitCh == nil {
		return true
	}

	select {
	case <-waitCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// ExitCode returns the exit code of the reaped process, or -1 if it has not
// exited (or was killed by a signal).
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.cmd.ProcessState == nil {
		return -1
	}

	return p.cmd.ProcessState.ExitCode()
}

// Output returns the tail of the captured daemon output, for diagnostics.
func (p *Process) Output() string {
	return p.tail.String()
}

// Signal sends sig to the captured pid. A process that is already gone is a
// success, never an error that would abort teardown of other nodes.
func (p *Process) Signal(sig os.Signal) error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	err := cmd.Process.Signal(sig)
	if err == nil || errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
		return nil
	}

	return errors.NewProcessingError("failed to signal pid %d", cmd.Process.Pid, err)
}

// Interrupt sends the terminate signal.
func (p *Process) Interrupt() error {
	return p.Signal(syscall.SIGTERM)
}

// Kill sends the kill signal.
func (p *Process) Kill() error {
	return p.Signal(syscall.SIGKILL)
}

// EnsureStopped drives the shutdown escalation after a graceful stop request
// has been issued by the caller:
//
//	wait gracefulTimeout -> SIGTERM -> wait interruptTimeout -> SIGKILL -> reap
//
// The final tier blocks until the process is reaped, so on return the process
// is guaranteed gone. Escalation beyond the graceful tier is logged per tier
// and reported on the escalation metric, but is not an error.
func (p *Process) EnsureStopped(gracefulTimeout, interruptTimeout time.Duration) error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()

	if !started {
		return nil
	}

	if p.WaitExit(gracefulTimeout) {
		p.logger.Debugf("%s exited within the graceful window", p.executable)
		return nil
	}

	p.logger.Warnf("%s did not exit within %v, sending interrupt signal", p.executable, gracefulTimeout)
	prometheusDaemonEscalations.WithLabelValues("interrupt").Inc()

	if err := p.Interrupt(); err != nil {
		p.logger.Errorf("interrupt signal failed for %s: %v", p.executable, err)
	}

	if p.WaitExit(interruptTimeout) {
		return nil
	}

	p.logger.Warnf("%s ignored the interrupt signal, sending kill signal", p.executable)
	prometheusDaemonEscalations.WithLabelValues("kill").Inc()

	if err := p.Kill(); err != nil {
		// a pid we cannot kill will never be reaped, do not block on it
		return errors.NewShutdownEscalationError("could not kill %s (pid %d)", p.executable, p.PID(), err)
	}

	// no further escalation possible, block until the process is reaped
	<-p.waitCh

	return nil
}

// tailBuffer is a bounded io.Writer keeping the last max bytes written.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}

	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return string(t.buf)
}
