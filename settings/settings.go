package settings

import (
	"os"
	"path/filepath"
	"time"

	"github.com/floresta-chain/nodeharness/errors"
)

// TempDirEnvVar designates the root directory for all generated test
// artifacts: data directories, logs and TLS material. It has no default;
// a harness cannot run without it.
const TempDirEnvVar = "FLORESTA_TEMP_DIR"

type DetectSettings struct {
	Timeout      time.Duration
	PollInterval time.Duration
	GracePeriod  time.Duration
}

type ShutdownSettings struct {
	GracefulTimeout  time.Duration
	InterruptTimeout time.Duration
}

type RPCSettings struct {
	ConnectTimeout time.Duration
	PollInterval   time.Duration
	CallTimeout    time.Duration
}

type Settings struct {
	ClientName  string
	TempDir     string
	BinariesDir string
	LogLevel    string

	Detect   DetectSettings
	Shutdown ShutdownSettings
	RPC      RPCSettings
}

// NewSettings builds the harness settings from gocore.Config and the
// environment. TempDir comes from FLORESTA_TEMP_DIR only; everything else
// has a sensible default that a settings file may override.
func NewSettings() *Settings {
	tempDir := os.Getenv(TempDirEnvVar)

	binariesDir := getString("binaries_dir", "")
	if binariesDir == "" && tempDir != "" {
		binariesDir = filepath.Join(tempDir, "binaries")
	}

	return &Settings{
		ClientName:  getString("clientName", "nodeharness"),
		TempDir:     tempDir,
		BinariesDir: binariesDir,
		LogLevel:    getString("logLevel", "INFO"),
		Detect: DetectSettings{
			Timeout:      getDuration("detect_timeout", 180*time.Second),
			PollInterval: getDuration("detect_pollInterval", 100*time.Millisecond),
			GracePeriod:  getDuration("detect_gracePeriod", 500*time.Millisecond),
		},
		Shutdown: ShutdownSettings{
			GracefulTimeout:  getDuration("shutdown_gracefulTimeout", 10*time.Second),
			InterruptTimeout: getDuration("shutdown_interruptTimeout", 5*time.Second),
		},
		RPC: RPCSettings{
			ConnectTimeout: getDuration("rpc_connectTimeout", 30*time.Second),
			PollInterval:   getDuration("rpc_pollInterval", 500*time.Millisecond),
			CallTimeout:    getDuration("rpc_callTimeout", 30*time.Second),
		},
	}
}

// Validate checks the settings the orchestrator cannot run without.
func (s *Settings) Validate() error {
	if s.TempDir == "" {
		return errors.NewConfigurationError("%s not set, please set it to the path of the integration test directory", TempDirEnvVar)
	}

	return nil
}

// DataDir returns the data directory for a given test name under TempDir.
func (s *Settings) DataDir(testName string) string {
	return filepath.Join(s.TempDir, "data", testName)
}

// LogPath returns the per-test log file the daemons write to.
func (s *Settings) LogPath(testName string) string {
	return filepath.Join(s.TempDir, "logs", testName+".log")
}

// TLSDir returns the directory holding the shared TLS key and certificate.
func (s *Settings) TLSDir() string {
	return filepath.Join(s.TempDir, "data", "tls")
}
