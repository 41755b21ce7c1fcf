package daemon

import (
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/floresta-chain/nodeharness/errors"
	"github.com/floresta-chain/nodeharness/ulogger"
)

// PortDetector tails a daemon log file and extracts the runtime-bound ports
// announced in it. Every Detect call starts a fresh tail from the current end
// of the file, so content written by a previous run is never replayed.
type PortDetector struct {
	logger       ulogger.Logger
	pollInterval time.Duration
	gracePeriod  time.Duration
}

func NewPortDetector(logger ulogger.Logger, pollInterval, gracePeriod time.Duration) *PortDetector {
	initPrometheusMetrics()

	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}

	if gracePeriod <= 0 {
		gracePeriod = 500 * time.Millisecond
	}

	return &PortDetector{
		logger:       logger,
		pollInterval: pollInterval,
		gracePeriod:  gracePeriod,
	}
}

// Detect scans logPath for the given port specs until every required one has
// matched or timeout elapses. Once all required ports are seen it keeps
// scanning for the grace period so optional ports that arrive late can still
// be collected; their absence never extends the wait past that window.
//
// First match wins per name; the first capture group of each pattern must be
// the port number.
func (d *PortDetector) Detect(logPath string, specs []PortSpec, timeout time.Duration) (map[string]int, error) {
	start := time.Now()
	deadline := start.Add(timeout)

	file, err := os.Open(logPath)
	if err != nil {
		return nil, errors.NewProcessingError("cannot open log file %s", logPath, err)
	}
	defer func() { _ = file.Close() }()

	// ignore anything written by a previous run in the same file
	if _, err = file.Seek(0, io.SeekEnd); err != nil {
		return nil, errors.NewProcessingError("cannot seek to end of log file %s", logPath, err)
	}

	required := 0

	for _, spec := range specs {
		if spec.Required {
			required++
		}
	}

	hasOptional := required < len(specs)

	ports := make(map[string]int)
	requiredFound := 0

	var (
		graceStart time.Time
		partial    string
	)

	for time.Now().Before(deadline) {
		lines, rest, readErr := readNewLines(file, partial)
		if readErr != nil {
			return nil, errors.NewProcessingError("error reading log file %s", logPath, readErr)
		}

		partial = rest

		for _, line := range lines {
			for _, spec := range specs {
				if _, done := ports[spec.Name]; done {
					continue
				}

				m := spec.Pattern.FindStringSubmatch(line)
				if m == nil {
					continue
				}

				port, convErr := strconv.Atoi(m[1])
				if convErr != nil {
					return nil, errors.NewConfigurationError("pattern %q captured non-numeric port %q", spec.Name, m[1], convErr)
				}

				ports[spec.Name] = port

				if spec.Required {
					requiredFound++
				}

				d.logger.Infof("detected %s port: %d", spec.Name, port)
			}
		}

		if requiredFound == required {
			if !hasOptional || len(ports) == len(specs) {
				prometheusDetectDuration.Observe(time.Since(start).Seconds())
				return ports, nil
			}

			// all required ports are known, give the optional ones a short
			// grace window before giving up on them
			if graceStart.IsZero() {
				graceStart = time.Now()
			} else if time.Since(graceStart) >= d.gracePeriod {
				prometheusDetectDuration.Observe(time.Since(start).Seconds())
				return ports, nil
			}
		}

		time.Sleep(d.pollInterval)
	}

	missing := make([]string, 0, required)

	for _, spec := range specs {
		if !spec.Required {
			continue
		}

		if _, ok := ports[spec.Name]; !ok {
			missing = append(missing, spec.Name)
		}
	}

	sort.Strings(missing)

	return nil, errors.NewReadinessTimeoutError("timeout after %v waiting for ports: %v", time.Since(start).Round(time.Millisecond), missing)
}

// readNewLines reads whatever has been appended to file since the last call,
// returning complete lines and the trailing partial line to carry over.
func readNewLines(file *os.File, carry string) ([]string, string, error) {
	buf := make([]byte, 64*1024)

	var sb strings.Builder

	sb.WriteString(carry)

	for {
		n, err := file.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}

		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, "", err
		}

		if n == 0 {
			break
		}
	}

	data := sb.String()
	if data == "" {
		return nil, "", nil
	}

	lines := strings.Split(data, "\n")
	rest := lines[len(lines)-1]

	return lines[:len(lines)-1], rest, nil
}
