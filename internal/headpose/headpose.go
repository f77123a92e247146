// Package headpose supervises the head-pose detector, a local HTTP service
// that estimates where the speaker is looking while they practise.
//
// The detector runs as a child process started on demand. [Manager.Start]
// launches the configured command and waits until GET <server_url>/health
// answers 200; [Manager.Stop] interrupts the process and kills it when the
// grace period runs out.
package headpose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrNotConfigured is returned by [Manager.Start] when no command is set.
var ErrNotConfigured = errors.New("headpose: detector command not configured")

// ErrExited is returned by [Manager.Start] when the process ends before its
// health endpoint responds.
var ErrExited = errors.New("headpose: detector exited before becoming healthy")

const (
	defaultStartTimeout = 15 * time.Second
	defaultStopTimeout  = 5 * time.Second
	defaultPollInterval = 250 * time.Millisecond
)

// Config describes how to run the detector.
type Config struct {
	// Command is the executable followed by its arguments.
	Command []string

	// Dir is the working directory. Empty uses the server's.
	Dir string

	// Env holds KEY=VALUE pairs added to the inherited environment.
	Env []string

	// ServerURL is the detector's base URL.
	ServerURL string

	// StartTimeout bounds the wait for a healthy detector. Default: 15s.
	StartTimeout time.Duration

	// StopTimeout is the grace period between interrupt and kill. Default: 5s.
	StopTimeout time.Duration

	// PollInterval is the health polling period. Default: 250ms.
	PollInterval time.Duration
}

// Configured reports whether a command is set.
func (c Config) Configured() bool {
	return len(c.Command) > 0 && c.Command[0] != ""
}

// Option configures a [Manager].
type Option func(*Manager)

// WithHTTPClient sets the client used for health checks.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

// Manager owns at most one detector process. It is safe for concurrent use.
type Manager struct {
	cfg    Config
	client *http.Client

	// opMu serialises Start and Stop.
	opMu sync.Mutex

	mu   sync.Mutex
	proc *process
}

type process struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error // valid once done is closed
}

// New creates a manager. No process is started until [Manager.Start].
func New(cfg Config, opts ...Option) *Manager {
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = defaultStartTimeout
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	m := &Manager{cfg: cfg, client: &http.Client{Timeout: 2 * time.Second}}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Configured reports whether the detector can be started.
func (m *Manager) Configured() bool { return m.cfg.Configured() }

// ServerURL returns the detector's base URL.
func (m *Manager) ServerURL() string { return m.cfg.ServerURL }

// Running reports whether a healthy detector process is alive.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proc != nil
}

// Start launches the detector unless it is already running and waits until
// it reports healthy. On failure the process is stopped again.
func (m *Manager) Start(ctx context.Context) error {
	if !m.cfg.Configured() {
		return ErrNotConfigured
	}
	m.opMu.Lock()
	defer m.opMu.Unlock()
	if m.Running() {
		return nil
	}

	cmd := exec.Command(m.cfg.Command[0], m.cfg.Command[1:]...)
	cmd.Dir = m.cfg.Dir
	if len(m.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), m.cfg.Env...)
	}
	cmd.Stdout = logWriter{stream: "stdout"}
	cmd.Stderr = logWriter{stream: "stderr"}
	cmd.WaitDelay = time.Second
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("headpose: start %q: %w", m.cfg.Command[0], err)
	}

	p := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
		m.mu.Lock()
		if m.proc == p {
			m.proc = nil
			slog.Warn("head pose detector exited", "err", p.err)
		}
		m.mu.Unlock()
	}()

	if err := m.waitHealthy(ctx, p); err != nil {
		_ = m.terminate(context.Background(), p)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-p.done:
		return fmt.Errorf("%w: %v", ErrExited, p.err)
	default:
	}
	m.proc = p
	slog.Info("head pose detector started", "pid", cmd.Process.Pid, "server_url", m.cfg.ServerURL)
	return nil
}

// Stop interrupts the running detector and waits for it to exit, killing it
// after the stop timeout or when ctx ends. Stopping an idle manager is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	p := m.proc
	m.proc = nil
	m.mu.Unlock()
	if p == nil {
		return nil
	}
	err := m.terminate(ctx, p)
	slog.Info("head pose detector stopped")
	return err
}

// Close stops the detector. It satisfies the app's closer signature.
func (m *Manager) Close(ctx context.Context) error { return m.Stop(ctx) }

func (m *Manager) waitHealthy(ctx context.Context, p *process) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.StartTimeout)
	defer cancel()

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if m.healthy(ctx) {
			return nil
		}
		select {
		case <-p.done:
			return fmt.Errorf("%w: %v", ErrExited, p.err)
		case <-ctx.Done():
			return fmt.Errorf("headpose: waiting for %s/health: %w", m.cfg.ServerURL, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (m *Manager) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.ServerURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// terminate interrupts p, then kills it after the stop timeout or when ctx
// ends, and waits for the process to be reaped.
func (m *Manager) terminate(ctx context.Context, p *process) error {
	if err := p.cmd.Process.Signal(os.Interrupt); err == nil {
		timer := time.NewTimer(m.cfg.StopTimeout)
		defer timer.Stop()
		select {
		case <-p.done:
			return nil
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	_ = p.cmd.Process.Kill()
	<-p.done
	return ctx.Err()
}

// logWriter forwards detector output to the debug log line by line.
type logWriter struct{ stream string }

func (w logWriter) Write(b []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(b), "\n"), "\n") {
		if line != "" {
			slog.Debug("head pose detector", "stream", w.stream, "line", line)
		}
	}
	return len(b), nil
}
