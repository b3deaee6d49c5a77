package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"transmux/internal/config"
	"transmux/internal/logging"
	"transmux/internal/services"
)

// Request describes one stage execution.
type Request struct {
	Stage   string
	Profile string
	JobDir  string
	// Inputs maps logical artifact names to resolved absolute paths.
	Inputs    map[string]string
	OutputDir string
	LogDir    string
	Timeout   time.Duration
	Debug     bool
}

// Result captures the structured outcome of one subprocess execution.
type Result struct {
	ExitCode int
	Duration time.Duration
	TimedOut bool
	LogPath  string
}

// Dispatcher executes stages as independent subprocesses inside isolated
// runtime profiles. Profiles own mutually incompatible dependency trees, so
// nothing here ever loads stage code into the orchestrator's address space.
type Dispatcher struct {
	profiles      map[string]config.Runtime
	logger        *slog.Logger
	retryAttempts int
	retryBase     time.Duration
	termGrace     time.Duration
	sleeper       func(time.Duration)
}

// Option customizes dispatcher behavior.
type Option func(*Dispatcher)

// WithSleeper overrides how retry backoff sleeps are performed (tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(d *Dispatcher) {
		if sleeper != nil {
			d.sleeper = sleeper
		}
	}
}

// New constructs a dispatcher from the configured runtime profiles.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		profiles:      cfg.Runtimes,
		logger:        logging.NewComponentLogger(logger, "dispatcher"),
		retryAttempts: cfg.Workflow.RetryAttempts,
		retryBase:     time.Duration(cfg.Workflow.RetryBaseDelayMS) * time.Millisecond,
		termGrace:     time.Duration(cfg.Workflow.TermGraceSeconds) * time.Second,
		sleeper:       time.Sleep,
	}
	if d.retryBase <= 0 {
		d.retryBase = 500 * time.Millisecond
	}
	if d.termGrace <= 0 {
		d.termGrace = 10 * time.Second
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes the stage once and classifies the outcome. Timeouts are
// reported distinct from non-zero exits: the subprocess tree receives
// SIGTERM, then SIGKILL after the grace period.
func (d *Dispatcher) Run(ctx context.Context, req Request) (Result, error) {
	profile, ok := d.profiles[req.Profile]
	if !ok {
		return Result{}, services.Wrap(services.ErrConfigInvalid, req.Stage, "dispatch",
			fmt.Sprintf("unknown runtime profile %q", req.Profile), nil)
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, req.Stage, "dispatch", "create output directory", err)
	}
	logDir := req.LogDir
	if logDir == "" {
		logDir = filepath.Join(req.JobDir, "logs")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, req.Stage, "dispatch", "create log directory", err)
	}
	logPath := filepath.Join(logDir, req.Stage+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, req.Stage, "dispatch", "open stage log", err)
	}
	defer logFile.Close()

	script := filepath.Join(profile.ScriptDir, req.Stage+".py")
	cmd := exec.Command(profile.Interpreter, script) //nolint:gosec
	cmd.Dir = req.JobDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = buildEnv(profile, req)
	// Each stage gets its own process group so timeout termination reaches
	// every descendant, not just the interpreter.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{LogPath: logPath}, services.Wrap(services.ErrExternalTool, req.Stage, "dispatch", "start subprocess", err)
	}

	d.logger.Info("stage subprocess started",
		logging.String(logging.FieldStage, req.Stage),
		logging.String("profile", req.Profile),
		logging.String("interpreter", profile.Interpreter),
		logging.String("log_file", logPath),
		logging.Bool("debug", req.Debug),
	)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timer <-chan time.Time
	if req.Timeout > 0 {
		t := time.NewTimer(req.Timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case waitErr := <-done:
		result := Result{
			ExitCode: cmd.ProcessState.ExitCode(),
			Duration: time.Since(start),
			LogPath:  logPath,
		}
		if waitErr == nil {
			d.logger.Debug("stage subprocess exited",
				logging.String(logging.FieldStage, req.Stage),
				logging.Int64("exit_code", int64(result.ExitCode)),
				logging.Duration("elapsed", result.Duration),
			)
			return result, nil
		}
		return result, services.Wrap(services.ErrExternalTool, req.Stage, "dispatch",
			fmt.Sprintf("subprocess exited %d (see %s)", result.ExitCode, logPath), waitErr)

	case <-ctx.Done():
		d.terminate(cmd, done)
		return Result{Duration: time.Since(start), LogPath: logPath}, ctx.Err()

	case <-timer:
		d.logger.Warn("stage exceeded wall-clock budget, terminating process group",
			logging.String(logging.FieldStage, req.Stage),
			logging.Duration("timeout", req.Timeout),
			logging.String(logging.FieldEventType, "stage_timeout"),
		)
		d.terminate(cmd, done)
		result := Result{Duration: time.Since(start), TimedOut: true, ExitCode: -1, LogPath: logPath}
		return result, services.Wrap(services.ErrTimeout, req.Stage, "dispatch",
			fmt.Sprintf("exceeded %s wall-clock budget", req.Timeout), nil)
	}
}

// RunWithRetry wraps Run with the retry policy: a small fixed number of
// attempts with exponential backoff, applied to transient classes only.
// Deterministic failures (bad input, config, non-zero exits) never retry.
func (d *Dispatcher) RunWithRetry(ctx context.Context, req Request) (Result, error) {
	var (
		result  Result
		lastErr error
	)
	delay := d.retryBase
	for attempt := 0; attempt <= d.retryAttempts; attempt++ {
		if attempt > 0 {
			d.logger.Info("retrying stage after transient failure",
				logging.String(logging.FieldStage, req.Stage),
				logging.Int("attempt", attempt+1),
				logging.Duration("backoff", delay),
				logging.Error(lastErr),
			)
			d.sleeper(delay)
			delay *= 2
		}
		result, lastErr = d.Run(ctx, req)
		if lastErr == nil {
			return result, nil
		}
		if errors.Is(lastErr, context.Canceled) || !services.IsRetryable(lastErr) {
			return result, lastErr
		}
	}
	return result, lastErr
}

// terminate delivers SIGTERM to the subprocess group, waits out the grace
// period, then SIGKILLs whatever is left.
func (d *Dispatcher) terminate(cmd *exec.Cmd, done <-chan error) {
	if cmd.Process == nil {
		return
	}
	pgid := cmd.Process.Pid
	_ = unix.Kill(-pgid, unix.SIGTERM)

	select {
	case <-done:
		return
	case <-time.After(d.termGrace):
	}
	_ = unix.Kill(-pgid, unix.SIGKILL)
	<-done
}

// buildEnv assembles the constrained subprocess environment: a minimal host
// passthrough plus the stage contract variables and profile-specific env.
func buildEnv(profile config.Runtime, req Request) []string {
	env := make([]string, 0, 8+len(profile.Env)+len(req.Inputs))
	for _, key := range []string{"PATH", "HOME", "LANG", "TMPDIR"} {
		if value, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+value)
		}
	}
	for key, value := range profile.Env {
		env = append(env, key+"="+value)
	}

	env = append(env,
		"TRANSMUX_JOB_DIR="+req.JobDir,
		"TRANSMUX_STAGE="+req.Stage,
		"TRANSMUX_OUTPUT_DIR="+req.OutputDir,
	)
	if req.Debug {
		env = append(env, "TRANSMUX_DEBUG=1")
	}

	names := make([]string, 0, len(req.Inputs))
	for name := range req.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		env = append(env, "TRANSMUX_INPUT_"+envKey(name)+"="+req.Inputs[name])
	}
	return env
}

func envKey(artifact string) string {
	upper := strings.ToUpper(artifact)
	var builder strings.Builder
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			builder.WriteRune(r)
		} else {
			builder.WriteRune('_')
		}
	}
	return builder.String()
}
