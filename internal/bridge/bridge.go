package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/iris-tools-mcp/internal/wire"
)

// DefaultDeadline bounds a single engine run.
const DefaultDeadline = 30 * time.Second

// reapTimeout bounds the wait for a killed engine to be reaped.
const reapTimeout = 5 * time.Second

// Options configures a Bridge.
type Options struct {
	// Locator finds the engine. Required.
	Locator EngineLocator

	// Launcher is the command prefix, e.g. ["java", "-jar"]. Empty selects
	// one from the engine's file extension.
	Launcher []string

	// Deadline bounds each run. Zero means DefaultDeadline.
	Deadline time.Duration

	// Env is appended to the inherited environment of the engine.
	Env []string

	Logger *slog.Logger
}

// Bridge runs the detection engine as a child process, one per request.
// A Bridge holds no per-request state and is safe for concurrent use.
type Bridge struct {
	locator  EngineLocator
	launcher []string
	deadline time.Duration
	env      []string
	logger   *slog.Logger
}

// New creates a Bridge.
func New(opts Options) *Bridge {
	b := &Bridge{
		locator:  opts.Locator,
		launcher: opts.Launcher,
		deadline: opts.Deadline,
		env:      opts.Env,
		logger:   opts.Logger,
	}
	if b.deadline <= 0 {
		b.deadline = DefaultDeadline
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Deadline returns the per-run deadline.
func (b *Bridge) Deadline() time.Duration {
	return b.deadline
}

// EnginePath locates the engine without running it.
func (b *Bridge) EnginePath() (string, error) {
	if b.locator == nil {
		return "", NewNotFoundError(nil)
	}
	return b.locator.Locate()
}

// Analyze runs the engine on payload and returns the decoded result.
//
// The engine is killed and reaped when the deadline passes (KindTimeout) or
// ctx is canceled (KindCanceled). A well-formed rejection from the engine is
// returned as a KindRejected *Error. Analyze never retries.
func (b *Bridge) Analyze(ctx context.Context, payload wire.Payload) (wire.DetectionResult, error) {
	requestID := uuid.NewString()
	log := b.logger.With("request_id", requestID)

	result, err := b.analyze(ctx, log, payload)
	if err != nil {
		var be *Error
		if errors.As(err, &be) {
			be.RequestID = requestID
			if be.Kind == KindRejected {
				log.Info("engine rejected image", "code", be.Code, "message", be.Message)
			} else {
				log.Warn("analysis failed", "kind", be.Kind, "error", err)
			}
		}
		return wire.DetectionResult{}, err
	}
	return result, nil
}

func (b *Bridge) analyze(ctx context.Context, log *slog.Logger, payload wire.Payload) (wire.DetectionResult, error) {
	enginePath, err := b.EnginePath()
	if err != nil {
		return wire.DetectionResult{}, err
	}

	argv := append(append([]string{}, LauncherFor(enginePath, b.launcher)...), enginePath)
	log.Debug("starting engine", "argv", argv, "payload_bytes", len(payload), "deadline", b.deadline)

	start := time.Now()
	out, err := b.run(ctx, log, argv, wire.EncodeRequest(payload))
	if err != nil {
		return wire.DetectionResult{}, err
	}
	log.Debug("engine exited", "elapsed", time.Since(start), "stdout_bytes", len(out.stdout), "stderr_bytes", len(out.stderr))

	if out.exitCode != 0 {
		return wire.DetectionResult{}, &Error{
			Kind:     KindEngineFailure,
			Message:  "engine exited with an error",
			ExitCode: out.exitCode,
			Stderr:   string(out.stderr),
			Stdout:   string(out.stdout),
		}
	}

	resp, err := wire.DecodeResponse(bytes.TrimSpace(out.stdout))
	if err != nil {
		return wire.DetectionResult{}, &Error{
			Kind:    KindParseFailure,
			Message: "engine output is not a valid response",
			Raw:     string(out.stdout),
			Stderr:  string(out.stderr),
			Err:     err,
		}
	}
	if resp.Rejection != nil {
		return wire.DetectionResult{}, NewRejectedError(resp.Rejection.ErrorCode, resp.Rejection.Message)
	}

	log.Info("analysis complete", "elapsed", time.Since(start))
	return *resp.Result, nil
}

// runOutput is what a completed engine run produced.
type runOutput struct {
	stdout   []byte
	stderr   []byte
	exitCode int
}

// run starts argv, feeds it input and collects its output. The stdin writer
// and the two drains run concurrently, so an engine that fills a pipe before
// reading its input cannot deadlock the exchange.
func (b *Bridge) run(ctx context.Context, log *slog.Logger, argv []string, input []byte) (runOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, b.deadline)
	defer cancel()

	cmd := exec.Command(argv[0], argv[1:]...)
	if len(b.env) > 0 {
		cmd.Env = append(os.Environ(), b.env...)
	}
	isolate(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return runOutput{}, spawnError(argv, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return runOutput{}, spawnError(argv, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return runOutput{}, spawnError(argv, err)
	}

	if err := cmd.Start(); err != nil {
		return runOutput{}, spawnError(argv, err)
	}
	log.Debug("engine started", "pid", cmd.Process.Pid)

	var outBuf, errBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		defer stdin.Close()
		if _, err := stdin.Write(input); err != nil && !isBrokenPipe(err) {
			return fmt.Errorf("failed to write payload: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := io.Copy(&outBuf, stdout); err != nil {
			return fmt.Errorf("failed to read stdout: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := io.Copy(&errBuf, stderr); err != nil {
			return fmt.Errorf("failed to read stderr: %w", err)
		}
		return nil
	})

	// Wait must not be called before the drains have finished reading.
	exited := make(chan error, 1)
	go func() {
		ioErr := g.Wait()
		waitErr := cmd.Wait()
		if waitErr == nil && ioErr != nil {
			waitErr = ioErr
		}
		exited <- waitErr
	}()

	select {
	case err := <-exited:
		return classifyExit(argv, err, outBuf.Bytes(), errBuf.Bytes())

	case <-ctx.Done():
		if err := killTree(cmd); err != nil {
			log.Warn("failed to kill engine", "pid", cmd.Process.Pid, "error", err)
		}
		// A process that escaped the group may still hold the write ends.
		// Closing our ends stops the writer and the drains so the engine can
		// be reaped.
		stdin.Close()
		stdout.Close()
		stderr.Close()
		select {
		case <-exited:
		case <-time.After(reapTimeout):
			log.Warn("engine not reaped after kill", "pid", cmd.Process.Pid)
		}

		if errors.Is(ctx.Err(), context.Canceled) {
			return runOutput{}, &Error{
				Kind:    KindCanceled,
				Message: "analysis canceled",
				Err:     ctx.Err(),
			}
		}
		return runOutput{}, &Error{
			Kind:     KindTimeout,
			Message:  fmt.Sprintf("engine did not finish within %s", b.deadline),
			Deadline: b.deadline,
			Err:      ctx.Err(),
		}
	}
}

func classifyExit(argv []string, err error, stdout, stderr []byte) (runOutput, error) {
	out := runOutput{stdout: stdout, stderr: stderr}
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// -1 when the engine was terminated by a signal
		out.exitCode = exitErr.ExitCode()
		return out, nil
	}

	return runOutput{}, &Error{
		Kind:     KindEngineFailure,
		Message:  fmt.Sprintf("engine %s failed", argv[len(argv)-1]),
		ExitCode: -1,
		Stderr:   string(stderr),
		Stdout:   string(stdout),
		Err:      err,
	}
}

func spawnError(argv []string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return &Error{
			Kind:    KindEngineNotFound,
			Message: fmt.Sprintf("cannot start %s", argv[0]),
			Checked: argv[:1],
			Err:     err,
		}
	}
	return &Error{
		Kind:     KindEngineFailure,
		Message:  "failed to start engine",
		ExitCode: -1,
		Err:      err,
	}
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed)
}
