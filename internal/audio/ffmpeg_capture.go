package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"wordcast/internal/ports"
)

const (
	// startupGrace is how long the recorder must stay alive before capture counts as started.
	startupGrace = 250 * time.Millisecond
	stopTimeout  = 1200 * time.Millisecond
	stderrLimit  = 4096
)

// FFMPEGCapture records the microphone as raw s16le PCM through an ffmpeg
// child process.
type FFMPEGCapture struct {
	command string
	log     *zap.Logger
}

func NewFFMPEGCapture(command string, log *zap.Logger) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FFMPEGCapture{command: command, log: log}
}

func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	args := captureArgs(cfg)

	cmd := exec.CommandContext(ctx, c.command, args...)
	stderr := &tailBuffer{limit: stderrLimit}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("recorder stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start recorder %q: %w", c.command, err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	select {
	case err := <-exited:
		if detail := stderr.String(); detail != "" {
			return nil, fmt.Errorf("recorder exited before capture started: %v: %s", err, detail)
		}
		return nil, fmt.Errorf("recorder exited before capture started: %v", err)
	case <-time.After(startupGrace):
	}

	c.log.Debug("microphone capture started",
		zap.String("command", c.command),
		zap.Int("pid", cmd.Process.Pid),
		zap.Strings("args", args),
	)
	return &ffmpegSession{
		log:     c.log,
		stdout:  stdout,
		stderr:  stderr,
		process: cmd.Process,
		exited:  exited,
	}, nil
}

type ffmpegSession struct {
	log    *zap.Logger
	stdout io.ReadCloser
	stderr *tailBuffer

	process *os.Process
	exited  <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegSession) Close() error {
	return s.Stop()
}

// Stop interrupts the recorder so it flushes, killing it if it does not exit in time.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		_ = s.process.Signal(os.Interrupt)

		var waitErr error
		select {
		case waitErr = <-s.exited:
		case <-time.After(stopTimeout):
			s.log.Warn("recorder ignored interrupt; killing", zap.Int("pid", s.process.Pid))
			_ = s.process.Kill()
			waitErr = <-s.exited
		}
		s.stopErr = normalizeStopErr(waitErr)

		if err := s.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = err
		}
		if s.stopErr != nil {
			if detail := s.stderr.String(); detail != "" {
				s.stopErr = fmt.Errorf("%w: %s", s.stopErr, detail)
			}
		}
	})
	return s.stopErr
}

// captureArgs builds ffmpeg arguments producing raw s16le PCM on stdout.
func captureArgs(cfg ports.AudioConfig) []string {
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	format := cfg.InputFormat
	if format == "" {
		format = "pulse"
	}
	device := cfg.InputDevice
	if device == "" {
		device = "default"
	}

	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", format,
		"-i", device,
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	}
}

// normalizeStopErr drops the exit status ffmpeg reports after being interrupted.
func normalizeStopErr(err error) error {
	var exitErr *exec.ExitError
	if err == nil || errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// tailBuffer keeps the last limit bytes written to it. exec writes stderr from
// its own goroutine, so access is locked.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; b.limit > 0 && over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
