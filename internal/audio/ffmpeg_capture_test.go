package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wordcast/internal/ports"
)

func TestFFMPEGCaptureStartReadAndStop(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'hello'\nsleep 2\n")
	capture := NewFFMPEGCapture(script, nil)

	session, err := capture.Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	buf := make([]byte, 8)
	n, readErr := session.Read(buf)
	if n <= 0 {
		t.Fatalf("expected audio bytes, got n=%d err=%v", n, readErr)
	}
	if !strings.Contains(string(buf[:n]), "hello") {
		t.Fatalf("unexpected bytes: %q", string(buf[:n]))
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestFFMPEGCaptureStartEarlyExit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'boom' 1>&2\nexit 1\n")
	capture := NewFFMPEGCapture(script, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := capture.Start(ctx, ports.AudioConfig{})
	if err == nil {
		t.Fatalf("expected early exit error")
	}
	if !strings.Contains(err.Error(), "exited before capture started") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCaptureArgsDefaults(t *testing.T) {
	t.Parallel()

	args := strings.Join(captureArgs(ports.AudioConfig{}), " ")
	for _, want := range []string{"-f pulse", "-i default", "-ac 1", "-ar 16000", "-f s16le -"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in args: %s", want, args)
		}
	}
}

func TestCaptureArgsOverrides(t *testing.T) {
	t.Parallel()

	args := strings.Join(captureArgs(ports.AudioConfig{
		SampleRate:  48000,
		Channels:    2,
		InputFormat: "alsa",
		InputDevice: "hw:1",
	}), " ")
	for _, want := range []string{"-f alsa", "-i hw:1", "-ac 2", "-ar 48000"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in args: %s", want, args)
		}
	}
}

func TestNormalizeStopErrExitErrorIsIgnored(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-lc", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := normalizeStopErr(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
}

func TestTailBufferKeepsLastBytes(t *testing.T) {
	t.Parallel()

	b := &tailBuffer{limit: 8}
	_, _ = b.Write([]byte("  first line\n"))
	_, _ = b.Write([]byte("tail\n"))
	if got := b.String(); got != "ne\ntail" {
		t.Fatalf("unexpected tail: %q", got)
	}

	empty := &tailBuffer{limit: 8}
	if got := empty.String(); got != "" {
		t.Fatalf("expected empty tail, got %q", got)
	}
}

func TestFFMPEGCaptureStopKillsStubbornRecorder(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "stubborn.sh", "#!/usr/bin/env bash\ntrap '' INT\nwhile true; do printf 'x'; sleep 0.05; done\n")
	session, err := NewFFMPEGCapture(script, nil).Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	started := time.Now()
	if err := session.Stop(); err != nil {
		t.Fatalf("expected killed recorder to stop cleanly, got %v", err)
	}
	if elapsed := time.Since(started); elapsed < stopTimeout {
		t.Fatalf("expected stop to wait for the interrupt timeout, took %s", elapsed)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second stop must be a no-op, got %v", err)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
