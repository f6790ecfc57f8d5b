package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"greenroom/internal/ports"
)

// FFplayPlayer plays narration cues and recorded answers with ffplay.
// Completion is the process exiting (-autoexit), which is the narration
// "ended" event the script machine chains on.
type FFplayPlayer struct {
	command string
	cueDir  string
}

func NewFFplayPlayer(command string, cueDir string) *FFplayPlayer {
	if command == "" {
		command = "ffplay"
	}
	return &FFplayPlayer{command: command, cueDir: cueDir}
}

// PlayCue plays a named narration asset without a video window.
func (p *FFplayPlayer) PlayCue(ctx context.Context, name string) (ports.CueHandle, error) {
	path := filepath.Join(p.cueDir, filepath.Base(name))
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("narration cue %q is missing: %w", name, err)
	}
	return p.play(ctx, path, true)
}

// PlayFile plays a recorded answer file with its video window.
func (p *FFplayPlayer) PlayFile(ctx context.Context, path string) (ports.CueHandle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("recording %q is missing: %w", path, err)
	}
	return p.play(ctx, path, false)
}

func (p *FFplayPlayer) play(ctx context.Context, path string, audioOnly bool) (ports.CueHandle, error) {
	args := []string{"-hide_banner", "-loglevel", "error", "-autoexit"}
	if audioOnly {
		args = append(args, "-nodisp")
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, p.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start playback: %w", err)
	}

	handle := &playbackHandle{
		process: cmd.Process,
		done:    make(chan struct{}),
	}

	go func() {
		err := cmd.Wait()
		handle.setErr(normalizePlaybackErr(err, stderr.String()))
		close(handle.done)
	}()

	return handle, nil
}

type playbackHandle struct {
	process *os.Process
	done    chan struct{}

	stopOnce sync.Once

	errMu sync.Mutex
	err   error
}

func (h *playbackHandle) Done() <-chan struct{} {
	return h.done
}

// Stop interrupts playback early. The done channel still closes through
// the process exit, so waiters never hang.
func (h *playbackHandle) Stop() error {
	h.stopOnce.Do(func() {
		if h.process != nil {
			_ = h.process.Signal(os.Interrupt)
		}
	})
	<-h.done
	return h.Err()
}

func (h *playbackHandle) Err() error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.err
}

func (h *playbackHandle) setErr(err error) {
	if err == nil {
		return
	}
	h.errMu.Lock()
	defer h.errMu.Unlock()
	if h.err == nil {
		h.err = err
	}
}

func normalizePlaybackErr(err error, stderr string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// interrupted playback is not a failure
		return nil
	}
	if stderr != "" {
		return fmt.Errorf("%w: %s", err, stderr)
	}
	return err
}
