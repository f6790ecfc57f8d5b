package media

import (
	"bytes"
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

	"greenroom/internal/ports"
)

var (
	// ErrPermissionDenied indicates the capture devices exist but access
	// was refused.
	ErrPermissionDenied = errors.New("camera/microphone access denied")
	// ErrDeviceUnavailable indicates the capture devices could not be
	// opened at all.
	ErrDeviceUnavailable = errors.New("camera/microphone unavailable")
)

// FFmpegCapture acquires combined camera+microphone sessions using ffmpeg.
// One process produces the muxed WebM stream on stdout and a raw PCM tap
// on an extra pipe so the recorder, voice monitor, and recognizer share a
// single device grab.
type FFmpegCapture struct {
	command string
}

func NewFFmpegCapture(command string) *FFmpegCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFmpegCapture{command: command}
}

func (c *FFmpegCapture) Acquire(ctx context.Context, cfg ports.MediaConfig) (ports.MediaSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 30
	}
	if cfg.VideoFormat == "" {
		cfg.VideoFormat = "v4l2"
	}
	if cfg.VideoDevice == "" {
		cfg.VideoDevice = "/dev/video0"
	}
	if cfg.AudioFormat == "" {
		cfg.AudioFormat = "pulse"
	}
	if cfg.AudioDevice == "" {
		cfg.AudioDevice = "default"
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.VideoFormat,
		"-framerate", strconv.Itoa(cfg.FrameRate),
		"-i", cfg.VideoDevice,
		"-f", cfg.AudioFormat,
		"-i", cfg.AudioDevice,
		// muxed recorder/preview feed
		"-map", "0:v", "-map", "1:a",
		"-c:v", "libvpx", "-deadline", "realtime",
		"-c:a", "libopus",
		"-f", "webm", "pipe:1",
		// PCM tap for voice activity and speech recognition
		"-map", "1:a",
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le", "pipe:3",
	}

	pcmRead, pcmWrite, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pcm pipe: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.ExtraFiles = []*os.File{pcmWrite}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		closePipe(pcmRead, pcmWrite)
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		closePipe(pcmRead, pcmWrite)
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	// parent copy; the child holds its own descriptor
	_ = pcmWrite.Close()

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		_ = pcmRead.Close()
		return nil, classifyStartFailure(err, stderr.String())
	case <-time.After(250 * time.Millisecond):
	}

	return &captureSession{
		video:   stdout,
		audio:   pcmRead,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

type captureSession struct {
	video  io.ReadCloser
	audio  io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *captureSession) Video() io.Reader { return s.video }
func (s *captureSession) Audio() io.Reader { return s.audio }

func (s *captureSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok := <-s.waitErr
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		for _, closer := range []io.Closer{s.video, s.audio} {
			if closeErr := closer.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				if s.stopErr == nil {
					s.stopErr = closeErr
				}
			}
		}

		if s.stopErr != nil && s.stderr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String()))
		}
	})

	return s.stopErr
}

func classifyStartFailure(err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	lowered := strings.ToLower(detail)

	base := ErrDeviceUnavailable
	if strings.Contains(lowered, "permission denied") || strings.Contains(lowered, "not authorized") {
		base = ErrPermissionDenied
	}

	if err == nil && detail == "" {
		return fmt.Errorf("%w: ffmpeg exited before capture started", base)
	}
	if detail == "" {
		return fmt.Errorf("%w: %v", base, err)
	}
	return fmt.Errorf("%w: %s", base, detail)
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func closePipe(read, write *os.File) {
	_ = read.Close()
	_ = write.Close()
}
