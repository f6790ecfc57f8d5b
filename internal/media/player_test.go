package media

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestPlayCueRequiresExistingAsset(t *testing.T) {
	t.Parallel()

	player := NewFFplayPlayer("ffplay", t.TempDir())
	if _, err := player.PlayCue(context.Background(), "opening.mp3"); err == nil {
		t.Fatalf("expected missing cue error")
	}
}

func TestPlayFileRequiresExistingRecording(t *testing.T) {
	t.Parallel()

	player := NewFFplayPlayer("ffplay", t.TempDir())
	if _, err := player.PlayFile(context.Background(), filepath.Join(t.TempDir(), "gone.webm")); err == nil {
		t.Fatalf("expected missing recording error")
	}
}

func TestPlayCueStripsPathTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "closing.mp3"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// the cue name is reduced to its base before the directory join
	player := NewFFplayPlayer("true", dir)
	handle, err := player.PlayCue(context.Background(), "../../closing.mp3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-handle.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("playback never finished")
	}
	if handle.Err() != nil {
		t.Fatalf("unexpected playback error: %v", handle.Err())
	}
}

func TestNormalizePlaybackErr(t *testing.T) {
	t.Parallel()

	if err := normalizePlaybackErr(nil, ""); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := normalizePlaybackErr(&exec.ExitError{}, "interrupted"); err != nil {
		t.Fatalf("interrupted playback must not surface an error, got %v", err)
	}

	boom := errors.New("spawn failed")
	if err := normalizePlaybackErr(boom, "detail"); err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestPlaybackHandleFirstErrorWins(t *testing.T) {
	t.Parallel()

	handle := &playbackHandle{done: make(chan struct{})}
	handle.setErr(errors.New("first"))
	handle.setErr(errors.New("second"))
	close(handle.done)

	if handle.Err() == nil || handle.Err().Error() != "first" {
		t.Fatalf("expected first error to win, got %v", handle.Err())
	}
}
