package usecase

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"greenroom/internal/domain"
	"greenroom/internal/ports"
)

var (
	ErrNoMediaStream = errors.New("no live media stream")
	ErrNotRecording  = errors.New("no active recording")
)

// Recorder is the per-question recording lifecycle: idle, recording, idle.
// Start taps the capture feed and buffers chunks; Stop flushes the buffer
// into a Recording and upserts the store, replacing any prior answer for
// the same question. If the capture stream dies mid-recording the buffered
// chunks are still flushed on Stop rather than discarded.
type Recorder struct {
	store  *RecordingStore
	events ports.EventSink
	dir    string

	mu     sync.Mutex
	active *activeRecording
}

type activeRecording struct {
	questionID int
	sub        *Subscription
	done       chan struct{}

	chunksMu sync.Mutex
	chunks   [][]byte
}

func NewRecorder(store *RecordingStore, events ports.EventSink, dir string) *Recorder {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Recorder{store: store, events: events, dir: dir}
}

// Start begins buffering the feed for one question. A nil feed is the
// no-stream guard. Starting while another recording is active supersedes
// it; the superseded buffer is discarded, never finalized.
func (r *Recorder) Start(feed *ChunkFeed, questionID int) error {
	if feed == nil {
		return ErrNoMediaStream
	}

	r.mu.Lock()
	previous := r.active
	r.active = nil
	r.mu.Unlock()

	if previous != nil {
		previous.discard()
	}

	active := &activeRecording{
		questionID: questionID,
		sub:        feed.Subscribe(0),
		done:       make(chan struct{}),
	}

	go func() {
		defer close(active.done)
		for chunk := range active.sub.Chunks() {
			active.chunksMu.Lock()
			active.chunks = append(active.chunks, chunk)
			active.chunksMu.Unlock()
		}
	}()

	r.mu.Lock()
	r.active = active
	r.mu.Unlock()
	return nil
}

// Active returns the question currently being recorded.
func (r *Recorder) Active() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return 0, false
	}
	return r.active.questionID, true
}

// Stop detaches from the feed, finalizes buffered chunks into a Recording,
// and stores it. No-op error unless currently recording.
func (r *Recorder) Stop() (domain.Recording, error) {
	r.mu.Lock()
	active := r.active
	r.active = nil
	r.mu.Unlock()

	if active == nil {
		return domain.Recording{}, ErrNotRecording
	}

	active.sub.Cancel()
	<-active.done

	active.chunksMu.Lock()
	var size int
	for _, chunk := range active.chunks {
		size += len(chunk)
	}
	data := make([]byte, 0, size)
	for _, chunk := range active.chunks {
		data = append(data, chunk...)
	}
	active.chunks = nil
	active.chunksMu.Unlock()

	path := filepath.Join(r.dir, fmt.Sprintf("greenroom-%s.webm", uuid.NewString()))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return domain.Recording{}, fmt.Errorf("failed to write recording file: %w", err)
	}

	recording := domain.Recording{
		QuestionID: active.questionID,
		Data:       data,
		Path:       path,
	}
	r.store.Upsert(recording)
	r.events.RecordingSaved(recording)
	return recording, nil
}

func (a *activeRecording) discard() {
	a.sub.Cancel()
	<-a.done
	a.chunksMu.Lock()
	a.chunks = nil
	a.chunksMu.Unlock()
}
