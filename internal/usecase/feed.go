package usecase

import (
	"io"
	"sync"
)

// ChunkFeed continuously drains a capture stream and fans chunks out to
// subscribers. The capture process writes whether or not anyone is
// recording, so the feed always consumes; subscribers tap the flow and can
// come and go without stalling the pipe. A slow subscriber loses chunks
// rather than blocking the others.
type ChunkFeed struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}

	done chan struct{}
	err  error
}

// NewChunkFeed starts draining source in chunkSize reads.
func NewChunkFeed(source io.Reader, chunkSize int) *ChunkFeed {
	if chunkSize < 256 {
		chunkSize = 4096
	}

	feed := &ChunkFeed{
		subs: make(map[*Subscription]struct{}),
		done: make(chan struct{}),
	}
	go feed.drain(source, chunkSize)
	return feed
}

func (f *ChunkFeed) drain(source io.Reader, chunkSize int) {
	buf := make([]byte, chunkSize)
	for {
		n, err := source.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			f.mu.Lock()
			for sub := range f.subs {
				select {
				case sub.ch <- chunk:
				default:
				}
			}
			f.mu.Unlock()
		}
		if err != nil {
			f.mu.Lock()
			if err != io.EOF {
				f.err = err
			}
			for sub := range f.subs {
				close(sub.ch)
				delete(f.subs, sub)
			}
			f.mu.Unlock()
			close(f.done)
			return
		}
	}
}

// Subscribe taps the feed. Cancel the subscription to stop receiving
// chunks for a question that is no longer current.
func (f *ChunkFeed) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 64
	}
	sub := &Subscription{feed: f, ch: make(chan []byte, buffer)}

	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
		close(sub.ch)
	default:
		f.subs[sub] = struct{}{}
	}
	return sub
}

// Done is closed when the underlying capture stream ends.
func (f *ChunkFeed) Done() <-chan struct{} {
	return f.done
}

// Err reports why the stream ended, nil for a clean EOF.
func (f *ChunkFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Subscription is one tap on a chunk feed. It doubles as an io.Reader for
// consumers that want a byte stream instead of discrete chunks.
type Subscription struct {
	feed *ChunkFeed
	ch   chan []byte

	cancelOnce sync.Once
	leftover   []byte
}

// Chunks delivers capture chunks in arrival order.
func (s *Subscription) Chunks() <-chan []byte {
	return s.ch
}

// Cancel detaches the subscription from the feed.
func (s *Subscription) Cancel() {
	s.cancelOnce.Do(func() {
		s.feed.mu.Lock()
		if _, ok := s.feed.subs[s]; ok {
			delete(s.feed.subs, s)
			close(s.ch)
		}
		s.feed.mu.Unlock()
	})
}

// Read implements io.Reader over the chunk channel.
func (s *Subscription) Read(p []byte) (int, error) {
	for len(s.leftover) == 0 {
		chunk, ok := <-s.ch
		if !ok {
			return 0, io.EOF
		}
		s.leftover = chunk
	}

	n := copy(p, s.leftover)
	s.leftover = s.leftover[n:]
	return n, nil
}
