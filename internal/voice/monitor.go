package voice

import (
	"context"
	"io"
	"sync"
	"time"

	"greenroom/internal/domain"
	"greenroom/internal/ports"
)

// Monitor derives a talking/silence signal from s16le PCM by averaging
// sample magnitudes per frame, mirroring the mean-of-bins heuristic the
// talking indicator uses. One loop runs per speaker; attaching a new
// source supersedes the previous loop instead of stacking with it.
type Monitor struct {
	events    ports.EventSink
	threshold float64
	interval  time.Duration

	sampleRate int
	channels   int

	mu      sync.Mutex
	cancels map[domain.Speaker]context.CancelFunc
}

func NewMonitor(events ports.EventSink, sampleRate int, channels int, threshold float64, interval time.Duration) *Monitor {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if channels <= 0 {
		channels = 1
	}
	if threshold <= 0 {
		threshold = 0.02
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &Monitor{
		events:     events,
		threshold:  threshold,
		interval:   interval,
		sampleRate: sampleRate,
		channels:   channels,
		cancels:    make(map[domain.Speaker]context.CancelFunc),
	}
}

// Attach starts sampling the source for the given speaker until the source
// ends, the context is cancelled, or a newer Attach replaces it.
func (m *Monitor) Attach(ctx context.Context, speaker domain.Speaker, source io.Reader) {
	loopCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if previous, ok := m.cancels[speaker]; ok {
		previous()
	}
	m.cancels[speaker] = cancel
	m.mu.Unlock()

	go m.sample(loopCtx, speaker, source)
}

// Detach stops the sampling loop for one speaker.
func (m *Monitor) Detach(speaker domain.Speaker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.cancels[speaker]; ok {
		cancel()
		delete(m.cancels, speaker)
	}
}

func (m *Monitor) sample(ctx context.Context, speaker domain.Speaker, source io.Reader) {
	frame := make([]byte, m.frameSize())
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.emit(speaker, 0)
			return
		case <-ticker.C:
		}

		n, err := io.ReadFull(source, frame)
		if n > 0 {
			m.emit(speaker, meanAmplitude(frame[:n]))
		}
		if err != nil {
			if err != io.ErrUnexpectedEOF {
				m.emit(speaker, 0)
				return
			}
		}
	}
}

func (m *Monitor) emit(speaker domain.Speaker, level float64) {
	m.events.VoiceActivity(domain.VoiceActivity{
		Speaker: speaker,
		Level:   level,
		Talking: level > m.threshold,
	})
}

// frameSize is one interval's worth of s16le samples.
func (m *Monitor) frameSize() int {
	samples := int(float64(m.sampleRate*m.channels) * m.interval.Seconds())
	if samples < 160 {
		samples = 160
	}
	return samples * 2
}

// meanAmplitude averages absolute sample magnitudes, normalized to [0, 1].
func meanAmplitude(frame []byte) float64 {
	if len(frame) < 2 {
		return 0
	}

	var sum float64
	count := len(frame) / 2
	for i := 0; i < count*2; i += 2 {
		sample := int16(uint16(frame[i]) | uint16(frame[i+1])<<8)
		value := float64(sample)
		if value < 0 {
			value = -value
		}
		sum += value
	}
	return sum / float64(count) / 32768.0
}
