package ports

import (
	"context"
	"io"

	"greenroom/internal/domain"
)

// MediaConfig describes how the camera and microphone should be captured.
type MediaConfig struct {
	VideoFormat string
	VideoDevice string
	AudioFormat string
	AudioDevice string
	SampleRate  int
	Channels    int
	FrameRate   int
}

// MediaSession is a live combined audio+video capture session. Video is
// the muxed WebM feed consumed by the recorder; Audio is a raw PCM tap
// observed passively by the voice monitor and the speech recognizer.
type MediaSession interface {
	Video() io.Reader
	Audio() io.Reader
	Stop() error
}

// MediaCapture acquires camera/microphone capture sessions.
type MediaCapture interface {
	Acquire(ctx context.Context, cfg MediaConfig) (MediaSession, error)
}

// CueHandle is one playing narration cue or review clip.
type CueHandle interface {
	// Done is closed when playback reaches its natural end or is stopped.
	Done() <-chan struct{}
	Stop() error
	Err() error
}

// CuePlayer plays named narration assets and recorded answer files.
type CuePlayer interface {
	PlayCue(ctx context.Context, name string) (CueHandle, error)
	PlayFile(ctx context.Context, path string) (CueHandle, error)
}

// StreamingConfig describes provider-agnostic speech streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	Language       string
	InterimResults bool
	Keywords       []string
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// CommandMatcher classifies a noisy transcript into an interview intent.
type CommandMatcher interface {
	Match(transcript string) domain.Intent
}

// InterviewBackend is the REST collaborator scoping one interview attempt.
type InterviewBackend interface {
	Login(ctx context.Context) (string, error)
	StartInterview(ctx context.Context) (string, error)
	SubmitAnswer(ctx context.Context, chatID string, downloadURL string, questionText string) error
	FinishInterview(ctx context.Context, chatID string) error
	FetchResult(ctx context.Context, chatID string) (domain.InterviewResult, error)
	PollResult(ctx context.Context, chatID string) (domain.InterviewResult, error)
}

// UploadProgressFunc observes byte-level upload progress.
type UploadProgressFunc func(percent int, loaded string, total string)

// RecordingUploader pushes a finalized recording to object storage and
// registers the answer. It returns the public download URL.
type RecordingUploader interface {
	Upload(ctx context.Context, chatID string, recording domain.Recording, questionText string, progress UploadProgressFunc) (string, error)
}

// VoiceMonitor derives a talking signal from a PCM source. Attach
// supersedes any prior sampling loop for the same speaker.
type VoiceMonitor interface {
	Attach(ctx context.Context, speaker domain.Speaker, source io.Reader)
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	StepChanged(index int, step domain.ScriptStep)
	QuestionChanged(index int, question domain.Question)
	PreviewChanged(preview domain.Preview)
	RecordingSaved(recording domain.Recording)
	UploadProgressed(progress domain.UploadProgress)
	VoiceActivity(activity domain.VoiceActivity)
	PartialTranscript(text string)
	ResultReady(result domain.InterviewResult)
	SessionError(code domain.ErrorCode, detail string)
}
