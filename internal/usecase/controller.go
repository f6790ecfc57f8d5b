package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"greenroom/internal/domain"
	"greenroom/internal/ports"
)

var (
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrNoInterview      = errors.New("interview has not been started")
	ErrAlreadySubmitted = errors.New("interview is already submitted")
	ErrMissingAnswers   = errors.New("not every question has a recording")
	ErrNoRecording      = errors.New("no recording for this question")
)

// Config controls interview session behavior.
type Config struct {
	Media        ports.MediaConfig
	ChunkSize    int
	RecordingDir string
}

// InterviewController owns the session context the presentation variants
// drive: the capture stream and its feeds, the recorder, the question
// cursor, the recording store, and the backend chat. Both the manual
// button flow and the voice-driven script machine go through it.
type InterviewController struct {
	capture  ports.MediaCapture
	player   ports.CuePlayer
	backend  ports.InterviewBackend
	uploader ports.RecordingUploader
	monitor  ports.VoiceMonitor
	events   ports.EventSink
	log      *zap.Logger
	cfg      Config

	store     *RecordingStore
	recorder  *Recorder
	sequencer *QuestionSequencer

	mu        sync.Mutex
	session   ports.MediaSession
	videoFeed *ChunkFeed
	audioFeed *ChunkFeed
	chatID    string
	loggedIn  bool
	submitted bool
	playing   ports.CueHandle
}

func NewInterviewController(
	capture ports.MediaCapture,
	player ports.CuePlayer,
	backend ports.InterviewBackend,
	uploader ports.RecordingUploader,
	monitor ports.VoiceMonitor,
	events ports.EventSink,
	questions []domain.Question,
	cfg Config,
	log *zap.Logger,
) *InterviewController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if log == nil {
		log = zap.NewNop()
	}

	store := NewRecordingStore()
	return &InterviewController{
		capture:   capture,
		player:    player,
		backend:   backend,
		uploader:  uploader,
		monitor:   monitor,
		events:    events,
		log:       log,
		cfg:       cfg,
		store:     store,
		recorder:  NewRecorder(store, events, cfg.RecordingDir),
		sequencer: NewQuestionSequencer(questions, store),
	}
}

// AcquireMedia grabs the camera/microphone, starts the capture feeds, and
// binds the live preview. Failure leaves the session unusable for
// recording; record-start actions then no-op on the missing stream.
func (c *InterviewController) AcquireMedia(ctx context.Context) error {
	session, err := c.capture.Acquire(ctx, c.cfg.Media)
	if err != nil {
		c.events.SessionError(domain.ErrorCodeMedia, err.Error())
		return err
	}

	videoFeed := NewChunkFeed(session.Video(), c.cfg.ChunkSize)
	audioFeed := NewChunkFeed(session.Audio(), c.cfg.ChunkSize)

	c.mu.Lock()
	c.session = session
	c.videoFeed = videoFeed
	c.audioFeed = audioFeed
	c.mu.Unlock()

	if c.monitor != nil {
		c.monitor.Attach(ctx, domain.SpeakerCandidate, audioFeed.Subscribe(0))
	}
	go c.watchCapture(videoFeed)

	c.events.PreviewChanged(domain.Preview{Source: domain.PreviewSourceLive, Muted: true})
	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonCameraReady)
	c.log.Info("media acquired")
	return nil
}

// watchCapture surfaces device loss. A recording in flight is flushed, not
// discarded.
func (c *InterviewController) watchCapture(feed *ChunkFeed) {
	<-feed.Done()

	if err := feed.Err(); err != nil {
		c.events.SessionError(domain.ErrorCodeMedia, fmt.Sprintf("capture stream lost: %v", err))
	}

	if _, recording := c.recorder.Active(); recording {
		if _, err := c.recorder.Stop(); err == nil {
			c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonCaptureLost)
		}
	}

	c.mu.Lock()
	if c.videoFeed == feed {
		c.session = nil
		c.videoFeed = nil
		c.audioFeed = nil
	}
	c.mu.Unlock()
}

// ReleaseMedia stops all capture tracks. Used on teardown and after final
// submission.
func (c *InterviewController) ReleaseMedia() {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.videoFeed = nil
	c.audioFeed = nil
	c.mu.Unlock()

	if session != nil {
		if err := session.Stop(); err != nil {
			c.events.SessionError(domain.ErrorCodeMediaStop, err.Error())
		}
	}
}

// Login authenticates against the interview backend.
func (c *InterviewController) Login(ctx context.Context) error {
	if _, err := c.backend.Login(ctx); err != nil {
		c.events.SessionError(domain.ErrorCodeBackend, err.Error())
		return err
	}
	c.mu.Lock()
	c.loggedIn = true
	c.mu.Unlock()
	return nil
}

// StartInterview opens the backend chat scoping all further calls.
func (c *InterviewController) StartInterview(ctx context.Context) (string, error) {
	c.mu.Lock()
	loggedIn := c.loggedIn
	existing := c.chatID
	c.mu.Unlock()

	if !loggedIn {
		return "", ErrNotLoggedIn
	}
	if existing != "" {
		return existing, nil
	}

	chatID, err := c.backend.StartInterview(ctx)
	if err != nil {
		c.events.SessionError(domain.ErrorCodeBackend, err.Error())
		return "", err
	}

	c.mu.Lock()
	c.chatID = chatID
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateBriefing, domain.SessionReasonInterviewStarted)
	c.log.Info("interview started", zap.String("chat_id", chatID))
	return chatID, nil
}

// BeginAnswer starts recording the current question. No-op guard when no
// media stream is live; recording over an existing answer is the
// record-again path.
func (c *InterviewController) BeginAnswer() error {
	c.mu.Lock()
	feed := c.videoFeed
	submitted := c.submitted
	c.mu.Unlock()

	if submitted {
		return ErrAlreadySubmitted
	}

	_, question := c.sequencer.Current()
	redo := false
	if _, ok := c.store.Get(question.ID); ok {
		redo = true
	}

	// playback may have switched the preview away
	c.events.PreviewChanged(domain.Preview{Source: domain.PreviewSourceLive, Muted: true})

	if err := c.recorder.Start(feed, question.ID); err != nil {
		if errors.Is(err, ErrNoMediaStream) {
			c.log.Warn("begin answer ignored, no media stream")
			return nil
		}
		return err
	}

	reason := domain.SessionReasonRecordingStarted
	if redo {
		reason = domain.SessionReasonRecordingRedone
	}
	c.events.SessionStateChanged(domain.SessionStateRecording, reason)
	c.log.Info("recording started", zap.Int("question", question.ID))
	return nil
}

// StopAnswer finalizes the active recording into the store.
func (c *InterviewController) StopAnswer() (domain.Recording, error) {
	recording, err := c.recorder.Stop()
	if err != nil {
		return domain.Recording{}, err
	}

	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonAnswerSaved)
	c.log.Info("recording saved",
		zap.Int("question", recording.QuestionID),
		zap.Int("bytes", len(recording.Data)),
	)
	return recording, nil
}

// UploadAnswer pushes one question's recording to storage and registers
// the answer, reporting progress keyed by question id. Synchronous; the
// caller decides whether to run it in the background.
func (c *InterviewController) UploadAnswer(ctx context.Context, questionID int) error {
	c.mu.Lock()
	chatID := c.chatID
	c.mu.Unlock()
	if chatID == "" {
		return ErrNoInterview
	}

	recording, ok := c.store.Get(questionID)
	if !ok {
		return ErrNoRecording
	}

	var questionText string
	for _, question := range c.sequencer.Questions() {
		if question.ID == questionID {
			questionText = question.Text
		}
	}

	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonUploadStarted)
	_, err := c.uploader.Upload(ctx, chatID, recording, questionText, func(percent int, loaded string, total string) {
		c.store.SetProgress(questionID, percent)
		c.events.UploadProgressed(domain.UploadProgress{
			QuestionID: questionID,
			Percent:    percent,
			Loaded:     loaded,
			Total:      total,
		})
	})
	if err != nil {
		c.events.SessionError(domain.ErrorCodeUpload, err.Error())
		return err
	}

	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonUploadFinished)
	c.log.Info("answer uploaded", zap.Int("question", questionID))
	return nil
}

// NextQuestion hands the current answer to the uploader, rebinds the live
// preview, and advances the cursor. No-op unless the current question has
// a recording and a next question exists.
func (c *InterviewController) NextQuestion(ctx context.Context) (domain.Question, bool) {
	_, current := c.sequencer.Current()

	next, ok := c.sequencer.Advance()
	if !ok {
		return domain.Question{}, false
	}

	go func() {
		if err := c.UploadAnswer(ctx, current.ID); err != nil {
			c.log.Warn("upload failed", zap.Int("question", current.ID), zap.Error(err))
		}
	}()

	c.events.PreviewChanged(domain.Preview{Source: domain.PreviewSourceLive, Muted: true})
	index, _ := c.sequencer.Current()
	c.events.QuestionChanged(index, next)
	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonQuestionAdvanced)
	return next, true
}

// Submit uploads the final answer, then finishes the interview. The
// finish call is chained strictly after the last upload completes. The
// capture tracks are stopped and the last answer is played back.
func (c *InterviewController) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.submitted {
		c.mu.Unlock()
		return ErrAlreadySubmitted
	}
	chatID := c.chatID
	c.mu.Unlock()

	if chatID == "" {
		return ErrNoInterview
	}
	if !c.store.Complete(c.sequencer.Questions()) {
		return ErrMissingAnswers
	}

	c.mu.Lock()
	c.submitted = true
	c.mu.Unlock()

	_, current := c.sequencer.Current()
	if err := c.UploadAnswer(ctx, current.ID); err != nil {
		c.mu.Lock()
		c.submitted = false
		c.mu.Unlock()
		return err
	}

	if err := c.backend.FinishInterview(ctx, chatID); err != nil {
		c.events.SessionError(domain.ErrorCodeBackend, err.Error())
		return err
	}

	c.events.SessionStateChanged(domain.SessionStateSubmitted, domain.SessionReasonInterviewSubmitted)
	c.log.Info("interview submitted", zap.String("chat_id", chatID))

	// show the final answer instead of the dead live feed
	if recording, ok := c.store.Get(current.ID); ok {
		c.events.PreviewChanged(domain.Preview{Source: domain.PreviewSourceRecording, Path: recording.Path, Muted: false})
	}
	c.ReleaseMedia()

	go c.pollResult(ctx, chatID)
	return nil
}

func (c *InterviewController) pollResult(ctx context.Context, chatID string) {
	c.events.SessionStateChanged(domain.SessionStateSubmitted, domain.SessionReasonResultPending)

	result, err := c.backend.PollResult(ctx, chatID)
	if err != nil {
		c.events.SessionError(domain.ErrorCodeBackend, err.Error())
		return
	}

	c.events.ResultReady(result)
	c.events.SessionStateChanged(domain.SessionStateSubmitted, domain.SessionReasonResultReady)
}

// PlayRecording plays back a stored answer, switching the preview away
// from the live feed. When review playback after submission ends
// naturally the preview returns to the live feed automatically.
func (c *InterviewController) PlayRecording(ctx context.Context, questionID int) error {
	recording, ok := c.store.Get(questionID)
	if !ok {
		return ErrNoRecording
	}

	c.stopPlayback()

	handle, err := c.player.PlayFile(ctx, recording.Path)
	if err != nil {
		c.events.SessionError(domain.ErrorCodePlayback, err.Error())
		return err
	}

	c.mu.Lock()
	c.playing = handle
	c.mu.Unlock()

	c.events.PreviewChanged(domain.Preview{Source: domain.PreviewSourceRecording, Path: recording.Path, Muted: false})
	c.events.SessionStateChanged(domain.SessionStatePlayback, domain.SessionReasonPlaybackStarted)

	go func() {
		<-handle.Done()

		c.mu.Lock()
		current := c.playing == handle
		if current {
			c.playing = nil
		}
		submitted := c.submitted
		c.mu.Unlock()
		if !current {
			return
		}

		if submitted {
			c.events.PreviewChanged(domain.Preview{Source: domain.PreviewSourceLive, Muted: true})
		}
		c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonPlaybackFinished)
	}()
	return nil
}

// PausePlayback stops review playback and rebinds the live preview. Only
// meaningful while a recording is playing.
func (c *InterviewController) PausePlayback() {
	if c.stopPlayback() {
		c.events.PreviewChanged(domain.Preview{Source: domain.PreviewSourceLive, Muted: true})
	}
}

func (c *InterviewController) stopPlayback() bool {
	c.mu.Lock()
	handle := c.playing
	c.playing = nil
	c.mu.Unlock()

	if handle == nil {
		return false
	}
	_ = handle.Stop()
	return true
}

// DownloadRecording copies one answer into dir under its public file name
// and returns the destination path.
func (c *InterviewController) DownloadRecording(questionID int, dir string) (string, error) {
	recording, ok := c.store.Get(questionID)
	if !ok {
		return "", ErrNoRecording
	}

	source, err := os.Open(recording.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open recording: %w", err)
	}
	defer source.Close()

	destination := filepath.Join(dir, recording.FileName())
	target, err := os.Create(destination)
	if err != nil {
		return "", fmt.Errorf("failed to create download target: %w", err)
	}
	defer target.Close()

	if _, err := io.Copy(target, source); err != nil {
		return "", fmt.Errorf("failed to copy recording: %w", err)
	}
	return destination, nil
}

// CheckResult fetches the evaluation for any chat id, polling while it is
// still processing.
func (c *InterviewController) CheckResult(ctx context.Context, chatID string) (domain.InterviewResult, error) {
	c.mu.Lock()
	loggedIn := c.loggedIn
	c.mu.Unlock()
	if !loggedIn {
		if err := c.Login(ctx); err != nil {
			return domain.InterviewResult{}, err
		}
	}

	result, err := c.backend.PollResult(ctx, chatID)
	if err != nil {
		c.events.SessionError(domain.ErrorCodeBackend, err.Error())
		return domain.InterviewResult{}, err
	}
	return result, nil
}

// Questions returns the interview script order.
func (c *InterviewController) Questions() []domain.Question {
	return c.sequencer.Questions()
}

// Recordings returns all stored answers ordered by question.
func (c *InterviewController) Recordings() []domain.Recording {
	return c.store.All()
}

// AudioFeed exposes the PCM tap for command listening.
func (c *InterviewController) AudioFeed() *ChunkFeed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audioFeed
}

// Status summarizes the session for the UI.
func (c *InterviewController) Status() domain.Status {
	c.mu.Lock()
	chatID := c.chatID
	submitted := c.submitted
	playing := c.playing != nil
	c.mu.Unlock()

	index, _ := c.sequencer.Current()
	_, recording := c.recorder.Active()

	state := domain.SessionStateIdle
	switch {
	case submitted:
		state = domain.SessionStateSubmitted
	case playing:
		state = domain.SessionStatePlayback
	case recording:
		state = domain.SessionStateRecording
	}

	return domain.Status{
		State:         state,
		ChatID:        chatID,
		QuestionIndex: index,
		Recording:     recording,
		Playing:       playing,
		Submitted:     submitted,
	}
}
