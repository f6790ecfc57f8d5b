package usecase

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"greenroom/internal/domain"
	"greenroom/internal/ports"
)

// scriptSession is the slice of the interview controller the script
// machine drives. The machine never touches the recorder or backend
// directly; the session context owns them.
type scriptSession interface {
	Questions() []domain.Question
	BeginAnswer() error
	StopAnswer() (domain.Recording, error)
	NextQuestion(ctx context.Context) (domain.Question, bool)
	Submit(ctx context.Context) error
	AudioFeed() *ChunkFeed
}

// ScriptMachine runs the voice-driven interview script: it walks the
// fixed step sequence, plays one narration cue per step, and reacts to
// the spoken trigger phrases. Commands are only honored while no cue is
// playing, so the narrator can never trigger itself, and a question's
// recording starts only once its own cue has finished.
type ScriptMachine struct {
	session   scriptSession
	player    ports.CuePlayer
	provider  ports.TranscriptionProvider
	matcher   ports.CommandMatcher
	events    ports.EventSink
	log       *zap.Logger
	streaming ports.StreamingConfig

	intents chan domain.Intent

	mu          sync.Mutex
	begun       bool
	closed      bool
	stepIndex   int
	status      domain.PlaybackStatus
	repeatQuota int
	listening   *listeningSession
}

type listeningSession struct {
	stream ports.StreamingSession
	sub    *Subscription
}

func NewScriptMachine(
	session scriptSession,
	player ports.CuePlayer,
	provider ports.TranscriptionProvider,
	matcher ports.CommandMatcher,
	events ports.EventSink,
	streaming ports.StreamingConfig,
	log *zap.Logger,
) *ScriptMachine {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScriptMachine{
		session:   session,
		player:    player,
		provider:  provider,
		matcher:   matcher,
		events:    events,
		log:       log,
		streaming: streaming,
		intents:   make(chan domain.Intent, 8),
		status:    domain.PlaybackStatusPaused,
	}
}

// Begin plays the opening and briefing cues, then starts listening for
// the ready phrase. Idempotent.
func (m *ScriptMachine) Begin(ctx context.Context) {
	m.mu.Lock()
	if m.begun {
		m.mu.Unlock()
		return
	}
	m.begun = true
	m.mu.Unlock()

	go m.run(ctx)
}

func (m *ScriptMachine) run(ctx context.Context) {
	if err := m.playStep(ctx, 0); err != nil { // opening
		return
	}
	if err := m.playStep(ctx, 1); err != nil { // panduan
		return
	}

	m.events.SessionStateChanged(domain.SessionStateBriefing, domain.SessionReasonBriefingFinished)
	m.startListening(ctx)

	for {
		select {
		case <-ctx.Done():
			m.stopListening()
			return
		case intent := <-m.intents:
			m.dispatch(ctx, intent)
		}

		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return
		}
	}
}

// Trigger feeds one classified command into the machine. Commands are
// dropped while a cue is playing or after the closing step.
func (m *ScriptMachine) Trigger(intent domain.Intent) {
	if intent == domain.IntentNone {
		return
	}

	m.mu.Lock()
	gated := m.status == domain.PlaybackStatusPlaying || m.closed || !m.begun
	m.mu.Unlock()
	if gated {
		return
	}

	select {
	case m.intents <- intent:
	default:
	}
}

func (m *ScriptMachine) dispatch(ctx context.Context, intent domain.Intent) {
	switch intent {
	case domain.IntentReady:
		m.ready(ctx)
	case domain.IntentRepeat:
		m.repeat(ctx)
	case domain.IntentAdvance:
		m.advance(ctx)
	}
}

// ready runs the Start transition: transition-start cue, then the first
// question's cue, then recording begins.
func (m *ScriptMachine) ready(ctx context.Context) {
	transitionStart := domain.StepIndex(domain.StepTransitionStart, 0)

	m.mu.Lock()
	past := m.stepIndex > transitionStart
	m.mu.Unlock()
	if past {
		return
	}

	m.stopListening()

	if err := m.playStep(ctx, transitionStart); err != nil {
		return
	}
	if err := m.playStep(ctx, transitionStart+1); err != nil {
		return
	}

	m.beginQuestion(ctx)
}

// repeat replays the current question's cue, at most once per question.
// The quota is spent only after the replay completes.
func (m *ScriptMachine) repeat(ctx context.Context) {
	m.mu.Lock()
	index := m.stepIndex
	quota := m.repeatQuota
	m.mu.Unlock()

	if quota <= 0 || !domain.ScriptSequence[index].IsQuestion() {
		return
	}

	m.stopListening()

	if err := m.playStep(ctx, index); err != nil {
		return
	}

	m.mu.Lock()
	m.repeatQuota--
	m.mu.Unlock()

	m.startListening(ctx)
}

// advance ends the current answer. On the last question it jumps straight
// to closing and submits; otherwise it plays the next transition cue and
// the next question's cue, then recording begins again.
func (m *ScriptMachine) advance(ctx context.Context) {
	transitionStart := domain.StepIndex(domain.StepTransitionStart, 0)

	m.mu.Lock()
	index := m.stepIndex
	m.mu.Unlock()
	if index <= transitionStart {
		return
	}

	step := domain.ScriptSequence[index]
	if !step.IsQuestion() {
		return
	}

	m.stopListening()

	if _, err := m.session.StopAnswer(); err != nil && !errors.Is(err, ErrNotRecording) {
		m.log.Warn("stop answer failed", zap.Error(err))
	}

	if step.QuestionNumber() == len(m.session.Questions()) {
		m.close(ctx)
		return
	}

	if _, ok := m.session.NextQuestion(ctx); !ok {
		m.startListening(ctx)
		return
	}

	// the generic transition repeats between questions; the cue before
	// the last question is the final transition
	transition := domain.ScriptSequence[index+1]
	if domain.ScriptSequence[index+2].QuestionNumber() == len(m.session.Questions()) {
		transition = domain.StepTransitionFinal
	}
	if err := m.playCue(ctx, index+1, transition); err != nil {
		return
	}
	if err := m.playStep(ctx, index+2); err != nil {
		return
	}

	m.beginQuestion(ctx)
}

// close jumps to the closing step, submits exactly once, and plays the
// closing cue. No recording ever starts again and no further commands
// are honored.
func (m *ScriptMachine) close(ctx context.Context) {
	closing := domain.StepIndex(domain.StepClosing, 0)

	m.mu.Lock()
	m.stepIndex = closing
	m.closed = true
	m.mu.Unlock()

	if err := m.session.Submit(ctx); err != nil {
		m.log.Warn("submit failed", zap.Error(err))
	}

	_ = m.playStep(ctx, closing)
}

// beginQuestion resets the repeat quota and starts recording, resuming
// command listening afterwards.
func (m *ScriptMachine) beginQuestion(ctx context.Context) {
	m.mu.Lock()
	m.repeatQuota = 1
	m.mu.Unlock()

	if err := m.session.BeginAnswer(); err != nil {
		m.log.Warn("begin answer failed", zap.Error(err))
	}
	m.startListening(ctx)
}

// playStep plays the table entry at index to completion.
func (m *ScriptMachine) playStep(ctx context.Context, index int) error {
	if index < 0 || index >= len(domain.ScriptSequence) {
		return errors.New("script step out of range")
	}
	return m.playCue(ctx, index, domain.ScriptSequence[index])
}

// playCue plays step's cue at sequence position index. advance substitutes
// the final transition cue before the last question, so the played step may
// differ from the table entry. The step cursor only moves forward; replays
// keep it in place.
func (m *ScriptMachine) playCue(ctx context.Context, index int, step domain.ScriptStep) error {
	m.mu.Lock()
	if index > m.stepIndex {
		m.stepIndex = index
	}
	m.status = domain.PlaybackStatusPlaying
	m.mu.Unlock()

	m.events.StepChanged(index, step)
	m.events.VoiceActivity(domain.VoiceActivity{Speaker: domain.SpeakerNarrator, Level: 1, Talking: true})

	var playErr error
	handle, err := m.player.PlayCue(ctx, step.CueName())
	if err != nil {
		playErr = err
	} else {
		<-handle.Done()
		playErr = handle.Err()
	}

	m.mu.Lock()
	m.status = domain.PlaybackStatusEnded
	m.mu.Unlock()
	m.events.VoiceActivity(domain.VoiceActivity{Speaker: domain.SpeakerNarrator, Level: 0, Talking: false})

	if playErr != nil {
		m.events.SessionError(domain.ErrorCodeNarration, playErr.Error())
		return playErr
	}
	return nil
}

// startListening opens a recognition session on the microphone tap and
// classifies its transcripts into commands.
func (m *ScriptMachine) startListening(ctx context.Context) {
	m.mu.Lock()
	already := m.listening != nil
	m.mu.Unlock()
	if already {
		return
	}

	feed := m.session.AudioFeed()
	if feed == nil {
		m.log.Warn("listening skipped, no media stream")
		return
	}

	stream, err := m.provider.StartStreaming(ctx, m.streaming)
	if err != nil {
		m.events.SessionError(domain.ErrorCodeRecognition, err.Error())
		return
	}

	sub := feed.Subscribe(0)

	m.mu.Lock()
	m.listening = &listeningSession{stream: stream, sub: sub}
	m.mu.Unlock()

	go func() {
		for chunk := range sub.Chunks() {
			if err := stream.SendAudio(chunk); err != nil {
				return
			}
		}
		_ = stream.CloseSend()
	}()

	go func() {
		for event := range stream.Events() {
			if event.Kind == domain.TranscriptKindPartial {
				m.events.PartialTranscript(event.Text)
			}
			m.Trigger(m.matcher.Match(event.Text))
		}
	}()
}

// stopListening tears the recognition session down before any cue plays.
func (m *ScriptMachine) stopListening() {
	m.mu.Lock()
	listening := m.listening
	m.listening = nil
	m.mu.Unlock()

	if listening == nil {
		return
	}
	listening.sub.Cancel()
	_ = listening.stream.Close()
}

// StepIndex returns the current position in the script sequence.
func (m *ScriptMachine) StepIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stepIndex
}

// Step returns the current script step.
func (m *ScriptMachine) Step() domain.ScriptStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.ScriptSequence[m.stepIndex]
}

// PlaybackStatus reports the narration cue status gating commands.
func (m *ScriptMachine) PlaybackStatus() domain.PlaybackStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// RepeatQuota reports how many replays remain for the current question.
func (m *ScriptMachine) RepeatQuota() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repeatQuota
}

// Closed reports whether the closing step has been reached.
func (m *ScriptMachine) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
