package domain

// Question is one interview prompt. Ordering of the loaded list is the
// interview order.
type Question struct {
	ID   int    `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// Recording is the finalized video answer for one question.
type Recording struct {
	QuestionID     int    `json:"questionId"`
	Data           []byte `json:"-"`
	Path           string `json:"path"`
	UploadProgress int    `json:"uploadProgress"`
}

// FileName is the export name offered to the user.
func (r Recording) FileName() string {
	return recordingFileName(r.QuestionID)
}

// SessionState models the interview session lifecycle.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateBriefing  SessionState = "briefing"
	SessionStateRecording SessionState = "recording"
	SessionStatePlayback  SessionState = "playback"
	SessionStateSubmitted SessionState = "submitted"
	SessionStateError     SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonCameraCold        SessionStateReason = "camera_cold"
	SessionReasonCameraReady       SessionStateReason = "camera_ready"
	SessionReasonInterviewStarted  SessionStateReason = "interview_started"
	SessionReasonBriefingFinished  SessionStateReason = "briefing_finished"
	SessionReasonRecordingStarted  SessionStateReason = "recording_started"
	SessionReasonRecordingRedone   SessionStateReason = "recording_redone"
	SessionReasonAnswerSaved       SessionStateReason = "answer_saved"
	SessionReasonQuestionAdvanced  SessionStateReason = "question_advanced"
	SessionReasonPlaybackStarted   SessionStateReason = "playback_started"
	SessionReasonPlaybackFinished  SessionStateReason = "playback_finished"
	SessionReasonUploadStarted     SessionStateReason = "upload_started"
	SessionReasonUploadFinished    SessionStateReason = "upload_finished"
	SessionReasonInterviewSubmitted SessionStateReason = "interview_submitted"
	SessionReasonResultPending     SessionStateReason = "result_pending"
	SessionReasonResultReady       SessionStateReason = "result_ready"
	SessionReasonCaptureLost       SessionStateReason = "capture_lost"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeMedia       ErrorCode = "media"
	ErrorCodeMediaStop   ErrorCode = "media_stop"
	ErrorCodeRecognition ErrorCode = "recognition"
	ErrorCodeNarration   ErrorCode = "narration"
	ErrorCodePlayback    ErrorCode = "playback"
	ErrorCodeUpload      ErrorCode = "upload"
	ErrorCodeBackend     ErrorCode = "backend"
)

// PlaybackStatus reflects the currently playing narration cue or review
// clip. Commands are only honored while no cue is actively playing.
type PlaybackStatus string

const (
	PlaybackStatusPlaying PlaybackStatus = "playing"
	PlaybackStatusPaused  PlaybackStatus = "paused"
	PlaybackStatusEnded   PlaybackStatus = "ended"
)

// TranscriptKind identifies whether a stream event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental transcription output from a provider.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}

// Intent is a classified voice command.
type Intent string

const (
	IntentNone    Intent = ""
	IntentReady   Intent = "ready"
	IntentRepeat  Intent = "repeat"
	IntentAdvance Intent = "advance"
)

// Speaker distinguishes talking-indicator sources.
type Speaker string

const (
	SpeakerCandidate Speaker = "candidate"
	SpeakerNarrator  Speaker = "narrator"
)

// VoiceActivity is one sampled activity level for a speaker.
type VoiceActivity struct {
	Speaker Speaker `json:"speaker"`
	Level   float64 `json:"level"`
	Talking bool    `json:"talking"`
}

// PreviewSource tells the UI what the video element should show.
type PreviewSource string

const (
	PreviewSourceLive      PreviewSource = "live"
	PreviewSourceRecording PreviewSource = "recording"
	PreviewSourceNone      PreviewSource = "none"
)

// Preview is the current binding of the candidate-facing video element.
type Preview struct {
	Source PreviewSource `json:"source"`
	Path   string        `json:"path,omitempty"`
	Muted  bool          `json:"muted"`
}

// UploadProgress reports byte-level upload progress for one question.
type UploadProgress struct {
	QuestionID int    `json:"questionId"`
	Percent    int    `json:"percent"`
	Loaded     string `json:"loaded"`
	Total      string `json:"total"`
}

// Evaluation is one scored criterion of the AI review.
type Evaluation struct {
	Criteria string `json:"criteria"`
	Score    int    `json:"score"`
	Analysis string `json:"analysis"`
}

// InterviewResult is the AI evaluation of a finished interview.
type InterviewResult struct {
	Status          string       `json:"status"`
	Evaluations     []Evaluation `json:"evaluations"`
	AnalysisSummary string       `json:"analysis_summary"`
}

// Processing reports whether the evaluation is still being produced.
func (r InterviewResult) Processing() bool {
	return r.Status != "done"
}

// Status summarizes the current session for the UI.
type Status struct {
	State           SessionState `json:"state"`
	ChatID          string       `json:"chatId,omitempty"`
	QuestionIndex   int          `json:"questionIndex"`
	Step            ScriptStep   `json:"step,omitempty"`
	Recording       bool         `json:"recording"`
	Playing         bool         `json:"playing"`
	Submitted       bool         `json:"submitted"`
	Message         string       `json:"message,omitempty"`
}
