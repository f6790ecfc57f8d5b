package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"greenroom/internal/bootstrap"
	"greenroom/internal/config"
	"greenroom/internal/domain"
	"greenroom/internal/usecase"
)

const (
	eventSession   = "greenroom:session"
	eventStep      = "greenroom:step"
	eventQuestion  = "greenroom:question"
	eventPreview   = "greenroom:preview"
	eventRecording = "greenroom:recording"
	eventUpload    = "greenroom:upload"
	eventVoice     = "greenroom:voice"
	eventPartial   = "greenroom:partial"
	eventResult    = "greenroom:result"
	eventError     = "greenroom:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.InterviewController
	machine    *usecase.ScriptMachine
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.machine = services.Machine
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonCameraCold)

	go func() {
		if err := a.controller.AcquireMedia(ctx); err != nil {
			return
		}
		if err := a.controller.Login(ctx); err != nil {
			a.SessionError(domain.ErrorCodeBackend, err.Error())
		}
	}()
}

func (a *App) shutdown(context.Context) {
	if a.controller != nil {
		a.controller.ReleaseMedia()
	}
}

// StartInterview opens an interview attempt and begins the narrated
// script. Returns the chat id scoping the attempt.
func (a *App) StartInterview() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	chatID, err := a.controller.StartInterview(a.ctx)
	if err != nil {
		a.SessionError(domain.ErrorCodeBackend, err.Error())
		return "", err
	}
	a.machine.Begin(a.ctx)
	return chatID, nil
}

// SayReady simulates the ready command for keyboard-driven use.
func (a *App) SayReady() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.machine.Trigger(domain.IntentReady)
	return nil
}

// RepeatQuestion simulates the repeat command.
func (a *App) RepeatQuestion() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.machine.Trigger(domain.IntentRepeat)
	return nil
}

// FinishAnswer simulates the advance command.
func (a *App) FinishAnswer() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.machine.Trigger(domain.IntentAdvance)
	return nil
}

// BeginAnswer starts recording the current question in the manual flow.
func (a *App) BeginAnswer() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.BeginAnswer(); err != nil {
		a.SessionError(domain.ErrorCodeMedia, err.Error())
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// StopAnswer stops the active recording and stores it for the current
// question.
func (a *App) StopAnswer() (domain.Recording, error) {
	if err := a.requireReady(); err != nil {
		return domain.Recording{}, err
	}
	recording, err := a.controller.StopAnswer()
	if err != nil {
		if errors.Is(err, usecase.ErrNotRecording) {
			return domain.Recording{}, nil
		}
		a.SessionError(domain.ErrorCodeMediaStop, err.Error())
		return domain.Recording{}, err
	}
	return recording, nil
}

// NextQuestion advances the manual flow to the following question and
// uploads the answer just given in the background.
func (a *App) NextQuestion() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	a.controller.NextQuestion(a.ctx)
	return a.controller.Status(), nil
}

// SubmitInterview uploads the final answer, closes the interview, and
// starts polling for the AI evaluation.
func (a *App) SubmitInterview() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Submit(a.ctx); err != nil {
		a.SessionError(domain.ErrorCodeBackend, err.Error())
		return err
	}
	return nil
}

// PlayRecording reviews a stored answer.
func (a *App) PlayRecording(questionID int) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.PlayRecording(a.ctx, questionID); err != nil {
		a.SessionError(domain.ErrorCodePlayback, err.Error())
		return err
	}
	return nil
}

// PausePlayback stops the answer currently under review.
func (a *App) PausePlayback() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.PausePlayback()
	return nil
}

// DownloadRecording copies a stored answer into the user's download
// directory and returns the destination path.
func (a *App) DownloadRecording(questionID int) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	path, err := a.controller.DownloadRecording(questionID, filepath.Join(home, "Downloads"))
	if err != nil {
		a.SessionError(domain.ErrorCodeMedia, err.Error())
		return "", err
	}
	return path, nil
}

// CheckResult fetches the AI evaluation for a previously submitted
// interview.
func (a *App) CheckResult(chatID string) (domain.InterviewResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.InterviewResult{}, err
	}
	result, err := a.controller.CheckResult(a.ctx, chatID)
	if err != nil {
		a.SessionError(domain.ErrorCodeBackend, err.Error())
		return domain.InterviewResult{}, err
	}
	return result, nil
}

// GetQuestions returns the interview question list in order.
func (a *App) GetQuestions() []domain.Question {
	if a.controller == nil {
		return nil
	}
	return a.controller.Questions()
}

// GetRecordings returns all stored answers ordered by question.
func (a *App) GetRecordings() []domain.Recording {
	if a.controller == nil {
		return nil
	}
	return a.controller.Recordings()
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle}
	}
	status := a.controller.Status()
	if a.machine != nil {
		status.Step = a.machine.Step()
	}
	return status
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"provider":    "Deepgram",
		"model":       a.cfg.Deepgram.Model,
		"language":    a.cfg.Deepgram.Language,
		"apiBase":     a.cfg.Backend.BaseURL,
		"videoInput":  a.cfg.Media.VideoDevice,
		"audioInput":  a.cfg.Media.AudioDevice,
		"readyPhrase": a.cfg.Commands.ReadyPhrase,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// StepChanged emits script progression updates.
func (a *App) StepChanged(index int, step domain.ScriptStep) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventStep, map[string]interface{}{
		"index": index,
		"step":  string(step),
	})
}

// QuestionChanged emits the question the candidate now faces.
func (a *App) QuestionChanged(index int, question domain.Question) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventQuestion, map[string]interface{}{
		"index":    index,
		"question": question,
	})
}

// PreviewChanged emits the binding of the candidate-facing video element.
func (a *App) PreviewChanged(preview domain.Preview) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPreview, preview)
}

// RecordingSaved emits a finalized answer recording.
func (a *App) RecordingSaved(recording domain.Recording) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventRecording, recording)
}

// UploadProgressed emits byte-level upload progress for one question.
func (a *App) UploadProgressed(progress domain.UploadProgress) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventUpload, progress)
}

// VoiceActivity emits talking-indicator samples.
func (a *App) VoiceActivity(activity domain.VoiceActivity) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventVoice, activity)
}

// PartialTranscript emits live partial transcript text.
func (a *App) PartialTranscript(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPartial, map[string]string{"text": text})
}

// ResultReady emits the finished AI evaluation.
func (a *App) ResultReady(result domain.InterviewResult) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventResult, result)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonCameraCold:
		return "Camera cold"
	case domain.SessionReasonCameraReady:
		return "Camera and microphone ready"
	case domain.SessionReasonInterviewStarted:
		return "Interview started"
	case domain.SessionReasonBriefingFinished:
		return "Briefing finished. Say the ready phrase to begin"
	case domain.SessionReasonRecordingStarted:
		return "Recording your answer"
	case domain.SessionReasonRecordingRedone:
		return "Recording restarted; previous answer discarded"
	case domain.SessionReasonAnswerSaved:
		return "Answer saved"
	case domain.SessionReasonQuestionAdvanced:
		return "Moving to the next question"
	case domain.SessionReasonPlaybackStarted:
		return "Playing your answer"
	case domain.SessionReasonPlaybackFinished:
		return "Playback finished"
	case domain.SessionReasonUploadStarted:
		return "Uploading your answer..."
	case domain.SessionReasonUploadFinished:
		return "Answer uploaded"
	case domain.SessionReasonInterviewSubmitted:
		return "Interview submitted"
	case domain.SessionReasonResultPending:
		return "Waiting for your evaluation..."
	case domain.SessionReasonResultReady:
		return "Evaluation ready"
	case domain.SessionReasonCaptureLost:
		return "Camera or microphone was lost"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeMedia:
		return "Camera or microphone issue"
	case domain.ErrorCodeMediaStop:
		return "Recording stop issue"
	case domain.ErrorCodeRecognition:
		return "Voice command recognition error"
	case domain.ErrorCodeNarration:
		return "Interviewer narration failed"
	case domain.ErrorCodePlayback:
		return "Answer playback failed"
	case domain.ErrorCodeUpload:
		return "Answer upload failed"
	case domain.ErrorCodeBackend:
		return "Interview service error"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
