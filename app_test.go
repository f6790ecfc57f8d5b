package main

import (
	"errors"
	"testing"

	"greenroom/internal/domain"
)

func TestSessionReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.SessionStateReason]string{
		domain.SessionReasonCameraCold:          "Camera cold",
		domain.SessionReasonCameraReady:         "Camera and microphone ready",
		domain.SessionReasonInterviewStarted:    "Interview started",
		domain.SessionReasonBriefingFinished:    "Briefing finished. Say the ready phrase to begin",
		domain.SessionReasonRecordingStarted:    "Recording your answer",
		domain.SessionReasonRecordingRedone:     "Recording restarted; previous answer discarded",
		domain.SessionReasonAnswerSaved:         "Answer saved",
		domain.SessionReasonQuestionAdvanced:    "Moving to the next question",
		domain.SessionReasonPlaybackStarted:     "Playing your answer",
		domain.SessionReasonPlaybackFinished:    "Playback finished",
		domain.SessionReasonUploadStarted:       "Uploading your answer...",
		domain.SessionReasonUploadFinished:      "Answer uploaded",
		domain.SessionReasonInterviewSubmitted:  "Interview submitted",
		domain.SessionReasonResultPending:       "Waiting for your evaluation...",
		domain.SessionReasonResultReady:         "Evaluation ready",
		domain.SessionReasonCaptureLost:         "Camera or microphone was lost",
	}

	for reason, want := range cases {
		reason := reason
		want := want
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := sessionReasonMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := sessionReasonMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown reason message, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:     "Startup failed",
		domain.ErrorCodeMedia:       "Camera or microphone issue",
		domain.ErrorCodeMediaStop:   "Recording stop issue",
		domain.ErrorCodeRecognition: "Voice command recognition error",
		domain.ErrorCodeNarration:   "Interviewer narration failed",
		domain.ErrorCodePlayback:    "Answer playback failed",
		domain.ErrorCodeUpload:      "Answer upload failed",
		domain.ErrorCodeBackend:     "Interview service error",
	}
	for code, want := range cases {
		code := code
		want := want
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("unknown", "detail"); got != "detail" {
		t.Fatalf("expected detail fallback, got %q", got)
	}
	if got := errorMessage("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.State != domain.SessionStateIdle {
		t.Fatalf("unexpected status: %+v", status)
	}

	app.bootErr = errors.New("boot")
	status = app.GetStatus()
	if status.State != domain.SessionStateError || status.Message != "boot" {
		t.Fatalf("unexpected boot status: %+v", status)
	}
}
