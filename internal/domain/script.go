package domain

import "fmt"

// ScriptStep is one named position in the fixed narration sequence. Each
// step maps to a pre-recorded cue file of the same name.
type ScriptStep string

const (
	StepOpening         ScriptStep = "opening"
	StepPanduan         ScriptStep = "panduan"
	StepTransitionStart ScriptStep = "transition-start"
	StepTransition      ScriptStep = "transition"
	StepTransitionFinal ScriptStep = "transition-final"
	StepClosing         ScriptStep = "closing"
)

// QuestionStep names the narration step for the 1-based question number.
func QuestionStep(number int) ScriptStep {
	return ScriptStep(fmt.Sprintf("question-%d", number))
}

// ScriptSequence is the canonical interview script. Question windows
// alternate with transition windows; the index into this slice is the
// session's current step and only moves forward.
var ScriptSequence = []ScriptStep{
	StepOpening,
	StepPanduan,
	StepTransitionStart,
	QuestionStep(1),
	StepTransition,
	QuestionStep(2),
	StepTransition,
	QuestionStep(3),
	StepTransition,
	QuestionStep(4),
	StepTransition,
	QuestionStep(5),
	StepTransitionFinal,
	StepClosing,
}

// StepIndex returns the first index of step in the sequence at or after
// from, or -1 when absent. Generic transitions repeat, so callers advance
// from their current position.
func StepIndex(step ScriptStep, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(ScriptSequence); i++ {
		if ScriptSequence[i] == step {
			return i
		}
	}
	return -1
}

// CueName is the narration asset played for this step.
func (s ScriptStep) CueName() string {
	return string(s) + ".mp3"
}

// QuestionNumber returns the 1-based question number for question steps,
// or 0 for narration-only steps.
func (s ScriptStep) QuestionNumber() int {
	var n int
	if _, err := fmt.Sscanf(string(s), "question-%d", &n); err != nil {
		return 0
	}
	return n
}

// IsQuestion reports whether the step opens a question window.
func (s ScriptStep) IsQuestion() bool {
	return s.QuestionNumber() > 0
}

func recordingFileName(questionID int) string {
	return fmt.Sprintf("question-%d-response.webm", questionID)
}
