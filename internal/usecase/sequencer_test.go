package usecase

import (
	"testing"

	"greenroom/internal/domain"
)

func sequencerFixture() (*QuestionSequencer, *RecordingStore) {
	store := NewRecordingStore()
	questions := []domain.Question{
		{ID: 1, Text: "first"},
		{ID: 2, Text: "second"},
		{ID: 3, Text: "third"},
	}
	return NewQuestionSequencer(questions, store), store
}

func TestQuestionSequencerAdvanceRequiresRecording(t *testing.T) {
	t.Parallel()

	sequencer, store := sequencerFixture()

	if _, ok := sequencer.Advance(); ok {
		t.Fatalf("advance without a recording must be a no-op")
	}
	if index, current := sequencer.Current(); index != 0 || current.ID != 1 {
		t.Fatalf("cursor moved: index=%d question=%d", index, current.ID)
	}

	store.Upsert(domain.Recording{QuestionID: 1, Data: []byte("a")})
	next, ok := sequencer.Advance()
	if !ok || next.ID != 2 {
		t.Fatalf("expected advance to question 2, got %+v ok=%v", next, ok)
	}
}

func TestQuestionSequencerNeverPassesLastQuestion(t *testing.T) {
	t.Parallel()

	sequencer, store := sequencerFixture()
	for _, question := range sequencer.Questions() {
		store.Upsert(domain.Recording{QuestionID: question.ID, Data: []byte("x")})
	}

	sequencer.Advance()
	sequencer.Advance()
	if !sequencer.IsLast() {
		t.Fatalf("expected cursor on last question")
	}

	if _, ok := sequencer.Advance(); ok {
		t.Fatalf("advance past the last question must be a no-op")
	}
	if index, current := sequencer.Current(); index != 2 || current.ID != 3 {
		t.Fatalf("cursor moved past end: index=%d question=%d", index, current.ID)
	}
}

func TestQuestionSequencerQuestionsReturnsCopy(t *testing.T) {
	t.Parallel()

	sequencer, _ := sequencerFixture()
	questions := sequencer.Questions()
	questions[0].Text = "mutated"

	if _, current := sequencer.Current(); current.Text != "first" {
		t.Fatalf("internal question list was mutated: %+v", current)
	}
}
