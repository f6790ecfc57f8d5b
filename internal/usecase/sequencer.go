package usecase

import (
	"sync"

	"greenroom/internal/domain"
)

// QuestionSequencer holds the ordered question list and the current
// cursor. The cursor only moves forward and never past the last question;
// submission is a separate terminal action.
type QuestionSequencer struct {
	store *RecordingStore

	mu        sync.Mutex
	questions []domain.Question
	cursor    int
}

func NewQuestionSequencer(questions []domain.Question, store *RecordingStore) *QuestionSequencer {
	return &QuestionSequencer{store: store, questions: questions}
}

// Current returns the cursor and the current question.
func (s *QuestionSequencer) Current() (int, domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, s.questions[s.cursor]
}

// Questions returns the full ordered list.
func (s *QuestionSequencer) Questions() []domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Question(nil), s.questions...)
}

// IsLast reports whether the cursor sits on the final question.
func (s *QuestionSequencer) IsLast() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor == len(s.questions)-1
}

// Advance moves the cursor forward. It is a no-op unless the current
// question has a stored recording and a next question exists.
func (s *QuestionSequencer) Advance() (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.questions[s.cursor]
	if _, ok := s.store.Get(current.ID); !ok {
		return domain.Question{}, false
	}
	if s.cursor >= len(s.questions)-1 {
		return domain.Question{}, false
	}

	s.cursor++
	return s.questions[s.cursor], true
}
