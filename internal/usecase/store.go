package usecase

import (
	"os"
	"sort"
	"sync"

	"greenroom/internal/domain"
)

// RecordingStore keeps at most one Recording per question. Replacing a
// recording releases the superseded playback file.
type RecordingStore struct {
	mu         sync.Mutex
	recordings map[int]domain.Recording
}

func NewRecordingStore() *RecordingStore {
	return &RecordingStore{recordings: make(map[int]domain.Recording)}
}

// Upsert stores a recording, releasing any prior one for the same question.
func (s *RecordingStore) Upsert(recording domain.Recording) {
	s.mu.Lock()
	previous, existed := s.recordings[recording.QuestionID]
	s.recordings[recording.QuestionID] = recording
	s.mu.Unlock()

	if existed && previous.Path != "" && previous.Path != recording.Path {
		_ = os.Remove(previous.Path)
	}
}

// Get returns the recording for a question, if any.
func (s *RecordingStore) Get(questionID int) (domain.Recording, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recording, ok := s.recordings[questionID]
	return recording, ok
}

// All returns recordings ordered by question id.
func (s *RecordingStore) All() []domain.Recording {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]domain.Recording, 0, len(s.recordings))
	for _, recording := range s.recordings {
		all = append(all, recording)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].QuestionID < all[j].QuestionID })
	return all
}

// SetProgress updates one question's upload percentage, leaving all other
// recordings untouched.
func (s *RecordingStore) SetProgress(questionID int, percent int) bool {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	recording, ok := s.recordings[questionID]
	if !ok {
		return false
	}
	recording.UploadProgress = percent
	s.recordings[questionID] = recording
	return true
}

// Complete reports whether every listed question has a recording.
func (s *RecordingStore) Complete(questions []domain.Question) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, question := range questions {
		if _, ok := s.recordings[question.ID]; !ok {
			return false
		}
	}
	return len(questions) > 0
}

// Release removes all stored recordings and their playback files.
func (s *RecordingStore) Release() {
	s.mu.Lock()
	recordings := s.recordings
	s.recordings = make(map[int]domain.Recording)
	s.mu.Unlock()

	for _, recording := range recordings {
		if recording.Path != "" {
			_ = os.Remove(recording.Path)
		}
	}
}
