package usecase

import (
	"os"
	"path/filepath"
	"testing"

	"greenroom/internal/domain"
)

func writeTempRecording(t *testing.T, dir string, name string, payload string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func TestRecordingStoreUpsertReplacesAndReleasesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeTempRecording(t, dir, "first.webm", "one")
	second := writeTempRecording(t, dir, "second.webm", "two")

	store := NewRecordingStore()
	store.Upsert(domain.Recording{QuestionID: 1, Data: []byte("one"), Path: first})
	store.Upsert(domain.Recording{QuestionID: 1, Data: []byte("two"), Path: second})

	recording, ok := store.Get(1)
	if !ok || string(recording.Data) != "two" {
		t.Fatalf("unexpected recording: %+v ok=%v", recording, ok)
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Fatalf("expected superseded file to be removed, stat err=%v", err)
	}
	if _, err := os.Stat(second); err != nil {
		t.Fatalf("expected current file to remain: %v", err)
	}
	if len(store.All()) != 1 {
		t.Fatalf("expected one recording per question")
	}
}

func TestRecordingStoreSetProgressIsolatesQuestions(t *testing.T) {
	t.Parallel()

	store := NewRecordingStore()
	store.Upsert(domain.Recording{QuestionID: 1, Data: []byte("a")})
	store.Upsert(domain.Recording{QuestionID: 2, Data: []byte("b")})

	for _, percent := range []int{0, 37, 100} {
		if !store.SetProgress(1, percent) {
			t.Fatalf("progress update rejected at %d", percent)
		}
		got, _ := store.Get(1)
		if got.UploadProgress != percent {
			t.Fatalf("expected %d%%, got %d%%", percent, got.UploadProgress)
		}
		other, _ := store.Get(2)
		if other.UploadProgress != 0 {
			t.Fatalf("other question's progress moved to %d%%", other.UploadProgress)
		}
	}

	if store.SetProgress(99, 50) {
		t.Fatalf("expected missing question to be rejected")
	}

	store.SetProgress(1, 250)
	got, _ := store.Get(1)
	if got.UploadProgress != 100 {
		t.Fatalf("expected clamp to 100, got %d", got.UploadProgress)
	}
	store.SetProgress(1, -5)
	got, _ = store.Get(1)
	if got.UploadProgress != 0 {
		t.Fatalf("expected clamp to 0, got %d", got.UploadProgress)
	}
}

func TestRecordingStoreAllOrdersByQuestion(t *testing.T) {
	t.Parallel()

	store := NewRecordingStore()
	store.Upsert(domain.Recording{QuestionID: 3})
	store.Upsert(domain.Recording{QuestionID: 1})
	store.Upsert(domain.Recording{QuestionID: 2})

	all := store.All()
	if len(all) != 3 || all[0].QuestionID != 1 || all[1].QuestionID != 2 || all[2].QuestionID != 3 {
		t.Fatalf("unexpected order: %+v", all)
	}
}

func TestRecordingStoreComplete(t *testing.T) {
	t.Parallel()

	questions := []domain.Question{{ID: 1}, {ID: 2}}
	store := NewRecordingStore()

	if store.Complete(questions) {
		t.Fatalf("empty store must not be complete")
	}
	store.Upsert(domain.Recording{QuestionID: 1})
	if store.Complete(questions) {
		t.Fatalf("partial store must not be complete")
	}
	store.Upsert(domain.Recording{QuestionID: 2})
	if !store.Complete(questions) {
		t.Fatalf("expected complete store")
	}
	if store.Complete(nil) {
		t.Fatalf("empty question list must not be complete")
	}
}

func TestRecordingStoreReleaseRemovesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTempRecording(t, dir, "answer.webm", "payload")

	store := NewRecordingStore()
	store.Upsert(domain.Recording{QuestionID: 1, Path: path})
	store.Release()

	if len(store.All()) != 0 {
		t.Fatalf("expected empty store after release")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removal, stat err=%v", err)
	}
}
