package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"greenroom/internal/domain"
)

// uploadFixture wires a single test server that plays the login, presign,
// storage PUT, and submit roles.
type uploadFixture struct {
	mu          sync.Mutex
	putHeaders  http.Header
	putBody     []byte
	submitBody  map[string]any
	rejectPut   bool
	putRequests int
}

func newUploadFixture(t *testing.T) (*uploadFixture, *Uploader, *Client) {
	t.Helper()

	fixture := &uploadFixture{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"auth_token": "t"}})
	})

	var server *httptest.Server
	mux.HandleFunc("GET /uploads/presign_no_auth", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("directory") != "files" || r.URL.Query().Get("extension") != "webm" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{
			"upload_url":   server.URL + "/storage/" + r.URL.Query().Get("filename"),
			"download_url": server.URL + "/cdn/" + r.URL.Query().Get("filename"),
		}})
	})

	mux.HandleFunc("PUT /storage/{name}", func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		fixture.mu.Lock()
		fixture.putRequests++
		fixture.putHeaders = r.Header.Clone()
		fixture.putBody = payload
		reject := fixture.rejectPut
		fixture.mu.Unlock()
		if reject {
			http.Error(w, "bucket on fire", http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /ai/interviews/submit", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		fixture.mu.Lock()
		fixture.submitBody = body
		fixture.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, Email: "e", Password: "p"}, nil)
	if _, err := client.Login(context.Background()); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return fixture, NewUploader(client, nil), client
}

func TestUploaderPushesRecordingAndSubmitsAnswer(t *testing.T) {
	t.Parallel()

	fixture, uploader, _ := newUploadFixture(t)
	recording := domain.Recording{QuestionID: 2, Data: []byte("webm-bytes")}

	var progMu sync.Mutex
	var percents []int
	var lastTotal string
	downloadURL, err := uploader.Upload(context.Background(), "chat-1", recording, "Ceritakan pengalaman Anda", func(percent int, loaded, total string) {
		progMu.Lock()
		percents = append(percents, percent)
		lastTotal = total
		progMu.Unlock()
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if !strings.HasSuffix(downloadURL, "/cdn/question-2-response.webm") {
		t.Fatalf("unexpected download url %q", downloadURL)
	}

	fixture.mu.Lock()
	defer fixture.mu.Unlock()
	if got := fixture.putHeaders.Get("Content-Type"); got != "video/webm" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := fixture.putHeaders.Get("acl"); got != "public-read" {
		t.Fatalf("unexpected acl header %q", got)
	}
	if string(fixture.putBody) != "webm-bytes" {
		t.Fatalf("storage received %q", fixture.putBody)
	}
	if fixture.submitBody["chat_id"] != "chat-1" || fixture.submitBody["questions"] != "Ceritakan pengalaman Anda" {
		t.Fatalf("unexpected submit payload: %+v", fixture.submitBody)
	}

	progMu.Lock()
	defer progMu.Unlock()
	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Fatalf("expected a terminal 100%% report, got %v", percents)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress went backwards: %v", percents)
		}
	}
	if lastTotal != "10 Bytes" {
		t.Fatalf("unexpected total %q", lastTotal)
	}
}

func TestUploaderReportsCompletionForEmptyRecording(t *testing.T) {
	t.Parallel()

	_, uploader, _ := newUploadFixture(t)

	var progMu sync.Mutex
	var percents []int
	_, err := uploader.Upload(context.Background(), "chat-1", domain.Recording{QuestionID: 1}, "q", func(percent int, _, _ string) {
		progMu.Lock()
		percents = append(percents, percent)
		progMu.Unlock()
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	progMu.Lock()
	defer progMu.Unlock()
	if len(percents) != 1 || percents[0] != 100 {
		t.Fatalf("expected a single terminal report, got %v", percents)
	}
}

func TestUploaderRejectedPutDoesNotSubmit(t *testing.T) {
	t.Parallel()

	fixture, uploader, _ := newUploadFixture(t)
	fixture.rejectPut = true

	_, err := uploader.Upload(context.Background(), "chat-1", domain.Recording{QuestionID: 1, Data: []byte("x")}, "q", nil)
	if err == nil || !strings.Contains(err.Error(), "upload rejected") {
		t.Fatalf("expected rejection error, got %v", err)
	}

	fixture.mu.Lock()
	defer fixture.mu.Unlock()
	if fixture.submitBody != nil {
		t.Fatalf("answer must not be submitted after a failed upload")
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		count int64
		want  string
	}{
		{0, "0 Bytes"},
		{-3, "0 Bytes"},
		{1, "1 Bytes"},
		{512, "512 Bytes"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1572864, "1.50 MB"},
		{1073741824, "1.00 GB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.count); got != tc.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.count, got, tc.want)
		}
	}
}
