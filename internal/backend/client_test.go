package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func loginClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client := NewClient(Config{
		BaseURL:      server.URL,
		Email:        "student@example.com",
		Password:     "secret",
		PollInterval: time.Millisecond,
		PollAttempts: 3,
	}, nil)
	if _, err := client.Login(context.Background()); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return client
}

func TestClientLoginCachesToken(t *testing.T) {
	t.Parallel()

	var gotBody map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"auth_token": "token-123"}})
	})
	mux.HandleFunc("POST /ai/interviews/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-123" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"chat_id": "chat-9"}})
	})
	server := testServer(t, mux)

	client := loginClient(t, server)
	if gotBody["email"] != "student@example.com" || gotBody["password"] != "secret" {
		t.Fatalf("unexpected login payload: %+v", gotBody)
	}

	chatID, err := client.StartInterview(context.Background())
	if err != nil || chatID != "chat-9" {
		t.Fatalf("unexpected start result: %q %v", chatID, err)
	}
}

func TestClientRequiresLoginBeforeAuthedCalls(t *testing.T) {
	t.Parallel()

	client := NewClient(Config{BaseURL: "http://127.0.0.1:0"}, nil)
	if _, err := client.StartInterview(context.Background()); err == nil {
		t.Fatalf("expected authentication error")
	}
	if err := client.FinishInterview(context.Background(), "chat"); err == nil {
		t.Fatalf("expected authentication error")
	}
}

func TestClientPresign(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /uploads/presign_no_auth", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("filename") != "question-1-response.webm" || q.Get("directory") != "files" || q.Get("extension") != "webm" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{
			"upload_url":   "https://storage.example.com/put",
			"download_url": "https://cdn.example.com/get",
		}})
	})
	server := testServer(t, mux)

	client := NewClient(Config{BaseURL: server.URL}, nil)
	uploadURL, downloadURL, err := client.Presign(context.Background(), "question-1-response.webm", "files", "webm")
	if err != nil {
		t.Fatalf("presign failed: %v", err)
	}
	if uploadURL != "https://storage.example.com/put" || downloadURL != "https://cdn.example.com/get" {
		t.Fatalf("unexpected urls: %q %q", uploadURL, downloadURL)
	}
}

func TestClientSubmitAnswerPayload(t *testing.T) {
	t.Parallel()

	var got struct {
		ChatID    string   `json:"chat_id"`
		URLs      []string `json:"urls"`
		Questions string   `json:"questions"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"auth_token": "t"}})
	})
	mux.HandleFunc("POST /ai/interviews/submit", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	})
	server := testServer(t, mux)

	client := loginClient(t, server)
	if err := client.SubmitAnswer(context.Background(), "chat-1", "https://cdn.example.com/a.webm", "Tell me"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if got.ChatID != "chat-1" || len(got.URLs) != 1 || got.URLs[0] != "https://cdn.example.com/a.webm" || got.Questions != "Tell me" {
		t.Fatalf("unexpected submit payload: %+v", got)
	}
}

func TestClientFetchResultStillProcessing(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"auth_token": "t"}})
	})
	mux.HandleFunc("GET /ai/interviews/chat-1/result", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"status": "processing"}})
	})
	server := testServer(t, mux)

	client := loginClient(t, server)
	_, err := client.FetchResult(context.Background(), "chat-1")
	if !errors.Is(err, ErrResultNotReady) {
		t.Fatalf("expected ErrResultNotReady, got %v", err)
	}
}

func TestClientPollResultRetriesUntilDone(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"auth_token": "t"}})
	})
	mux.HandleFunc("GET /ai/interviews/chat-1/result", func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"status": "processing"}})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"status":           "done",
			"analysis_summary": "solid answers",
			"evaluations": []map[string]any{
				{"criteria": "communication", "score": 4, "analysis": "clear"},
			},
		}})
	})
	server := testServer(t, mux)

	client := loginClient(t, server)
	var hookCalls atomic.Int32
	client.SetRetryHook(func(int) { hookCalls.Add(1) })

	result, err := client.PollResult(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if result.Status != "done" || result.AnalysisSummary != "solid answers" || len(result.Evaluations) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 fetches, got %d", calls.Load())
	}
	if hookCalls.Load() != 2 {
		t.Fatalf("expected 2 retry notices, got %d", hookCalls.Load())
	}
}

func TestClientPollResultGivesUpAfterAttemptCap(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"auth_token": "t"}})
	})
	mux.HandleFunc("GET /ai/interviews/chat-1/result", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"status": "processing"}})
	})
	server := testServer(t, mux)

	client := loginClient(t, server)
	_, err := client.PollResult(context.Background(), "chat-1")
	if !errors.Is(err, ErrResultNotReady) {
		t.Fatalf("expected ErrResultNotReady, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected the attempt cap to hold, got %d fetches", calls.Load())
	}
}

func TestClientPollResultHonorsContextCancel(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"auth_token": "t"}})
	})
	mux.HandleFunc("GET /ai/interviews/chat-1/result", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"status": "processing"}})
	})
	server := testServer(t, mux)

	client := NewClient(Config{
		BaseURL:      server.URL,
		PollInterval: time.Hour,
		PollAttempts: 5,
	}, nil)
	if _, err := client.Login(context.Background()); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.PollResult(ctx, "chat-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
