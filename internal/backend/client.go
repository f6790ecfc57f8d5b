package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"greenroom/internal/domain"
)

// ErrResultNotReady marks an evaluation that is still processing. It is a
// recoverable condition, not a failure.
var ErrResultNotReady = errors.New("interview result is still processing")

// Config controls the REST collaborator.
type Config struct {
	BaseURL      string
	Email        string
	Password     string
	PollInterval time.Duration
	PollAttempts int
}

// Client talks to the interview backend. Login caches the bearer token
// for all subsequent calls.
type Client struct {
	http *resty.Client
	cfg  Config
	log  *zap.Logger

	// invoked before each result-poll retry
	retryHook func(attempt int)

	mu    sync.Mutex
	token string
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 20
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		http: resty.New().SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		cfg:  cfg,
		log:  log,
	}
}

// SetRetryHook registers a callback fired before each poll retry, so the
// UI can show an informational "still analysing" notice.
func (c *Client) SetRetryHook(hook func(attempt int)) {
	c.retryHook = hook
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// Login authenticates and caches the bearer token.
func (c *Client) Login(ctx context.Context) (string, error) {
	var body envelope[struct {
		AuthToken string `json:"auth_token"`
	}]

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": c.cfg.Email, "password": c.cfg.Password}).
		SetResult(&body).
		Post("/auth/login")
	if err := checkResponse(resp, err, "login"); err != nil {
		return "", err
	}
	if body.Data.AuthToken == "" {
		return "", errors.New("login response carried no auth token")
	}

	c.mu.Lock()
	c.token = body.Data.AuthToken
	c.mu.Unlock()

	c.log.Info("logged in", zap.String("email", c.cfg.Email))
	return body.Data.AuthToken, nil
}

// StartInterview opens a new interview chat.
func (c *Client) StartInterview(ctx context.Context) (string, error) {
	token, err := c.bearer()
	if err != nil {
		return "", err
	}

	var body envelope[struct {
		ChatID string `json:"chat_id"`
	}]

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&body).
		Post("/ai/interviews/start")
	if err := checkResponse(resp, err, "start interview"); err != nil {
		return "", err
	}
	if body.Data.ChatID == "" {
		return "", errors.New("start response carried no chat id")
	}
	return body.Data.ChatID, nil
}

// Presign requests direct object-storage upload/download URLs.
func (c *Client) Presign(ctx context.Context, filename string, directory string, extension string) (string, string, error) {
	var body envelope[struct {
		UploadURL   string `json:"upload_url"`
		DownloadURL string `json:"download_url"`
	}]

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"filename":  filename,
			"directory": directory,
			"extension": extension,
		}).
		SetResult(&body).
		Get("/uploads/presign_no_auth")
	if err := checkResponse(resp, err, "presign upload"); err != nil {
		return "", "", err
	}
	if body.Data.UploadURL == "" || body.Data.DownloadURL == "" {
		return "", "", errors.New("presign response is missing urls")
	}
	return body.Data.UploadURL, body.Data.DownloadURL, nil
}

// SubmitAnswer registers one uploaded answer in the chat.
func (c *Client) SubmitAnswer(ctx context.Context, chatID string, downloadURL string, questionText string) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]any{
			"chat_id":   chatID,
			"urls":      []string{downloadURL},
			"questions": questionText,
		}).
		Post("/ai/interviews/submit")
	return checkResponse(resp, err, "submit answer")
}

// FinishInterview marks the interview complete, triggering evaluation.
func (c *Client) FinishInterview(ctx context.Context, chatID string) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]string{"chat_id": chatID}).
		Post("/ai/interviews/finish")
	return checkResponse(resp, err, "finish interview")
}

// FetchResult retrieves the evaluation once. ErrResultNotReady while the
// backend is still analysing.
func (c *Client) FetchResult(ctx context.Context, chatID string) (domain.InterviewResult, error) {
	token, err := c.bearer()
	if err != nil {
		return domain.InterviewResult{}, err
	}

	var body envelope[domain.InterviewResult]

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&body).
		Get(fmt.Sprintf("/ai/interviews/%s/result", chatID))
	if err := checkResponse(resp, err, "fetch result"); err != nil {
		return domain.InterviewResult{}, err
	}

	if body.Data.Processing() {
		return body.Data, ErrResultNotReady
	}
	return body.Data, nil
}

// PollResult fetches the evaluation with a fixed retry interval and a
// capped attempt count while it is still processing.
func (c *Client) PollResult(ctx context.Context, chatID string) (domain.InterviewResult, error) {
	var last domain.InterviewResult

	for attempt := 1; attempt <= c.cfg.PollAttempts; attempt++ {
		result, err := c.FetchResult(ctx, chatID)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrResultNotReady) {
			return domain.InterviewResult{}, err
		}
		last = result

		if attempt == c.cfg.PollAttempts {
			break
		}
		if c.retryHook != nil {
			c.retryHook(attempt)
		}
		c.log.Info("result not ready, retrying",
			zap.String("chat_id", chatID),
			zap.Int("attempt", attempt),
		)

		select {
		case <-ctx.Done():
			return domain.InterviewResult{}, ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}
	}

	return last, fmt.Errorf("%w after %d attempts", ErrResultNotReady, c.cfg.PollAttempts)
}

func (c *Client) bearer() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return "", errors.New("not authenticated, login first")
	}
	return c.token, nil
}

func checkResponse(resp *resty.Response, err error, action string) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to %s: %s: %s", action, resp.Status(), strings.TrimSpace(resp.String()))
	}
	return nil
}
