package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"greenroom/internal/domain"
	"greenroom/internal/ports"
)

const uploadContentType = "video/webm"

// Uploader pushes finalized recordings to object storage through
// presigned URLs and registers the answer. The PUT goes through net/http
// so the body can stream through a progress-counting reader.
type Uploader struct {
	client *Client
	http   *http.Client
	log    *zap.Logger
}

func NewUploader(client *Client, log *zap.Logger) *Uploader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Uploader{client: client, http: &http.Client{}, log: log}
}

// Upload presigns, uploads with byte progress, and submits the answer.
// Returns the public download URL.
func (u *Uploader) Upload(
	ctx context.Context,
	chatID string,
	recording domain.Recording,
	questionText string,
	progress ports.UploadProgressFunc,
) (string, error) {
	filename := recording.FileName()

	uploadURL, downloadURL, err := u.client.Presign(ctx, filename, "files", "webm")
	if err != nil {
		return "", err
	}

	total := int64(len(recording.Data))
	body := &progressReader{
		reader:   bytes.NewReader(recording.Data),
		total:    total,
		progress: progress,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", uploadContentType)
	req.Header.Set("acl", "public-read")

	resp, err := u.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("upload rejected: %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}
	body.finish()

	u.log.Info("recording uploaded",
		zap.Int("question", recording.QuestionID),
		zap.String("size", formatBytes(total)),
	)

	if err := u.client.SubmitAnswer(ctx, chatID, downloadURL, questionText); err != nil {
		return "", err
	}
	return downloadURL, nil
}

// progressReader reports whole-percent progress as the request body is
// consumed.
type progressReader struct {
	reader   io.Reader
	total    int64
	progress ports.UploadProgressFunc

	mu          sync.Mutex
	loaded      int64
	lastPercent int
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.advance(int64(n))
	}
	return n, err
}

func (r *progressReader) advance(n int64) {
	r.mu.Lock()
	r.loaded += n
	percent := 100
	if r.total > 0 {
		percent = int(r.loaded * 100 / r.total)
	}
	changed := percent != r.lastPercent
	if changed {
		r.lastPercent = percent
	}
	loaded := r.loaded
	r.mu.Unlock()

	if changed && r.progress != nil {
		r.progress(percent, formatBytes(loaded), formatBytes(r.total))
	}
}

// finish guarantees a terminal 100% report even for empty payloads.
func (r *progressReader) finish() {
	r.mu.Lock()
	done := r.lastPercent == 100
	r.lastPercent = 100
	r.mu.Unlock()

	if !done && r.progress != nil {
		r.progress(100, formatBytes(r.total), formatBytes(r.total))
	}
}

var byteSizes = []string{"Bytes", "KB", "MB", "GB", "TB"}

func formatBytes(count int64) string {
	if count <= 0 {
		return "0 Bytes"
	}

	exponent := int(math.Floor(math.Log(float64(count)) / math.Log(1024)))
	if exponent >= len(byteSizes) {
		exponent = len(byteSizes) - 1
	}
	value := float64(count) / math.Pow(1024, float64(exponent))
	if exponent == 0 {
		return fmt.Sprintf("%d %s", count, byteSizes[0])
	}
	return fmt.Sprintf("%.2f %s", value, byteSizes[exponent])
}
