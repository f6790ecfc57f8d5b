package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"greenroom/internal/domain"
)

// Config stores runtime configuration for the interview client.
type Config struct {
	Backend  BackendConfig
	Deepgram DeepgramConfig
	Media    MediaConfig
	Commands CommandConfig
	Cues     CueConfig
	Voice    VoiceConfig
	Session  SessionConfig

	Questions []domain.Question
}

type BackendConfig struct {
	BaseURL      string
	Email        string
	Password     string
	PollInterval time.Duration
	PollAttempts int
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type MediaConfig struct {
	CaptureCommand string
	PlayerCommand  string
	VideoFormat    string
	VideoDevice    string
	AudioFormat    string
	AudioDevice    string
	SampleRate     int
	Channels       int
	FrameRate      int
}

type CommandConfig struct {
	Strategy      string
	MaxDistance   int
	ReadyPhrase   string
	RepeatPhrase  string
	AdvancePhrase string
}

type CueConfig struct {
	Dir string
}

type VoiceConfig struct {
	Threshold float64
	Interval  time.Duration
}

type SessionConfig struct {
	ChunkSize      int
	StreamingGrace time.Duration
	RecordingDir   string
}

// Load resolves configuration from an optional .env file, environment
// variables, and sensible defaults, then reads the question list.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Backend: BackendConfig{
			BaseURL:      envOrDefault("GREENROOM_API_BASE", "https://api-staging.rakamin.com/api/v1"),
			Email:        envOrDefault("GREENROOM_API_EMAIL", "student@rakamin.com"),
			Password:     strings.TrimSpace(os.Getenv("GREENROOM_API_PASSWORD")),
			PollInterval: time.Duration(envOrDefaultInt("GREENROOM_RESULT_POLL_INTERVAL_MS", 3000)) * time.Millisecond,
			PollAttempts: envOrDefaultInt("GREENROOM_RESULT_POLL_ATTEMPTS", 20),
		},
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    envOrDefault("DEEPGRAM_LANGUAGE", "id"),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Media: MediaConfig{
			CaptureCommand: envOrDefault("GREENROOM_FFMPEG_COMMAND", "ffmpeg"),
			PlayerCommand:  envOrDefault("GREENROOM_FFPLAY_COMMAND", "ffplay"),
			VideoFormat:    envOrDefault("GREENROOM_VIDEO_INPUT_FORMAT", "v4l2"),
			VideoDevice:    envOrDefault("GREENROOM_VIDEO_INPUT_DEVICE", "/dev/video0"),
			AudioFormat:    envOrDefault("GREENROOM_AUDIO_INPUT_FORMAT", "pulse"),
			AudioDevice:    envOrDefault("GREENROOM_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:     envOrDefaultInt("GREENROOM_SAMPLE_RATE", 16000),
			Channels:       envOrDefaultInt("GREENROOM_CHANNELS", 1),
			FrameRate:      envOrDefaultInt("GREENROOM_FRAME_RATE", 30),
		},
		Commands: CommandConfig{
			Strategy:      envOrDefault("GREENROOM_COMMAND_STRATEGY", "fuzzy"),
			MaxDistance:   envOrDefaultInt("GREENROOM_COMMAND_MAX_DISTANCE", 3),
			ReadyPhrase:   envOrDefault("GREENROOM_READY_PHRASE", "saya siap albi"),
			RepeatPhrase:  envOrDefault("GREENROOM_REPEAT_PHRASE", "tolong ulangi albi"),
			AdvancePhrase: envOrDefault("GREENROOM_ADVANCE_PHRASE", "sudah cukup albi"),
		},
		Cues: CueConfig{
			Dir: envOrDefault("GREENROOM_CUE_DIR", "assets/cues"),
		},
		Voice: VoiceConfig{
			Threshold: envOrDefaultFloat("GREENROOM_VOICE_THRESHOLD", 0.02),
			Interval:  time.Duration(envOrDefaultInt("GREENROOM_VOICE_INTERVAL_MS", 16)) * time.Millisecond,
		},
		Session: SessionConfig{
			ChunkSize:      envOrDefaultInt("GREENROOM_CHUNK_SIZE", 4096),
			StreamingGrace: time.Duration(envOrDefaultInt("GREENROOM_STREAMING_GRACE_MS", 1000)) * time.Millisecond,
			RecordingDir:   envOrDefault("GREENROOM_RECORDING_DIR", os.TempDir()),
		},
	}

	if cfg.Media.SampleRate <= 0 {
		cfg.Media.SampleRate = 16000
	}
	if cfg.Media.Channels <= 0 {
		cfg.Media.Channels = 1
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Backend.PollAttempts <= 0 {
		cfg.Backend.PollAttempts = 20
	}

	questions, err := loadQuestions(strings.TrimSpace(os.Getenv("GREENROOM_QUESTIONS_FILE")))
	if err != nil {
		return Config{}, err
	}
	cfg.Questions = questions

	return cfg, nil
}

// loadQuestions reads the interview question list. A missing path falls
// back to the built-in five-question script.
func loadQuestions(path string) ([]domain.Question, error) {
	if path == "" {
		return defaultQuestions(), nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions file %q: %w", path, err)
	}

	var parsed struct {
		Questions []domain.Question `yaml:"questions"`
	}
	if err := yaml.Unmarshal(contents, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse questions file %q: %w", path, err)
	}
	if len(parsed.Questions) == 0 {
		return nil, fmt.Errorf("questions file %q lists no questions", path)
	}

	seen := make(map[int]bool, len(parsed.Questions))
	for _, q := range parsed.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("questions file %q: question %d has empty text", path, q.ID)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("questions file %q: duplicate question id %d", path, q.ID)
		}
		seen[q.ID] = true
	}

	return parsed.Questions, nil
}

func defaultQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Text: "Ceritakan tentang suatu situasi di mana Anda harus menyampaikan informasi penting kepada orang lain. Apa tujuan komunikasi Anda? Bagaimana Anda menyusun pesan Anda? Bagaimana reaksi penerima? Apa hasil akhirnya?"},
		{ID: 2, Text: "Pernahkah Anda berada dalam situasi di mana Anda menghadapi kegagalan berulang kali? Bagaimana Anda menjaga semangat dan terus mencoba untuk memperbaiki hasil?"},
		{ID: 3, Text: "Ceritakan tentang suatu situasi di mana Anda harus bertanggung jawab atas suatu tugas yang sulit atau menantang. Apa tugasnya, dan mengapa itu menantang? Bagaimana Anda menangani situasi tersebut? Apa hasil akhirnya?"},
		{ID: 4, Text: "Pernahkah Anda membantu seseorang yang sedang mengalami kesulitan atau frustrasi? Bagaimana Anda mengenali kebutuhan mereka? Apa dampak dari tindakan Anda?"},
		{ID: 5, Text: "Ceritakan tentang pengalaman Anda saat menghadapi hambatan besar dalam mencapai tujuan. Apa tantangan atau hambatan yang Anda hadapi? Bagaimana Anda mengatasinya? Apa dampaknya terhadap hasil akhir?"},
	}
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
