package bootstrap

import (
	"go.uber.org/zap"

	"greenroom/internal/backend"
	"greenroom/internal/command"
	"greenroom/internal/config"
	"greenroom/internal/domain"
	"greenroom/internal/media"
	"greenroom/internal/ports"
	"greenroom/internal/providers/deepgram"
	"greenroom/internal/usecase"
	"greenroom/internal/voice"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.InterviewController
	Machine    *usecase.ScriptMachine
	Config     config.Config
	Logger     *zap.Logger
}

// Build wires all backend dependencies for the current runtime.
func Build(events ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return Services{}, err
	}

	client := backend.NewClient(backend.Config{
		BaseURL:      cfg.Backend.BaseURL,
		Email:        cfg.Backend.Email,
		Password:     cfg.Backend.Password,
		PollInterval: cfg.Backend.PollInterval,
		PollAttempts: cfg.Backend.PollAttempts,
	}, logger.Named("backend"))
	client.SetRetryHook(func(int) {
		events.SessionStateChanged(domain.SessionStateSubmitted, domain.SessionReasonResultPending)
	})

	uploader := backend.NewUploader(client, logger.Named("uploader"))

	phrases := command.Phrases{
		Ready:   cfg.Commands.ReadyPhrase,
		Repeat:  cfg.Commands.RepeatPhrase,
		Advance: cfg.Commands.AdvancePhrase,
	}
	matcher := command.NewSet(
		command.NewStrategy(cfg.Commands.Strategy, cfg.Commands.MaxDistance),
		phrases,
	)

	monitor := voice.NewMonitor(
		events,
		cfg.Media.SampleRate,
		cfg.Media.Channels,
		cfg.Voice.Threshold,
		cfg.Voice.Interval,
	)

	player := media.NewFFplayPlayer(cfg.Media.PlayerCommand, cfg.Cues.Dir)

	controller := usecase.NewInterviewController(
		media.NewFFmpegCapture(cfg.Media.CaptureCommand),
		player,
		client,
		uploader,
		monitor,
		events,
		cfg.Questions,
		usecase.Config{
			Media: ports.MediaConfig{
				VideoFormat: cfg.Media.VideoFormat,
				VideoDevice: cfg.Media.VideoDevice,
				AudioFormat: cfg.Media.AudioFormat,
				AudioDevice: cfg.Media.AudioDevice,
				SampleRate:  cfg.Media.SampleRate,
				Channels:    cfg.Media.Channels,
				FrameRate:   cfg.Media.FrameRate,
			},
			ChunkSize:    cfg.Session.ChunkSize,
			RecordingDir: cfg.Session.RecordingDir,
		},
		logger.Named("session"),
	)

	machine := usecase.NewScriptMachine(
		controller,
		player,
		deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		}),
		matcher,
		events,
		ports.StreamingConfig{
			SampleRate:     cfg.Media.SampleRate,
			Channels:       cfg.Media.Channels,
			Encoding:       "linear16",
			Language:       cfg.Deepgram.Language,
			InterimResults: true,
			Keywords:       []string{phrases.Ready, phrases.Repeat, phrases.Advance},
		},
		logger.Named("script"),
	)

	return Services{
		Controller: controller,
		Machine:    machine,
		Config:     cfg,
		Logger:     logger,
	}, nil
}
