package config

const (
	defaultConfigPath         = "~/.config/content-mill/config.toml"
	projectConfigName         = "content-mill.toml"
	defaultOutputDir          = "~/Videos/content-mill"
	defaultStateDir           = "~/.local/share/content-mill"
	defaultLogDir             = "~/.local/share/content-mill/logs"
	defaultLLMBaseURL         = "https://api.openai.com/v1"
	defaultLLMModel           = "gpt-4o"
	defaultLLMTemperature     = 0.7
	defaultLLMTimeoutSeconds  = 120
	defaultOpenAIBaseURL      = "https://api.openai.com/v1"
	defaultSpeechModel        = "tts-1"
	defaultImageModel         = "dall-e-3"
	defaultImageSize          = "1792x1024"
	defaultImageQuality       = "standard"
	defaultImageStyle         = "natural"
	defaultImageMaxAttempts   = 3
	defaultVideoFPS           = 24
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultVideoCodec         = "libx264"
	defaultAudioCodec         = "aac"
	defaultMinFreeGiB         = 1
	defaultRoundtableMaxTurns = 60
	defaultMaxParticipants    = 6
	defaultDebateModel        = "gpt-4o"
	defaultDebateTemperature  = 0.8
	defaultNtfyTimeout        = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Temperature:    defaultLLMTemperature,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		OpenAI: OpenAI{
			BaseURL: defaultOpenAIBaseURL,
		},
		Speech: Speech{
			Model: defaultSpeechModel,
		},
		Images: Images{
			Model:       defaultImageModel,
			Size:        defaultImageSize,
			Quality:     defaultImageQuality,
			Style:       defaultImageStyle,
			MaxAttempts: defaultImageMaxAttempts,
			FillGaps:    true,
		},
		Video: Video{
			FPS:           defaultVideoFPS,
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			VideoCodec:    defaultVideoCodec,
			AudioCodec:    defaultAudioCodec,
			MinFreeGiB:    defaultMinFreeGiB,
		},
		Roundtable: Roundtable{
			MaxTurns:        defaultRoundtableMaxTurns,
			MaxParticipants: defaultMaxParticipants,
			Models:          []string{"gpt-4o-mini", "gpt-4o"},
			Temperatures:    []float64{0.5, 0.7, 1.0, 1.2, 1.5},
		},
		Debate: Debate{
			ModeratorModel: defaultDebateModel,
			DebaterModel:   defaultDebateModel,
			Temperature:    defaultDebateTemperature,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
