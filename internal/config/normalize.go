package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeOpenAI()
	c.normalizeImages()
	if err := c.normalizeVideo(); err != nil {
		return err
	}
	c.normalizeDebate()
	c.normalizeRoundtable()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = lookupEnv("CONTENT_MILL_LLM_API_KEY", "OPENAI_API_KEY")
	}
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = lookupEnv("OPENAI_API_KEY")
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = c.LLM.APIKey
	}
	c.Speech.Model = strings.TrimSpace(c.Speech.Model)
	if c.Speech.Model == "" {
		c.Speech.Model = defaultSpeechModel
	}
}

func (c *Config) normalizeImages() {
	c.Images.Model = strings.TrimSpace(c.Images.Model)
	if c.Images.Model == "" {
		c.Images.Model = defaultImageModel
	}
	c.Images.Size = strings.ToLower(strings.TrimSpace(c.Images.Size))
	if c.Images.Size == "" {
		c.Images.Size = defaultImageSize
	}
	c.Images.Quality = strings.ToLower(strings.TrimSpace(c.Images.Quality))
	if c.Images.Quality == "" {
		c.Images.Quality = defaultImageQuality
	}
	c.Images.Style = strings.ToLower(strings.TrimSpace(c.Images.Style))
	if c.Images.Style == "" {
		c.Images.Style = defaultImageStyle
	}
	if c.Images.MaxAttempts == 0 {
		c.Images.MaxAttempts = defaultImageMaxAttempts
	}
}

func (c *Config) normalizeVideo() error {
	if c.Video.FPS == 0 {
		c.Video.FPS = defaultVideoFPS
	}
	c.Video.FFmpegBinary = strings.TrimSpace(c.Video.FFmpegBinary)
	if c.Video.FFmpegBinary == "" {
		c.Video.FFmpegBinary = defaultFFmpegBinary
	}
	c.Video.FFprobeBinary = strings.TrimSpace(c.Video.FFprobeBinary)
	if c.Video.FFprobeBinary == "" {
		c.Video.FFprobeBinary = defaultFFprobeBinary
	}
	// Bare names are resolved on PATH later; only expand explicit paths.
	var err error
	if strings.ContainsRune(c.Video.FFmpegBinary, os.PathSeparator) {
		if c.Video.FFmpegBinary, err = expandPath(c.Video.FFmpegBinary); err != nil {
			return fmt.Errorf("video.ffmpeg_binary: %w", err)
		}
	}
	if strings.ContainsRune(c.Video.FFprobeBinary, os.PathSeparator) {
		if c.Video.FFprobeBinary, err = expandPath(c.Video.FFprobeBinary); err != nil {
			return fmt.Errorf("video.ffprobe_binary: %w", err)
		}
	}
	c.Video.VideoCodec = strings.TrimSpace(c.Video.VideoCodec)
	if c.Video.VideoCodec == "" {
		c.Video.VideoCodec = defaultVideoCodec
	}
	c.Video.AudioCodec = strings.TrimSpace(c.Video.AudioCodec)
	if c.Video.AudioCodec == "" {
		c.Video.AudioCodec = defaultAudioCodec
	}
	return nil
}

func (c *Config) normalizeDebate() {
	c.Debate.ModeratorModel = strings.TrimSpace(c.Debate.ModeratorModel)
	if c.Debate.ModeratorModel == "" {
		c.Debate.ModeratorModel = c.LLM.Model
	}
	c.Debate.DebaterModel = strings.TrimSpace(c.Debate.DebaterModel)
	if c.Debate.DebaterModel == "" {
		c.Debate.DebaterModel = c.LLM.Model
	}
	c.Debate.FormatPath = strings.TrimSpace(c.Debate.FormatPath)
	if c.Debate.FormatPath != "" {
		if expanded, err := expandPath(c.Debate.FormatPath); err == nil {
			c.Debate.FormatPath = expanded
		}
	}
}

func (c *Config) normalizeRoundtable() {
	if c.Roundtable.MaxParticipants == 0 {
		c.Roundtable.MaxParticipants = defaultMaxParticipants
	}
	models := c.Roundtable.Models[:0]
	for _, model := range c.Roundtable.Models {
		if trimmed := strings.TrimSpace(model); trimmed != "" {
			models = append(models, trimmed)
		}
	}
	c.Roundtable.Models = models
	if len(c.Roundtable.Models) == 0 {
		c.Roundtable.Models = []string{c.LLM.Model}
	}
	if len(c.Roundtable.Temperatures) == 0 {
		c.Roundtable.Temperatures = []float64{c.LLM.Temperature}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// lookupEnv returns the first non-empty value among the named variables.
func lookupEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
