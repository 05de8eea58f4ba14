package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output and state directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// LLM contains chat-completion connection settings used for transcripts,
// scripts, name suggestions, and image prompt rephrasing.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// OpenAI contains connection settings for the speech and image endpoints.
type OpenAI struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// Speech contains text-to-speech settings.
type Speech struct {
	Model string `toml:"model"`
}

// Images contains image generation settings.
type Images struct {
	Model       string `toml:"model"`
	Size        string `toml:"size"`
	Quality     string `toml:"quality"`
	Style       string `toml:"style"`
	MaxAttempts int    `toml:"max_attempts"`
	FillGaps    bool   `toml:"fill_gaps"`
}

// Video contains clip assembly settings.
type Video struct {
	FPS           int    `toml:"fps"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	VideoCodec    string `toml:"video_codec"`
	AudioCodec    string `toml:"audio_codec"`
	MinFreeGiB    int    `toml:"min_free_gib"`
}

// Roundtable contains moderator-directed discussion settings.
type Roundtable struct {
	// MaxTurns caps the discussion length. Zero means unbounded.
	MaxTurns int `toml:"max_turns"`
	// AllowParticipantEnd lets any participant close the discussion by
	// nominating End instead of handing the floor back to the moderator.
	AllowParticipantEnd bool      `toml:"allow_participant_end"`
	MaxParticipants     int       `toml:"max_participants"`
	Models              []string  `toml:"models"`
	Temperatures        []float64 `toml:"temperatures"`
}

// Debate contains fixed-round debate settings.
type Debate struct {
	ModeratorModel string  `toml:"moderator_model"`
	DebaterModel   string  `toml:"debater_model"`
	Temperature    float64 `toml:"temperature"`
	// FormatPath optionally points at a YAML file replacing the default rounds.
	FormatPath string `toml:"format_path"`
}

// Notifications contains ntfy settings for run completion alerts.
type Notifications struct {
	// NtfyTopic is the full topic URL, e.g. https://ntfy.sh/my-videos. Empty
	// disables notifications.
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for content-mill.
//
// Configuration sections by subsystem:
//   - Paths: run output root, history database, and log directories
//   - LLM: chat completions for transcripts and scripts
//   - OpenAI: speech and image synthesis credentials
//   - Speech, Images: synthesis parameters and image retry ceiling
//   - Video: ffmpeg/ffprobe binaries, codecs, and frame rate
//   - Roundtable, Debate: dialogue policies
//   - Notifications: ntfy alerts when runs finish
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	OpenAI        OpenAI        `toml:"openai"`
	Speech        Speech        `toml:"speech"`
	Images        Images        `toml:"images"`
	Video         Video         `toml:"video"`
	Roundtable    Roundtable    `toml:"roundtable"`
	Debate        Debate        `toml:"debate"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file next to the config file or in the
// working directory is loaded first without overriding variables already set.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(configDir string) error {
	var files []string
	seen := map[string]struct{}{}
	for _, dir := range []string{configDir, "."} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		candidate, err := filepath.Abs(filepath.Join(dir, ".env"))
		if err != nil {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			files = append(files, candidate)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// RequireAPIKeys reports a configuration error when generation credentials are missing.
// Commands that only assemble existing media do not need them.
func (c *Config) RequireAPIKeys() error {
	if c.LLM.APIKey != "" && c.OpenAI.APIKey != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("llm.api_key and openai.api_key are required. Set OPENAI_API_KEY (or add it to .env) or edit %s (create with 'contentmill config init')", defaultPath)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the chat-completion settings handed to the llm client.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// GetLLM returns the chat-completion connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// SynthConfig contains the speech and image settings handed to the synth client.
type SynthConfig struct {
	APIKey       string
	BaseURL      string
	SpeechModel  string
	ImageModel   string
	ImageSize    string
	ImageQuality string
	ImageStyle   string
}

// GetSynth returns the speech and image connection settings.
func (c *Config) GetSynth() SynthConfig {
	return SynthConfig{
		APIKey:       strings.TrimSpace(c.OpenAI.APIKey),
		BaseURL:      strings.TrimSpace(c.OpenAI.BaseURL),
		SpeechModel:  strings.TrimSpace(c.Speech.Model),
		ImageModel:   strings.TrimSpace(c.Images.Model),
		ImageSize:    strings.TrimSpace(c.Images.Size),
		ImageQuality: strings.TrimSpace(c.Images.Quality),
		ImageStyle:   strings.TrimSpace(c.Images.Style),
	}
}
