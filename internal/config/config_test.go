package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/chrimage/content-mill/internal/config"
)

// isolateEnv clears credential variables for the duration of the test.
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "CONTENT_MILL_LLM_API_KEY"} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	home := isolateEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(home, "Videos", "content-mill")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.LLM.APIKey != "test-key" || cfg.OpenAI.APIKey != "test-key" {
		t.Fatalf("expected keys from env, got llm=%q openai=%q", cfg.LLM.APIKey, cfg.OpenAI.APIKey)
	}
	if cfg.Video.FPS != 24 {
		t.Fatalf("expected 24 fps default, got %d", cfg.Video.FPS)
	}
	if cfg.Images.MaxAttempts != 3 {
		t.Fatalf("expected 3 image attempts, got %d", cfg.Images.MaxAttempts)
	}
	if !cfg.Images.FillGaps {
		t.Fatal("expected gap filling enabled by default")
	}
	if cfg.Roundtable.MaxTurns != config.Default().Roundtable.MaxTurns {
		t.Fatalf("unexpected max turns: %d", cfg.Roundtable.MaxTurns)
	}
	if cfg.Roundtable.AllowParticipantEnd {
		t.Fatal("expected participant end disabled by default")
	}
	if err := cfg.RequireAPIKeys(); err != nil {
		t.Fatalf("RequireAPIKeys: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if got := cfg.HistoryPath(); got != filepath.Join(cfg.Paths.StateDir, "history.db") {
		t.Fatalf("unexpected history path %q", got)
	}
}

func TestLoadCustomPath(t *testing.T) {
	isolateEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "content-mill.toml")

	type payload struct {
		LLM struct {
			APIKey string `toml:"api_key"`
			Model  string `toml:"model"`
		} `toml:"llm"`
		Video struct {
			FPS int `toml:"fps"`
		} `toml:"video"`
		Roundtable struct {
			MaxTurns            int      `toml:"max_turns"`
			AllowParticipantEnd bool     `toml:"allow_participant_end"`
			Models              []string `toml:"models"`
		} `toml:"roundtable"`
	}
	custom := payload{}
	custom.LLM.APIKey = "abc123"
	custom.LLM.Model = "gpt-test"
	custom.Video.FPS = 30
	custom.Roundtable.MaxTurns = 12
	custom.Roundtable.AllowParticipantEnd = true
	custom.Roundtable.Models = []string{" one ", "", "two"}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.LLM.APIKey != "abc123" {
		t.Fatalf("expected key from file, got %q", cfg.LLM.APIKey)
	}
	if cfg.OpenAI.APIKey != "abc123" {
		t.Fatalf("expected openai key to fall back to llm key, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.Debate.ModeratorModel != "gpt-4o" {
		t.Fatalf("expected debate model default, got %q", cfg.Debate.ModeratorModel)
	}
	if cfg.Video.FPS != 30 {
		t.Fatalf("expected fps 30, got %d", cfg.Video.FPS)
	}
	if cfg.Roundtable.MaxTurns != 12 || !cfg.Roundtable.AllowParticipantEnd {
		t.Fatalf("unexpected roundtable config: %+v", cfg.Roundtable)
	}
	if strings.Join(cfg.Roundtable.Models, ",") != "one,two" {
		t.Fatalf("expected trimmed models, got %v", cfg.Roundtable.Models)
	}
}

func TestLoadReadsDotEnvNextToConfig(t *testing.T) {
	isolateEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "content-mill.toml")
	if err := os.WriteFile(configPath, []byte("[video]\nfps = 24\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte("OPENAI_API_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OpenAI.APIKey != "from-dotenv" {
		t.Fatalf("expected key from .env, got %q", cfg.OpenAI.APIKey)
	}
}

func TestRequireAPIKeysReportsMissingCredentials(t *testing.T) {
	isolateEnv(t)
	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	err = cfg.RequireAPIKeys()
	if err == nil {
		t.Fatal("expected missing key error")
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected hint about OPENAI_API_KEY, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"fps", func(c *config.Config) { c.Video.FPS = -1 }, "video.fps"},
		{"attempts", func(c *config.Config) { c.Images.MaxAttempts = 0 }, "images.max_attempts"},
		{"size", func(c *config.Config) { c.Images.Size = "10x10" }, "images.size"},
		{"max turns", func(c *config.Config) { c.Roundtable.MaxTurns = -5 }, "roundtable.max_turns"},
		{"temperature", func(c *config.Config) { c.Roundtable.Temperatures = []float64{3} }, "roundtable.temperatures"},
		{"level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Images.Size != "1792x1024" {
		t.Fatalf("unexpected sample image size %q", cfg.Images.Size)
	}
}
